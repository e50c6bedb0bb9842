package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmquant/atmquant/pkg/logger"
	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/alert"
	"github.com/atmquant/atmquant/pkg/notify/dispatch"
	"github.com/atmquant/atmquant/pkg/web"
)

type mockSender struct {
	mu   sync.Mutex
	reqs []alert.Request
}

func (m *mockSender) Submit(req alert.Request) []*dispatch.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	var handles []*dispatch.Handle
	for _, ch := range req.Channel.Expand() {
		handles = append(handles, dispatch.ResolvedHandle(dispatch.Result{TaskID: "task-" + string(ch), Channel: ch}))
	}
	return handles
}

func (m *mockSender) requests() []alert.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]alert.Request(nil), m.reqs...)
}

type fixedStats struct{ queued, running int }

func (s fixedStats) QueueLen() int { return s.queued }
func (s fixedStats) Running() int  { return s.running }

func newRouter(t *testing.T, cfg *Config) (*gin.Engine, *mockSender) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	sender := &mockSender{}
	h, err := NewAlertHandler(cfg, sender, fixedStats{queued: 3, running: 2}, logger.NewNoop())
	require.NoError(t, err)
	r := gin.New()
	h.Register(r)
	return r, sender
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSendAccepted(t *testing.T) {
	r, sender := newRouter(t, nil)

	w := post(r, "/api/v1/alerts", `{"content":"止损触发","symbol":"rb2510.SHFE","channel":"feishu","level":"error"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp struct {
		web.Response
		Data AcceptedResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, []string{"task-feishu"}, resp.Data.TaskIDs)

	reqs := sender.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, notify.ChannelFeishu, reqs[0].Channel)
	assert.Equal(t, "rb2510.SHFE", reqs[0].Symbol)
	assert.Equal(t, alert.LevelError, reqs[0].Level)
}

func TestSendAllChannels(t *testing.T) {
	r, sender := newRouter(t, nil)

	w := post(r, "/api/v1/alerts", `{"content":"hi","force_send":true}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "task-dingtalk")

	reqs := sender.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, notify.ChannelAll, reqs[0].Channel)
	assert.True(t, reqs[0].ForceSend)
}

func TestSendBadRequest(t *testing.T) {
	r, sender := newRouter(t, nil)

	assert.Equal(t, http.StatusBadRequest, post(r, "/api/v1/alerts", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/api/v1/alerts", `not json`).Code)
	assert.Equal(t, http.StatusBadRequest, post(r, "/api/v1/alerts", `{"content":"x","channel":"sms"}`).Code)
	assert.Empty(t, sender.requests())
}

func TestGrafanaRoute(t *testing.T) {
	r, sender := newRouter(t, &Config{GrafanaChannel: "dingtalk"})

	body := `{"status":"firing","alerts":[{"status":"firing","labels":{"alertname":"HighLatency","symbol":"IF2510.CFFEX"},"annotations":{"summary":"延迟过高"}}]}`
	w := post(r, "/api/v1/alerts/grafana", body)
	require.Equal(t, http.StatusAccepted, w.Code)

	reqs := sender.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, notify.ChannelDingTalk, reqs[0].Channel)
	assert.Equal(t, "IF2510.CFFEX", reqs[0].Symbol)
}

func TestInvalidGrafanaChannel(t *testing.T) {
	_, err := NewAlertHandler(&Config{GrafanaChannel: "sms"}, &mockSender{}, nil, nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	r, _ := newRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"code":0,"message":"ok","data":{"status":"ok","queued":3,"running":2}}`, w.Body.String())
}

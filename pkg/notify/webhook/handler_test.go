package webhook

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/alert"
	"github.com/atmquant/atmquant/pkg/notify/dispatch"
)

// mockSender 记录提交的请求
type mockSender struct {
	mu   sync.Mutex
	reqs []alert.Request
}

func (m *mockSender) Submit(req alert.Request) []*dispatch.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reqs = append(m.reqs, req)
	return []*dispatch.Handle{dispatch.ResolvedHandle(dispatch.Result{Status: dispatch.StatusSuccess})}
}

func TestHandler_HandleGrafana_Accepted(t *testing.T) {
	sender := &mockSender{}
	handler := NewHandler(sender, notify.ChannelFeishu, nil)

	body := `{
		"status": "firing",
		"alerts": [
			{
				"status": "firing",
				"labels": {"alertname": "PriceLimitUp", "symbol": "rb2510.SHFE"},
				"annotations": {"summary": "螺纹钢涨停"}
			}
		]
	}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/grafana", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"success":true,"message":"已接收","accepted":1}`, w.Body.String())
	require.Len(t, sender.reqs, 1)
	assert.Equal(t, notify.ChannelFeishu, sender.reqs[0].Channel)
	assert.Equal(t, "rb2510.SHFE", sender.reqs[0].Symbol)
}

func TestHandler_HandleGrafana_InvalidMethod(t *testing.T) {
	sender := &mockSender{}
	handler := NewHandler(sender, notify.ChannelAll, nil)

	w := httptest.NewRecorder()
	handler.HandleGrafana(w, httptest.NewRequest(http.MethodGet, "/api/v1/alerts/grafana", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Empty(t, sender.reqs)
}

func TestHandler_HandleGrafana_InvalidJSON(t *testing.T) {
	sender := &mockSender{}
	handler := NewHandler(sender, notify.ChannelAll, nil)

	w := httptest.NewRecorder()
	handler.HandleGrafana(w, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/grafana", bytes.NewBufferString("invalid json")))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, sender.reqs)
}

func TestHandler_HandleGrafana_NoAlerts(t *testing.T) {
	sender := &mockSender{}
	handler := NewHandler(sender, notify.ChannelAll, nil)

	w := httptest.NewRecorder()
	handler.HandleGrafana(w, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/grafana", bytes.NewBufferString(`{"status":"firing","alerts":[]}`)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sender.reqs)
}

func TestHandler_HandleGrafana_MultipleAlerts(t *testing.T) {
	sender := &mockSender{}
	handler := NewHandler(sender, notify.ChannelDingTalk, nil)

	body := `{
		"status": "firing",
		"alerts": [
			{"status": "firing", "labels": {"alertname": "A"}, "annotations": {"summary": "告警1"}},
			{"status": "firing", "labels": {"alertname": "B"}, "annotations": {"summary": "告警2"}}
		]
	}`

	w := httptest.NewRecorder()
	handler.HandleGrafana(w, httptest.NewRequest(http.MethodPost, "/api/v1/alerts/grafana", bytes.NewBufferString(body)))

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, sender.reqs, 2)
	assert.Contains(t, sender.reqs[0].Content, "告警1")
	assert.Contains(t, sender.reqs[1].Content, "告警2")
}

package dingtalk

import (
	"net/url"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmquant/atmquant/pkg/notify"
)

const (
	fixtureMillis = int64(1700000000123)
	fixtureSign   = "JxMkJQ0ahPbTC5NmBuSjvXhg1kHzT49yxnzaSxg9QIY="
)

func TestSign_Vector(t *testing.T) {
	assert.Equal(t, fixtureSign, Sign(fixtureMillis, "s1"))
}

func TestSignedURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "with access token",
			url:  "https://oapi.dingtalk.com/robot/send?access_token=abc",
			want: "https://oapi.dingtalk.com/robot/send?access_token=abc&timestamp=1700000000123&sign=JxMkJQ0ahPbTC5NmBuSjvXhg1kHzT49yxnzaSxg9QIY%3D",
		},
		{
			name: "bare url",
			url:  "https://example/hook",
			want: "https://example/hook?timestamp=1700000000123&sign=JxMkJQ0ahPbTC5NmBuSjvXhg1kHzT49yxnzaSxg9QIY%3D",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SignedURL(tt.url, fixtureMillis, fixtureSign))
		})
	}
}

func TestProtocol_BuildRequest(t *testing.T) {
	p := NewProtocol()
	now := time.UnixMilli(fixtureMillis)

	req, err := p.BuildRequest("https://oapi.dingtalk.com/robot/send?access_token=abc", "s1", "你好", now)
	require.NoError(t, err)

	assert.Equal(t, notify.ChannelDingTalk, req.Channel)
	assert.Equal(t, fixtureMillis, req.Timestamp)
	assert.Equal(t, fixtureSign, req.Sign)
	assert.JSONEq(t, `{"msgtype":"text","text":{"content":"你好"}}`, string(req.Body))

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "abc", q.Get("access_token"))
	assert.Equal(t, "1700000000123", q.Get("timestamp"))
	assert.Equal(t, fixtureSign, q.Get("sign"))
}

func TestProtocol_BuildRequestUnconfigured(t *testing.T) {
	_, err := NewProtocol().BuildRequest("https://example/hook", "", "x", time.Now())
	assert.ErrorIs(t, err, notify.ErrUnconfigured)
}

func TestProtocol_CheckResponse(t *testing.T) {
	p := NewProtocol()

	assert.NoError(t, p.CheckResponse([]byte(`{"errcode":0,"errmsg":"ok"}`)))

	for _, body := range []string{
		`{"errcode":310000,"errmsg":"sign not match"}`,
		`{"errmsg":"ok"}`,
		`not json`,
	} {
		err := p.CheckResponse([]byte(body))
		require.Error(t, err, body)
		assert.True(t, errors.Is(err, notify.ErrProtocol), body)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WebhookURL = "https://oapi.dingtalk.com/robot/send?access_token=abc"
	cfg.Secret = "SEC123"
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Configured())

	cfg.WebhookURL = "oapi.dingtalk.com"
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, notify.ErrInvalidConfig))
}

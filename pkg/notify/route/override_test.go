package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmquant/atmquant/pkg/notify"
)

func TestNewChannelConfig(t *testing.T) {
	cfg := NewChannelConfig("https://example/default", "d", []Override{
		{Key: "MA", WebhookURL: "https://example/ma", Secret: "ma-secret"},
		{Key: "rb", WebhookURL: "https://example/metal"},
		{Key: "cu", WebhookURL: "https://example/metal"},
		{WebhookURL: "https://example/metal", Secret: "metal-secret"},
		{Key: "ag"},
	})

	assert.Equal(t, map[string]string{
		"MA": "https://example/ma",
		"rb": "https://example/metal",
		"cu": "https://example/metal",
	}, cfg.KeyToURL)
	assert.Equal(t, map[string]string{
		"https://example/ma":    "ma-secret",
		"https://example/metal": "metal-secret",
	}, cfg.URLToSecret)

	r := NewRegistry()
	r.Configure(notify.ChannelFeishu, cfg)

	target, err := r.Resolve("cu", notify.ChannelFeishu)
	require.NoError(t, err)
	assert.Equal(t, Target{URL: "https://example/metal", Secret: "metal-secret"}, target)

	// 键区分大小写
	target, err = r.Resolve("ma", notify.ChannelFeishu)
	require.NoError(t, err)
	assert.Equal(t, Target{URL: "https://example/default", Secret: "d"}, target)

	target, err = r.Resolve("ag", notify.ChannelFeishu)
	require.NoError(t, err)
	assert.Equal(t, "https://example/default", target.URL)
}

package webhook_test

import (
	"net/http"

	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/alert"
	"github.com/atmquant/atmquant/pkg/notify/dispatch"
	"github.com/atmquant/atmquant/pkg/notify/webhook"
)

// Example_grafanaIntegration 演示如何把 Grafana Contact Point 接到告警管理器
func Example_grafanaIntegration() {
	d, err := dispatch.New(nil)
	if err != nil {
		panic(err)
	}

	cfg := alert.DefaultConfig()
	cfg.Feishu.WebhookURL = "https://open.feishu.cn/open-apis/bot/v2/hook/your-webhook-id"
	cfg.Feishu.Secret = "your-secret"

	manager, err := alert.NewManager(cfg, d)
	if err != nil {
		panic(err)
	}

	http.Handle("/api/v1/alerts/grafana", webhook.NewHandler(manager, notify.ChannelFeishu, nil))

	// Grafana 中配置 Webhook Contact Point:
	// URL: http://your-service:8080/api/v1/alerts/grafana
}

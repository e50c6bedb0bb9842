package main

import (
	"github.com/atmquant/atmquant/app/alertd/internal/consumer"
	"github.com/atmquant/atmquant/app/alertd/internal/handler"
	"github.com/atmquant/atmquant/pkg/app"
	"github.com/atmquant/atmquant/pkg/logger"
	"github.com/atmquant/atmquant/pkg/notify/alert"
	"github.com/atmquant/atmquant/pkg/otel"
	"github.com/atmquant/atmquant/pkg/prometheus"
	"github.com/atmquant/atmquant/pkg/sentry"
	"github.com/atmquant/atmquant/pkg/web"
)

// Config 定义 alertd 服务的完整配置结构
type Config struct {
	Log     logger.Config             `mapstructure:"log"`
	Loggers map[string]*logger.Config `mapstructure:"loggers"`

	// 告警渠道、静默时段与投递参数
	Alert alert.Config `mapstructure:"alert"`

	// HTTP 接入
	HTTP    web.Config     `mapstructure:"http"`
	Ingress handler.Config `mapstructure:"ingress"`

	// Kafka 接入（可选）
	Kafka consumer.Config `mapstructure:"kafka"`

	// Prometheus 配置
	Prometheus prometheus.Config `mapstructure:"prometheus"`

	// 可选：投递失败上报 Sentry（配置 dsn 后启用）
	Sentry sentry.Config `mapstructure:"sentry"`
	// 可选：每次 webhook 尝试一个 span
	Tracing otel.Config `mapstructure:"tracing"`
}

func main() {
	var cfg Config

	// 1. 加载配置
	mgr, err := app.LoadConfig(&cfg)
	if err != nil {
		panic(err)
	}

	// 2. 初始化主日志
	l, err := logger.New(&cfg.Log)
	if err != nil {
		panic(err)
	}
	logger.SetDefault(l)

	// 3. 通过 Wire 初始化应用
	application, cleanup, err := InitApp(&cfg, mgr, l)
	if err != nil {
		l.Error("failed to initialize application", "error", err)
		return
	}
	defer cleanup()

	// 4. 运行服务
	if err := application.Run(); err != nil {
		l.Error("application exited with error", "error", err)
	}
}

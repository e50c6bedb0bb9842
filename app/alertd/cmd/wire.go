//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/atmquant/atmquant/app/alertd/internal/metrics"
	"github.com/atmquant/atmquant/pkg/app"
	"github.com/atmquant/atmquant/pkg/config"
	"github.com/atmquant/atmquant/pkg/logger"
)

func InitApp(cfg *Config, mgr config.Manager, l logger.Logger) (app.Application, func(), error) {
	panic(wire.Build(
		// 1. 基础框架 (BaseApp)
		app.ProviderSet,

		// 2. Prometheus 与告警指标
		providePrometheus,
		metrics.New,

		// 3. 追踪与错误上报（可选）
		provideTracer,
		provideSentry,

		// 4. 投递器与告警管理器
		provideDispatcher,
		provideAlertManager,

		// 5. 接入层：HTTP、Kafka
		provideAlertHandler,
		provideWebServer,
		provideConsumer,

		// 6. 配置热更新
		provideReloader,

		// 7. 组装与应用配置
		provideAppOptions,
		provideAppComponents,
		app.InitApp,
	))
}

package main

import (
	"github.com/gin-gonic/gin"

	"github.com/atmquant/atmquant/app/alertd/internal/consumer"
	"github.com/atmquant/atmquant/app/alertd/internal/handler"
	"github.com/atmquant/atmquant/app/alertd/internal/metrics"
	"github.com/atmquant/atmquant/app/alertd/internal/reload"
	"github.com/atmquant/atmquant/pkg/app"
	"github.com/atmquant/atmquant/pkg/config"
	"github.com/atmquant/atmquant/pkg/logger"
	"github.com/atmquant/atmquant/pkg/notify/alert"
	"github.com/atmquant/atmquant/pkg/notify/dispatch"
	"github.com/atmquant/atmquant/pkg/otel"
	"github.com/atmquant/atmquant/pkg/prometheus"
	"github.com/atmquant/atmquant/pkg/sentry"
	"github.com/atmquant/atmquant/pkg/web"
	webmetrics "github.com/atmquant/atmquant/pkg/web/metrics"
)

const (
	// alertConfigKey 告警配置在配置文件中的路径，热更新时只重读这一段
	alertConfigKey = "alert"
	// alertLoggerName loggers.alert 配置存在时投递日志单独落盘
	alertLoggerName = "alert"
	dispatchTracer  = "github.com/atmquant/atmquant/pkg/notify/dispatch"
)

func providePrometheus(cfg *Config, l logger.Logger) (*prometheus.Client, error) {
	return prometheus.New(&cfg.Prometheus, l)
}

func provideTracer(cfg *Config) (*otel.TracerProvider, error) {
	return otel.New(&cfg.Tracing)
}

// provideSentry 未配置 DSN 时返回 nil，不上报
func provideSentry(cfg *Config) (*sentry.Client, error) {
	if !cfg.Sentry.Enabled() {
		return nil, nil
	}
	return sentry.New(&cfg.Sentry)
}

func provideDispatcher(
	cfg *Config,
	m *metrics.AlertMetrics,
	tp *otel.TracerProvider,
	sc *sentry.Client,
	base *app.BaseApp,
) (*dispatch.Dispatcher, error) {
	observer := dispatch.Observer(m)
	opts := []dispatch.Option{
		dispatch.WithLogger(base.Logger(alertLoggerName)),
		dispatch.WithTracer(tp.Tracer(dispatchTracer)),
	}
	if sc != nil {
		reporter := sentry.NewReporter(sc)
		observer = dispatch.Observers(m, reporter)
		opts = append(opts, dispatch.WithPanicHandler(reporter.PanicHandler))
	}
	opts = append(opts, dispatch.WithObserver(observer))
	return dispatch.New(&cfg.Alert.Dispatcher, opts...)
}

func provideAlertManager(
	cfg *Config,
	d *dispatch.Dispatcher,
	m *metrics.AlertMetrics,
	promClient *prometheus.Client,
	base *app.BaseApp,
) (*alert.Manager, error) {
	if err := metrics.WatchDispatcher(promClient, d); err != nil {
		return nil, err
	}
	return alert.NewManager(&cfg.Alert, d,
		alert.WithObserver(m),
		alert.WithLogger(base.Logger(alertLoggerName)),
	)
}

func provideAlertHandler(cfg *Config, m *alert.Manager, d *dispatch.Dispatcher, l logger.Logger) (*handler.AlertHandler, error) {
	return handler.NewAlertHandler(&cfg.Ingress, m, d, l)
}

// provideWebServer 创建 HTTP 服务并注册路由
// 未开启独立指标端口时，/metrics 挂在业务端口上
func provideWebServer(
	cfg *Config,
	h *handler.AlertHandler,
	promClient *prometheus.Client,
	l logger.Logger,
) (*web.Server, error) {
	promCfg := promClient.Config()
	httpMetrics := webmetrics.New(promCfg.Namespace, promClient.Registry())

	srv, err := web.NewServer(&cfg.HTTP, l, web.WithMetrics(httpMetrics))
	if err != nil {
		return nil, err
	}

	h.Register(srv.Router())
	if !promCfg.HTTPServer.Enabled {
		srv.Router().GET(promCfg.HTTPServer.Path, gin.WrapH(promClient.Handler()))
	}
	return srv, nil
}

func provideConsumer(cfg *Config, m *alert.Manager, l logger.Logger) (*consumer.Consumer, error) {
	return consumer.New(&cfg.Kafka, m, l)
}

func provideReloader(mgr config.Manager, m *alert.Manager, l logger.Logger) *reload.Watcher {
	return reload.New(mgr, alertConfigKey, m, l)
}

func provideAppOptions(cfg *Config, l logger.Logger) []app.Option {
	return []app.Option{
		app.WithName(app.AppName),
		app.WithLogger(l),
		app.WithNamedLoggers(cfg.Loggers),
	}
}

// provideAppComponents 组装服务与资源
// 停机时先停所有入口，再关闭投递器让队列里的告警尽量发完，
// 资源按逆序关闭，Sentry 与追踪在投递器之后刷新
func provideAppComponents(
	srv *web.Server,
	promClient *prometheus.Client,
	cons *consumer.Consumer,
	watcher *reload.Watcher,
	d *dispatch.Dispatcher,
	tp *otel.TracerProvider,
	sc *sentry.Client,
) app.AppComponents {
	closers := []app.ContextCloser{tp}
	if sc != nil {
		closers = append(closers, sc)
	}
	closers = append(closers, d)

	return app.AppComponents{
		Servers: []app.Server{
			promClient,
			watcher,
			cons,
			srv,
		},
		Closers: closers,
	}
}

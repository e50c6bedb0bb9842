package prometheus

import "time"

// Config Prometheus 配置
type Config struct {
	// 命名空间（应用名称）
	Namespace string `mapstructure:"namespace" validate:"required"`

	// 子系统（可选）
	Subsystem string `mapstructure:"subsystem"`

	// 独立 HTTP 服务器，未开启时通过 Handler 挂到业务服务上
	HTTPServer HTTPServerConfig `mapstructure:"http_server"`

	// 关闭默认 Go 采集器
	DisableGoCollector bool `mapstructure:"disable_go_collector"`

	// 关闭默认进程采集器
	DisableProcessCollector bool `mapstructure:"disable_process_collector"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Addr    string        `mapstructure:"addr" validate:"required_if=Enabled true"`
	Path    string        `mapstructure:"path" validate:"startswith=/"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace: "atmquant",
		HTTPServer: HTTPServerConfig{
			Addr:    ":9090",
			Path:    "/metrics",
			Timeout: 10 * time.Second,
		},
	}
}

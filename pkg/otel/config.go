package otel

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/atmquant/atmquant/pkg/config"
)

// Config TracerProvider 配置，默认关闭
type Config struct {
	Enabled bool `mapstructure:"enabled"`

	ServiceName string `mapstructure:"service_name" validate:"required_if=Enabled true"`

	// Endpoint 导出器端点
	// OTLP HTTP: localhost:4318
	// OTLP gRPC: localhost:4317
	Endpoint string `mapstructure:"endpoint"`

	ExporterType ExporterType `mapstructure:"exporter_type" validate:"omitempty,oneof=otlp-http otlp-grpc stdout noop"`

	// SampleRatio 按 TraceID 采样的比例，跟随父 span 的采样决策
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`

	// Attributes 附加的资源属性
	Attributes map[string]string `mapstructure:"attributes"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`

	// Insecure 不使用 TLS
	Insecure bool `mapstructure:"insecure"`
}

// ExporterType 导出器类型
type ExporterType string

const (
	ExporterTypeOTLPHTTP ExporterType = "otlp-http"
	ExporterTypeOTLPGRPC ExporterType = "otlp-grpc"
	// ExporterTypeStdout 输出到标准输出，调试用
	ExporterTypeStdout ExporterType = "stdout"
	ExporterTypeNoop   ExporterType = "noop"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		ServiceName:     "alertd",
		Endpoint:        "localhost:4318",
		ExporterType:    ExporterTypeOTLPHTTP,
		SampleRatio:     1.0,
		Attributes:      make(map[string]string),
		ShutdownTimeout: 5 * time.Second,
		Insecure:        true,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := config.NewValidator().Validate(c); err != nil {
		return errors.Mark(errors.Wrap(err, "otel"), ErrInvalidConfig)
	}
	return nil
}

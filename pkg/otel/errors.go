package otel

import "github.com/cockroachdb/errors"

var (
	ErrInvalidConfig = errors.New("otel: invalid config")
	// ErrExporterFailed 导出器创建失败
	ErrExporterFailed = errors.New("otel: failed to create exporter")
	ErrProviderClosed = errors.New("otel: provider is closed")
)

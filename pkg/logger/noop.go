package logger

import "context"

var _ Logger = (*NoopLogger)(nil)

// NoopLogger 丢弃所有输出，作为可选依赖的默认值
type NoopLogger struct{}

func NewNoop() *NoopLogger { return &NoopLogger{} }

func (*NoopLogger) Debug(string, ...any) {}
func (*NoopLogger) Info(string, ...any)  {}
func (*NoopLogger) Warn(string, ...any)  {}
func (*NoopLogger) Error(string, ...any) {}

func (*NoopLogger) DebugContext(context.Context, string, ...any) {}
func (*NoopLogger) InfoContext(context.Context, string, ...any)  {}
func (*NoopLogger) WarnContext(context.Context, string, ...any)  {}
func (*NoopLogger) ErrorContext(context.Context, string, ...any) {}

func (l *NoopLogger) Named(string) Logger      { return l }
func (l *NoopLogger) WithFields(...any) Logger { return l }
func (*NoopLogger) Sync() error                { return nil }

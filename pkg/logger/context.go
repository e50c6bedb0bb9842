package logger

import (
	"context"

	"go.uber.org/zap"
)

// ContextFieldExtractor 从 context 提取日志字段
type ContextFieldExtractor func(ctx context.Context) []zap.Field

type fieldsKey struct{}

// ContextWithFields 把键值对挂到 context 上，*Context 系列方法输出时带上
func ContextWithFields(ctx context.Context, keysAndValues ...any) context.Context {
	if len(keysAndValues) == 0 {
		return ctx
	}
	prev, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	fields := make([]zap.Field, 0, len(prev)+len(keysAndValues)/2)
	fields = append(fields, prev...)
	fields = append(fields, toZapFields(keysAndValues...)...)
	return context.WithValue(ctx, fieldsKey{}, fields)
}

// DefaultContextExtractor 取出 ContextWithFields 写入的字段
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	if len(fields) == 0 {
		return nil
	}
	// 调用方会 append，返回副本避免共享底层数组
	out := make([]zap.Field, len(fields))
	copy(out, fields)
	return out
}

package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Hook 日志钩子，返回 false 时丢弃该条日志
type Hook interface {
	OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool
}

// HookFunc 函数式 Hook
type HookFunc func(entry zapcore.Entry, fields []zapcore.Field) bool

func (f HookFunc) OnWrite(entry zapcore.Entry, fields []zapcore.Field) bool {
	return f(entry, fields)
}

// FieldRewriter 可选接口，实现了它的 Hook 也会处理 With 绑定的字段
type FieldRewriter interface {
	RewriteFields(fields []zapcore.Field)
}

// HookedCore 在写入前依次执行 Hook 的 zapcore.Core
type HookedCore struct {
	zapcore.Core
	hooks []Hook
}

func NewHookedCore(core zapcore.Core, hooks ...Hook) zapcore.Core {
	return &HookedCore{Core: core, hooks: hooks}
}

func (h *HookedCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if h.Enabled(entry.Level) {
		return ce.AddCore(entry, h)
	}
	return ce
}

func (h *HookedCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	for _, hook := range h.hooks {
		if !hook.OnWrite(entry, fields) {
			return nil
		}
	}
	return h.Core.Write(entry, fields)
}

func (h *HookedCore) With(fields []zapcore.Field) zapcore.Core {
	for _, hook := range h.hooks {
		if rw, ok := hook.(FieldRewriter); ok {
			rw.RewriteFields(fields)
		}
	}
	return &HookedCore{Core: h.Core.With(fields), hooks: h.hooks}
}

const redacted = "***REDACTED***"

// redactHook 按字段名脱敏
// 名称不区分大小写，完全相同或以 "_<key>" 结尾都算命中，如 feishu_secret
type redactHook struct {
	keys []string
}

// SensitiveDataHook 敏感数据脱敏 Hook，命中的字段替换为字符串占位符
func SensitiveDataHook(sensitiveKeys []string) Hook {
	keys := make([]string, 0, len(sensitiveKeys))
	for _, k := range sensitiveKeys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keys = append(keys, k)
		}
	}
	return &redactHook{keys: keys}
}

func (r *redactHook) OnWrite(_ zapcore.Entry, fields []zapcore.Field) bool {
	r.RewriteFields(fields)
	return true
}

func (r *redactHook) RewriteFields(fields []zapcore.Field) {
	for i := range fields {
		if r.match(fields[i].Key) {
			fields[i] = zapcore.Field{Key: fields[i].Key, Type: zapcore.StringType, String: redacted}
		}
	}
}

func (r *redactHook) match(name string) bool {
	name = strings.ToLower(name)
	for _, k := range r.keys {
		if name == k || strings.HasSuffix(name, "_"+k) {
			return true
		}
	}
	return false
}

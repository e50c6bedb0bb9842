package app

import (
	"context"

	"github.com/google/wire"
)

// AppComponents 用于收集 Wire 注入的所有组件
type AppComponents struct {
	Servers []Server
	Closers []ContextCloser
}

// ProviderSet 导出给 Wire 使用
var ProviderSet = wire.NewSet(
	NewBaseApp,
)

// InitApp 将 Wire 注入的组件绑定到 BaseApp
func InitApp(app *BaseApp, comps AppComponents) Application {
	app.AppendServer(comps.Servers...)
	app.AppendCloser(comps.Closers...)
	return app
}

// MapCloser 将实现了 Close() error 的对象转换为 ContextCloser
func MapCloser(c Closer) ContextCloser {
	return closerWrapper{c}
}

type closerWrapper struct {
	obj Closer
}

func (w closerWrapper) Close(context.Context) error {
	return w.obj.Close()
}

// CloserFunc 函数式 ContextCloser
type CloserFunc func(ctx context.Context) error

func (f CloserFunc) Close(ctx context.Context) error {
	return f(ctx)
}

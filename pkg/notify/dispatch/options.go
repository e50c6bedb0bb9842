package dispatch

import (
	"net/http"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"

	"github.com/atmquant/atmquant/pkg/logger"
)

// Doer 发送 HTTP 请求，*http.Client 即满足
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option 投递器选项
type Option func(*Dispatcher)

// WithDoer 替换 HTTP 客户端
func WithDoer(doer Doer) Option {
	return func(d *Dispatcher) {
		d.doer = doer
	}
}

// WithClock 替换时钟，测试中使用 clockwork.FakeClock
func WithClock(clock clockwork.Clock) Option {
	return func(d *Dispatcher) {
		d.clock = clock
	}
}

func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// WithTracer 每次尝试创建一个 client span
func WithTracer(tr trace.Tracer) Option {
	return func(d *Dispatcher) {
		d.tracer = tr
	}
}

// WithPanicHandler worker panic 时在记录日志之后调用
func WithPanicHandler(fn func(p any)) Option {
	return func(d *Dispatcher) {
		d.panicHandler = fn
	}
}

package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/atmquant/atmquant/pkg/config"
	"github.com/atmquant/atmquant/pkg/logger"
	"github.com/atmquant/atmquant/pkg/notify"
)

// maxResponseBody 响应体读取上限
const maxResponseBody = 64 << 10

const tracerName = "github.com/atmquant/atmquant/pkg/notify/dispatch"

// Dispatcher 固定大小的异步投递池
//
// Submit 只负责入队，从不阻塞；feed 协程把队列中的任务交给 ants 池，
// 池满时 feed 阻塞，因此同时执行的任务数不超过 Workers。
// 每个任务顺序重试，最多 MaxAttempts 次，任务结束后 worker 冷却 Cooldown。
type Dispatcher struct {
	cfg      *Config
	doer     Doer
	clock    clockwork.Clock
	logger   logger.Logger
	observer Observer
	tracer   trace.Tracer

	panicHandler func(p any)

	pool  *ants.PoolWithFunc
	queue chan *Task

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
	feedDone chan struct{}
}

// New 创建投递器并启动 worker 池
func New(cfg *Config, opts ...Option) (*Dispatcher, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		cfg:      newCfg,
		clock:    clockwork.NewRealClock(),
		observer: nopObserver{},
		tracer:   noop.NewTracerProvider().Tracer(tracerName),
		queue:    make(chan *Task, newCfg.QueueSize),
		feedDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.doer == nil {
		d.doer = &http.Client{}
	}
	d.logger = logger.OrNoop(d.logger).Named("dispatch")

	pool, err := ants.NewPoolWithFunc(newCfg.Workers, d.run,
		ants.WithPanicHandler(func(p any) {
			d.logger.Error("worker panic escaped", "panic", fmt.Sprint(p))
			d.reportPanic(p)
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "dispatch: create worker pool")
	}
	d.pool = pool
	d.ctx, d.cancel = context.WithCancel(context.Background())

	go d.feed()

	return d, nil
}

// Config 返回生效的配置
func (d *Dispatcher) Config() Config {
	return *d.cfg
}

// Submit 将任务入队，立即返回完成句柄
// 队列已满或投递器已关闭时，句柄直接以 StatusDropped 结束
func (d *Dispatcher) Submit(t *Task) *Handle {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.handle = newHandle(t.ID)
	if t.MaxAttempts <= 0 {
		t.MaxAttempts = d.cfg.MaxAttempts
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.finish(t, Result{Status: StatusDropped, Err: ErrClosed})
		return t.handle
	}

	d.inflight.Add(1)
	select {
	case d.queue <- t:
		d.observer.TaskQueued(t.Channel())
		d.logger.Debug("task queued",
			"task_id", t.ID,
			"channel", t.Channel(),
			"queue_len", len(d.queue),
		)
	default:
		d.inflight.Done()
		d.finish(t, Result{Status: StatusDropped, Err: ErrQueueFull})
	}
	return t.handle
}

// QueueLen 当前排队任务数
func (d *Dispatcher) QueueLen() int {
	return len(d.queue)
}

// Running 正在执行的 worker 数
func (d *Dispatcher) Running() int {
	return d.pool.Running()
}

// Close 停止接收新任务并等待已入队任务完成
// ctx 到期后中止剩余的重试与冷却等待，返回 ctx.Err()
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		<-d.feedDone
		d.inflight.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = ctx.Err()
		d.logger.Warn("close deadline reached, aborting pending tasks", "queue_len", len(d.queue))
		d.cancel()
		<-drained
	}

	d.cancel()
	d.pool.Release()
	return err
}

// feed 将队列中的任务交给 worker 池，池满时阻塞
func (d *Dispatcher) feed() {
	defer close(d.feedDone)

	for t := range d.queue {
		if err := d.pool.Invoke(t); err != nil {
			d.finish(t, Result{Status: StatusDropped, Err: errors.Wrap(err, "dispatch: invoke")})
			d.inflight.Done()
		}
	}
}

// run 在 worker 中执行单个任务
func (d *Dispatcher) run(arg any) {
	t := arg.(*Task)
	defer d.inflight.Done()

	res := d.execute(t)
	d.finish(t, res)

	if res.Attempts > 0 {
		_ = d.sleep(d.cfg.Cooldown)
	}
}

func (d *Dispatcher) execute(t *Task) (res Result) {
	log := d.logger.WithFields("task_id", t.ID, "channel", t.Channel(), "routing_key", t.RoutingKey)

	defer func() {
		if p := recover(); p != nil {
			log.Error("task panicked", "panic", fmt.Sprint(p))
			d.reportPanic(p)
			res.Status = StatusFailed
			res.Err = errors.Newf("dispatch: task panicked: %v", p)
		}
	}()

	if err := d.ctx.Err(); err != nil {
		return Result{Status: StatusDropped, Err: errors.Mark(err, ErrAborted)}
	}

	if t.Gate != nil {
		if err := t.Gate(d.clock.Now()); err != nil {
			log.Debug("task suppressed at pickup", "reason", err.Error())
			return Result{Status: StatusSuppressed, Err: err}
		}
	}

	target := notify.RedactURL(t.Request.URL)
	var lastErr error
	for attempt := 1; attempt <= t.MaxAttempts; attempt++ {
		res.Attempts = attempt

		start := d.clock.Now()
		err := d.attempt(t, attempt)
		d.observer.AttemptFinished(t.Channel(), attempt, d.clock.Since(start), err)

		if err == nil {
			log.Info("alert delivered",
				"result", StatusSuccess,
				"attempt", attempt,
				"url", target,
			)
			res.Status = StatusSuccess
			return res
		}

		lastErr = err
		log.Warn("delivery attempt failed",
			"attempt", attempt,
			"max_attempts", t.MaxAttempts,
			"url", target,
			"error", err,
		)

		if attempt < t.MaxAttempts {
			if err := d.sleep(d.cfg.RetryDelay); err != nil {
				lastErr = errors.Mark(errors.WithSecondaryError(lastErr, err), ErrAborted)
				break
			}
		}
	}

	log.Error("alert delivery failed",
		"result", StatusFailed,
		"attempts", res.Attempts,
		"url", target,
		"error", lastErr,
	)
	res.Status = StatusFailed
	res.Err = lastErr
	return res
}

// attempt 发送一次请求，签名与请求体在重试间复用
func (d *Dispatcher) attempt(t *Task, n int) (err error) {
	ctx, cancel := context.WithTimeout(d.ctx, d.cfg.RequestTimeout)
	defer cancel()

	ctx, span := d.tracer.Start(ctx, "alert.webhook "+t.Channel().String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("alert.task_id", t.ID),
			attribute.String("alert.channel", t.Channel().String()),
			attribute.String("alert.routing_key", t.RoutingKey),
			attribute.Int("alert.attempt", n),
			attribute.String("url.full", notify.RedactURL(t.Request.URL)),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Request.URL, bytes.NewReader(t.Request.Body))
	if err != nil {
		return notify.Transport(errors.Wrap(err, "build request"))
	}
	req.Header.Set("Content-Type", notify.ContentTypeJSON)

	resp, err := d.doer.Do(req)
	if err != nil {
		return notify.Transport(errors.Wrap(err, "post webhook"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return notify.Transport(errors.Wrap(err, "read response"))
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return notify.Transport(errors.Newf("unexpected status %d", resp.StatusCode))
	}

	return t.Protocol.CheckResponse(body)
}

func (d *Dispatcher) reportPanic(p any) {
	if d.panicHandler != nil {
		d.panicHandler(p)
	}
}

// sleep 按注入的时钟等待，投递器中止时提前返回
func (d *Dispatcher) sleep(dur time.Duration) error {
	if dur <= 0 {
		return nil
	}
	select {
	case <-d.clock.After(dur):
		return nil
	case <-d.ctx.Done():
		return d.ctx.Err()
	}
}

func (d *Dispatcher) finish(t *Task, r Result) {
	r.TaskID = t.ID
	r.Channel = t.Channel()
	if r.Status == StatusDropped {
		d.logger.Warn("task dropped", "task_id", t.ID, "channel", r.Channel, "error", r.Err)
	}
	t.handle.resolve(r)
	d.observer.TaskFinished(r)
}

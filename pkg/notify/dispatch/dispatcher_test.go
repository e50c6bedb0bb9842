package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/feishu"
)

// call 一次被捕获的请求
type call struct {
	url         string
	contentType string
	body        []byte
	at          time.Time
}

// fakeDoer 并发安全的假 HTTP 客户端
type fakeDoer struct {
	clock   clockwork.Clock
	respond func(req *http.Request, n int) (*http.Response, error)

	mu    sync.Mutex
	calls []call
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	body, _ := io.ReadAll(req.Body)

	f.mu.Lock()
	f.calls = append(f.calls, call{
		url:         req.URL.String(),
		contentType: req.Header.Get("Content-Type"),
		body:        body,
		at:          f.clock.Now(),
	})
	n := len(f.calls)
	f.mu.Unlock()

	return f.respond(req, n)
}

func (f *fakeDoer) snapshot() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]call, len(f.calls))
	copy(out, f.calls)
	return out
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func feishuOK(*http.Request, int) (*http.Response, error) {
	return jsonResponse(http.StatusOK, `{"code":0,"msg":"success"}`), nil
}

type recordingObserver struct {
	queued   atomic.Int32
	attempts atomic.Int32
	mu       sync.Mutex
	results  []Result
}

func (o *recordingObserver) TaskQueued(notify.Channel) { o.queued.Add(1) }

func (o *recordingObserver) AttemptFinished(notify.Channel, int, time.Duration, error) {
	o.attempts.Add(1)
}

func (o *recordingObserver) TaskFinished(r Result) {
	o.mu.Lock()
	o.results = append(o.results, r)
	o.mu.Unlock()
}

func newTestDispatcher(t *testing.T, cfg *Config, respond func(*http.Request, int) (*http.Response, error), opts ...Option) (*Dispatcher, *fakeDoer, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClockAt(time.Date(2025, time.October, 15, 10, 0, 0, 0, time.UTC))
	doer := &fakeDoer{clock: fc, respond: respond}

	d, err := New(cfg, append([]Option{WithDoer(doer), WithClock(fc)}, opts...)...)
	require.NoError(t, err)
	return d, doer, fc
}

// keepAdvancing 只要有协程等待假时钟就推进 5 秒，跳过重试与冷却等待
func keepAdvancing(fc *clockwork.FakeClock) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			if err := fc.BlockUntilContext(ctx, 1); err != nil {
				return
			}
			fc.Advance(5 * time.Second)
		}
	}()
	return cancel
}

// closeAndDrain 关闭投递器并等待所有任务结束
func closeAndDrain(t *testing.T, d *Dispatcher, fc *clockwork.FakeClock) {
	t.Helper()
	stop := keepAdvancing(fc)
	defer stop()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	require.NoError(t, d.Close(closeCtx))
}

func feishuTask(t *testing.T, url, content string) *Task {
	t.Helper()
	p := feishu.NewProtocol()
	req, err := p.BuildRequest(url, "s1", content, time.Unix(1700000000, 0))
	require.NoError(t, err)
	return &Task{Request: req, Protocol: p}
}

func waitResult(t *testing.T, h *Handle) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r, err := h.Wait(ctx)
	require.NoError(t, err)
	return r
}

func TestDispatcher_Success(t *testing.T) {
	obs := &recordingObserver{}
	d, doer, fc := newTestDispatcher(t, nil, feishuOK, WithObserver(obs))

	h := d.Submit(feishuTask(t, "https://example/hook", "hello"))
	require.NotEmpty(t, h.TaskID())

	r := waitResult(t, h)
	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, 1, r.Attempts)
	assert.Equal(t, notify.ChannelFeishu, r.Channel)
	assert.Equal(t, h.TaskID(), r.TaskID)
	assert.NoError(t, r.Err)

	calls := doer.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "https://example/hook", calls[0].url)
	assert.Equal(t, "application/json; charset=utf-8", calls[0].contentType)

	closeAndDrain(t, d, fc)
	assert.EqualValues(t, 1, obs.queued.Load())
	assert.EqualValues(t, 1, obs.attempts.Load())
	require.Len(t, obs.results, 1)
	assert.Equal(t, StatusSuccess, obs.results[0].Status)
}

func TestDispatcher_AlwaysFailingMakesThreeAttempts(t *testing.T) {
	d, doer, fc := newTestDispatcher(t, nil, func(*http.Request, int) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	h := d.Submit(feishuTask(t, "https://example/hook", "hello"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 每次失败后 worker 挂在 5 秒的重试等待上
	for i := 0; i < 2; i++ {
		require.NoError(t, fc.BlockUntilContext(ctx, 1))
		_, done := h.Result()
		require.False(t, done)
		fc.Advance(5 * time.Second)
	}

	r := waitResult(t, h)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, 3, r.Attempts)
	assert.True(t, errors.Is(r.Err, notify.ErrTransport))

	calls := doer.snapshot()
	require.Len(t, calls, 3)
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].at.Sub(calls[i-1].at), 5*time.Second)
	}
	// 重试复用同一份签名请求
	assert.Equal(t, calls[0].body, calls[2].body)

	closeAndDrain(t, d, fc)
	assert.Len(t, doer.snapshot(), 3)
}

func TestDispatcher_RetryThenSuccess(t *testing.T) {
	d, doer, fc := newTestDispatcher(t, nil, func(_ *http.Request, n int) (*http.Response, error) {
		if n == 1 {
			return jsonResponse(http.StatusBadGateway, `bad gateway`), nil
		}
		return jsonResponse(http.StatusOK, `{"code":0,"msg":"success"}`), nil
	})

	h := d.Submit(feishuTask(t, "https://example/hook", "hello"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(5 * time.Second)

	r := waitResult(t, h)
	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, 2, r.Attempts)
	assert.Len(t, doer.snapshot(), 2)

	closeAndDrain(t, d, fc)
}

func TestDispatcher_ProtocolFailureIsRetried(t *testing.T) {
	d, doer, fc := newTestDispatcher(t, &Config{MaxAttempts: 2}, func(*http.Request, int) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"code":19021,"msg":"sign match fail"}`), nil
	})

	h := d.Submit(feishuTask(t, "https://example/hook", "hello"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(5 * time.Second)

	r := waitResult(t, h)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, 2, r.Attempts)
	assert.True(t, errors.Is(r.Err, notify.ErrProtocol))
	assert.Len(t, doer.snapshot(), 2)

	closeAndDrain(t, d, fc)
}

func TestDispatcher_ConcurrentDistinctTargets(t *testing.T) {
	release := make(chan struct{})
	var inflight, maxInflight atomic.Int32

	d, doer, fc := newTestDispatcher(t, nil, func(*http.Request, int) (*http.Response, error) {
		n := inflight.Add(1)
		for {
			m := maxInflight.Load()
			if n <= m || maxInflight.CompareAndSwap(m, n) {
				break
			}
		}
		<-release
		inflight.Add(-1)
		return jsonResponse(http.StatusOK, `{"code":0,"msg":"success"}`), nil
	})

	const total = 12
	handles := make([]*Handle, 0, total)
	for i := 0; i < total; i++ {
		url := fmt.Sprintf("https://example/hook/%d", i)
		handles = append(handles, d.Submit(feishuTask(t, url, fmt.Sprintf("alert-%d", i))))
	}

	require.Eventually(t, func() bool {
		return inflight.Load() == 5
	}, 5*time.Second, 5*time.Millisecond)
	close(release)

	stop := keepAdvancing(fc)
	for _, h := range handles {
		assert.Equal(t, StatusSuccess, waitResult(t, h).Status)
	}
	stop()
	closeAndDrain(t, d, fc)

	assert.EqualValues(t, 5, maxInflight.Load())

	calls := doer.snapshot()
	require.Len(t, calls, total)
	for _, c := range calls {
		var msg struct {
			Content struct {
				Text string `json:"text"`
			} `json:"content"`
		}
		require.NoError(t, json.Unmarshal(c.body, &msg))
		idx := strings.TrimPrefix(msg.Content.Text, "alert-")
		assert.Equal(t, "https://example/hook/"+idx, c.url)
	}
}

func TestDispatcher_GateSuppresses(t *testing.T) {
	d, doer, fc := newTestDispatcher(t, nil, feishuOK)

	task := feishuTask(t, "https://example/hook", "stale")
	var gateAt time.Time
	task.Gate = func(now time.Time) error {
		gateAt = now
		return notify.ErrSuppressed
	}

	r := waitResult(t, d.Submit(task))
	assert.Equal(t, StatusSuppressed, r.Status)
	assert.Equal(t, 0, r.Attempts)
	assert.True(t, errors.Is(r.Err, notify.ErrSuppressed))
	assert.Equal(t, fc.Now(), gateAt)
	assert.Empty(t, doer.snapshot())

	closeAndDrain(t, d, fc)
}

func TestDispatcher_QueueFull(t *testing.T) {
	release := make(chan struct{})
	d, _, fc := newTestDispatcher(t, &Config{Workers: 1, QueueSize: 1}, func(*http.Request, int) (*http.Response, error) {
		<-release
		return jsonResponse(http.StatusOK, `{"code":0,"msg":"success"}`), nil
	})

	handles := make([]*Handle, 0, 10)
	for i := 0; i < 10; i++ {
		handles = append(handles, d.Submit(feishuTask(t, "https://example/hook", "x")))
	}

	// 1 个执行中、1 个阻塞在池入口、1 个在队列中，其余全部丢弃
	dropped := 0
	for _, h := range handles {
		if r, ok := h.Result(); ok {
			require.Equal(t, StatusDropped, r.Status)
			assert.True(t, errors.Is(r.Err, ErrQueueFull))
			dropped++
		}
	}
	assert.GreaterOrEqual(t, dropped, 7)

	close(release)
	closeAndDrain(t, d, fc)

	for _, h := range handles {
		r, ok := h.Result()
		require.True(t, ok)
		assert.Contains(t, []Status{StatusSuccess, StatusDropped}, r.Status)
	}
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	d, doer, fc := newTestDispatcher(t, nil, feishuOK)
	closeAndDrain(t, d, fc)

	r := waitResult(t, d.Submit(feishuTask(t, "https://example/hook", "late")))
	assert.Equal(t, StatusDropped, r.Status)
	assert.True(t, errors.Is(r.Err, ErrClosed))
	assert.Empty(t, doer.snapshot())

	// 重复关闭无副作用
	assert.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_CloseDeadlineAborts(t *testing.T) {
	d, _, _ := newTestDispatcher(t, nil, func(req *http.Request, _ int) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	h := d.Submit(feishuTask(t, "https://example/hook", "hello"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := d.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	r := waitResult(t, h)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, 1, r.Attempts)
	assert.True(t, errors.Is(r.Err, ErrAborted))
}

type panickingProtocol struct {
	*feishu.Protocol
}

func (panickingProtocol) CheckResponse([]byte) error {
	panic("boom")
}

func TestDispatcher_PanicIsContained(t *testing.T) {
	var reported atomic.Value
	d, _, fc := newTestDispatcher(t, nil, feishuOK, WithPanicHandler(func(p any) {
		reported.Store(p)
	}))

	task := feishuTask(t, "https://example/hook", "hello")
	task.Protocol = panickingProtocol{feishu.NewProtocol()}

	r := waitResult(t, d.Submit(task))
	assert.Equal(t, StatusFailed, r.Status)
	assert.Contains(t, r.Err.Error(), "boom")
	assert.Equal(t, "boom", reported.Load())

	// 池仍然可用
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(time.Second)

	r = waitResult(t, d.Submit(feishuTask(t, "https://example/hook", "again")))
	assert.Equal(t, StatusSuccess, r.Status)

	closeAndDrain(t, d, fc)
}

func spanAttr(s sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestDispatcher_SpanPerAttempt(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	d, _, fc := newTestDispatcher(t, nil, func(_ *http.Request, n int) (*http.Response, error) {
		if n == 1 {
			return jsonResponse(http.StatusBadGateway, `bad gateway`), nil
		}
		return jsonResponse(http.StatusOK, `{"code":0,"msg":"success"}`), nil
	}, WithTracer(tp.Tracer("dispatch-test")))

	task := feishuTask(t, "https://open.feishu.cn/open-apis/bot/v2/hook/abcdef123456", "hello")
	task.RoutingKey = "rb"
	h := d.Submit(task)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(5 * time.Second)

	r := waitResult(t, h)
	require.Equal(t, StatusSuccess, r.Status)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	for i, s := range spans {
		assert.Equal(t, "alert.webhook feishu", s.Name())
		assert.Equal(t, trace.SpanKindClient, s.SpanKind())

		v, ok := spanAttr(s, "alert.attempt")
		require.True(t, ok)
		assert.EqualValues(t, i+1, v.AsInt64())

		v, ok = spanAttr(s, "alert.routing_key")
		require.True(t, ok)
		assert.Equal(t, "rb", v.AsString())

		v, ok = spanAttr(s, "alert.task_id")
		require.True(t, ok)
		assert.Equal(t, h.TaskID(), v.AsString())

		v, ok = spanAttr(s, "url.full")
		require.True(t, ok)
		assert.NotContains(t, v.AsString(), "abcdef123456")
	}

	assert.Equal(t, codes.Error, spans[0].Status().Code)
	v, ok := spanAttr(spans[0], "http.response.status_code")
	require.True(t, ok)
	assert.EqualValues(t, http.StatusBadGateway, v.AsInt64())
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)

	assert.Equal(t, codes.Unset, spans[1].Status().Code)

	closeAndDrain(t, d, fc)
}

func TestObservers_FanOut(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	d, _, fc := newTestDispatcher(t, nil, feishuOK, WithObserver(Observers(a, nil, b)))

	r := waitResult(t, d.Submit(feishuTask(t, "https://example/hook", "hello")))
	require.Equal(t, StatusSuccess, r.Status)
	closeAndDrain(t, d, fc)

	for _, o := range []*recordingObserver{a, b} {
		assert.EqualValues(t, 1, o.queued.Load())
		assert.EqualValues(t, 1, o.attempts.Load())
		require.Len(t, o.results, 1)
		assert.Equal(t, StatusSuccess, o.results[0].Status)
	}

	single := &recordingObserver{}
	assert.Same(t, single, Observers(nil, single))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&Config{Workers: -1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, notify.ErrInvalidConfig))
}

func TestHandle_ResolvedAndWait(t *testing.T) {
	h := ResolvedHandle(Result{TaskID: "t-1", Status: StatusUnresolved, Err: notify.ErrUnconfigured})
	r, ok := h.Result()
	require.True(t, ok)
	assert.Equal(t, "t-1", r.TaskID)
	assert.Equal(t, StatusUnresolved, r.Status)

	pending := newHandle("t-2")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pending.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

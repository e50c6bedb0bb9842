package metrics

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/dispatch"
	"github.com/atmquant/atmquant/pkg/prometheus"
)

// AlertMetrics 告警投递指标，实现 dispatch.Observer
type AlertMetrics struct {
	// 入队任务数（按渠道）
	Queued *prometheus.CounterVec
	// 单次请求结果（按渠道、结果）
	Attempts *prometheus.CounterVec
	// 单次请求耗时
	AttemptDuration *prometheus.HistogramVec
	// 任务终态（按渠道、状态）
	Results *prometheus.CounterVec
	// 任务最终用掉的请求次数
	TaskAttempts *prometheus.HistogramVec
}

// New 创建并注册告警指标
func New(c *prometheus.Client) (*AlertMetrics, error) {
	queued, err := c.NewCounter("alert_tasks_queued_total", "Alert tasks accepted by the dispatcher.", []string{"channel"})
	if err != nil {
		return nil, errors.Wrap(err, "register queued counter")
	}
	attempts, err := c.NewCounter("alert_attempts_total", "Webhook delivery attempts.", []string{"channel", "outcome"})
	if err != nil {
		return nil, errors.Wrap(err, "register attempts counter")
	}
	duration, err := c.NewHistogram("alert_attempt_duration_seconds", "Webhook request latency.", []string{"channel"}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "register attempt histogram")
	}
	results, err := c.NewCounter("alert_results_total", "Terminal alert outcomes.", []string{"channel", "status"})
	if err != nil {
		return nil, errors.Wrap(err, "register results counter")
	}
	taskAttempts, err := c.NewHistogram("alert_task_attempts", "Attempts used per finished task.", []string{"channel"}, []float64{0, 1, 2, 3, 5})
	if err != nil {
		return nil, errors.Wrap(err, "register task attempts histogram")
	}

	return &AlertMetrics{
		Queued:          queued,
		Attempts:        attempts,
		AttemptDuration: duration,
		Results:         results,
		TaskAttempts:    taskAttempts,
	}, nil
}

// WatchDispatcher 注册队列深度与运行中 worker 数
func WatchDispatcher(c *prometheus.Client, d *dispatch.Dispatcher) error {
	if err := c.NewGaugeFunc("alert_queue_length", "Tasks waiting for a worker.", func() float64 {
		return float64(d.QueueLen())
	}); err != nil {
		return err
	}
	return c.NewGaugeFunc("alert_workers_running", "Workers currently delivering.", func() float64 {
		return float64(d.Running())
	})
}

func (m *AlertMetrics) TaskQueued(ch notify.Channel) {
	m.Queued.WithLabelValues(ch.String()).Inc()
}

func (m *AlertMetrics) AttemptFinished(ch notify.Channel, _ int, elapsed time.Duration, err error) {
	m.Attempts.WithLabelValues(ch.String(), outcome(err)).Inc()
	m.AttemptDuration.WithLabelValues(ch.String()).Observe(elapsed.Seconds())
}

func (m *AlertMetrics) TaskFinished(r dispatch.Result) {
	m.Results.WithLabelValues(r.Channel.String(), string(r.Status)).Inc()
	if r.Attempts > 0 {
		m.TaskAttempts.WithLabelValues(r.Channel.String()).Observe(float64(r.Attempts))
	}
}

// outcome 将单次请求错误归类为低基数标签
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, notify.ErrProtocol):
		return "protocol"
	case errors.Is(err, notify.ErrTransport):
		return "transport"
	default:
		return "error"
	}
}

var _ dispatch.Observer = (*AlertMetrics)(nil)

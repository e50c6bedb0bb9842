package sentry

import (
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/dispatch"
)

var _ dispatch.Observer = (*Reporter)(nil)

// Reporter 作为投递器观察者，只上报重试耗尽的失败
// 被静默、未配置、被丢弃的结果不上报
type Reporter struct {
	client *Client
}

func NewReporter(c *Client) *Reporter {
	return &Reporter{client: c}
}

func (r *Reporter) TaskQueued(notify.Channel) {}

func (r *Reporter) AttemptFinished(notify.Channel, int, time.Duration, error) {}

func (r *Reporter) TaskFinished(res dispatch.Result) {
	if res.Status != dispatch.StatusFailed {
		return
	}
	err := res.Err
	if err == nil {
		err = errors.New("alert delivery failed")
	}
	r.client.CaptureException(err, map[string]string{
		"alert.task_id":  res.TaskID,
		"alert.channel":  res.Channel.String(),
		"alert.attempts": strconv.Itoa(res.Attempts),
	})
}

// PanicHandler 传给 dispatch.WithPanicHandler
func (r *Reporter) PanicHandler(p any) {
	r.client.Recover(p, map[string]string{"component": "dispatch"})
}

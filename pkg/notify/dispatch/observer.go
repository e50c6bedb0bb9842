package dispatch

import (
	"time"

	"github.com/atmquant/atmquant/pkg/notify"
)

// Observer 投递过程回调，用于指标采集
// 实现必须并发安全且不能阻塞
type Observer interface {
	TaskQueued(ch notify.Channel)
	AttemptFinished(ch notify.Channel, attempt int, elapsed time.Duration, err error)
	TaskFinished(r Result)
}

type nopObserver struct{}

func (nopObserver) TaskQueued(notify.Channel)                                 {}
func (nopObserver) AttemptFinished(notify.Channel, int, time.Duration, error) {}
func (nopObserver) TaskFinished(Result)                                       {}

// Observers 依次通知多个观察者
func Observers(obs ...Observer) Observer {
	out := make(multiObserver, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			out = append(out, o)
		}
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

type multiObserver []Observer

func (m multiObserver) TaskQueued(ch notify.Channel) {
	for _, o := range m {
		o.TaskQueued(ch)
	}
}

func (m multiObserver) AttemptFinished(ch notify.Channel, attempt int, elapsed time.Duration, err error) {
	for _, o := range m {
		o.AttemptFinished(ch, attempt, elapsed, err)
	}
}

func (m multiObserver) TaskFinished(r Result) {
	for _, o := range m {
		o.TaskFinished(r)
	}
}

package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/atmquant/atmquant/pkg/notify"
)

// Status 任务终态
type Status string

const (
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusSuppressed Status = "suppressed"
	StatusUnresolved Status = "unresolved"
	StatusDropped    Status = "dropped"
)

// Task 一次签名完成的投递任务
// 提交后归投递器所有，调用方不应再修改
type Task struct {
	ID         string
	Request    *notify.SignedRequest
	Protocol   notify.Protocol
	RoutingKey string

	// Gate 在 worker 取到任务时调用，返回非 nil 则跳过投递
	Gate func(now time.Time) error

	// MaxAttempts 为 0 时使用投递器配置
	MaxAttempts int

	handle *Handle
}

// Channel 任务所属渠道
func (t *Task) Channel() notify.Channel {
	if t.Request == nil {
		return ""
	}
	return t.Request.Channel
}

// Result 任务结果
type Result struct {
	TaskID   string
	Channel  notify.Channel
	Status   Status
	Attempts int
	Err      error
}

// Handle 任务完成句柄
// 发送接口本身不返回结果，句柄用于测试或需要等待结果的调用方
type Handle struct {
	taskID string
	done   chan struct{}
	once   sync.Once
	result Result
}

func newHandle(taskID string) *Handle {
	return &Handle{
		taskID: taskID,
		done:   make(chan struct{}),
	}
}

// ResolvedHandle 返回已经完成的句柄，用于在提交前就被拦截的消息
func ResolvedHandle(r Result) *Handle {
	h := newHandle(r.TaskID)
	h.resolve(r)
	return h
}

func (h *Handle) resolve(r Result) {
	h.once.Do(func() {
		r.TaskID = h.taskID
		h.result = r
		close(h.done)
	})
}

// TaskID 任务 ID
func (h *Handle) TaskID() string {
	return h.taskID
}

// Done 任务进入终态后关闭
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result 非阻塞获取结果
func (h *Handle) Result() (Result, bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		return Result{}, false
	}
}

// Wait 等待任务结束或 ctx 取消
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

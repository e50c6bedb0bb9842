package dispatch

import "github.com/cockroachdb/errors"

var (
	// ErrQueueFull 等待队列已满，任务被丢弃
	ErrQueueFull = errors.New("dispatch: queue full")

	// ErrClosed 投递器已关闭
	ErrClosed = errors.New("dispatch: closed")

	// ErrAborted 关闭超时，未完成的任务被中止
	ErrAborted = errors.New("dispatch: aborted")
)

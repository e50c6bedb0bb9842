package kafka

import (
	"context"
	"time"
)

// Message 消息结构
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
}

// Handler 消息处理器，返回错误时不提交 offset
type Handler func(ctx context.Context, msg *Message) error

// Middleware 消费者中间件
type Middleware func(Handler) Handler

// ConsumerState 消费者状态
type ConsumerState int32

const (
	ConsumerStateIdle ConsumerState = iota
	ConsumerStateRunning
	ConsumerStateStopping
	ConsumerStateStopped
)

// String 返回状态字符串
func (s ConsumerState) String() string {
	switch s {
	case ConsumerStateIdle:
		return "idle"
	case ConsumerStateRunning:
		return "running"
	case ConsumerStateStopping:
		return "stopping"
	case ConsumerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// ConsumerStats 消费者统计
type ConsumerStats struct {
	MessagesConsumed  int64
	MessagesSucceeded int64
	MessagesFailed    int64
	LastMessageTime   time.Time
}

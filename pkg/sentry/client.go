// Package sentry 把投递失败与 worker panic 上报到 Sentry
package sentry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"

	"github.com/atmquant/atmquant/pkg/config"
)

// Client Sentry 客户端，使用独立 Hub，不修改全局状态
type Client struct {
	hub    *sentry.Hub
	config *Config
	closed atomic.Bool

	stats struct {
		captured atomic.Uint64
		dropped  atomic.Uint64
	}
}

// Option 客户端选项
type Option func(*sentry.ClientOptions)

// WithTransport 替换事件发送通道，测试中用于截获事件
func WithTransport(t sentry.Transport) Option {
	return func(o *sentry.ClientOptions) {
		o.Transport = t
	}
}

// New 创建 Sentry 客户端
func New(cfg *Config, opts ...Option) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if !newCfg.Enabled() {
		return nil, errors.Wrap(ErrInvalidConfig, "sentry: dsn is required")
	}
	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	clientOpts := newCfg.toClientOptions()
	for _, opt := range opts {
		opt(&clientOpts)
	}

	client, err := sentry.NewClient(clientOpts)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "sentry: create client"), ErrInvalidConfig)
	}

	hub := sentry.NewHub(client, sentry.NewScope())
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(newCfg.Tags)
	})

	return &Client{hub: hub, config: newCfg}, nil
}

// CaptureException 上报错误，tags 只作用于本次事件
func (c *Client) CaptureException(err error, tags map[string]string) *sentry.EventID {
	if c.closed.Load() || err == nil {
		return nil
	}
	hub := c.hub.Clone()
	hub.Scope().SetTags(tags)
	return c.count(hub.CaptureException(err))
}

// Recover 上报已经 recover 的 panic 值，不重新抛出
func (c *Client) Recover(p any, tags map[string]string) *sentry.EventID {
	if c.closed.Load() || p == nil {
		return nil
	}
	hub := c.hub.Clone()
	hub.Scope().SetTags(tags)
	hub.Scope().SetLevel(sentry.LevelFatal)
	return c.count(hub.RecoverWithContext(context.Background(), p))
}

func (c *Client) count(id *sentry.EventID) *sentry.EventID {
	if id != nil && *id != "" {
		c.stats.captured.Add(1)
	} else {
		c.stats.dropped.Add(1)
	}
	return id
}

// Flush 等待已捕获事件发送完成
func (c *Client) Flush(timeout time.Duration) bool {
	return c.hub.Flush(timeout)
}

// Close 停止上报并等待剩余事件发送
// 等待时间取 ShutdownTimeout 与 ctx 截止时间中较短者
func (c *Client) Close(ctx context.Context) error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}

	timeout := c.config.ShutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout > 0 {
		c.hub.Flush(timeout)
	}
	return nil
}

// Stats 成功捕获与被丢弃的事件数
func (c *Client) Stats() (captured, dropped uint64) {
	return c.stats.captured.Load(), c.stats.dropped.Load()
}

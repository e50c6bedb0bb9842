package kafka

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"

	"github.com/atmquant/atmquant/pkg/config"
	"github.com/atmquant/atmquant/pkg/logger"
)

// Client Kafka 客户端，管理消费者组的生命周期
type Client struct {
	config *Config
	logger logger.Logger

	consumers  map[string]*ConsumerGroup
	consumerMu sync.RWMutex

	consumerMiddlewares []Middleware

	closed atomic.Bool
}

// New 创建 Kafka 客户端
func New(cfg *Config, opts ...ClientOption) (*Client, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "merge kafka config")
	}

	if err := newCfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:    newCfg,
		logger:    logger.NewNoop(),
		consumers: make(map[string]*ConsumerGroup),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ClientOption 客户端选项
type ClientOption func(*Client)

// WithLogger 设置日志
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithConsumerMiddleware 添加消费者中间件，按添加顺序由外向内执行
func WithConsumerMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) {
		c.consumerMiddlewares = append(c.consumerMiddlewares, mw...)
	}
}

// Subscribe 订阅主题（创建消费者组），需调用 Start 开始消费
func (c *Client) Subscribe(topics []string, handler Handler, opts ...ConsumerOption) (*ConsumerGroup, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	if len(topics) == 0 {
		return nil, ErrNoTopics
	}

	if handler == nil {
		return nil, ErrNoHandler
	}

	cg, err := newConsumerGroup(c, topics, handler, opts...)
	if err != nil {
		return nil, err
	}

	key := cg.ID()
	c.consumerMu.Lock()
	c.consumers[key] = cg
	c.consumerMu.Unlock()

	c.logger.Info("consumer group created",
		"id", key,
		"topics", topics,
	)

	return cg, nil
}

// Close 关闭客户端及其所有消费者组
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}

	var firstErr error

	c.consumerMu.Lock()
	for id, cg := range c.consumers {
		if err := cg.Close(); err != nil {
			c.logger.Error("failed to close consumer group",
				"id", id,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	c.consumers = nil
	c.consumerMu.Unlock()

	c.logger.Info("kafka client closed")
	return firstErr
}

// IsClosed 是否已关闭
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

// HealthCheck 连接第一个 broker 并拉取集群元数据
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	dialer, err := newDialer(c.config)
	if err != nil {
		return err
	}

	conn, err := dialer.DialContext(ctx, "tcp", c.config.Brokers[0])
	if err != nil {
		return errors.Wrapf(err, "dial broker %s", c.config.Brokers[0])
	}
	defer conn.Close()

	_, err = conn.Brokers()
	return err
}

// Config 获取配置（只读）
func (c *Client) Config() *Config {
	return c.config
}

// Package consumer 从 Kafka 主题接收告警，消息格式与 HTTP 接口相同
package consumer

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/atmquant/atmquant/app/alertd/internal/ingest"
	"github.com/atmquant/atmquant/pkg/logger"
	"github.com/atmquant/atmquant/pkg/mq/kafka"
)

// Config Kafka 接入配置，默认关闭
type Config struct {
	Enabled bool         `mapstructure:"enabled"`
	Topics  []string     `mapstructure:"topics"`
	Client  kafka.Config `mapstructure:"client"`
}

// Consumer 实现 app.Server
type Consumer struct {
	cfg    *Config
	sender ingest.Sender
	logger logger.Logger

	client *kafka.Client
	group  *kafka.ConsumerGroup
}

// New 创建 Kafka 告警消费者，未开启时 Start/Stop 为空操作
func New(cfg *Config, sender ingest.Sender, l logger.Logger) (*Consumer, error) {
	c := &Consumer{
		cfg:    cfg,
		sender: sender,
		logger: logger.OrNoop(l).Named("consumer"),
	}
	if cfg == nil || !cfg.Enabled {
		return c, nil
	}
	if len(cfg.Topics) == 0 {
		return nil, errors.Wrap(kafka.ErrNoTopics, "kafka consumer enabled")
	}

	client, err := kafka.New(&cfg.Client,
		kafka.WithLogger(c.logger),
		kafka.WithConsumerMiddleware(
			kafka.RecoveryMiddleware(c.logger),
			kafka.LoggingMiddleware(c.logger),
		),
	)
	if err != nil {
		return nil, err
	}

	group, err := client.Subscribe(cfg.Topics, c.Handle)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	c.client = client
	c.group = group
	return c, nil
}

// Handle 处理一条 Kafka 消息
// 格式错误的消息记录日志后直接提交，避免反复消费
func (c *Consumer) Handle(_ context.Context, msg *kafka.Message) error {
	req, err := ingest.Decode(msg.Value)
	if err != nil {
		c.logger.Warn("dropping malformed alert record",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}

	c.sender.Submit(req)
	return nil
}

func (c *Consumer) Start() error {
	if c.group == nil {
		return nil
	}
	return c.group.Start(context.Background())
}

func (c *Consumer) Stop() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

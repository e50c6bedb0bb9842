package kafka

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// messageReader kafka.Reader 中消费循环用到的部分
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerGroup 消费者组
type ConsumerGroup struct {
	client  *Client
	id      string
	topics  []string
	handler Handler
	reader  messageReader

	state atomic.Int32

	cancel context.CancelFunc
	wg     sync.WaitGroup

	concurrency  int
	autoCommit   bool
	fetchTimeout time.Duration

	consumed  atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	lastMsgAt atomic.Int64
}

// ConsumerOption 消费者选项
type ConsumerOption func(*ConsumerGroup)

// WithConcurrency 设置并发消费数
func WithConcurrency(n int) ConsumerOption {
	return func(cg *ConsumerGroup) {
		if n > 0 {
			cg.concurrency = n
		}
	}
}

// withReader 替换底层 reader，测试用
func withReader(r messageReader) ConsumerOption {
	return func(cg *ConsumerGroup) {
		cg.reader = r
	}
}

func newConsumerGroup(c *Client, topics []string, handler Handler, opts ...ConsumerOption) (*ConsumerGroup, error) {
	cfg := c.config.Consumer

	cg := &ConsumerGroup{
		client:       c,
		id:           uuid.NewString(),
		topics:       topics,
		concurrency:  cfg.Concurrency,
		autoCommit:   cfg.CommitInterval > 0,
		fetchTimeout: cfg.FetchTimeout,
	}

	for _, opt := range opts {
		opt(cg)
	}

	if cg.concurrency < 1 {
		cg.concurrency = 1
	}
	if cg.fetchTimeout <= 0 {
		cg.fetchTimeout = 5 * time.Second
	}

	wrapped := handler
	for i := len(c.consumerMiddlewares) - 1; i >= 0; i-- {
		wrapped = c.consumerMiddlewares[i](wrapped)
	}
	cg.handler = wrapped

	if cg.reader != nil {
		return cg, nil
	}

	readerCfg := kafka.ReaderConfig{
		Brokers:           c.config.Brokers,
		GroupID:           cfg.GroupID,
		GroupTopics:       topics,
		MinBytes:          cfg.MinBytes,
		MaxBytes:          cfg.MaxBytes,
		MaxWait:           cfg.MaxWait,
		StartOffset:       cfg.StartOffset,
		HeartbeatInterval: cfg.HeartbeatInterval,
		SessionTimeout:    cfg.SessionTimeout,
		RebalanceTimeout:  cfg.RebalanceTimeout,
	}
	if cg.autoCommit {
		readerCfg.CommitInterval = cfg.CommitInterval
	}

	if c.config.TLS != nil || c.config.SASL != nil {
		dialer, err := newDialer(c.config)
		if err != nil {
			return nil, err
		}
		readerCfg.Dialer = dialer
	}

	cg.reader = kafka.NewReader(readerCfg)
	return cg, nil
}

// ID 返回消费者组 ID
func (cg *ConsumerGroup) ID() string {
	return cg.id
}

// Topics 返回订阅的主题
func (cg *ConsumerGroup) Topics() []string {
	return cg.topics
}

// Start 启动消费协程，立即返回
func (cg *ConsumerGroup) Start(ctx context.Context) error {
	if !cg.state.CompareAndSwap(int32(ConsumerStateIdle), int32(ConsumerStateRunning)) {
		return ErrConsumerAlreadyRunning
	}

	ctx, cg.cancel = context.WithCancel(ctx)

	cg.client.logger.Info("consumer group starting",
		"id", cg.id,
		"topics", cg.topics,
		"concurrency", cg.concurrency,
	)

	for i := 0; i < cg.concurrency; i++ {
		cg.wg.Add(1)
		go func(workerID int) {
			defer cg.wg.Done()
			cg.consume(ctx, workerID)
		}(i)
	}

	return nil
}

func (cg *ConsumerGroup) consume(ctx context.Context, workerID int) {
	log := cg.client.logger
	for {
		if ctx.Err() != nil {
			log.Debug("consumer worker stopping", "id", cg.id, "worker_id", workerID)
			return
		}

		// 带超时拉取，定期检查停止信号
		fetchCtx, cancel := context.WithTimeout(ctx, cg.fetchTimeout)
		kafkaMsg, err := cg.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Error("failed to fetch message",
				"id", cg.id,
				"worker_id", workerID,
				"error", err,
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		cg.consumed.Add(1)

		msg := &Message{
			Topic:     kafkaMsg.Topic,
			Key:       kafkaMsg.Key,
			Value:     kafkaMsg.Value,
			Partition: kafkaMsg.Partition,
			Offset:    kafkaMsg.Offset,
			Timestamp: kafkaMsg.Time,
			Headers:   make(map[string]string, len(kafkaMsg.Headers)),
		}
		for _, h := range kafkaMsg.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}

		if err := cg.handler(ctx, msg); err != nil {
			cg.failed.Add(1)
			log.Error("failed to handle message",
				"id", cg.id,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			// 不提交 offset，重平衡后会重新消费
			continue
		}

		cg.succeeded.Add(1)
		cg.lastMsgAt.Store(time.Now().UnixNano())

		if !cg.autoCommit {
			if err := cg.reader.CommitMessages(ctx, kafkaMsg); err != nil {
				log.Error("failed to commit message",
					"id", cg.id,
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
			}
		}
	}
}

// Stop 停止消费并等待消费协程退出
func (cg *ConsumerGroup) Stop() error {
	if !cg.state.CompareAndSwap(int32(ConsumerStateRunning), int32(ConsumerStateStopping)) {
		state := ConsumerState(cg.state.Load())
		if state == ConsumerStateStopped || state == ConsumerStateStopping {
			return nil
		}
		return ErrConsumerNotRunning
	}

	cg.client.logger.Info("consumer group stopping", "id", cg.id)

	cg.cancel()
	cg.wg.Wait()

	cg.state.Store(int32(ConsumerStateStopped))
	cg.client.logger.Info("consumer group stopped", "id", cg.id)
	return nil
}

// Close 停止消费并关闭 reader
func (cg *ConsumerGroup) Close() error {
	_ = cg.Stop()

	if err := cg.reader.Close(); err != nil {
		return err
	}

	cg.client.logger.Debug("consumer group closed", "id", cg.id)
	return nil
}

// State 返回消费者状态
func (cg *ConsumerGroup) State() ConsumerState {
	return ConsumerState(cg.state.Load())
}

// IsRunning 是否正在运行
func (cg *ConsumerGroup) IsRunning() bool {
	return cg.State() == ConsumerStateRunning
}

// Stats 返回统计信息
func (cg *ConsumerGroup) Stats() ConsumerStats {
	stats := ConsumerStats{
		MessagesConsumed:  cg.consumed.Load(),
		MessagesSucceeded: cg.succeeded.Load(),
		MessagesFailed:    cg.failed.Load(),
	}
	if ns := cg.lastMsgAt.Load(); ns > 0 {
		stats.LastMessageTime = time.Unix(0, ns)
	}
	return stats
}

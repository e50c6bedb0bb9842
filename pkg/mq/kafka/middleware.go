package kafka

import (
	"context"
	"time"

	"github.com/atmquant/atmquant/pkg/logger"
)

// LoggingMiddleware 消费者日志中间件
func LoggingMiddleware(log logger.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) error {
			start := time.Now()

			log.Debug("consuming message",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
			)

			err := next(ctx, msg)

			duration := time.Since(start)
			if err != nil {
				log.Error("message consume failed",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"duration", duration,
					"error", err,
				)
			} else {
				log.Debug("message consumed",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"duration", duration,
				)
			}

			return err
		}
	}
}

// RecoveryMiddleware 恢复中间件（捕获 panic）
func RecoveryMiddleware(log logger.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("consumer panic recovered",
						"topic", msg.Topic,
						"partition", msg.Partition,
						"offset", msg.Offset,
						"panic", r,
					)
					err = ErrConsumerPanic
				}
			}()
			return next(ctx, msg)
		}
	}
}

// RetryMiddleware 重试中间件，第 i 次重试前等待 backoff*i
func RetryMiddleware(maxRetries int, backoff time.Duration) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, msg *Message) error {
			var lastErr error
			for i := 0; i <= maxRetries; i++ {
				if i > 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(backoff * time.Duration(i)):
					}
				}

				lastErr = next(ctx, msg)
				if lastErr == nil {
					return nil
				}
			}
			return lastErr
		}
	}
}

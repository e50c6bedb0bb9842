package dispatch

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/atmquant/atmquant/pkg/config"
	"github.com/atmquant/atmquant/pkg/notify"
)

// Config 投递器配置
type Config struct {
	// Workers 并发 worker 数
	Workers int `mapstructure:"workers" validate:"gte=1"`

	// QueueSize 等待队列长度，队列满时新任务直接丢弃
	QueueSize int `mapstructure:"queue_size" validate:"gte=1"`

	// MaxAttempts 单个任务的最大尝试次数（含首次）
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=1"`

	// RetryDelay 两次尝试之间的固定间隔
	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"gte=0"`

	// Cooldown 任务结束后 worker 的冷却时间
	Cooldown time.Duration `mapstructure:"cooldown" validate:"gte=0"`

	// RequestTimeout 单次 HTTP 请求超时
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

// DefaultConfig 5 个 worker，最多 3 次尝试，间隔 5 秒，冷却 1 秒，超时 10 秒
func DefaultConfig() *Config {
	return &Config{
		Workers:        5,
		QueueSize:      1024,
		MaxAttempts:    3,
		RetryDelay:     5 * time.Second,
		Cooldown:       time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := config.NewValidator().Validate(c); err != nil {
		return errors.Mark(errors.Wrap(err, "dispatch"), notify.ErrInvalidConfig)
	}
	return nil
}

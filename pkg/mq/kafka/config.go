package kafka

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Config Kafka 配置
type Config struct {
	// Brokers Kafka broker 地址列表
	Brokers []string `mapstructure:"brokers"`

	// Consumer 消费者配置
	Consumer ConsumerConfig `mapstructure:"consumer"`

	// SASL 认证配置（可选）
	SASL *SASLConfig `mapstructure:"sasl"`

	// TLS 配置（可选）
	TLS *TLSConfig `mapstructure:"tls"`
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	// GroupID 消费者组 ID
	GroupID string `mapstructure:"group_id"`

	// MinBytes 最小拉取字节数（达到此值才返回）
	MinBytes int `mapstructure:"min_bytes"`

	// MaxBytes 最大拉取字节数
	MaxBytes int `mapstructure:"max_bytes"`

	// MaxWait 最大等待时间（未达到 MinBytes 时最长等待时间）
	MaxWait time.Duration `mapstructure:"max_wait"`

	// CommitInterval 自动提交间隔（0 表示手动提交）
	CommitInterval time.Duration `mapstructure:"commit_interval"`

	// StartOffset 起始偏移量
	// -1: Latest - 从最新位置开始
	// -2: Earliest - 从最早位置开始
	StartOffset int64 `mapstructure:"start_offset"`

	// HeartbeatInterval 心跳间隔
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`

	// SessionTimeout 会话超时
	SessionTimeout time.Duration `mapstructure:"session_timeout"`

	// RebalanceTimeout 重平衡超时
	RebalanceTimeout time.Duration `mapstructure:"rebalance_timeout"`

	// FetchTimeout 单次拉取超时，超时后检查停止信号
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`

	// Concurrency 并发消费协程数
	Concurrency int `mapstructure:"concurrency"`
}

// SASLConfig SASL 认证配置
type SASLConfig struct {
	// Mechanism 认证机制: PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Mechanism string `mapstructure:"mechanism"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

// TLSConfig TLS 配置
type TLSConfig struct {
	Enable             bool   `mapstructure:"enable"`
	CertFile           string `mapstructure:"cert_file"`
	KeyFile            string `mapstructure:"key_file"`
	CAFile             string `mapstructure:"ca_file"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Brokers: []string{"localhost:9092"},
		Consumer: ConsumerConfig{
			GroupID:           "atmquant-alertd",
			MinBytes:          1,
			MaxBytes:          1024 * 1024,
			MaxWait:           500 * time.Millisecond,
			StartOffset:       -1, // Latest，重启后不补发历史告警
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
			RebalanceTimeout:  60 * time.Second,
			FetchTimeout:      5 * time.Second,
			Concurrency:       1,
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}
	if c.Consumer.GroupID == "" {
		return ErrEmptyGroupID
	}
	switch c.Consumer.StartOffset {
	case -1, -2:
	default:
		return errors.Wrapf(ErrInvalidConfig, "start_offset must be -1 or -2, got %d", c.Consumer.StartOffset)
	}
	return nil
}

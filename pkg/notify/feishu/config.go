package feishu

import (
	"github.com/cockroachdb/errors"

	"github.com/atmquant/atmquant/pkg/config"
	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/route"
)

// Config 飞书机器人配置
type Config struct {
	// WebhookURL 默认 Webhook 地址
	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url" validate:"omitempty,url"`

	// Secret 默认签名密钥
	Secret string `mapstructure:"secret" json:"secret"`

	// Routes 按路由键覆盖地址与密钥，例如 rb -> 螺纹钢专用群
	Routes []route.Override `mapstructure:"routes" json:"routes" validate:"dive"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := config.NewValidator().Validate(c); err != nil {
		return errors.Mark(errors.Wrap(err, "feishu"), notify.ErrInvalidConfig)
	}
	return nil
}

// Configured 是否配置了默认地址与密钥
func (c *Config) Configured() bool {
	return c.WebhookURL != "" && c.Secret != ""
}

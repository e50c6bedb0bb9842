package dingtalk

import (
	"github.com/cockroachdb/errors"

	"github.com/atmquant/atmquant/pkg/config"
	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/route"
)

// Config 钉钉机器人配置
type Config struct {
	WebhookURL string           `mapstructure:"webhook_url" json:"webhook_url" validate:"omitempty,url"`
	Secret     string           `mapstructure:"secret" json:"secret"`
	Routes     []route.Override `mapstructure:"routes" json:"routes" validate:"dive"`
}

func DefaultConfig() *Config {
	return &Config{}
}

func (c *Config) Validate() error {
	if err := config.NewValidator().Validate(c); err != nil {
		return errors.Mark(errors.Wrap(err, "dingtalk"), notify.ErrInvalidConfig)
	}
	return nil
}

// Configured 是否配置了默认地址与密钥
func (c *Config) Configured() bool {
	return c.WebhookURL != "" && c.Secret != ""
}

package alert

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/atmquant/atmquant/pkg/config"
	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/dingtalk"
	"github.com/atmquant/atmquant/pkg/notify/dispatch"
	"github.com/atmquant/atmquant/pkg/notify/feishu"
	"github.com/atmquant/atmquant/pkg/notify/quiet"
	"github.com/atmquant/atmquant/pkg/notify/route"
)

// Level 告警级别
type Level string

const (
	LevelDebug    Level = "debug"
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
	LevelSuccess  Level = "success"
)

// MessageFormat 正文前缀配置
type MessageFormat struct {
	IncludeTimestamp bool `mapstructure:"include_timestamp"`
	IncludeSymbol    bool `mapstructure:"include_symbol"`
}

// Config 告警管理器配置
type Config struct {
	Feishu   feishu.Config   `mapstructure:"feishu"`
	DingTalk dingtalk.Config `mapstructure:"dingtalk"`

	// EnabledChannels 启用的渠道，为空表示全部启用
	EnabledChannels []notify.Channel `mapstructure:"enabled_channels" validate:"dive,oneof=feishu dingtalk"`

	// MaxLength 正文最大字符数
	MaxLength int `mapstructure:"max_length" validate:"gte=0"`

	// Timezone 静默时段使用的时区，如 Asia/Shanghai，为空使用本地时区
	Timezone string `mapstructure:"timezone"`

	QuietHours quiet.Config `mapstructure:"quiet_hours"`

	// Levels 各级别是否发送，未列出的级别不发送，未指定级别的请求总是发送
	Levels map[string]bool `mapstructure:"levels"`

	Format MessageFormat `mapstructure:"message_format"`

	Dispatcher dispatch.Config `mapstructure:"dispatcher"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Feishu:     *feishu.DefaultConfig(),
		DingTalk:   *dingtalk.DefaultConfig(),
		MaxLength:  notify.DefaultMaxLength,
		QuietHours: *quiet.DefaultConfig(),
		Levels: map[string]bool{
			string(LevelError):    true,
			string(LevelCritical): true,
			string(LevelWarning):  false,
			string(LevelSuccess):  false,
		},
		Dispatcher: *dispatch.DefaultConfig(),
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := config.NewValidator().Validate(c); err != nil {
		return errors.Mark(errors.Wrap(err, "alert"), notify.ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return errors.Mark(errors.Wrapf(err, "alert: timezone %q", c.Timezone), notify.ErrInvalidConfig)
	}
	return nil
}

// Location 解析时区
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// ChannelConfigs 转换为注册表配置
func (c *Config) ChannelConfigs() map[notify.Channel]route.ChannelConfig {
	return map[notify.Channel]route.ChannelConfig{
		notify.ChannelFeishu:   route.NewChannelConfig(c.Feishu.WebhookURL, c.Feishu.Secret, c.Feishu.Routes),
		notify.ChannelDingTalk: route.NewChannelConfig(c.DingTalk.WebhookURL, c.DingTalk.Secret, c.DingTalk.Routes),
	}
}

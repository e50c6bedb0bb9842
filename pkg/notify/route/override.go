package route

// Override 一条路由覆盖
// 配置里用列表而不是 map：viper 会把 map 键转成小写并按 "." 拆分，
// 品种代码 MA 与以 URL 为键的密钥表都无法原样保留
type Override struct {
	// Key 路由键，如 rb、MA，区分大小写；为空时只登记 URL 的密钥
	Key string `mapstructure:"key" json:"key"`

	WebhookURL string `mapstructure:"webhook_url" json:"webhook_url" validate:"required,url"`

	// Secret 该地址的签名密钥，为空时使用渠道默认密钥
	Secret string `mapstructure:"secret" json:"secret"`
}

// NewChannelConfig 由默认地址与覆盖列表构建注册表配置
// 同一 URL 出现多次时，后面非空的密钥生效
func NewChannelConfig(defaultURL, defaultSecret string, overrides []Override) ChannelConfig {
	cfg := ChannelConfig{
		DefaultURL:    defaultURL,
		DefaultSecret: defaultSecret,
		KeyToURL:      make(map[string]string, len(overrides)),
		URLToSecret:   make(map[string]string, len(overrides)),
	}
	for _, o := range overrides {
		if o.WebhookURL == "" {
			continue
		}
		if o.Key != "" {
			cfg.KeyToURL[o.Key] = o.WebhookURL
		}
		if o.Secret != "" {
			cfg.URLToSecret[o.WebhookURL] = o.Secret
		}
	}
	return cfg
}

package route

import (
	"regexp"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/atmquant/atmquant/pkg/notify"
)

// ChannelConfig 单个渠道的默认地址与覆盖表
type ChannelConfig struct {
	DefaultURL    string
	DefaultSecret string
	KeyToURL      map[string]string // 路由键 -> URL
	URLToSecret   map[string]string // URL -> 密钥
}

// Target 解析结果
type Target struct {
	URL    string
	Secret string
}

type defaults struct {
	url    string
	secret string
}

// Registry 渠道地址注册表，并发安全
// keyToURL 与 urlToSecret 在所有渠道间共享
type Registry struct {
	mu          sync.RWMutex
	defaults    map[notify.Channel]defaults
	keyToURL    map[string]string
	urlToSecret map[string]string
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		defaults:    make(map[notify.Channel]defaults),
		keyToURL:    make(map[string]string),
		urlToSecret: make(map[string]string),
	}
}

// Configure 覆盖渠道默认值，并把覆盖表合并进共享表
func (r *Registry) Configure(ch notify.Channel, cfg ChannelConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configureLocked(ch, cfg)
}

func (r *Registry) configureLocked(ch notify.Channel, cfg ChannelConfig) {
	r.defaults[ch] = defaults{url: cfg.DefaultURL, secret: cfg.DefaultSecret}
	for k, v := range cfg.KeyToURL {
		r.keyToURL[k] = v
	}
	for k, v := range cfg.URLToSecret {
		r.urlToSecret[k] = v
	}
}

// Replace 以新配置整体替换注册表，用于热加载
// 读者要么看到旧表要么看到新表
func (r *Registry) Replace(cfgs map[notify.Channel]ChannelConfig) {
	next := NewRegistry()
	for _, ch := range notify.Channels {
		if cfg, ok := cfgs[ch]; ok {
			next.configureLocked(ch, cfg)
		}
	}

	r.mu.Lock()
	r.defaults = next.defaults
	r.keyToURL = next.keyToURL
	r.urlToSecret = next.urlToSecret
	r.mu.Unlock()
}

// Resolve 解析路由键对应的地址与密钥
// 地址: keyToURL[key]，否则渠道默认地址
// 密钥: urlToSecret[url]，否则渠道默认密钥
func (r *Registry) Resolve(routingKey string, ch notify.Channel) (Target, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def := r.defaults[ch]

	url := ""
	if routingKey != "" {
		url = r.keyToURL[routingKey]
	}
	if url == "" {
		url = def.url
	}

	secret := r.urlToSecret[url]
	if secret == "" {
		secret = def.secret
	}

	if url == "" || secret == "" {
		return Target{}, errors.Wrapf(notify.ErrUnconfigured, "channel=%s key=%q", ch, routingKey)
	}
	return Target{URL: url, Secret: secret}, nil
}

// Snapshot 返回当前配置的副本，供诊断接口使用，密钥不外露
func (r *Registry) Snapshot() map[notify.Channel]ChannelConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[notify.Channel]ChannelConfig, len(r.defaults))
	for ch, def := range r.defaults {
		keys := make(map[string]string, len(r.keyToURL))
		for k, v := range r.keyToURL {
			keys[k] = notify.RedactURL(v)
		}
		cfg := ChannelConfig{KeyToURL: keys}
		if def.url != "" {
			cfg.DefaultURL = notify.RedactURL(def.url)
		}
		if def.secret != "" {
			cfg.DefaultSecret = "***"
		}
		out[ch] = cfg
	}
	return out
}

var routingKeyPattern = regexp.MustCompile(`^([a-zA-Z]{1,2})[0-9]+\.[A-Z]+`)

// ExtractRoutingKey 从合约代码中提取品种前缀
//
//	rb2510.SHFE -> rb
//	MA601.CZCE  -> MA
//	rb          -> 无
func ExtractRoutingKey(symbol string) (string, bool) {
	m := routingKeyPattern.FindStringSubmatch(symbol)
	if m == nil {
		return "", false
	}
	return m[1], true
}

package alert

import (
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/atmquant/atmquant/pkg/config"
	"github.com/atmquant/atmquant/pkg/logger"
	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/dingtalk"
	"github.com/atmquant/atmquant/pkg/notify/dispatch"
	"github.com/atmquant/atmquant/pkg/notify/feishu"
	"github.com/atmquant/atmquant/pkg/notify/quiet"
	"github.com/atmquant/atmquant/pkg/notify/route"
)

var (
	// ErrLevelDisabled 该级别配置为不发送
	ErrLevelDisabled = errors.New("alert: level disabled")

	// ErrChannelDisabled 渠道未启用
	ErrChannelDisabled = errors.New("alert: channel disabled")
)

// previewLen 日志中正文预览长度
const previewLen = 50

// Request 一次告警请求
type Request struct {
	Content string
	// Symbol 合约代码，如 rb2510.SHFE，只用于提取路由键
	Symbol    string
	Channel   notify.Channel
	Level     Level
	ForceSend bool
}

// settings 可热加载的部分
type settings struct {
	enabled   map[notify.Channel]bool
	levels    map[string]bool
	maxLength int
	format    MessageFormat
	policy    *quiet.Policy
}

// Manager 告警管理器
// 负责路由键提取、静默判定、地址解析与签名，然后交给 Dispatcher 异步投递
type Manager struct {
	registry   *route.Registry
	dispatcher *dispatch.Dispatcher
	protocols  map[notify.Channel]notify.Protocol
	clock      clockwork.Clock
	logger     logger.Logger
	observer   dispatch.Observer

	mu       sync.RWMutex
	settings settings
}

// Option 管理器选项
type Option func(*Manager)

func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithObserver 上报在入队前就结束的消息（被静默、未配置等）
func WithObserver(o dispatch.Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

// NewManager 创建告警管理器，dispatcher 的生命周期由调用方管理
func NewManager(cfg *Config, d *dispatch.Dispatcher, opts ...Option) (*Manager, error) {
	if d == nil {
		return nil, errors.New("alert: dispatcher is required")
	}

	m := &Manager{
		registry:   route.NewRegistry(),
		dispatcher: d,
		protocols: map[notify.Channel]notify.Protocol{
			notify.ChannelFeishu:   feishu.NewProtocol(),
			notify.ChannelDingTalk: dingtalk.NewProtocol(),
		},
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logger.OrNoop(m.logger).Named("alert")

	if err := m.Reload(cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// Registry 返回渠道注册表
func (m *Manager) Registry() *route.Registry {
	return m.registry
}

// Reload 应用新配置：原子替换渠道表，更新级别与静默策略
// 投递器参数不支持热更新
func (m *Manager) Reload(cfg *Config) error {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return err
	}
	if err := merged.Validate(); err != nil {
		return err
	}
	loc, err := merged.Location()
	if err != nil {
		return err
	}

	s := settings{
		enabled:   make(map[notify.Channel]bool),
		levels:    make(map[string]bool, len(merged.Levels)),
		maxLength: merged.MaxLength,
		format:    merged.Format,
		policy:    quiet.New(&merged.QuietHours, loc),
	}
	channels := merged.EnabledChannels
	if len(channels) == 0 {
		channels = notify.Channels
	}
	for _, ch := range channels {
		s.enabled[ch] = true
	}
	for k, v := range merged.Levels {
		s.levels[strings.ToLower(k)] = v
	}

	m.registry.Replace(merged.ChannelConfigs())

	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()

	for _, ch := range notify.Channels {
		if _, err := m.registry.Resolve("", ch); err != nil {
			m.logger.Info("channel has no default webhook", "channel", ch, "enabled", s.enabled[ch])
			continue
		}
		m.logger.Info("channel configured", "channel", ch, "enabled", s.enabled[ch])
	}
	return nil
}

func (m *Manager) current() settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// LevelEnabled 级别是否发送，空级别总是发送
func (m *Manager) LevelEnabled(level Level) bool {
	if level == "" {
		return true
	}
	return m.current().levels[strings.ToLower(string(level))]
}

// Send 发送告警，立即返回，结果只体现在日志中
func (m *Manager) Send(content, symbol string, ch notify.Channel, forceSend bool) {
	m.Submit(Request{
		Content:   content,
		Symbol:    symbol,
		Channel:   ch,
		ForceSend: forceSend,
	})
}

// Submit 与 Send 相同，但返回每个渠道的完成句柄
func (m *Manager) Submit(req Request) []*dispatch.Handle {
	s := m.current()
	now := m.clock.Now()

	channels := req.Channel.Expand()
	if req.Channel == "" {
		channels = notify.ChannelAll.Expand()
	}

	routingKey, _ := route.ExtractRoutingKey(req.Symbol)
	content := notify.Truncate(m.decorate(s, req, now), s.maxLength)
	log := m.logger.WithFields(
		"routing_key", routingKey,
		"preview", notify.Truncate(content, previewLen),
	)

	handles := make([]*dispatch.Handle, 0, len(channels))

	if !m.LevelEnabled(req.Level) {
		log.Debug("alert level disabled", "level", req.Level)
		for _, ch := range channels {
			handles = append(handles, m.settle(ch, dispatch.StatusSuppressed, ErrLevelDisabled))
		}
		return handles
	}

	for _, ch := range channels {
		msg := notify.Message{
			Content:    content,
			RoutingKey: routingKey,
			Channel:    ch,
			ForceSend:  req.ForceSend,
			CreatedAt:  now,
		}
		handles = append(handles, m.submitOne(s, msg, log.WithFields("channel", ch)))
	}
	return handles
}

func (m *Manager) submitOne(s settings, msg notify.Message, log logger.Logger) *dispatch.Handle {
	protocol, ok := m.protocols[msg.Channel]
	if !ok {
		err := errors.Wrapf(notify.ErrUnknownChannel, "%q", msg.Channel)
		log.Error("unsupported channel", "error", err)
		return m.settle(msg.Channel, dispatch.StatusUnresolved, err)
	}

	if !s.enabled[msg.Channel] {
		log.Debug("alert channel disabled")
		return m.settle(msg.Channel, dispatch.StatusSuppressed, ErrChannelDisabled)
	}

	if reason := s.policy.Evaluate(msg.CreatedAt, msg.CreatedAt, msg.ForceSend); !reason.Allowed() {
		log.Debug("alert suppressed by quiet hours", "reason", reason)
		return m.settle(msg.Channel, dispatch.StatusSuppressed, errors.Wrapf(notify.ErrSuppressed, "%s", reason))
	}

	target, err := m.registry.Resolve(msg.RoutingKey, msg.Channel)
	if err != nil {
		log.Error("webhook or secret not configured", "error", err)
		return m.settle(msg.Channel, dispatch.StatusUnresolved, err)
	}

	req, err := protocol.BuildRequest(target.URL, target.Secret, msg.Content, msg.CreatedAt)
	if err != nil {
		log.Error("failed to build signed request", "error", err)
		return m.settle(msg.Channel, dispatch.StatusUnresolved, err)
	}

	return m.dispatcher.Submit(&dispatch.Task{
		Request:    req,
		Protocol:   protocol,
		RoutingKey: msg.RoutingKey,
		Gate:       m.gate(msg, log),
	})
}

// gate worker 取到任务时按取出时间重新判定，排队跨日的消息会被拦截
func (m *Manager) gate(msg notify.Message, log logger.Logger) func(time.Time) error {
	return func(now time.Time) error {
		if reason := m.current().policy.Evaluate(now, msg.CreatedAt, msg.ForceSend); !reason.Allowed() {
			log.Debug("queued alert suppressed by quiet hours", "reason", reason)
			return errors.Wrapf(notify.ErrSuppressed, "%s", reason)
		}
		return nil
	}
}

func (m *Manager) settle(ch notify.Channel, status dispatch.Status, err error) *dispatch.Handle {
	r := dispatch.Result{TaskID: uuid.NewString(), Channel: ch, Status: status, Err: err}
	if m.observer != nil {
		m.observer.TaskFinished(r)
	}
	return dispatch.ResolvedHandle(r)
}

// decorate 按配置给正文加上时间与合约前缀
func (m *Manager) decorate(s settings, req Request, now time.Time) string {
	var b strings.Builder
	if s.format.IncludeTimestamp {
		b.WriteString("[")
		b.WriteString(now.In(s.policy.Location()).Format("2006-01-02 15:04:05"))
		b.WriteString("] ")
	}
	if s.format.IncludeSymbol && req.Symbol != "" {
		b.WriteString("[")
		b.WriteString(req.Symbol)
		b.WriteString("] ")
	}
	if b.Len() == 0 {
		return req.Content
	}
	b.WriteString(req.Content)
	return b.String()
}

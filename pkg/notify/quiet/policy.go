package quiet

import "time"

// Reason 判定原因，用于日志与指标
type Reason string

const (
	ReasonForced       Reason = "forced"
	ReasonDateMismatch Reason = "date_mismatch"
	ReasonSaturday     Reason = "saturday"
	ReasonSunday       Reason = "sunday"
	ReasonAllowed      Reason = "allowed"
)

// Allowed 该原因是否放行
func (r Reason) Allowed() bool {
	return r == ReasonForced || r == ReasonAllowed
}

// Config 静默时段配置
type Config struct {
	// WeekendDisabled 关闭周末静默，跨日拦截仍然生效
	WeekendDisabled bool `mapstructure:"weekend_disabled"`

	// SaturdayStartHour 周六从该小时起静默
	SaturdayStartHour int `mapstructure:"saturday_start_hour" validate:"gte=0,lte=23"`
}

// DefaultConfig 周六 03:00 起至周日全天静默
func DefaultConfig() *Config {
	return &Config{
		SaturdayStartHour: 3,
	}
}

// Policy 静默时段策略
// 模拟交易所周末停盘窗口，所有时间按 loc 计算日历日与星期
type Policy struct {
	cfg Config
	loc *time.Location
}

// New 创建策略，loc 为 nil 时使用本地时区
func New(cfg *Config, loc *time.Location) *Policy {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Policy{cfg: *cfg, loc: loc}
}

// ShouldSend 判断消息是否应当发送
func (p *Policy) ShouldSend(now, createdAt time.Time, force bool) bool {
	return p.Evaluate(now, createdAt, force).Allowed()
}

// Evaluate 按顺序判定:
//  1. 强制发送
//  2. 创建日与当前日不同
//  3. 周六 SaturdayStartHour 点之后
//  4. 周日全天
func (p *Policy) Evaluate(now, createdAt time.Time, force bool) Reason {
	if force {
		return ReasonForced
	}

	now = now.In(p.loc)
	createdAt = createdAt.In(p.loc)

	if !sameDate(now, createdAt) {
		return ReasonDateMismatch
	}

	if p.cfg.WeekendDisabled {
		return ReasonAllowed
	}

	switch now.Weekday() {
	case time.Saturday:
		if now.Hour() >= p.cfg.SaturdayStartHour {
			return ReasonSaturday
		}
	case time.Sunday:
		return ReasonSunday
	}
	return ReasonAllowed
}

// Location 策略使用的时区
func (p *Policy) Location() *time.Location {
	return p.loc
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

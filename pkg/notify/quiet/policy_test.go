package quiet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var shanghai = time.FixedZone("CST", 8*3600)

// 2025-10-13 为周一
func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.October, day, hour, minute, 0, 0, shanghai)
}

func TestPolicy_Weekdays(t *testing.T) {
	p := New(nil, shanghai)

	for day := 13; day <= 17; day++ {
		for _, hour := range []int{0, 3, 9, 15, 23} {
			now := at(day, hour, 30)
			assert.True(t, p.ShouldSend(now, now, false), now.String())
		}
	}
}

func TestPolicy_Weekend(t *testing.T) {
	p := New(nil, shanghai)

	tests := []struct {
		now    time.Time
		want   bool
		reason Reason
	}{
		{at(18, 0, 0), true, ReasonAllowed},   // 周六凌晨夜盘结束前
		{at(18, 2, 59), true, ReasonAllowed},  // 边界前一分钟
		{at(18, 3, 0), false, ReasonSaturday}, // 边界
		{at(18, 23, 59), false, ReasonSaturday},
		{at(19, 0, 0), false, ReasonSunday},
		{at(19, 12, 0), false, ReasonSunday},
		{at(19, 23, 59), false, ReasonSunday},
		{at(20, 0, 0), true, ReasonAllowed}, // 周一
	}

	for _, tt := range tests {
		t.Run(tt.now.Format(time.RFC3339), func(t *testing.T) {
			assert.Equal(t, tt.want, p.ShouldSend(tt.now, tt.now, false))
			assert.Equal(t, tt.reason, p.Evaluate(tt.now, tt.now, false))
		})
	}
}

func TestPolicy_ForceAlwaysSends(t *testing.T) {
	p := New(nil, shanghai)

	start := at(13, 0, 0)
	for h := 0; h < 7*24; h++ {
		now := start.Add(time.Duration(h) * time.Hour)
		assert.True(t, p.ShouldSend(now, now, true), now.String())
		// 跨日也不拦截
		assert.True(t, p.ShouldSend(now, now.Add(-48*time.Hour), true), now.String())
	}
}

func TestPolicy_DateMismatch(t *testing.T) {
	p := New(nil, shanghai)

	created := at(14, 23, 59)
	now := at(15, 0, 0)
	assert.False(t, p.ShouldSend(now, created, false))
	assert.Equal(t, ReasonDateMismatch, p.Evaluate(now, created, false))

	// 同一天内的延迟不拦截
	assert.True(t, p.ShouldSend(at(15, 18, 0), at(15, 9, 0), false))
}

func TestPolicy_DateUsesLocation(t *testing.T) {
	p := New(nil, shanghai)

	// UTC 下跨日，但在东八区是同一天
	created := time.Date(2025, time.October, 14, 23, 0, 0, 0, time.UTC)
	now := time.Date(2025, time.October, 15, 1, 0, 0, 0, time.UTC)
	assert.True(t, p.ShouldSend(now, created, false))
}

func TestPolicy_WeekendDisabled(t *testing.T) {
	p := New(&Config{WeekendDisabled: true, SaturdayStartHour: 3}, shanghai)

	sunday := at(19, 10, 0)
	assert.True(t, p.ShouldSend(sunday, sunday, false))
	assert.False(t, p.ShouldSend(sunday, at(18, 10, 0), false))
}

func TestPolicy_SaturdayStartHour(t *testing.T) {
	p := New(&Config{SaturdayStartHour: 15}, shanghai)

	assert.True(t, p.ShouldSend(at(18, 14, 0), at(18, 14, 0), false))
	assert.False(t, p.ShouldSend(at(18, 15, 0), at(18, 15, 0), false))
}

func TestNew_Defaults(t *testing.T) {
	p := New(nil, nil)
	assert.Equal(t, time.Local, p.Location())
	assert.Equal(t, 3, p.cfg.SaturdayStartHour)
}

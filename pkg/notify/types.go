package notify

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// DefaultMaxLength 告警正文最大字符数
const DefaultMaxLength = 1000

// Channel 通知渠道
type Channel string

const (
	ChannelFeishu   Channel = "feishu"
	ChannelDingTalk Channel = "dingtalk"
	ChannelAll      Channel = "all"
)

// Channels 所有可投递的具体渠道，顺序固定
var Channels = []Channel{ChannelFeishu, ChannelDingTalk}

// ParseChannel 解析渠道名，大小写不敏感，空串视为 all
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "feishu", "lark":
		return ChannelFeishu, nil
	case "dingtalk", "ding":
		return ChannelDingTalk, nil
	case "all", "":
		return ChannelAll, nil
	default:
		return "", errors.Wrapf(ErrUnknownChannel, "%q", s)
	}
}

// Expand 将 all 展开为具体渠道
func (c Channel) Expand() []Channel {
	if c == ChannelAll {
		out := make([]Channel, len(Channels))
		copy(out, Channels)
		return out
	}
	return []Channel{c}
}

func (c Channel) String() string {
	return string(c)
}

// UnmarshalText 让配置与 JSON 中的渠道名走 ParseChannel 归一化
func (c *Channel) UnmarshalText(text []byte) error {
	ch, err := ParseChannel(string(text))
	if err != nil {
		return err
	}
	*c = ch
	return nil
}

// Message 一条待发送的告警，构造后不可修改
type Message struct {
	Content    string
	RoutingKey string // 可为空
	Channel    Channel
	ForceSend  bool
	CreatedAt  time.Time
}

// HasRoutingKey 是否带路由键
func (m Message) HasRoutingKey() bool {
	return m.RoutingKey != ""
}

// Truncate 按字符截断，max <= 0 时不截断
func Truncate(content string, max int) string {
	if max <= 0 || utf8.RuneCountInString(content) <= max {
		return content
	}
	runes := []rune(content)
	return string(runes[:max])
}

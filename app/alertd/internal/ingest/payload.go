// Package ingest 定义 HTTP 与 Kafka 两个入口共用的告警请求格式
package ingest

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/atmquant/atmquant/pkg/notify"
	"github.com/atmquant/atmquant/pkg/notify/alert"
	"github.com/atmquant/atmquant/pkg/notify/dispatch"
)

// ErrInvalidPayload 请求体无法解析或缺少必填字段
var ErrInvalidPayload = errors.New("ingest: invalid payload")

// Sender 告警提交方，*alert.Manager 即满足
type Sender interface {
	Submit(req alert.Request) []*dispatch.Handle
}

// Payload 告警请求体
type Payload struct {
	Content   string `json:"content" binding:"required"`
	Symbol    string `json:"symbol"`
	Channel   string `json:"channel"`
	Level     string `json:"level"`
	ForceSend bool   `json:"force_send"`
}

// ToRequest 转换为 alert.Request，channel 为空表示全部渠道
func (p Payload) ToRequest() (alert.Request, error) {
	if strings.TrimSpace(p.Content) == "" {
		return alert.Request{}, errors.Wrap(ErrInvalidPayload, "content is required")
	}
	ch, err := notify.ParseChannel(p.Channel)
	if err != nil {
		return alert.Request{}, errors.Mark(err, ErrInvalidPayload)
	}
	return alert.Request{
		Content:   p.Content,
		Symbol:    p.Symbol,
		Channel:   ch,
		Level:     alert.Level(strings.ToLower(strings.TrimSpace(p.Level))),
		ForceSend: p.ForceSend,
	}, nil
}

// Decode 解析 JSON 请求体
func Decode(data []byte) (alert.Request, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return alert.Request{}, errors.Mark(errors.Wrap(err, "decode alert payload"), ErrInvalidPayload)
	}
	return p.ToRequest()
}

// TaskIDs 提取句柄的任务 ID，用于回执
func TaskIDs(handles []*dispatch.Handle) []string {
	ids := make([]string, 0, len(handles))
	for _, h := range handles {
		ids = append(ids, h.TaskID())
	}
	return ids
}

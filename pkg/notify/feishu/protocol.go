package feishu

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/atmquant/atmquant/pkg/notify"
)

var _ notify.Protocol = (*Protocol)(nil)

// Protocol 飞书自定义机器人协议
type Protocol struct{}

// NewProtocol 创建飞书协议
func NewProtocol() *Protocol {
	return &Protocol{}
}

func (p *Protocol) Channel() notify.Channel {
	return notify.ChannelFeishu
}

// BuildRequest 签名并组装文本消息，时间戳精确到秒
func (p *Protocol) BuildRequest(webhookURL, secret, content string, now time.Time) (*notify.SignedRequest, error) {
	if webhookURL == "" || secret == "" {
		return nil, notify.ErrUnconfigured
	}

	timestamp := now.Unix()
	sign := Sign(timestamp, secret)

	body, err := json.Marshal(textMessage{
		Timestamp: timestamp,
		Sign:      sign,
		MsgType:   "text",
		Content:   textContent{Text: content},
	})
	if err != nil {
		return nil, errors.Wrap(err, "feishu: marshal message")
	}

	return &notify.SignedRequest{
		Channel:   notify.ChannelFeishu,
		URL:       webhookURL,
		Body:      body,
		Timestamp: timestamp,
		Sign:      sign,
	}, nil
}

// CheckResponse 仅当 msg == "success" 时视为成功
func (p *Protocol) CheckResponse(body []byte) error {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return notify.ProtocolError(errors.Wrap(err, "feishu: invalid response"))
	}

	if resp.Msg != "success" {
		msg, code := resp.Msg, resp.Code
		if msg == "" {
			msg, code = resp.StatusMessage, resp.StatusCode
		}
		return notify.ProtocolError(errors.Newf("feishu: api error: %s (code=%d)", msg, code))
	}
	return nil
}

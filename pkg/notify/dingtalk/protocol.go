package dingtalk

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/atmquant/atmquant/pkg/notify"
)

var _ notify.Protocol = (*Protocol)(nil)

// Protocol 钉钉自定义机器人协议
type Protocol struct{}

func NewProtocol() *Protocol {
	return &Protocol{}
}

func (p *Protocol) Channel() notify.Channel {
	return notify.ChannelDingTalk
}

type textMessage struct {
	MsgType string      `json:"msgtype"`
	Text    textContent `json:"text"`
}

type textContent struct {
	Content string `json:"content"`
}

type response struct {
	ErrCode *int   `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// BuildRequest 毫秒时间戳与签名追加到 URL 查询参数，签名经过 URL 编码
func (p *Protocol) BuildRequest(webhookURL, secret, content string, now time.Time) (*notify.SignedRequest, error) {
	if webhookURL == "" || secret == "" {
		return nil, notify.ErrUnconfigured
	}

	timestamp := now.UnixMilli()
	sign := Sign(timestamp, secret)

	body, err := json.Marshal(textMessage{
		MsgType: "text",
		Text:    textContent{Content: content},
	})
	if err != nil {
		return nil, errors.Wrap(err, "dingtalk: marshal message")
	}

	return &notify.SignedRequest{
		Channel:   notify.ChannelDingTalk,
		URL:       SignedURL(webhookURL, timestamp, sign),
		Body:      body,
		Timestamp: timestamp,
		Sign:      sign,
	}, nil
}

// SignedURL 拼接 timestamp 与 sign 查询参数
// 钉钉地址通常已带 access_token，因此默认用 & 连接
func SignedURL(webhookURL string, timestampMillis int64, sign string) string {
	sep := "&"
	if !strings.Contains(webhookURL, "?") {
		sep = "?"
	}
	return webhookURL + sep + "timestamp=" + strconv.FormatInt(timestampMillis, 10) + "&sign=" + url.QueryEscape(sign)
}

// CheckResponse 仅当 errcode == 0 时视为成功，缺少 errcode 字段视为失败
func (p *Protocol) CheckResponse(body []byte) error {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return notify.ProtocolError(errors.Wrap(err, "dingtalk: invalid response"))
	}

	if resp.ErrCode == nil {
		return notify.ProtocolError(errors.New("dingtalk: response missing errcode"))
	}
	if *resp.ErrCode != 0 {
		return notify.ProtocolError(errors.Newf("dingtalk: api error: %s (errcode=%d)", resp.ErrMsg, *resp.ErrCode))
	}
	return nil
}

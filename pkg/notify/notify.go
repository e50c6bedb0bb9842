package notify

import (
	"net/url"
	"strings"
	"time"
)

// ContentTypeJSON 两个平台统一使用的请求头
const ContentTypeJSON = "application/json; charset=utf-8"

// SignedRequest 签名完成的 webhook 请求
// 重试时原样复用，不重新计算时间戳与签名
type SignedRequest struct {
	Channel   Channel
	URL       string
	Body      []byte
	Timestamp int64
	Sign      string
}

// Protocol 渠道协议：负责签名、组包与响应判定
type Protocol interface {
	Channel() Channel

	// BuildRequest 使用 now 作为签名时间戳构造请求
	BuildRequest(webhookURL, secret, content string, now time.Time) (*SignedRequest, error)

	// CheckResponse 解析响应体，失败时返回标记为 ErrProtocol 的错误
	CheckResponse(body []byte) error
}

// RedactURL 去掉查询参数与路径末段，避免 access_token 或 hook id 落入日志
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<invalid-url>"
	}

	path := u.Path
	if i := strings.LastIndex(path, "/"); i >= 0 && i < len(path)-1 {
		path = path[:i+1] + "***"
	}
	return u.Scheme + "://" + u.Host + path
}

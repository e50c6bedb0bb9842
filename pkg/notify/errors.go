package notify

import "github.com/cockroachdb/errors"

var (
	// ErrUnconfigured 渠道与路由键都解析不出可用的 webhook 地址或密钥
	ErrUnconfigured = errors.New("notify: channel unconfigured")

	// ErrSuppressed 被静默时段策略拦截，不视为失败
	ErrSuppressed = errors.New("notify: suppressed by quiet hours")

	// ErrTransport 网络错误、超时或非 2xx 响应
	ErrTransport = errors.New("notify: transport error")

	// ErrProtocol 响应 JSON 无法解析或业务码表示失败
	ErrProtocol = errors.New("notify: protocol error")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("notify: invalid config")

	// ErrUnknownChannel 未知渠道
	ErrUnknownChannel = errors.New("notify: unknown channel")
)

// Transport 将 err 标记为传输层错误，保留原始错误链
func Transport(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrTransport)
}

// ProtocolError 将 err 标记为协议层错误
func ProtocolError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrProtocol)
}

// Retryable 传输与协议错误共用同一重试策略
func Retryable(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrProtocol)
}

package prometheus

import "github.com/cockroachdb/errors"

var (
	ErrInvalidConfig = errors.New("prometheus: invalid config")
	// ErrMetricExists 同名指标已注册，同一进程重复构建指标集合时出现
	ErrMetricExists = errors.New("prometheus: metric already exists")
	ErrClientClosed = errors.New("prometheus: client closed")
	// ErrListen 独立指标端口监听失败
	ErrListen = errors.New("prometheus: listen failed")
)

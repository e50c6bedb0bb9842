package web

import "github.com/cockroachdb/errors"

var (
	ErrInvalidConfig        = errors.New("web: invalid config")
	ErrServerNotStarted     = errors.New("web: server not started")
	ErrServerAlreadyStarted = errors.New("web: server already started")
	// ErrListen 监听地址不可用，如端口被占用
	ErrListen = errors.New("web: listen failed")
)

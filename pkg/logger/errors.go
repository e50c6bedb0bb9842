package logger

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidOutputPath 开启文件输出但没有路径
	ErrInvalidOutputPath = errors.New("logger: output path is required when file output is enabled")

	// ErrNoOutputEnabled 控制台与文件输出都被关闭
	ErrNoOutputEnabled = errors.New("logger: at least one output (console or file) must be enabled")

	// ErrInvalidRotation 轮换参数无法解析
	ErrInvalidRotation = errors.New("logger: invalid rotation config")
)

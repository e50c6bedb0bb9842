package logger

import (
	"io"
	"time"

	"github.com/cockroachdb/errors"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewRotationWriter 按配置创建 lumberjack 或 rotatelogs writer
func NewRotationWriter(cfg *RotationConfig, outputPath string) (io.Writer, error) {
	switch cfg.Type {
	case RotationBySize:
		return newSizeRotationWriter(cfg, outputPath), nil
	case RotationByTime:
		return newTimeRotationWriter(cfg, outputPath)
	default:
		return newSizeRotationWriter(cfg, outputPath), nil
	}
}

// newSizeRotationWriter 创建按大小轮换的 writer
func newSizeRotationWriter(cfg *RotationConfig, outputPath string) io.Writer {
	return &lumberjack.Logger{
		Filename:   outputPath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}

// newTimeRotationWriter 创建按时间轮换的 writer
func newTimeRotationWriter(cfg *RotationConfig, outputPath string) (io.Writer, error) {
	rotationTime, err := parseRotationDuration(cfg.RotationTime, 24*time.Hour)
	if err != nil {
		return nil, err
	}
	maxAge, err := parseRotationDuration(cfg.MaxAgeTime, 30*24*time.Hour)
	if err != nil {
		return nil, err
	}

	suffix := cfg.RotationPattern
	if suffix == "" {
		suffix = ".%Y%m%d"
	}

	opts := []rotatelogs.Option{
		rotatelogs.WithLinkName(outputPath),
		rotatelogs.WithRotationTime(rotationTime),
		rotatelogs.WithMaxAge(maxAge),
	}
	if cfg.Location != nil {
		opts = append(opts, rotatelogs.WithLocation(cfg.Location))
	}

	return rotatelogs.New(outputPath+suffix, opts...)
}

// parseRotationDuration 空字符串取默认值，写错的值直接报错，避免日志悄悄按默认周期轮换
func parseRotationDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.Wrapf(ErrInvalidRotation, "duration %q", s)
	}
	return d, nil
}

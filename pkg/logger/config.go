package logger

import "time"

// Level 日志等级
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Format 日志格式
type Format string

const (
	JSONFormat    Format = "json"
	ConsoleFormat Format = "console"
)

// RotationType 轮换类型
type RotationType string

const (
	RotationBySize RotationType = "size"
	RotationByTime RotationType = "time"
)

// Config 日志配置
type Config struct {
	Level  Level  `mapstructure:"level"`  // 日志等级
	Format Format `mapstructure:"format"` // 输出格式 (json/console)

	// 输出配置
	DisableConsole bool   `mapstructure:"disable_console"` // 关闭控制台输出
	EnableFile     bool   `mapstructure:"enable_file"`     // 启用文件输出
	OutputPath     string `mapstructure:"output_path"`     // 日志文件路径

	TimeFormat string `mapstructure:"time_format"` // 时间格式 (默认: 2006-01-02 15:04:05)

	Rotation RotationConfig `mapstructure:"rotation"`

	// 堆栈跟踪
	EnableStacktrace bool  `mapstructure:"enable_stacktrace"`
	StacktraceLevel  Level `mapstructure:"stacktrace_level"`

	// 开发模式 (彩色等级输出)
	Development bool `mapstructure:"development"`

	// 需要脱敏的字段名，例如 secret / sign
	SensitiveKeys []string `mapstructure:"sensitive_keys"`

	GlobalFields map[string]any `mapstructure:"global_fields"`

	// ContextExtractor 从 context 中提取字段，只能通过代码设置
	ContextExtractor ContextFieldExtractor `mapstructure:"-"`
}

// RotationConfig 轮换配置
type RotationConfig struct {
	Type RotationType `mapstructure:"type"` // 轮换类型: size 或 time

	// 按大小轮换 (lumberjack)
	MaxSize    int  `mapstructure:"max_size"`    // 单文件最大大小 (MB)
	MaxBackups int  `mapstructure:"max_backups"` // 保留的旧文件数量
	MaxAge     int  `mapstructure:"max_age"`     // 保留天数
	Compress   bool `mapstructure:"compress"`    // 是否压缩旧文件

	// 按时间轮换 (file-rotatelogs)
	RotationTime    string `mapstructure:"rotation_time"`    // 轮换间隔: 1h, 24h
	MaxAgeTime      string `mapstructure:"max_age_time"`     // 保留时长: 720h (30天)
	RotationPattern string `mapstructure:"rotation_pattern"` // 文件名时间格式: .%Y%m%d

	// Location 按时间轮换时使用的时区，为空则使用本地时区
	Location *time.Location `mapstructure:"-"`
}

// DefaultConfig 默认配置：info 级别，仅控制台输出
func DefaultConfig() *Config {
	return &Config{
		Level:      InfoLevel,
		Format:     ConsoleFormat,
		TimeFormat: "2006-01-02 15:04:05",
		Rotation: RotationConfig{
			Type:            RotationBySize,
			MaxSize:         100,
			MaxBackups:      5,
			MaxAge:          30,
			Compress:        true,
			RotationTime:    "24h",
			MaxAgeTime:      "720h",
			RotationPattern: ".%Y%m%d",
		},
		EnableStacktrace: true,
		StacktraceLevel:  ErrorLevel,
		SensitiveKeys:    []string{"secret", "sign", "token"},
		GlobalFields:     make(map[string]any),
		ContextExtractor: DefaultContextExtractor,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.EnableFile && c.OutputPath == "" {
		return ErrInvalidOutputPath
	}
	if c.DisableConsole && !c.EnableFile {
		return ErrNoOutputEnabled
	}
	return nil
}

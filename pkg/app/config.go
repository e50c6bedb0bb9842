package app

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/atmquant/atmquant/pkg/config"
)

// EnvPrefix 环境变量前缀，ATMQUANT_ALERT_MAX_LENGTH 对应 alert.max_length
const EnvPrefix = "ATMQUANT"

var (
	configPath string
	logPath    string
)

// LoadConfig 从命令行参数加载配置，返回的 Manager 可用于监听配置文件变更
// 优先级：1. 命令行显式参数 > 2. 环境变量 > 3. 配置文件 > 4. 默认值
func LoadConfig(target any, opts ...config.Option) (config.Manager, error) {
	return LoadConfigArgs(os.Args[1:], target, opts...)
}

// LoadConfigArgs 与 LoadConfig 相同，但使用给定的参数列表
func LoadConfigArgs(args []string, target any, opts ...config.Option) (config.Manager, error) {
	execDir, err := GetExecDir()
	if err != nil {
		return nil, errors.Wrap(err, "get executable directory")
	}

	defaultConfig := filepath.Join(execDir, "config.yaml")
	defaultLog := filepath.Join(execDir, "logs", "app.log")

	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.StringVarP(&configPath, "config", "c", defaultConfig, "path to config file")
	fs.StringVar(&logPath, "log.path", defaultLog, "output path for logs")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()

	// Flag 显式指定 > 环境变量 ATMQUANT_CONFIG > 默认路径
	finalConfigPath := configPath
	if !fs.Changed("config") {
		if envConfig := os.Getenv(EnvPrefix + "_CONFIG"); envConfig != "" {
			finalConfigPath = envConfig
		}
	}

	if _, err := os.Stat(finalConfigPath); os.IsNotExist(err) {
		return nil, errors.Wrapf(config.ErrConfigFileNotFound, "config file not found at %s", finalConfigPath)
	}
	configPath = finalConfigPath

	v.SetDefault("log.output_path", defaultLog)

	if fs.Changed("log.path") {
		v.Set("log.output_path", logPath)
	}

	base := []config.Option{config.WithViper(v), config.WithEnvPrefix(EnvPrefix)}
	mgr := config.NewManager(append(base, opts...)...)

	if err := mgr.LoadFile(configPath); err != nil {
		return nil, err
	}

	if err := mgr.Unmarshal(target); err != nil {
		return nil, err
	}

	logPath = v.GetString("log.output_path")
	if v.GetBool("log.enable_file") {
		if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
			return nil, errors.Wrap(err, "create log directory")
		}
	}

	return mgr, nil
}

// GetExecDir 获取可执行文件所在目录（处理符号链接）
func GetExecDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	realPath, err := filepath.EvalSymlinks(execPath)
	if err != nil {
		return filepath.Dir(execPath), nil
	}
	return filepath.Dir(realPath), nil
}

// GetConfigPath 返回最终使用的配置文件路径
func GetConfigPath() string {
	return configPath
}

func GetLogPath() string {
	return logPath
}

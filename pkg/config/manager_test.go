package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type managerTestConfig struct {
	Alert struct {
		MaxLength int `mapstructure:"max_length"`
		Feishu    struct {
			WebhookURL string            `mapstructure:"webhook_url"`
			Secret     string            `mapstructure:"secret"`
			Routes     map[string]string `mapstructure:"symbol_webhooks"`
		} `mapstructure:"feishu"`
		Dispatcher struct {
			RetryDelay time.Duration `mapstructure:"retry_delay"`
		} `mapstructure:"dispatcher"`
	} `mapstructure:"alert"`
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const managerTestYAML = `
alert:
  max_length: 1000
  feishu:
    webhook_url: "https://open.feishu.cn/open-apis/bot/v2/hook/default"
    secret: "s1"
    symbol_webhooks:
      rb: "https://open.feishu.cn/open-apis/bot/v2/hook/rb"
  dispatcher:
    retry_delay: 5s
`

// TestManager_LoadAndUnmarshal 测试加载 YAML 并解析
func TestManager_LoadAndUnmarshal(t *testing.T) {
	mgr := NewManager()
	require.NoError(t, mgr.LoadFile(writeConfigFile(t, managerTestYAML)))

	var cfg managerTestConfig
	require.NoError(t, mgr.Unmarshal(&cfg))

	assert.Equal(t, 1000, cfg.Alert.MaxLength)
	assert.Equal(t, "s1", cfg.Alert.Feishu.Secret)
	assert.Equal(t, "https://open.feishu.cn/open-apis/bot/v2/hook/rb", cfg.Alert.Feishu.Routes["rb"])
	assert.Equal(t, 5*time.Second, cfg.Alert.Dispatcher.RetryDelay)
	assert.True(t, mgr.IsSet("alert.feishu.secret"))
}

// TestManager_UnmarshalKey 测试按 key 解析
func TestManager_UnmarshalKey(t *testing.T) {
	mgr := NewManager()
	require.NoError(t, mgr.LoadFile(writeConfigFile(t, managerTestYAML)))

	var maxLength int
	require.NoError(t, mgr.UnmarshalKey("alert.max_length", &maxLength))
	assert.Equal(t, 1000, maxLength)
}

// TestManager_EnvOverride 测试环境变量覆盖
func TestManager_EnvOverride(t *testing.T) {
	t.Setenv("ATMQUANT_ALERT_FEISHU_SECRET", "from-env")

	mgr := NewManager()
	mgr.BindEnv("ATMQUANT")
	require.NoError(t, mgr.LoadFile(writeConfigFile(t, managerTestYAML)))

	assert.Equal(t, "from-env", mgr.GetString("alert.feishu.secret"))
}

// TestManager_WithEnvPrefix 选项方式开启环境变量
func TestManager_WithEnvPrefix(t *testing.T) {
	t.Setenv("ATMQUANT_ALERT_MAX_LENGTH", "200")

	mgr := NewManager(WithEnvPrefix("ATMQUANT"))
	require.NoError(t, mgr.LoadFile(writeConfigFile(t, managerTestYAML)))

	var maxLength int
	require.NoError(t, mgr.UnmarshalKey("alert.max_length", &maxLength))
	assert.Equal(t, 200, maxLength)
}

// TestManager_LoadMissingFile 测试文件不存在
func TestManager_LoadMissingFile(t *testing.T) {
	mgr := NewManager()
	err := mgr.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

type testLevel string

func (l *testLevel) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	if s != "warning" && s != "error" {
		return errors.Newf("unknown level %q", text)
	}
	*l = testLevel(s)
	return nil
}

// TestManager_TextUnmarshalerHook 实现 TextUnmarshaler 的配置类型在解析时归一化与校验
func TestManager_TextUnmarshalerHook(t *testing.T) {
	type levels struct {
		Levels []testLevel `mapstructure:"levels"`
	}

	mgr := NewManager()
	require.NoError(t, mgr.LoadFile(writeConfigFile(t, "alert:\n  levels: [ERROR, warning]\n")))
	var got levels
	require.NoError(t, mgr.UnmarshalKey("alert", &got))
	assert.Equal(t, []testLevel{"error", "warning"}, got.Levels)

	mgr = NewManager()
	require.NoError(t, mgr.LoadFile(writeConfigFile(t, "alert:\n  levels: [debug]\n")))
	assert.Error(t, mgr.UnmarshalKey("alert", &got))
}

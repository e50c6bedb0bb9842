package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmquant/atmquant/pkg/config"
)

type testConfig struct {
	Log struct {
		Level      string `mapstructure:"level"`
		OutputPath string `mapstructure:"output_path"`
	} `mapstructure:"log"`
	Alert struct {
		MaxLength int `mapstructure:"max_length"`
	} `mapstructure:"alert"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const sampleYAML = `
log:
  level: info
alert:
  max_length: 1000
`

func TestLoadConfigArgsFlag(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	var cfg testConfig
	mgr, err := LoadConfigArgs([]string{"-c", path}, &cfg)
	require.NoError(t, err)
	require.NotNil(t, mgr)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 1000, cfg.Alert.MaxLength)
	assert.Equal(t, path, GetConfigPath())
	assert.Equal(t, "1000", mgr.GetString("alert.max_length"))
}

func TestLoadConfigArgsEnvPath(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("ATMQUANT_CONFIG", path)

	var cfg testConfig
	_, err := LoadConfigArgs(nil, &cfg)
	require.NoError(t, err)
	assert.Equal(t, path, GetConfigPath())
}

func TestLoadConfigArgsEnvOverride(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("ATMQUANT_ALERT_MAX_LENGTH", "200")

	var cfg testConfig
	_, err := LoadConfigArgs([]string{"--config", path}, &cfg)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Alert.MaxLength)
}

func TestLoadConfigArgsLogPathFlag(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	logFile := filepath.Join(t.TempDir(), "alertd.log")

	var cfg testConfig
	_, err := LoadConfigArgs([]string{"-c", path, "--log.path", logFile}, &cfg)
	require.NoError(t, err)
	assert.Equal(t, logFile, cfg.Log.OutputPath)
	assert.Equal(t, logFile, GetLogPath())
}

func TestLoadConfigArgsMissingFile(t *testing.T) {
	var cfg testConfig
	_, err := LoadConfigArgs([]string{"-c", filepath.Join(t.TempDir(), "nope.yaml")}, &cfg)
	assert.ErrorIs(t, err, config.ErrConfigFileNotFound)
	assert.Contains(t, err.Error(), "nope.yaml")
}

func TestLoadConfigArgsUnknownFlag(t *testing.T) {
	var cfg testConfig
	_, err := LoadConfigArgs([]string{"--nope"}, &cfg)
	require.Error(t, err)
}

func TestVersionInfo(t *testing.T) {
	info := GetInfo()
	assert.NotEmpty(t, info.AppName)
	assert.Contains(t, info.String(), info.Version)
}

func TestVersionInfoFields(t *testing.T) {
	fields := GetInfo().Fields()
	require.Len(t, fields, 12)
	assert.Equal(t, "name", fields[0])
	assert.Equal(t, AppName, fields[1])
}

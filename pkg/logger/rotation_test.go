package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/natefinch/lumberjack.v2"
)

func TestNewRotationWriter_Size(t *testing.T) {
	cfg := DefaultConfig().Rotation
	w, err := NewRotationWriter(&cfg, filepath.Join(t.TempDir(), "a.log"))
	require.NoError(t, err)

	lj, ok := w.(*lumberjack.Logger)
	require.True(t, ok)
	assert.Equal(t, 100, lj.MaxSize)
	assert.Equal(t, 30, lj.MaxAge)
}

func TestNewRotationWriter_Time(t *testing.T) {
	cfg := DefaultConfig().Rotation
	cfg.Type = RotationByTime
	cfg.RotationTime = ""

	path := filepath.Join(t.TempDir(), "b.log")
	w, err := NewRotationWriter(&cfg, path)
	require.NoError(t, err)

	_, err = w.Write([]byte("line\n"))
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestNewRotationWriter_InvalidDuration(t *testing.T) {
	cfg := DefaultConfig().Rotation
	cfg.Type = RotationByTime
	cfg.MaxAgeTime = "30 days"

	_, err := NewRotationWriter(&cfg, filepath.Join(t.TempDir(), "c.log"))
	assert.ErrorIs(t, err, ErrInvalidRotation)
}

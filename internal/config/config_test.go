package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/paramtree/internal/tensor"
)

func TestResolveDevice(t *testing.T) {
	assert.Equal(t, tensor.Metal, resolveDevice("darwin", "arm64"))
	assert.Equal(t, tensor.CPU, resolveDevice("darwin", "amd64"))
	assert.Equal(t, tensor.CPU, resolveDevice("linux", "arm64"))
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PARAMTREE_DEVICE", "cpu")
	t.Setenv("PARAMTREE_LOG_LEVEL", "debug")
	t.Setenv("PARAMTREE_LOG_FORMAT", "\"json\"")
	t.Setenv("PARAMTREE_METRICS", "false")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, tensor.CPU, cfg.Device)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.False(t, cfg.Metrics)
}

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("PARAMTREE_DEVICE", "auto")
	t.Setenv("PARAMTREE_LOG_LEVEL", "")
	t.Setenv("PARAMTREE_LOG_FORMAT", "")
	t.Setenv("PARAMTREE_METRICS", "not-a-bool")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ResolveDevice(), cfg.Device)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.True(t, cfg.Metrics)
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Setenv("PARAMTREE_DEVICE", "tpu")
	_, err := FromEnv()
	require.Error(t, err)

	t.Setenv("PARAMTREE_DEVICE", "cpu")
	t.Setenv("PARAMTREE_LOG_FORMAT", "xml")
	_, err = FromEnv()
	require.Error(t, err)
}

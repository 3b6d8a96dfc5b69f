// Package config resolves paramtree runtime configuration from the environment.
//
// The execution device is resolved once, when the configuration is built, and then
// carried explicitly into model construction and weight loading:
//   - Device: PARAMTREE_DEVICE (auto, cpu, cuda, metal; default auto)
//   - LogLevel: PARAMTREE_LOG_LEVEL (default info)
//   - LogFormat: PARAMTREE_LOG_FORMAT (console or json; default console)
//   - Metrics: PARAMTREE_METRICS (bool; default true)
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/born-ml/paramtree/internal/tensor"
)

// Config carries resolved runtime settings.
type Config struct {
	Device    tensor.Device
	LogLevel  string
	LogFormat string
	Metrics   bool
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Device:    ResolveDevice(),
		LogLevel:  "info",
		LogFormat: "console",
		Metrics:   true,
	}
}

// FromEnv builds a Config from PARAMTREE_* environment variables.
func FromEnv() (Config, error) {
	cfg := Default()

	if s := Var("PARAMTREE_DEVICE"); s != "" && !strings.EqualFold(s, "auto") {
		d, err := tensor.ParseDevice(s)
		if err != nil {
			return cfg, fmt.Errorf("PARAMTREE_DEVICE: %w", err)
		}
		cfg.Device = d
	}
	if s := Var("PARAMTREE_LOG_LEVEL"); s != "" {
		cfg.LogLevel = s
	}
	if s := Var("PARAMTREE_LOG_FORMAT"); s != "" {
		cfg.LogFormat = s
	}
	cfg.Metrics = Bool("PARAMTREE_METRICS", cfg.Metrics)

	return cfg, cfg.Validate()
}

// Validate checks the configuration for unsupported values.
func (c Config) Validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %q (must be console or json)", c.LogFormat)
	}
	switch c.Device {
	case tensor.CPU, tensor.CUDA, tensor.Metal:
	default:
		return fmt.Errorf("invalid device: %d", int(c.Device))
	}
	return nil
}

// ResolveDevice picks the default execution target: Metal on Apple silicon,
// CPU everywhere else.
func ResolveDevice() tensor.Device {
	return resolveDevice(runtime.GOOS, runtime.GOARCH)
}

func resolveDevice(goos, goarch string) tensor.Device {
	if goos == "darwin" && goarch == "arm64" {
		return tensor.Metal
	}
	return tensor.CPU
}

// Var returns an environment variable stripped of leading and trailing quotes or spaces.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// Bool parses a boolean environment variable, returning def when unset or invalid.
func Bool(key string, def bool) bool {
	s := Var(key)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

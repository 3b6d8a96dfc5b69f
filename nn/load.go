// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/paramtree/internal/config"
	"github.com/born-ml/paramtree/internal/loader"
	"github.com/born-ml/paramtree/internal/nn"
)

// Config selects the device, logging and metrics for weight loading.
type Config = config.Config

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return config.Default()
}

// ConfigFromEnv reads PARAMTREE_* environment variables over the defaults.
func ConfigFromEnv() (Config, error) {
	return config.FromEnv()
}

// LoadOption configures LoadWeights.
type LoadOption = nn.LoadOption

// WithNameMapper renames file tensors through mapper before merging.
func WithNameMapper(mapper loader.NameMapper) LoadOption {
	return nn.WithNameMapper(mapper)
}

// WithDetectedMapper picks the name mapper from the file's format and architecture.
func WithDetectedMapper() LoadOption {
	return nn.WithDetectedMapper()
}

// LoadWeights reads a .safetensors or .gguf file and merges it into the tree.
//
// Example:
//
//	report, err := nn.LoadWeights(model, "model.gguf", nn.DefaultConfig(), nn.WithDetectedMapper())
func LoadWeights(c Component, path string, cfg Config, opts ...LoadOption) (*UpdateReport, error) {
	return nn.LoadWeights(c, path, cfg, opts...)
}

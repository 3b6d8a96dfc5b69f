// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/paramtree/internal/nn"
	"github.com/born-ml/paramtree/internal/tensor"
)

// Phi3Config holds the architecture hyperparameters read from config.json.
type Phi3Config = nn.Phi3Config

// Phi3Mini4K returns the Phi-3-mini-4k-instruct configuration.
func Phi3Mini4K() Phi3Config {
	return nn.Phi3Mini4K()
}

// LoadPhi3Config reads a Hugging Face config.json.
func LoadPhi3Config(path string) (Phi3Config, error) {
	return nn.LoadPhi3Config(path)
}

// Attention holds the fused qkv_proj, o_proj and rope of one block.
type Attention = nn.Attention

// TransformerBlock is one decoder layer.
type TransformerBlock = nn.TransformerBlock

// Phi3Model is the decoder stack: embed_tokens, layers and norm.
type Phi3Model = nn.Phi3Model

// Phi3ForCausalLM wraps Phi3Model as "model" with an lm_head.
type Phi3ForCausalLM = nn.Phi3ForCausalLM

// NewPhi3Model builds the decoder stack.
func NewPhi3Model(cfg Phi3Config, device tensor.Device) (*Phi3Model, error) {
	return nn.NewPhi3Model(cfg, device)
}

// NewPhi3ForCausalLM builds a tree whose paths match Hugging Face Phi-3
// checkpoints, e.g. model.layers.0.self_attn.qkv_proj.weight.
//
// Example:
//
//	lm, err := nn.NewPhi3ForCausalLM(nn.Phi3Mini4K(), tensor.CPU)
func NewPhi3ForCausalLM(cfg Phi3Config, device tensor.Device) (*Phi3ForCausalLM, error) {
	return nn.NewPhi3ForCausalLM(cfg, device)
}

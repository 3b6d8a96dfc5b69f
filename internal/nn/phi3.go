package nn

import (
	"fmt"

	"github.com/born-ml/paramtree/internal/logger"
	"github.com/born-ml/paramtree/internal/tensor"
)

// Phi3Model is the Phi-3 decoder stack: embed_tokens, layers.0 … layers.{n-1}
// and the final norm.
type Phi3Model struct {
	*Module
	cfg    Phi3Config
	embed  *Embedding
	layers []*TransformerBlock
	norm   *RMSNorm
}

// NewPhi3Model builds the decoder stack for cfg.
func NewPhi3Model(cfg Phi3Config, device tensor.Device) (*Phi3Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Phi-3 config: %w", err)
	}

	m := &Phi3Model{
		Module: NewModule(),
		cfg:    cfg,
		embed:  NewEmbedding(cfg.VocabSize, cfg.HiddenSize, device),
		layers: make([]*TransformerBlock, cfg.NumHiddenLayers),
		norm:   NewRMSNorm(cfg.HiddenSize, cfg.RMSNormEps, device),
	}
	for i := range m.layers {
		m.layers[i] = NewTransformerBlock(cfg, device)
	}

	if err := m.RegisterModule("embed_tokens", m.embed); err != nil {
		return nil, err
	}
	if err := RegisterList(m.Module, "layers", m.layers); err != nil {
		return nil, err
	}
	if err := m.RegisterModule("norm", m.norm); err != nil {
		return nil, err
	}
	return m, nil
}

// Embed looks up token ids.
func (m *Phi3Model) Embed(ids *tensor.RawTensor) (*tensor.RawTensor, error) {
	return m.embed.Forward(ids)
}

// Layers returns the decoder layers in order.
func (m *Phi3Model) Layers() []*TransformerBlock {
	return m.layers
}

// Norm returns the final norm.
func (m *Phi3Model) Norm() *RMSNorm {
	return m.norm
}

// Config returns the configuration the model was built from.
func (m *Phi3Model) Config() Phi3Config {
	return m.cfg
}

// Phi3ForCausalLM wraps Phi3Model under "model" with the output projection
// "lm_head" [hidden → vocab], matching Hugging Face checkpoint names.
type Phi3ForCausalLM struct {
	*Module
	model  *Phi3Model
	lmHead *Linear
}

// NewPhi3ForCausalLM builds the full causal LM for cfg.
func NewPhi3ForCausalLM(cfg Phi3Config, device tensor.Device) (*Phi3ForCausalLM, error) {
	model, err := NewPhi3Model(cfg, device)
	if err != nil {
		return nil, err
	}

	lm := &Phi3ForCausalLM{
		Module: NewModule(),
		model:  model,
		lmHead: NewLinear(cfg.HiddenSize, cfg.VocabSize, false, device),
	}
	if err := lm.RegisterModule("model", lm.model); err != nil {
		return nil, err
	}
	if err := lm.RegisterModule("lm_head", lm.lmHead); err != nil {
		return nil, err
	}

	logger.Log.Debug("built Phi-3 model",
		"layers", cfg.NumHiddenLayers,
		"hidden", cfg.HiddenSize,
		"tensors", lm.NumTensors(),
		"device", device.String())
	return lm, nil
}

// Model returns the decoder stack.
func (lm *Phi3ForCausalLM) Model() *Phi3Model {
	return lm.model
}

// LMHead returns the output projection.
func (lm *Phi3ForCausalLM) LMHead() *Linear {
	return lm.lmHead
}

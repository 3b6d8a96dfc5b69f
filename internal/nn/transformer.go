package nn

import (
	"fmt"

	"github.com/born-ml/paramtree/internal/tensor"
)

// TransformerBlock is one Phi-3 decoder layer (pre-norm):
//
//	x → input_layernorm → self_attn → + → post_attention_layernorm → mlp → + → output
//
// Children are registered in the order self_attn, mlp, input_layernorm,
// post_attention_layernorm.
type TransformerBlock struct {
	*Module
	attn     *Attention
	mlp      *MLP
	attnNorm *RMSNorm
	ffnNorm  *RMSNorm
}

// NewTransformerBlock creates a decoder layer for cfg.
func NewTransformerBlock(cfg Phi3Config, device tensor.Device) *TransformerBlock {
	b := &TransformerBlock{
		Module:   NewModule(),
		attn:     NewAttention(cfg, device),
		mlp:      NewMLP(cfg.HiddenSize, cfg.IntermediateSize, device),
		attnNorm: NewRMSNorm(cfg.HiddenSize, cfg.RMSNormEps, device),
		ffnNorm:  NewRMSNorm(cfg.HiddenSize, cfg.RMSNormEps, device),
	}
	must(b.RegisterModule("self_attn", b.attn))
	must(b.RegisterModule("mlp", b.mlp))
	must(b.RegisterModule("input_layernorm", b.attnNorm))
	must(b.RegisterModule("post_attention_layernorm", b.ffnNorm))
	return b
}

// FeedForward applies the second residual branch: h + mlp(post_attention_layernorm(h)).
func (b *TransformerBlock) FeedForward(h *tensor.RawTensor) (*tensor.RawTensor, error) {
	normed, err := b.ffnNorm.Forward(h)
	if err != nil {
		return nil, err
	}
	r, err := b.mlp.Forward(normed)
	if err != nil {
		return nil, err
	}
	return addResidual(h, r)
}

func addResidual(x, r *tensor.RawTensor) (*tensor.RawTensor, error) {
	if !x.Shape().Equal(r.Shape()) {
		return nil, fmt.Errorf("residual: shape %v vs %v", x.Shape(), r.Shape())
	}
	out := x.Clone()
	dst, src := out.AsFloat32(), r.AsFloat32()
	for i := range dst {
		dst[i] += src[i]
	}
	return out, nil
}

// Attention returns the self-attention projections.
func (b *TransformerBlock) Attention() *Attention {
	return b.attn
}

// MLP returns the feed-forward block.
func (b *TransformerBlock) MLP() *MLP {
	return b.mlp
}

// InputNorm returns the norm applied before attention.
func (b *TransformerBlock) InputNorm() *RMSNorm {
	return b.attnNorm
}

// PostAttentionNorm returns the norm applied before the MLP.
func (b *TransformerBlock) PostAttentionNorm() *RMSNorm {
	return b.ffnNorm
}

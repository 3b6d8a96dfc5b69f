package nn

import (
	"github.com/born-ml/paramtree/internal/tensor"
)

// Attention holds the projections of Phi-3 self-attention: a fused qkv_proj
// [hidden → heads*head_dim + 2*kv_heads*head_dim], o_proj [heads*head_dim → hidden]
// and the rotary state under "rope".
type Attention struct {
	*Module
	numHeads   int
	numKVHeads int
	headDim    int
	qkv        *Linear
	out        *Linear
	rope       *RoPE
}

// NewAttention creates the attention projections for cfg.
func NewAttention(cfg Phi3Config, device tensor.Device) *Attention {
	headDim := cfg.HeadDim()
	opSize := cfg.NumAttentionHeads*headDim + 2*cfg.NumKeyValueHeads*headDim

	a := &Attention{
		Module:     NewModule(),
		numHeads:   cfg.NumAttentionHeads,
		numKVHeads: cfg.NumKeyValueHeads,
		headDim:    headDim,
		qkv:        NewLinear(cfg.HiddenSize, opSize, false, device),
		out:        NewLinear(cfg.NumAttentionHeads*headDim, cfg.HiddenSize, false, device),
		rope:       NewRoPE(headDim, cfg.RopeTheta, device),
	}
	must(a.RegisterModule("qkv_proj", a.qkv))
	must(a.RegisterModule("o_proj", a.out))
	must(a.RegisterModule("rope", a.rope))
	return a
}

// Project applies qkv_proj to x [..., hidden] and splits the result into
// queries [..., heads*head_dim], keys and values [..., kv_heads*head_dim].
func (a *Attention) Project(x *tensor.RawTensor) (q, k, v *tensor.RawTensor, err error) {
	qkv, err := a.qkv.Forward(x)
	if err != nil {
		return nil, nil, nil, err
	}

	kvWidth := a.numKVHeads * a.headDim
	parts, err := tensor.SplitLast(qkv, a.numHeads/a.numKVHeads+2)
	if err != nil {
		return nil, nil, nil, err
	}
	// parts are kvWidth wide: the first heads/kv_heads of them form the queries.
	nq := len(parts) - 2
	if nq == 1 {
		return parts[0], parts[1], parts[2], nil
	}
	q, err = concatLast(parts[:nq], kvWidth)
	if err != nil {
		return nil, nil, nil, err
	}
	return q, parts[nq], parts[nq+1], nil
}

// concatLast joins tensors of identical shape [..., width] along the last dimension.
func concatLast(parts []*tensor.RawTensor, width int) (*tensor.RawTensor, error) {
	shape := parts[0].Shape().Clone()
	shape[len(shape)-1] = width * len(parts)
	out, err := tensor.NewRaw(shape, tensor.Float32, parts[0].Device())
	if err != nil {
		return nil, err
	}

	dst := out.AsFloat32()
	rows := parts[0].NumElements() / width
	for r := 0; r < rows; r++ {
		for p, part := range parts {
			copy(dst[(r*len(parts)+p)*width:], part.AsFloat32()[r*width:(r+1)*width])
		}
	}
	return out, nil
}

// QKV returns the fused input projection.
func (a *Attention) QKV() *Linear {
	return a.qkv
}

// Out returns the output projection.
func (a *Attention) Out() *Linear {
	return a.out
}

// RoPE returns the rotary state.
func (a *Attention) RoPE() *RoPE {
	return a.rope
}

// NumHeads returns the number of query heads.
func (a *Attention) NumHeads() int {
	return a.numHeads
}

// NumKVHeads returns the number of key/value heads.
func (a *Attention) NumKVHeads() int {
	return a.numKVHeads
}

// HeadDim returns the per-head dimension.
func (a *Attention) HeadDim() int {
	return a.headDim
}

package nn

import (
	"fmt"

	"github.com/born-ml/paramtree/internal/tensor"
)

// RoPE holds the inverse rotary frequencies base^(-2i/dims) as buffer
// "inv_freq" [dims/2]. The buffer is loadable so checkpoints that ship scaled
// frequencies can override it.
type RoPE struct {
	*Module
	dims    int
	base    float64
	invFreq *Slot
}

// NewRoPE creates the rotary embedding state for a head dimension of dims.
func NewRoPE(dims int, base float64, device tensor.Device) *RoPE {
	r := &RoPE{Module: NewModule(), dims: dims, base: base}
	r.invFreq = mustSlot(r.RegisterBuffer("inv_freq", tensor.RoPEFrequencies(dims, base, device)))
	return r
}

// Angles returns the rotation angle table [seqLen, dims/2] for positions
// offset..offset+seqLen-1, computed from the current inv_freq buffer.
func (r *RoPE) Angles(offset, seqLen int) (*tensor.RawTensor, error) {
	if seqLen <= 0 || offset < 0 {
		return nil, fmt.Errorf("rope: invalid positions offset=%d len=%d", offset, seqLen)
	}
	freq := r.invFreq.Tensor()
	if freq.DType() != tensor.Float32 {
		return nil, fmt.Errorf("rope: inv_freq must be float32, got %s", freq.DType())
	}

	half := freq.NumElements()
	out := tensor.Zeros(tensor.Shape{seqLen, half}, freq.Device())
	f, dst := freq.AsFloat32(), out.AsFloat32()
	for p := 0; p < seqLen; p++ {
		pos := float32(offset + p)
		for i, w := range f {
			dst[p*half+i] = pos * w
		}
	}
	return out, nil
}

// InvFreq returns the frequency buffer slot.
func (r *RoPE) InvFreq() *Slot {
	return r.invFreq
}

// Dims returns the rotated dimension.
func (r *RoPE) Dims() int {
	return r.dims
}

// Base returns the frequency base.
func (r *RoPE) Base() float64 {
	return r.base
}

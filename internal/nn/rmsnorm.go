package nn

import (
	"fmt"

	"github.com/born-ml/paramtree/internal/tensor"
)

// RMSNorm applies Root Mean Square Normalization over the last dimension.
//
// Formula: Y = X / sqrt(mean(X^2) + eps) * weight
//
// The scale is registered as parameter "weight" [dims], initialized to ones.
type RMSNorm struct {
	*Module
	eps    float32
	weight *Slot
}

// NewRMSNorm creates an RMSNorm layer over a feature dimension of size dims.
func NewRMSNorm(dims int, eps float32, device tensor.Device) *RMSNorm {
	n := &RMSNorm{Module: NewModule(), eps: eps}
	n.weight = mustSlot(n.RegisterParameter("weight", tensor.Ones(tensor.Shape{dims}, device)))
	return n
}

// Forward normalizes x [..., dims].
func (n *RMSNorm) Forward(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	w := n.weight.Tensor()
	if x == nil || len(x.Shape()) == 0 || x.Shape().Last() != w.Shape()[0] {
		e := &ShapeContractError{Layer: layerName("RMSNorm", n.Module), Weight: w.Shape().Clone()}
		if x != nil {
			e.Input = x.Shape().Clone()
		}
		return nil, e
	}

	out, err := tensor.RMSNorm(x, w, n.eps)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", layerName("RMSNorm", n.Module), err)
	}
	return out, nil
}

// Weight returns the scale slot.
func (n *RMSNorm) Weight() *Slot {
	return n.weight
}

// Eps returns the numerical stability constant.
func (n *RMSNorm) Eps() float32 {
	return n.eps
}

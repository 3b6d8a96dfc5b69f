package nn

import (
	"github.com/born-ml/paramtree/internal/tensor"
)

// SiLU applies x * sigmoid(x). It owns no tensors.
type SiLU struct {
	*Module
}

// NewSiLU creates a SiLU activation layer.
func NewSiLU() *SiLU {
	return &SiLU{Module: NewModule()}
}

// Forward applies the activation.
func (s *SiLU) Forward(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return tensor.SiLU(x)
}

// ReLU applies max(x, 0). It owns no tensors.
type ReLU struct {
	*Module
}

// NewReLU creates a ReLU activation layer.
func NewReLU() *ReLU {
	return &ReLU{Module: NewModule()}
}

// Forward applies the activation.
func (r *ReLU) Forward(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return tensor.ReLU(x)
}

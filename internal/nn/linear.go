package nn

import (
	"fmt"

	"github.com/born-ml/paramtree/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W + b.
//
// The weight is stored as [in_features, out_features] and the optional bias as
// [out_features]. Both are registered as parameters "weight" and "bias".
//
// Example:
//
//	fc := nn.NewLinear(784, 100, true, tensor.CPU)
//	y, err := fc.Forward(x) // x: [32, 784] -> y: [32, 100]
type Linear struct {
	*Module
	inFeatures  int
	outFeatures int
	weight      *Slot
	bias        *Slot // nil when built without bias
}

// NewLinear creates a Linear layer with Xavier-initialized weight and zero bias.
func NewLinear(inFeatures, outFeatures int, withBias bool, device tensor.Device) *Linear {
	l := &Linear{
		Module:      NewModule(),
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
	}
	l.weight = mustSlot(l.RegisterParameter("weight",
		Xavier(inFeatures, outFeatures, tensor.Shape{inFeatures, outFeatures}, device)))
	if withBias {
		l.bias = mustSlot(l.RegisterParameter("bias", tensor.Zeros(tensor.Shape{outFeatures}, device)))
	}
	return l
}

// Forward computes x @ W (+ b). The trailing dimension of x must equal the first
// dimension of the weight currently stored, otherwise *ShapeContractError.
func (l *Linear) Forward(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	w := l.weight.Tensor()
	if x == nil || len(x.Shape()) == 0 || x.Shape().Last() != w.Shape()[0] {
		return nil, l.contractError(x)
	}

	out, err := tensor.MatMul(x, w)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", layerName("Linear", l.Module), err)
	}
	if l.bias != nil {
		if out, err = tensor.AddRow(out, l.bias.Tensor()); err != nil {
			return nil, fmt.Errorf("%s: %w", layerName("Linear", l.Module), err)
		}
	}
	return out, nil
}

func (l *Linear) contractError(x *tensor.RawTensor) error {
	e := &ShapeContractError{Layer: layerName("Linear", l.Module), Weight: l.weight.Shape().Clone()}
	if x != nil {
		e.Input = x.Shape().Clone()
	}
	return e
}

// Weight returns the weight slot.
func (l *Linear) Weight() *Slot {
	return l.weight
}

// Bias returns the bias slot, or nil if the layer has no bias.
func (l *Linear) Bias() *Slot {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}

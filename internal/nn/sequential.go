package nn

import (
	"fmt"
	"strconv"

	"github.com/born-ml/paramtree/internal/tensor"
)

// Sequential chains layers: each output becomes the next layer's input.
// Layers are registered as children "0", "1", ... so their tensors flatten to
// paths like "0.weight".
//
// Example:
//
//	model, err := nn.NewSequential(
//	    nn.NewLinear(784, 128, true, tensor.CPU),
//	    nn.NewReLU(),
//	    nn.NewLinear(128, 10, true, tensor.CPU),
//	)
type Sequential struct {
	*Module
	layers []Layer
}

// NewSequential creates a Sequential container owning layers. On failure no
// layer is left owned by the discarded container.
func NewSequential(layers ...Layer) (*Sequential, error) {
	s := &Sequential{Module: NewModule(), layers: layers}
	labels := make([]string, 0, len(layers))
	for i, l := range layers {
		label := strconv.Itoa(i)
		if err := s.RegisterModule(label, l); err != nil {
			s.detach(labels)
			return nil, fmt.Errorf("sequential layer %d: %w", i, err)
		}
		labels = append(labels, label)
	}
	return s, nil
}

// Forward applies every layer in order.
func (s *Sequential) Forward(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	out := x
	for i, l := range s.layers {
		var err error
		if out, err = l.Forward(out); err != nil {
			return nil, fmt.Errorf("sequential layer %d: %w", i, err)
		}
	}
	return out, nil
}

// Len returns the number of layers.
func (s *Sequential) Len() int {
	return len(s.layers)
}

// Layer returns the i-th layer.
func (s *Sequential) Layer(i int) Layer {
	return s.layers[i]
}

package nn

import (
	"fmt"

	"github.com/born-ml/paramtree/internal/tensor"
)

// Kind distinguishes parameters from buffers.
type Kind int

// Slot kinds.
const (
	KindParameter Kind = iota
	KindBuffer
)

// String returns "parameter" or "buffer".
func (k Kind) String() string {
	switch k {
	case KindParameter:
		return "parameter"
	case KindBuffer:
		return "buffer"
	default:
		return "unknown"
	}
}

// Slot is a stable handle to one named tensor owned by a Module.
//
// The module, the flattened state view and the layer that registered the tensor
// all hold the same *Slot. Replacing the tensor through any of them is observed
// by all the others, and the handle itself never moves.
type Slot struct {
	name   string
	kind   Kind
	tensor *tensor.RawTensor
}

// Name returns the local name the slot was registered under.
func (s *Slot) Name() string {
	return s.name
}

// Kind returns whether the slot holds a parameter or a buffer.
func (s *Slot) Kind() Kind {
	return s.kind
}

// Tensor returns the tensor currently stored in the slot.
func (s *Slot) Tensor() *tensor.RawTensor {
	return s.tensor
}

// Shape returns the shape of the stored tensor.
func (s *Slot) Shape() tensor.Shape {
	return s.tensor.Shape()
}

// Assign replaces the stored tensor. The new tensor must have the same shape.
func (s *Slot) Assign(t *tensor.RawTensor) error {
	if t == nil {
		return ErrNilTensor
	}
	if !s.tensor.Shape().Equal(t.Shape()) {
		return &ShapeMismatchWarning{ShapeMismatch{Name: s.name, Expected: s.Shape(), Got: t.Shape()}}
	}
	s.tensor = t
	return nil
}

// String returns a short description such as "parameter weight float32[4, 3]@CPU".
func (s *Slot) String() string {
	return fmt.Sprintf("%s %s %v", s.kind, s.name, s.tensor)
}

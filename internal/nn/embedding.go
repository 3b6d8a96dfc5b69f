package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/paramtree/internal/tensor"
)

// Embedding is a lookup table of numEmbeddings vectors of size dims, stored as
// parameter "weight" [numEmbeddings, dims].
type Embedding struct {
	*Module
	numEmbeddings int
	dims          int
	weight        *Slot
}

// NewEmbedding creates an Embedding initialized from N(0, 1/dims).
func NewEmbedding(numEmbeddings, dims int, device tensor.Device) *Embedding {
	e := &Embedding{Module: NewModule(), numEmbeddings: numEmbeddings, dims: dims}
	std := float32(math.Sqrt(1 / float64(dims)))
	e.weight = mustSlot(e.RegisterParameter("weight",
		tensor.Randn(tensor.Shape{numEmbeddings, dims}, std, nil, device)))
	return e
}

// Forward gathers the rows for token ids (int32 or int64, any shape) and returns
// [..., dims].
func (e *Embedding) Forward(ids *tensor.RawTensor) (*tensor.RawTensor, error) {
	if ids == nil {
		return nil, fmt.Errorf("%s: %w", layerName("Embedding", e.Module), ErrNilTensor)
	}
	out, err := tensor.Rows(e.weight.Tensor(), ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", layerName("Embedding", e.Module), err)
	}
	return out, nil
}

// Weight returns the table slot.
func (e *Embedding) Weight() *Slot {
	return e.weight
}

// NumEmbeddings returns the table size.
func (e *Embedding) NumEmbeddings() int {
	return e.numEmbeddings
}

// Dims returns the vector size.
func (e *Embedding) Dims() int {
	return e.dims
}

package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/paramtree/internal/tensor"
)

// Xavier returns a float32 tensor drawn from the Glorot uniform distribution
// U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
func Xavier(fanIn, fanOut int, shape tensor.Shape, device tensor.Device) *tensor.RawTensor {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t := tensor.Zeros(shape, device)
	data := t.AsFloat32()
	for i := range data {
		//nolint:gosec // G404: weight initialization, not security sensitive.
		data[i] = float32((rand.Float64()*2.0 - 1.0) * bound)
	}
	return t
}

// layerName labels a layer in errors, e.g. "Linear(fc1)".
func layerName(kind string, m *Module) string {
	if m.label == "" {
		return kind
	}
	return kind + "(" + m.label + ")"
}

package nn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/born-ml/paramtree/internal/loader/loadertest"
	"github.com/born-ml/paramtree/internal/tensor"
)

// customLayer owns its own weight and bias plus a Linear child "l1".
type customLayer struct {
	*Module
	weight *Slot
	bias   *Slot
	l1     *Linear
}

func newCustomLayer(in, out int) *customLayer {
	c := &customLayer{Module: NewModule(), l1: NewLinear(out, out, true, tensor.CPU)}
	c.weight = mustSlot(c.RegisterParameter("weight", tensor.Zeros(tensor.Shape{in, out}, tensor.CPU)))
	c.bias = mustSlot(c.RegisterParameter("bias", tensor.Zeros(tensor.Shape{out}, tensor.CPU)))
	must(c.RegisterModule("l1", c.l1))
	return c
}

func (c *customLayer) Forward(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	y, err := tensor.MatMul(x, c.weight.Tensor())
	if err != nil {
		return nil, err
	}
	if y, err = tensor.AddRow(y, c.bias.Tensor()); err != nil {
		return nil, err
	}
	return c.l1.Forward(y)
}

// testModel is fc1 Linear(784, 100) without bias, fc2 customLayer(100, 10) and
// three customLayer(10, 10) under layers.0 … layers.2.
type testModel struct {
	*Module
	fc1    *Linear
	fc2    *customLayer
	layers []*customLayer
}

func newTestModel(t *testing.T) *testModel {
	t.Helper()
	m := &testModel{
		Module: NewModule(),
		fc1:    NewLinear(784, 100, false, tensor.CPU),
		fc2:    newCustomLayer(100, 10),
	}
	for i := 0; i < 3; i++ {
		m.layers = append(m.layers, newCustomLayer(10, 10))
	}
	require.NoError(t, m.RegisterModule("fc1", m.fc1))
	require.NoError(t, m.RegisterModule("fc2", m.fc2))
	require.NoError(t, RegisterList(m.Module, "layers", m.layers))
	return m
}

var testModelPaths = []string{
	"fc1.weight",
	"fc2.weight", "fc2.bias", "fc2.l1.weight", "fc2.l1.bias",
	"layers.0.weight", "layers.0.bias", "layers.0.l1.weight", "layers.0.l1.bias",
	"layers.1.weight", "layers.1.bias", "layers.1.l1.weight", "layers.1.l1.bias",
	"layers.2.weight", "layers.2.bias", "layers.2.l1.weight", "layers.2.l1.bias",
}

func filled(shape tensor.Shape, v float32) *tensor.RawTensor {
	return tensor.Full(shape, v, tensor.CPU)
}

func fromFloat32(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	x, err := tensor.FromFloat32(data, tensor.Shape(shape), tensor.CPU)
	require.NoError(t, err)
	return x
}

func tinyPhi3Config() Phi3Config {
	return Phi3Config{
		ModelType:         "phi3",
		VocabSize:         16,
		HiddenSize:        8,
		IntermediateSize:  12,
		NumHiddenLayers:   2,
		NumAttentionHeads: 2,
		NumKeyValueHeads:  2,
		RMSNormEps:        1e-5,
		RopeTheta:         10000,
	}
}

// saveTree writes every tensor of c to a SafeTensors fixture and returns its path.
func saveTree(t *testing.T, c Component, name string) string {
	t.Helper()
	state, err := c.Node().StateDict()
	require.NoError(t, err)
	return loadertest.SafeTensorsFile(t, name, state)
}

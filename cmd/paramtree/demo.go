package main

import (
	"fmt"

	"github.com/born-ml/paramtree/internal/nn"
	"github.com/born-ml/paramtree/internal/tensor"
)

// customLayer owns a weight and bias of its own plus a Linear child "l1",
// so its tensors flatten to weight, bias, l1.weight and l1.bias.
type customLayer struct {
	*nn.Module
	weight *nn.Slot
	bias   *nn.Slot
	l1     *nn.Linear
}

func newCustomLayer(in, out int, device tensor.Device) (*customLayer, error) {
	c := &customLayer{Module: nn.NewModule(), l1: nn.NewLinear(out, out, true, device)}

	var err error
	if c.weight, err = c.RegisterParameter("weight", nn.Xavier(in, out, tensor.Shape{in, out}, device)); err != nil {
		return nil, err
	}
	if c.bias, err = c.RegisterParameter("bias", tensor.Zeros(tensor.Shape{out}, device)); err != nil {
		return nil, err
	}
	if err := c.RegisterModule("l1", c.l1); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *customLayer) Forward(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if x == nil || len(x.Shape()) == 0 || x.Shape().Last() != c.weight.Shape()[0] {
		var input tensor.Shape
		if x != nil {
			input = x.Shape()
		}
		return nil, &nn.ShapeContractError{Layer: "custom(" + c.Label() + ")", Input: input, Weight: c.weight.Shape()}
	}
	y, err := tensor.MatMul(x, c.weight.Tensor())
	if err != nil {
		return nil, err
	}
	if y, err = tensor.AddRow(y, c.bias.Tensor()); err != nil {
		return nil, err
	}
	return c.l1.Forward(y)
}

// demoModel is fc1 → fc2 → layers.0 → layers.1 → layers.2 over a 784-wide input.
type demoModel struct {
	*nn.Module
	fc1    *nn.Linear
	fc2    *customLayer
	layers []*customLayer
}

func newDemoModel(device tensor.Device) (*demoModel, error) {
	m := &demoModel{Module: nn.NewModule(), fc1: nn.NewLinear(784, 100, false, device)}

	var err error
	if m.fc2, err = newCustomLayer(100, 10, device); err != nil {
		return nil, err
	}
	for i := 0; i < 3; i++ {
		l, err := newCustomLayer(10, 10, device)
		if err != nil {
			return nil, err
		}
		m.layers = append(m.layers, l)
	}

	if err := m.RegisterModule("fc1", m.fc1); err != nil {
		return nil, err
	}
	if err := m.RegisterModule("fc2", m.fc2); err != nil {
		return nil, err
	}
	if err := nn.RegisterList(m.Module, "layers", m.layers); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *demoModel) Forward(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	y, err := m.fc1.Forward(x)
	if err != nil {
		return nil, err
	}
	if y, err = m.fc2.Forward(y); err != nil {
		return nil, err
	}
	for i, l := range m.layers {
		if y, err = l.Forward(y); err != nil {
			return nil, fmt.Errorf("layers.%d: %w", i, err)
		}
	}
	return y, nil
}

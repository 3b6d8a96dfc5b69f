package nn

import (
	"fmt"

	"github.com/born-ml/paramtree/internal/tensor"
)

// MLP is the gated feed-forward block of Phi-3:
//
//	MLP(x) = down_proj(SiLU(gate) * up),  [gate, up] = split(gate_up_proj(x), 2)
//
// Children: gate_up_proj [dim → 2*hidden] and down_proj [hidden → dim], both
// without bias.
type MLP struct {
	*Module
	gateUp *Linear
	down   *Linear
}

// NewMLP creates the feed-forward block for model width dim and hidden size hidden.
func NewMLP(dim, hidden int, device tensor.Device) *MLP {
	m := &MLP{
		Module: NewModule(),
		gateUp: NewLinear(dim, 2*hidden, false, device),
		down:   NewLinear(hidden, dim, false, device),
	}
	must(m.RegisterModule("gate_up_proj", m.gateUp))
	must(m.RegisterModule("down_proj", m.down))
	return m
}

// Forward computes the gated projection of x [..., dim].
func (m *MLP) Forward(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	h, err := m.gateUp.Forward(x)
	if err != nil {
		return nil, err
	}
	parts, err := tensor.SplitLast(h, 2)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", layerName("MLP", m.Module), err)
	}
	gate, err := tensor.SiLU(parts[0])
	if err != nil {
		return nil, err
	}
	h, err = tensor.Mul(gate, parts[1])
	if err != nil {
		return nil, err
	}
	return m.down.Forward(h)
}

// GateUp returns the fused gate/up projection.
func (m *MLP) GateUp() *Linear {
	return m.gateUp
}

// Down returns the output projection.
func (m *MLP) Down() *Linear {
	return m.down
}

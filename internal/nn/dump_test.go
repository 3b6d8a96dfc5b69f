package nn

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/paramtree/internal/tensor"
)

func TestDumpParameters(t *testing.T) {
	m := newTestModel(t)

	dump, err := DumpParameters(m)
	require.NoError(t, err)
	require.Len(t, dump, len(testModelPaths))
	for i, nt := range dump {
		assert.Equal(t, testModelPaths[i], nt.Path)
		assert.Equal(t, KindParameter, nt.Kind)
	}
	assert.Same(t, m.fc1.Weight().Tensor(), dump[0].Tensor)
}

func TestDumpParameters_NoSideEffects(t *testing.T) {
	m := newTestModel(t)
	before, err := m.StateDict()
	require.NoError(t, err)

	_, err = DumpParameters(m)
	require.NoError(t, err)

	after, err := m.StateDict()
	require.NoError(t, err)
	for path, tt := range before {
		assert.Same(t, tt, after[path], path)
	}
}

func TestPrintParameters(t *testing.T) {
	rope := NewRoPE(8, 10000, tensor.CPU)
	root := NewModule()
	require.NoError(t, root.RegisterModule("fc", NewLinear(4, 3, true, tensor.CPU)))
	require.NoError(t, root.RegisterModule("rope", rope))

	var buf bytes.Buffer
	require.NoError(t, PrintParameters(&buf, root))
	out := buf.String()

	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "fc.weight")
	assert.Contains(t, out, "[4, 3]")
	assert.Contains(t, out, "rope.inv_freq")
	assert.Contains(t, out, "buffer")
	assert.Contains(t, out, "3 tensors, 19 elements")
}

func TestPrintReport(t *testing.T) {
	report := &UpdateReport{
		Updated:         []string{"a"},
		Unknown:         []string{"typo"},
		ShapeMismatches: []ShapeMismatch{{Name: "fc.bias", Expected: tensor.Shape{3}, Got: tensor.Shape{5}}},
		Missing:         []string{"b"},
	}

	var buf bytes.Buffer
	require.NoError(t, PrintReport(&buf, report))
	out := buf.String()
	assert.Contains(t, out, "typo")
	assert.Contains(t, out, "shape mismatch")
	assert.Contains(t, out, "[5]")
	assert.Contains(t, out, "1 updated, 1 unknown, 1 shape mismatches, 1 missing")

	buf.Reset()
	require.NoError(t, PrintReport(&buf, &UpdateReport{Updated: []string{"a"}}))
	assert.Equal(t, "1 updated, 0 unknown, 0 shape mismatches, 0 missing\n", buf.String())
}

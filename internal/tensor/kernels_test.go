package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFloat32(t *testing.T, data []float32, shape Shape) *RawTensor {
	t.Helper()
	raw, err := FromFloat32(data, shape, CPU)
	require.NoError(t, err)
	return raw
}

func TestMatMul(t *testing.T) {
	x := mustFloat32(t, []float32{1, 2, 3, 4, 5, 6}, Shape{2, 3})
	w := mustFloat32(t, []float32{1, 0, 0, 1, 1, 1}, Shape{3, 2})

	out, err := MatMul(x, w)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{4, 5, 10, 11}, out.AsFloat32())
}

func TestMatMul_BatchedInput(t *testing.T) {
	x := Ones(Shape{2, 2, 3}, CPU)
	w := Ones(Shape{3, 4}, CPU)

	out, err := MatMul(x, w)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 2, 4}, out.Shape())
	for _, v := range out.AsFloat32() {
		assert.Equal(t, float32(3), v)
	}
}

func TestMatMul_InnerMismatch(t *testing.T) {
	_, err := MatMul(Ones(Shape{2, 5}, CPU), Ones(Shape{3, 4}, CPU))
	require.Error(t, err)
}

func TestAddRow(t *testing.T) {
	x := mustFloat32(t, []float32{1, 2, 3, 4}, Shape{2, 2})
	b := mustFloat32(t, []float32{10, 20}, Shape{2})

	out, err := AddRow(x, b)
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 22, 13, 24}, out.AsFloat32())
	assert.Equal(t, []float32{1, 2, 3, 4}, x.AsFloat32(), "input must not be modified")

	_, err = AddRow(x, Ones(Shape{3}, CPU))
	require.Error(t, err)
}

func TestSiLUAndMul(t *testing.T) {
	x := mustFloat32(t, []float32{0, 1}, Shape{2})
	out, err := SiLU(x)
	require.NoError(t, err)
	assert.InDelta(t, 0, out.AsFloat32()[0], 1e-6)
	assert.InDelta(t, 1/(1+math.Exp(-1)), out.AsFloat32()[1], 1e-6)

	prod, err := Mul(x, mustFloat32(t, []float32{3, 4}, Shape{2}))
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 4}, prod.AsFloat32())

	_, err = Mul(x, Ones(Shape{3}, CPU))
	require.Error(t, err)
}

func TestRMSNorm(t *testing.T) {
	x := mustFloat32(t, []float32{3, 4}, Shape{1, 2})
	out, err := RMSNorm(x, Ones(Shape{2}, CPU), 0)
	require.NoError(t, err)

	rms := math.Sqrt((9 + 16) / 2.0)
	assert.InDelta(t, 3/rms, out.AsFloat32()[0], 1e-5)
	assert.InDelta(t, 4/rms, out.AsFloat32()[1], 1e-5)
}

func TestRows(t *testing.T) {
	table := mustFloat32(t, []float32{0, 0, 1, 1, 2, 2}, Shape{3, 2})
	ids, err := FromInt32([]int32{2, 0}, Shape{2}, CPU)
	require.NoError(t, err)

	out, err := Rows(table, ids)
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{2, 2, 0, 0}, out.AsFloat32())

	bad, err := FromInt32([]int32{3}, Shape{1}, CPU)
	require.NoError(t, err)
	_, err = Rows(table, bad)
	require.Error(t, err)
}

func TestSplitLast(t *testing.T) {
	x := mustFloat32(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, Shape{2, 4})
	parts, err := SplitLast(x, 2)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, []float32{1, 2, 5, 6}, parts[0].AsFloat32())
	assert.Equal(t, []float32{3, 4, 7, 8}, parts[1].AsFloat32())

	_, err = SplitLast(x, 3)
	require.Error(t, err)
}

package loadertest

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/paramtree/internal/tensor"
)

func TestWriteSafeTensors_Layout(t *testing.T) {
	a, err := tensor.FromFloat32([]float32{1, 2}, tensor.Shape{2}, tensor.CPU)
	require.NoError(t, err)
	b, err := tensor.FromInt32([]int32{3}, tensor.Shape{1}, tensor.CPU)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "x.safetensors")
	require.NoError(t, WriteSafeTensors(path, map[string]*tensor.RawTensor{"b": b, "a": a}, map[string]string{"k": "v"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	n := binary.LittleEndian.Uint64(raw)

	var header map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw[8:8+n], &header))
	assert.Contains(t, header, "__metadata__")

	var entryA, entryB safeTensorsEntry
	require.NoError(t, json.Unmarshal(header["a"], &entryA))
	require.NoError(t, json.Unmarshal(header["b"], &entryB))
	assert.Equal(t, "F32", entryA.DType)
	assert.Equal(t, [2]int64{0, 8}, entryA.DataOffsets)
	assert.Equal(t, "I32", entryB.DType)
	assert.Equal(t, [2]int64{8, 12}, entryB.DataOffsets)
	assert.Len(t, raw, 8+int(n)+12)
}

func TestWriteSafeTensors_NilTensor(t *testing.T) {
	err := WriteSafeTensors(filepath.Join(t.TempDir(), "x.safetensors"),
		map[string]*tensor.RawTensor{"w": nil}, nil)
	assert.Error(t, err)
}

func TestSafeTensorsFile(t *testing.T) {
	path := SafeTensorsFile(t, "w.safetensors", map[string]*tensor.RawTensor{
		"w": tensor.Zeros(tensor.Shape{3}, tensor.CPU),
	})
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(12))
}

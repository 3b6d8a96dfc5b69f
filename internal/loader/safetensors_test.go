package loader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/paramtree/internal/loader/loadertest"
	"github.com/born-ml/paramtree/internal/tensor"
)

func TestSafeTensors_WriteAndParse(t *testing.T) {
	weight, err := tensor.FromFloat32([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, tensor.CPU)
	require.NoError(t, err)
	bias, err := tensor.FromFloat32([]float32{0.5, -0.5, 0}, tensor.Shape{3}, tensor.CPU)
	require.NoError(t, err)
	ids, err := tensor.FromInt32([]int32{7, 8}, tensor.Shape{2}, tensor.CPU)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.safetensors")
	require.NoError(t, loadertest.WriteSafeTensors(path, map[string]*tensor.RawTensor{
		"fc.weight": weight,
		"fc.bias":   bias,
		"ids":       ids,
	}, map[string]string{"format": "pt"}))

	r, err := NewSafeTensorsReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{"fc.bias", "fc.weight", "ids"}, r.TensorNames())
	assert.Equal(t, "pt", r.Metadata()["format"])

	info, err := r.TensorInfo("fc.weight")
	require.NoError(t, err)
	assert.Equal(t, SafeTensorsF32, info.DType)
	assert.Equal(t, []int{2, 3}, info.Shape)

	got, err := r.LoadTensor("ids", tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, tensor.Int32, got.DType())
	assert.Equal(t, []int32{7, 8}, got.AsInt32())

	weights, err := ParseSafeTensors(path, tensor.CUDA)
	require.NoError(t, err)
	require.Len(t, weights, 3)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, weights["fc.weight"].AsFloat32())
	assert.Equal(t, tensor.CUDA, weights["fc.bias"].Device())
	assert.NotSame(t, weight, weights["fc.weight"])
}

func TestSafeTensors_HalfPrecisionWidened(t *testing.T) {
	header := `{"h":{"dtype":"F16","shape":[3],"data_offsets":[0,6]},` +
		`"b":{"dtype":"BF16","shape":[3],"data_offsets":[6,12]}}`
	data := append(uint16Bytes(0x3C00, 0x4000, 0xB800), uint16Bytes(0x3F80, 0x4000, 0xBF00)...)
	path := writeRawSafeTensors(t, header, data)

	weights, err := ParseSafeTensors(path, tensor.CPU)
	require.NoError(t, err)

	for _, name := range []string{"h", "b"} {
		got := weights[name]
		require.NotNil(t, got, name)
		assert.Equal(t, tensor.Float32, got.DType())
		assert.Equal(t, []float32{1, 2, -0.5}, got.AsFloat32(), name)
	}
}

func TestSafeTensors_InvalidOffsets(t *testing.T) {
	tests := []struct {
		name   string
		header string
		data   []byte
	}{
		{
			name:   "past end of file",
			header: `{"w":{"dtype":"F32","shape":[4],"data_offsets":[0,16]}}`,
			data:   float32Bytes(1, 2),
		},
		{
			name:   "size disagrees with shape",
			header: `{"w":{"dtype":"F32","shape":[3],"data_offsets":[0,8]}}`,
			data:   float32Bytes(1, 2),
		},
		{
			name:   "reversed offsets",
			header: `{"w":{"dtype":"F32","shape":[1],"data_offsets":[4,0]}}`,
			data:   float32Bytes(1, 2),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSafeTensors(writeRawSafeTensors(t, tt.header, tt.data), tensor.CPU)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "tensor w")
		})
	}
}

func TestSafeTensors_ElementCountOverflow(t *testing.T) {
	// (2^62+1)*4 wraps to 4 elements, which would match the 16 data bytes.
	header := `{"w":{"dtype":"F32","shape":[4611686018427387905,4],"data_offsets":[0,16]}}`
	path := writeRawSafeTensors(t, header, float32Bytes(1, 2, 3, 4))

	_, err := ParseSafeTensors(path, tensor.CPU)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many elements")

	r, err := NewSafeTensorsReader(path)
	require.NoError(t, err)
	defer r.Close()
	_, err = r.ReadTensorData("w")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid shape for tensor w")
}

func TestSafeTensors_UnsupportedDType(t *testing.T) {
	path := writeRawSafeTensors(t, `{"w":{"dtype":"F8_E4M3","shape":[2],"data_offsets":[0,2]}}`, []byte{1, 2})
	_, err := ParseSafeTensors(path, tensor.CPU)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported dtype F8_E4M3")
}

func TestSafeTensors_BadHeader(t *testing.T) {
	_, err := NewSafeTensorsReader(writeRawSafeTensors(t, `{not json`, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse header JSON")

	_, err = NewSafeTensorsReader(filepath.Join(t.TempDir(), "absent.safetensors"))
	require.Error(t, err)
}

func TestSafeTensors_TensorNotFound(t *testing.T) {
	path := writeRawSafeTensors(t, `{"w":{"dtype":"U8","shape":[2],"data_offsets":[0,2]}}`, []byte{1, 2})
	r, err := NewSafeTensorsReader(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.TensorInfo("missing")
	assert.Error(t, err)

	got, err := r.LoadTensor("w", tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got.Data())
}

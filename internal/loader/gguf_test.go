package loader

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/paramtree/internal/tensor"
)

func TestGGUF_HeaderAndMetadata(t *testing.T) {
	path := newGGUFBuilder().
		kvString("general.architecture", "phi3").
		kvUint32("phi3.block_count", 2).
		kvStringArray("tokenizer.ggml.tokens", "<s>", "</s>", "hello").
		f32("token_embd.weight", []uint64{3, 2}, 1, 2, 3, 4, 5, 6).
		f32("output_norm.weight", []uint64{2}, 1, 1).
		write(t, "phi3.gguf")

	r, err := NewGGUFReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, uint32(3), r.Version())
	assert.Equal(t, uint64(ggufDefaultAlignment), r.Alignment())
	assert.Equal(t, "phi3", r.Architecture())
	n, ok := r.Metadata().Uint("phi3.block_count")
	require.True(t, ok)
	assert.Equal(t, uint64(2), n)
	assert.Equal(t, []any{"<s>", "</s>", "hello"}, r.Metadata()["tokenizer.ggml.tokens"])
	assert.Equal(t, []string{"output_norm.weight", "token_embd.weight"}, r.TensorNames())

	info, err := r.TensorInfo("token_embd.weight")
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3}, info.Dims)
	assert.Equal(t, tensor.Shape{3, 2}, info.Shape())

	embd, err := r.LoadTensor("token_embd.weight", tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, embd.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, embd.AsFloat32())
}

func TestGGUF_Version2(t *testing.T) {
	b := newGGUFBuilder().f32("w", []uint64{2}, 3, 4)
	b.version = 2
	weights, err := ParseGGUF(b.write(t, "v2.gguf"), tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, weights["w"].AsFloat32())
}

func TestGGUF_CustomAlignment(t *testing.T) {
	path := newGGUFBuilder().
		kvUint32("general.alignment", 64).
		f32("a", []uint64{3}, 1, 2, 3).
		f32("b", []uint64{2}, 7, 8).
		write(t, "aligned.gguf")

	r, err := NewGGUFReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, uint64(64), r.Alignment())

	info, err := r.TensorInfo("b")
	require.NoError(t, err)
	assert.Equal(t, uint64(64), info.Offset)

	b, err := r.LoadTensor("b", tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, []float32{7, 8}, b.AsFloat32())
}

func TestGGUF_BadAlignment(t *testing.T) {
	path := newGGUFBuilder().kvUint32("general.alignment", 48).f32("a", []uint64{1}, 1).write(t, "bad.gguf")
	_, err := NewGGUFReader(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "power of two")
}

func TestGGUF_HalfPrecision(t *testing.T) {
	path := newGGUFBuilder().
		tensor("h", []uint64{3}, GGUFDTypeF16, uint16Bytes(0x3C00, 0x4000, 0xB800)).
		tensor("b", []uint64{3}, GGUFDTypeBF16, uint16Bytes(0x3F80, 0x4000, 0xBF00)).
		write(t, "half.gguf")

	weights, err := ParseGGUF(path, tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, -0.5}, weights["h"].AsFloat32())
	assert.Equal(t, []float32{1, 2, -0.5}, weights["b"].AsFloat32())
}

func TestGGUF_Q8_0(t *testing.T) {
	block := uint16Bytes(0x3800) // d = 0.5
	for i := 0; i < qBlockSize; i++ {
		block = append(block, byte(int8(i-16)))
	}
	path := newGGUFBuilder().tensor("q", []uint64{qBlockSize}, GGUFDTypeQ8_0, block).write(t, "q8.gguf")

	weights, err := ParseGGUF(path, tensor.CPU)
	require.NoError(t, err)
	got := weights["q"].AsFloat32()
	require.Len(t, got, qBlockSize)
	for i, v := range got {
		assert.InDelta(t, 0.5*float32(i-16), v, 1e-6, "element %d", i)
	}
}

func TestGGUF_Q4_0(t *testing.T) {
	block := uint16Bytes(0x4000) // d = 2
	for j := 0; j < qBlockSize/2; j++ {
		lo := byte(j % 16)
		hi := byte(15 - j%16)
		block = append(block, lo|hi<<4)
	}
	path := newGGUFBuilder().tensor("q", []uint64{2, 16}, GGUFDTypeQ4_0, block).write(t, "q4.gguf")

	weights, err := ParseGGUF(path, tensor.CPU)
	require.NoError(t, err)
	q := weights["q"]
	assert.Equal(t, tensor.Shape{2, 16}, q.Shape())
	got := q.AsFloat32()
	for j := 0; j < qBlockSize/2; j++ {
		assert.InDelta(t, 2*float32(j%16-8), got[j], 1e-6)
		assert.InDelta(t, 2*float32(15-j%16-8), got[j+16], 1e-6)
	}
}

func TestGGUF_UnsupportedDType(t *testing.T) {
	path := newGGUFBuilder().tensor("k", []uint64{256}, GGUFDTypeQ4_K, make([]byte, 144)).write(t, "k.gguf")
	_, err := ParseGGUF(path, tensor.CPU)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedDType)
	assert.Contains(t, err.Error(), "Q4_K")
}

func TestGGUF_ElementCountOverflow(t *testing.T) {
	// 4 * 2^62 * 4 wraps to 0 in uint64.
	path := newGGUFBuilder().tensor("w", []uint64{4, 1 << 62, 4}, GGUFDTypeF32, float32Bytes(1, 2, 3, 4)).
		write(t, "overflow.gguf")
	_, err := NewGGUFReader(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many elements")

	assert.NoError(t, checkElementCount([]uint64{4, 0, 8}))
	assert.NoError(t, checkElementCount([]uint64{uint64(tensor.MaxElements)}))
	assert.Error(t, checkElementCount([]uint64{uint64(tensor.MaxElements), 2}))
}

func TestGGUF_Truncated(t *testing.T) {
	data := newGGUFBuilder().f32("w", []uint64{4}, 1, 2, 3, 4).bytes()
	path := filepath.Join(t.TempDir(), "short.gguf")
	require.NoError(t, os.WriteFile(path, data[:len(data)-4], 0o600))

	_, err := ParseGGUF(path, tensor.CPU)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds file size")
}

func TestGGUF_InvalidHeader(t *testing.T) {
	tests := []struct {
		name    string
		magic   uint32
		version uint32
		want    string
	}{
		{"bad magic", 0xDEADBEEF, 3, "invalid GGUF magic"},
		{"version 1", ggufMagic, 1, "unsupported GGUF version"},
		{"version 4", ggufMagic, 4, "unsupported GGUF version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, 24)
			binary.LittleEndian.PutUint32(buf[0:], tt.magic)
			binary.LittleEndian.PutUint32(buf[4:], tt.version)
			path := filepath.Join(t.TempDir(), "bad.gguf")
			require.NoError(t, os.WriteFile(path, buf, 0o600))

			_, err := NewGGUFReader(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGGUF_DuplicateTensorName(t *testing.T) {
	path := newGGUFBuilder().f32("w", []uint64{1}, 1).f32("w", []uint64{1}, 2).write(t, "dup.gguf")
	_, err := NewGGUFReader(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate tensor name "w"`)
}

func TestAlignOffset(t *testing.T) {
	assert.Equal(t, uint64(0), alignOffset(0, 32))
	assert.Equal(t, uint64(32), alignOffset(1, 32))
	assert.Equal(t, uint64(32), alignOffset(32, 32))
	assert.Equal(t, uint64(64), alignOffset(33, 64))
}

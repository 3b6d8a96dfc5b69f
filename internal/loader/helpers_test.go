package loader

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// ggufTensor is a tensor record for ggufBuilder. dims are row-major.
type ggufTensor struct {
	name  string
	dims  []uint64
	dtype GGUFDType
	data  []byte
}

// ggufBuilder assembles GGUF files in memory for tests.
type ggufBuilder struct {
	version   uint32
	alignment uint64
	kvCount   uint64
	kv        bytes.Buffer
	tensors   []ggufTensor
}

func newGGUFBuilder() *ggufBuilder {
	return &ggufBuilder{version: 3, alignment: ggufDefaultAlignment}
}

func writeGGUFString(w *bytes.Buffer, s string) {
	_ = binary.Write(w, binary.LittleEndian, uint64(len(s)))
	w.WriteString(s)
}

func (b *ggufBuilder) kvString(key, value string) *ggufBuilder {
	writeGGUFString(&b.kv, key)
	_ = binary.Write(&b.kv, binary.LittleEndian, GGUFTypeString)
	writeGGUFString(&b.kv, value)
	b.kvCount++
	return b
}

func (b *ggufBuilder) kvUint32(key string, value uint32) *ggufBuilder {
	writeGGUFString(&b.kv, key)
	_ = binary.Write(&b.kv, binary.LittleEndian, GGUFTypeUint32)
	_ = binary.Write(&b.kv, binary.LittleEndian, value)
	b.kvCount++
	if key == "general.alignment" {
		b.alignment = uint64(value)
	}
	return b
}

func (b *ggufBuilder) kvStringArray(key string, values ...string) *ggufBuilder {
	writeGGUFString(&b.kv, key)
	_ = binary.Write(&b.kv, binary.LittleEndian, GGUFTypeArray)
	_ = binary.Write(&b.kv, binary.LittleEndian, GGUFTypeString)
	_ = binary.Write(&b.kv, binary.LittleEndian, uint64(len(values)))
	for _, v := range values {
		writeGGUFString(&b.kv, v)
	}
	b.kvCount++
	return b
}

func (b *ggufBuilder) tensor(name string, dims []uint64, dtype GGUFDType, data []byte) *ggufBuilder {
	b.tensors = append(b.tensors, ggufTensor{name: name, dims: dims, dtype: dtype, data: data})
	return b
}

func (b *ggufBuilder) f32(name string, dims []uint64, values ...float32) *ggufBuilder {
	var data bytes.Buffer
	_ = binary.Write(&data, binary.LittleEndian, values)
	return b.tensor(name, dims, GGUFDTypeF32, data.Bytes())
}

func (b *ggufBuilder) bytes() []byte {
	var out bytes.Buffer
	_ = binary.Write(&out, binary.LittleEndian, uint32(ggufMagic))
	_ = binary.Write(&out, binary.LittleEndian, b.version)
	_ = binary.Write(&out, binary.LittleEndian, uint64(len(b.tensors)))
	_ = binary.Write(&out, binary.LittleEndian, b.kvCount)
	out.Write(b.kv.Bytes())

	var offset uint64
	offsets := make([]uint64, len(b.tensors))
	for i, t := range b.tensors {
		offsets[i] = offset
		offset = alignOffset(offset+uint64(len(t.data)), b.alignment)
	}
	for i, t := range b.tensors {
		writeGGUFString(&out, t.name)
		_ = binary.Write(&out, binary.LittleEndian, uint32(len(t.dims)))
		for k := len(t.dims) - 1; k >= 0; k-- {
			_ = binary.Write(&out, binary.LittleEndian, t.dims[k])
		}
		_ = binary.Write(&out, binary.LittleEndian, t.dtype)
		_ = binary.Write(&out, binary.LittleEndian, offsets[i])
	}

	pad := alignOffset(uint64(out.Len()), b.alignment) - uint64(out.Len())
	out.Write(make([]byte, pad))
	for i, t := range b.tensors {
		out.Write(t.data)
		if i < len(b.tensors)-1 {
			out.Write(make([]byte, offsets[i+1]-offsets[i]-uint64(len(t.data))))
		}
	}
	return out.Bytes()
}

func (b *ggufBuilder) write(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, b.bytes(), 0o600))
	return path
}

func float32Bytes(values ...float32) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, values)
	return buf.Bytes()
}

func uint16Bytes(values ...uint16) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, values)
	return buf.Bytes()
}

// writeRawSafeTensors writes a SafeTensors file from a prebuilt JSON header.
func writeRawSafeTensors(t *testing.T, header string, data []byte) string {
	t.Helper()
	var out bytes.Buffer
	_ = binary.Write(&out, binary.LittleEndian, uint64(len(header)))
	out.WriteString(header)
	out.Write(data)
	path := filepath.Join(t.TempDir(), "raw.safetensors")
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o600))
	return path
}

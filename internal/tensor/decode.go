package tensor

import (
	"encoding/binary"
	"fmt"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"

	"github.com/born-ml/paramtree/internal/parallel"
)

// DecodeFloat16 widens little-endian IEEE half precision data into a float32 tensor.
func DecodeFloat16(data []byte, shape Shape, device Device) (*RawTensor, error) {
	raw, err := NewRaw(shape, Float32, device)
	if err != nil {
		return nil, err
	}
	if len(data) != 2*raw.NumElements() {
		return nil, fmt.Errorf("F16 data size %d bytes does not match shape %v", len(data), shape)
	}

	out := raw.AsFloat32()
	parallel.For(len(out), parallel.DefaultConfig(), func(i int) {
		out[i] = float16.Frombits(binary.LittleEndian.Uint16(data[2*i:])).Float32()
	})
	return raw, nil
}

// DecodeBFloat16 widens little-endian bfloat16 data into a float32 tensor.
func DecodeBFloat16(data []byte, shape Shape, device Device) (*RawTensor, error) {
	raw, err := NewRaw(shape, Float32, device)
	if err != nil {
		return nil, err
	}
	if len(data) != 2*raw.NumElements() {
		return nil, fmt.Errorf("BF16 data size %d bytes does not match shape %v", len(data), shape)
	}

	copy(raw.AsFloat32(), bfloat16.DecodeFloat32(data))
	return raw, nil
}

// Float16ToFloat32 converts a single half precision value.
func Float16ToFloat32(bits uint16) float32 {
	return float16.Frombits(bits).Float32()
}

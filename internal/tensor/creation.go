package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// Zeros creates a float32 tensor filled with zeros.
// Panics if shape is invalid; callers construct shapes from positive layer sizes.
//
// Example:
//
//	w := tensor.Zeros(tensor.Shape{4, 3}, tensor.CPU)
func Zeros(shape Shape, device Device) *RawTensor {
	raw, err := NewRaw(shape, Float32, device)
	if err != nil {
		panic(err)
	}
	return raw
}

// Ones creates a float32 tensor filled with ones.
func Ones(shape Shape, device Device) *RawTensor {
	return Full(shape, 1, device)
}

// Full creates a float32 tensor filled with value.
func Full(shape Shape, value float32, device Device) *RawTensor {
	raw := Zeros(shape, device)
	data := raw.AsFloat32()
	for i := range data {
		data[i] = value
	}
	return raw
}

// Randn creates a float32 tensor with values drawn from N(0, std^2).
// rng may be nil, in which case the global math/rand source is used.
// Note: Uses math/rand (not crypto/rand) - appropriate for weight initialization.
func Randn(shape Shape, std float32, rng *rand.Rand, device Device) *RawTensor {
	raw := Zeros(shape, device)
	norm := rand.NormFloat64 //nolint:gosec // G404: weight init, not security sensitive
	if rng != nil {
		norm = rng.NormFloat64
	}
	data := raw.AsFloat32()
	for i := range data {
		data[i] = float32(norm()) * std
	}
	return raw
}

// FromFloat32 creates a float32 tensor holding a copy of data.
//
// Example:
//
//	x, err := tensor.FromFloat32([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, tensor.CPU)
func FromFloat32(data []float32, shape Shape, device Device) (*RawTensor, error) {
	raw, err := NewRaw(shape, Float32, device)
	if err != nil {
		return nil, err
	}
	if len(data) != raw.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, raw.NumElements())
	}
	copy(raw.AsFloat32(), data)
	return raw, nil
}

// FromInt32 creates an int32 tensor holding a copy of data.
func FromInt32(data []int32, shape Shape, device Device) (*RawTensor, error) {
	raw, err := NewRaw(shape, Int32, device)
	if err != nil {
		return nil, err
	}
	if len(data) != raw.NumElements() {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d elements)",
			len(data), shape, raw.NumElements())
	}
	copy(raw.AsInt32(), data)
	return raw, nil
}

// FromBytes creates a tensor of the given type from little-endian bytes.
// The bytes are copied.
func FromBytes(data []byte, shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	raw, err := NewRaw(shape, dtype, device)
	if err != nil {
		return nil, err
	}
	if len(data) != raw.ByteSize() {
		return nil, fmt.Errorf("data size %d bytes does not match %s%v (%d bytes)",
			len(data), dtype, shape, raw.ByteSize())
	}
	copy(raw.Data(), data)
	return raw, nil
}

// RoPEFrequencies returns the inverse rotary frequencies base^(-2i/dims) for
// i in [0, dims/2).
func RoPEFrequencies(dims int, base float64, device Device) *RawTensor {
	half := dims / 2
	if half < 1 {
		half = 1
	}
	raw := Zeros(Shape{half}, device)
	data := raw.AsFloat32()
	for i := range data {
		data[i] = float32(1.0 / math.Pow(base, float64(2*i)/float64(dims)))
	}
	return raw
}

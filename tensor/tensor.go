// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/paramtree/internal/tensor"
)

// RawTensor is an untyped tensor: shape, element type, device and bytes.
type RawTensor = tensor.RawTensor

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// DataType represents the element type of a tensor.
type DataType = tensor.DataType

// Device represents the execution target a tensor is placed on.
type Device = tensor.Device

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
	Uint8   = tensor.Uint8
	Bool    = tensor.Bool
)

// Supported devices.
const (
	CPU   = tensor.CPU
	CUDA  = tensor.CUDA
	Metal = tensor.Metal
)

// ParseDevice parses a device name ("cpu", "cuda", "metal"; case-insensitive).
func ParseDevice(s string) (Device, error) {
	return tensor.ParseDevice(s)
}

// NewRaw allocates a zero-filled tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// Zeros creates a float32 tensor filled with zeros.
func Zeros(shape Shape, device Device) *RawTensor {
	return tensor.Zeros(shape, device)
}

// Ones creates a float32 tensor filled with ones.
func Ones(shape Shape, device Device) *RawTensor {
	return tensor.Ones(shape, device)
}

// Full creates a float32 tensor filled with value.
func Full(shape Shape, value float32, device Device) *RawTensor {
	return tensor.Full(shape, value, device)
}

// FromFloat32 creates a tensor from a copy of data.
//
// Example:
//
//	w, err := tensor.FromFloat32([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, tensor.CPU)
func FromFloat32(data []float32, shape Shape, device Device) (*RawTensor, error) {
	return tensor.FromFloat32(data, shape, device)
}

// FromInt32 creates an int32 tensor from a copy of data.
func FromInt32(data []int32, shape Shape, device Device) (*RawTensor, error) {
	return tensor.FromInt32(data, shape, device)
}

// FromBytes creates a tensor from little-endian raw bytes.
func FromBytes(data []byte, shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.FromBytes(data, shape, dtype, device)
}

// DecodeFloat16 widens IEEE 754 half precision bytes to a float32 tensor.
func DecodeFloat16(data []byte, shape Shape, device Device) (*RawTensor, error) {
	return tensor.DecodeFloat16(data, shape, device)
}

// DecodeBFloat16 widens bfloat16 bytes to a float32 tensor.
func DecodeBFloat16(data []byte, shape Shape, device Device) (*RawTensor, error) {
	return tensor.DecodeBFloat16(data, shape, device)
}

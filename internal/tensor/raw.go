package tensor

import (
	"fmt"
	"strings"
	"unsafe"
)

// Device represents the execution target a tensor is placed on.
type Device int

// Supported devices.
const (
	CPU Device = iota
	CUDA
	Metal
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case Metal:
		return "Metal"
	default:
		return "Unknown"
	}
}

// ParseDevice parses a device name (case-insensitive).
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cpu":
		return CPU, nil
	case "cuda", "gpu":
		return CUDA, nil
	case "metal", "mps":
		return Metal, nil
	default:
		return CPU, fmt.Errorf("unknown device %q", s)
	}
}

// RawTensor is an untyped tensor: a shape, an element type, a device tag and a
// row-major byte buffer. Identity is by pointer; two RawTensors never share a buffer
// unless one was obtained from the other through View.
type RawTensor struct {
	data   []byte
	shape  Shape
	dtype  DataType
	device Device
}

// NewRaw creates a zero-filled RawTensor with the given shape and type.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		data:   make([]byte, shape.NumElements()*dtype.Size()),
		shape:  shape.Clone(),
		dtype:  dtype,
		device: device,
	}, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return len(r.data)
}

// Data returns the backing buffer. Writes through it are visible to every View.
func (r *RawTensor) Data() []byte {
	return r.data
}

// elements reinterprets the buffer as []T without copying. It panics when the
// tensor's dtype is not want.
func elements[T any](r *RawTensor, want DataType) []T {
	if r.dtype != want {
		panic(fmt.Sprintf("%s tensor accessed as %s", r.dtype, want))
	}
	//nolint:gosec // length is NumElements, which matches len(data) / dtype size.
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(r.data))), r.NumElements())
}

// AsFloat32 returns the elements of a Float32 tensor.
func (r *RawTensor) AsFloat32() []float32 { return elements[float32](r, Float32) }

// AsFloat64 returns the elements of a Float64 tensor.
func (r *RawTensor) AsFloat64() []float64 { return elements[float64](r, Float64) }

// AsInt32 returns the elements of an Int32 tensor.
func (r *RawTensor) AsInt32() []int32 { return elements[int32](r, Int32) }

// AsInt64 returns the elements of an Int64 tensor.
func (r *RawTensor) AsInt64() []int64 { return elements[int64](r, Int64) }

// Clone returns a deep copy with its own buffer.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &RawTensor{
		data:   data,
		shape:  r.shape.Clone(),
		dtype:  r.dtype,
		device: r.device,
	}
}

// View returns a tensor sharing this tensor's buffer under a different shape.
// The new shape must describe the same number of elements.
func (r *RawTensor) View(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if shape.NumElements() != r.NumElements() {
		return nil, fmt.Errorf("cannot view %v (%d elements) as %v (%d elements)",
			r.shape, r.NumElements(), shape, shape.NumElements())
	}
	return &RawTensor{
		data:   r.data,
		shape:  shape.Clone(),
		dtype:  r.dtype,
		device: r.device,
	}, nil
}

// String returns a short description such as "float32[4, 3]@CPU".
func (r *RawTensor) String() string {
	return fmt.Sprintf("%s%v@%s", r.dtype, r.shape, r.device)
}

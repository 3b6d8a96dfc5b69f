package loader

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/paramtree/internal/tensor"
)

// SafeTensors layout:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

// maxSafeTensorsHeader bounds the JSON header read into memory.
const maxSafeTensorsHeader = 100 * 1024 * 1024

// SafeTensorsDType names an element type in a SafeTensors header.
type SafeTensorsDType string

// Supported SafeTensors dtypes.
const (
	SafeTensorsF16  SafeTensorsDType = "F16"
	SafeTensorsF32  SafeTensorsDType = "F32"
	SafeTensorsF64  SafeTensorsDType = "F64"
	SafeTensorsBF16 SafeTensorsDType = "BF16"
	SafeTensorsI32  SafeTensorsDType = "I32"
	SafeTensorsI64  SafeTensorsDType = "I64"
	SafeTensorsU8   SafeTensorsDType = "U8"
	SafeTensorsBool SafeTensorsDType = "BOOL"
)

// elementSize returns the on-disk byte width of one element, or 0 if unknown.
func (d SafeTensorsDType) elementSize() int {
	switch d {
	case SafeTensorsU8, SafeTensorsBool:
		return 1
	case SafeTensorsF16, SafeTensorsBF16:
		return 2
	case SafeTensorsF32, SafeTensorsI32:
		return 4
	case SafeTensorsF64, SafeTensorsI64:
		return 8
	default:
		return 0
	}
}

// SafeTensorInfo describes one tensor entry of the header.
type SafeTensorInfo struct {
	DType       SafeTensorsDType `json:"dtype"`
	Shape       []int            `json:"shape"`
	DataOffsets [2]int64         `json:"data_offsets"` // [start, end) relative to the data section
}

// SafeTensorsHeader is the decoded JSON header.
type SafeTensorsHeader struct {
	Metadata map[string]string
	Tensors  map[string]SafeTensorInfo
}

// UnmarshalJSON splits the optional __metadata__ entry from the tensor entries.
func (h *SafeTensorsHeader) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}

	if metadataRaw, ok := rawMap["__metadata__"]; ok {
		if err := json.Unmarshal(metadataRaw, &h.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	h.Tensors = make(map[string]SafeTensorInfo, len(rawMap))
	for key, value := range rawMap {
		if key == "__metadata__" {
			continue
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = info
	}
	return nil
}

// SafeTensorsReader reads tensors from a SafeTensors file on demand.
type SafeTensorsReader struct {
	file       *os.File
	header     SafeTensorsHeader
	dataOffset int64
	dataSize   int64
}

// NewSafeTensorsReader opens path and decodes its header.
func NewSafeTensorsReader(path string) (*SafeTensorsReader, error) {
	//nolint:gosec // G304: path is provided by the caller, reading it is intentional.
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r, err := readSafeTensorsHeader(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func readSafeTensorsHeader(file *os.File) (*SafeTensorsReader, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > maxSafeTensorsHeader {
		return nil, fmt.Errorf("invalid header size: %d (too large)", headerSize)
	}
	//nolint:gosec // G115: bounded by maxSafeTensorsHeader above.
	dataOffset := int64(8 + headerSize)
	if dataOffset > stat.Size() {
		return nil, fmt.Errorf("header size %d exceeds file size %d", headerSize, stat.Size())
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var header SafeTensorsHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	return &SafeTensorsReader{
		file:       file,
		header:     header,
		dataOffset: dataOffset,
		dataSize:   stat.Size() - dataOffset,
	}, nil
}

// Close closes the underlying file.
func (r *SafeTensorsReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Metadata returns the __metadata__ map from the header.
func (r *SafeTensorsReader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns all tensor names in sorted order.
func (r *SafeTensorsReader) TensorNames() []string {
	names := make([]string, 0, len(r.header.Tensors))
	for name := range r.header.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns the header entry for name.
func (r *SafeTensorsReader) TensorInfo(name string) (*SafeTensorInfo, error) {
	info, ok := r.header.Tensors[name]
	if !ok {
		return nil, fmt.Errorf("tensor %s not found", name)
	}
	return &info, nil
}

// ReadTensorData reads the raw bytes of tensor name after validating its
// offsets against the data section and its shape.
func (r *SafeTensorsReader) ReadTensorData(name string) ([]byte, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	start, end := info.DataOffsets[0], info.DataOffsets[1]
	if start < 0 || end < start || end > r.dataSize {
		return nil, fmt.Errorf("invalid data offsets for tensor %s: [%d, %d] (data section is %d bytes)",
			name, start, end, r.dataSize)
	}
	if err := tensor.Shape(info.Shape).Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}
	if width := info.DType.elementSize(); width > 0 {
		want := int64(tensor.Shape(info.Shape).NumElements() * width)
		if end-start != want {
			return nil, fmt.Errorf("tensor %s: %d bytes for %s%v, expected %d",
				name, end-start, info.DType, info.Shape, want)
		}
	}

	if _, err := r.file.Seek(r.dataOffset+start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to tensor data: %w", err)
	}
	data := make([]byte, end-start)
	if _, err := io.ReadFull(r.file, data); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	return data, nil
}

// safeTensorsDTypeToDataType maps the dtypes stored without conversion.
func safeTensorsDTypeToDataType(dtype SafeTensorsDType) (tensor.DataType, bool) {
	switch dtype {
	case SafeTensorsF32:
		return tensor.Float32, true
	case SafeTensorsF64:
		return tensor.Float64, true
	case SafeTensorsI32:
		return tensor.Int32, true
	case SafeTensorsI64:
		return tensor.Int64, true
	case SafeTensorsU8:
		return tensor.Uint8, true
	case SafeTensorsBool:
		return tensor.Bool, true
	default:
		return 0, false
	}
}

// LoadTensor reads tensor name onto device. F16 and BF16 are widened to float32.
func (r *SafeTensorsReader) LoadTensor(name string, device tensor.Device) (*tensor.RawTensor, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	shape := tensor.Shape(info.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}

	data, err := r.ReadTensorData(name)
	if err != nil {
		return nil, err
	}

	switch info.DType {
	case SafeTensorsF16:
		return tensor.DecodeFloat16(data, shape, device)
	case SafeTensorsBF16:
		return tensor.DecodeBFloat16(data, shape, device)
	}

	dtype, ok := safeTensorsDTypeToDataType(info.DType)
	if !ok {
		return nil, fmt.Errorf("tensor %s: unsupported dtype %s", name, info.DType)
	}
	return tensor.FromBytes(data, shape, dtype, device)
}

// ParseSafeTensors reads every tensor of a SafeTensors file.
func ParseSafeTensors(path string, device tensor.Device) (map[string]*tensor.RawTensor, error) {
	r, err := NewSafeTensorsReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	weights := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for _, name := range r.TensorNames() {
		t, err := r.LoadTensor(name, device)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		weights[name] = t
	}
	return weights, nil
}

package loader

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/paramtree/internal/tensor"
)

// GGUF layout (v2 and v3):
// [4 bytes: "GGUF" magic]
// [4 bytes: version]
// [8 bytes: tensor_count]
// [8 bytes: metadata_kv_count]
// [metadata key-value pairs]
// [tensor infos]
// [padding to general.alignment]
// [tensor data]

const (
	ggufMagic            = 0x46554747 // "GGUF" little-endian
	ggufDefaultAlignment = 32

	maxGGUFString     = 1 << 20
	maxGGUFArrayLen   = 1 << 26
	maxGGUFDims       = 8
	maxGGUFTensors    = 1 << 20
	maxGGUFMetadataKV = 1 << 20
)

// GGUFType is a metadata value type.
type GGUFType uint32

// GGUF metadata value types.
const (
	GGUFTypeUint8   GGUFType = 0
	GGUFTypeInt8    GGUFType = 1
	GGUFTypeUint16  GGUFType = 2
	GGUFTypeInt16   GGUFType = 3
	GGUFTypeUint32  GGUFType = 4
	GGUFTypeInt32   GGUFType = 5
	GGUFTypeFloat32 GGUFType = 6
	GGUFTypeBool    GGUFType = 7
	GGUFTypeString  GGUFType = 8
	GGUFTypeArray   GGUFType = 9
	GGUFTypeUint64  GGUFType = 10
	GGUFTypeInt64   GGUFType = 11
	GGUFTypeFloat64 GGUFType = 12
)

// GGUFDType is a tensor element type (ggml_type).
type GGUFDType uint32

// GGUF tensor dtypes.
const (
	GGUFDTypeF32  GGUFDType = 0
	GGUFDTypeF16  GGUFDType = 1
	GGUFDTypeQ4_0 GGUFDType = 2
	GGUFDTypeQ4_1 GGUFDType = 3
	GGUFDTypeQ5_0 GGUFDType = 6
	GGUFDTypeQ5_1 GGUFDType = 7
	GGUFDTypeQ8_0 GGUFDType = 8
	GGUFDTypeQ8_1 GGUFDType = 9
	GGUFDTypeQ2_K GGUFDType = 10
	GGUFDTypeQ3_K GGUFDType = 11
	GGUFDTypeQ4_K GGUFDType = 12
	GGUFDTypeQ5_K GGUFDType = 13
	GGUFDTypeQ6_K GGUFDType = 14
	GGUFDTypeBF16 GGUFDType = 30
)

// String returns the ggml name of the type.
func (d GGUFDType) String() string {
	switch d {
	case GGUFDTypeF32:
		return "F32"
	case GGUFDTypeF16:
		return "F16"
	case GGUFDTypeQ4_0:
		return "Q4_0"
	case GGUFDTypeQ4_1:
		return "Q4_1"
	case GGUFDTypeQ5_0:
		return "Q5_0"
	case GGUFDTypeQ5_1:
		return "Q5_1"
	case GGUFDTypeQ8_0:
		return "Q8_0"
	case GGUFDTypeQ8_1:
		return "Q8_1"
	case GGUFDTypeQ2_K:
		return "Q2_K"
	case GGUFDTypeQ3_K:
		return "Q3_K"
	case GGUFDTypeQ4_K:
		return "Q4_K"
	case GGUFDTypeQ5_K:
		return "Q5_K"
	case GGUFDTypeQ6_K:
		return "Q6_K"
	case GGUFDTypeBF16:
		return "BF16"
	default:
		return fmt.Sprintf("type(%d)", uint32(d))
	}
}

// ErrUnsupportedDType is returned for tensor types that cannot be decoded.
var ErrUnsupportedDType = errors.New("unsupported tensor dtype")

// GGUFMetadata stores metadata key-value pairs. Arrays decode to []any.
type GGUFMetadata map[string]any

// String returns the string value stored under key.
func (m GGUFMetadata) String(key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}

// Uint returns an unsigned integer value stored under key, widening any
// unsigned or non-negative signed integer type.
func (m GGUFMetadata) Uint(key string) (uint64, bool) {
	switch v := m[key].(type) {
	case uint8:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint32:
		return uint64(v), true
	case uint64:
		return v, true
	case int8:
		return uint64(v), v >= 0 //nolint:gosec // G115: sign checked.
	case int16:
		return uint64(v), v >= 0 //nolint:gosec // G115: sign checked.
	case int32:
		return uint64(v), v >= 0 //nolint:gosec // G115: sign checked.
	case int64:
		return uint64(v), v >= 0 //nolint:gosec // G115: sign checked.
	default:
		return 0, false
	}
}

// GGUFTensorInfo describes one tensor.
type GGUFTensorInfo struct {
	Name   string
	Dims   []uint64 // innermost first, reversed relative to row-major shape
	DType  GGUFDType
	Offset uint64 // relative to the data section
}

// Shape returns the row-major shape (dims reversed).
func (i *GGUFTensorInfo) Shape() tensor.Shape {
	shape := make(tensor.Shape, len(i.Dims))
	for k, d := range i.Dims {
		shape[len(i.Dims)-1-k] = int(d) //nolint:gosec // G115: dims bounded by checkElementCount.
	}
	return shape
}

// NumElements returns the element count.
func (i *GGUFTensorInfo) NumElements() uint64 {
	n := uint64(1)
	for _, d := range i.Dims {
		n *= d
	}
	return n
}

// checkElementCount rejects dims whose product exceeds tensor.MaxElements.
// Zero dims are skipped here and rejected later by Shape.Validate.
func checkElementCount(dims []uint64) error {
	const limit = uint64(tensor.MaxElements)
	n := uint64(1)
	for _, d := range dims {
		if d == 0 {
			continue
		}
		if d > limit/n {
			return fmt.Errorf("dims %v have too many elements (max %d)", dims, limit)
		}
		n *= d
	}
	return nil
}

// GGUFReader reads GGUF files.
type GGUFReader struct {
	file       *os.File
	version    uint32
	alignment  uint64
	metadata   GGUFMetadata
	tensors    map[string]GGUFTensorInfo
	dataOffset uint64
	fileSize   uint64
}

// countingReader tracks the absolute position of a buffered header read.
type countingReader struct {
	r   *bufio.Reader
	pos uint64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.pos += uint64(n) //nolint:gosec // G115: n is non-negative.
	return n, err
}

// NewGGUFReader opens path and parses its header, metadata and tensor infos.
func NewGGUFReader(path string) (*GGUFReader, error) {
	//nolint:gosec // G304: path is provided by the caller, reading it is intentional.
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	reader := &GGUFReader{
		file:      file,
		alignment: ggufDefaultAlignment,
		metadata:  make(GGUFMetadata),
		tensors:   make(map[string]GGUFTensorInfo),
		fileSize:  uint64(stat.Size()), //nolint:gosec // G115: file sizes are non-negative.
	}

	cr := &countingReader{r: bufio.NewReaderSize(file, 1<<16)}
	if err := reader.parseHeader(cr); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%s: failed to parse GGUF header: %w", path, err)
	}
	return reader, nil
}

func (r *GGUFReader) parseHeader(cr *countingReader) error {
	var magic uint32
	if err := binary.Read(cr, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != ggufMagic {
		return fmt.Errorf("invalid GGUF magic: 0x%X (expected 0x%X)", magic, ggufMagic)
	}

	if err := binary.Read(cr, binary.LittleEndian, &r.version); err != nil {
		return fmt.Errorf("failed to read version: %w", err)
	}
	if r.version != 2 && r.version != 3 {
		return fmt.Errorf("unsupported GGUF version: %d (v2 and v3 supported)", r.version)
	}

	var tensorCount, metadataCount uint64
	if err := binary.Read(cr, binary.LittleEndian, &tensorCount); err != nil {
		return fmt.Errorf("failed to read tensor count: %w", err)
	}
	if err := binary.Read(cr, binary.LittleEndian, &metadataCount); err != nil {
		return fmt.Errorf("failed to read metadata count: %w", err)
	}
	if tensorCount > maxGGUFTensors || metadataCount > maxGGUFMetadataKV {
		return fmt.Errorf("implausible header counts: %d tensors, %d metadata entries", tensorCount, metadataCount)
	}

	for i := uint64(0); i < metadataCount; i++ {
		key, value, err := readMetadataKV(cr)
		if err != nil {
			return fmt.Errorf("failed to read metadata[%d]: %w", i, err)
		}
		r.metadata[key] = value
	}
	if a, ok := r.metadata.Uint("general.alignment"); ok {
		if a == 0 || a&(a-1) != 0 {
			return fmt.Errorf("general.alignment %d is not a power of two", a)
		}
		r.alignment = a
	}

	for i := uint64(0); i < tensorCount; i++ {
		info, err := readTensorInfo(cr)
		if err != nil {
			return fmt.Errorf("failed to read tensor info[%d]: %w", i, err)
		}
		if _, dup := r.tensors[info.Name]; dup {
			return fmt.Errorf("duplicate tensor name %q", info.Name)
		}
		r.tensors[info.Name] = info
	}

	r.dataOffset = alignOffset(cr.pos, r.alignment)
	return nil
}

func readString(r io.Reader) (string, error) {
	var length uint64
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	if length > maxGGUFString {
		return "", fmt.Errorf("string length too large: %d", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readMetadataKV(r io.Reader) (string, any, error) {
	key, err := readString(r)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read key: %w", err)
	}

	var valueType GGUFType
	if err := binary.Read(r, binary.LittleEndian, &valueType); err != nil {
		return "", nil, fmt.Errorf("failed to read value type for %s: %w", key, err)
	}

	value, err := readMetadataValue(r, valueType)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read value for %s: %w", key, err)
	}
	return key, value, nil
}

func readScalar[T any](r io.Reader) (T, error) {
	var v T
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readMetadataValue(r io.Reader, valueType GGUFType) (any, error) {
	switch valueType {
	case GGUFTypeUint8:
		return readScalar[uint8](r)
	case GGUFTypeInt8:
		return readScalar[int8](r)
	case GGUFTypeUint16:
		return readScalar[uint16](r)
	case GGUFTypeInt16:
		return readScalar[int16](r)
	case GGUFTypeUint32:
		return readScalar[uint32](r)
	case GGUFTypeInt32:
		return readScalar[int32](r)
	case GGUFTypeFloat32:
		return readScalar[float32](r)
	case GGUFTypeBool:
		return readScalar[bool](r)
	case GGUFTypeString:
		return readString(r)
	case GGUFTypeUint64:
		return readScalar[uint64](r)
	case GGUFTypeInt64:
		return readScalar[int64](r)
	case GGUFTypeFloat64:
		return readScalar[float64](r)
	case GGUFTypeArray:
		return readArray(r)
	default:
		return nil, fmt.Errorf("unknown value type: %d", valueType)
	}
}

func readArray(r io.Reader) ([]any, error) {
	elemType, err := readScalar[GGUFType](r)
	if err != nil {
		return nil, fmt.Errorf("failed to read array type: %w", err)
	}
	count, err := readScalar[uint64](r)
	if err != nil {
		return nil, fmt.Errorf("failed to read array length: %w", err)
	}
	if count > maxGGUFArrayLen {
		return nil, fmt.Errorf("array length too large: %d", count)
	}

	values := make([]any, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := readMetadataValue(r, elemType)
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", i, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func readTensorInfo(r io.Reader) (GGUFTensorInfo, error) {
	var info GGUFTensorInfo

	name, err := readString(r)
	if err != nil {
		return info, fmt.Errorf("failed to read tensor name: %w", err)
	}
	info.Name = name

	nDims, err := readScalar[uint32](r)
	if err != nil {
		return info, fmt.Errorf("failed to read n_dims: %w", err)
	}
	if nDims > maxGGUFDims {
		return info, fmt.Errorf("tensor %s: too many dimensions: %d", name, nDims)
	}

	info.Dims = make([]uint64, nDims)
	for i := range info.Dims {
		if info.Dims[i], err = readScalar[uint64](r); err != nil {
			return info, fmt.Errorf("failed to read dim[%d]: %w", i, err)
		}
	}

	if err := checkElementCount(info.Dims); err != nil {
		return info, fmt.Errorf("tensor %s: %w", name, err)
	}

	if info.DType, err = readScalar[GGUFDType](r); err != nil {
		return info, fmt.Errorf("failed to read dtype: %w", err)
	}
	if info.Offset, err = readScalar[uint64](r); err != nil {
		return info, fmt.Errorf("failed to read offset: %w", err)
	}
	return info, nil
}

// Close closes the GGUF file.
func (r *GGUFReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Version returns the GGUF format version.
func (r *GGUFReader) Version() uint32 {
	return r.version
}

// Alignment returns the data alignment in effect.
func (r *GGUFReader) Alignment() uint64 {
	return r.alignment
}

// Metadata returns the metadata map.
func (r *GGUFReader) Metadata() GGUFMetadata {
	return r.metadata
}

// Architecture returns general.architecture, or "" if absent.
func (r *GGUFReader) Architecture() string {
	arch, _ := r.metadata.String("general.architecture")
	return arch
}

// TensorNames returns all tensor names in sorted order.
func (r *GGUFReader) TensorNames() []string {
	names := make([]string, 0, len(r.tensors))
	for name := range r.tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns the info record for name.
func (r *GGUFReader) TensorInfo(name string) (*GGUFTensorInfo, error) {
	info, ok := r.tensors[name]
	if !ok {
		return nil, fmt.Errorf("tensor %s not found", name)
	}
	return &info, nil
}

// ReadTensorData reads the encoded bytes of tensor name.
func (r *GGUFReader) ReadTensorData(name string) ([]byte, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}

	size, err := tensorByteSize(info)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	start := r.dataOffset + info.Offset
	if start < r.dataOffset || start > r.fileSize || size > r.fileSize-start {
		return nil, fmt.Errorf("tensor %s: data [%d, +%d) exceeds file size %d", name, start, size, r.fileSize)
	}

	if _, err := r.file.Seek(int64(start), io.SeekStart); err != nil { //nolint:gosec // G115: bounded by file size.
		return nil, fmt.Errorf("failed to seek to tensor data: %w", err)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r.file, data); err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	return data, nil
}

// tensorByteSize returns the encoded size of a tensor.
func tensorByteSize(info *GGUFTensorInfo) (uint64, error) {
	n := info.NumElements()
	switch info.DType {
	case GGUFDTypeF32:
		return n * 4, nil
	case GGUFDTypeF16, GGUFDTypeBF16:
		return n * 2, nil
	case GGUFDTypeQ4_0:
		if n%qBlockSize != 0 {
			return 0, fmt.Errorf("%d elements is not a multiple of the Q4_0 block size", n)
		}
		return n / qBlockSize * q4_0BlockBytes, nil
	case GGUFDTypeQ8_0:
		if n%qBlockSize != 0 {
			return 0, fmt.Errorf("%d elements is not a multiple of the Q8_0 block size", n)
		}
		return n / qBlockSize * q8_0BlockBytes, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedDType, info.DType)
	}
}

// LoadTensor reads and decodes tensor name to float32 on device.
func (r *GGUFReader) LoadTensor(name string, device tensor.Device) (*tensor.RawTensor, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	shape := info.Shape()
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}

	data, err := r.ReadTensorData(name)
	if err != nil {
		return nil, err
	}

	switch info.DType {
	case GGUFDTypeF32:
		return tensor.FromBytes(data, shape, tensor.Float32, device)
	case GGUFDTypeF16:
		return tensor.DecodeFloat16(data, shape, device)
	case GGUFDTypeBF16:
		return tensor.DecodeBFloat16(data, shape, device)
	case GGUFDTypeQ8_0:
		return dequantizeQ8_0(data, shape, device)
	case GGUFDTypeQ4_0:
		return dequantizeQ4_0(data, shape, device)
	default:
		return nil, fmt.Errorf("tensor %s: %w: %s", name, ErrUnsupportedDType, info.DType)
	}
}

// ParseGGUF reads and decodes every tensor of a GGUF file.
func ParseGGUF(path string, device tensor.Device) (map[string]*tensor.RawTensor, error) {
	r, err := NewGGUFReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	weights := make(map[string]*tensor.RawTensor, len(r.tensors))
	for _, name := range r.TensorNames() {
		t, err := r.LoadTensor(name, device)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		weights[name] = t
	}
	return weights, nil
}

// alignOffset rounds offset up to a multiple of alignment.
func alignOffset(offset, alignment uint64) uint64 {
	if offset%alignment == 0 {
		return offset
	}
	return offset + (alignment - offset%alignment)
}

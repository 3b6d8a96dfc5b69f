package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/born-ml/paramtree/internal/tensor"
)

// Format represents a weight file format.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatSafeTensors
	FormatGGUF
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatSafeTensors:
		return "SafeTensors"
	case FormatGGUF:
		return "GGUF"
	default:
		return "Unknown"
	}
}

// ErrUnsupportedFormat is wrapped by UnsupportedFormatError.
var ErrUnsupportedFormat = errors.New("unsupported weight file format")

// UnsupportedFormatError reports a path whose extension matches no parser.
type UnsupportedFormatError struct {
	Path string
	Ext  string
}

// Error implements the error interface.
func (e *UnsupportedFormatError) Error() string {
	ext := e.Ext
	if ext == "" {
		ext = "(none)"
	}
	return fmt.Sprintf("unsupported file format %s for %s (expected .safetensors or .gguf)", ext, e.Path)
}

// Unwrap returns ErrUnsupportedFormat.
func (e *UnsupportedFormatError) Unwrap() error { return ErrUnsupportedFormat }

// DetectFormat selects the format from the file extension (case-insensitive).
func DetectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".safetensors":
		return FormatSafeTensors, nil
	case ".gguf":
		return FormatGGUF, nil
	default:
		return FormatUnknown, &UnsupportedFormatError{Path: path, Ext: ext}
	}
}

// Parser reads every tensor of a weight file.
type Parser interface {
	Parse(path string, device tensor.Device) (map[string]*tensor.RawTensor, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(path string, device tensor.Device) (map[string]*tensor.RawTensor, error)

// Parse calls f.
func (f ParserFunc) Parse(path string, device tensor.Device) (map[string]*tensor.RawTensor, error) {
	return f(path, device)
}

var parsers = map[Format]Parser{
	FormatSafeTensors: ParserFunc(ParseSafeTensors),
	FormatGGUF:        ParserFunc(ParseGGUF),
}

// ParserFor returns the parser registered for format.
func ParserFor(format Format) (Parser, error) {
	p, ok := parsers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return p, nil
}

// Load parses the weight file at path into a flat name → tensor mapping placed
// on device. The format is chosen by extension.
func Load(path string, device tensor.Device) (map[string]*tensor.RawTensor, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	p, err := ParserFor(format)
	if err != nil {
		return nil, err
	}
	return p.Parse(path, device)
}

// LoadMapped is Load followed by renaming every tensor through mapper.
// Two source names mapping to the same target name is an error.
func LoadMapped(path string, device tensor.Device, mapper NameMapper) (map[string]*tensor.RawTensor, error) {
	weights, err := Load(path, device)
	if err != nil {
		return nil, err
	}
	if mapper == nil {
		return weights, nil
	}
	return RenameAll(weights, mapper)
}

// RenameAll applies mapper to every key of weights.
func RenameAll(weights map[string]*tensor.RawTensor, mapper NameMapper) (map[string]*tensor.RawTensor, error) {
	renamed := make(map[string]*tensor.RawTensor, len(weights))
	sources := make(map[string]string, len(weights))
	for name, t := range weights {
		mapped, err := mapper.MapName(name)
		if err != nil {
			return nil, fmt.Errorf("map tensor name %s: %w", name, err)
		}
		if prev, ok := sources[mapped]; ok {
			return nil, fmt.Errorf("tensors %q and %q both map to %q", prev, name, mapped)
		}
		sources[mapped] = name
		renamed[mapped] = t
	}
	return renamed, nil
}

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package loader reads model weight files into flat name to tensor mappings.
//
// This package wraps the internal loader and exports the parts needed to read
// SafeTensors and GGUF files outside of a module tree.
//
// Example usage:
//
//	import (
//	    "github.com/born-ml/paramtree/loader"
//	    "github.com/born-ml/paramtree/tensor"
//	)
//
//	// Parse with format detection by extension
//	weights, err := loader.Load("path/to/model.gguf", tensor.CPU)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Rename llama.cpp names to Hugging Face names
//	mapper, err := loader.DetectMapper("path/to/model.gguf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	weights, err = loader.RenameAll(weights, mapper)
package loader

import (
	"github.com/born-ml/paramtree/internal/loader"
	"github.com/born-ml/paramtree/internal/tensor"
)

// Format represents the weight file format.
type Format = loader.Format

// Supported weight file formats.
const (
	FormatUnknown     Format = loader.FormatUnknown
	FormatSafeTensors Format = loader.FormatSafeTensors
	FormatGGUF        Format = loader.FormatGGUF
)

// ErrUnsupportedFormat matches every *UnsupportedFormatError.
var ErrUnsupportedFormat = loader.ErrUnsupportedFormat

// UnsupportedFormatError reports a path whose extension is not recognized.
type UnsupportedFormatError = loader.UnsupportedFormatError

// DetectFormat identifies the format of path from its extension.
func DetectFormat(path string) (Format, error) {
	return loader.DetectFormat(path)
}

// Load parses the weight file at path into a flat mapping placed on device.
//
// Supported formats:
//   - .safetensors (F32, F16, BF16)
//   - .gguf v2 and v3 (F32, F16, BF16, Q8_0, Q4_0)
//
// Half precision and quantized tensors are widened to float32.
func Load(path string, device tensor.Device) (map[string]*tensor.RawTensor, error) {
	return loader.Load(path, device)
}

// LoadMapped is Load followed by renaming every tensor through mapper.
func LoadMapped(path string, device tensor.Device, mapper NameMapper) (map[string]*tensor.RawTensor, error) {
	return loader.LoadMapped(path, device, mapper)
}

// RenameAll applies mapper to every key of weights.
func RenameAll(weights map[string]*tensor.RawTensor, mapper NameMapper) (map[string]*tensor.RawTensor, error) {
	return loader.RenameAll(weights, mapper)
}

// Readers

// SafeTensorsReader gives random access to the tensors of a .safetensors file.
type SafeTensorsReader = loader.SafeTensorsReader

// NewSafeTensorsReader opens a .safetensors file and parses its header.
func NewSafeTensorsReader(path string) (*SafeTensorsReader, error) {
	return loader.NewSafeTensorsReader(path)
}

// GGUFReader gives random access to the metadata and tensors of a .gguf file.
type GGUFReader = loader.GGUFReader

// GGUFMetadata is the key/value section of a GGUF file.
type GGUFMetadata = loader.GGUFMetadata

// NewGGUFReader opens a .gguf file and parses its header.
func NewGGUFReader(path string) (*GGUFReader, error) {
	return loader.NewGGUFReader(path)
}

// Name mapping

// NameMapper renames tensors from a file's naming scheme to module tree paths.
type NameMapper = loader.NameMapper

// IdentityMapper keeps every name unchanged.
type IdentityMapper = loader.IdentityMapper

// GGUFMapper maps llama.cpp tensor names to Hugging Face names.
type GGUFMapper = loader.GGUFMapper

// NewGGUFMapper returns the GGUF mapper for arch.
func NewGGUFMapper(arch string) *GGUFMapper {
	return loader.NewGGUFMapper(arch)
}

// MapperFor returns the mapper for a known architecture ("phi3", "llama", "mistral").
func MapperFor(arch string) (NameMapper, error) {
	return loader.MapperFor(arch)
}

// DetectMapper picks a mapper from the file's format and, for GGUF, its
// general.architecture.
func DetectMapper(path string) (NameMapper, error) {
	return loader.DetectMapper(path)
}

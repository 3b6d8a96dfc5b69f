package loader

import (
	"errors"
	"fmt"
	"strings"
)

// Architecture names as stored in general.architecture.
const (
	ArchitecturePhi3    = "phi3"
	ArchitectureLLaMA   = "llama"
	ArchitectureMistral = "mistral"
)

// ErrUnknownArchitecture is returned by MapperFor for architectures without a mapping.
var ErrUnknownArchitecture = errors.New("unknown architecture")

// NameMapper renames tensors from a file's naming scheme to the module tree's.
type NameMapper interface {
	// MapName returns the module tree path for a file tensor name.
	MapName(name string) (string, error)

	// Architecture returns the architecture the mapping is for.
	Architecture() string
}

// IdentityMapper keeps every name unchanged.
type IdentityMapper struct{}

// MapName returns name.
func (IdentityMapper) MapName(name string) (string, error) { return name, nil }

// Architecture returns "".
func (IdentityMapper) Architecture() string { return "" }

// GGUFMapper maps llama.cpp tensor names to Hugging Face names:
//   - token_embd.weight -> model.embed_tokens.weight
//   - blk.{i}.attn_norm.weight -> model.layers.{i}.input_layernorm.weight
//   - blk.{i}.attn_qkv.weight -> model.layers.{i}.self_attn.qkv_proj.weight
//   - output_norm.weight -> model.norm.weight
//   - output.weight -> lm_head.weight
//
// Names it does not know are passed through unchanged.
type GGUFMapper struct {
	arch   string
	global map[string]string
	block  map[string]string
}

var ggufGlobalNames = map[string]string{
	"token_embd":  "model.embed_tokens",
	"output_norm": "model.norm",
	"output":      "lm_head",
}

var ggufBlockNames = map[string]string{
	"attn_norm":   "input_layernorm",
	"attn_q":      "self_attn.q_proj",
	"attn_k":      "self_attn.k_proj",
	"attn_v":      "self_attn.v_proj",
	"attn_qkv":    "self_attn.qkv_proj",
	"attn_output": "self_attn.o_proj",
	"ffn_norm":    "post_attention_layernorm",
	"ffn_gate":    "mlp.gate_proj",
	"ffn_up":      "mlp.up_proj",
	"ffn_down":    "mlp.down_proj",
}

// phi3 stores the fused gate/up projection under ffn_up.
var phi3BlockOverrides = map[string]string{
	"ffn_up": "mlp.gate_up_proj",
}

// NewGGUFMapper returns the mapper for arch.
func NewGGUFMapper(arch string) *GGUFMapper {
	block := make(map[string]string, len(ggufBlockNames))
	for k, v := range ggufBlockNames {
		block[k] = v
	}
	if arch == ArchitecturePhi3 {
		for k, v := range phi3BlockOverrides {
			block[k] = v
		}
	}
	return &GGUFMapper{arch: arch, global: ggufGlobalNames, block: block}
}

// Architecture returns the architecture the mapper was built for.
func (m *GGUFMapper) Architecture() string {
	return m.arch
}

// MapName converts a llama.cpp tensor name.
func (m *GGUFMapper) MapName(name string) (string, error) {
	base, suffix, ok := cutSuffix(name)
	if !ok {
		return name, nil
	}

	if mapped, ok := m.global[base]; ok {
		return mapped + suffix, nil
	}

	rest, ok := strings.CutPrefix(base, "blk.")
	if !ok {
		return name, nil
	}
	idx, local, ok := strings.Cut(rest, ".")
	if !ok || idx == "" {
		return "", fmt.Errorf("malformed block tensor name %q", name)
	}
	for _, c := range idx {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("malformed block index in %q", name)
		}
	}
	mapped, ok := m.block[local]
	if !ok {
		return name, nil
	}
	return "model.layers." + idx + "." + mapped + suffix, nil
}

// cutSuffix splits "x.weight" or "x.bias" into ("x", ".weight").
func cutSuffix(name string) (string, string, bool) {
	for _, s := range []string{".weight", ".bias"} {
		if base, ok := strings.CutSuffix(name, s); ok {
			return base, s, true
		}
	}
	return "", "", false
}

// MapperFor returns the GGUF name mapper for an architecture.
func MapperFor(arch string) (NameMapper, error) {
	switch arch {
	case ArchitecturePhi3, ArchitectureLLaMA, ArchitectureMistral:
		return NewGGUFMapper(arch), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownArchitecture, arch)
	}
}

// DetectMapper picks a mapper for the weight file at path. SafeTensors files
// already use module tree names and get IdentityMapper. GGUF files are mapped
// by their general.architecture.
func DetectMapper(path string) (NameMapper, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if format != FormatGGUF {
		return IdentityMapper{}, nil
	}

	r, err := NewGGUFReader(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return MapperFor(r.Architecture())
}

package nn

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Phi3Config is the subset of a Hugging Face Phi-3 config.json that determines
// the module tree.
type Phi3Config struct {
	ModelType         string  `json:"model_type"`
	VocabSize         int     `json:"vocab_size"`
	HiddenSize        int     `json:"hidden_size"`
	IntermediateSize  int     `json:"intermediate_size"`
	NumHiddenLayers   int     `json:"num_hidden_layers"`
	NumAttentionHeads int     `json:"num_attention_heads"`
	NumKeyValueHeads  int     `json:"num_key_value_heads"`
	RMSNormEps        float32 `json:"rms_norm_eps"`
	RopeTheta         float64 `json:"rope_theta"`
}

// Phi3Mini4K returns the Phi-3-mini-4k-instruct configuration.
func Phi3Mini4K() Phi3Config {
	return Phi3Config{
		ModelType:         "phi3",
		VocabSize:         32064,
		HiddenSize:        3072,
		IntermediateSize:  8192,
		NumHiddenLayers:   32,
		NumAttentionHeads: 32,
		NumKeyValueHeads:  32,
		RMSNormEps:        1e-5,
		RopeTheta:         10000,
	}
}

// LoadPhi3Config reads a config.json and fills defaults: num_key_value_heads
// falls back to num_attention_heads, rope_theta to 10000 and rms_norm_eps to 1e-5.
func LoadPhi3Config(path string) (Phi3Config, error) {
	//nolint:gosec // G304: path is provided by the caller, reading it is intentional.
	data, err := os.ReadFile(path)
	if err != nil {
		return Phi3Config{}, fmt.Errorf("read model config: %w", err)
	}

	var cfg Phi3Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Phi3Config{}, fmt.Errorf("parse model config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Phi3Config{}, fmt.Errorf("model config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Phi3Config) applyDefaults() {
	if c.NumKeyValueHeads == 0 {
		c.NumKeyValueHeads = c.NumAttentionHeads
	}
	if c.RopeTheta == 0 {
		c.RopeTheta = 10000
	}
	if c.RMSNormEps == 0 {
		c.RMSNormEps = 1e-5
	}
}

// HeadDim returns hidden_size / num_attention_heads.
func (c Phi3Config) HeadDim() int {
	return c.HiddenSize / c.NumAttentionHeads
}

// Validate checks that the sizes describe a buildable model.
func (c Phi3Config) Validate() error {
	var errs []error
	for _, f := range []struct {
		name string
		v    int
	}{
		{"vocab_size", c.VocabSize},
		{"hidden_size", c.HiddenSize},
		{"intermediate_size", c.IntermediateSize},
		{"num_hidden_layers", c.NumHiddenLayers},
		{"num_attention_heads", c.NumAttentionHeads},
		{"num_key_value_heads", c.NumKeyValueHeads},
	} {
		if f.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", f.name, f.v))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if c.HiddenSize%c.NumAttentionHeads != 0 {
		errs = append(errs, fmt.Errorf("hidden_size %d not divisible by num_attention_heads %d",
			c.HiddenSize, c.NumAttentionHeads))
	}
	if c.NumAttentionHeads%c.NumKeyValueHeads != 0 {
		errs = append(errs, fmt.Errorf("num_attention_heads %d not divisible by num_key_value_heads %d",
			c.NumAttentionHeads, c.NumKeyValueHeads))
	}
	if c.HeadDim()%2 != 0 {
		errs = append(errs, fmt.Errorf("head dimension %d must be even for rotary embeddings", c.HeadDim()))
	}
	return errors.Join(errs...)
}

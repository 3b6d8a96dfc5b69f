// Package loader reads model weight files into flat name → tensor mappings.
//
// Two formats are supported, selected by file extension:
//   - SafeTensors (.safetensors): Hugging Face standard, F32/F64/I32/I64/U8/BOOL
//     loaded as-is, F16/BF16 widened to float32
//   - GGUF (.gguf): llama.cpp ecosystem, F32/F16/BF16/Q8_0/Q4_0 decoded to float32
//
// Anything else fails with *UnsupportedFormatError before the file is opened.
//
// Example:
//
//	weights, err := loader.Load("model.safetensors", tensor.CPU)
//	if err != nil {
//	    return err
//	}
//	w := weights["model.layers.0.mlp.down_proj.weight"]
//
// GGUF files use llama.cpp tensor names (blk.0.attn_qkv.weight). LoadMapped with
// a NameMapper renames them to the Hugging Face layout the module tree uses.
package loader

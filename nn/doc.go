// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the module tree: layers that own named tensors and
// sub-layers, flattened into dotted paths and updated from weight files.
//
// # Overview
//
// This package contains:
//   - Tree: Module, Slot, Component, Layer, RegisterList
//   - Layers: Linear, RMSNorm, Embedding, RoPE, SiLU, ReLU, MLP, Sequential
//   - Models: Phi3Model, Phi3ForCausalLM
//   - Weights: Flatten, Update, LoadWeights, DumpParameters
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/paramtree/nn"
//	    "github.com/born-ml/paramtree/tensor"
//	)
//
//	func main() {
//	    model := nn.NewModule()
//	    if err := model.RegisterModule("fc1", nn.NewLinear(784, 100, false, tensor.CPU)); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    view, _ := nn.Flatten(model)
//	    fmt.Println(view.Tensor("fc1.weight").Shape()) // [784, 100]
//	}
//
// # Custom Layers
//
// A layer embeds *Module and registers what it owns in its constructor:
//
//	type Block struct {
//	    *nn.Module
//	    scale *nn.Slot
//	    proj  *nn.Linear
//	}
//
//	func NewBlock(dim int) (*Block, error) {
//	    b := &Block{Module: nn.NewModule(), proj: nn.NewLinear(dim, dim, true, tensor.CPU)}
//	    var err error
//	    if b.scale, err = b.RegisterParameter("scale", tensor.Ones(tensor.Shape{dim}, tensor.CPU)); err != nil {
//	        return nil, err
//	    }
//	    return b, b.RegisterModule("proj", b.proj)
//	}
//
// Parameters come first in a flattened view, then buffers, then each child in
// registration order: scale, proj.weight, proj.bias.
//
// # Loading Weights
//
//	cfg, _ := nn.ConfigFromEnv()
//	report, err := nn.LoadWeights(model, "model.safetensors", cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	nn.PrintReport(os.Stdout, report)
//
// Unknown keys and shape mismatches are reported per key and never abort the
// merge. GGUF files can be renamed to Hugging Face paths with
// nn.WithDetectedMapper().
package nn

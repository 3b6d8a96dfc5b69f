// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"io"

	"github.com/born-ml/paramtree/internal/nn"
	"github.com/born-ml/paramtree/internal/tensor"
)

// Module is a node of the module tree.
type Module = nn.Module

// Component is anything that owns a node in the module tree.
type Component = nn.Component

// Layer is a Component with a forward computation.
type Layer = nn.Layer

// Slot is a stable handle to one named tensor.
type Slot = nn.Slot

// Kind distinguishes parameters from buffers.
type Kind = nn.Kind

// Slot kinds.
const (
	KindParameter = nn.KindParameter
	KindBuffer    = nn.KindBuffer
)

// NewModule creates an empty module.
func NewModule() *Module {
	return nn.NewModule()
}

// RegisterList registers children under prefix as prefix.0, prefix.1, ...
//
// Example:
//
//	blocks := []*nn.Linear{nn.NewLinear(8, 8, true, tensor.CPU), nn.NewLinear(8, 8, true, tensor.CPU)}
//	err := nn.RegisterList(model.Node(), "blocks", blocks) // blocks.0.weight, blocks.1.weight, ...
func RegisterList[C Component](m *Module, prefix string, children []C) error {
	return nn.RegisterList(m, prefix, children)
}

// JoinName builds a dotted path from a parent prefix and a local name.
func JoinName(prefix, local string) string {
	return nn.JoinName(prefix, local)
}

// Flattening

// StateView maps every dotted path in a tree to its slot.
type StateView = nn.StateView

// NamedSlot is a slot with its dotted path, in walk order.
type NamedSlot = nn.NamedSlot

// Flatten builds a fresh path to slot view of the tree rooted at c.
func Flatten(c Component) (StateView, error) {
	return nn.Flatten(c)
}

// NamedSlots returns every slot of the tree in walk order.
func NamedSlots(c Component) ([]NamedSlot, error) {
	return nn.NamedSlots(c)
}

// Updating

// UpdateReport is the per-key outcome of Update and LoadWeights.
type UpdateReport = nn.UpdateReport

// ShapeMismatch describes one incoming tensor rejected for its shape.
type ShapeMismatch = nn.ShapeMismatch

// Update merges incoming tensors into the tree by full dotted path.
func Update(c Component, incoming map[string]*tensor.RawTensor) (*UpdateReport, error) {
	return nn.Update(c, incoming)
}

// Errors and warnings.
var (
	ErrDuplicateName  = nn.ErrDuplicateName
	ErrDuplicateLabel = nn.ErrDuplicateLabel
	ErrInvalidName    = nn.ErrInvalidName
	ErrNilTensor      = nn.ErrNilTensor
	ErrNilModule      = nn.ErrNilModule
	ErrAlreadyOwned   = nn.ErrAlreadyOwned
	ErrCycle          = nn.ErrCycle
	ErrPathCollision  = nn.ErrPathCollision
	ErrShapeContract  = nn.ErrShapeContract
	ErrUnknownKey     = nn.ErrUnknownKey
	ErrShapeMismatch  = nn.ErrShapeMismatch
)

// Error types returned by registration, flattening and forward passes.
type (
	DuplicateNameError   = nn.DuplicateNameError
	DuplicateLabelError  = nn.DuplicateLabelError
	PathCollisionError   = nn.PathCollisionError
	ShapeContractError   = nn.ShapeContractError
	UnknownKeyWarning    = nn.UnknownKeyWarning
	ShapeMismatchWarning = nn.ShapeMismatchWarning
)

// Layers

// Linear is a fully connected layer with weight [in, out] and optional bias [out].
type Linear = nn.Linear

// NewLinear creates a Linear layer with Xavier initialization.
func NewLinear(inFeatures, outFeatures int, withBias bool, device tensor.Device) *Linear {
	return nn.NewLinear(inFeatures, outFeatures, withBias, device)
}

// RMSNorm is root mean square normalization with a learned scale.
type RMSNorm = nn.RMSNorm

// NewRMSNorm creates an RMSNorm layer.
func NewRMSNorm(dims int, eps float32, device tensor.Device) *RMSNorm {
	return nn.NewRMSNorm(dims, eps, device)
}

// Embedding is a token embedding table.
type Embedding = nn.Embedding

// NewEmbedding creates an Embedding layer.
func NewEmbedding(numEmbeddings, dims int, device tensor.Device) *Embedding {
	return nn.NewEmbedding(numEmbeddings, dims, device)
}

// RoPE holds rotary position frequencies as the buffer inv_freq.
type RoPE = nn.RoPE

// NewRoPE creates a RoPE module.
func NewRoPE(dims int, base float64, device tensor.Device) *RoPE {
	return nn.NewRoPE(dims, base, device)
}

// SiLU is the sigmoid linear unit activation.
type SiLU = nn.SiLU

// NewSiLU creates a SiLU activation layer.
func NewSiLU() *SiLU {
	return nn.NewSiLU()
}

// ReLU is the rectified linear unit activation.
type ReLU = nn.ReLU

// NewReLU creates a ReLU activation layer.
func NewReLU() *ReLU {
	return nn.NewReLU()
}

// MLP is a gated feed-forward block with fused gate_up_proj and down_proj.
type MLP = nn.MLP

// NewMLP creates an MLP block.
func NewMLP(dim, hidden int, device tensor.Device) *MLP {
	return nn.NewMLP(dim, hidden, device)
}

// Sequential chains layers registered as "0", "1", ...
type Sequential = nn.Sequential

// NewSequential creates a Sequential container.
//
// Example:
//
//	model, err := nn.NewSequential(
//	    nn.NewLinear(784, 128, true, tensor.CPU),
//	    nn.NewReLU(),
//	    nn.NewLinear(128, 10, true, tensor.CPU),
//	)
func NewSequential(layers ...Layer) (*Sequential, error) {
	return nn.NewSequential(layers...)
}

// Xavier returns a uniformly initialized float32 tensor.
func Xavier(fanIn, fanOut int, shape tensor.Shape, device tensor.Device) *tensor.RawTensor {
	return nn.Xavier(fanIn, fanOut, shape, device)
}

// Inspection

// NamedTensor is one entry of DumpParameters.
type NamedTensor = nn.NamedTensor

// DumpParameters returns every tensor of the tree with its path, in walk order.
func DumpParameters(c Component) ([]NamedTensor, error) {
	return nn.DumpParameters(c)
}

// PrintParameters writes a table of every tensor in the tree.
func PrintParameters(w io.Writer, c Component) error {
	return nn.PrintParameters(w, c)
}

// PrintReport writes the outcome of a merge.
func PrintReport(w io.Writer, r *UpdateReport) error {
	return nn.PrintReport(w, r)
}

package nn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/born-ml/paramtree/internal/tensor"
)

// Common errors.
var (
	ErrDuplicateName  = errors.New("duplicate tensor name")
	ErrDuplicateLabel = errors.New("duplicate module label")
	ErrInvalidName    = errors.New("invalid name")
	ErrNilTensor      = errors.New("nil tensor")
	ErrNilModule      = errors.New("nil module")
	ErrAlreadyOwned   = errors.New("module already has a parent")
	ErrCycle          = errors.New("module cannot own itself or an ancestor")
	ErrPathCollision  = errors.New("flattened path collision")
	ErrShapeContract  = errors.New("shape contract violated")
	ErrUnknownKey     = errors.New("unknown key")
	ErrShapeMismatch  = errors.New("shape mismatch")
)

func moduleName(label string) string {
	if label == "" {
		return "<root>"
	}
	return label
}

// DuplicateNameError reports a parameter or buffer registered twice under the
// same name in one module.
type DuplicateNameError struct {
	Module string
	Kind   Kind
	Name   string
}

// Error implements the error interface.
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("module %s: %s %q already registered", moduleName(e.Module), e.Kind, e.Name)
}

// Unwrap returns ErrDuplicateName.
func (e *DuplicateNameError) Unwrap() error { return ErrDuplicateName }

// DuplicateLabelError reports a child module registered twice under the same label.
type DuplicateLabelError struct {
	Module string
	Label  string
}

// Error implements the error interface.
func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("module %s: child %q already registered", moduleName(e.Module), e.Label)
}

// Unwrap returns ErrDuplicateLabel.
func (e *DuplicateLabelError) Unwrap() error { return ErrDuplicateLabel }

// PathCollisionError reports two distinct tensors flattening to the same path.
type PathCollisionError struct {
	Path string
}

// Error implements the error interface.
func (e *PathCollisionError) Error() string {
	return fmt.Sprintf("two tensors flatten to path %q", e.Path)
}

// Unwrap returns ErrPathCollision.
func (e *PathCollisionError) Unwrap() error { return ErrPathCollision }

// ShapeContractError is returned by a layer's Forward when the input's trailing
// dimension does not match the stored weight.
type ShapeContractError struct {
	Layer  string
	Input  tensor.Shape
	Weight tensor.Shape
}

// Error implements the error interface.
func (e *ShapeContractError) Error() string {
	return fmt.Sprintf("%s: input %v does not match weight %v", e.Layer, e.Input, e.Weight)
}

// Unwrap returns ErrShapeContract.
func (e *ShapeContractError) Unwrap() error { return ErrShapeContract }

// UnknownKeyWarning reports an incoming tensor with no matching path.
type UnknownKeyWarning struct {
	Name string
}

// Error implements the error interface.
func (w *UnknownKeyWarning) Error() string {
	return fmt.Sprintf("no tensor at path %q", w.Name)
}

// Unwrap returns ErrUnknownKey.
func (w *UnknownKeyWarning) Unwrap() error { return ErrUnknownKey }

// ShapeMismatch records an incoming tensor whose shape differs from the slot it targets.
type ShapeMismatch struct {
	Name     string
	Expected tensor.Shape
	Got      tensor.Shape
}

// ShapeMismatchWarning reports a rejected incoming tensor.
type ShapeMismatchWarning struct {
	ShapeMismatch
}

// Error implements the error interface.
func (w *ShapeMismatchWarning) Error() string {
	got := "nil"
	if w.Got != nil {
		got = w.Got.String()
	}
	return fmt.Sprintf("shape mismatch for %q: expected %v, got %s", w.Name, w.Expected, got)
}

// Unwrap returns ErrShapeMismatch.
func (w *ShapeMismatchWarning) Unwrap() error { return ErrShapeMismatch }

func invalidName(what, name string) error {
	return fmt.Errorf("%w: %s %q (must be non-empty with no empty dot-separated segments)",
		ErrInvalidName, what, strings.TrimSpace(name))
}

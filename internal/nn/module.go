// Package nn implements the module tree for paramtree.
//
// A Module owns named parameter tensors, named buffer tensors and labelled child
// modules. Layers embed *Module and register their tensors and sub-layers during
// construction; the resulting tree can then be flattened into a single
// dotted-path view and updated in place from external weight files.
//
//	root := nn.NewModule()
//	fc := nn.NewLinear(4, 3, true, tensor.CPU)
//	if err := root.RegisterModule("fc", fc); err != nil {
//	    return err
//	}
//	view, _ := nn.Flatten(root) // {"fc.weight": [4, 3], "fc.bias": [3]}
package nn

import (
	"reflect"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/born-ml/paramtree/internal/logger"
	"github.com/born-ml/paramtree/internal/tensor"
)

// Component is anything that owns a node in the module tree. Every layer embeds
// *Module and therefore satisfies Component through the promoted Node method.
type Component interface {
	Node() *Module
}

// Layer is a Component with a forward computation.
type Layer interface {
	Component

	// Forward computes the output of the layer for input x.
	// Shape violations are returned as *ShapeContractError.
	Forward(x *tensor.RawTensor) (*tensor.RawTensor, error)
}

// Module is a node of the module tree.
//
// Registration is a single-threaded setup phase: a Module is not safe for
// concurrent mutation, but may be read concurrently once assembly and weight
// loading are done.
type Module struct {
	label      string
	parent     *Module
	parameters *orderedmap.OrderedMap[string, *Slot]
	buffers    *orderedmap.OrderedMap[string, *Slot]
	children   *orderedmap.OrderedMap[string, *Module]
}

// NewModule creates an empty module. The zero Module is also ready to use.
func NewModule() *Module {
	m := &Module{}
	m.init()
	return m
}

func (m *Module) init() {
	if m.parameters == nil {
		m.parameters = orderedmap.New[string, *Slot]()
	}
	if m.buffers == nil {
		m.buffers = orderedmap.New[string, *Slot]()
	}
	if m.children == nil {
		m.children = orderedmap.New[string, *Module]()
	}
}

// Node returns m itself, so that types embedding *Module satisfy Component.
func (m *Module) Node() *Module {
	return m
}

// Label returns the label assigned by the parent, or "" for a root.
func (m *Module) Label() string {
	return m.label
}

// Parent returns the owning module, or nil for a root.
func (m *Module) Parent() *Module {
	return m.parent
}

// RegisterParameter stores t under name in the parameter namespace and returns
// the slot holding it. Registering a name twice fails with *DuplicateNameError.
func (m *Module) RegisterParameter(name string, t *tensor.RawTensor) (*Slot, error) {
	return m.register(m.params(), KindParameter, name, t)
}

// RegisterBuffer stores t under name in the buffer namespace and returns the slot
// holding it. Buffers are loadable state that is not trained.
func (m *Module) RegisterBuffer(name string, t *tensor.RawTensor) (*Slot, error) {
	return m.register(m.bufs(), KindBuffer, name, t)
}

func (m *Module) register(slots *orderedmap.OrderedMap[string, *Slot], kind Kind, name string, t *tensor.RawTensor) (*Slot, error) {
	if !validName(name) {
		return nil, invalidName(kind.String()+" name", name)
	}
	if t == nil {
		return nil, ErrNilTensor
	}
	if _, ok := slots.Get(name); ok {
		return nil, &DuplicateNameError{Module: m.label, Kind: kind, Name: name}
	}

	slot := &Slot{name: name, kind: kind, tensor: t}
	slots.Set(name, slot)
	return slot, nil
}

// RegisterModule attaches child under label and takes ownership of it.
//
// It fails with *DuplicateLabelError if label is taken, ErrAlreadyOwned if the
// child already has a parent, and ErrCycle if the child is m or one of its ancestors.
func (m *Module) RegisterModule(label string, child Component) error {
	node := nodeOf(child)
	if node == nil {
		return ErrNilModule
	}
	if !validName(label) {
		return invalidName("module label", label)
	}

	if _, ok := m.kids().Get(label); ok {
		return &DuplicateLabelError{Module: m.label, Label: label}
	}
	if node.parent != nil {
		return ErrAlreadyOwned
	}
	for p := m; p != nil; p = p.parent {
		if p == node {
			return ErrCycle
		}
	}

	node.label = label
	node.parent = m
	m.kids().Set(label, node)

	logger.Log.Debug("registered module", "parent", moduleName(m.label), "label", label)
	return nil
}

// nodeOf returns the tree node of c, or nil when c is nil or a typed nil
// pointer whose promoted Node method would dereference nil.
func nodeOf(c Component) *Module {
	if c == nil {
		return nil
	}
	if v := reflect.ValueOf(c); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	return c.Node()
}

// detach removes the children registered under labels and clears their
// ownership so they can be registered again.
func (m *Module) detach(labels []string) {
	for _, label := range labels {
		if node, ok := m.kids().Delete(label); ok {
			node.label = ""
			node.parent = nil
		}
	}
}

// RegisterModules registers children in order under IndexedLabel(prefix, i).
// It stops at the first failure and detaches the children it registered, so
// m is left as it was.
func (m *Module) RegisterModules(prefix string, children []Component) error {
	labels := make([]string, 0, len(children))
	for i, child := range children {
		label := IndexedLabel(prefix, i)
		if err := m.RegisterModule(label, child); err != nil {
			m.detach(labels)
			return err
		}
		labels = append(labels, label)
	}
	return nil
}

// RegisterList is RegisterModules for a typed slice of layers.
//
//	blocks := []*nn.TransformerBlock{...}
//	err := nn.RegisterList(model, "layers", blocks) // layers.0, layers.1, ...
func RegisterList[C Component](m *Module, prefix string, children []C) error {
	components := make([]Component, len(children))
	for i, c := range children {
		components[i] = c
	}
	return m.RegisterModules(prefix, components)
}

// Parameter returns the parameter slot registered under name.
func (m *Module) Parameter(name string) (*Slot, bool) {
	return m.params().Get(name)
}

// Buffer returns the buffer slot registered under name.
func (m *Module) Buffer(name string) (*Slot, bool) {
	return m.bufs().Get(name)
}

// Child returns the child module registered under label.
func (m *Module) Child(label string) (*Module, bool) {
	return m.kids().Get(label)
}

// Children returns the child labels in registration order.
func (m *Module) Children() []string {
	labels := make([]string, 0, m.kids().Len())
	for pair := m.kids().Oldest(); pair != nil; pair = pair.Next() {
		labels = append(labels, pair.Key)
	}
	return labels
}

// NumParameters returns the number of parameters owned directly by m.
func (m *Module) NumParameters() int {
	return m.params().Len()
}

// NumBuffers returns the number of buffers owned directly by m.
func (m *Module) NumBuffers() int {
	return m.bufs().Len()
}

// NumTensors returns the number of parameters and buffers owned anywhere in the
// subtree rooted at m.
func (m *Module) NumTensors() int {
	n := m.params().Len() + m.bufs().Len()
	for pair := m.kids().Oldest(); pair != nil; pair = pair.Next() {
		n += pair.Value.NumTensors()
	}
	return n
}

func (m *Module) params() *orderedmap.OrderedMap[string, *Slot] {
	m.init()
	return m.parameters
}

func (m *Module) bufs() *orderedmap.OrderedMap[string, *Slot] {
	m.init()
	return m.buffers
}

func (m *Module) kids() *orderedmap.OrderedMap[string, *Module] {
	m.init()
	return m.children
}

// mustSlot unwraps a registration made by a layer constructor with constant,
// distinct names; failure there is a programming error.
func mustSlot(s *Slot, err error) *Slot {
	if err != nil {
		panic(err)
	}
	return s
}

// must panics on a registration error from a layer constructor.
func must(err error) {
	if err != nil {
		panic(err)
	}
}

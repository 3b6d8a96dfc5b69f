package nn

import (
	"github.com/born-ml/paramtree/internal/logger"
	"github.com/born-ml/paramtree/internal/tensor"
)

// StateView maps every full dotted path in a module tree to the slot holding
// that tensor. Values alias the module's own slots.
type StateView map[string]*Slot

// Tensor returns the tensor at path, or nil if the path is absent.
func (v StateView) Tensor(path string) *tensor.RawTensor {
	if slot, ok := v[path]; ok {
		return slot.Tensor()
	}
	return nil
}

// NamedSlot pairs a full dotted path with its slot.
type NamedSlot struct {
	Path string
	Slot *Slot
}

// Flatten walks the tree rooted at c and returns a new StateView holding one
// entry per parameter and buffer. The view is rebuilt from scratch on every call.
//
// Two tensors mapping to the same path (for example a parameter named
// "fc.weight" next to a child "fc" owning "weight") is reported as
// *PathCollisionError instead of letting one silently shadow the other.
func Flatten(c Component) (StateView, error) {
	slots, err := NamedSlots(c)
	if err != nil {
		return nil, err
	}

	view := make(StateView, len(slots))
	for _, ns := range slots {
		view[ns.Path] = ns.Slot
	}
	return view, nil
}

// NamedSlots is Flatten in walk order: a module's parameters, then its buffers,
// then each child subtree, all in registration order.
func NamedSlots(c Component) ([]NamedSlot, error) {
	m := c.Node()
	out := make([]NamedSlot, 0, m.NumTensors())
	seen := make(map[string]struct{}, cap(out))

	if err := m.walk("", func(path string, slot *Slot) error {
		if _, dup := seen[path]; dup {
			return &PathCollisionError{Path: path}
		}
		seen[path] = struct{}{}
		out = append(out, NamedSlot{Path: path, Slot: slot})
		return nil
	}); err != nil {
		return nil, err
	}

	logger.Log.Debug("flattened module tree", "root", moduleName(m.label), "tensors", len(out))
	return out, nil
}

func (m *Module) walk(prefix string, emit func(path string, slot *Slot) error) error {
	for pair := m.params().Oldest(); pair != nil; pair = pair.Next() {
		if err := emit(JoinName(prefix, pair.Key), pair.Value); err != nil {
			return err
		}
	}
	for pair := m.bufs().Oldest(); pair != nil; pair = pair.Next() {
		if err := emit(JoinName(prefix, pair.Key), pair.Value); err != nil {
			return err
		}
	}
	for pair := m.kids().Oldest(); pair != nil; pair = pair.Next() {
		if err := pair.Value.walk(JoinName(prefix, pair.Key), emit); err != nil {
			return err
		}
	}
	return nil
}

// StateDict returns the current tensor at every path of the tree rooted at m.
func (m *Module) StateDict() (map[string]*tensor.RawTensor, error) {
	view, err := Flatten(m)
	if err != nil {
		return nil, err
	}

	stateDict := make(map[string]*tensor.RawTensor, len(view))
	for path, slot := range view {
		stateDict[path] = slot.Tensor()
	}
	return stateDict, nil
}

package nn

import (
	"sort"

	"github.com/born-ml/paramtree/internal/logger"
	"github.com/born-ml/paramtree/internal/tensor"
)

// UpdateReport is the per-key outcome of Update.
type UpdateReport struct {
	// Updated lists the paths whose tensors were replaced.
	Updated []string
	// Unknown lists incoming names with no matching path; nothing was changed for them.
	Unknown []string
	// ShapeMismatches lists incoming tensors rejected because their shape differs
	// from the slot they target; those slots were left unchanged.
	ShapeMismatches []ShapeMismatch
	// Missing lists paths in the tree that the incoming mapping did not mention.
	Missing []string
}

// Complete reports whether every incoming tensor was applied and every path in
// the tree received one.
func (r *UpdateReport) Complete() bool {
	return len(r.Unknown) == 0 && len(r.ShapeMismatches) == 0 && len(r.Missing) == 0
}

// Warnings returns the rejected keys as *UnknownKeyWarning and
// *ShapeMismatchWarning values, unknown keys first.
func (r *UpdateReport) Warnings() []error {
	warnings := make([]error, 0, len(r.Unknown)+len(r.ShapeMismatches))
	for _, name := range r.Unknown {
		warnings = append(warnings, &UnknownKeyWarning{Name: name})
	}
	for _, sm := range r.ShapeMismatches {
		warnings = append(warnings, &ShapeMismatchWarning{sm})
	}
	return warnings
}

// Update merges incoming into the tree rooted at c by full dotted path.
//
// Each key is handled independently and in sorted order: an unknown key or a
// shape mismatch is recorded in the report and leaves that slot untouched, and
// never prevents other keys from being applied. The returned error is non-nil
// only when the tree itself cannot be flattened, in which case nothing changes.
//
// A matching key replaces the tensor held by the slot, so the new tensor is seen
// through the owning module, every StateView and every layer holding the slot.
func Update(c Component, incoming map[string]*tensor.RawTensor) (*UpdateReport, error) {
	current, err := Flatten(c)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(incoming))
	for name := range incoming {
		names = append(names, name)
	}
	sort.Strings(names)

	report := &UpdateReport{}
	for _, name := range names {
		t := incoming[name]
		slot, ok := current[name]
		switch {
		case !ok:
			report.Unknown = append(report.Unknown, name)
			logger.Log.Warn("no tensor at path", "name", name)
		case t == nil || !slot.Shape().Equal(t.Shape()):
			sm := ShapeMismatch{Name: name, Expected: slot.Shape().Clone()}
			if t != nil {
				sm.Got = t.Shape().Clone()
			}
			report.ShapeMismatches = append(report.ShapeMismatches, sm)
			logger.Log.Warn("shape mismatch", "name", name, "expected", sm.Expected.String(), "got", shapeString(sm.Got))
		default:
			slot.tensor = t
			report.Updated = append(report.Updated, name)
		}
	}

	for path := range current {
		if _, ok := incoming[path]; !ok {
			report.Missing = append(report.Missing, path)
		}
	}
	sort.Strings(report.Missing)

	logger.Log.Debug("merged weights",
		"updated", len(report.Updated),
		"unknown", len(report.Unknown),
		"shape_mismatch", len(report.ShapeMismatches),
		"missing", len(report.Missing))

	return report, nil
}

func shapeString(s tensor.Shape) string {
	if s == nil {
		return "nil"
	}
	return s.String()
}

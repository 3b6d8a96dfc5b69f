package nn

import (
	"strconv"
	"strings"
)

// JoinName builds a dotted path from a parent prefix and a local name.
// An empty prefix yields local unchanged.
func JoinName(prefix, local string) string {
	if prefix == "" {
		return local
	}
	return prefix + "." + local
}

// IndexedLabel returns the label of the i-th element of a module list
// registered under prefix, e.g. IndexedLabel("layers", 2) == "layers.2".
func IndexedLabel(prefix string, i int) string {
	return prefix + "." + strconv.Itoa(i)
}

// validName reports whether name can be used as a tensor name or module label.
// Dots are allowed as separators (indexed labels contain them), but empty
// segments would make the resulting paths ambiguous.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, seg := range strings.Split(name, ".") {
		if seg == "" {
			return false
		}
	}
	return true
}

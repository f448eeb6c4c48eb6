package querywire

import (
	"strings"

	"github.com/roach88/flexiq/internal/queryir"
)

// selectionSuffixes are the write-side property annotations that the
// service rejects inside detail=custom. First match wins.
var selectionSuffixes = []string{
	"@removeAll",
	"@showAs",
	"@action",
	"@ref",
	"@encoding",
}

// EscapeField strips a known annotation suffix from a property name.
// Names without a known suffix are returned unchanged.
func EscapeField(name string) string {
	for _, suffix := range selectionSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// EscapeSelection renders a selection tree for detail=custom.
//
// Every name is escaped with EscapeField, nested trees render as
// name(child,child), and entries that render identically after escaping
// are collapsed, keeping the first occurrence.
func EscapeSelection(t queryir.SelectionTree) string {
	return strings.Join(escapeSelection(t), ",")
}

func escapeSelection(t queryir.SelectionTree) []string {
	out := make([]string, 0, len(t))
	seen := make(map[string]bool, len(t))
	for _, n := range t {
		item := EscapeField(n.Name)
		if !n.IsLeaf() {
			item += "(" + strings.Join(escapeSelection(n.Children), ",") + ")"
		}
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

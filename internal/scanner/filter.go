package scanner

import "strings"

// Filter decides which children of the root are shown.
// Hidden names and reserved system directories are never eligible.
type Filter struct {
	denied map[string]struct{}
}

// NewFilter builds a filter denying the reserved names plus any
// app-specific exclusions.
func NewFilter(reserved, exclude []string) *Filter {
	f := &Filter{denied: make(map[string]struct{}, len(reserved)+len(exclude))}
	for _, name := range reserved {
		f.denied[name] = struct{}{}
	}
	for _, name := range exclude {
		f.denied[name] = struct{}{}
	}
	return f
}

// IsEligible reports whether a child name may appear in the listing
func (f *Filter) IsEligible(name string) bool {
	if name == "" || IsHiddenName(name) {
		return false
	}
	if _, denied := f.denied[name]; denied {
		return false
	}
	return true
}

// IsHiddenName reports whether name follows the dot-prefix hidden convention
func IsHiddenName(name string) bool {
	return strings.HasPrefix(name, ".")
}

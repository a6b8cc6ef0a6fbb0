// Package sorting orders explorer entries by name or by size.
package sorting

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/fenilsonani/folder-cleaner/internal/scanner"
)

// Mode selects the ordering policy. The stored integer values are stable.
type Mode int

const (
	ByName Mode = 0
	BySize Mode = 1
)

// Next returns the mode that follows m: ByName, BySize, ByName, ...
func (m Mode) Next() Mode {
	switch m {
	case ByName:
		return BySize
	case BySize:
		return ByName
	default:
		return ByName
	}
}

// Valid reports whether m is one of the defined modes
func (m Mode) Valid() bool {
	return m == ByName || m == BySize
}

func (m Mode) String() string {
	switch m {
	case ByName:
		return "name"
	case BySize:
		return "size"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "name" or "size"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name", "alphabet":
		return ByName, nil
	case "size":
		return BySize, nil
	default:
		return ByName, fmt.Errorf("unknown sort mode %q (want name or size)", s)
	}
}

// Sorter orders entries using a collator for the configured language
type Sorter struct {
	tag language.Tag
}

// New creates a Sorter for a BCP 47 language tag. An empty or unparsable
// tag falls back to the root collation order.
func New(lang string) *Sorter {
	tag, err := language.Parse(lang)
	if err != nil || lang == "" {
		tag = language.Und
	}
	return &Sorter{tag: tag}
}

// Sort returns a new slice ordered by mode. ByName is ascending by collation
// of RelPath, BySize is descending by Size. Both are stable.
func (s *Sorter) Sort(entries []scanner.Entry, mode Mode) []scanner.Entry {
	out := scanner.Clone(entries)
	if out == nil {
		out = []scanner.Entry{}
	}

	switch mode {
	case BySize:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Size > out[j].Size
		})
	default:
		// collate.Collator keeps internal buffers and is not safe for concurrent use
		col := collate.New(s.tag)
		sort.SliceStable(out, func(i, j int) bool {
			return col.CompareString(out[i].RelPath, out[j].RelPath) < 0
		})
	}

	return out
}

// Sort orders entries with the root collation
func Sort(entries []scanner.Entry, mode Mode) []scanner.Entry {
	return New("").Sort(entries, mode)
}

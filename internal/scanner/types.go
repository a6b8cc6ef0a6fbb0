package scanner

// Entry represents one immediate child of the storage root
type Entry struct {
	RelPath  string `json:"path" yaml:"path"` // Root-relative, no leading separator
	Size     int64  `json:"size" yaml:"size"` // Recursive byte total for directories
	IsDir    bool   `json:"is_dir" yaml:"is_dir"`
	IsHidden bool   `json:"is_hidden" yaml:"is_hidden"`
	Selected bool   `json:"selected" yaml:"selected"`
}

// TotalSize sums the sizes of the given entries
func TotalSize(entries []Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total
}

// SelectedPaths returns the RelPath of every selected entry, in list order
func SelectedPaths(entries []Entry) []string {
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Selected {
			paths = append(paths, e.RelPath)
		}
	}
	return paths
}

// Clone returns a copy of entries that callers may mutate freely
func Clone(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

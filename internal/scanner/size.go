package scanner

import (
	"os"
	"path/filepath"
)

// SizeOf returns the bytes stored under path. A file contributes its length,
// a directory the sum of every file below it. Symbolic links are not
// followed and contribute nothing. Directories that cannot be listed, or
// vanish mid-walk, contribute zero.
func SizeOf(path string) int64 {
	info, err := os.Lstat(path)
	if err != nil {
		return 0
	}

	switch {
	case info.Mode().IsRegular():
		return info.Size()
	case info.IsDir():
		return dirSize(path, info)
	default:
		return 0
	}
}

// dirSize walks a directory tree with an explicit stack.
func dirSize(root string, rootInfo os.FileInfo) int64 {
	var total int64

	visited := make(map[fileID]struct{})
	if id, ok := fileIdentity(rootInfo); ok {
		visited[id] = struct{}{}
	}

	stack := []string{root}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil && len(entries) == 0 {
			// Permission denied or gone - skip and continue
			continue
		}

		for _, d := range entries {
			// Lstat semantics: the type bits come from the directory entry itself
			if d.Type()&os.ModeSymlink != 0 {
				continue
			}

			info, err := d.Info()
			if err != nil {
				continue
			}

			if info.IsDir() {
				if id, ok := fileIdentity(info); ok {
					if _, seen := visited[id]; seen {
						continue
					}
					visited[id] = struct{}{}
				}
				stack = append(stack, filepath.Join(dir, d.Name()))
				continue
			}

			if info.Mode().IsRegular() {
				total += info.Size()
			}
		}
	}

	return total
}

// Package testutil provides fixtures for folder-cleaner tests.
// All file operations happen under t.TempDir() so tests never touch real storage.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// MiB is one mebibyte, the unit most size assertions are phrased in.
const MiB = 1024 * 1024

// TestFixture is a storage root populated per test
type TestFixture struct {
	T       *testing.T
	RootDir string // Storage root (auto-cleaned)
}

// NewFixture creates an empty storage root
func NewFixture(t *testing.T) *TestFixture {
	t.Helper()
	return &TestFixture{T: t, RootDir: t.TempDir()}
}

// =============================================================================
// File Creation Helpers
// =============================================================================

// CreateFile creates a file with specified content and returns its path
func (f *TestFixture) CreateFile(relPath string, content []byte) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullPath, err)
	}
	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		f.T.Fatalf("failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateSizedFile creates a zero-filled file of exactly size bytes
func (f *TestFixture) CreateSizedFile(relPath string, size int) string {
	f.T.Helper()
	return f.CreateFile(relPath, make([]byte, size))
}

// CreateDir creates a directory and returns its path
func (f *TestFixture) CreateDir(relPath string) string {
	f.T.Helper()

	fullPath := filepath.Join(f.RootDir, relPath)
	if err := os.MkdirAll(fullPath, 0755); err != nil {
		f.T.Fatalf("failed to create directory %s: %v", fullPath, err)
	}

	return fullPath
}

// CreateSymlink creates a symbolic link at linkPath pointing to target
func (f *TestFixture) CreateSymlink(target, linkPath string) string {
	f.T.Helper()

	fullLinkPath := filepath.Join(f.RootDir, linkPath)
	if err := os.MkdirAll(filepath.Dir(fullLinkPath), 0755); err != nil {
		f.T.Fatalf("failed to create directory for %s: %v", fullLinkPath, err)
	}
	if err := os.Symlink(target, fullLinkPath); err != nil {
		f.T.Fatalf("failed to create symlink %s -> %s: %v", fullLinkPath, target, err)
	}

	return fullLinkPath
}

// CreateReadOnlyDir creates a directory holding one file that cannot be unlinked.
// Permissions are restored on cleanup so TempDir removal works.
func (f *TestFixture) CreateReadOnlyDir(relPath string) string {
	f.T.Helper()

	dirPath := f.CreateDir(relPath)
	f.CreateFile(filepath.Join(relPath, "trapped.txt"), []byte("trapped"))
	if err := os.Chmod(dirPath, 0555); err != nil {
		f.T.Fatalf("failed to chmod directory %s: %v", dirPath, err)
	}

	f.T.Cleanup(func() {
		os.Chmod(dirPath, 0755)
	})

	return dirPath
}

// =============================================================================
// Path Helpers
// =============================================================================

// Path returns the full path for a relative path within the fixture
func (f *TestFixture) Path(relPath string) string {
	return filepath.Join(f.RootDir, relPath)
}

// =============================================================================
// Assertion Helpers
// =============================================================================

// Exists reports whether path exists without following a final symlink
func (f *TestFixture) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// AssertExists fails the test if the path doesn't exist
func (f *TestFixture) AssertExists(path string) {
	f.T.Helper()
	if !f.Exists(path) {
		f.T.Errorf("expected path to exist: %s", path)
	}
}

// AssertNotExists fails the test if the path exists
func (f *TestFixture) AssertNotExists(path string) {
	f.T.Helper()
	if f.Exists(path) {
		f.T.Errorf("expected path to not exist: %s", path)
	}
}

// IsRoot reports whether the test runs with root privileges, where
// permission-based failure fixtures have no effect.
func IsRoot() bool {
	return os.Geteuid() == 0
}

// SortedCopy returns a sorted copy of ss for order-insensitive comparisons
func SortedCopy(ss []string) []string {
	out := append([]string(nil), ss...)
	sort.Strings(out)
	return out
}

// EqualStrings compares two string slices element by element
func EqualStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

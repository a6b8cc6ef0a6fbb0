package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PathValidator handles secure path validation for file operations
type PathValidator struct {
	root           string
	protectedPaths []string
	cache          *PathValidatorCache
}

// NewPathValidator creates a PathValidator for paths under root with default
// protected paths. Protected entries at or above root are ignored.
func NewPathValidator(root string) *PathValidator {
	pv := &PathValidator{
		root:  filepath.Clean(root),
		cache: NewPathValidatorCache(10000, 5*time.Minute),
	}
	for _, p := range defaultProtectedPaths {
		pv.AddProtectedPath(p)
	}
	return pv
}

var defaultProtectedPaths = []string{
	// Unix system directories
	"/",
	"/bin",
	"/boot",
	"/dev",
	"/etc",
	"/lib",
	"/lib64",
	"/proc",
	"/root",
	"/sbin",
	"/sys",
	"/usr",
	"/var",
	// macOS system directories
	"/System",
	"/Applications",
	"/Library/System",
}

// Root returns the root every validated path must stay under
func (pv *PathValidator) Root() string {
	return pv.root
}

// ValidateRelPath checks that a root-relative path is well formed: non-empty,
// not absolute, and free of parent traversal or NUL bytes.
func ValidateRelPath(rel string) error {
	if rel == "" || rel == "." {
		return fmt.Errorf("empty relative path")
	}
	if strings.ContainsRune(rel, 0) {
		return fmt.Errorf("path contains NUL byte: %q", rel)
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return fmt.Errorf("path must be relative: %s", rel)
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == ".." {
			return fmt.Errorf("path escapes root: %s", rel)
		}
	}
	return nil
}

// Resolve joins a root-relative path onto the root and verifies the result
// stays strictly below the root.
func (pv *PathValidator) Resolve(rel string) (string, error) {
	if err := ValidateRelPath(rel); err != nil {
		return "", err
	}

	abs := filepath.Join(pv.root, rel)
	if !IsWithin(pv.root, abs) {
		return "", fmt.Errorf("path escapes root: %s", rel)
	}
	return abs, nil
}

// RelativeTo computes the root-relative form of an absolute path below root.
// Boundary checks reject the root itself and siblings sharing a name prefix.
func RelativeTo(root, abs string) (string, error) {
	root = filepath.Clean(root)
	abs = filepath.Clean(abs)

	if !IsWithin(root, abs) {
		return "", fmt.Errorf("%s is not below %s", abs, root)
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	return rel, nil
}

// IsWithin reports whether path lies strictly below root.
func IsWithin(root, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ValidatePathForDeletion performs comprehensive validation on a path before deletion
// This is the single source of truth for all path validation in the application
func (pv *PathValidator) ValidatePathForDeletion(path string) error {
	// Step 1: Path must be absolute
	if !filepath.IsAbs(path) {
		return fmt.Errorf("path must be absolute: %s", path)
	}

	// Step 2: Reject unclean input outright
	if filepath.Clean(path) != path {
		return fmt.Errorf("path contains suspicious elements: %s", path)
	}

	// Step 3: Must stay below the root
	if !IsWithin(pv.root, path) {
		return fmt.Errorf("refusing to delete outside root: %s", path)
	}

	// Step 4: Resolve symlinks in the parent only. The final element may be a
	// link, which is removed as a link and never followed.
	parent, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to resolve symlinks: %w", err)
		}
		parent = filepath.Dir(path)
	}
	resolved := filepath.Join(parent, filepath.Base(path))

	realRoot, err := filepath.EvalSymlinks(pv.root)
	if err != nil {
		realRoot = pv.root
	}
	if !IsWithin(realRoot, resolved) {
		return fmt.Errorf("path resolves outside root: %s", path)
	}

	// Step 5: Check against protected paths
	if err := pv.checkProtectedPaths(resolved); err != nil {
		return err
	}

	return nil
}

// checkProtectedPaths validates that a path is not in a protected system directory
func (pv *PathValidator) checkProtectedPaths(cleanPath string) error {
	for _, protected := range pv.protectedPaths {
		// Exact match
		if cleanPath == protected {
			return fmt.Errorf("refusing to delete protected path: %s", cleanPath)
		}

		// Directly under a protected directory: /usr/foo vs /usr/local/cache/foo
		if protected == "/" {
			if filepath.Dir(cleanPath) == "/" {
				return fmt.Errorf("refusing to delete critical system path: %s", cleanPath)
			}
			continue
		}
		if filepath.Dir(cleanPath) == protected {
			return fmt.Errorf("refusing to delete critical system path: %s", cleanPath)
		}
	}

	return nil
}

// IsProtectedPath checks if a path is a protected system path
func (pv *PathValidator) IsProtectedPath(path string) bool {
	cleanPath := filepath.Clean(path)
	for _, protected := range pv.protectedPaths {
		if cleanPath == protected {
			return true
		}
	}
	return false
}

// AddProtectedPath adds a custom protected path. Paths that contain the root
// are ignored.
func (pv *PathValidator) AddProtectedPath(path string) {
	cleanPath := filepath.Clean(path)
	if cleanPath == pv.root || IsWithin(cleanPath, pv.root) {
		return
	}
	for _, p := range pv.protectedPaths {
		if p == cleanPath {
			return
		}
	}
	pv.protectedPaths = append(pv.protectedPaths, cleanPath)
	pv.cache.Purge()
}

package cleaner

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// PermissionManager answers whether the current user can unlink a path
type PermissionManager struct {
	isRoot bool
}

// NewPermissionManager creates a new PermissionManager
func NewPermissionManager() *PermissionManager {
	return &PermissionManager{
		isRoot: os.Geteuid() == 0,
	}
}

// IsRunningAsRoot checks if the current process is running as root
func (pm *PermissionManager) IsRunningAsRoot() bool {
	return pm.isRoot
}

// CanDelete reports whether the node at path can be unlinked, which depends
// on write and search permission on its parent directory. It does not look
// inside directories: a deletable folder may still hold undeletable children.
func (pm *PermissionManager) CanDelete(path string) (bool, error) {
	if _, err := os.Lstat(path); err != nil {
		return false, err
	}

	if pm.isRoot {
		return true, nil
	}

	if err := unix.Access(filepath.Dir(path), unix.W_OK|unix.X_OK); err != nil {
		if err == unix.EACCES || err == unix.EROFS {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RequiresElevation checks if a path cannot be deleted by the current user
func (pm *PermissionManager) RequiresElevation(path string) bool {
	if pm.isRoot {
		return false
	}

	canDelete, err := pm.CanDelete(path)
	if err != nil {
		// If we can't even check, assume it needs elevation
		return true
	}

	return !canDelete
}

//go:build !unix

package scanner

import "os"

type fileID struct{}

// fileIdentity is unavailable here; symlinks are still never followed.
func fileIdentity(os.FileInfo) (fileID, bool) {
	return fileID{}, false
}

//go:build unix

package scanner

import (
	"os"
	"syscall"
)

type fileID struct {
	dev uint64
	ino uint64
}

// fileIdentity extracts device and inode so bind-mounted loops are walked once
func fileIdentity(info os.FileInfo) (fileID, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileID{}, false
	}
	return fileID{dev: uint64(st.Dev), ino: uint64(st.Ino)}, true
}

package util

import (
	"os"
	"syscall"
)

// InodeOf extracts the inode number from a stat result, identifying a file
// independent of its path. ok is false on platforms or filesystems that do
// not expose one.
func InodeOf(info os.FileInfo) (uint64, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	return st.Ino, true
}

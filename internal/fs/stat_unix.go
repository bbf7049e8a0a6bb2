//go:build unix

package fs

import (
	"io/fs"
	"syscall"

	"snapstore/internal/fileinfo"
)

// extractOwner pulls unix ownership out of stat data. Exotic FileInfo
// implementations without a Stat_t fall back to zero ownership.
func extractOwner(info fs.FileInfo) fileinfo.Owner {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileinfo.Owner{}
	}
	return fileinfo.Owner{UID: int64(stat.Uid), GID: int64(stat.Gid)}
}

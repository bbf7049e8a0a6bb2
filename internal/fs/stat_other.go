//go:build !unix

package fs

import (
	"io/fs"

	"snapstore/internal/fileinfo"
)

func extractOwner(fs.FileInfo) fileinfo.Owner {
	return fileinfo.Owner{}
}

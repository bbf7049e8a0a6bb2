// Package fileinfo produces the serialized metadata records stored with each
// snapshot entry. Records encode deterministically (fixed field order, UTC
// timestamps) because snapshot differencing compares the encoded form
// byte-for-byte.
package fileinfo

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/zeebo/xxh3"

	"snapstore/internal/pathenc"
	"snapstore/internal/snap"
)

// Kind classifies a filesystem entry.
type Kind string

const (
	KindFile    Kind = "file"
	KindDir     Kind = "dir"
	KindSymlink Kind = "symlink"
	KindOther   Kind = "other"
)

// Owner holds unix ownership data extracted from stat.
type Owner struct {
	UID int64 `json:"uid"`
	GID int64 `json:"gid"`
}

// Info is the metadata record for one entry. The Identifier is the opaque
// content identifier used to match the same file across snapshots; entries
// without content (directories and the like) carry none.
type Info struct {
	Path       pathenc.Encoded `json:"path"`
	Kind       Kind            `json:"kind"`
	Size       int64           `json:"size"`
	Mode       uint32          `json:"mode"`
	ModTime    time.Time       `json:"mtime"`
	Owner      Owner           `json:"owner"`
	Identifier []byte          `json:"identifier,omitempty"`
}

// New builds an Info from a normalized path and raw stat metadata.
func New(path pathenc.Encoded, fi fs.FileInfo, owner Owner) *Info {
	return &Info{
		Path:    path,
		Kind:    kindOf(fi.Mode()),
		Size:    fi.Size(),
		Mode:    uint32(fi.Mode()),
		ModTime: fi.ModTime().UTC(),
		Owner:   owner,
	}
}

func kindOf(mode fs.FileMode) Kind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDir
	case mode&fs.ModeSymlink != 0:
		return KindSymlink
	default:
		return KindOther
	}
}

// Encode serializes the record for storage.
func (i *Info) Encode() ([]byte, error) {
	data, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding info for %s: %w", snap.ErrSerialization, i.Path.Escaped(), err)
	}
	return data, nil
}

// Decode parses a stored record.
func Decode(data []byte) (*Info, error) {
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: decoding info: %w", snap.ErrSerialization, err)
	}
	return &info, nil
}

// HashReader computes an xxh3-128 content identifier from a stream.
func HashReader(r io.Reader) ([]byte, error) {
	h := xxh3.New()
	if _, err := io.Copy(h, r); err != nil {
		return nil, err
	}
	sum := h.Sum128().Bytes()
	return sum[:], nil
}

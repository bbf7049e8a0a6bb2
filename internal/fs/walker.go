// Package fs walks directory trees and turns them into snapshot entries:
// normalized relative paths, xxh3-128 content identifiers for regular files,
// and serialized metadata records.
package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"snapstore/internal/fileinfo"
	"snapstore/internal/pathenc"
	"snapstore/internal/snap"
)

// Walker walks a tree and yields one entry per filesystem object, the root
// itself included. Traversal failures abort the walk; there is no partial
// skip policy beyond the configured ignore patterns.
type Walker struct {
	patterns []string
	log      snap.Logger
}

// NewWalker creates a walker with the given ignore patterns. Pass nil for
// logger to discard output.
func NewWalker(ignorePatterns []string, logger snap.Logger) *Walker {
	if logger == nil {
		logger = snap.NewNopLogger()
	}
	return &Walker{patterns: ignorePatterns, log: logger}
}

// Walk implements snap.Walker. Entries carry paths relative to root in
// canonical byte form; the root directory itself walks as ".". Ignore
// patterns come from the walker's configuration plus a .snapignore file at
// the root, and a matching directory is skipped whole.
func (w *Walker) Walk(root string, fn func(snap.Entry) error) error {
	filePatterns, err := ParseIgnoreFile(filepath.Join(root, ignoreFileName))
	if err != nil {
		return fmt.Errorf("%w: %v", snap.ErrTraversal, err)
	}
	raw := append([]string{}, defaultIgnorePatterns...)
	raw = append(raw, w.patterns...)
	raw = append(raw, filePatterns...)
	matcher := NewIgnoreMatcher(raw)

	w.log.Debug("walking", "root", root)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: walking %s: %w", snap.ErrTraversal, path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("%w: relativizing %s: %w", snap.ErrTraversal, path, err)
		}
		if rel != "." && matcher.Match(rel) {
			w.log.Debug("ignored", "path", rel)
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("%w: stat %s: %w", snap.ErrTraversal, path, err)
		}

		enc := pathenc.FromOS(rel)
		rec := fileinfo.New(enc, info, extractOwner(info))
		if info.Mode().IsRegular() {
			identifier, err := w.hashFile(path)
			if err != nil {
				return fmt.Errorf("%w: hashing %s: %w", snap.ErrTraversal, path, err)
			}
			rec.Identifier = identifier
		}

		blob, err := rec.Encode()
		if err != nil {
			return err
		}
		return fn(snap.Entry{
			Path:       enc.Bytes(),
			Size:       rec.Size,
			Identifier: rec.Identifier,
			Info:       blob,
		})
	})
}

func (w *Walker) hashFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return fileinfo.HashReader(f)
}

// Compile-time check that Walker implements snap.Walker.
var _ snap.Walker = (*Walker)(nil)

package fs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"snapstore/internal/fileinfo"
	"snapstore/internal/snap"
)

// writeTree lays out a small fixture:
//
//	root/
//	  top.txt
//	  sub/
//	    inner.txt
//	    skipped.log
func writeTree(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := map[string]string{
		"top.txt":         "top content",
		"sub/inner.txt":   "inner content",
		"sub/skipped.log": "log content",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(root, name), []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	return root
}

func collect(t *testing.T, w *Walker, root string) map[string]snap.Entry {
	t.Helper()

	entries := make(map[string]snap.Entry)
	err := w.Walk(root, func(e snap.Entry) error {
		entries[string(e.Path)] = e
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	return entries
}

func TestWalker_Walk(t *testing.T) {
	t.Run("yields every entry with relative canonical paths", func(t *testing.T) {
		root := writeTree(t)
		entries := collect(t, NewWalker(nil, nil), root)

		for _, want := range []string{".", "top.txt", "sub", "sub/inner.txt", "sub/skipped.log"} {
			if _, ok := entries[want]; !ok {
				t.Errorf("missing entry %q (got %v)", want, keys(entries))
			}
		}
		if len(entries) != 5 {
			t.Errorf("entry count = %d, want 5", len(entries))
		}
	})

	t.Run("regular files carry identifiers, directories none", func(t *testing.T) {
		root := writeTree(t)
		entries := collect(t, NewWalker(nil, nil), root)

		if entries["sub"].Identifier != nil {
			t.Error("directory has an identifier")
		}
		if entries["top.txt"].Identifier == nil {
			t.Error("regular file has no identifier")
		}

		// Identifier tracks content, not path.
		other := t.TempDir()
		if err := os.WriteFile(filepath.Join(other, "renamed.txt"), []byte("top content"), 0644); err != nil {
			t.Fatalf("writing file: %v", err)
		}
		moved := collect(t, NewWalker(nil, nil), other)
		if !bytes.Equal(moved["renamed.txt"].Identifier, entries["top.txt"].Identifier) {
			t.Error("same content produced different identifiers")
		}
	})

	t.Run("info blobs decode and match the entry", func(t *testing.T) {
		root := writeTree(t)
		entries := collect(t, NewWalker(nil, nil), root)

		e := entries["sub/inner.txt"]
		info, err := fileinfo.Decode(e.Info)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if !bytes.Equal(info.Path.Bytes(), e.Path) {
			t.Errorf("info path = %q, entry path = %q", info.Path, e.Path)
		}
		if info.Kind != fileinfo.KindFile {
			t.Errorf("Kind = %q, want file", info.Kind)
		}
		if info.Size != int64(len("inner content")) {
			t.Errorf("Size = %d", info.Size)
		}
		if !bytes.Equal(info.Identifier, e.Identifier) {
			t.Error("info identifier differs from entry identifier")
		}
	})

	t.Run("applies configured ignore patterns", func(t *testing.T) {
		root := writeTree(t)
		entries := collect(t, NewWalker([]string{"*.log"}, nil), root)

		if _, ok := entries["sub/skipped.log"]; ok {
			t.Error("ignored file was walked")
		}
		if _, ok := entries["sub/inner.txt"]; !ok {
			t.Error("non-ignored sibling missing")
		}
	})

	t.Run("ignoring a directory skips it whole", func(t *testing.T) {
		root := writeTree(t)
		entries := collect(t, NewWalker([]string{"sub"}, nil), root)

		for path := range entries {
			if path == "sub" || filepath.Dir(path) == "sub" {
				t.Errorf("entry under ignored directory: %q", path)
			}
		}
	})

	t.Run("reads .snapignore from the root and never records it", func(t *testing.T) {
		root := writeTree(t)
		if err := os.WriteFile(filepath.Join(root, ".snapignore"), []byte("*.log\n"), 0644); err != nil {
			t.Fatalf("writing .snapignore: %v", err)
		}

		entries := collect(t, NewWalker(nil, nil), root)
		if _, ok := entries["sub/skipped.log"]; ok {
			t.Error(".snapignore pattern not applied")
		}
		if _, ok := entries[".snapignore"]; ok {
			t.Error(".snapignore recorded itself")
		}
	})

	t.Run("callback errors pass through unmodified", func(t *testing.T) {
		root := writeTree(t)
		sentinel := errors.New("enough")

		err := NewWalker(nil, nil).Walk(root, func(snap.Entry) error { return sentinel })
		if !errors.Is(err, sentinel) {
			t.Errorf("Walk() error = %v, want callback error", err)
		}
	})

	t.Run("missing root is a traversal failure", func(t *testing.T) {
		err := NewWalker(nil, nil).Walk(filepath.Join(t.TempDir(), "absent"), func(snap.Entry) error {
			return nil
		})
		if !errors.Is(err, snap.ErrTraversal) {
			t.Errorf("Walk() error = %v, want ErrTraversal", err)
		}
	})
}

func keys(m map[string]snap.Entry) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

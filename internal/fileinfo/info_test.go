package fileinfo

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"snapstore/internal/pathenc"
	"snapstore/internal/snap"
)

func statFile(t *testing.T, content string) (string, os.FileInfo) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "f.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	return path, fi
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	_, fi := statFile(t, "hello")

	info := New(pathenc.FromOS("dir/f.txt"), fi, Owner{UID: 1000, GID: 100})
	info.Identifier = []byte{1, 2, 3, 4}

	data, err := info.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if !bytes.Equal(back.Path, info.Path) {
		t.Errorf("Path = %q, want %q", back.Path, info.Path)
	}
	if back.Kind != KindFile {
		t.Errorf("Kind = %q, want %q", back.Kind, KindFile)
	}
	if back.Size != 5 {
		t.Errorf("Size = %d, want 5", back.Size)
	}
	if back.Owner != info.Owner {
		t.Errorf("Owner = %+v, want %+v", back.Owner, info.Owner)
	}
	if !bytes.Equal(back.Identifier, info.Identifier) {
		t.Errorf("Identifier = %x, want %x", back.Identifier, info.Identifier)
	}
	if !back.ModTime.Equal(info.ModTime) {
		t.Errorf("ModTime = %v, want %v", back.ModTime, info.ModTime)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	_, fi := statFile(t, "hello")
	info := New(pathenc.FromOS("a/b"), fi, Owner{UID: 1, GID: 2})

	first, err := info.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	second, err := info.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("encodings differ:\n%s\n%s", first, second)
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	if !errors.Is(err, snap.ErrSerialization) {
		t.Errorf("Decode() error = %v, want ErrSerialization", err)
	}
}

func TestHashReader(t *testing.T) {
	t.Run("same content hashes equal", func(t *testing.T) {
		a, err := HashReader(strings.NewReader("same bytes"))
		if err != nil {
			t.Fatalf("HashReader() error = %v", err)
		}
		b, err := HashReader(strings.NewReader("same bytes"))
		if err != nil {
			t.Fatalf("HashReader() error = %v", err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("hashes differ: %x vs %x", a, b)
		}
		if len(a) != 16 {
			t.Errorf("identifier length = %d, want 16", len(a))
		}
	})

	t.Run("different content hashes differ", func(t *testing.T) {
		a, _ := HashReader(strings.NewReader("one"))
		b, _ := HashReader(strings.NewReader("two"))
		if bytes.Equal(a, b) {
			t.Error("hashes collide for different content")
		}
	})
}

func TestKindOf(t *testing.T) {
	path, fi := statFile(t, "x")
	if kindOf(fi.Mode()) != KindFile {
		t.Errorf("kindOf(file) = %q", kindOf(fi.Mode()))
	}

	dirInfo, err := os.Stat(filepath.Dir(path))
	if err != nil {
		t.Fatalf("stat dir: %v", err)
	}
	if kindOf(dirInfo.Mode()) != KindDir {
		t.Errorf("kindOf(dir) = %q", kindOf(dirInfo.Mode()))
	}
}

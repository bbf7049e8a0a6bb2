// Package pathenc normalizes platform paths into a canonical byte form for
// storage. '/' is used as the separator: neither Windows nor ntfs-3g allows
// it inside a component, so the translation is reversible. Consumers treat
// the encoded form as an opaque byte string.
package pathenc

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"
)

// ErrNotRepresentable is returned when an encoded path cannot be turned back
// into a platform path.
var ErrNotRepresentable = errors.New("path is not representable on this platform")

// Encoded is a path in canonical byte form. It serializes to JSON as base64
// so non-UTF-8 names survive the round trip.
type Encoded []byte

// FromOS encodes a platform path.
func FromOS(path string) Encoded {
	b := []byte(path)
	if os.PathSeparator != '/' {
		for i := range b {
			if b[i] == os.PathSeparator {
				b[i] = '/'
			}
		}
	}
	return b
}

// OSPath converts the canonical form back to a platform path.
func (e Encoded) OSPath() (string, error) {
	if bytes.IndexByte(e, 0) >= 0 {
		return "", fmt.Errorf("%w: embedded NUL in %q", ErrNotRepresentable, e.Escaped())
	}
	b := make([]byte, len(e))
	copy(b, e)
	if os.PathSeparator != '/' {
		for i := range b {
			if b[i] == '/' {
				b[i] = os.PathSeparator
			}
		}
	}
	return string(b), nil
}

// Bytes returns the raw canonical bytes.
func (e Encoded) Bytes() []byte { return e }

// SplitParent splits the path at its last separator. The separator, when
// present, stays at the front of the second half.
func (e Encoded) SplitParent() (Encoded, Encoded) {
	i := bytes.LastIndexByte(e, '/')
	if i < 0 {
		i = 0
	}
	return e[:i], e[i:]
}

// Escaped renders the path for display, hex-escaping bytes that do not form
// valid UTF-8. The result is lossy and must never be stored.
func (e Encoded) Escaped() string {
	if utf8.Valid(e) {
		return string(e)
	}
	var sb strings.Builder
	remaining := []byte(e)
	for len(remaining) > 0 {
		r, size := utf8.DecodeRune(remaining)
		if r == utf8.RuneError && size <= 1 {
			fmt.Fprintf(&sb, "\\x%02X", remaining[0])
			remaining = remaining[1:]
			continue
		}
		sb.Write(remaining[:size])
		remaining = remaining[size:]
	}
	return sb.String()
}

// MarshalJSON encodes the path as a base64 string.
func (e Encoded) MarshalJSON() ([]byte, error) {
	s := base64.StdEncoding.EncodeToString(e)
	return []byte(`"` + s + `"`), nil
}

// UnmarshalJSON decodes the base64 representation.
func (e *Encoded) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding path: %w", err)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decoding path: %w", err)
	}
	*e = b
	return nil
}

package catalog

import (
	"fmt"
	"time"

	"snapstore/internal/snap"
)

// Name is a validated identifier: a letter followed by letters, digits or
// underscores. It is the sole sanitization boundary for text interpolated
// into generated SQL, and doubles as the file stem of the store it names.
type Name struct {
	s string
}

// NewName validates text against the identifier grammar.
func NewName(text string) (Name, error) {
	if !validName(text) {
		return Name{}, fmt.Errorf("%w: %q", snap.ErrInvalidName, text)
	}
	return Name{s: text}, nil
}

func validName(text string) bool {
	if len(text) == 0 {
		return false
	}
	c := text[0]
	if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
		return false
	}
	for i := 1; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// NameForTime derives a name from a UTC timestamp at nanosecond resolution.
// Under normal clock monotonicity the result is unique per process.
func NameForTime(t time.Time) Name {
	t = t.UTC()
	text := fmt.Sprintf("at%s_%09d", t.Format("2006_01_02_15_04_05"), t.Nanosecond())
	name, err := NewName(text)
	if err != nil {
		// The format above always satisfies the grammar.
		panic(err)
	}
	return name
}

func (n Name) String() string { return n.s }

// IsZero reports whether the name is the uninitialized zero value.
func (n Name) IsZero() bool { return n.s == "" }

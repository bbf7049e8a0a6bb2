package snap

// Entry is one inventory row produced by a walker: a normalized path, an
// optional opaque content identifier, and the serialized metadata blob that
// later drives the byte-for-byte change comparison.
type Entry struct {
	// Path is the entry's path relative to the walk root, in canonical
	// byte form (forward-slash separators). The engine never interprets it.
	Path []byte

	// Size in bytes; zero for non-regular entries.
	Size int64

	// Identifier is the content identifier used to match "the same file"
	// across snapshots independent of path. Nil when the entry has no
	// content (directories and the like).
	Identifier []byte

	// Info is the serialized metadata record stored alongside the entry.
	Info []byte
}

// Walker supplies a lazy, finite sequence of inventory entries rooted at a
// path. Implementations call fn once per entry and stop on the first error;
// errors returned by fn must be passed through unmodified, while traversal
// failures of the walker itself must wrap ErrTraversal.
type Walker interface {
	Walk(root string, fn func(Entry) error) error
}

package snap

import "errors"

// Error taxonomy for the snapshot engine. Every fallible step wraps one of
// these sentinels with fmt.Errorf("%w: ...") so callers can classify failures
// with errors.Is without parsing messages.
var (
	// ErrStorage covers all underlying read/write/schema failures of the
	// storage engine.
	ErrStorage = errors.New("storage engine failure")

	// ErrSerialization covers metadata encode/decode failures.
	ErrSerialization = errors.New("serialization failure")

	// ErrTraversal covers walker failures (permission errors and the like).
	// A traversal failure aborts the whole fill; there is no skip policy.
	ErrTraversal = errors.New("traversal failure")

	// ErrInvalidName is returned when a name violates the identifier grammar.
	ErrInvalidName = errors.New("name must match [A-Za-z][A-Za-z0-9_]*")

	// ErrTooManySnapshots and ErrTooManyRows signal id-space exhaustion.
	ErrTooManySnapshots = errors.New("snapshot ordinal exceeds id capacity")
	ErrTooManyRows      = errors.New("row ordinal exceeds id capacity")

	// ErrSchemaMismatch is returned when a stored diff classification tag is
	// outside the known set.
	ErrSchemaMismatch = errors.New("unknown diff classification")

	// ErrCatalogMismatch is returned when snapshots from different catalog
	// instances are mixed in one comparison.
	ErrCatalogMismatch = errors.New("snapshot belongs to a different catalog")

	// ErrAliasInUse is returned when a second live handle tries to attach an
	// alias that another handle still holds.
	ErrAliasInUse = errors.New("attachment alias already in use")

	// ErrUnknownSnapshot is returned by read-only opens of a name that was
	// never initialized in this catalog.
	ErrUnknownSnapshot = errors.New("snapshot is not registered in the catalog")

	// ErrReadOnly is returned when a mutating operation is invoked on a
	// read-only snapshot handle.
	ErrReadOnly = errors.New("snapshot handle is read-only")

	// ErrClosed is returned when a handle is used after Close.
	ErrClosed = errors.New("handle is closed")
)

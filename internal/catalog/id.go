package catalog

import (
	"fmt"

	"snapstore/internal/snap"
)

// Row ids pack a snapshot ordinal and a per-snapshot row ordinal into one
// 64-bit value, so ids minted by independent per-snapshot AUTOINCREMENT
// sequences stay globally disjoint once merged in a diff. A catalog can hold
// 2^23 snapshots, each with 2^40 rows.
const (
	rowBits      = 40
	ordinalLimit = 1 << 23
	rowLimit     = 1 << rowBits
)

// AllocateID packs a snapshot ordinal and a row ordinal.
func AllocateID(snapshotOrdinal, rowOrdinal uint64) (uint64, error) {
	if snapshotOrdinal >= ordinalLimit {
		return 0, fmt.Errorf("%w: ordinal %d", snap.ErrTooManySnapshots, snapshotOrdinal)
	}
	if rowOrdinal >= rowLimit {
		return 0, fmt.Errorf("%w: row %d", snap.ErrTooManyRows, rowOrdinal)
	}
	return snapshotOrdinal<<rowBits | rowOrdinal, nil
}

// SnapshotOrdinal recovers the owning snapshot's ordinal from an id.
func SnapshotOrdinal(id uint64) uint64 { return id >> rowBits }

// RowOrdinal recovers the per-snapshot row ordinal from an id.
func RowOrdinal(id uint64) uint64 { return id & (rowLimit - 1) }

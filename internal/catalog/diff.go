package catalog

import (
	"context"
	"fmt"

	"snapstore/internal/fileinfo"
	"snapstore/internal/snap"
)

// DiffKind classifies one diff row. The numeric values are the stored
// classification tags; anything else read back is a schema mismatch.
type DiffKind uint8

const (
	KindDeleted DiffKind = 0
	KindCreated DiffKind = 1
	KindChanged DiffKind = 2
)

func (k DiffKind) String() string {
	switch k {
	case KindDeleted:
		return "deleted"
	case KindCreated:
		return "created"
	case KindChanged:
		return "changed"
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

func parseDiffKind(v int64) (DiffKind, error) {
	if v < 0 || v > int64(KindChanged) {
		return 0, fmt.Errorf("%w: tag %d", snap.ErrSchemaMismatch, v)
	}
	return DiffKind(v), nil
}

// Diff is a handle over a scratch store holding the classified differences
// between two snapshots. Identity is identifier-based, not path-based: a file
// whose path changed but whose identifier and metadata did not is invisible
// here. Closing the handle detaches the scratch store.
type Diff struct {
	cat    *Catalog
	name   Name
	closed bool
}

// NewDiff attaches a scratch store under name and creates its diff table if
// absent.
func NewDiff(c *Catalog, name Name) (*Diff, error) {
	if err := c.attach(name); err != nil {
		return nil, err
	}
	_, err := c.conn.ExecContext(context.Background(), fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.diff (
			before INTEGER,  -- id in the before snapshot, NULL for created
			after  INTEGER,  -- id in the after snapshot, NULL for deleted
			type   INTEGER,  -- classification tag, see DiffKind
			info   TEXT      -- after-state info; before-state when deleted
		)`, name))
	if err != nil {
		if derr := c.detach(name); derr != nil {
			c.log.Warn("detach after failed diff create", "diff", name.String(), "error", derr)
		}
		return nil, fmt.Errorf("%w: creating diff table %s: %w", snap.ErrStorage, name, err)
	}
	return &Diff{cat: c, name: name}, nil
}

// Name returns the diff's name.
func (d *Diff) Name() Name { return d.name }

// Fill (re)computes the diff from two snapshots. It is idempotent: prior
// rows are cleared and the classification recomputed as one batch. Rows
// whose identifier is NULL (entries without content) never participate.
func (d *Diff) Fill(before, after *Snapshot) error {
	if d.closed {
		return fmt.Errorf("%w: diff %s", snap.ErrClosed, d.name)
	}
	if before.cat.token != d.cat.token || after.cat.token != d.cat.token {
		return fmt.Errorf("%w: this=%s before=%s after=%s",
			snap.ErrCatalogMismatch, d.cat.token, before.cat.token, after.cat.token)
	}
	return d.fill(before.name, after.name)
}

func (d *Diff) fill(b, a Name) error {
	ctx := context.Background()

	// Index builds are idempotent and self-committing, so they stay outside
	// the fill transaction.
	_, err := d.cat.conn.ExecContext(ctx, fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %[1]s.idx_ident ON snap ( identifier );
		CREATE INDEX IF NOT EXISTS %[2]s.idx_ident ON snap ( identifier );
		CREATE INDEX IF NOT EXISTS %[1]s.idx_info ON snap ( info );
		CREATE INDEX IF NOT EXISTS %[2]s.idx_info ON snap ( info );`, b, a))
	if err != nil {
		return fmt.Errorf("%w: indexing snapshots: %w", snap.ErrStorage, err)
	}

	tx, err := d.cat.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning diff fill: %w", snap.ErrStorage, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %[1]s.diff;

		INSERT INTO %[1]s.diff (before, after, type, info)
		SELECT id, NULL, %[4]d, info
		FROM %[2]s.snap
		WHERE identifier IS NOT NULL
		  AND identifier NOT IN
		      (SELECT identifier FROM %[3]s.snap WHERE identifier IS NOT NULL);

		INSERT INTO %[1]s.diff (before, after, type, info)
		SELECT NULL, id, %[5]d, info
		FROM %[3]s.snap
		WHERE identifier IS NOT NULL
		  AND identifier NOT IN
		      (SELECT identifier FROM %[2]s.snap WHERE identifier IS NOT NULL);

		INSERT INTO %[1]s.diff (before, after, type, info)
		SELECT before_snap.id, after_snap.id, %[6]d, after_snap.info
		FROM %[3]s.snap AS after_snap
			INNER JOIN %[2]s.snap AS before_snap USING (identifier)
		WHERE after_snap.info != before_snap.info;`,
		d.name, b, a, KindDeleted, KindCreated, KindChanged))
	if err != nil {
		return fmt.Errorf("%w: computing diff %s: %w", snap.ErrStorage, d.name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing diff %s: %w", snap.ErrStorage, d.name, err)
	}
	return nil
}

// ForEach streams every diff row in unspecified storage order. The first
// callback error stops the scan and is returned unmodified; rows already
// delivered are not re-delivered, so delivery is at most once per row. The
// callback must not issue statements against the same catalog.
func (d *Diff) ForEach(fn func(DiffKind, *fileinfo.Info) error) error {
	if d.closed {
		return fmt.Errorf("%w: diff %s", snap.ErrClosed, d.name)
	}

	rows, err := d.cat.conn.QueryContext(context.Background(),
		fmt.Sprintf("SELECT type, info FROM %s.diff", d.name))
	if err != nil {
		return fmt.Errorf("%w: reading diff %s: %w", snap.ErrStorage, d.name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var tag int64
		var raw []byte
		if err := rows.Scan(&tag, &raw); err != nil {
			return fmt.Errorf("%w: scanning diff row: %w", snap.ErrStorage, err)
		}
		kind, err := parseDiffKind(tag)
		if err != nil {
			return err
		}
		info, err := fileinfo.Decode(raw)
		if err != nil {
			return err
		}
		if err := fn(kind, info); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: reading diff %s: %w", snap.ErrStorage, d.name, err)
	}
	return nil
}

// OfKind invokes fn only for rows of the given classification. Filtering
// happens here rather than in a pushed predicate; the full scan costs a
// constant factor and keeps the storage query single-shaped.
func (d *Diff) OfKind(kind DiffKind, fn func(*fileinfo.Info) error) error {
	return d.ForEach(func(k DiffKind, info *fileinfo.Info) error {
		if k == kind {
			return fn(info)
		}
		return nil
	})
}

// Close detaches the diff's scratch store.
func (d *Diff) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.cat.detach(d.name)
}

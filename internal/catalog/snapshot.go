package catalog

import (
	"context"
	"fmt"

	"snapstore/internal/snap"
)

// Snapshot is a handle over one attached snapshot store. Read-only handles
// come from ReadonlySnapshot; fillable ones from OpenSnapshot. Closing the
// handle detaches the store; the backing file persists on disk.
type Snapshot struct {
	cat      *Catalog
	name     Name
	writable bool
	closed   bool
}

// Name returns the snapshot's name.
func (s *Snapshot) Name() Name { return s.name }

// Fill consumes the walker's entries for root and inserts one row per entry,
// all inside a single transaction. On success the catalog's filled_at
// timestamp is stamped and the transaction commits; any traversal or storage
// error aborts the whole transaction, so no partial rows become visible and
// the fill stays safely retryable.
func (s *Snapshot) Fill(root string, walker snap.Walker) error {
	if s.closed {
		return fmt.Errorf("%w: snapshot %s", snap.ErrClosed, s.name)
	}
	if !s.writable {
		return fmt.Errorf("%w: %s", snap.ErrReadOnly, s.name)
	}

	ctx := context.Background()
	tx, err := s.cat.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning fill: %w", snap.ErrStorage, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s.snap(path, size, identifier, info) VALUES (?, ?, ?, ?)", s.name))
	if err != nil {
		return fmt.Errorf("%w: preparing insert: %w", snap.ErrStorage, err)
	}
	defer stmt.Close()

	s.cat.log.Info("filling snapshot", "snapshot", s.name.String(), "root", root)
	rows := 0
	err = walker.Walk(root, func(e snap.Entry) error {
		if _, err := stmt.ExecContext(ctx, e.Path, e.Size, e.Identifier, e.Info); err != nil {
			return fmt.Errorf("%w: inserting entry: %w", snap.ErrStorage, err)
		}
		rows++
		return nil
	})
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, "UPDATE snapshots SET filled_at = ? WHERE name = ?",
		s.cat.clock.Now().UTC(), s.name.String())
	if err != nil {
		return fmt.Errorf("%w: stamping filled_at: %w", snap.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing fill: %w", snap.ErrStorage, err)
	}
	s.cat.log.Info("snapshot filled", "snapshot", s.name.String(), "rows", rows)
	return nil
}

// Close detaches the snapshot's store. A detach failure keeps the alias
// registered so it fails loudly later instead of leaking silently.
func (s *Snapshot) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.cat.detach(s.name)
}

// Package catalog implements a content-addressed snapshot store and
// differencing engine on SQLite. One primary catalog file tracks which
// snapshots exist; each snapshot and each diff lives in its own auxiliary
// file, attached to the primary connection under a validated alias for the
// lifetime of its handle.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"snapstore/internal/catalog/migrations"
	"snapstore/internal/snap"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const catalogFile = "catalog.db"

// Catalog owns the primary store under a root directory. It is the exclusive
// writer for that directory and is not safe for concurrent use: all access
// serializes through one pinned connection, because ATTACH state is
// per-connection and database/sql would otherwise route statements across a
// pool.
type Catalog struct {
	db   *sql.DB
	conn *sql.Conn
	root string

	// token identifies this catalog instance. Snapshots and diffs carry it
	// so a comparison spanning two instances fails by value, not by
	// pointer coincidence.
	token uuid.UUID

	// snapshotCount mirrors COUNT(*) of the snapshots table and drives the
	// next id partition. It is re-derived on open and advanced only after
	// the registering transaction commits.
	snapshotCount uint64

	attached map[string]bool

	clock snap.Clock
	log   snap.Logger
}

// Open opens or creates the primary store under root, migrates its schema,
// and loads the snapshot count. Pass nil for clock or logger to get the real
// clock and a no-op logger.
func Open(root string, clock snap.Clock, logger snap.Logger) (*Catalog, error) {
	if clock == nil {
		clock = snap.RealClock{}
	}
	if logger == nil {
		logger = snap.NewNopLogger()
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating root directory: %w", snap.ErrStorage, err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(root, catalogFile))
	if err != nil {
		return nil, fmt.Errorf("%w: opening catalog: %w", snap.ErrStorage, err)
	}

	// Schema is persistent, so migrations may run on the pool before the
	// connection carrying attachment state is pinned.
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrating catalog schema: %w", snap.ErrStorage, err)
	}

	conn, err := db.Conn(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinning connection: %w", snap.ErrStorage, err)
	}

	var count uint64
	err = conn.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM snapshots").Scan(&count)
	if err != nil {
		conn.Close()
		db.Close()
		return nil, fmt.Errorf("%w: counting snapshots: %w", snap.ErrStorage, err)
	}

	c := &Catalog{
		db:            db,
		conn:          conn,
		root:          root,
		token:         uuid.New(),
		snapshotCount: count,
		attached:      make(map[string]bool),
		clock:         clock,
		log:           logger,
	}
	c.log.Debug("catalog opened", "root", root, "snapshots", count)
	return c, nil
}

// Root returns the catalog's root directory.
func (c *Catalog) Root() string { return c.root }

// SnapshotCount returns the number of snapshots registered in the catalog.
func (c *Catalog) SnapshotCount() uint64 { return c.snapshotCount }

// storePath is the auxiliary file backing the named snapshot or diff.
func (c *Catalog) storePath(name Name) string {
	return filepath.Join(c.root, name.String()+".db")
}

// attach makes the named store visible under its alias. Holding an alias is
// mutually exclusive: a second live attach of the same alias fails.
func (c *Catalog) attach(name Name) error {
	if c.attached[name.String()] {
		return fmt.Errorf("%w: %s", snap.ErrAliasInUse, name)
	}
	// The alias went through Name validation; the file path is bound as a
	// parameter.
	_, err := c.conn.ExecContext(context.Background(),
		"ATTACH DATABASE ? AS "+name.String(), c.storePath(name))
	if err != nil {
		return fmt.Errorf("%w: attaching %s: %w", snap.ErrStorage, name, err)
	}
	c.attached[name.String()] = true
	return nil
}

// detach releases an alias. On failure the alias stays registered, so the
// stale attachment surfaces loudly on the next conflicting attach instead of
// being swallowed.
func (c *Catalog) detach(name Name) error {
	if !c.attached[name.String()] {
		return nil
	}
	_, err := c.conn.ExecContext(context.Background(), "DETACH DATABASE "+name.String())
	if err != nil {
		return fmt.Errorf("%w: detaching %s: %w", snap.ErrStorage, name, err)
	}
	delete(c.attached, name.String())
	return nil
}

// tableExists probes an attached schema for a table.
func (c *Catalog) tableExists(schema Name, table string) (bool, error) {
	var n int
	err := c.conn.QueryRowContext(context.Background(),
		fmt.Sprintf("SELECT COUNT(*) FROM %s.sqlite_master WHERE type='table' AND name=?", schema),
		table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: probing %s.%s: %w", snap.ErrStorage, schema, table, err)
	}
	return n > 0, nil
}

// ReadonlySnapshot attaches an existing snapshot for reading. It fails with
// ErrUnknownSnapshot when the name was never initialized in this catalog.
func (c *Catalog) ReadonlySnapshot(name Name) (*Snapshot, error) {
	// ATTACH creates a missing backing file, so check for the store up
	// front rather than leaving an empty file behind on failure.
	if _, err := os.Stat(c.storePath(name)); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", snap.ErrUnknownSnapshot, name)
		}
		return nil, fmt.Errorf("%w: probing store for %s: %w", snap.ErrStorage, name, err)
	}
	if err := c.attach(name); err != nil {
		return nil, err
	}
	exists, err := c.tableExists(name, "snap")
	if err != nil || !exists {
		if derr := c.detach(name); derr != nil {
			c.log.Warn("detach after failed open", "snapshot", name.String(), "error", derr)
		}
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", snap.ErrUnknownSnapshot, name)
	}
	return &Snapshot{cat: c, name: name}, nil
}

// OpenSnapshot attaches the named snapshot, creating and registering it if
// this catalog has not seen it before. Reopening an initialized name is a
// no-op beyond attaching.
func (c *Catalog) OpenSnapshot(name Name) (*Snapshot, error) {
	if err := c.attach(name); err != nil {
		return nil, err
	}
	exists, err := c.tableExists(name, "snap")
	if err == nil && !exists {
		err = c.initSnapshot(name)
	}
	if err != nil {
		if derr := c.detach(name); derr != nil {
			c.log.Warn("detach after failed open", "snapshot", name.String(), "error", derr)
		}
		return nil, err
	}
	return &Snapshot{cat: c, name: name, writable: true}, nil
}

// initSnapshot creates the snapshot table and registers the catalog row in
// one transaction. The sentinel row inserted at the partition base and
// immediately deleted forces AUTOINCREMENT to resume numbering from there,
// which is what keeps ids of independently filled snapshots disjoint.
func (c *Catalog) initSnapshot(name Name) error {
	firstID, err := AllocateID(c.snapshotCount, 0)
	if err != nil {
		return err
	}

	ctx := context.Background()
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %w", snap.ErrStorage, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE %[1]s.snap (
			id         INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
			path       BLOB,
			size       INTEGER,
			identifier BLOB,
			info       TEXT
		);
		INSERT INTO %[1]s.snap(id) VALUES (%[2]d);
		DELETE FROM %[1]s.snap WHERE id = %[2]d;`, name, firstID))
	if err != nil {
		return fmt.Errorf("%w: initializing snapshot %s: %w", snap.ErrStorage, name, err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO snapshots(name, created_at, filled_at, uploaded) VALUES (?, ?, NULL, 0)",
		name.String(), c.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: registering snapshot %s: %w", snap.ErrStorage, name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing snapshot %s: %w", snap.ErrStorage, name, err)
	}
	c.snapshotCount++
	c.log.Info("snapshot created", "snapshot", name.String(), "ordinal", c.snapshotCount-1)
	return nil
}

// CompareSnapshots builds and fills a diff between two snapshots previously
// opened against this exact catalog instance.
func (c *Catalog) CompareSnapshots(before, after *Snapshot) (*Diff, error) {
	if before.cat.token != c.token || after.cat.token != c.token {
		return nil, fmt.Errorf("%w: this=%s before=%s after=%s",
			snap.ErrCatalogMismatch, c.token, before.cat.token, after.cat.token)
	}

	name, err := NewName("diff_" + before.name.String() + "_vs_" + after.name.String())
	if err != nil {
		return nil, fmt.Errorf("building diff name: %w", err)
	}

	diff, err := NewDiff(c, name)
	if err != nil {
		return nil, err
	}
	if err := diff.Fill(before, after); err != nil {
		if cerr := diff.Close(); cerr != nil {
			c.log.Warn("closing diff after failed fill", "diff", name.String(), "error", cerr)
		}
		return nil, err
	}
	return diff, nil
}

// Record is one row of the shared catalog table. FilledAt stays invalid
// until the snapshot's fill commits; the flags are advisory and not enforced
// by read or diff operations.
type Record struct {
	Name      string
	CreatedAt time.Time
	FilledAt  sql.NullTime
	Uploaded  bool
}

// Records lists the catalog table in creation order.
func (c *Catalog) Records() ([]Record, error) {
	rows, err := c.conn.QueryContext(context.Background(),
		"SELECT name, created_at, filled_at, uploaded FROM snapshots ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("%w: listing snapshots: %w", snap.ErrStorage, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Name, &r.CreatedAt, &r.FilledAt, &r.Uploaded); err != nil {
			return nil, fmt.Errorf("%w: scanning snapshot row: %w", snap.ErrStorage, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing snapshots: %w", snap.ErrStorage, err)
	}
	return records, nil
}

// Record returns the catalog row for one snapshot, or ErrUnknownSnapshot.
func (c *Catalog) Record(name Name) (*Record, error) {
	var r Record
	err := c.conn.QueryRowContext(context.Background(),
		"SELECT name, created_at, filled_at, uploaded FROM snapshots WHERE name = ?",
		name.String()).Scan(&r.Name, &r.CreatedAt, &r.FilledAt, &r.Uploaded)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", snap.ErrUnknownSnapshot, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading snapshot row: %w", snap.ErrStorage, err)
	}
	return &r, nil
}

// MarkUploaded flips the advisory uploaded flag for a snapshot.
func (c *Catalog) MarkUploaded(name Name) error {
	res, err := c.conn.ExecContext(context.Background(),
		"UPDATE snapshots SET uploaded = 1 WHERE name = ?", name.String())
	if err != nil {
		return fmt.Errorf("%w: marking %s uploaded: %w", snap.ErrStorage, name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: marking %s uploaded: %w", snap.ErrStorage, name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", snap.ErrUnknownSnapshot, name)
	}
	return nil
}

// Close releases the pinned connection and the primary store. Snapshot and
// diff handles must be closed first; leaked aliases are logged.
func (c *Catalog) Close() error {
	for alias := range c.attached {
		c.log.Warn("alias still attached at catalog close", "alias", alias)
	}
	var connErr error
	if c.conn != nil {
		connErr = c.conn.Close()
		c.conn = nil
	}
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("%w: closing catalog: %w", snap.ErrStorage, err)
	}
	if connErr != nil {
		return fmt.Errorf("%w: closing connection: %w", snap.ErrStorage, connErr)
	}
	return nil
}

// Package app wires a snapshot store together from configuration: logger,
// catalog and walker. An outer orchestration layer supplies root paths and
// snapshot names and consumes diff callbacks; nothing here parses arguments
// or talks to a network.
package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"snapstore/internal/catalog"
	"snapstore/internal/config"
	"snapstore/internal/fileinfo"
	"snapstore/internal/fs"
	"snapstore/internal/snap"
)

// App owns a fully wired snapshot store. The caller must call Close when
// done; the catalog holds the exclusive writer connection for its root
// directory for the App's lifetime.
type App struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	walker  *fs.Walker
	logger  snap.Logger
	logFile *os.File

	// opID tags every log line written during this run.
	opID string
}

// New creates an App from the given config.
func New(cfg *config.Config) (*App, error) {
	opID := uuid.New().String()
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	adapted := &slogAdapter{l: logger}
	cat, err := catalog.Open(cfg.RootDir, snap.RealClock{}, adapted)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	return &App{
		cfg:     cfg,
		catalog: cat,
		walker:  fs.NewWalker(cfg.Walk.Ignore, adapted),
		logger:  adapted,
		logFile: logFile,
		opID:    opID,
	}, nil
}

// Catalog returns the wired catalog.
func (a *App) Catalog() *catalog.Catalog { return a.catalog }

// Walker returns the wired walker.
func (a *App) Walker() *fs.Walker { return a.walker }

// Logger returns the run's logger.
func (a *App) Logger() snap.Logger { return a.logger }

// TakeSnapshot opens (creating if needed) the named snapshot and fills it
// from root in one transaction. A name derived from the current time keeps
// repeated runs distinct; see catalog.NameForTime.
func (a *App) TakeSnapshot(name catalog.Name, root string) error {
	s, err := a.catalog.OpenSnapshot(name)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			a.logger.Warn("detaching snapshot", "snapshot", name.String(), "error", err)
		}
	}()

	return s.Fill(root, a.walker)
}

// DiffSnapshots opens both named snapshots read-only, compares them, and
// streams every diff row to fn. All three attachments are released before
// returning.
func (a *App) DiffSnapshots(before, after catalog.Name, fn func(catalog.DiffKind, *fileinfo.Info) error) error {
	bs, err := a.catalog.ReadonlySnapshot(before)
	if err != nil {
		return err
	}
	defer bs.Close()

	as, err := a.catalog.ReadonlySnapshot(after)
	if err != nil {
		return err
	}
	defer as.Close()

	diff, err := a.catalog.CompareSnapshots(bs, as)
	if err != nil {
		return err
	}
	defer diff.Close()

	return diff.ForEach(fn)
}

// Close releases the catalog and the log file.
func (a *App) Close() error {
	err := a.catalog.Close()
	if cerr := a.logFile.Close(); err == nil {
		err = cerr
	}
	return err
}

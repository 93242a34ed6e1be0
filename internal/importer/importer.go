// Package importer loads exported compendium packs into the document store as
// read-only pack documents.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/document"
)

// Report summarizes one import run.
type Report struct {
	Created []string
	// Skipped lists ids already present in the store.
	Skipped []string
}

// Importer orchestrates a pack import from a Source to a document Store.
type Importer struct {
	source Source
	store  document.Store
	logger *zap.Logger
}

// New constructs an Importer.
//
// Precondition: source, store and logger must be non-nil.
func New(source Source, store document.Store, logger *zap.Logger) *Importer {
	return &Importer{source: source, store: store, logger: logger}
}

// Run loads every actor of sourceDir and stores it as a document of pack.
// Actors whose id already exists are skipped, so re-running an import is safe.
// With dryRun nothing is written and every convertible actor is reported as created.
//
// Precondition: pack must be non-empty.
// Postcondition: Every actor is converted before anything is written; a
// conversion error aborts the run without writes.
func (imp *Importer) Run(ctx context.Context, sourceDir, pack string, dryRun bool) (Report, error) {
	start := time.Now()
	if pack == "" {
		return Report{}, errors.New("pack name must not be empty")
	}

	actors, err := imp.source.Load(sourceDir)
	if err != nil {
		return Report{}, fmt.Errorf("loading source: %w", err)
	}

	docs := make([]*document.Document, 0, len(actors))
	seen := make(map[string]string, len(actors))
	for _, a := range actors {
		d, err := ToDocument(pack, a)
		if err != nil {
			return Report{}, err
		}
		if prev, dup := seen[d.ID]; dup {
			return Report{}, fmt.Errorf("%s: id %s already used by %s", a.Origin, d.ID, prev)
		}
		seen[d.ID] = a.Origin
		docs = append(docs, d)
	}

	var rep Report
	for _, d := range docs {
		if dryRun {
			rep.Created = append(rep.Created, d.ID)
			continue
		}
		_, err := imp.store.Get(ctx, d.ID)
		switch {
		case err == nil:
			rep.Skipped = append(rep.Skipped, d.ID)
			continue
		case !errors.Is(err, document.ErrNotFound):
			return rep, fmt.Errorf("checking %s: %w", d.ID, err)
		}
		if _, err := imp.store.Create(ctx, d); err != nil {
			return rep, fmt.Errorf("storing %s: %w", d.ID, err)
		}
		rep.Created = append(rep.Created, d.ID)
	}

	imp.logger.Info("pack imported",
		zap.String("pack", pack),
		zap.String("source", sourceDir),
		zap.Int("created", len(rep.Created)),
		zap.Int("skipped", len(rep.Skipped)),
		zap.Bool("dry_run", dryRun),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rep, nil
}

// Package pipeline runs one collection session: raw records flow from a
// collector through the formatter into the vehicle store.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"vehicle-tracker/models"
	"vehicle-tracker/scraper"
	"vehicle-tracker/services"
	"vehicle-tracker/storage"
	"vehicle-tracker/utils"
)

// Options configures one Run.
type Options struct {
	Store storage.SessionOptions

	// Mirror, when set, follows the store's purge and receives every
	// stored record. Its failures are logged, never fatal.
	Mirror storage.Mirror
	// RawDump, when set, receives every raw record before cleaning.
	RawDump storage.RawRecordWriter
}

// Stats counts what happened to the records of one session.
type Stats struct {
	Received   int
	Dropped    int
	Duplicates int
	Stored     int
	Purged     int
}

func (s Stats) String() string {
	return fmt.Sprintf("received=%d stored=%d duplicates=%d dropped=%d purged=%d",
		s.Received, s.Stored, s.Duplicates, s.Dropped, s.Purged)
}

// Pipeline wires the formatter to a store session.
type Pipeline struct {
	formatter *services.Formatter
	logger    *utils.Logger
}

// New creates a Pipeline.
func New(logger *utils.Logger) *Pipeline {
	return &Pipeline{
		formatter: services.NewFormatter(logger),
		logger:    logger,
	}
}

// Run opens a store session, feeds every record the collector emits
// through Format and Append, and closes the session. A store that cannot be
// loaded or purged aborts the run before the collector starts. Records
// stored before a collector failure stay stored.
func (p *Pipeline) Run(ctx context.Context, opts Options, c scraper.Collector) (Stats, error) {
	var stats Stats
	identity := opts.Store.Identity

	session, err := storage.OpenSession(ctx, opts.Store, p.logger)
	if err != nil {
		return stats, fmt.Errorf("pipeline: %s: %w", identity.Key, err)
	}
	stats.Purged = session.Purged()

	if opts.Store.Purge && opts.Mirror != nil {
		if err := opts.Mirror.Purge(identity.Identity()); err != nil {
			p.logger.Warn("[pipeline] mirror purge failed for %s: %v", identity.Key, err)
		}
	}

	var (
		raw      []models.RawRecord
		stored   []models.CleanRecord
		storeErr error
	)

	emit := func(rec models.RawRecord) {
		if storeErr != nil {
			return
		}
		stats.Received++
		if opts.RawDump != nil {
			raw = append(raw, rec)
		}

		clean, err := p.formatter.Format(rec)
		if err != nil {
			stats.Dropped++
			p.logger.Warn("[pipeline] %v", err)
			return
		}

		ok, err := session.Append(clean)
		if err != nil {
			storeErr = err
			return
		}
		if !ok {
			stats.Duplicates++
			return
		}
		stats.Stored++
		if opts.Mirror != nil {
			stored = append(stored, clean)
		}
	}

	collectErr := c.Collect(ctx, emit)
	closeErr := session.Close()

	if opts.RawDump != nil && len(raw) > 0 {
		if err := opts.RawDump.WriteRaw(raw); err != nil {
			p.logger.Warn("[pipeline] raw dump failed: %v", err)
		}
	}
	if opts.Mirror != nil && len(stored) > 0 {
		if err := opts.Mirror.Write(stored); err != nil {
			p.logger.Warn("[pipeline] mirror write failed: %v", err)
		}
	}

	p.logger.Info("[pipeline] %s done: %s", identity.Key, stats)

	if err := errors.Join(storeErr, closeErr); err != nil {
		return stats, fmt.Errorf("pipeline: %s: store: %w", identity.Key, err)
	}
	if collectErr != nil {
		return stats, fmt.Errorf("pipeline: %s: collect: %w", identity.Key, collectErr)
	}
	return stats, nil
}

package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"vehicle-tracker/models"
	"vehicle-tracker/services"
	"vehicle-tracker/utils"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateUninitialized State = iota
	StateLoaded
	StatePurged
	StateAppending
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoaded:
		return "loaded"
	case StatePurged:
		return "purged"
	case StateAppending:
		return "appending"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const lockRetryDelay = 100 * time.Millisecond

// SessionOptions configures one store session.
type SessionOptions struct {
	Path     string
	Purge    bool
	Identity models.Manufacturer
	// LockTimeout bounds how long OpenSession waits for another session
	// to release the store. Zero means a single attempt.
	LockTimeout time.Duration
}

// Session owns the vehicle store for one crawl: it loads the existing rows,
// optionally purges the active manufacturer, and then appends new unique
// records until Close.
type Session struct {
	ID string

	opts     SessionOptions
	logger   *utils.Logger
	resolver *services.Resolver
	lock     *flock.Flock

	state    State
	header   []string
	retained [][]string
	purged   int
	// the loaded store lacks a final newline, so the first append would
	// run into its last row
	unterminated bool

	file   *os.File
	writer *csv.Writer
}

// OpenSession takes the store lock, loads and (optionally) purges the store,
// and leaves the session ready for Append. On any error the lock and file
// handles are released before returning.
func OpenSession(ctx context.Context, opts SessionOptions, logger *utils.Logger) (_ *Session, err error) {
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create store dir: %w", err)
	}

	s := &Session{
		ID:       uuid.NewString()[:8],
		opts:     opts,
		logger:   logger,
		resolver: services.NewResolver(),
		lock:     flock.New(opts.Path + ".lock"),
		state:    StateUninitialized,
	}

	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.release()
		}
	}()

	fresh, err := s.load()
	if err != nil {
		return nil, err
	}

	if !fresh && opts.Purge {
		if err := s.rewrite(); err != nil {
			return nil, err
		}
	}

	if err := s.openAppend(fresh); err != nil {
		return nil, err
	}

	s.logger.Info("[store:%s] %s ready: %d rows kept, %d purged, %d fingerprints",
		s.ID, opts.Path, len(s.retained), s.purged, s.resolver.Size())
	return s, nil
}

func (s *Session) acquire(ctx context.Context) error {
	if s.opts.LockTimeout <= 0 {
		ok, err := s.lock.TryLock()
		if err != nil {
			return fmt.Errorf("csv: lock %q: %w", s.opts.Path, err)
		}
		if !ok {
			return fmt.Errorf("csv: lock %q: %w", s.opts.Path, ErrStoreLocked)
		}
		return nil
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.opts.LockTimeout)
	defer cancel()
	ok, err := s.lock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("csv: lock %q: %w", s.opts.Path, err)
	}
	if !ok {
		return fmt.Errorf("csv: lock %q: %w", s.opts.Path, ErrStoreLocked)
	}
	return nil
}

func (s *Session) release() {
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("[store:%s] unlock %s: %v", s.ID, s.opts.Path, err)
	}
}

// load reads the store into memory. It reports fresh=true when there is no
// store yet (or an empty file), which is the normal first run.
func (s *Session) load() (fresh bool, err error) {
	f, err := os.Open(s.opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("[store:%s] %s does not exist, starting a new store", s.ID, s.opts.Path)
		s.state = StateLoaded
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: open %q: %w", ErrStoreLoad, s.opts.Path, err)
	}
	defer f.Close()

	purgeSet := make(map[string]struct{})
	if s.opts.Purge {
		for _, name := range s.opts.Identity.Identity() {
			purgeSet[name] = struct{}{}
		}
	}

	r := csv.NewReader(f)
	lines := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return false, fmt.Errorf("%w: parse %q: %w", ErrStoreLoad, s.opts.Path, err)
		}
		lines++

		if lines == 1 && isHeader(row) {
			s.header = row
			continue
		}
		if len(row) < 4 {
			return false, fmt.Errorf("%w: %q line %d: want at least 4 columns, got %d",
				ErrStoreLoad, s.opts.Path, lines, len(row))
		}

		if _, hit := purgeSet[strings.ToLower(strings.TrimSpace(row[1]))]; hit {
			s.purged++
			continue
		}
		s.retained = append(s.retained, row)
		s.resolver.Seed(models.RowFingerprint(row))
	}

	s.state = StateLoaded
	if lines == 0 {
		return true, nil
	}
	if s.unterminated, err = endsWithoutNewline(f); err != nil {
		return false, fmt.Errorf("%w: %q: %w", ErrStoreLoad, s.opts.Path, err)
	}
	if s.header == nil {
		s.logger.Warn("[store:%s] %s has no header row", s.ID, s.opts.Path)
	}
	return false, nil
}

// rewrite replaces the store with the retained rows. The new content is
// written to a temporary file in the same directory and renamed over the
// store, so an interrupted purge leaves the old store intact.
func (s *Session) rewrite() error {
	pending, err := renameio.NewPendingFile(s.opts.Path,
		renameio.WithTempDir(filepath.Dir(s.opts.Path)),
		renameio.WithPermissions(0644),
	)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrPurgeRewrite, s.opts.Path, err)
	}
	defer pending.Cleanup()

	w := csv.NewWriter(pending)
	if s.header != nil {
		if err := w.Write(s.header); err != nil {
			return fmt.Errorf("%w: write header: %w", ErrPurgeRewrite, err)
		}
	}
	if err := w.WriteAll(s.retained); err != nil {
		return fmt.Errorf("%w: write rows: %w", ErrPurgeRewrite, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("%w: replace %q: %w", ErrPurgeRewrite, s.opts.Path, err)
	}

	s.state = StatePurged
	s.unterminated = false
	s.logger.Info("[store:%s] purged %d rows for %s", s.ID, s.purged, s.opts.Identity.Name)
	return nil
}

func (s *Session) openAppend(fresh bool) error {
	f, err := os.OpenFile(s.opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("csv: open %q for append: %w", s.opts.Path, err)
	}
	s.file = f
	s.writer = csv.NewWriter(f)

	if s.unterminated {
		if _, err := f.WriteString("\n"); err != nil {
			return fmt.Errorf("csv: terminate last row: %w", err)
		}
		s.unterminated = false
	}

	if fresh {
		if err := s.writer.Write(models.Fields); err != nil {
			return fmt.Errorf("csv: write header: %w", err)
		}
		s.writer.Flush()
		if err := s.writer.Error(); err != nil {
			return fmt.Errorf("csv: write header: %w", err)
		}
	}

	s.state = StateAppending
	return nil
}

// Append stores rec unless its fingerprint is already known. It reports
// whether the record was written.
func (s *Session) Append(rec models.CleanRecord) (bool, error) {
	if s.state != StateAppending {
		return false, ErrSessionClosed
	}
	if s.resolver.Contains(rec) {
		s.logger.Debug("[store:%s] duplicate trim skipped: %s", s.ID, rec.Fingerprint())
		return false, nil
	}

	// the fingerprint is only recorded once the row is on disk, so a
	// failed write does not shadow a later retry of the same trim
	if err := s.writer.Write(rec.Row()); err != nil {
		return false, fmt.Errorf("csv: write row: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return false, fmt.Errorf("csv: flush row: %w", err)
	}
	s.resolver.Seed(rec.Fingerprint())
	return true, nil
}

// Close flushes and closes the store and releases the lock. Calling it
// more than once is a no-op.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed

	var flushErr error
	if s.writer != nil {
		s.writer.Flush()
		flushErr = s.writer.Error()
	}
	var closeErr error
	if s.file != nil {
		closeErr = s.file.Close()
		s.file = nil
	}
	s.release()

	if flushErr != nil {
		return fmt.Errorf("csv: flush: %w", flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("csv: close: %w", closeErr)
	}
	return nil
}

// State returns where the session is in its lifecycle.
func (s *Session) State() State {
	return s.state
}

// Purged returns the number of rows removed by the purge step.
func (s *Session) Purged() int {
	return s.purged
}

// Known returns the number of fingerprints currently tracked.
func (s *Session) Known() int {
	return s.resolver.Size()
}

// ReadAll loads every data row of the store at path. A missing store
// yields no records.
func ReadAll(path string) ([]models.CleanRecord, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %w", ErrStoreLoad, path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %q: %w", ErrStoreLoad, path, err)
	}

	records := make([]models.CleanRecord, 0, len(rows))
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		records = append(records, models.RecordFromRow(row))
	}
	return records, nil
}

// endsWithoutNewline reports whether a non-empty file's last byte is not a
// line feed.
func endsWithoutNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}

func isHeader(row []string) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(row[0]), models.Fields[0])
}

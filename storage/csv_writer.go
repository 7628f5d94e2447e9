package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"vehicle-tracker/models"
)

// RawCSVWriter dumps raw (uncleaned) records exactly as collectors emitted
// them, for debugging site configurations. It is safe for concurrent use.
type RawCSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewRawCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewRawCSVWriter(path string) (*RawCSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(models.Fields); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &RawCSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends raw records.
func (c *RawCSVWriter) WriteRaw(records []models.RawRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range records {
		if err := c.writer.Write([]string{r.Year, r.Make, r.Model, r.Trim, r.MSRP}); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *RawCSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	return c.file.Close()
}

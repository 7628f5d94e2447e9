package scraper

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"vehicle-tracker/models"
	"vehicle-tracker/utils"
)

// Collector produces raw candidate records for one manufacturer. Collect
// calls emit once per discovered trim and never concurrently.
type Collector interface {
	Collect(ctx context.Context, emit func(models.RawRecord)) error
}

// PageSource returns the HTML of a page.
type PageSource interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FileCollector replays raw records from a CSV file whose header names the
// record fields (year, make, model, trim, msrp) in any order. Missing
// columns are left empty; a missing make falls back to DefaultMake.
type FileCollector struct {
	Path        string
	DefaultMake string
	logger      *utils.Logger
}

// NewFileCollector creates a collector reading from path.
func NewFileCollector(path, defaultMake string, logger *utils.Logger) *FileCollector {
	return &FileCollector{Path: path, DefaultMake: defaultMake, logger: logger}
}

// Collect implements Collector.
func (c *FileCollector) Collect(ctx context.Context, emit func(models.RawRecord)) error {
	f, err := os.Open(c.Path)
	if err != nil {
		return fmt.Errorf("raw input: open %q: %w", c.Path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("raw input: read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	get := func(row []string, field string) string {
		i, ok := cols[field]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("raw input: %w", err)
		}

		rec := models.RawRecord{
			Year:  get(row, "year"),
			Make:  get(row, "make"),
			Model: get(row, "model"),
			Trim:  get(row, "trim"),
			MSRP:  get(row, "msrp"),
		}
		if strings.TrimSpace(rec.Make) == "" {
			rec.Make = c.DefaultMake
		}
		emit(rec)
		count++
	}

	c.logger.Info("[raw] Read %d raw records from %s", count, c.Path)
	return nil
}

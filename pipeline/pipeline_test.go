package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vehicle-tracker/models"
	"vehicle-tracker/storage"
	"vehicle-tracker/utils"
)

type sliceCollector struct {
	records []models.RawRecord
	err     error
	called  bool
}

func (c *sliceCollector) Collect(ctx context.Context, emit func(models.RawRecord)) error {
	c.called = true
	for _, r := range c.records {
		emit(r)
	}
	return c.err
}

type fakeMirror struct {
	purged  []string
	written []models.CleanRecord
}

func (m *fakeMirror) Purge(makes []string) error {
	m.purged = append(m.purged, makes...)
	return nil
}

func (m *fakeMirror) Write(records []models.CleanRecord) error {
	m.written = append(m.written, records...)
	return nil
}

func (m *fakeMirror) Close() error { return nil }

type fakeDump struct {
	raw []models.RawRecord
}

func (d *fakeDump) WriteRaw(records []models.RawRecord) error {
	d.raw = append(d.raw, records...)
	return nil
}

func (d *fakeDump) Close() error { return nil }

var acura = models.Manufacturer{Key: "acura", Name: "Acura"}

func acuraRecords() []models.RawRecord {
	return []models.RawRecord{
		{Year: "2024", Make: "ACURA", Model: "Acura TLX", Trim: "TLX A-Spec", MSRP: "$44,500.00"},
		{Year: "2024", Make: "ACURA", Model: "TLX", Trim: "A-Spec", MSRP: "44500"},
		{Year: "N/A", Make: "ACURA", Model: "MDX", Trim: "Base", MSRP: "$50,000"},
		{Year: "2024", Make: "ACURA", Model: "MDX", Trim: "Type S", MSRP: "$74,000"},
	}
}

func TestRunStoresUniqueCleanRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vehicles.csv")
	mirror := &fakeMirror{}
	dump := &fakeDump{}

	stats, err := New(utils.Discard()).Run(context.Background(), Options{
		Store:   storage.SessionOptions{Path: path, Identity: acura},
		Mirror:  mirror,
		RawDump: dump,
	}, &sliceCollector{records: acuraRecords()})
	require.NoError(t, err)

	assert.Equal(t, Stats{Received: 4, Dropped: 1, Duplicates: 1, Stored: 2}, stats)
	assert.Len(t, dump.raw, 4)
	assert.Empty(t, mirror.purged)

	got, err := storage.ReadAll(path)
	require.NoError(t, err)
	want := []models.CleanRecord{
		{Year: "2024", Make: "ACURA", Model: "TLX", Trim: "A-Spec", MSRP: "$44,500"},
		{Year: "2024", Make: "ACURA", Model: "MDX", Trim: "Type S", MSRP: "$74,000"},
	}
	assert.Equal(t, want, got)
	assert.Equal(t, want, mirror.written)
}

func TestRunPurgeRefreshesManufacturer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vehicles.csv")
	p := New(utils.Discard())
	ctx := context.Background()

	_, err := p.Run(ctx, Options{Store: storage.SessionOptions{Path: path, Identity: acura}},
		&sliceCollector{records: acuraRecords()})
	require.NoError(t, err)

	mirror := &fakeMirror{}
	fresh := []models.RawRecord{{Year: "2025", Make: "ACURA", Model: "ADX", Trim: "Base", MSRP: "$34,000"}}
	stats, err := p.Run(ctx, Options{
		Store:  storage.SessionOptions{Path: path, Purge: true, Identity: acura},
		Mirror: mirror,
	}, &sliceCollector{records: fresh})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Purged)
	assert.Equal(t, []string{"acura"}, mirror.purged)

	got, err := storage.ReadAll(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ADX", got[0].Model)
}

func TestRunLoadFailureSkipsCollector(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vehicles.csv")
	require.NoError(t, os.WriteFile(path, []byte("year,make,model,trim,msrp\n2024,AC\"URA,TLX,Base,$1\n"), 0644))

	c := &sliceCollector{records: acuraRecords()}
	_, err := New(utils.Discard()).Run(context.Background(),
		Options{Store: storage.SessionOptions{Path: path, Identity: acura}}, c)

	assert.ErrorIs(t, err, storage.ErrStoreLoad)
	assert.False(t, c.called, "collector must not run against an unreadable store")
}

func TestRunCollectorFailureKeepsStoredRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vehicles.csv")
	boom := errors.New("site changed")
	p := New(utils.Discard())

	stats, err := p.Run(context.Background(),
		Options{Store: storage.SessionOptions{Path: path, Identity: acura}},
		&sliceCollector{records: acuraRecords()[:1], err: boom})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, stats.Stored)

	// the lock was released, so a second session can open the store
	_, err = p.Run(context.Background(),
		Options{Store: storage.SessionOptions{Path: path, Identity: acura}},
		&sliceCollector{})
	require.NoError(t, err)

	got, err := storage.ReadAll(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

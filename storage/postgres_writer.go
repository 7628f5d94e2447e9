package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"vehicle-tracker/models"
)

const insertBatchSize = 50

// PostgresMirror keeps a vehicles table in step with the CSV store.
type PostgresMirror struct {
	db *sql.DB
}

// NewPostgresMirror opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresMirror.
func NewPostgresMirror(dsn string) (*PostgresMirror, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pm := &PostgresMirror{db: db}
	if err := pm.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pm, nil
}

func (pm *PostgresMirror) migrate() error {
	_, err := pm.db.Exec(`
		CREATE TABLE IF NOT EXISTS vehicles (
			id          SERIAL PRIMARY KEY,
			year        CHAR(4)     NOT NULL,
			make        TEXT        NOT NULL,
			model       TEXT        NOT NULL DEFAULT '',
			trim        TEXT        NOT NULL DEFAULT '',
			msrp        TEXT        NOT NULL DEFAULT '',
			fingerprint TEXT        UNIQUE NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_vehicles_make ON vehicles(lower(make));
		CREATE INDEX IF NOT EXISTS idx_vehicles_year ON vehicles(year);
	`)
	return err
}

// Purge deletes every row whose make (case-insensitive) is in makes.
func (pm *PostgresMirror) Purge(makes []string) error {
	if len(makes) == 0 {
		return nil
	}
	lowered := make([]string, len(makes))
	for i, m := range makes {
		lowered[i] = strings.ToLower(m)
	}
	if _, err := pm.db.Exec(`DELETE FROM vehicles WHERE lower(make) = ANY($1)`, pq.Array(lowered)); err != nil {
		return fmt.Errorf("postgres: purge: %w", err)
	}
	return nil
}

// Write batch-inserts records, skipping fingerprints already present.
func (pm *PostgresMirror) Write(records []models.CleanRecord) error {
	for i := 0; i < len(records); i += insertBatchSize {
		end := i + insertBatchSize
		if end > len(records) {
			end = len(records)
		}
		query, args := buildInsert(records[i:end])
		if _, err := pm.db.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: insert batch: %w", err)
		}
	}
	return nil
}

func buildInsert(batch []models.CleanRecord) (string, []any) {
	const cols = 6
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]any, 0, len(batch)*cols)

	for idx, r := range batch {
		base := idx * cols
		valueStrings = append(valueStrings,
			fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
				base+1, base+2, base+3, base+4, base+5, base+6))
		valueArgs = append(valueArgs, r.Year, r.Make, r.Model, r.Trim, r.MSRP, r.Fingerprint())
	}

	query := fmt.Sprintf(`
		INSERT INTO vehicles (year, make, model, trim, msrp, fingerprint)
		VALUES %s
		ON CONFLICT (fingerprint) DO NOTHING
	`, strings.Join(valueStrings, ","))
	return query, valueArgs
}

func (pm *PostgresMirror) Close() error {
	return pm.db.Close()
}

// FetchAll retrieves all mirrored vehicles in insertion order.
func (pm *PostgresMirror) FetchAll() ([]models.CleanRecord, error) {
	rows, err := pm.db.Query(`
		SELECT year, make, model, trim, msrp
		FROM vehicles
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var records []models.CleanRecord
	for rows.Next() {
		var r models.CleanRecord
		if err := rows.Scan(&r.Year, &r.Make, &r.Model, &r.Trim, &r.MSRP); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

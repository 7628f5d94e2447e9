package models

import (
	"errors"
	"fmt"
	"strings"
)

// Fields is the column order of the vehicle store. It doubles as the header row.
var Fields = []string{"year", "make", "model", "trim", "msrp"}

// ErrInvalidYear is the reason a raw record without a 4-digit year is dropped.
var ErrInvalidYear = errors.New("invalid year")

// RawRecord holds one vehicle trim exactly as a collector extracted it.
// Every field is free text and may be empty.
type RawRecord struct {
	Year  string
	Make  string
	Model string
	Trim  string
	MSRP  string
}

// CleanRecord is a normalized vehicle trim ready for the store.
type CleanRecord struct {
	Year  string
	Make  string
	Model string
	Trim  string
	MSRP  string
}

// Fingerprint is the dedupe key: year+make+model+trim with no separator.
// Fields with shifted boundaries can collide; the store format depends on
// this exact key so it is kept as is.
func (r CleanRecord) Fingerprint() string {
	return r.Year + r.Make + r.Model + r.Trim
}

// Row returns the record in store column order.
func (r CleanRecord) Row() []string {
	return []string{r.Year, r.Make, r.Model, r.Trim, r.MSRP}
}

// RecordFromRow builds a CleanRecord from a store row. Missing trailing
// columns are left empty.
func RecordFromRow(row []string) CleanRecord {
	get := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return CleanRecord{Year: get(0), Make: get(1), Model: get(2), Trim: get(3), MSRP: get(4)}
}

// RowFingerprint computes the fingerprint of a stored row from its first
// four columns.
func RowFingerprint(row []string) string {
	n := len(row)
	if n > 4 {
		n = 4
	}
	return strings.Join(row[:n], "")
}

// DroppedRecord explains why a raw record never reached the store.
type DroppedRecord struct {
	Reason error
	Raw    RawRecord
}

func (d *DroppedRecord) Error() string {
	return fmt.Sprintf("dropped %s %s %s: %v", d.Raw.Year, d.Raw.Model, d.Raw.Trim, d.Reason)
}

func (d *DroppedRecord) Unwrap() error {
	return d.Reason
}

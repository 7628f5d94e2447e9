package storage

import "vehicle-tracker/models"

// Mirror is a secondary backend that follows the CSV store: it drops the
// rows of purged makes and receives every record the store accepted.
type Mirror interface {
	Purge(makes []string) error
	Write(records []models.CleanRecord) error
	Close() error
}

// RawRecordWriter persists records before any cleaning.
type RawRecordWriter interface {
	WriteRaw(records []models.RawRecord) error
	Close() error
}

package services

import (
	"vehicle-tracker/models"
	"vehicle-tracker/utils"
)

// Resolver tracks the fingerprints seen during one store session.
type Resolver struct {
	seen *utils.Set
}

// NewResolver creates an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{seen: utils.NewSet()}
}

// Seed registers a fingerprint that is already stored.
func (r *Resolver) Seed(fingerprint string) {
	r.seen.Add(fingerprint)
}

// IsDuplicate reports whether rec was seen before. A new fingerprint is
// recorded, so the caller must persist rec when this returns false.
func (r *Resolver) IsDuplicate(rec models.CleanRecord) bool {
	return !r.seen.Add(rec.Fingerprint())
}

// Contains reports whether rec's fingerprint is known, without recording it.
func (r *Resolver) Contains(rec models.CleanRecord) bool {
	return r.seen.Contains(rec.Fingerprint())
}

// Size returns the number of known fingerprints.
func (r *Resolver) Size() int {
	return r.seen.Size()
}

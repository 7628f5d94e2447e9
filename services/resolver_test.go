package services

import (
	"testing"

	"vehicle-tracker/models"
)

func TestResolverDuplicates(t *testing.T) {
	r := NewResolver()
	rec := models.CleanRecord{Year: "2024", Make: "ACURA", Model: "TLX", Trim: "A-Spec", MSRP: "$45,000"}

	if r.IsDuplicate(rec) {
		t.Fatal("first sighting must not be a duplicate")
	}

	rec.MSRP = "$46,000"
	if !r.IsDuplicate(rec) {
		t.Error("same year/make/model/trim with a new price must be a duplicate")
	}
	if r.Size() != 1 {
		t.Errorf("Size: got %d, want 1", r.Size())
	}
}

func TestResolverSeed(t *testing.T) {
	r := NewResolver()
	r.Seed(models.RowFingerprint([]string{"2024", "HONDA", "Civic", "Sport", "$26,000"}))

	if !r.IsDuplicate(models.CleanRecord{Year: "2024", Make: "HONDA", Model: "Civic", Trim: "Sport"}) {
		t.Error("seeded fingerprint should be reported as duplicate")
	}
}

// The fingerprint joins fields without a separator, so records whose field
// boundaries shift collide. The store format relies on this key, so the
// behavior is pinned here rather than changed.
func TestResolverFingerprintBoundaryCollision(t *testing.T) {
	r := NewResolver()
	a := models.CleanRecord{Year: "2024", Make: "KIA", Model: "K5", Trim: "GT Line"}
	b := models.CleanRecord{Year: "2024", Make: "KIA", Model: "K5GT", Trim: " Line"}

	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("expected colliding fingerprints, got %q and %q", a.Fingerprint(), b.Fingerprint())
	}
	r.IsDuplicate(a)
	if !r.IsDuplicate(b) {
		t.Error("boundary-shifted record is expected to collide")
	}
}

func TestResolverContainsDoesNotRecord(t *testing.T) {
	r := NewResolver()
	rec := models.CleanRecord{Year: "2024", Make: "ACURA", Model: "TLX", Trim: "A-Spec"}

	if r.Contains(rec) {
		t.Fatal("empty resolver should not contain anything")
	}
	if r.Size() != 0 {
		t.Errorf("Contains must not record: Size got %d", r.Size())
	}
	r.Seed(rec.Fingerprint())
	if !r.Contains(rec) {
		t.Error("seeded record should be contained")
	}
}

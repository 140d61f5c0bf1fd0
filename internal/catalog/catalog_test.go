package catalog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cuescout/internal/catalog"
)

func TestShouldProcessUnknownVenue(t *testing.T) {
	c := catalog.NewCollection()
	process, probability := c.ShouldProcess("missing", 6)
	if !process {
		t.Fatal("expected unknown venue to need processing")
	}
	if probability != 0.0 {
		t.Fatalf("expected zero probability for unknown venue, got %v", probability)
	}
}

func TestShouldProcessRespectsStalenessThreshold(t *testing.T) {
	c := catalog.NewCollection()
	venue := catalog.NewVenue("Pier 17", "p1", "89 South St", 0.83, 40.7, -74.0)
	venue.ProcessedAt = time.Now().UTC().Add(-30 * 24 * time.Hour) // one month ago
	c.Upsert(venue)

	process, probability := c.ShouldProcess("p1", 6)
	if process {
		t.Fatal("expected venue scored one month ago to be skipped at six month threshold")
	}
	if probability != 0.83 {
		t.Fatalf("expected cached probability 0.83, got %v", probability)
	}

	process, _ = c.ShouldProcess("p1", 0)
	if !process {
		t.Fatal("expected zero threshold to always reprocess")
	}
}

func TestUpsertReplacesWithoutDuplicating(t *testing.T) {
	c := catalog.NewCollection()
	c.Upsert(catalog.NewVenue("Pier 17", "p1", "89 South St", 0.5, 40.7, -74.0))
	before := c.LastUpdated

	updated := catalog.NewVenue("Pier 17", "p1", "89 South Street", 0.9, 40.7, -74.0)
	c.Upsert(updated)

	if len(c.Venues) != 1 {
		t.Fatalf("expected a single record, got %d", len(c.Venues))
	}
	got, ok := c.Lookup("p1")
	if !ok {
		t.Fatal("expected lookup to find p1")
	}
	if got.Probability != 0.9 || got.Address != "89 South Street" {
		t.Fatalf("expected replaced record, got %+v", got)
	}
	if c.LastUpdated.Before(before) {
		t.Fatal("expected last-updated timestamp to advance")
	}
}

func TestExportFilteredAppliesThresholdAndFormat(t *testing.T) {
	c := catalog.NewCollection()
	c.Upsert(catalog.NewVenue("Corner, Pocket", "a", "1 First Ave", 0.83, 0, 0))
	c.Upsert(catalog.NewVenue("Dive Bar", "b", "2 Second Ave", 0.5, 0, 0))
	c.Upsert(catalog.NewVenue("Rack Room", "c", "3 Third Ave", 0.95, 0, 0))

	var sb strings.Builder
	if err := c.ExportFiltered(&sb, 0.80); err != nil {
		t.Fatalf("ExportFiltered returned error: %v", err)
	}
	out := sb.String()

	if strings.Contains(out, "Dive Bar") {
		t.Fatal("expected venue below threshold to be excluded")
	}
	if !strings.Contains(out, "83.00%") || !strings.Contains(out, "95.00%") {
		t.Fatalf("expected two-decimal percentages, got:\n%s", out)
	}
	if !strings.Contains(out, "Corner Pocket") {
		t.Fatalf("expected separator stripped from name, got:\n%s", out)
	}
}

func TestFilterByRadius(t *testing.T) {
	c := catalog.NewCollection()
	c.Upsert(catalog.NewVenue("Near", "n", "", 0.5, 40.7128, -74.0060))
	c.Upsert(catalog.NewVenue("Far", "f", "", 0.5, 41.8781, -87.6298)) // Chicago

	got := c.FilterByRadius(40.7128, -74.0060, 5000)
	if len(got) != 1 || got[0].PlaceID != "n" {
		t.Fatalf("expected only the nearby venue, got %+v", got)
	}
}

func TestStoreLoadMissingFileDegradesToEmpty(t *testing.T) {
	store := catalog.NewStore(filepath.Join(t.TempDir(), "venues.json"), nil)
	c, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(c.Venues) != 0 {
		t.Fatalf("expected empty collection, got %d venues", len(c.Venues))
	}
}

func TestStoreLoadMalformedFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venues.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	store := catalog.NewStore(path, nil)
	c, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(c.Venues) != 0 {
		t.Fatalf("expected empty collection, got %d venues", len(c.Venues))
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venues.json")
	store := catalog.NewStore(path, nil)

	c := catalog.NewCollection()
	venue := catalog.NewVenue("Pier 17", "p1", "89 South St", 0.83, 40.7, -74.0)
	c.Upsert(venue)
	if err := store.Save(c); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	got, ok := loaded.Lookup("p1")
	if !ok {
		t.Fatal("expected p1 after round trip")
	}
	if got.Probability != 0.83 || got.HumanApproved != 0 {
		t.Fatalf("unexpected venue after round trip: %+v", got)
	}
	if loaded.LastUpdated.Before(got.ProcessedAt) {
		t.Fatal("expected last-updated at or after processed timestamp")
	}
}

func TestStoreMutateSavesResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "venues.json")
	store := catalog.NewStore(path, nil)

	err := store.Mutate(func(c *catalog.Collection) error {
		c.Upsert(catalog.NewVenue("Pier 17", "p1", "", 0.4, 0, 0))
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate returned error: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if _, ok := loaded.Lookup("p1"); !ok {
		t.Fatal("expected mutation to be persisted")
	}
}

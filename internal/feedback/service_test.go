package feedback_test

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cuescout/internal/catalog"
	"cuescout/internal/feedback"
)

func newTestService(t *testing.T) (*feedback.Service, *catalog.Store, string) {
	t.Helper()
	root := t.TempDir()
	outputRoot := filepath.Join(root, "photos")
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		t.Fatal(err)
	}
	store := catalog.NewStore(filepath.Join(root, "catalog.json"), nil)
	svc, err := feedback.NewService(
		outputRoot,
		filepath.Join(root, "negative_training"),
		filepath.Join(root, "confirmed_training"),
		store, nil, nil,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store, outputRoot
}

func writeVenuePhoto(t *testing.T, outputRoot, venueDir, name string) string {
	t.Helper()
	dir := filepath.Join(outputRoot, venueDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func seedVenue(t *testing.T, store *catalog.Store, venue catalog.Venue) {
	t.Helper()
	if err := store.Mutate(func(c *catalog.Collection) error {
		c.Upsert(venue)
		return nil
	}); err != nil {
		t.Fatalf("seed venue: %v", err)
	}
}

func TestApplyPositiveCopiesPhotoAndIncrementsApproval(t *testing.T) {
	svc, store, outputRoot := newTestService(t)
	seedVenue(t, store, catalog.NewVenue("Pier 17", "p1", "89 South St", 0.83, 40.7, -74.0))
	photo := writeVenuePhoto(t, outputRoot, "Pier 17", "photo_p1_0.jpg")

	err := svc.Apply(context.Background(), feedback.Request{
		VenueID:   "p1",
		PhotoPath: "/photos/Pier%2017/photo_p1_0.jpg",
		Positive:  true,
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, err := os.Stat(photo); err != nil {
		t.Fatalf("positive verdict must leave the staged photo in place: %v", err)
	}
	confirmed := filepath.Join(outputRoot, "..", "confirmed_training", "photo_p1_0.jpg")
	if _, err := os.Stat(confirmed); err != nil {
		t.Fatalf("expected photo copied to confirmed training: %v", err)
	}

	collection, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	venue, ok := collection.Lookup("p1")
	if !ok {
		t.Fatal("venue missing after positive verdict")
	}
	if venue.HumanApproved != 1 {
		t.Fatalf("expected approval count 1, got %d", venue.HumanApproved)
	}
	if venue.Probability != 0.83 {
		t.Fatalf("positive verdict must not change probability, got %v", venue.Probability)
	}
}

func TestApplyNegativeMovesPhotoAndKeepsVenueWhilePhotosRemain(t *testing.T) {
	svc, store, outputRoot := newTestService(t)
	seedVenue(t, store, catalog.NewVenue("Pier 17", "p1", "89 South St", 0.83, 40.7, -74.0))
	first := writeVenuePhoto(t, outputRoot, "Pier 17", "photo_p1_0.jpg")
	writeVenuePhoto(t, outputRoot, "Pier 17", "photo_p1_1.jpg")

	err := svc.Apply(context.Background(), feedback.Request{
		VenueID:   "p1",
		PhotoPath: "/photos/Pier%2017/photo_p1_0.jpg",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, err := os.Stat(first); !os.IsNotExist(err) {
		t.Fatal("expected rejected photo moved out of venue directory")
	}
	negative := filepath.Join(outputRoot, "..", "negative_training", "photo_p1_0.jpg")
	if _, err := os.Stat(negative); err != nil {
		t.Fatalf("expected photo in negative training: %v", err)
	}

	collection, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	venue, ok := collection.Lookup("p1")
	if !ok {
		t.Fatal("venue missing")
	}
	if venue.Probability != 0.83 {
		t.Fatalf("probability must survive while photos remain, got %v", venue.Probability)
	}
}

func TestApplyNegativeLastPhotoZeroesProbability(t *testing.T) {
	svc, store, outputRoot := newTestService(t)
	seeded := catalog.NewVenue("Pier 17", "p1", "89 South St", 0.83, 40.7, -74.0)
	seeded.ProcessedAt = time.Now().UTC().Add(-48 * time.Hour)
	seedVenue(t, store, seeded)
	writeVenuePhoto(t, outputRoot, "Pier 17", "photo_p1_0.jpg")

	err := svc.Apply(context.Background(), feedback.Request{
		VenueID:   "p1",
		PhotoPath: "/photos/Pier%2017/photo_p1_0.jpg",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outputRoot, "Pier 17")); !os.IsNotExist(err) {
		t.Fatal("expected emptied venue directory removed")
	}

	collection, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	venue, ok := collection.Lookup("p1")
	if !ok {
		t.Fatal("venue missing")
	}
	if venue.Probability != 0.0 {
		t.Fatalf("expected probability zeroed, got %v", venue.Probability)
	}
	if !venue.ProcessedAt.After(seeded.ProcessedAt) {
		t.Fatal("expected processed timestamp refreshed on zeroing")
	}
}

func TestApplyRejectsMissingPhoto(t *testing.T) {
	svc, store, _ := newTestService(t)
	seedVenue(t, store, catalog.NewVenue("Pier 17", "p1", "89 South St", 0.83, 40.7, -74.0))

	err := svc.Apply(context.Background(), feedback.Request{
		VenueID:   "p1",
		PhotoPath: "/photos/Pier%2017/photo_p1_9.jpg",
		Positive:  true,
	})
	if !errors.Is(err, feedback.ErrPhotoNotFound) {
		t.Fatalf("expected photo-not-found error, got %v", err)
	}
}

func TestApplyRejectsPathEscapingOutputRoot(t *testing.T) {
	svc, _, _ := newTestService(t)

	escaped := url.PathEscape("../catalog.json")
	err := svc.Apply(context.Background(), feedback.Request{
		VenueID:   "p1",
		PhotoPath: "/photos/" + escaped,
	})
	if err == nil {
		t.Fatal("expected traversal attempt rejected")
	}
}

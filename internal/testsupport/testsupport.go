// Package testsupport provides shared fixtures for package tests: temp-rooted
// configs, catalog documents, and staged photo directories.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"cuescout/internal/catalog"
	"cuescout/internal/config"
	"cuescout/internal/photos"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Places.APIKey = "test"
	cfg.Paths.OutputDir = filepath.Join(base, "photos")
	cfg.Paths.CatalogPath = filepath.Join(base, "catalog.json")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.JournalPath = filepath.Join(base, "feedback.db")
	cfg.Paths.ModelPath = filepath.Join(base, "model.keras")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithPlaceTypes overrides the place categories on the test config.
func WithPlaceTypes(types ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Search.PlaceTypes = types
	}
}

// SeedCatalog writes the venues into a fresh store at the config's catalog
// path and returns the store.
func SeedCatalog(t testing.TB, cfg *config.Config, venues ...catalog.Venue) *catalog.Store {
	t.Helper()
	store := catalog.NewStore(cfg.Paths.CatalogPath, nil)
	if err := store.Mutate(func(c *catalog.Collection) error {
		for _, venue := range venues {
			c.Upsert(venue)
		}
		return nil
	}); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	return store
}

// StagePhotos materializes placeholder artifact files for a venue under the
// config's output root and returns their paths.
func StagePhotos(t testing.TB, cfg *config.Config, venueID, displayName string, count int) []string {
	t.Helper()
	dir := filepath.Join(cfg.Paths.OutputDir, photos.SanitizeVenueName(displayName))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create venue directory: %v", err)
	}
	var paths []string
	for i := 0; i < count; i++ {
		path := filepath.Join(dir, photos.ArtifactName(venueID, i))
		if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
			t.Fatalf("write photo fixture: %v", err)
		}
		paths = append(paths, path)
	}
	return paths
}

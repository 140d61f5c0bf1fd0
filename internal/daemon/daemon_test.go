package daemon_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cuescout/internal/catalog"
	"cuescout/internal/daemon"
	"cuescout/internal/feedback"
	"cuescout/internal/hub"
	"cuescout/internal/photos"
	"cuescout/internal/pipeline"
	"cuescout/internal/places"
	"cuescout/internal/testsupport"
)

type stubDiscovery struct {
	place   places.Place
	details places.Details
}

func (d *stubDiscovery) SearchNearby(context.Context, float64, float64, float64, string) ([]places.Place, error) {
	return []places.Place{d.place}, nil
}

func (d *stubDiscovery) Details(context.Context, string) (places.Details, error) {
	return d.details, nil
}

type stubStage struct {
	root string
}

func (s *stubStage) Acquire(_ context.Context, venueID string, mediaRefs []string, displayName string) ([]string, error) {
	dir := s.VenueDir(displayName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	for i := range mediaRefs {
		path := filepath.Join(dir, photos.ArtifactName(venueID, i))
		if err := os.WriteFile(path, []byte("jpeg"), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func (s *stubStage) VenueDir(displayName string) string {
	return filepath.Join(s.root, photos.SanitizeVenueName(displayName))
}

func (s *stubStage) SweepEmptyDirs() error { return nil }

type stubScorer struct {
	probability float64
}

func (s *stubScorer) Score(context.Context, string, string, string, bool) (float64, error) {
	return s.probability, nil
}

type fixture struct {
	baseURL  string
	store    *catalog.Store
	statuses *hub.Hub
	root     string
}

func startDaemon(t *testing.T, probability float64) *fixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := catalog.NewStore(cfg.Paths.CatalogPath, nil)
	statuses := hub.New(nil)
	stage := &stubStage{root: cfg.Paths.OutputDir}

	runner, err := pipeline.NewRunner(pipeline.Options{
		Discovery: &stubDiscovery{
			place:   places.Place{ID: "p1", Name: "Pier 17", Address: "89 South St", Latitude: 40.7, Longitude: -74.0},
			details: places.Details{Photos: []string{"places/p1/photos/a"}},
		},
		Stage:    stage,
		Scorer:   &stubScorer{probability: probability},
		Store:    store,
		Progress: statuses.Broadcast,
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	journal, err := feedback.OpenJournal(cfg.Paths.JournalPath)
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	t.Cleanup(func() { _ = journal.Close() })

	fb, err := feedback.NewService(cfg.Paths.OutputDir, cfg.NegativeTrainingDir(), cfg.ConfirmedTrainingDir(), store, journal, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	d, err := daemon.New(cfg, store, runner, fb, journal, statuses, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	return &fixture{
		baseURL:  "http://" + d.Addr(),
		store:    store,
		statuses: statuses,
		root:     cfg.Paths.OutputDir,
	}
}

func TestSearchEndpointScoresAndReportsVenues(t *testing.T) {
	fx := startDaemon(t, 0.83)

	resp, err := http.Post(fx.baseURL+"/api/search", "application/json",
		strings.NewReader(`{"radius_meters": 500}`))
	if err != nil {
		t.Fatalf("POST /api/search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Venues []struct {
			Name        string   `json:"name"`
			PlaceID     string   `json:"place_id"`
			Probability float64  `json:"pool_table_probability"`
			PhotoURLs   []string `json:"photo_urls"`
		} `json:"venues"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Venues) != 1 {
		t.Fatalf("expected 1 venue, got %d", len(payload.Venues))
	}
	venue := payload.Venues[0]
	if venue.Name != "Pier 17" || venue.Probability != 0.83 {
		t.Fatalf("unexpected venue: %+v", venue)
	}
	if len(venue.PhotoURLs) != 1 || !strings.HasPrefix(venue.PhotoURLs[0], "/photos/") {
		t.Fatalf("expected photo urls under /photos/, got %v", venue.PhotoURLs)
	}
}

func TestSearchEndpointOmitsZeroProbabilityVenues(t *testing.T) {
	fx := startDaemon(t, 0.0)

	resp, err := http.Post(fx.baseURL+"/api/search", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("POST /api/search: %v", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Venues []json.RawMessage `json:"venues"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Venues) != 0 {
		t.Fatalf("zero-probability venues must be omitted, got %d", len(payload.Venues))
	}
}

func TestVenuesEndpointFiltersByProbability(t *testing.T) {
	fx := startDaemon(t, 0.5)

	err := fx.store.Mutate(func(c *catalog.Collection) error {
		c.Upsert(catalog.NewVenue("Pier 17", "p1", "89 South St", 0.83, 40.7, -74.0))
		c.Upsert(catalog.NewVenue("Dry Spot", "p2", "1 Main St", 0.1, 40.8, -74.1))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(fx.baseURL + "/api/venues?min_probability=0.5")
	if err != nil {
		t.Fatalf("GET /api/venues: %v", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Venues []struct {
			PlaceID string `json:"place_id"`
		} `json:"venues"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Venues) != 1 || payload.Venues[0].PlaceID != "p1" {
		t.Fatalf("expected only the high-probability venue, got %+v", payload.Venues)
	}
}

func TestFeedbackEndpointReportsMissingPhoto(t *testing.T) {
	fx := startDaemon(t, 0.5)

	if err := fx.store.Mutate(func(c *catalog.Collection) error {
		c.Upsert(catalog.NewVenue("Pier 17", "p1", "89 South St", 0.83, 40.7, -74.0))
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	body := `{"venue_id":"p1","photo_path":"/photos/Pier%2017/photo_p1_9.jpg","is_positive":true}`
	resp, err := http.Post(fx.baseURL+"/api/feedback", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/feedback: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing photo, got %d", resp.StatusCode)
	}
}

func TestFeedbackEndpointAppliesPositiveVerdict(t *testing.T) {
	fx := startDaemon(t, 0.5)

	if err := fx.store.Mutate(func(c *catalog.Collection) error {
		c.Upsert(catalog.NewVenue("Pier 17", "p1", "89 South St", 0.83, 40.7, -74.0))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	venueDir := filepath.Join(fx.root, "Pier 17")
	if err := os.MkdirAll(venueDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(venueDir, "photo_p1_0.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	body := `{"venue_id":"p1","photo_path":"/photos/Pier%2017/photo_p1_0.jpg","is_positive":true}`
	resp, err := http.Post(fx.baseURL+"/api/feedback", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/feedback: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	collection, err := fx.store.Load()
	if err != nil {
		t.Fatal(err)
	}
	venue, _ := collection.Lookup("p1")
	if venue.HumanApproved != 1 {
		t.Fatalf("expected approval recorded, got %d", venue.HumanApproved)
	}
}

func TestFeedbackEndpointListsJournaledVerdicts(t *testing.T) {
	fx := startDaemon(t, 0.5)

	if err := fx.store.Mutate(func(c *catalog.Collection) error {
		c.Upsert(catalog.NewVenue("Pier 17", "p1", "89 South St", 0.83, 40.7, -74.0))
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	venueDir := filepath.Join(fx.root, "Pier 17")
	if err := os.MkdirAll(venueDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(venueDir, "photo_p1_0.jpg"), []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	body := `{"venue_id":"p1","photo_path":"/photos/Pier%2017/photo_p1_0.jpg","is_positive":true}`
	post, err := http.Post(fx.baseURL+"/api/feedback", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/feedback: %v", err)
	}
	post.Body.Close()
	if post.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", post.StatusCode)
	}

	resp, err := http.Get(fx.baseURL + "/api/feedback?limit=10")
	if err != nil {
		t.Fatalf("GET /api/feedback: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Entries []struct {
			VenueID   string `json:"venue_id"`
			Photo     string `json:"photo"`
			Positive  bool   `json:"is_positive"`
			CreatedAt string `json:"created_at"`
		} `json:"entries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Entries) != 1 {
		t.Fatalf("expected 1 journaled verdict, got %d", len(payload.Entries))
	}
	entry := payload.Entries[0]
	if entry.VenueID != "p1" || entry.Photo != "photo_p1_0.jpg" || !entry.Positive {
		t.Fatalf("unexpected journal entry: %+v", entry)
	}
	if _, err := time.Parse(time.RFC3339, entry.CreatedAt); err != nil {
		t.Fatalf("created_at not RFC3339: %v", err)
	}
}

func TestStatusEndpointStreamsProgressEvents(t *testing.T) {
	fx := startDaemon(t, 0.5)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fx.baseURL+"/api/status", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("expected event-stream content type, got %q", got)
	}

	fx.statuses.Broadcast("Processing Pier 17")

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if scanner.Text() == "data: Processing Pier 17" {
			return
		}
	}
	t.Fatalf("status stream ended without the expected event: %v", scanner.Err())
}

func TestSecondDaemonInstanceRefusesToStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	build := func() *daemon.Daemon {
		store := catalog.NewStore(cfg.Paths.CatalogPath, nil)
		statuses := hub.New(nil)
		runner, err := pipeline.NewRunner(pipeline.Options{
			Discovery: &stubDiscovery{},
			Stage:     &stubStage{root: cfg.Paths.OutputDir},
			Scorer:    &stubScorer{},
			Store:     store,
		})
		if err != nil {
			t.Fatal(err)
		}
		fb, err := feedback.NewService(cfg.Paths.OutputDir, cfg.NegativeTrainingDir(), cfg.ConfirmedTrainingDir(), store, nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		d, err := daemon.New(cfg, store, runner, fb, nil, statuses, nil)
		if err != nil {
			t.Fatal(err)
		}
		return d
	}

	first := build()
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()

	second := build()
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to refuse to start")
	} else if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}

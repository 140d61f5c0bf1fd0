package places_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"cuescout/internal/places"
)

func TestSearchNearbySendsCircleAndParsesPlaces(t *testing.T) {
	var gotBody map[string]any
	var gotMask string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/places:searchNearby" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("X-Goog-Api-Key") != "test-key" {
			t.Errorf("missing api key header")
		}
		gotMask = r.Header.Get("X-Goog-FieldMask")
		payload, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(payload, &gotBody)
		_, _ = w.Write([]byte(`{"places":[{"id":"p1","displayName":{"text":"Pier 17"},"formattedAddress":"89 South St","location":{"latitude":40.7,"longitude":-74.0}}]}`))
	}))
	defer server.Close()

	client, err := places.New("test-key", server.URL, places.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	results, err := client.SearchNearby(context.Background(), 40.7128, -74.006, 10000, "bar")
	if err != nil {
		t.Fatalf("SearchNearby returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one place, got %d", len(results))
	}
	got := results[0]
	if got.ID != "p1" || got.Name != "Pier 17" || got.Address != "89 South St" {
		t.Fatalf("unexpected place: %+v", got)
	}
	if gotMask == "" {
		t.Fatal("expected field mask header")
	}
	restriction, ok := gotBody["locationRestriction"].(map[string]any)
	if !ok {
		t.Fatalf("missing locationRestriction in body: %v", gotBody)
	}
	circle := restriction["circle"].(map[string]any)
	if circle["radius"].(float64) != 10000 {
		t.Fatalf("unexpected radius: %v", circle["radius"])
	}
	types := gotBody["includedTypes"].([]any)
	if len(types) != 1 || types[0] != "bar" {
		t.Fatalf("unexpected includedTypes: %v", types)
	}
}

func TestSearchNearbyReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"denied"}`, http.StatusForbidden)
	}))
	defer server.Close()

	client, err := places.New("test-key", server.URL, places.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.SearchNearby(context.Background(), 0, 0, 100, "bar"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}

func TestDetailsParsesPhotoReferences(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/places/p1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"displayName":{"text":"Pier 17"},"photos":[{"name":"places/p1/photos/a"},{"name":"places/p1/photos/b"}]}`))
	}))
	defer server.Close()

	client, err := places.New("test-key", server.URL, places.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	details, err := client.Details(context.Background(), "p1")
	if err != nil {
		t.Fatalf("Details returned error: %v", err)
	}
	if details.Name != "Pier 17" {
		t.Fatalf("unexpected name: %q", details.Name)
	}
	if len(details.Photos) != 2 || details.Photos[0] != "places/p1/photos/a" {
		t.Fatalf("unexpected photos: %v", details.Photos)
	}
}

package photos_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuescout/internal/photos"
)

type stubFetcher struct {
	data    map[string][]byte
	err     error
	fetches int
}

func (s *stubFetcher) Fetch(ctx context.Context, mediaRef string) ([]byte, error) {
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	if data, ok := s.data[mediaRef]; ok {
		return data, nil
	}
	return nil, errors.New("unknown media ref")
}

func TestSanitizeVenueName(t *testing.T) {
	cases := map[string]string{
		"Joe's Bar":        "Joe's Bar",
		"A/B\\C:D*E?F":     "A_B_C_D_E_F",
		`"Quoted" <Name>|`: "_Quoted_ _Name__",
		"  padded  ":       "padded",
	}
	for input, want := range cases {
		if got := photos.SanitizeVenueName(input); got != want {
			t.Errorf("SanitizeVenueName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestAcquireIsIdempotent(t *testing.T) {
	root := t.TempDir()
	fetcher := &stubFetcher{data: map[string][]byte{
		"ref-0": []byte("image-0"),
		"ref-1": []byte("image-1"),
	}}
	stage, err := photos.NewStage(root, fetcher, nil)
	if err != nil {
		t.Fatalf("NewStage returned error: %v", err)
	}

	refs := []string{"ref-0", "ref-1"}
	first, err := stage.Acquire(context.Background(), "p1", refs, "Pier 17")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected two artifacts, got %d", len(first))
	}
	if fetcher.fetches != 2 {
		t.Fatalf("expected two fetches, got %d", fetcher.fetches)
	}

	second, err := stage.Acquire(context.Background(), "p1", refs, "Pier 17")
	if err != nil {
		t.Fatalf("second Acquire returned error: %v", err)
	}
	if fetcher.fetches != 2 {
		t.Fatalf("expected zero fetches on re-run, got %d total", fetcher.fetches)
	}
	if len(second) != 2 || second[0] != first[0] || second[1] != first[1] {
		t.Fatalf("expected identical paths, got %v vs %v", first, second)
	}
}

func TestAcquireSkipsFailedPhotoAndContinues(t *testing.T) {
	root := t.TempDir()
	fetcher := &stubFetcher{data: map[string][]byte{"good": []byte("image")}}
	stage, err := photos.NewStage(root, fetcher, nil)
	if err != nil {
		t.Fatalf("NewStage returned error: %v", err)
	}

	paths, err := stage.Acquire(context.Background(), "p1", []string{"missing", "good"}, "Pier 17")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected one artifact, got %v", paths)
	}
	if filepath.Base(paths[0]) != photos.ArtifactName("p1", 1) {
		t.Fatalf("unexpected artifact name: %s", paths[0])
	}
}

func TestAcquireRemovesDirectoryWhenNothingDownloaded(t *testing.T) {
	root := t.TempDir()
	fetcher := &stubFetcher{err: errors.New("network down")}
	stage, err := photos.NewStage(root, fetcher, nil)
	if err != nil {
		t.Fatalf("NewStage returned error: %v", err)
	}

	paths, err := stage.Acquire(context.Background(), "p1", []string{"a", "b"}, "Pier 17")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no artifacts, got %v", paths)
	}
	if _, err := os.Stat(filepath.Join(root, "Pier 17")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected venue directory removed, got err=%v", err)
	}
}

func TestSweepEmptyDirsLeavesPopulatedDirectories(t *testing.T) {
	root := t.TempDir()
	emptyDir := filepath.Join(root, "Empty Venue")
	fullDir := filepath.Join(root, "Full Venue")
	if err := os.MkdirAll(emptyDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(fullDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fullDir, "photo_x_0.jpg"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	stage, err := photos.NewStage(root, &stubFetcher{}, nil)
	if err != nil {
		t.Fatalf("NewStage returned error: %v", err)
	}
	if err := stage.SweepEmptyDirs(); err != nil {
		t.Fatalf("SweepEmptyDirs returned error: %v", err)
	}

	if _, err := os.Stat(emptyDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected empty dir removed, got err=%v", err)
	}
	if _, err := os.Stat(fullDir); err != nil {
		t.Fatalf("expected populated dir kept: %v", err)
	}
}

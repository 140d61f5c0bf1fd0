package photos

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuescout/internal/fileutil"
	"cuescout/internal/logging"
)

// Fetcher downloads the raw bytes behind one photo media reference.
type Fetcher interface {
	Fetch(ctx context.Context, mediaRef string) ([]byte, error)
}

// Stage materializes venue photos under the output root. Re-running the stage
// for the same venue is a no-op for indices already on disk.
type Stage struct {
	outputRoot string
	fetcher    Fetcher
	logger     *slog.Logger
}

// NewStage constructs the acquisition stage.
func NewStage(outputRoot string, fetcher Fetcher, logger *slog.Logger) (*Stage, error) {
	if strings.TrimSpace(outputRoot) == "" {
		return nil, errors.New("output root required")
	}
	if fetcher == nil {
		return nil, errors.New("fetcher required")
	}
	return &Stage{
		outputRoot: outputRoot,
		fetcher:    fetcher,
		logger:     logging.WithComponent(logger, "photos"),
	}, nil
}

// ArtifactName derives the deterministic file name for a venue photo index.
func ArtifactName(venueID string, index int) string {
	return fmt.Sprintf("photo_%s_%d.jpg", venueID, index)
}

// VenueDir returns the per-venue photo directory for a display name.
func (s *Stage) VenueDir(displayName string) string {
	return filepath.Join(s.outputRoot, SanitizeVenueName(displayName))
}

// Acquire downloads the venue's photos, skipping indices that already exist.
// A single failed fetch is logged and skipped; the stage only fails on
// filesystem errors. When no artifact survives the attempt the venue
// directory is removed.
func (s *Stage) Acquire(ctx context.Context, venueID string, mediaRefs []string, displayName string) ([]string, error) {
	dir := s.VenueDir(displayName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create venue directory: %w", err)
	}

	var paths []string
	for i, ref := range mediaRefs {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		target := filepath.Join(dir, ArtifactName(venueID, i))
		if _, err := os.Stat(target); err == nil {
			s.logger.Debug("photo already downloaded",
				logging.String("venue", displayName),
				logging.Int("index", i))
			paths = append(paths, target)
			continue
		}

		data, err := s.fetcher.Fetch(ctx, ref)
		if err != nil {
			s.logger.Warn("photo fetch failed, skipping",
				logging.String("venue", displayName),
				logging.Int("index", i),
				logging.Error(err))
			continue
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return paths, fmt.Errorf("write photo %s: %w", target, err)
		}
		paths = append(paths, target)
	}

	if len(paths) == 0 {
		if err := removeIfEmpty(dir); err != nil {
			s.logger.Warn("remove empty venue directory", logging.Error(err))
		}
	}
	return paths, nil
}

// SweepEmptyDirs removes venue directories that hold no artifacts. Feedback
// processing can empty a directory long after acquisition, so the pipeline
// runs this over the whole output root at the end of a run.
func (s *Stage) SweepEmptyDirs() error {
	entries, err := os.ReadDir(s.outputRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read output root: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := removeIfEmpty(filepath.Join(s.outputRoot, entry.Name())); err != nil {
			s.logger.Warn("sweep venue directory",
				logging.String("dir", entry.Name()),
				logging.Error(err))
		}
	}
	return nil
}

func removeIfEmpty(dir string) error {
	empty, err := fileutil.IsEmptyDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if !empty {
		return nil
	}
	return os.Remove(dir)
}

package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuescout/internal/catalog"
	"cuescout/internal/fileutil"
	"cuescout/internal/logging"
)

var (
	// ErrVenueNotFound means no catalog record matches the identifier.
	ErrVenueNotFound = errors.New("venue not found")
	// ErrPhotoNotFound means the referenced artifact is not on disk.
	ErrPhotoNotFound = errors.New("photo not found")
)

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// Request is one human verdict on a venue photo. PhotoPath is the photo URL
// path handed to the UI (URL-escaped, rooted at /photos/).
type Request struct {
	VenueID   string `json:"venue_id"`
	PhotoPath string `json:"photo_path"`
	Positive  bool   `json:"is_positive"`
}

// Service applies verdicts: curating training directories, adjusting the
// catalog, and journaling every verdict for later training-set assembly.
type Service struct {
	outputRoot   string
	negativeDir  string
	confirmedDir string
	store        *catalog.Store
	journal      *Journal
	logger       *slog.Logger
}

// NewService constructs the feedback service. The journal may be nil to
// disable verdict journaling.
func NewService(outputRoot, negativeDir, confirmedDir string, store *catalog.Store, journal *Journal, logger *slog.Logger) (*Service, error) {
	if strings.TrimSpace(outputRoot) == "" {
		return nil, errors.New("output root required")
	}
	if store == nil {
		return nil, errors.New("catalog store required")
	}
	return &Service{
		outputRoot:   outputRoot,
		negativeDir:  negativeDir,
		confirmedDir: confirmedDir,
		store:        store,
		journal:      journal,
		logger:       logging.WithComponent(logger, "feedback"),
	}, nil
}

// Apply processes one verdict.
//
// Negative: the artifact moves into the negative-training directory; if it
// was the venue's last remaining photo, the venue directory is removed and
// the venue's probability zeroed with a fresh processed timestamp. Positive:
// the artifact is copied into the confirmed-training directory and the
// venue's human-approval counter incremented. The catalog save happens
// immediately in both mutation paths.
func (s *Service) Apply(ctx context.Context, req Request) error {
	venueID := strings.TrimSpace(req.VenueID)
	if venueID == "" {
		return fmt.Errorf("venue identifier required")
	}

	source, err := s.resolvePhotoPath(req.PhotoPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(source); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrPhotoNotFound, source)
		}
		return fmt.Errorf("stat photo: %w", err)
	}

	if req.Positive {
		err = s.applyPositive(venueID, source)
	} else {
		err = s.applyNegative(venueID, source)
	}
	if err != nil {
		return err
	}

	if s.journal != nil {
		entry := Entry{
			VenueID:   venueID,
			Photo:     filepath.Base(source),
			Positive:  req.Positive,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.journal.Record(ctx, entry); err != nil {
			s.logger.Warn("journal verdict", logging.Error(err))
		}
	}
	return nil
}

func (s *Service) applyNegative(venueID, source string) error {
	if err := os.MkdirAll(s.negativeDir, 0o755); err != nil {
		return fmt.Errorf("create negative training directory: %w", err)
	}
	dest := filepath.Join(s.negativeDir, filepath.Base(source))
	if err := fileutil.MoveFile(source, dest); err != nil {
		return fmt.Errorf("move photo to negative training: %w", err)
	}

	venueDir := filepath.Dir(source)
	remaining, err := fileutil.CountFilesWithExt(venueDir, imageExtensions...)
	if err != nil {
		return fmt.Errorf("inspect venue directory: %w", err)
	}
	if remaining > 0 {
		s.logger.Info("negative verdict recorded",
			logging.String("venue", venueID),
			logging.Int("remaining_photos", remaining))
		return nil
	}

	if err := os.RemoveAll(venueDir); err != nil {
		return fmt.Errorf("remove empty venue directory: %w", err)
	}
	return s.store.Mutate(func(c *catalog.Collection) error {
		venue, ok := c.Lookup(venueID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrVenueNotFound, venueID)
		}
		venue.Probability = 0.0
		venue.ProcessedAt = time.Now().UTC()
		c.Upsert(venue)
		return nil
	})
}

func (s *Service) applyPositive(venueID, source string) error {
	if err := os.MkdirAll(s.confirmedDir, 0o755); err != nil {
		return fmt.Errorf("create confirmed training directory: %w", err)
	}
	dest := filepath.Join(s.confirmedDir, filepath.Base(source))
	if err := fileutil.CopyFile(source, dest); err != nil {
		return fmt.Errorf("copy photo to confirmed training: %w", err)
	}

	return s.store.Mutate(func(c *catalog.Collection) error {
		venue, ok := c.Lookup(venueID)
		if !ok {
			return fmt.Errorf("%w: %s", ErrVenueNotFound, venueID)
		}
		venue.HumanApproved++
		c.Upsert(venue)
		return nil
	})
}

// resolvePhotoPath maps the photo URL path back onto the output root,
// rejecting escapes outside of it.
func (s *Service) resolvePhotoPath(photoPath string) (string, error) {
	decoded, err := url.PathUnescape(strings.TrimSpace(photoPath))
	if err != nil {
		return "", fmt.Errorf("decode photo path: %w", err)
	}
	decoded = strings.TrimPrefix(decoded, "/photos/")
	if decoded == "" {
		return "", errors.New("photo path required")
	}

	resolved := filepath.Join(s.outputRoot, filepath.FromSlash(decoded))
	rel, err := filepath.Rel(s.outputRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("photo path escapes output root: %s", photoPath)
	}
	return resolved, nil
}

package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"cuescout/internal/logging"
)

// Store persists a Collection as a single JSON document, serializing every
// load-mutate-save cycle behind a file lock so a running pipeline and a
// feedback handler cannot silently overwrite each other's saves.
type Store struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger
}

// NewStore creates a store for the catalog document at path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logging.WithComponent(logger, "catalog"),
	}
}

// Path returns the on-disk location of the catalog document.
func (s *Store) Path() string {
	return s.path
}

// Load reads the catalog document. A missing or malformed file degrades to an
// empty collection; only unexpected IO failures surface as errors.
func (s *Store) Load() (*Collection, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("no catalog found, starting empty", logging.String("path", s.path))
			return NewCollection(), nil
		}
		return nil, fmt.Errorf("read catalog %s: %w", s.path, err)
	}

	var collection Collection
	if err := json.Unmarshal(data, &collection); err != nil {
		s.logger.Warn("catalog unparseable, starting empty",
			logging.String("path", s.path),
			logging.Error(err))
		return NewCollection(), nil
	}
	s.logger.Debug("catalog loaded",
		logging.String("path", s.path),
		logging.Int("venues", len(collection.Venues)))
	return &collection, nil
}

// Save overwrites the catalog document wholesale.
func (s *Store) Save(c *Collection) error {
	if c == nil {
		return errors.New("nil collection")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure catalog directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write catalog %s: %w", s.path, err)
	}
	return nil
}

// Mutate runs fn over a freshly-loaded collection and saves the result, all
// under the catalog file lock. fn returning an error abandons the save.
func (s *Store) Mutate(fn func(*Collection) error) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	collection, err := s.Load()
	if err != nil {
		return err
	}
	if err := fn(collection); err != nil {
		return err
	}
	return s.Save(collection)
}

// SaveLocked saves the collection under the catalog file lock. Used for
// checkpoint and final saves where the caller owns the in-memory collection.
func (s *Store) SaveLocked(c *Collection) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	return s.Save(c)
}

func (s *Store) acquire() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure catalog directory: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("acquire catalog lock: %w", err)
	}
	return nil
}

func (s *Store) release() {
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("release catalog lock", logging.Error(err))
	}
}

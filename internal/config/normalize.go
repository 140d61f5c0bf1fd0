package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePlaces()
	c.normalizeProcessing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.CatalogPath, err = expandPath(c.Paths.CatalogPath); err != nil {
		return fmt.Errorf("paths.catalog_path: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ModelPath, err = expandPath(c.Paths.ModelPath); err != nil {
		return fmt.Errorf("paths.model_path: %w", err)
	}
	if c.Paths.CredentialsPath, err = expandPath(c.Paths.CredentialsPath); err != nil {
		return fmt.Errorf("paths.credentials_path: %w", err)
	}
	if c.Paths.JournalPath, err = expandPath(c.Paths.JournalPath); err != nil {
		return fmt.Errorf("paths.journal_path: %w", err)
	}
	if c.Scorer.Script, err = expandPath(c.Scorer.Script); err != nil {
		return fmt.Errorf("scorer.script: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizePlaces() {
	if key := strings.TrimSpace(os.Getenv("GOOGLE_PLACES_API_KEY")); key != "" {
		c.Places.APIKey = key
	}
	c.Places.APIKey = strings.TrimSpace(c.Places.APIKey)
	c.Places.BaseURL = strings.TrimRight(strings.TrimSpace(c.Places.BaseURL), "/")
	if c.Places.BaseURL == "" {
		c.Places.BaseURL = defaultPlacesBaseURL
	}
	if c.Places.RequestsPerSecond <= 0 {
		c.Places.RequestsPerSecond = defaultRequestsPerSecond
	}
	if c.Places.Burst <= 0 {
		c.Places.Burst = defaultBurst
	}
	if c.Places.MaxPhotoPixels <= 0 {
		c.Places.MaxPhotoPixels = defaultMaxPhotoPixels
	}

	types := make([]string, 0, len(c.Search.PlaceTypes))
	seen := map[string]struct{}{}
	for _, t := range c.Search.PlaceTypes {
		trimmed := strings.ToLower(strings.TrimSpace(t))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		types = append(types, trimmed)
	}
	if len(types) == 0 {
		types = defaultPlaceTypes()
	}
	c.Search.PlaceTypes = types
}

func (c *Config) normalizeProcessing() {
	if c.Processing.CheckpointInterval <= 0 {
		c.Processing.CheckpointInterval = defaultCheckpointInterval
	}
	if c.Processing.ScoreTimeout < 0 {
		c.Processing.ScoreTimeout = 0
	}
	if strings.TrimSpace(c.Scorer.Python) == "" {
		c.Scorer.Python = defaultScorerPython
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

package config

import (
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return fmt.Errorf("paths.output_dir is required")
	}
	if strings.TrimSpace(c.Paths.CatalogPath) == "" {
		return fmt.Errorf("paths.catalog_path is required")
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.Latitude < -90 || c.Search.Latitude > 90 {
		return fmt.Errorf("search.latitude must be within [-90, 90], got %v", c.Search.Latitude)
	}
	if c.Search.Longitude < -180 || c.Search.Longitude > 180 {
		return fmt.Errorf("search.longitude must be within [-180, 180], got %v", c.Search.Longitude)
	}
	if c.Search.RadiusMeters <= 0 {
		return fmt.Errorf("search.radius_meters must be positive, got %v", c.Search.RadiusMeters)
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if c.Processing.MonthsThreshold < 0 {
		return fmt.Errorf("processing.months_threshold must not be negative, got %d", c.Processing.MonthsThreshold)
	}
	return nil
}

// RequirePlacesKey verifies the API key is present before a pipeline run.
// Validation keeps it optional so catalog-only commands work without one.
func (c *Config) RequirePlacesKey() error {
	if c.Places.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/cuescout/config.toml"
		}
		return fmt.Errorf("places.api_key is required. Set GOOGLE_PLACES_API_KEY env var or edit %s (create with 'cuescout config init')", defaultPath)
	}
	return nil
}

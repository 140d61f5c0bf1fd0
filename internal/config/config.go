package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory, file, and bind address configuration.
type Paths struct {
	OutputDir       string `toml:"output_dir"`
	CatalogPath     string `toml:"catalog_path"`
	LogDir          string `toml:"log_dir"`
	ModelPath       string `toml:"model_path"`
	CredentialsPath string `toml:"credentials_path"`
	JournalPath     string `toml:"journal_path"`
	APIBind         string `toml:"api_bind"`
}

// Places contains configuration for the Google Places API.
type Places struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	MaxPhotoPixels    int     `toml:"max_photo_pixels"`
}

// Search contains the default search geometry.
type Search struct {
	Latitude     float64  `toml:"latitude"`
	Longitude    float64  `toml:"longitude"`
	RadiusMeters float64  `toml:"radius_meters"`
	PlaceTypes   []string `toml:"place_types"`
}

// Processing contains pipeline decision settings.
type Processing struct {
	MonthsThreshold    int  `toml:"months_threshold"`
	ReprocessAll       bool `toml:"reprocess_all"`
	SaveNegative       bool `toml:"save_negative"`
	CheckpointInterval int  `toml:"checkpoint_interval"`
	ScoreTimeout       int  `toml:"score_timeout"`
}

// Scorer contains configuration for the classifier subprocess.
type Scorer struct {
	Python string `toml:"python"`
	Script string `toml:"script"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cuescout.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Places        Places        `toml:"places"`
	Search        Search        `toml:"search"`
	Processing    Processing    `toml:"processing"`
	Scorer        Scorer        `toml:"scorer"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cuescout/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// file existed at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("cuescout.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) (string, error) {
	expanded, err := expandPath(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(expanded); err == nil {
		return "", fmt.Errorf("config already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return "", fmt.Errorf("write config: %w", err)
	}
	return expanded, nil
}

// EnsureDirectories creates the directories the process writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.OutputDir,
		c.Paths.LogDir,
		filepath.Dir(c.Paths.CatalogPath),
		filepath.Dir(c.Paths.JournalPath),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// NegativeTrainingDir is where negatively-judged photos accumulate.
func (c *Config) NegativeTrainingDir() string {
	return filepath.Join(c.Paths.OutputDir, "negative_training")
}

// ConfirmedTrainingDir is where positively-judged photos accumulate.
func (c *Config) ConfirmedTrainingDir() string {
	return filepath.Join(c.Paths.OutputDir, "confirmed_training")
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		trimmed = filepath.Join(home, trimmed[2:])
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %s: %w", trimmed, err)
	}
	return abs, nil
}

package config

const (
	defaultOutputDir          = "~/.local/share/cuescout/photos"
	defaultCatalogPath        = "~/.local/share/cuescout/venues_database.json"
	defaultLogDir             = "~/.local/share/cuescout/logs"
	defaultJournalPath        = "~/.local/share/cuescout/feedback.db"
	defaultAPIBind            = "127.0.0.1:3000"
	defaultPlacesBaseURL      = "https://places.googleapis.com/v1"
	defaultRequestsPerSecond  = 5.0
	defaultBurst              = 10
	defaultMaxPhotoPixels     = 4032
	defaultRadiusMeters       = 10000.0
	defaultMonthsThreshold    = 6
	defaultCheckpointInterval = 5
	defaultScoreTimeout       = 300
	defaultScorerPython       = "python3"
	defaultNtfyTimeout        = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

func defaultPlaceTypes() []string {
	return []string{"bar", "restaurant", "hotel"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			CatalogPath: defaultCatalogPath,
			LogDir:      defaultLogDir,
			JournalPath: defaultJournalPath,
			APIBind:     defaultAPIBind,
		},
		Places: Places{
			BaseURL:           defaultPlacesBaseURL,
			RequestsPerSecond: defaultRequestsPerSecond,
			Burst:             defaultBurst,
			MaxPhotoPixels:    defaultMaxPhotoPixels,
		},
		Search: Search{
			Latitude:     40.7128,
			Longitude:    -74.0060,
			RadiusMeters: defaultRadiusMeters,
			PlaceTypes:   defaultPlaceTypes(),
		},
		Processing: Processing{
			MonthsThreshold:    defaultMonthsThreshold,
			CheckpointInterval: defaultCheckpointInterval,
			ScoreTimeout:       defaultScoreTimeout,
		},
		Scorer: Scorer{
			Python: defaultScorerPython,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

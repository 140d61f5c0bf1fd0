// Package config loads and validates the TOML configuration file.
//
// Configuration sections by subsystem:
//   - Paths: directories, catalog/journal locations, and API bind address
//   - Places: Google Places API connection and rate limits
//   - Search: default search geometry and place categories
//   - Processing: staleness threshold, checkpoint cadence, scorer budget
//   - Scorer: classifier subprocess invocation
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
//
// Load resolves ~ in every path field, applies defaults for missing values,
// and rejects out-of-range geometry before any component starts.
package config

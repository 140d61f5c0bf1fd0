// Package photos materializes venue photo evidence on disk.
//
// Artifact names are derived from (venue ID, index) so a re-run skips every
// photo that already exists, and a venue directory that ends a run with zero
// artifacts is removed rather than left as a misleading empty result. The
// Fetcher port isolates the Google media download, which needs a
// service-account bearer token in addition to the API key.
package photos

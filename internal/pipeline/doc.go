// Package pipeline orchestrates a full venue scan: category discovery, photo
// acquisition, subprocess scoring, and catalog persistence, processing one
// venue at a time with checkpoint saves along the way.
package pipeline

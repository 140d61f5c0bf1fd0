// Package catalog is the durable record of evaluated venues.
//
// A Collection holds at most one Venue per place ID plus a last-updated
// timestamp; the Store persists it as a single JSON document that is
// overwritten wholesale on every save. Loads are permissive: a missing or
// unparseable document degrades to an empty collection so a damaged file can
// never wedge the pipeline. Concurrent writers (a running pipeline and a
// feedback request) are serialized through a flock-based file lock around
// every load-mutate-save cycle.
//
// ShouldProcess implements the staleness policy: a venue scored within the
// configured number of 30-day blocks is skipped and its cached probability
// reported instead.
package catalog

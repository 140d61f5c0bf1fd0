// Package places wraps the Google Places v1 API: nearby search by circle and
// category, and place details restricted to photo media references. All calls
// pass through a client-side rate limiter so bursts of categories cannot trip
// API quotas.
package places

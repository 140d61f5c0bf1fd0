package catalog

import (
	"strings"
	"time"
)

// Venue is one evaluated location.
//
// The JSON field names are the on-disk catalog format and must stay stable
// across releases; HumanApproved was added after the first format version, so
// it defaults to zero when absent from older documents.
type Venue struct {
	Name        string    `json:"name"`
	PlaceID     string    `json:"place_id"`
	Address     string    `json:"address"`
	Probability float64   `json:"pool_table_probability"`
	ProcessedAt time.Time `json:"processed_date"`
	// HumanApproved counts positive human verdicts. Never decremented;
	// negative feedback zeroes Probability instead.
	HumanApproved int     `json:"human_approved"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}

// NewVenue constructs a venue stamped with the current time.
func NewVenue(name, placeID, address string, probability float64, lat, lon float64) Venue {
	return Venue{
		Name:        name,
		PlaceID:     placeID,
		Address:     address,
		Probability: probability,
		ProcessedAt: time.Now().UTC(),
		Latitude:    lat,
		Longitude:   lon,
	}
}

// Collection is the ordered set of venues plus the catalog's last-updated
// timestamp. At most one venue exists per place ID.
type Collection struct {
	Venues      []Venue   `json:"venues"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{Venues: nil, LastUpdated: time.Now().UTC()}
}

// Lookup returns the venue with the given place ID.
func (c *Collection) Lookup(placeID string) (Venue, bool) {
	for _, v := range c.Venues {
		if v.PlaceID == placeID {
			return v, true
		}
	}
	return Venue{}, false
}

// Upsert replaces any existing record with the same place ID and advances the
// collection's last-updated timestamp.
func (c *Collection) Upsert(venue Venue) {
	for i := range c.Venues {
		if c.Venues[i].PlaceID == venue.PlaceID {
			c.Venues[i] = venue
			c.LastUpdated = time.Now().UTC()
			return
		}
	}
	c.Venues = append(c.Venues, venue)
	c.LastUpdated = time.Now().UTC()
}

// ShouldProcess reports whether the venue needs (re-)evaluation, along with
// the last known probability. Unknown venues always process. Months are fixed
// 30-day blocks, deliberately coarser than calendar months.
func (c *Collection) ShouldProcess(placeID string, monthsThreshold int) (bool, float64) {
	venue, ok := c.Lookup(placeID)
	if !ok {
		return true, 0.0
	}
	staleAfter := time.Duration(monthsThreshold) * 30 * 24 * time.Hour
	return time.Since(venue.ProcessedAt) > staleAfter, venue.Probability
}

// FilterByRadius returns venues within radiusMeters of the given point,
// independent of whatever geometry originally discovered them.
func (c *Collection) FilterByRadius(lat, lon, radiusMeters float64) []Venue {
	var out []Venue
	for _, v := range c.Venues {
		if haversineMeters(lat, lon, v.Latitude, v.Longitude) <= radiusMeters {
			out = append(out, v)
		}
	}
	return out
}

// Filtered returns venues with probability at or above threshold.
func (c *Collection) Filtered(threshold float64) []Venue {
	var out []Venue
	for _, v := range c.Venues {
		if v.Probability >= threshold {
			out = append(out, v)
		}
	}
	return out
}

func stripSeparator(value string) string {
	return strings.ReplaceAll(value, ",", "")
}

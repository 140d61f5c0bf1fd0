package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	searchFieldMask  = "places.id,places.displayName,places.location,places.formattedAddress"
	detailsFieldMask = "photos,displayName,formattedAddress"
)

// Place is one discovery result.
type Place struct {
	ID        string
	Name      string
	Address   string
	Latitude  float64
	Longitude float64
}

// Details carries the photo media references for a place.
type Details struct {
	Name    string
	Address string
	Photos  []string
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.http = httpClient
		}
	}
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) {
		if requestsPerSecond > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
		}
	}
}

// Client wraps the Google Places v1 API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// New constructs a Places client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("places api key required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("places base url required")
	}
	client := &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type searchRequest struct {
	LocationRestriction struct {
		Circle struct {
			Center struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"center"`
			Radius float64 `json:"radius"`
		} `json:"circle"`
	} `json:"locationRestriction"`
	IncludedTypes []string `json:"includedTypes"`
}

type placePayload struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string `json:"formattedAddress"`
	Location         struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

type searchResponse struct {
	Places []placePayload `json:"places"`
}

// SearchNearby returns places of the given category around a point.
func (c *Client) SearchNearby(ctx context.Context, lat, lon, radiusMeters float64, placeType string) ([]Place, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var body searchRequest
	body.LocationRestriction.Circle.Center.Latitude = lat
	body.LocationRestriction.Circle.Center.Longitude = lon
	body.LocationRestriction.Circle.Radius = radiusMeters
	body.IncludedTypes = []string{placeType}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchNearby", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", searchFieldMask)

	var parsed searchResponse
	if err := c.do(req, &parsed); err != nil {
		return nil, fmt.Errorf("search nearby %q: %w", placeType, err)
	}

	out := make([]Place, 0, len(parsed.Places))
	for _, p := range parsed.Places {
		out = append(out, Place{
			ID:        p.ID,
			Name:      p.DisplayName.Text,
			Address:   p.FormattedAddress,
			Latitude:  p.Location.Latitude,
			Longitude: p.Location.Longitude,
		})
	}
	return out, nil
}

type detailsResponse struct {
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string `json:"formattedAddress"`
	Photos           []struct {
		Name string `json:"name"`
	} `json:"photos"`
}

// Details returns the photo media references for a place.
func (c *Client) Details(ctx context.Context, placeID string) (Details, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Details{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/"+placeID, nil)
	if err != nil {
		return Details{}, fmt.Errorf("build details request: %w", err)
	}
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", detailsFieldMask)

	var parsed detailsResponse
	if err := c.do(req, &parsed); err != nil {
		return Details{}, fmt.Errorf("place details %s: %w", placeID, err)
	}

	details := Details{
		Name:    parsed.DisplayName.Text,
		Address: parsed.FormattedAddress,
	}
	for _, photo := range parsed.Photos {
		details.Photos = append(details.Photos, photo.Name)
	}
	return details, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

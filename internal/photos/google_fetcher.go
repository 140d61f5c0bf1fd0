package photos

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const placesScope = "https://www.googleapis.com/auth/maps-platform.places"

// GoogleFetcher downloads photo media from the Places API. Media downloads
// authenticate with a service-account bearer token on top of the API key.
type GoogleFetcher struct {
	apiKey    string
	baseURL   string
	maxPixels int
	tokens    oauth2.TokenSource
	http      *http.Client
}

// NewGoogleFetcher builds a fetcher from a service account credentials file.
// The oauth2 token source caches and refreshes the signed-JWT exchange.
func NewGoogleFetcher(ctx context.Context, credentialsPath, apiKey, baseURL string, maxPixels int) (*GoogleFetcher, error) {
	creds, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials %s: %w", credentialsPath, err)
	}
	jwtConfig, err := google.JWTConfigFromJSON(creds, placesScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	if maxPixels <= 0 {
		maxPixels = 4032
	}
	return &GoogleFetcher{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		maxPixels: maxPixels,
		tokens:    oauth2.ReuseTokenSource(nil, jwtConfig.TokenSource(ctx)),
		http:      &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Fetch downloads the raw image bytes for one media reference.
func (f *GoogleFetcher) Fetch(ctx context.Context, mediaRef string) ([]byte, error) {
	token, err := f.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("obtain access token: %w", err)
	}

	pixels := strconv.Itoa(f.maxPixels)
	url := fmt.Sprintf("%s/%s/media?key=%s&maxHeightPx=%s&maxWidthPx=%s",
		f.baseURL, strings.TrimPrefix(mediaRef, "/"), f.apiKey, pixels, pixels)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build media request: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("media download status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}

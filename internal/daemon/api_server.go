package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"cuescout/internal/catalog"
	"cuescout/internal/config"
	"cuescout/internal/feedback"
	"cuescout/internal/logging"
	"cuescout/internal/photos"
	"cuescout/internal/pipeline"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	scanMu sync.Mutex

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.WithComponent(logger, "api"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/search", srv.handleSearch)
	mux.HandleFunc("/api/feedback", srv.handleFeedback)
	mux.HandleFunc("/api/venues", srv.handleVenues)
	mux.Handle("/photos/", http.StripPrefix("/photos/",
		http.FileServer(http.Dir(cfg.Paths.OutputDir))))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Searches and SSE streams outlive any sane write deadline.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// handleStatus streams progress lines to the client as server-sent events
// until the client disconnects or its subscription expires.
func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub := s.daemon.statuses.Subscribe()
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case line, open := <-sub.Events():
			if !open {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", line); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type searchRequest struct {
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	RadiusMeters    *float64 `json:"radius_meters"`
	MonthsThreshold *int     `json:"months_threshold"`
	ReprocessAll    *bool    `json:"reprocess_all"`
	SaveNegative    *bool    `json:"save_negative"`
}

type venueResponse struct {
	Name          string   `json:"name"`
	PlaceID       string   `json:"place_id"`
	Address       string   `json:"address"`
	Probability   float64  `json:"pool_table_probability"`
	ProcessedAt   string   `json:"processed_date"`
	HumanApproved int      `json:"human_approved"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	PhotoURLs     []string `json:"photo_urls"`
}

type searchResponse struct {
	Venues []venueResponse `json:"venues"`
}

// handleSearch runs one pipeline scan with optional overrides from the
// request body. Only a single scan may be in flight at a time.
func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// An empty body means "use configured defaults".
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if !s.scanMu.TryLock() {
		s.writeError(w, http.StatusConflict, "a scan is already in progress")
		return
	}
	defer s.scanMu.Unlock()

	params := s.daemon.searchParams(req)
	venues, err := s.daemon.runner.Run(r.Context(), params)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]venueResponse, 0, len(venues))
	for _, venue := range venues {
		if venue.Probability <= 0 {
			continue
		}
		out = append(out, s.daemon.toResponse(venue))
	}
	s.writeJSON(w, http.StatusOK, searchResponse{Venues: out})
}

// handleFeedback applies one verdict on POST and lists recent journaled
// verdicts on GET.
func (s *apiServer) handleFeedback(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listFeedback(w, r)
		return
	case http.MethodPost:
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req feedback.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.daemon.feedback.Apply(r.Context(), req); err != nil {
		switch {
		case errors.Is(err, feedback.ErrVenueNotFound), errors.Is(err, feedback.ErrPhotoNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		default:
			s.writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type feedbackEntryResponse struct {
	ID        string `json:"id"`
	VenueID   string `json:"venue_id"`
	Photo     string `json:"photo"`
	Positive  bool   `json:"is_positive"`
	CreatedAt string `json:"created_at"`
}

type feedbackListResponse struct {
	Entries []feedbackEntryResponse `json:"entries"`
}

func (s *apiServer) listFeedback(w http.ResponseWriter, r *http.Request) {
	if s.daemon.journal == nil {
		s.writeError(w, http.StatusNotFound, "verdict journaling is disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.daemon.journal.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]feedbackEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, feedbackEntryResponse{
			ID:        entry.ID,
			VenueID:   entry.VenueID,
			Photo:     entry.Photo,
			Positive:  entry.Positive,
			CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	s.writeJSON(w, http.StatusOK, feedbackListResponse{Entries: out})
}

// handleVenues lists catalog entries, optionally restricted by a minimum
// probability and a radius around a point.
func (s *apiServer) handleVenues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	collection, err := s.daemon.store.Load()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	query := r.URL.Query()
	venues := collection.Venues
	if lat, lon, radius, ok := radiusFilter(query); ok {
		venues = collection.FilterByRadius(lat, lon, radius)
	}
	minProbability, _ := strconv.ParseFloat(query.Get("min_probability"), 64)

	out := make([]venueResponse, 0, len(venues))
	for _, venue := range venues {
		if venue.Probability < minProbability {
			continue
		}
		out = append(out, s.daemon.toResponse(venue))
	}
	s.writeJSON(w, http.StatusOK, searchResponse{Venues: out})
}

func radiusFilter(query url.Values) (lat, lon, radius float64, ok bool) {
	latStr, lonStr, radiusStr := query.Get("latitude"), query.Get("longitude"), query.Get("radius_meters")
	if latStr == "" || lonStr == "" || radiusStr == "" {
		return 0, 0, 0, false
	}
	var err error
	if lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return 0, 0, 0, false
	}
	if lon, err = strconv.ParseFloat(lonStr, 64); err != nil {
		return 0, 0, 0, false
	}
	if radius, err = strconv.ParseFloat(radiusStr, 64); err != nil || radius <= 0 {
		return 0, 0, 0, false
	}
	return lat, lon, radius, true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// searchParams merges request overrides over the configured defaults.
func (d *Daemon) searchParams(req searchRequest) pipeline.Params {
	params := pipeline.Params{
		Latitude:        d.cfg.Search.Latitude,
		Longitude:       d.cfg.Search.Longitude,
		RadiusMeters:    d.cfg.Search.RadiusMeters,
		PlaceTypes:      d.cfg.Search.PlaceTypes,
		MonthsThreshold: d.cfg.Processing.MonthsThreshold,
		ReprocessAll:    d.cfg.Processing.ReprocessAll,
		SaveNegative:    d.cfg.Processing.SaveNegative,
	}
	if req.Latitude != nil {
		params.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		params.Longitude = *req.Longitude
	}
	if req.RadiusMeters != nil {
		params.RadiusMeters = *req.RadiusMeters
	}
	if req.MonthsThreshold != nil {
		params.MonthsThreshold = *req.MonthsThreshold
	}
	if req.ReprocessAll != nil {
		params.ReprocessAll = *req.ReprocessAll
	}
	if req.SaveNegative != nil {
		params.SaveNegative = *req.SaveNegative
	}
	return params
}

// toResponse renders one catalog venue with the photo URLs currently on disk.
func (d *Daemon) toResponse(venue catalog.Venue) venueResponse {
	return venueResponse{
		Name:          venue.Name,
		PlaceID:       venue.PlaceID,
		Address:       venue.Address,
		Probability:   venue.Probability,
		ProcessedAt:   venue.ProcessedAt.UTC().Format(time.RFC3339),
		HumanApproved: venue.HumanApproved,
		Latitude:      venue.Latitude,
		Longitude:     venue.Longitude,
		PhotoURLs:     d.photoURLs(venue.Name),
	}
}

// photoURLs lists the venue's staged artifacts as URL paths under /photos/.
func (d *Daemon) photoURLs(venueName string) []string {
	dir := photos.SanitizeVenueName(venueName)
	entries, err := os.ReadDir(filepath.Join(d.cfg.Paths.OutputDir, dir))
	if err != nil {
		return nil
	}
	var urls []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		urls = append(urls, "/photos/"+url.PathEscape(dir)+"/"+url.PathEscape(entry.Name()))
	}
	return urls
}

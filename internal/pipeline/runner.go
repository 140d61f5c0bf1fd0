package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cuescout/internal/catalog"
	"cuescout/internal/logging"
	"cuescout/internal/notifications"
	"cuescout/internal/places"
	"cuescout/internal/scorer"
)

// Discovery finds candidate venues and their photo media references.
type Discovery interface {
	SearchNearby(ctx context.Context, lat, lon, radiusMeters float64, placeType string) ([]places.Place, error)
	Details(ctx context.Context, placeID string) (places.Details, error)
}

// PhotoStage materializes venue photos on disk.
type PhotoStage interface {
	Acquire(ctx context.Context, venueID string, mediaRefs []string, displayName string) ([]string, error)
	VenueDir(displayName string) string
	SweepEmptyDirs() error
}

// ProgressFunc receives human-readable progress lines during a run.
type ProgressFunc func(message string)

// Params describes one pipeline run. Zero-value fields fall back to the
// runner's configured defaults where noted.
type Params struct {
	Latitude        float64
	Longitude       float64
	RadiusMeters    float64
	PlaceTypes      []string
	MonthsThreshold int
	ReprocessAll    bool
	SaveNegative    bool
}

// Runner drives discovery, photo acquisition, and scoring for every candidate
// venue, one venue in flight at a time.
type Runner struct {
	discovery  Discovery
	stage      PhotoStage
	scorer     scorer.Scorer
	store      *catalog.Store
	notifier   notifications.Service
	progress   ProgressFunc
	logger     *slog.Logger
	modelPath  string
	checkpoint int
}

// Options carries the runner's collaborators and fixed settings.
type Options struct {
	Discovery Discovery
	Stage     PhotoStage
	Scorer    scorer.Scorer
	Store     *catalog.Store
	Notifier  notifications.Service
	Progress  ProgressFunc
	Logger    *slog.Logger

	ModelPath          string
	CheckpointInterval int
}

// NewRunner wires up the pipeline. Discovery, stage, scorer, and store are
// required; the notifier and progress sink default to no-ops.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Discovery == nil {
		return nil, fmt.Errorf("discovery client required")
	}
	if opts.Stage == nil {
		return nil, fmt.Errorf("photo stage required")
	}
	if opts.Scorer == nil {
		return nil, fmt.Errorf("scorer required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("catalog store required")
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService("", 0)
	}
	progress := opts.Progress
	if progress == nil {
		progress = func(string) {}
	}
	checkpoint := opts.CheckpointInterval
	if checkpoint <= 0 {
		checkpoint = 5
	}
	return &Runner{
		discovery:  opts.Discovery,
		stage:      opts.Stage,
		scorer:     opts.Scorer,
		store:      opts.Store,
		notifier:   notifier,
		progress:   progress,
		logger:     logging.WithComponent(opts.Logger, "pipeline"),
		modelPath:  opts.ModelPath,
		checkpoint: checkpoint,
	}, nil
}

// Run executes one full scan and returns the venues it touched, cached hits
// included. The catalog is checkpointed during the run and saved at the end;
// only the final save failure aborts the result.
func (r *Runner) Run(ctx context.Context, params Params) ([]catalog.Venue, error) {
	started := time.Now()
	if err := r.notifier.NotifyRunStarted(ctx, len(params.PlaceTypes)); err != nil {
		r.logger.Warn("run-started notification failed", logging.Error(err))
	}

	collection, err := r.store.Load()
	if err != nil {
		return nil, err
	}

	candidates := r.discover(ctx, params)
	r.logger.Info("discovery complete",
		logging.Int("candidates", len(candidates)),
		logging.Int("categories", len(params.PlaceTypes)))

	var (
		results []catalog.Venue
		scored  int
		skipped int
		failed  int
		runErr  error
	)

	for _, place := range candidates {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		r.progress(fmt.Sprintf("Processing %s", place.Name))

		if !params.ReprocessAll {
			process, cached := collection.ShouldProcess(place.ID, params.MonthsThreshold)
			if !process {
				r.progress(fmt.Sprintf("%s: %.0f%% (cached)", place.Name, cached*100))
				if venue, ok := collection.Lookup(place.ID); ok {
					results = append(results, venue)
				}
				skipped++
				continue
			}
		}

		venue, err := r.evaluate(ctx, place, params.SaveNegative)
		if err != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()
				break
			}
			r.logger.Error("venue evaluation failed",
				logging.String("venue", place.Name),
				logging.Error(err))
			failed++
			continue
		}
		if venue == nil {
			r.progress(fmt.Sprintf("%s: no photos available", place.Name))
			skipped++
			continue
		}

		if prior, ok := collection.Lookup(place.ID); ok {
			venue.HumanApproved = prior.HumanApproved
		}
		collection.Upsert(*venue)
		results = append(results, *venue)
		scored++
		r.progress(fmt.Sprintf("%s: %.0f%% probability", venue.Name, venue.Probability*100))

		if scored%r.checkpoint == 0 {
			if err := r.store.SaveLocked(collection); err != nil {
				r.logger.Warn("checkpoint save failed", logging.Error(err))
			} else {
				r.progress(fmt.Sprintf("Checkpoint: catalog saved after %d venues", scored))
			}
		}
	}

	if err := r.stage.SweepEmptyDirs(); err != nil {
		r.logger.Warn("sweep empty directories", logging.Error(err))
	}

	if err := r.store.SaveLocked(collection); err != nil {
		if notifyErr := r.notifier.NotifyError(ctx, err, "catalog save"); notifyErr != nil {
			r.logger.Warn("error notification failed", logging.Error(notifyErr))
		}
		return nil, fmt.Errorf("save catalog: %w", err)
	}

	duration := time.Since(started)
	r.logger.Info("run complete",
		logging.Int("scored", scored),
		logging.Int("skipped", skipped),
		logging.Int("failed", failed),
		logging.Duration("duration", duration))
	if err := r.notifier.NotifyRunCompleted(ctx, scored, skipped, failed, duration); err != nil {
		r.logger.Warn("run-completed notification failed", logging.Error(err))
	}
	return results, runErr
}

// discover queries every configured place category and dedups the union by
// place identifier. A category that fails is logged and omitted.
func (r *Runner) discover(ctx context.Context, params Params) []places.Place {
	seen := make(map[string]struct{})
	var candidates []places.Place
	for _, placeType := range params.PlaceTypes {
		if ctx.Err() != nil {
			break
		}
		found, err := r.discovery.SearchNearby(ctx, params.Latitude, params.Longitude, params.RadiusMeters, placeType)
		if err != nil {
			r.logger.Error("category discovery failed",
				logging.String("category", placeType),
				logging.Error(err))
			continue
		}
		for _, place := range found {
			if _, dup := seen[place.ID]; dup {
				continue
			}
			seen[place.ID] = struct{}{}
			candidates = append(candidates, place)
		}
	}
	return candidates
}

// evaluate downloads and scores one venue. A nil venue with nil error means
// the venue had no usable photos and should be skipped without mutation.
func (r *Runner) evaluate(ctx context.Context, place places.Place, saveNegative bool) (*catalog.Venue, error) {
	details, err := r.discovery.Details(ctx, place.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch details: %w", err)
	}
	if len(details.Photos) == 0 {
		return nil, nil
	}

	paths, err := r.stage.Acquire(ctx, place.ID, details.Photos, place.Name)
	if err != nil {
		return nil, fmt.Errorf("acquire photos: %w", err)
	}
	if len(paths) == 0 {
		return nil, nil
	}

	// The classifier strips rejected photos from its output directory in
	// place, so both paths must point at the venue's own directory.
	venueDir := r.stage.VenueDir(place.Name)
	probability, err := r.scorer.Score(ctx, venueDir, r.modelPath, venueDir, saveNegative)
	if err != nil {
		return nil, fmt.Errorf("score photos: %w", err)
	}

	venue := catalog.NewVenue(place.Name, place.ID, place.Address, probability, place.Latitude, place.Longitude)
	return &venue, nil
}

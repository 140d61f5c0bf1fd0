package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"cuescout/internal/catalog"
	"cuescout/internal/config"
	"cuescout/internal/feedback"
	"cuescout/internal/hub"
	"cuescout/internal/logging"
	"cuescout/internal/notifications"
	"cuescout/internal/photos"
	"cuescout/internal/pipeline"
	"cuescout/internal/places"
	"cuescout/internal/scorer"
)

// runtime is the composition root shared by the serve and scan commands.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	statuses *hub.Hub
	runner   *pipeline.Runner
	feedback *feedback.Service
	journal  *feedback.Journal
}

func newLogger(cfg *config.Config, toFile bool) (*slog.Logger, error) {
	outputs := []string{"stdout"}
	if toFile {
		outputs = append(outputs, filepath.Join(cfg.Paths.LogDir, "cuescout.log"))
	}
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}

// buildRuntime wires the full stack: catalog store, Places client, photo
// stage, scorer, pipeline, and feedback service.
func buildRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*runtime, error) {
	if err := cfg.RequirePlacesKey(); err != nil {
		return nil, err
	}

	store := catalog.NewStore(cfg.Paths.CatalogPath, logger)
	statuses := hub.New(logger)

	discovery, err := places.New(cfg.Places.APIKey, cfg.Places.BaseURL,
		places.WithRateLimit(cfg.Places.RequestsPerSecond, cfg.Places.Burst))
	if err != nil {
		return nil, fmt.Errorf("places client: %w", err)
	}

	fetcher, err := photos.NewGoogleFetcher(ctx, cfg.Paths.CredentialsPath, cfg.Places.APIKey, cfg.Places.BaseURL, cfg.Places.MaxPhotoPixels)
	if err != nil {
		return nil, fmt.Errorf("photo fetcher: %w", err)
	}
	stage, err := photos.NewStage(cfg.Paths.OutputDir, fetcher, logger)
	if err != nil {
		return nil, fmt.Errorf("photo stage: %w", err)
	}

	classifier, err := scorer.New(cfg.Scorer.Python, cfg.Scorer.Script, cfg.Processing.ScoreTimeout)
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}

	runner, err := pipeline.NewRunner(pipeline.Options{
		Discovery:          discovery,
		Stage:              stage,
		Scorer:             classifier,
		Store:              store,
		Notifier:           notifications.NewService(cfg.Notifications.NtfyTopic, cfg.Notifications.RequestTimeout),
		Progress:           statuses.Broadcast,
		Logger:             logger,
		ModelPath:          cfg.Paths.ModelPath,
		CheckpointInterval: cfg.Processing.CheckpointInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	journal, err := feedback.OpenJournal(cfg.Paths.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("feedback journal: %w", err)
	}

	fb, err := feedback.NewService(cfg.Paths.OutputDir, cfg.NegativeTrainingDir(), cfg.ConfirmedTrainingDir(), store, journal, logger)
	if err != nil {
		_ = journal.Close()
		return nil, fmt.Errorf("feedback service: %w", err)
	}

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		statuses: statuses,
		runner:   runner,
		feedback: fb,
		journal:  journal,
	}, nil
}

func (r *runtime) close() {
	if r.journal != nil {
		_ = r.journal.Close()
	}
}

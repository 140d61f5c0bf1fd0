package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cuescout/internal/pipeline"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var (
		latitude     float64
		longitude    float64
		radiusMeters float64
		months       int
		reprocessAll bool
		saveNegative bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run one discovery and scoring pass from the command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := newLogger(cfg, false)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			rt, err := buildRuntime(signalCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close()

			params := pipeline.Params{
				Latitude:        cfg.Search.Latitude,
				Longitude:       cfg.Search.Longitude,
				RadiusMeters:    cfg.Search.RadiusMeters,
				PlaceTypes:      cfg.Search.PlaceTypes,
				MonthsThreshold: cfg.Processing.MonthsThreshold,
				ReprocessAll:    cfg.Processing.ReprocessAll || reprocessAll,
				SaveNegative:    cfg.Processing.SaveNegative || saveNegative,
			}
			if cmd.Flags().Changed("latitude") {
				params.Latitude = latitude
			}
			if cmd.Flags().Changed("longitude") {
				params.Longitude = longitude
			}
			if cmd.Flags().Changed("radius") {
				params.RadiusMeters = radiusMeters
			}
			if cmd.Flags().Changed("months") {
				params.MonthsThreshold = months
			}

			out := cmd.OutOrStdout()
			sub := rt.statuses.Subscribe()
			defer sub.Close()
			go func() {
				for line := range sub.Events() {
					fmt.Fprintln(out, line)
				}
			}()

			venues, err := rt.runner.Run(signalCtx, params)
			if err != nil {
				return err
			}

			found := 0
			for _, venue := range venues {
				if venue.Probability > 0 {
					found++
				}
			}
			fmt.Fprintf(out, "Scan complete: %d venues with pool table evidence out of %d processed\n", found, len(venues))
			return nil
		},
	}

	cmd.Flags().Float64Var(&latitude, "latitude", 0, "Search center latitude")
	cmd.Flags().Float64Var(&longitude, "longitude", 0, "Search center longitude")
	cmd.Flags().Float64Var(&radiusMeters, "radius", 0, "Search radius in meters")
	cmd.Flags().IntVar(&months, "months", 0, "Reprocess venues older than this many months")
	cmd.Flags().BoolVar(&reprocessAll, "reprocess-all", false, "Rescore every venue regardless of age")
	cmd.Flags().BoolVar(&saveNegative, "save-negative", false, "Keep low-scoring photos for training")
	return cmd
}

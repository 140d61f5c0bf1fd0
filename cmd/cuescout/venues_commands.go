package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"cuescout/internal/catalog"
	"cuescout/internal/logging"
)

func newVenuesCommand(ctx *commandContext) *cobra.Command {
	venuesCmd := &cobra.Command{
		Use:   "venues",
		Short: "Inspect the venue catalog",
	}
	venuesCmd.AddCommand(newVenuesListCommand(ctx))
	return venuesCmd
}

func newVenuesListCommand(ctx *commandContext) *cobra.Command {
	var (
		minProbability float64
		latitude       float64
		longitude      float64
		radiusMeters   float64
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog venues",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store := catalog.NewStore(cfg.Paths.CatalogPath, logging.NewNop())
			collection, err := store.Load()
			if err != nil {
				return err
			}

			venues := collection.Venues
			if cmd.Flags().Changed("radius") {
				lat, lon := cfg.Search.Latitude, cfg.Search.Longitude
				if cmd.Flags().Changed("latitude") {
					lat = latitude
				}
				if cmd.Flags().Changed("longitude") {
					lon = longitude
				}
				venues = collection.FilterByRadius(lat, lon, radiusMeters)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Name", "Address", "Probability", "Approvals", "Processed"})
			rows := 0
			for _, venue := range venues {
				if venue.Probability < minProbability {
					continue
				}
				tw.AppendRow(table.Row{
					venue.Name,
					venue.Address,
					fmt.Sprintf("%.2f%%", venue.Probability*100),
					venue.HumanApproved,
					venue.ProcessedAt.Format("2006-01-02"),
				})
				rows++
			}
			if rows == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No venues match the given filters.")
				return nil
			}
			tw.Render()
			return nil
		},
	}

	cmd.Flags().Float64Var(&minProbability, "min-probability", 0, "Hide venues below this probability")
	cmd.Flags().Float64Var(&latitude, "latitude", 0, "Filter center latitude (defaults to configured search center)")
	cmd.Flags().Float64Var(&longitude, "longitude", 0, "Filter center longitude (defaults to configured search center)")
	cmd.Flags().Float64Var(&radiusMeters, "radius", 0, "Only list venues within this many meters of the center")
	return cmd
}

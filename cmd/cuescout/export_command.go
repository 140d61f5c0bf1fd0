package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cuescout/internal/catalog"
	"cuescout/internal/logging"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		threshold  float64
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export high-probability venues as CSV",
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

			var out io.Writer = cmd.OutOrStdout()
			if target := strings.TrimSpace(outputPath); target != "" {
				file, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer file.Close()
				out = file
			}
			if err := collection.ExportFiltered(out, threshold); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			if outputPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d venues to %s\n", len(collection.Filtered(threshold)), outputPath)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0.5, "Minimum probability to include")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write CSV to a file instead of stdout")
	return cmd
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/knw/internal/config"
	"github.com/cory-johannsen/knw/internal/document"
	"github.com/cory-johannsen/knw/internal/importer"
	"github.com/cory-johannsen/knw/internal/importer/foundry"
	"github.com/cory-johannsen/knw/internal/observability"
	"github.com/cory-johannsen/knw/internal/storage/postgres"
)

func newImportCmd() *cobra.Command {
	var (
		pack   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "import <source-dir>",
		Short: "Import a Foundry compendium export as a read-only pack",
		Long: `Reads Foundry actor exports (*.json) and NeDB packs (*.db) from source-dir
and stores each actor as a read-only document of the named pack. Actors that
were imported before are skipped. --dry-run converts without connecting to
the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			var (
				store  document.Store = document.NewMemoryStore()
				logger                = zap.NewNop()
			)
			if !dryRun {
				path, _ := cmd.Flags().GetString("config")
				if path == "" {
					path = "configs/dev.yaml"
				}
				cfg, err := config.Load(path)
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				if logger, err = observability.NewLogger(cfg.Logging, "knwctl"); err != nil {
					return fmt.Errorf("initializing logger: %w", err)
				}
				defer logger.Sync()
				pool, err := postgres.NewPool(ctx, cfg.Database)
				if err != nil {
					return fmt.Errorf("connecting to database: %w", err)
				}
				defer pool.Close()
				store = postgres.NewDocumentRepository(pool.DB(), logger)
			}

			rep, err := importer.New(foundry.NewSource(), store, logger).Run(ctx, args[0], pack, dryRun)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, id := range rep.Created {
				fmt.Fprintf(out, "created %s\n", id)
			}
			for _, id := range rep.Skipped {
				fmt.Fprintf(out, "skipped %s\n", id)
			}
			fmt.Fprintf(out, "%d created, %d skipped\n", len(rep.Created), len(rep.Skipped))
			return nil
		},
	}
	cmd.Flags().StringVar(&pack, "pack", "", "pack name the documents belong to (required)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "convert and report without writing")
	_ = cmd.MarkFlagRequired("pack")
	return cmd
}

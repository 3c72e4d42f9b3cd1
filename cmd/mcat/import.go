package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/franz/music-catalog/internal/ingest"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var importCmd = &cobra.Command{
	Use:   "import <paths...>",
	Short: "Register audio files in the catalog",
	Long: `Walk the given files and directories and register every MP3, FLAC and
WAV file: its tags, duration and embedded artwork. Artists and albums are
found or created by name; identical artwork is stored once.

Files whose size and modification time match the catalog are skipped.
With --prune, songs under an imported directory whose files are gone are
deleted, together with any album, artist or artwork left unreferenced.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().Bool("prune", false, "Delete songs whose files no longer exist")
	importCmd.Flags().StringSlice("ext", nil, "Additional file extensions to import")
	importCmd.Flags().Bool("no-progress", false, "Disable the progress bar")

	viper.BindPFlag("import.ext", importCmd.Flags().Lookup("ext"))
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	prune, _ := cmd.Flags().GetBool("prune")
	noProgress, _ := cmd.Flags().GetBool("no-progress")

	return withStore(func(db *store.Store, audit *report.EventLogger) error {
		util.InfoLog("=== Import ===")
		util.InfoLog("Database: %s", cfg.DB)
		util.InfoLog("Concurrency: %d", cfg.Concurrency)

		importer := ingest.New(&ingest.Config{
			Store:          db,
			AdditionalExts: viper.GetStringSlice("import.ext"),
			Concurrency:    cfg.Concurrency,
			Logger:         audit,
			Retry:          cfg.RetryConfig(),
			Prune:          prune,
			Progress:       !noProgress,
		})

		start := time.Now()
		res, err := importer.Import(ctx, args)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		util.InfoLog("")
		util.SuccessLog("Import finished in %v", time.Since(start).Round(time.Millisecond))
		util.InfoLog("  Files found: %d", res.Found)
		util.InfoLog("  New: %d", res.Created)
		util.InfoLog("  Updated: %d", res.Updated)
		util.InfoLog("  Unchanged: %d", res.Unchanged)
		if prune {
			util.InfoLog("  Pruned: %s", res.Pruned)
		}
		if len(res.Errors) > 0 {
			util.WarnLog("  Errors: %d", len(res.Errors))
			for i, e := range res.Errors {
				if i == 10 {
					util.WarnLog("    ... and %d more", len(res.Errors)-10)
					break
				}
				util.WarnLog("    %v", e)
			}
			audit.LogError(report.EventImport, "", fmt.Errorf("%d files failed", len(res.Errors)))
		}
		return nil
	})
}

package main

import (
	"time"

	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Delete albums, artists and artwork nothing references",
	Long: `Sweep the whole catalog for rows left unreferenced, for example by an
interrupted import or an older version: albums without songs, artists
without albums or songs, and artwork no row points to. Playlists with
gaps in their numbering are renumbered.

Use --dry-run to list what would be removed without changing anything.`,
	Args: cobra.NoArgs,
	RunE: runGC,
}

func init() {
	rootCmd.AddCommand(gcCmd)

	gcCmd.Flags().Bool("dry-run", false, "Report orphans without deleting them")
}

func runGC(cmd *cobra.Command, args []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	return withStore(func(db *store.Store, audit *report.EventLogger) error {
		start := time.Now()

		var res *store.CascadeResult
		var err error
		if dryRun {
			res, err = db.FindOrphans()
		} else {
			res, err = db.CollectGarbage()
		}
		if err != nil {
			audit.LogError(report.EventGC, "", err)
			return err
		}
		audit.LogGC(res, dryRun, time.Since(start))

		if res.Empty() {
			util.SuccessLog("Nothing to collect")
			return nil
		}
		if dryRun {
			util.InfoLog("Would remove:")
		} else {
			util.SuccessLog("Collected garbage in %v", time.Since(start).Round(time.Millisecond))
		}
		printCascade(res)
		return nil
	})
}

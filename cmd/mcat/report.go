package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/music-catalog/internal/report"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a summary report of the catalog",
	Long: `Generate a summary report in Markdown format.

The report includes:
- Catalog statistics
- Orphaned rows and playlists with gaps
- Recently added songs
- Audit log activity and top errors

The report is saved to <audit-dir>/reports/summary-<timestamp>.md unless
--out is given. The newest audit log in <audit-dir> is read unless
--event-log is given.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("out", "o", "", "Output file (default: <audit-dir>/reports/summary-<timestamp>.md)")
	reportCmd.Flags().String("event-log", "", "Path to event log file (default: newest in audit dir)")
}

func runReport(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== Generating Summary Report ===")
	util.InfoLog("Database: %s", cfg.DB)

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	eventLogPath, _ := cmd.Flags().GetString("event-log")
	if eventLogPath == "" {
		eventLogPath = latestEventLog(cfg.AuditDir)
	}

	util.InfoLog("Analyzing data...")
	summary, err := report.GenerateSummaryReport(db, eventLogPath)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	summary.DatabasePath = cfg.DB

	outputPath, _ := cmd.Flags().GetString("out")
	if outputPath == "" {
		timestamp := time.Now().Format("20060102-150405")
		outputPath = filepath.Join(cfg.AuditDir, "reports", fmt.Sprintf("summary-%s.md", timestamp))
	}

	util.InfoLog("Writing report to: %s", outputPath)
	if err := report.WriteMarkdownReport(summary, outputPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	util.SuccessLog("Report generated successfully!")
	util.InfoLog("")
	util.InfoLog("Summary:")
	util.InfoLog("  Songs: %s", humanize.Comma(int64(summary.Stats.Songs)))
	util.InfoLog("  Albums: %s", humanize.Comma(int64(summary.Stats.Albums)))
	util.InfoLog("  Artists: %s", humanize.Comma(int64(summary.Stats.Artists)))
	if !summary.Healthy() {
		util.WarnLog("  Orphans: %s", summary.Orphans)
		if n := len(summary.GappyPlaylists); n > 0 {
			util.WarnLog("  Playlists with gaps: %d", n)
		}
	}

	return nil
}

// latestEventLog returns the newest events-*.jsonl in dir, or "" when
// there is none. Timestamped names sort chronologically.
func latestEventLog(dir string) string {
	matches, err := filepath.Glob(filepath.Join(dir, "events-*.jsonl"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	sort.Strings(matches)
	return matches[len(matches)-1]
}

package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
)

// SummaryReport represents a catalog health report
type SummaryReport struct {
	GeneratedAt time.Time

	// Catalog contents
	Stats *store.Stats

	// Rows a garbage collection sweep would remove
	Orphans *store.CascadeResult

	// Playlists whose positions are not 0..n-1
	GappyPlaylists []string

	// Dangling references reported by SQLite
	ForeignKeyViolations []store.ForeignKeyViolation

	RecentlyAdded []*store.Song

	// Details from the audit log
	EventCounts map[EventType]int
	TopErrors   []ErrorSummary

	// Metadata
	DatabasePath string
	EventLogPath string
}

// ErrorSummary represents an error with its count
type ErrorSummary struct {
	Error string
	Count int
}

// Healthy reports whether the catalog needs no repair
func (r *SummaryReport) Healthy() bool {
	return (r.Orphans == nil || r.Orphans.Empty()) &&
		len(r.GappyPlaylists) == 0 &&
		len(r.ForeignKeyViolations) == 0
}

// GenerateSummaryReport creates a summary report from the catalog and an
// optional audit log
func GenerateSummaryReport(db *store.Store, eventLogPath string) (*SummaryReport, error) {
	report := &SummaryReport{
		GeneratedAt:  time.Now(),
		EventLogPath: eventLogPath,
		EventCounts:  make(map[EventType]int),
		TopErrors:    make([]ErrorSummary, 0),
	}

	stats, err := db.Stats()
	if err != nil {
		return nil, err
	}
	report.Stats = stats

	if report.Orphans, err = db.FindOrphans(); err != nil {
		return nil, fmt.Errorf("failed to find orphans: %w", err)
	}
	if report.GappyPlaylists, err = db.GappyPlaylists(); err != nil {
		return nil, err
	}
	if report.ForeignKeyViolations, err = db.CheckForeignKeys(); err != nil {
		return nil, err
	}

	// Recent songs are informational only
	report.RecentlyAdded, _ = db.RecentlyAdded(10)

	if eventLogPath != "" {
		counts, errs, err := readEventLog(eventLogPath, 10)
		if err != nil {
			util.WarnLog("Could not read event log %s: %v", eventLogPath, err)
		} else {
			report.EventCounts = counts
			report.TopErrors = errs
		}
	}

	return report, nil
}

// readEventLog tallies events by type and returns the most common errors
func readEventLog(path string, limit int) (map[EventType]int, []ErrorSummary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	counts := make(map[EventType]int)
	errorCounts := make(map[string]int)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // partial trailing line
		}
		counts[e.Event]++
		if e.Error != "" {
			errorCounts[e.Error]++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	errors := make([]ErrorSummary, 0, len(errorCounts))
	for msg, count := range errorCounts {
		errors = append(errors, ErrorSummary{Error: msg, Count: count})
	}

	// Sort by count (descending), then message for stable output
	sort.Slice(errors, func(i, j int) bool {
		if errors[i].Count != errors[j].Count {
			return errors[i].Count > errors[j].Count
		}
		return errors[i].Error < errors[j].Error
	})

	if len(errors) > limit {
		errors = errors[:limit]
	}

	return counts, errors, nil
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Music Catalog - Summary Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", report.DatabasePath))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	if st := report.Stats; st != nil {
		md.WriteString("## 📊 Overview\n\n")
		md.WriteString("| Metric | Value |\n")
		md.WriteString("|--------|-------|\n")
		md.WriteString(fmt.Sprintf("| Songs | %s |\n", humanize.Comma(int64(st.Songs))))
		md.WriteString(fmt.Sprintf("| Albums | %s |\n", humanize.Comma(int64(st.Albums))))
		md.WriteString(fmt.Sprintf("| Artists | %s |\n", humanize.Comma(int64(st.Artists))))
		md.WriteString(fmt.Sprintf("| Playlists | %d (%d tracks) |\n", st.Playlists, st.Tracks))
		md.WriteString(fmt.Sprintf("| Images | %d (%s) |\n", st.Images, humanize.Bytes(uint64(st.ImageBytes))))
		md.WriteString(fmt.Sprintf("| Audio | %s |\n", humanize.Bytes(uint64(st.FileBytes))))
		md.WriteString(fmt.Sprintf("| Total Duration | %s |\n", util.FormatDuration(st.Duration)))
		md.WriteString(fmt.Sprintf("| Playback Events | %d |\n", st.Events))
		md.WriteString("\n")
	}

	md.WriteString("## 🩺 Health\n\n")
	if report.Healthy() {
		md.WriteString("✅ No orphans, gaps or dangling references.\n\n")
	} else {
		md.WriteString("| Check | Result |\n")
		md.WriteString("|-------|--------|\n")
		if report.Orphans != nil && !report.Orphans.Empty() {
			md.WriteString(fmt.Sprintf("| Orphans | %s |\n", report.Orphans))
		}
		if len(report.GappyPlaylists) > 0 {
			md.WriteString(fmt.Sprintf("| Playlists with gaps | %d |\n", len(report.GappyPlaylists)))
		}
		if len(report.ForeignKeyViolations) > 0 {
			md.WriteString(fmt.Sprintf("| Foreign key violations | %d |\n", len(report.ForeignKeyViolations)))
		}
		md.WriteString("\n*Run `mcat gc` to repair.*\n\n")
	}

	if len(report.RecentlyAdded) > 0 {
		md.WriteString("## 🆕 Recently Added\n\n")
		md.WriteString("| Title | Added | Path |\n")
		md.WriteString("|-------|-------|------|\n")
		for _, song := range report.RecentlyAdded {
			md.WriteString(fmt.Sprintf("| %s | %s | `%s` |\n",
				song.Title,
				humanize.Time(song.DateAdded),
				truncatePath(song.FilePath, 60)))
		}
		md.WriteString("\n")
	}

	if len(report.EventCounts) > 0 {
		md.WriteString("## 📝 Audit Log\n\n")
		md.WriteString("| Event | Count |\n")
		md.WriteString("|-------|-------|\n")
		types := make([]string, 0, len(report.EventCounts))
		for t := range report.EventCounts {
			types = append(types, string(t))
		}
		sort.Strings(types)
		for _, t := range types {
			md.WriteString(fmt.Sprintf("| %s | %d |\n", t, report.EventCounts[EventType(t)]))
		}
		md.WriteString("\n")
	}

	if len(report.TopErrors) > 0 {
		md.WriteString("## ⚠️ Top Errors\n\n")
		md.WriteString("| Count | Error |\n")
		md.WriteString("|-------|-------|\n")
		for _, err := range report.TopErrors {
			md.WriteString(fmt.Sprintf("| %d | %s |\n", err.Count, err.Error))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by mcat - Music Catalog*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// truncatePath truncates a file path to a maximum length
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	// Truncate from the middle, keeping start and end
	start := maxLen/2 - 2
	end := len(path) - (maxLen/2 - 2)
	return path[:start] + "..." + path[end:]
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/franz/music-catalog/internal/store"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the catalog and environment",
	Long: `Run diagnostic checks to ensure the catalog is healthy.

This command checks:
- SQLite version
- Database accessibility and integrity
- Dangling foreign keys
- Orphaned albums, artists and artwork
- Playlists with gaps in their numbering
- Network filesystem placement of the database
- Audit log directory permissions and disk space

Orphans and gaps are repaired by 'mcat gc'.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== mcat doctor - Catalog Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{}

	// 1. Check SQLite
	results = append(results, checkSQLite())

	// 2. Check database file
	results = append(results, checkDatabase(cfg.DB))

	// 3. Check catalog consistency
	results = append(results, checkCatalog(cfg.DB)...)

	// 4. Check database location
	results = append(results, checkNetworkDatabase(cfg.DB, cfg.NetworkDB))

	// 5. Check audit directory and disk space
	if !cfg.NoAudit {
		results = append(results, checkAuditDirectory(cfg.AuditDir))
		results = append(results, checkDiskSpace(cfg.AuditDir, "audit log"))
	}

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	// Summary
	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed.")
		return fmt.Errorf("catalog diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. 'mcat gc' repairs orphans and gaps.")
	} else {
		util.SuccessLog("✅ All checks passed!")
	}

	return nil
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	// modernc.org/sqlite is compiled in; just make sure it answers
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkDatabase verifies database file accessibility
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	// Check if database exists
	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	// Check if it's a regular file
	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	// Try to open it
	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	// Check integrity
	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	songs, _ := db.CountSongs(store.SongQuery{})

	return checkResult{
		name:    "Database",
		message: fmt.Sprintf("%s (%s, %s songs)", dbPath, humanize.Bytes(uint64(info.Size())), humanize.Comma(int64(songs))),
	}
}

// checkCatalog reports dangling references, orphans and playlist gaps. A
// missing database has nothing to check.
func checkCatalog(dbPath string) []checkResult {
	if _, err := os.Stat(dbPath); err != nil {
		return nil
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return nil // reported by checkDatabase
	}
	defer db.Close()

	var results []checkResult

	violations, err := db.CheckForeignKeys()
	switch {
	case err != nil:
		results = append(results, checkResult{name: "Foreign keys", error: true, message: err.Error()})
	case len(violations) > 0:
		v := violations[0]
		results = append(results, checkResult{
			name:    "Foreign keys",
			error:   true,
			message: fmt.Sprintf("%d dangling references (first: %s row %d -> %s)", len(violations), v.Table, v.RowID, v.Parent),
		})
	default:
		results = append(results, checkResult{name: "Foreign keys", message: "no dangling references"})
	}

	orphans, err := db.FindOrphans()
	switch {
	case err != nil:
		results = append(results, checkResult{name: "Orphans", error: true, message: err.Error()})
	case orphans.Total() > 0:
		results = append(results, checkResult{name: "Orphans", warning: true, message: orphans.String()})
	default:
		results = append(results, checkResult{name: "Orphans", message: "none"})
	}

	gappy, err := db.GappyPlaylists()
	switch {
	case err != nil:
		results = append(results, checkResult{name: "Playlist order", error: true, message: err.Error()})
	case len(gappy) > 0:
		results = append(results, checkResult{
			name:    "Playlist order",
			warning: true,
			message: fmt.Sprintf("%d playlists have gaps in their numbering", len(gappy)),
		})
	default:
		results = append(results, checkResult{name: "Playlist order", message: "all playlists numbered 0..N-1"})
	}

	return results
}

// checkNetworkDatabase warns when the database is on a network mount
// without network tuning
func checkNetworkDatabase(dbPath string, tuned bool) checkResult {
	dir := dbPath
	if _, err := os.Stat(dbPath); err != nil {
		dir = filepath.Dir(dbPath)
	}

	info, err := util.DetectNetworkFilesystem(dir)
	if err != nil {
		return checkResult{
			name:    "Database location",
			warning: true,
			message: fmt.Sprintf("cannot determine filesystem: %v", err),
		}
	}
	if !info.IsNetwork {
		return checkResult{name: "Database location", message: "local filesystem"}
	}
	if !tuned {
		return checkResult{
			name:    "Database location",
			warning: true,
			message: fmt.Sprintf("%s mount at %s (use --network-db)", info.Protocol, info.MountPath),
		}
	}
	return checkResult{
		name:    "Database location",
		message: fmt.Sprintf("%s mount at %s (network tuning on)", info.Protocol, info.MountPath),
	}
}

// checkAuditDirectory verifies the audit log directory is writable
func checkAuditDirectory(path string) checkResult {
	if err := os.MkdirAll(path, 0755); err != nil {
		return checkResult{
			name:    "Audit directory",
			error:   true,
			message: fmt.Sprintf("cannot create %s: %v", path, err),
		}
	}

	// Check write permission by creating a temp file
	testFile := filepath.Join(path, ".mcat_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Audit directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Audit directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)
	usedBytes := totalBytes - (stat.Bfree * uint64(stat.Bsize))
	usedPercent := float64(usedBytes) / float64(totalBytes) * 100

	// Warn below 1 GB free or above 95% used
	warning := false
	warningMsg := ""
	if availBytes < 1<<30 {
		warning = true
		warningMsg = " (low space!)"
	} else if usedPercent > 95 {
		warning = true
		warningMsg = " (>95% used)"
	}

	return checkResult{
		name:    fmt.Sprintf("Disk space (%s)", label),
		warning: warning,
		message: fmt.Sprintf("%s available%s", humanize.IBytes(availBytes), warningMsg),
	}
}

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/music-catalog/internal/store"
)

func TestCheckSQLite(t *testing.T) {
	result := checkSQLite()

	if result.error {
		t.Errorf("SQLite check failed: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected version information in message")
	}
}

func TestCheckDatabase_NonExistent(t *testing.T) {
	// Check a database that doesn't exist
	dbPath := filepath.Join(t.TempDir(), "nonexistent.db")

	result := checkDatabase(dbPath)

	// Should not error - database will be created on first run
	if result.error {
		t.Errorf("non-existent database check should not error: %s", result.message)
	}

	if !strings.Contains(result.message, "will be created") {
		t.Errorf("expected message about database creation, got %q", result.message)
	}
}

func TestCheckDatabase_Existing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := db.CreateSong(&store.Song{Title: "Roygbiv", FilePath: "/music/roygbiv.flac", Duration: 151}); err != nil {
		t.Fatalf("failed to create song: %v", err)
	}
	db.Close()

	result := checkDatabase(dbPath)

	if result.error {
		t.Errorf("database check failed: %s", result.message)
	}
	if !strings.Contains(result.message, "1 songs") {
		t.Errorf("expected song count in message, got %q", result.message)
	}
}

func TestCheckDatabase_Empty(t *testing.T) {
	result := checkDatabase("")

	if !result.warning {
		t.Error("expected warning for empty database path")
	}
}

func TestCheckDatabase_Directory(t *testing.T) {
	result := checkDatabase(t.TempDir())

	if !result.error {
		t.Error("expected error when database path is a directory")
	}
}

func TestCheckCatalog_Healthy(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if _, _, err := db.ImportTrack(&store.TrackImport{
		Path:     "/music/boc/dayvan.flac",
		Title:    "Dayvan Cowboy",
		Artist:   "Boards of Canada",
		Album:    "The Campfire Headphase",
		Duration: 298,
	}); err != nil {
		t.Fatalf("ImportTrack failed: %v", err)
	}
	db.Close()

	results := checkCatalog(dbPath)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if r.error || r.warning {
			t.Errorf("%s: unexpected problem: %s", r.name, r.message)
		}
	}
}

func TestCheckCatalog_Problems(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// An artist with nothing attached is an orphan
	if err := db.CreateArtist(&store.Artist{Name: "Nobody"}); err != nil {
		t.Fatalf("CreateArtist failed: %v", err)
	}

	// A playlist numbered 0, 5 has a gap
	p := &store.Playlist{Name: "Gappy"}
	if err := db.CreatePlaylist(p); err != nil {
		t.Fatalf("CreatePlaylist failed: %v", err)
	}
	for i, title := range []string{"a", "b"} {
		song := &store.Song{Title: title, FilePath: "/music/" + title + ".mp3", Duration: 120}
		if err := db.CreateSong(song); err != nil {
			t.Fatalf("CreateSong failed: %v", err)
		}
		if _, err := db.AddTrack(p.ID, song.ID, i); err != nil {
			t.Fatalf("AddTrack failed: %v", err)
		}
	}
	if _, err := db.DB().Exec(`UPDATE playlist_tracks SET position = 5 WHERE position = 1`); err != nil {
		t.Fatalf("failed to open a gap: %v", err)
	}
	db.Close()

	byName := make(map[string]checkResult)
	for _, r := range checkCatalog(dbPath) {
		byName[r.name] = r
	}

	if r := byName["Orphans"]; !r.warning || !strings.Contains(r.message, "1 artists") {
		t.Errorf("expected orphan artist warning, got %+v", r)
	}
	if r := byName["Playlist order"]; !r.warning {
		t.Errorf("expected playlist gap warning, got %+v", r)
	}
	if r := byName["Foreign keys"]; r.error {
		t.Errorf("unexpected foreign key error: %s", r.message)
	}
}

func TestCheckCatalog_MissingDatabase(t *testing.T) {
	if results := checkCatalog(filepath.Join(t.TempDir(), "missing.db")); len(results) != 0 {
		t.Errorf("expected no results for a missing database, got %d", len(results))
	}
}

func TestCheckAuditDirectory(t *testing.T) {
	newDir := filepath.Join(t.TempDir(), "artifacts")

	result := checkAuditDirectory(newDir)

	if result.error {
		t.Errorf("audit directory check failed: %s", result.message)
	}
	if _, err := os.Stat(newDir); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}

func TestCheckAuditDirectory_File(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(filePath, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := checkAuditDirectory(filePath)

	if !result.error {
		t.Error("expected error when path is a file, not a directory")
	}
}

func TestCheckNetworkDatabase_Local(t *testing.T) {
	result := checkNetworkDatabase(filepath.Join(t.TempDir(), "test.db"), false)

	if result.error {
		t.Errorf("network check should never error: %s", result.message)
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()

	result := checkDiskSpace(dir, "test")

	if result.error {
		t.Errorf("disk space check failed: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected message with disk space info")
	}
}

func TestCheckDiskSpace_NonExistent(t *testing.T) {
	result := checkDiskSpace("/nonexistent/path", "test")

	// Should produce a warning (not error)
	if !result.warning {
		t.Error("expected warning for non-existent path")
	}
}

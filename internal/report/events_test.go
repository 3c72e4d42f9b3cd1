package report

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/franz/music-catalog/internal/store"
)

// readEvents closes the logger and decodes every line it wrote
func readEvents(t *testing.T, logger *EventLogger) []Event {
	t.Helper()
	logger.Close()

	file, err := os.Open(logger.Path())
	if err != nil {
		t.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("Failed to decode line %d: %v", len(events)+1, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("Failed to scan log file: %v", err)
	}
	return events
}

func TestNewEventLogger(t *testing.T) {
	tmpDir := t.TempDir()

	logger, err := NewEventLogger(filepath.Join(tmpDir, "artifacts"), LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(logger.Path()); os.IsNotExist(err) {
		t.Errorf("Event log file was not created at %s", logger.Path())
	}

	filename := filepath.Base(logger.Path())
	if len(filename) != len("events-20060102-150405.jsonl") {
		t.Errorf("Event log filename format incorrect: %s", filename)
	}
}

func TestEventLogger_LogDelete(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelInfo)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	res := &store.CascadeResult{
		Songs:     []string{"s1"},
		Albums:    []string{"al1"},
		Artists:   []string{"ar1"},
		Images:    []string{"i1", "i2"},
		Compacted: []string{"p1"},
	}
	if err := logger.LogDelete(store.KindSong, "s1", res, 15*time.Millisecond); err != nil {
		t.Fatalf("LogDelete failed: %v", err)
	}

	events := readEvents(t, logger)
	// delete + album + artist + 2 images; the song itself and the debug
	// compaction event are not repeated
	if len(events) != 5 {
		t.Fatalf("Expected 5 events, got %d: %+v", len(events), events)
	}

	head := events[0]
	if head.Event != EventDelete || head.Kind != "song" || head.ID != "s1" {
		t.Errorf("Unexpected delete event: %+v", head)
	}
	if head.Duration != 15 {
		t.Errorf("Expected duration 15ms, got %d", head.Duration)
	}
	if head.Extra["images"] != "2" {
		t.Errorf("Expected 2 images in extra, got %q", head.Extra["images"])
	}

	for _, e := range events[1:] {
		if e.Event != EventCascade || e.Cause != "song:s1" || e.Action != "deleted" {
			t.Errorf("Unexpected cascade event: %+v", e)
		}
	}
	if events[1].Kind != "album" || events[2].Kind != "artist" || events[3].Kind != "image" {
		t.Errorf("Expected album, artist, image order, got %s, %s, %s",
			events[1].Kind, events[2].Kind, events[3].Kind)
	}
}

func TestEventLogger_LogGC(t *testing.T) {
	tests := []struct {
		name     string
		dryRun   bool
		minLevel EventLevel
		want     int
	}{
		{name: "sweep", dryRun: false, minLevel: LevelInfo, want: 3},
		{name: "dry run hidden at info", dryRun: true, minLevel: LevelInfo, want: 0},
		{name: "dry run at debug", dryRun: true, minLevel: LevelDebug, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewEventLogger(t.TempDir(), tt.minLevel)
			if err != nil {
				t.Fatalf("NewEventLogger failed: %v", err)
			}

			res := &store.CascadeResult{Albums: []string{"al1"}, Images: []string{"i1"}}
			if err := logger.LogGC(res, tt.dryRun, time.Millisecond); err != nil {
				t.Fatalf("LogGC failed: %v", err)
			}

			events := readEvents(t, logger)
			if len(events) != tt.want {
				t.Errorf("Expected %d events, got %d", tt.want, len(events))
			}
		})
	}
}

func TestEventLogger_LogImport(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	if err := logger.LogImport("/music/a.flac", "s1", true, nil); err != nil {
		t.Fatalf("LogImport failed: %v", err)
	}
	if err := logger.LogImport("/music/b.flac", "", false, errors.New("no duration")); err != nil {
		t.Fatalf("LogImport failed: %v", err)
	}

	events := readEvents(t, logger)
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Action != "created" || events[0].ID != "s1" {
		t.Errorf("Unexpected import event: %+v", events[0])
	}
	if events[1].Level != LevelError || events[1].Error != "no duration" || events[1].Path != "/music/b.flac" {
		t.Errorf("Unexpected error event: %+v", events[1])
	}
}

func TestEventLogger_ConcurrentWrites(t *testing.T) {
	logger, err := NewEventLogger(t.TempDir(), LevelDebug)
	if err != nil {
		t.Fatalf("NewEventLogger failed: %v", err)
	}

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				logger.LogPlaylist("add", "p1", "s1", i)
			}
		}()
	}
	wg.Wait()

	if events := readEvents(t, logger); len(events) != workers*perWorker {
		t.Errorf("Expected %d events, got %d", workers*perWorker, len(events))
	}
}

func TestEventLogger_NullLogger(t *testing.T) {
	logger := NullLogger()

	if err := logger.Log(&Event{Level: LevelError, Event: EventError}); err != nil {
		t.Errorf("NullLogger.Log returned error: %v", err)
	}
	if err := logger.LogDelete(store.KindAlbum, "a", &store.CascadeResult{}, 0); err != nil {
		t.Errorf("NullLogger.LogDelete returned error: %v", err)
	}
	if logger.Path() != "" {
		t.Errorf("NullLogger.Path() = %q, want empty", logger.Path())
	}
	if err := logger.Close(); err != nil {
		t.Errorf("NullLogger.Close returned error: %v", err)
	}
}

func TestEventLogger_LogLevelFiltering(t *testing.T) {
	all := []Event{
		{Level: LevelDebug, Event: EventCascade},
		{Level: LevelInfo, Event: EventDelete},
		{Level: LevelWarning, Event: EventGC},
		{Level: LevelError, Event: EventError},
	}

	testCases := []struct {
		minLevel      EventLevel
		expectedCount int
	}{
		{LevelDebug, 4},
		{LevelInfo, 3},
		{LevelWarning, 2},
		{LevelError, 1},
	}

	for _, tc := range testCases {
		t.Run(string(tc.minLevel), func(t *testing.T) {
			logger, err := NewEventLogger(t.TempDir(), tc.minLevel)
			if err != nil {
				t.Fatalf("NewEventLogger failed: %v", err)
			}

			for _, e := range all {
				e := e
				if err := logger.Log(&e); err != nil {
					t.Fatalf("Log failed: %v", err)
				}
			}

			events := readEvents(t, logger)
			if len(events) != tc.expectedCount {
				t.Errorf("Expected %d events, got %d", tc.expectedCount, len(events))
			}
			for _, e := range events {
				if e.Timestamp.IsZero() {
					t.Error("Expected timestamp to be set")
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("warning") != LevelWarning {
		t.Error("expected warning level")
	}
	if ParseLevel("loud") != LevelInfo {
		t.Error("expected unknown level to default to info")
	}
}

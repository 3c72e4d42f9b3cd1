package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/franz/music-catalog/internal/store"
)

// EventType represents the type of audit event
type EventType string

const (
	EventImport   EventType = "import"
	EventDelete   EventType = "delete"
	EventCascade  EventType = "cascade"
	EventGC       EventType = "gc"
	EventPlaylist EventType = "playlist"
	EventError    EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// ParseLevel converts a level name, defaulting to info
func ParseLevel(s string) EventLevel {
	if _, ok := levelPriority[EventLevel(s)]; ok {
		return EventLevel(s)
	}
	return LevelInfo
}

// Event is one line of the audit log
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	Kind      string            `json:"kind,omitempty"`
	ID        string            `json:"id,omitempty"`
	Path      string            `json:"path,omitempty"`
	Cause     string            `json:"cause,omitempty"`
	Action    string            `json:"action,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level.
// minLevel determines which events are written (LevelInfo skips LevelDebug).
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(outputDir, fmt.Sprintf("events-%s.jsonl", timestamp))

	// Append so two runs within the same second share one file
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogImport logs one file registration
func (l *EventLogger) LogImport(path, songID string, created bool, err error) error {
	if err != nil {
		return l.LogError(EventImport, path, err)
	}

	action := "updated"
	if created {
		action = "created"
	}
	return l.Log(&Event{
		Level:  LevelInfo,
		Event:  EventImport,
		Kind:   string(store.KindSong),
		ID:     songID,
		Path:   path,
		Action: action,
	})
}

// LogDelete logs a top-level delete and one cascade event per dependent
// row the chain removed
func (l *EventLogger) LogDelete(kind store.Kind, id string, res *store.CascadeResult, took time.Duration) error {
	if err := l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventDelete,
		Kind:     string(kind),
		ID:       id,
		Duration: took.Milliseconds(),
		Extra:    resultExtra(res),
	}); err != nil {
		return err
	}

	return l.logRemoved(EventCascade, string(kind)+":"+id, res, map[store.Kind]string{kind: id})
}

// LogGC logs a garbage collection sweep. Dry runs are logged at debug.
func (l *EventLogger) LogGC(res *store.CascadeResult, dryRun bool, took time.Duration) error {
	level := LevelInfo
	action := "sweep"
	if dryRun {
		level = LevelDebug
		action = "dry-run"
	}

	if err := l.Log(&Event{
		Level:    level,
		Event:    EventGC,
		Action:   action,
		Duration: took.Milliseconds(),
		Extra:    resultExtra(res),
	}); err != nil {
		return err
	}

	if dryRun {
		return nil
	}
	return l.logRemoved(EventGC, "gc", res, nil)
}

// LogPlaylist logs a playlist membership change
func (l *EventLogger) LogPlaylist(action, playlistID, songID string, position int) error {
	return l.Log(&Event{
		Level:  LevelInfo,
		Event:  EventPlaylist,
		Kind:   string(store.KindPlaylist),
		ID:     playlistID,
		Action: action,
		Extra: map[string]string{
			"song_id":  songID,
			"position": fmt.Sprintf("%d", position),
		},
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, path string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		Path:  path,
		Error: err.Error(),
	})
}

func (l *EventLogger) logRemoved(event EventType, cause string, res *store.CascadeResult, skip map[store.Kind]string) error {
	if res == nil {
		return nil
	}

	groups := []struct {
		kind store.Kind
		ids  []string
	}{
		{store.KindSong, res.Songs},
		{store.KindAlbum, res.Albums},
		{store.KindArtist, res.Artists},
		{store.KindPlaylist, res.Playlists},
		{"image", res.Images},
	}

	for _, g := range groups {
		for _, id := range g.ids {
			if skip[g.kind] == id {
				continue
			}
			if err := l.Log(&Event{
				Level:  LevelInfo,
				Event:  event,
				Kind:   string(g.kind),
				ID:     id,
				Cause:  cause,
				Action: "deleted",
			}); err != nil {
				return err
			}
		}
	}

	for _, id := range res.Compacted {
		if err := l.Log(&Event{
			Level:  LevelDebug,
			Event:  event,
			Kind:   string(store.KindPlaylist),
			ID:     id,
			Cause:  cause,
			Action: "compacted",
		}); err != nil {
			return err
		}
	}

	return nil
}

func resultExtra(res *store.CascadeResult) map[string]string {
	if res == nil {
		return nil
	}
	return map[string]string{
		"songs":     fmt.Sprintf("%d", len(res.Songs)),
		"albums":    fmt.Sprintf("%d", len(res.Albums)),
		"artists":   fmt.Sprintf("%d", len(res.Artists)),
		"playlists": fmt.Sprintf("%d", len(res.Playlists)),
		"images":    fmt.Sprintf("%d", len(res.Images)),
		"compacted": fmt.Sprintf("%d", len(res.Compacted)),
	}
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Valid reports whether t is one of the recorded event types
func (t EventType) Valid() bool {
	switch t {
	case EventPlay, EventStop, EventPause, EventResume:
		return true
	}
	return false
}

// ParseEventType converts a case-sensitive name such as "PLAY"
func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", constraintf("unknown event type " + s)
	}
	return t, nil
}

// CreateEventContext records what was playing: a song, a playlist or both.
// Contexts are removed only when their song or playlist is deleted.
func (s *Store) CreateEventContext(songID, playlistID string) (*EventContext, error) {
	if songID == "" && playlistID == "" {
		return nil, fmt.Errorf("failed to insert event context: %w", constraintf("event context needs a song or a playlist"))
	}

	ctx := &EventContext{
		ID:          newID(),
		SongID:      songID,
		PlaylistID:  playlistID,
		DateCreated: now(),
	}
	err := s.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO event_contexts (id, song_id, playlist_id, date_created)
			VALUES (?, ?, ?, ?)
		`, ctx.ID, nullable(ctx.SongID), nullable(ctx.PlaylistID), ctx.DateCreated)
		if err != nil {
			return fmt.Errorf("failed to insert event context: %w", classify(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ctx, nil
}

const eventContextColumns = `id, COALESCE(song_id, ''), COALESCE(playlist_id, ''), date_created`

func scanEventContext(r rowScanner) (*EventContext, error) {
	c := &EventContext{}
	if err := r.Scan(&c.ID, &c.SongID, &c.PlaylistID, &c.DateCreated); err != nil {
		return nil, err
	}
	return c, nil
}

// GetEventContext retrieves an event context by id
func (s *Store) GetEventContext(id string) (*EventContext, error) {
	c, err := scanEventContext(s.db.QueryRow(`SELECT `+eventContextColumns+` FROM event_contexts WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get event context: %w", notFound(err, "event context", id))
	}
	return c, nil
}

// EventContextsBySong returns the contexts referencing a song, oldest first
func (s *Store) EventContextsBySong(songID string) ([]*EventContext, error) {
	return s.queryEventContexts(`
		SELECT `+eventContextColumns+` FROM event_contexts
		WHERE song_id = ? ORDER BY date_created, id
	`, songID)
}

// EventContextsByPlaylist returns the contexts referencing a playlist, oldest first
func (s *Store) EventContextsByPlaylist(playlistID string) ([]*EventContext, error) {
	return s.queryEventContexts(`
		SELECT `+eventContextColumns+` FROM event_contexts
		WHERE playlist_id = ? ORDER BY date_created, id
	`, playlistID)
}

func (s *Store) queryEventContexts(query string, args ...any) ([]*EventContext, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event contexts: %w", err)
	}
	defer rows.Close()

	var contexts []*EventContext
	for rows.Next() {
		c, err := scanEventContext(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event context: %w", err)
		}
		contexts = append(contexts, c)
	}
	return contexts, rows.Err()
}

// RecordEvent appends a playback event. A zero at means now.
func (s *Store) RecordEvent(t EventType, contextID string, at time.Time) (*Event, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("failed to record event: %w", constraintf("unknown event type "+string(t)))
	}
	if at.IsZero() {
		at = now()
	}

	ev := &Event{
		ID:          newID(),
		Type:        t,
		ContextID:   contextID,
		DateCreated: now(),
		Timestamp:   at.UTC(),
	}
	err := s.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO events (id, event_type, context_id, date_created, timestamp)
			VALUES (?, ?, ?, ?, ?)
		`, ev.ID, string(ev.Type), nullable(ev.ContextID), ev.DateCreated, ev.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to record event: %w", classify(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ev, nil
}

const eventColumns = `id, event_type, COALESCE(context_id, ''), date_created, timestamp`

func scanEvent(r rowScanner) (*Event, error) {
	e := &Event{}
	var t string
	if err := r.Scan(&e.ID, &t, &e.ContextID, &e.DateCreated, &e.Timestamp); err != nil {
		return nil, err
	}
	e.Type = EventType(t)
	return e, nil
}

// GetEvent retrieves an event by id
func (s *Store) GetEvent(id string) (*Event, error) {
	e, err := scanEvent(s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", notFound(err, "event", id))
	}
	return e, nil
}

// EventsByType returns all events of a type in timestamp order
func (s *Store) EventsByType(t EventType) ([]*Event, error) {
	return s.queryEvents(`
		SELECT `+eventColumns+` FROM events
		WHERE event_type = ? ORDER BY timestamp, id
	`, string(t))
}

// ContextEvents returns the events recorded under a context in timestamp order
func (s *Store) ContextEvents(contextID string) ([]*Event, error) {
	return s.queryEvents(`
		SELECT `+eventColumns+` FROM events
		WHERE context_id = ? ORDER BY timestamp, id
	`, contextID)
}

func (s *Store) queryEvents(query string, args ...any) ([]*Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountEvents returns the number of recorded events
func (s *Store) CountEvents() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

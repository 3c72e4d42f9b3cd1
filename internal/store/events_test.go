package store

import (
	"errors"
	"testing"
	"time"
)

func TestEventContexts(t *testing.T) {
	s := openTestStore(t)

	song := mustSong(t, s, "Olsen", "", "", "")
	p := mustPlaylist(t, s, "Drift", "")

	if _, err := s.CreateEventContext("", ""); !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("empty context: expected ErrConstraintViolation, got %v", err)
	}
	if _, err := s.CreateEventContext("missing", ""); !errors.Is(err, ErrReferentialIntegrity) {
		t.Errorf("missing song: expected ErrReferentialIntegrity, got %v", err)
	}

	both, err := s.CreateEventContext(song.ID, p.ID)
	if err != nil {
		t.Fatalf("CreateEventContext failed: %v", err)
	}
	songOnly, err := s.CreateEventContext(song.ID, "")
	if err != nil {
		t.Fatalf("CreateEventContext failed: %v", err)
	}

	got, err := s.GetEventContext(both.ID)
	if err != nil {
		t.Fatalf("GetEventContext failed: %v", err)
	}
	if got.SongID != song.ID || got.PlaylistID != p.ID {
		t.Errorf("unexpected context: %+v", got)
	}

	bySong, err := s.EventContextsBySong(song.ID)
	if err != nil {
		t.Fatalf("EventContextsBySong failed: %v", err)
	}
	if len(bySong) != 2 {
		t.Errorf("expected 2 contexts for song, got %d", len(bySong))
	}

	byPlaylist, err := s.EventContextsByPlaylist(p.ID)
	if err != nil {
		t.Fatalf("EventContextsByPlaylist failed: %v", err)
	}
	if len(byPlaylist) != 1 || byPlaylist[0].ID != both.ID {
		t.Errorf("expected only the shared context, got %+v", byPlaylist)
	}

	// Deleting the playlist drops the shared context only
	if _, err := s.DeletePlaylist(p.ID); err != nil {
		t.Fatalf("DeletePlaylist failed: %v", err)
	}
	if _, err := s.GetEventContext(both.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("shared context should be gone, got %v", err)
	}
	if _, err := s.GetEventContext(songOnly.ID); err != nil {
		t.Errorf("song context should survive: %v", err)
	}
}

func TestRecordEvent(t *testing.T) {
	s := openTestStore(t)

	song := mustSong(t, s, "Svefn-g-englar", "", "", "")
	ctx, err := s.CreateEventContext(song.ID, "")
	if err != nil {
		t.Fatalf("CreateEventContext failed: %v", err)
	}

	if _, err := s.RecordEvent(EventType("SKIP"), ctx.ID, time.Time{}); !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("unknown type: expected ErrConstraintViolation, got %v", err)
	}
	if _, err := s.RecordEvent(EventPlay, "missing", time.Time{}); !errors.Is(err, ErrReferentialIntegrity) {
		t.Errorf("missing context: expected ErrReferentialIntegrity, got %v", err)
	}

	base := time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC)
	sequence := []EventType{EventPlay, EventPause, EventResume, EventStop}
	for i, typ := range sequence {
		// Recorded out of order; reads sort by timestamp
		at := base.Add(time.Duration(len(sequence)-i) * time.Minute)
		if _, err := s.RecordEvent(typ, ctx.ID, at); err != nil {
			t.Fatalf("RecordEvent(%s) failed: %v", typ, err)
		}
	}

	events, err := s.ContextEvents(ctx.ID)
	if err != nil {
		t.Fatalf("ContextEvents failed: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[0].Type != EventStop || events[3].Type != EventPlay {
		t.Errorf("expected timestamp order STOP..PLAY, got %s..%s", events[0].Type, events[3].Type)
	}
	if !events[3].Timestamp.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("timestamp round trip: got %v", events[3].Timestamp)
	}

	plays, err := s.EventsByType(EventPlay)
	if err != nil {
		t.Fatalf("EventsByType failed: %v", err)
	}
	if len(plays) != 1 {
		t.Errorf("expected 1 play, got %d", len(plays))
	}

	got, err := s.GetEvent(plays[0].ID)
	if err != nil || got.ContextID != ctx.ID {
		t.Errorf("GetEvent = %+v, %v", got, err)
	}

	if n, _ := s.CountEvents(); n != 4 {
		t.Errorf("CountEvents() = %d, want 4", n)
	}
}

func TestParseEventType(t *testing.T) {
	for _, name := range []string{"PLAY", "STOP", "PAUSE", "RESUME"} {
		if _, err := ParseEventType(name); err != nil {
			t.Errorf("ParseEventType(%s) failed: %v", name, err)
		}
	}
	if _, err := ParseEventType("play"); !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("lower case should be rejected, got %v", err)
	}
}

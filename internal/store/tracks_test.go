package store

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// assertPositions checks that a playlist holds exactly the given titles at
// positions 0..N-1
func assertPositions(t *testing.T, s *Store, playlistID string, want []string) {
	t.Helper()

	tracks, err := s.PlaylistTracks(playlistID)
	if err != nil {
		t.Fatalf("PlaylistTracks failed: %v", err)
	}

	got := make([]string, len(tracks))
	for i, tr := range tracks {
		if tr.Position != i {
			t.Errorf("track %d (%s) has position %d", i, tr.Song.Title, tr.Position)
		}
		got[i] = tr.Song.Title
	}
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("playlist order = %v, want %v", got, want)
	}
}

// seedPlaylist creates a playlist with songs named after titles, appended
// in order, and returns the song ids by title
func seedPlaylist(t *testing.T, s *Store, titles ...string) (*Playlist, map[string]string) {
	t.Helper()

	p := mustPlaylist(t, s, "Seed", "")
	ids := make(map[string]string, len(titles))
	for _, title := range titles {
		song := mustSong(t, s, title, "", "", "")
		if _, err := s.AddTrack(p.ID, song.ID, -1); err != nil {
			t.Fatalf("AddTrack(%s) failed: %v", title, err)
		}
		ids[title] = song.ID
	}
	return p, ids
}

func TestAddTrack(t *testing.T) {
	tests := []struct {
		name     string
		position int
		want     []string
	}{
		{name: "front", position: 0, want: []string{"x", "a", "b", "c"}},
		{name: "middle", position: 1, want: []string{"a", "x", "b", "c"}},
		{name: "end", position: 3, want: []string{"a", "b", "c", "x"}},
		{name: "past end appends", position: 99, want: []string{"a", "b", "c", "x"}},
		{name: "negative appends", position: -1, want: []string{"a", "b", "c", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := openTestStore(t)
			p, _ := seedPlaylist(t, s, "a", "b", "c")

			x := mustSong(t, s, "x", "", "", "")
			track, err := s.AddTrack(p.ID, x.ID, tt.position)
			if err != nil {
				t.Fatalf("AddTrack failed: %v", err)
			}
			for i, title := range tt.want {
				if title == "x" && track.Position != i {
					t.Errorf("returned position %d, want %d", track.Position, i)
				}
			}
			assertPositions(t, s, p.ID, tt.want)
		})
	}
}

func TestAddTrack_Duplicate(t *testing.T) {
	s := openTestStore(t)
	p, ids := seedPlaylist(t, s, "a", "b")

	_, err := s.AddTrack(p.ID, ids["a"], 0)
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
	assertPositions(t, s, p.ID, []string{"a", "b"})
}

func TestAddTrack_MissingRows(t *testing.T) {
	s := openTestStore(t)
	p := mustPlaylist(t, s, "Empty", "")
	song := mustSong(t, s, "a", "", "", "")

	if _, err := s.AddTrack(p.ID, "no-such-song", 0); !errors.Is(err, ErrReferentialIntegrity) {
		t.Errorf("missing song: expected ErrReferentialIntegrity, got %v", err)
	}
	if _, err := s.AddTrack("no-such-playlist", song.ID, 0); !errors.Is(err, ErrReferentialIntegrity) {
		t.Errorf("missing playlist: expected ErrReferentialIntegrity, got %v", err)
	}
}

func TestRemoveTrack(t *testing.T) {
	titles := []string{"a", "b", "c", "d", "e"}

	for i := range titles {
		t.Run(fmt.Sprintf("remove %d", i), func(t *testing.T) {
			s := openTestStore(t)
			p, ids := seedPlaylist(t, s, titles...)

			if err := s.RemoveTrack(p.ID, ids[titles[i]]); err != nil {
				t.Fatalf("RemoveTrack failed: %v", err)
			}

			want := append(append([]string{}, titles[:i]...), titles[i+1:]...)
			assertPositions(t, s, p.ID, want)

			if _, err := s.GetSong(ids[titles[i]]); err != nil {
				t.Errorf("removed track's song must survive: %v", err)
			}
		})
	}
}

func TestRemoveTrack_NotInPlaylist(t *testing.T) {
	s := openTestStore(t)
	p, _ := seedPlaylist(t, s, "a")
	other := mustSong(t, s, "b", "", "", "")

	if err := s.RemoveTrack(p.ID, other.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMoveTrack(t *testing.T) {
	titles := []string{"a", "b", "c", "d"}

	// Every (from, to) pair, plus clamped targets
	for from := range titles {
		for _, to := range []int{-5, 0, 1, 2, 3, 10} {
			t.Run(fmt.Sprintf("%d to %d", from, to), func(t *testing.T) {
				s := openTestStore(t)
				p, ids := seedPlaylist(t, s, titles...)

				if err := s.MoveTrack(p.ID, ids[titles[from]], to); err != nil {
					t.Fatalf("MoveTrack failed: %v", err)
				}

				dest := to
				if dest < 0 {
					dest = 0
				}
				if dest > len(titles)-1 {
					dest = len(titles) - 1
				}
				want := append([]string{}, titles[:from]...)
				want = append(want, titles[from+1:]...)
				want = append(want[:dest], append([]string{titles[from]}, want[dest:]...)...)

				assertPositions(t, s, p.ID, want)
			})
		}
	}
}

func TestDeleteSong_CompactsPlaylists(t *testing.T) {
	s := openTestStore(t)

	p1, ids := seedPlaylist(t, s, "a", "b", "c")
	p2 := mustPlaylist(t, s, "Other", "")
	for _, title := range []string{"c", "b"} {
		if _, err := s.AddTrack(p2.ID, ids[title], -1); err != nil {
			t.Fatalf("AddTrack failed: %v", err)
		}
	}

	res, err := s.DeleteSong(ids["b"])
	if err != nil {
		t.Fatalf("DeleteSong failed: %v", err)
	}

	// b was last in p2, so only p1 needed renumbering
	if len(res.Compacted) != 1 || res.Compacted[0] != p1.ID {
		t.Errorf("expected only %s compacted, got %v", p1.ID, res.Compacted)
	}
	assertPositions(t, s, p1.ID, []string{"a", "c"})
	assertPositions(t, s, p2.ID, []string{"c"})
}

func TestCompactPlaylist(t *testing.T) {
	s := openTestStore(t)
	p, _ := seedPlaylist(t, s, "a", "b", "c", "d")

	// Spread positions out: 0,1,2,3 -> 0,10,20,30
	for _, pos := range []int{3, 2, 1} {
		if _, err := s.db.Exec(`UPDATE playlist_tracks SET position = ? WHERE playlist_id = ? AND position = ?`,
			pos*10, p.ID, pos); err != nil {
			t.Fatalf("failed to spread positions: %v", err)
		}
	}

	changed, err := s.CompactPlaylist(p.ID)
	if err != nil {
		t.Fatalf("CompactPlaylist failed: %v", err)
	}
	if changed != 3 {
		t.Errorf("expected 3 rows renumbered, got %d", changed)
	}
	assertPositions(t, s, p.ID, []string{"a", "b", "c", "d"})

	changed, err = s.CompactPlaylist(p.ID)
	if err != nil || changed != 0 {
		t.Errorf("second compaction should be a no-op, got %d, %v", changed, err)
	}
}

func TestPlaylistCRUD(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreatePlaylist(&Playlist{Name: "  "}); !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("blank name: expected ErrConstraintViolation, got %v", err)
	}

	b := mustPlaylist(t, s, "beta", "")
	mustPlaylist(t, s, "Alpha", "")
	if err := s.SetPinned(KindPlaylist, b.ID, true); err != nil {
		t.Fatalf("SetPinned failed: %v", err)
	}

	list, err := s.ListPlaylists()
	if err != nil {
		t.Fatalf("ListPlaylists failed: %v", err)
	}
	var names []string
	for _, p := range list {
		names = append(names, p.Name)
	}
	if !reflect.DeepEqual(names, []string{"beta", "Alpha"}) {
		t.Errorf("expected pinned first, got %v", names)
	}

	b.Description = "late night"
	if err := s.UpdatePlaylist(b); err != nil {
		t.Fatalf("UpdatePlaylist failed: %v", err)
	}
	got, err := s.GetPlaylist(b.ID)
	if err != nil {
		t.Fatalf("GetPlaylist failed: %v", err)
	}
	if got.Description != "late night" || got.DateUpdated.Before(got.DateCreated) {
		t.Errorf("unexpected playlist after update: %+v", got)
	}

	if n, _ := s.CountPlaylists(); n != 2 {
		t.Errorf("CountPlaylists() = %d, want 2", n)
	}
}

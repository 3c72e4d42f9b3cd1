package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/franz/music-catalog/internal/util"
)

// openTestStore opens a fresh database in a temp dir. Retries are kept
// short so conflict tests do not sleep.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := OpenWithOptions(path, &OpenOptions{
		Retry: &util.RetryConfig{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond},
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustArtist(t *testing.T, s *Store, name, imageID string) *Artist {
	t.Helper()
	a := &Artist{Name: name, ImageID: imageID}
	if err := s.CreateArtist(a); err != nil {
		t.Fatalf("failed to create artist %q: %v", name, err)
	}
	return a
}

func mustAlbum(t *testing.T, s *Store, title, artistID, imageID string) *Album {
	t.Helper()
	a := &Album{Title: title, ArtistID: artistID, ImageID: imageID}
	if err := s.CreateAlbum(a); err != nil {
		t.Fatalf("failed to create album %q: %v", title, err)
	}
	return a
}

func mustSong(t *testing.T, s *Store, title, artistID, albumID, imageID string) *Song {
	t.Helper()
	song := &Song{
		Title:    title,
		ArtistID: artistID,
		AlbumID:  albumID,
		ImageID:  imageID,
		FilePath: "/music/" + title + ".flac",
		Duration: 180,
	}
	if err := s.CreateSong(song); err != nil {
		t.Fatalf("failed to create song %q: %v", title, err)
	}
	return song
}

func mustImage(t *testing.T, s *Store, data string) string {
	t.Helper()
	id, err := s.PutImage([]byte(data))
	if err != nil {
		t.Fatalf("failed to put image: %v", err)
	}
	return id
}

func countRows(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}

func TestStoreOpenAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	version, err := store.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	tables := []string{
		"images", "artists", "albums", "songs", "playlists",
		"playlist_tracks", "event_contexts", "events", "schema_version",
	}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	indexes := []string{
		"idx_albums_title_artist",
		"idx_songs_album_id",
		"idx_songs_favorite",
		"idx_playlist_tracks_song_id",
		"idx_events_context_id",
	}
	for _, index := range indexes {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query index %s: %v", index, err)
		}
		if count != 1 {
			t.Errorf("expected index %s to exist", index)
		}
	}

	var fk int
	if err := store.db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("failed to read foreign_keys pragma: %v", err)
	}
	if fk != 1 {
		t.Error("expected foreign keys to be enabled")
	}
	store.Close()

	// Reopening must not reapply migrations
	store, err = Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer store.Close()

	if n := countRows(t, store, "schema_version"); n != currentSchemaVersion {
		t.Errorf("expected %d schema_version rows, got %d", currentSchemaVersion, n)
	}
}

func TestSongInsertAndRetrieve(t *testing.T) {
	s := openTestStore(t)

	artist := mustArtist(t, s, "Boards of Canada", "")
	album := mustAlbum(t, s, "Geogaddi", artist.ID, "")

	lufs := -9.5
	song := &Song{
		Title:        "Music Is Math",
		ArtistID:     artist.ID,
		AlbumID:      album.ID,
		FilePath:     "/music/boc/geogaddi/03.flac",
		FileSize:     31_000_000,
		FileModified: 1_700_000_000,
		Genre:        "Electronic",
		Date:         "2002",
		Duration:     321,
		TrackNumber:  3,
		LUFS:         &lufs,
	}
	if err := s.CreateSong(song); err != nil {
		t.Fatalf("failed to create song: %v", err)
	}
	if song.ID == "" {
		t.Fatal("expected song ID to be set after insert")
	}
	if song.DateAdded.IsZero() {
		t.Error("expected DateAdded to be set after insert")
	}

	got, err := s.GetSong(song.ID)
	if err != nil {
		t.Fatalf("failed to get song: %v", err)
	}
	if got.Title != song.Title || got.AlbumID != album.ID || got.ArtistID != artist.ID {
		t.Errorf("unexpected song: %+v", got)
	}
	if got.TrackNumber != 3 || got.Duration != 321 || got.Genre != "Electronic" {
		t.Errorf("unexpected song fields: %+v", got)
	}
	if got.LUFS == nil || *got.LUFS != lufs {
		t.Errorf("expected LUFS %v, got %v", lufs, got.LUFS)
	}
	if got.ImageID != "" {
		t.Errorf("expected no image, got %q", got.ImageID)
	}

	byPath, err := s.GetSongByPath(song.FilePath)
	if err != nil {
		t.Fatalf("failed to get song by path: %v", err)
	}
	if byPath.ID != song.ID {
		t.Errorf("expected id %s, got %s", song.ID, byPath.ID)
	}

	// Update bumps date_updated
	time.Sleep(10 * time.Millisecond)
	got.Title = "Music Is Math (Remaster)"
	if err := s.UpdateSong(got); err != nil {
		t.Fatalf("failed to update song: %v", err)
	}
	updated, err := s.GetSong(song.ID)
	if err != nil {
		t.Fatalf("failed to get song: %v", err)
	}
	if updated.Title != "Music Is Math (Remaster)" {
		t.Errorf("expected updated title, got %q", updated.Title)
	}
	if !updated.DateUpdated.After(song.DateUpdated) {
		t.Errorf("expected date_updated to advance: %v -> %v", song.DateUpdated, updated.DateUpdated)
	}
	if !updated.DateAdded.Equal(song.DateAdded) {
		t.Errorf("expected date_added to stay %v, got %v", song.DateAdded, updated.DateAdded)
	}
}

func TestConstraintViolations(t *testing.T) {
	s := openTestStore(t)

	artist := mustArtist(t, s, "Autechre", "")
	mustAlbum(t, s, "Amber", artist.ID, "")
	mustAlbum(t, s, "Untitled", "", "")
	song := mustSong(t, s, "Foil", artist.ID, "", "")

	tests := []struct {
		name string
		op   func() error
		want error
	}{
		{
			name: "duplicate artist name",
			op:   func() error { return s.CreateArtist(&Artist{Name: "Autechre"}) },
			want: ErrConstraintViolation,
		},
		{
			name: "duplicate album title and artist",
			op:   func() error { return s.CreateAlbum(&Album{Title: "Amber", ArtistID: artist.ID}) },
			want: ErrConstraintViolation,
		},
		{
			name: "duplicate artistless album",
			op:   func() error { return s.CreateAlbum(&Album{Title: "Untitled"}) },
			want: ErrConstraintViolation,
		},
		{
			name: "duplicate file path",
			op: func() error {
				return s.CreateSong(&Song{Title: "Other", FilePath: song.FilePath, Duration: 10})
			},
			want: ErrConstraintViolation,
		},
		{
			name: "empty artist name",
			op:   func() error { return s.CreateArtist(&Artist{Name: "  "}) },
			want: ErrConstraintViolation,
		},
		{
			name: "missing duration",
			op:   func() error { return s.CreateSong(&Song{Title: "X", FilePath: "/x.mp3"}) },
			want: ErrConstraintViolation,
		},
		{
			name: "dangling album",
			op: func() error {
				return s.CreateSong(&Song{Title: "X", FilePath: "/x.mp3", Duration: 1, AlbumID: "missing"})
			},
			want: ErrReferentialIntegrity,
		},
		{
			name: "dangling image",
			op:   func() error { return s.CreateArtist(&Artist{Name: "Seefeel", ImageID: "missing"}) },
			want: ErrReferentialIntegrity,
		},
		{
			name: "update to colliding file path",
			op: func() error {
				other := mustSong(t, s, "Other", "", "", "")
				other.FilePath = song.FilePath
				return s.UpdateSong(other)
			},
			want: ErrConstraintViolation,
		},
		{
			name: "update missing artist",
			op:   func() error { return s.UpdateArtist(&Artist{ID: "missing", Name: "Nobody"}) },
			want: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.op()
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	// Referential errors are also constraint violations
	err := s.CreateAlbum(&Album{Title: "Ghost", ArtistID: "missing"})
	if !errors.Is(err, ErrConstraintViolation) || !errors.Is(err, ErrReferentialIntegrity) {
		t.Errorf("expected referential constraint violation, got %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.GetSong("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSong: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetAlbum("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAlbum: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetArtist("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetArtist: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetPlaylist("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetPlaylist: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetImage("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetImage: expected ErrNotFound, got %v", err)
	}
	if _, err := s.DeleteSong("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteSong: expected ErrNotFound, got %v", err)
	}
}

func TestUpserts(t *testing.T) {
	s := openTestStore(t)

	id1, err := s.UpsertArtist("Burial")
	if err != nil {
		t.Fatalf("failed to upsert artist: %v", err)
	}
	id2, err := s.UpsertArtist("Burial")
	if err != nil {
		t.Fatalf("failed to upsert artist: %v", err)
	}
	if id1 != id2 {
		t.Errorf("expected same artist id, got %s and %s", id1, id2)
	}

	// Names are case-sensitive
	id3, err := s.UpsertArtist("burial")
	if err != nil {
		t.Fatalf("failed to upsert artist: %v", err)
	}
	if id3 == id1 {
		t.Error("expected a distinct artist for a differently cased name")
	}

	cover := mustImage(t, s, "untrue-cover")
	albumID, err := s.UpsertAlbum("Untrue", id1, "")
	if err != nil {
		t.Fatalf("failed to upsert album: %v", err)
	}
	again, err := s.UpsertAlbum("Untrue", id1, cover)
	if err != nil {
		t.Fatalf("failed to upsert album: %v", err)
	}
	if again != albumID {
		t.Errorf("expected same album id, got %s and %s", albumID, again)
	}
	album, err := s.GetAlbum(albumID)
	if err != nil {
		t.Fatalf("failed to get album: %v", err)
	}
	if album.ImageID != cover {
		t.Errorf("expected cover %s, got %q", cover, album.ImageID)
	}

	song := &Song{Title: "Archangel", AlbumID: albumID, FilePath: "/music/archangel.mp3", Duration: 238}
	songID, err := s.UpsertSong(song)
	if err != nil {
		t.Fatalf("failed to upsert song: %v", err)
	}
	if err := s.SetFavorite(KindSong, songID, true); err != nil {
		t.Fatalf("failed to set favorite: %v", err)
	}

	retag := &Song{Title: "Archangel (Edit)", AlbumID: albumID, FilePath: "/music/archangel.mp3", Duration: 240}
	again, err = s.UpsertSong(retag)
	if err != nil {
		t.Fatalf("failed to upsert song: %v", err)
	}
	if again != songID {
		t.Errorf("expected upsert to keep id %s, got %s", songID, again)
	}
	got, err := s.GetSong(songID)
	if err != nil {
		t.Fatalf("failed to get song: %v", err)
	}
	if got.Title != "Archangel (Edit)" || !got.Favorite {
		t.Errorf("expected retagged favorite song, got %+v", got)
	}
	if n := countRows(t, s, "songs"); n != 1 {
		t.Errorf("expected 1 song, got %d", n)
	}
}

func TestPutImageDedup(t *testing.T) {
	s := openTestStore(t)

	a, err := s.PutImage([]byte("jpeg"))
	if err != nil {
		t.Fatalf("failed to put image: %v", err)
	}
	b, err := s.PutImage([]byte("jpeg"))
	if err != nil {
		t.Fatalf("failed to put image: %v", err)
	}
	if a == b {
		t.Error("expected PutImage to allocate a new id for identical bytes")
	}

	c, err := s.PutImageDedup([]byte("jpeg"))
	if err != nil {
		t.Fatalf("failed to put image: %v", err)
	}
	if c != a {
		t.Errorf("expected dedup to return oldest id %s, got %s", a, c)
	}

	img, err := s.GetImage(a)
	if err != nil {
		t.Fatalf("failed to get image: %v", err)
	}
	if string(img.Data) != "jpeg" || img.Hash != ContentHash([]byte("jpeg")) {
		t.Errorf("unexpected image: %+v", img)
	}

	if _, err := s.PutImage(nil); !errors.Is(err, ErrConstraintViolation) {
		t.Errorf("expected ErrConstraintViolation for empty image, got %v", err)
	}
}

func TestStoreDiagnostics(t *testing.T) {
	s := openTestStore(t)

	if SQLiteVersion() == "" {
		t.Error("expected a SQLite version")
	}
	if err := s.CheckIntegrity(); err != nil {
		t.Errorf("integrity check failed: %v", err)
	}
	violations, err := s.CheckForeignKeys()
	if err != nil {
		t.Fatalf("foreign key check failed: %v", err)
	}
	if len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)

	img := mustImage(t, s, "12345")
	artist := mustArtist(t, s, "Plaid", img)
	album := mustAlbum(t, s, "Not for Threes", artist.ID, "")
	mustSong(t, s, "Abla Eedio", artist.ID, album.ID, "")
	mustSong(t, s, "Headspin", artist.ID, album.ID, "")

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("failed to read stats: %v", err)
	}
	if st.Songs != 2 || st.Albums != 1 || st.Artists != 1 || st.Images != 1 {
		t.Errorf("unexpected counts: %+v", st)
	}
	if st.ImageBytes != 5 {
		t.Errorf("expected 5 image bytes, got %d", st.ImageBytes)
	}
	if st.Duration != 360 {
		t.Errorf("expected 360s total duration, got %d", st.Duration)
	}
}

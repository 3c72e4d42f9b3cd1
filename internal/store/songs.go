package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const songColumns = `id, title, COALESCE(artist_id, ''), COALESCE(album_id, ''), file_path,
	file_size, file_modified, COALESCE(genre, ''), COALESCE(date, ''), duration,
	COALESCE(image_id, ''), COALESCE(track_number, 0), favorite, lufs, pinned,
	date_added, date_updated`

func scanSong(r rowScanner) (*Song, error) {
	s := &Song{}
	var lufs sql.NullFloat64
	err := r.Scan(
		&s.ID, &s.Title, &s.ArtistID, &s.AlbumID, &s.FilePath,
		&s.FileSize, &s.FileModified, &s.Genre, &s.Date, &s.Duration,
		&s.ImageID, &s.TrackNumber, &s.Favorite, &lufs, &s.Pinned,
		&s.DateAdded, &s.DateUpdated,
	)
	if err != nil {
		return nil, err
	}
	if lufs.Valid {
		v := lufs.Float64
		s.LUFS = &v
	}
	return s, nil
}

func scanSongs(rows *sql.Rows) ([]*Song, error) {
	defer rows.Close()

	var songs []*Song
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		songs = append(songs, s)
	}

	return songs, rows.Err()
}

func validateSong(s *Song) error {
	switch {
	case strings.TrimSpace(s.Title) == "":
		return constraintf("song title is required")
	case s.FilePath == "":
		return constraintf("song file path is required")
	case s.Duration <= 0:
		return constraintf("song duration is required")
	}
	return nil
}

func lufsValue(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// CreateSong inserts a new song. S.ID is assigned when empty; a file path
// already in the catalog fails with ErrConstraintViolation.
func (s *Store) CreateSong(song *Song) error {
	if err := validateSong(song); err != nil {
		return fmt.Errorf("failed to insert song: %w", err)
	}
	if song.ID == "" {
		song.ID = newID()
	}

	return s.Transaction(func(tx *sql.Tx) error {
		return insertSong(tx, song)
	})
}

func insertSong(q querier, s *Song) error {
	ts := now()
	_, err := q.Exec(`
		INSERT INTO songs (id, title, artist_id, album_id, file_path, file_size, file_modified,
		                   genre, date, duration, image_id, track_number, favorite, lufs, pinned,
		                   date_added, date_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Title, nullable(s.ArtistID), nullable(s.AlbumID), s.FilePath, s.FileSize, s.FileModified,
		nullable(s.Genre), nullable(s.Date), s.Duration, nullable(s.ImageID), nullableInt(s.TrackNumber),
		s.Favorite, lufsValue(s.LUFS), s.Pinned, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to insert song: %w", classify(err))
	}
	s.DateAdded = ts
	s.DateUpdated = ts
	return nil
}

// UpdateSong rewrites a song's metadata and bumps date_updated. An album,
// artist or image the song stops referencing is removed if it is left
// without references.
func (s *Store) UpdateSong(song *Song) error {
	if err := validateSong(song); err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}

	return s.Transaction(func(tx *sql.Tx) error {
		old, err := getSong(tx, song.ID)
		if err != nil {
			return err
		}
		if err := updateSong(tx, song); err != nil {
			return err
		}
		return releaseSong(tx, old, song)
	})
}

func updateSong(q querier, s *Song) error {
	ts := now()
	res, err := q.Exec(`
		UPDATE songs SET title = ?, artist_id = ?, album_id = ?, file_path = ?, file_size = ?,
		                 file_modified = ?, genre = ?, date = ?, duration = ?, image_id = ?,
		                 track_number = ?, favorite = ?, lufs = ?, pinned = ?, date_updated = ?
		WHERE id = ?
	`, s.Title, nullable(s.ArtistID), nullable(s.AlbumID), s.FilePath, s.FileSize,
		s.FileModified, nullable(s.Genre), nullable(s.Date), s.Duration, nullable(s.ImageID),
		nullableInt(s.TrackNumber), s.Favorite, lufsValue(s.LUFS), s.Pinned, ts, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update song: %w", classify(err))
	}
	if err := rowsAffected(res, "song", s.ID); err != nil {
		return err
	}
	s.DateUpdated = ts
	return nil
}

// UpsertSong inserts a song or, when its file path is already catalogued,
// updates the existing row in place (keeping its id, favorite and pinned
// flags). Returns the song id.
func (s *Store) UpsertSong(song *Song) (string, error) {
	if err := validateSong(song); err != nil {
		return "", fmt.Errorf("failed to upsert song: %w", err)
	}

	var id string
	err := s.Transaction(func(tx *sql.Tx) error {
		existing, err := scanSong(tx.QueryRow(`SELECT `+songColumns+` FROM songs WHERE file_path = ?`, song.FilePath))
		if err == sql.ErrNoRows {
			if song.ID == "" {
				song.ID = newID()
			}
			id = song.ID
			return insertSong(tx, song)
		}
		if err != nil {
			return fmt.Errorf("failed to look up song: %w", classify(err))
		}

		song.ID = existing.ID
		song.Favorite = existing.Favorite
		song.Pinned = existing.Pinned
		song.DateAdded = existing.DateAdded
		id = existing.ID
		if err := updateSong(tx, song); err != nil {
			return err
		}
		return releaseSong(tx, existing, song)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetSong retrieves a song by id
func (s *Store) GetSong(id string) (*Song, error) {
	return getSong(s.db, id)
}

func getSong(q querier, id string) (*Song, error) {
	song, err := scanSong(q.QueryRow(`SELECT `+songColumns+` FROM songs WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get song: %w", notFound(err, "song", id))
	}
	return song, nil
}

// GetSongByPath retrieves a song by its file path
func (s *Store) GetSongByPath(filePath string) (*Song, error) {
	song, err := scanSong(s.db.QueryRow(`SELECT `+songColumns+` FROM songs WHERE file_path = ?`, filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to get song: %w", notFound(err, "song", filePath))
	}
	return song, nil
}

// AlbumSongs returns an album's songs in track order
func (s *Store) AlbumSongs(albumID string) ([]*Song, error) {
	rows, err := s.db.Query(`
		SELECT `+songColumns+` FROM songs
		WHERE album_id = ?
		ORDER BY track_number IS NULL, track_number, title, id
	`, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	return scanSongs(rows)
}

// RecentlyAdded returns the most recently added songs, newest first
func (s *Store) RecentlyAdded(limit int) ([]*Song, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT `+songColumns+` FROM songs
		ORDER BY date_added DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	return scanSongs(rows)
}

// SongPathsUnder returns the file paths of every song stored below dir
func (s *Store) SongPathsUnder(dir string) ([]string, error) {
	prefix := strings.TrimSuffix(dir, "/") + "/"
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

	rows, err := s.db.Query(`
		SELECT file_path FROM songs
		WHERE file_path LIKE ? ESCAPE '\'
		ORDER BY file_path
	`, r.Replace(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query song paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan song path: %w", err)
		}
		// LIKE ignores ASCII case; paths do not
		if strings.HasPrefix(p, prefix) {
			paths = append(paths, p)
		}
	}
	return paths, rows.Err()
}

package store

import (
	"database/sql"
	"fmt"
)

// parkOffset lifts rows out of the 0..N-1 range while a shift is in
// progress. SQLite checks UNIQUE(playlist_id, position) row by row, so a
// plain "position = position + 1" collides with the next row.
const parkOffset = 1 << 40

// AddTrack inserts a song into a playlist at position. Tracks at or after
// position move down by one. A negative position, or one past the end,
// appends.
func (s *Store) AddTrack(playlistID, songID string, position int) (*PlaylistTrack, error) {
	var track *PlaylistTrack
	err := s.Transaction(func(tx *sql.Tx) error {
		var dup int
		err := tx.QueryRow(`
			SELECT COUNT(*) FROM playlist_tracks WHERE playlist_id = ? AND song_id = ?
		`, playlistID, songID).Scan(&dup)
		if err != nil {
			return fmt.Errorf("failed to check playlist membership: %w", classify(err))
		}
		if dup > 0 {
			return fmt.Errorf("failed to add track: %w", constraintf("song "+songID+" is already in playlist "+playlistID))
		}

		n, err := trackCount(tx, playlistID)
		if err != nil {
			return err
		}
		if position < 0 || position > n {
			position = n
		}

		if err := shiftTracks(tx, playlistID, position, -1, 1); err != nil {
			return err
		}

		ts := now()
		track = &PlaylistTrack{
			ID:         newID(),
			PlaylistID: playlistID,
			SongID:     songID,
			Position:   position,
			DateAdded:  ts,
		}
		_, err = tx.Exec(`
			INSERT INTO playlist_tracks (id, playlist_id, song_id, position, date_added)
			VALUES (?, ?, ?, ?, ?)
		`, track.ID, track.PlaylistID, track.SongID, track.Position, track.DateAdded)
		if err != nil {
			return fmt.Errorf("failed to add track: %w", classify(err))
		}

		return touchPlaylist(tx, playlistID)
	})
	if err != nil {
		return nil, err
	}
	return track, nil
}

// RemoveTrack takes a song out of a playlist and closes the gap. The song
// itself is untouched.
func (s *Store) RemoveTrack(playlistID, songID string) error {
	return s.Transaction(func(tx *sql.Tx) error {
		pos, err := trackPosition(tx, playlistID, songID)
		if err != nil {
			return err
		}

		_, err = tx.Exec(`DELETE FROM playlist_tracks WHERE playlist_id = ? AND song_id = ?`, playlistID, songID)
		if err != nil {
			return fmt.Errorf("failed to remove track: %w", classify(err))
		}

		if err := shiftTracks(tx, playlistID, pos+1, -1, -1); err != nil {
			return err
		}

		return touchPlaylist(tx, playlistID)
	})
}

// MoveTrack moves a song to position (clamped to the playlist bounds) and
// shifts the tracks in between by one
func (s *Store) MoveTrack(playlistID, songID string, position int) error {
	return s.Transaction(func(tx *sql.Tx) error {
		from, err := trackPosition(tx, playlistID, songID)
		if err != nil {
			return err
		}

		n, err := trackCount(tx, playlistID)
		if err != nil {
			return err
		}
		to := position
		if to < 0 {
			to = 0
		}
		if to > n-1 {
			to = n - 1
		}
		if to == from {
			return nil
		}

		// Park the moving row below the shift range
		if err := setTrackPosition(tx, playlistID, songID, parkOffset-1); err != nil {
			return err
		}

		if from < to {
			err = shiftTracks(tx, playlistID, from+1, to, -1)
		} else {
			err = shiftTracks(tx, playlistID, to, from-1, 1)
		}
		if err != nil {
			return err
		}

		if err := setTrackPosition(tx, playlistID, songID, to); err != nil {
			return err
		}

		return touchPlaylist(tx, playlistID)
	})
}

// CompactPlaylist renumbers a playlist's tracks to 0..N-1, preserving order.
// Returns the number of rows renumbered.
func (s *Store) CompactPlaylist(playlistID string) (int, error) {
	var changed int
	err := s.Transaction(func(tx *sql.Tx) error {
		var err error
		changed, err = compactPlaylist(tx, playlistID)
		return err
	})
	return changed, err
}

// compactPlaylist walks tracks in ascending order; each row's target index
// is never above its current position and every lower index is already
// taken by an earlier row, so single-row updates never collide.
func compactPlaylist(q querier, playlistID string) (int, error) {
	rows, err := q.Query(`
		SELECT id, position FROM playlist_tracks
		WHERE playlist_id = ?
		ORDER BY position
	`, playlistID)
	if err != nil {
		return 0, fmt.Errorf("failed to query playlist tracks: %w", classify(err))
	}

	type slot struct {
		id  string
		pos int
	}
	var slots []slot
	for rows.Next() {
		var sl slot
		if err := rows.Scan(&sl.id, &sl.pos); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		slots = append(slots, sl)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	changed := 0
	for i, sl := range slots {
		if sl.pos == i {
			continue
		}
		if _, err := q.Exec(`UPDATE playlist_tracks SET position = ? WHERE id = ?`, i, sl.id); err != nil {
			return changed, fmt.Errorf("failed to renumber playlist track: %w", classify(err))
		}
		changed++
	}

	return changed, nil
}

// shiftTracks adds delta to every position in [from, to]; to < 0 means
// "to the end". Rows are parked above parkOffset and then dropped back.
func shiftTracks(q querier, playlistID string, from, to, delta int) error {
	query := `UPDATE playlist_tracks SET position = position + ? WHERE playlist_id = ? AND position >= ? AND position < ?`
	upper := parkOffset - 1
	if to >= 0 {
		upper = to + 1
	}

	if _, err := q.Exec(query, parkOffset+delta, playlistID, from, upper); err != nil {
		return fmt.Errorf("failed to shift playlist tracks: %w", classify(err))
	}

	_, err := q.Exec(`
		UPDATE playlist_tracks SET position = position - ?
		WHERE playlist_id = ? AND position >= ?
	`, parkOffset, playlistID, parkOffset)
	if err != nil {
		return fmt.Errorf("failed to shift playlist tracks: %w", classify(err))
	}

	return nil
}

func setTrackPosition(q querier, playlistID, songID string, position int) error {
	_, err := q.Exec(`
		UPDATE playlist_tracks SET position = ?
		WHERE playlist_id = ? AND song_id = ?
	`, position, playlistID, songID)
	if err != nil {
		return fmt.Errorf("failed to move playlist track: %w", classify(err))
	}
	return nil
}

func trackPosition(q querier, playlistID, songID string) (int, error) {
	var pos int
	err := q.QueryRow(`
		SELECT position FROM playlist_tracks WHERE playlist_id = ? AND song_id = ?
	`, playlistID, songID).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("failed to get playlist track: %w", notFound(err, "playlist track", playlistID+"/"+songID))
	}
	return pos, nil
}

func trackCount(q querier, playlistID string) (int, error) {
	var n int
	if err := q.QueryRow(`SELECT COUNT(*) FROM playlist_tracks WHERE playlist_id = ?`, playlistID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count playlist tracks: %w", classify(err))
	}
	return n, nil
}

// TrackCount returns the number of tracks in a playlist
func (s *Store) TrackCount(playlistID string) (int, error) {
	return trackCount(s.db, playlistID)
}

// PlaylistTracks returns a playlist's tracks in order, each with its song
func (s *Store) PlaylistTracks(playlistID string) ([]*PlaylistTrack, error) {
	rows, err := s.db.Query(`
		SELECT pt.id, pt.playlist_id, pt.song_id, pt.position, pt.date_added,
		       s.id, s.title, COALESCE(s.artist_id, ''), COALESCE(s.album_id, ''), s.file_path,
		       s.file_size, s.file_modified, COALESCE(s.genre, ''), COALESCE(s.date, ''), s.duration,
		       COALESCE(s.image_id, ''), COALESCE(s.track_number, 0), s.favorite, s.lufs, s.pinned,
		       s.date_added, s.date_updated
		FROM playlist_tracks pt
		JOIN songs s ON s.id = pt.song_id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*PlaylistTrack
	for rows.Next() {
		t := &PlaylistTrack{Song: &Song{}}
		var lufs sql.NullFloat64
		err := rows.Scan(
			&t.ID, &t.PlaylistID, &t.SongID, &t.Position, &t.DateAdded,
			&t.Song.ID, &t.Song.Title, &t.Song.ArtistID, &t.Song.AlbumID, &t.Song.FilePath,
			&t.Song.FileSize, &t.Song.FileModified, &t.Song.Genre, &t.Song.Date, &t.Song.Duration,
			&t.Song.ImageID, &t.Song.TrackNumber, &t.Song.Favorite, &lufs, &t.Song.Pinned,
			&t.Song.DateAdded, &t.Song.DateUpdated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist track: %w", err)
		}
		if lufs.Valid {
			v := lufs.Float64
			t.Song.LUFS = &v
		}
		tracks = append(tracks, t)
	}

	return tracks, rows.Err()
}

// songPlaylists returns the ids of playlists containing a song
func songPlaylists(q querier, songID string) ([]string, error) {
	rows, err := q.Query(`SELECT DISTINCT playlist_id FROM playlist_tracks WHERE song_id = ?`, songID)
	if err != nil {
		return nil, fmt.Errorf("failed to query song playlists: %w", classify(err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan playlist id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

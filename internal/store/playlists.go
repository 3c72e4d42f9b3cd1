package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const playlistColumns = `id, name, COALESCE(description, ''), COALESCE(image_id, ''), pinned,
	date_created, date_updated`

func scanPlaylist(r rowScanner) (*Playlist, error) {
	p := &Playlist{}
	err := r.Scan(&p.ID, &p.Name, &p.Description, &p.ImageID, &p.Pinned, &p.DateCreated, &p.DateUpdated)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func validatePlaylist(p *Playlist) error {
	if strings.TrimSpace(p.Name) == "" {
		return constraintf("playlist name is required")
	}
	return nil
}

// CreatePlaylist inserts a new playlist. P.ID is assigned when empty.
func (s *Store) CreatePlaylist(p *Playlist) error {
	if err := validatePlaylist(p); err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}
	if p.ID == "" {
		p.ID = newID()
	}

	return s.Transaction(func(tx *sql.Tx) error {
		ts := now()
		_, err := tx.Exec(`
			INSERT INTO playlists (id, name, description, image_id, pinned, date_created, date_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, p.ID, p.Name, nullable(p.Description), nullable(p.ImageID), p.Pinned, ts, ts)
		if err != nil {
			return fmt.Errorf("failed to insert playlist: %w", classify(err))
		}
		p.DateCreated = ts
		p.DateUpdated = ts
		return nil
	})
}

// UpdatePlaylist rewrites a playlist's name, description, image and pinned
// flag. Replacing the image frees the old one if nothing else references it.
func (s *Store) UpdatePlaylist(p *Playlist) error {
	if err := validatePlaylist(p); err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	return s.Transaction(func(tx *sql.Tx) error {
		old, err := getPlaylist(tx, p.ID)
		if err != nil {
			return err
		}

		ts := now()
		_, err = tx.Exec(`
			UPDATE playlists SET name = ?, description = ?, image_id = ?, pinned = ?, date_updated = ?
			WHERE id = ?
		`, p.Name, nullable(p.Description), nullable(p.ImageID), p.Pinned, ts, p.ID)
		if err != nil {
			return fmt.Errorf("failed to update playlist: %w", classify(err))
		}
		p.DateCreated = old.DateCreated
		p.DateUpdated = ts

		return releaseImage(tx, old.ImageID, p.ImageID)
	})
}

// GetPlaylist retrieves a playlist by id
func (s *Store) GetPlaylist(id string) (*Playlist, error) {
	return getPlaylist(s.db, id)
}

func getPlaylist(q querier, id string) (*Playlist, error) {
	p, err := scanPlaylist(q.QueryRow(`SELECT `+playlistColumns+` FROM playlists WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", notFound(err, "playlist", id))
	}
	return p, nil
}

// ListPlaylists returns all playlists, pinned first, then by name
func (s *Store) ListPlaylists() ([]*Playlist, error) {
	rows, err := s.db.Query(`
		SELECT ` + playlistColumns + ` FROM playlists
		ORDER BY pinned DESC, name COLLATE NOCASE, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}

	return playlists, rows.Err()
}

// CountPlaylists returns the number of playlists
func (s *Store) CountPlaylists() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM playlists").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count playlists: %w", err)
	}
	return count, nil
}

func touchPlaylist(q querier, id string) error {
	if _, err := q.Exec(`UPDATE playlists SET date_updated = ? WHERE id = ?`, now(), id); err != nil {
		return fmt.Errorf("failed to touch playlist: %w", classify(err))
	}
	return nil
}

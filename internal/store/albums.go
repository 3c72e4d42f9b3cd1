package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const albumColumns = `id, title, COALESCE(artist_id, ''), COALESCE(image_id, ''), favorite, pinned`

func scanAlbum(r rowScanner) (*Album, error) {
	a := &Album{}
	if err := r.Scan(&a.ID, &a.Title, &a.ArtistID, &a.ImageID, &a.Favorite, &a.Pinned); err != nil {
		return nil, err
	}
	return a, nil
}

func validateAlbum(a *Album) error {
	if strings.TrimSpace(a.Title) == "" {
		return constraintf("album title is required")
	}
	return nil
}

// CreateAlbum inserts a new album. A.ID is assigned when empty.
func (s *Store) CreateAlbum(a *Album) error {
	if err := validateAlbum(a); err != nil {
		return fmt.Errorf("failed to insert album: %w", err)
	}
	if a.ID == "" {
		a.ID = newID()
	}

	return s.Transaction(func(tx *sql.Tx) error {
		return insertAlbum(tx, a)
	})
}

func insertAlbum(q querier, a *Album) error {
	_, err := q.Exec(`
		INSERT INTO albums (id, title, artist_id, image_id, favorite, pinned)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Title, nullable(a.ArtistID), nullable(a.ImageID), a.Favorite, a.Pinned)
	if err != nil {
		return fmt.Errorf("failed to insert album: %w", classify(err))
	}
	return nil
}

// UpdateAlbum rewrites an album's metadata. A previous artist or image left
// without references is removed.
func (s *Store) UpdateAlbum(a *Album) error {
	if err := validateAlbum(a); err != nil {
		return fmt.Errorf("failed to update album: %w", err)
	}

	return s.Transaction(func(tx *sql.Tx) error {
		old, err := getAlbum(tx, a.ID)
		if err != nil {
			return err
		}

		res, err := tx.Exec(`
			UPDATE albums SET title = ?, artist_id = ?, image_id = ?, favorite = ?, pinned = ?
			WHERE id = ?
		`, a.Title, nullable(a.ArtistID), nullable(a.ImageID), a.Favorite, a.Pinned, a.ID)
		if err != nil {
			return fmt.Errorf("failed to update album: %w", classify(err))
		}
		if err := rowsAffected(res, "album", a.ID); err != nil {
			return err
		}

		return releaseAlbum(tx, old, a)
	})
}

// GetAlbum retrieves an album by id
func (s *Store) GetAlbum(id string) (*Album, error) {
	return getAlbum(s.db, id)
}

func getAlbum(q querier, id string) (*Album, error) {
	a, err := scanAlbum(q.QueryRow(`SELECT `+albumColumns+` FROM albums WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get album: %w", notFound(err, "album", id))
	}
	return a, nil
}

// FindAlbum looks an album up by its unique (title, artist) pair; an empty
// artistID matches albums without an artist
func (s *Store) FindAlbum(title, artistID string) (*Album, error) {
	return findAlbum(s.db, title, artistID)
}

func findAlbum(q querier, title, artistID string) (*Album, error) {
	a, err := scanAlbum(q.QueryRow(`
		SELECT `+albumColumns+` FROM albums
		WHERE title = ? AND IFNULL(artist_id, '') = ?
	`, title, artistID))
	if err != nil {
		return nil, fmt.Errorf("failed to find album: %w", notFound(err, "album", title))
	}
	return a, nil
}

// UpsertAlbum returns the id of the album identified by (title, artistID),
// creating it if needed. A non-empty imageID replaces the stored cover.
func (s *Store) UpsertAlbum(title, artistID, imageID string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("failed to upsert album: %w", constraintf("album title is required"))
	}

	var id string
	err := s.Transaction(func(tx *sql.Tx) error {
		var err error
		id, err = upsertAlbum(tx, title, artistID, imageID)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func upsertAlbum(q querier, title, artistID, imageID string) (string, error) {
	existing, err := findAlbum(q, title, artistID)
	if err == nil {
		if imageID == "" || imageID == existing.ImageID {
			return existing.ID, nil
		}
		if _, err := q.Exec(`UPDATE albums SET image_id = ? WHERE id = ?`, imageID, existing.ID); err != nil {
			return "", fmt.Errorf("failed to update album cover: %w", classify(err))
		}
		return existing.ID, releaseImage(q, existing.ImageID, imageID)
	}
	if !isNotFound(err) {
		return "", err
	}

	id := newID()
	return id, insertAlbum(q, &Album{ID: id, Title: title, ArtistID: artistID, ImageID: imageID})
}

// ArtistAlbums returns the albums credited to an artist, ordered by title
func (s *Store) ArtistAlbums(artistID string) ([]*Album, error) {
	rows, err := s.db.Query(`
		SELECT `+albumColumns+` FROM albums
		WHERE artist_id = ?
		ORDER BY title, id
	`, artistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", err)
	}
	defer rows.Close()

	var albums []*Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan album: %w", err)
		}
		albums = append(albums, a)
	}

	return albums, rows.Err()
}

// CountAlbums returns the number of albums
func (s *Store) CountAlbums() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM albums").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count albums: %w", err)
	}
	return count, nil
}

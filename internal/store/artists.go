package store

import (
	"database/sql"
	"fmt"
	"strings"
)

const artistColumns = `id, name, COALESCE(image_id, ''), favorite, pinned`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArtist(r rowScanner) (*Artist, error) {
	a := &Artist{}
	if err := r.Scan(&a.ID, &a.Name, &a.ImageID, &a.Favorite, &a.Pinned); err != nil {
		return nil, err
	}
	return a, nil
}

func validateArtist(a *Artist) error {
	if strings.TrimSpace(a.Name) == "" {
		return constraintf("artist name is required")
	}
	return nil
}

// CreateArtist inserts a new artist. A.ID is assigned when empty.
func (s *Store) CreateArtist(a *Artist) error {
	if err := validateArtist(a); err != nil {
		return fmt.Errorf("failed to insert artist: %w", err)
	}
	if a.ID == "" {
		a.ID = newID()
	}

	return s.Transaction(func(tx *sql.Tx) error {
		return insertArtist(tx, a)
	})
}

func insertArtist(q querier, a *Artist) error {
	_, err := q.Exec(`
		INSERT INTO artists (id, name, image_id, favorite, pinned)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.Name, nullable(a.ImageID), a.Favorite, a.Pinned)
	if err != nil {
		return fmt.Errorf("failed to insert artist: %w", classify(err))
	}
	return nil
}

// UpdateArtist rewrites an artist's metadata. Replacing the image frees the
// old one if nothing else references it.
func (s *Store) UpdateArtist(a *Artist) error {
	if err := validateArtist(a); err != nil {
		return fmt.Errorf("failed to update artist: %w", err)
	}

	return s.Transaction(func(tx *sql.Tx) error {
		old, err := getArtist(tx, a.ID)
		if err != nil {
			return err
		}

		res, err := tx.Exec(`
			UPDATE artists SET name = ?, image_id = ?, favorite = ?, pinned = ?
			WHERE id = ?
		`, a.Name, nullable(a.ImageID), a.Favorite, a.Pinned, a.ID)
		if err != nil {
			return fmt.Errorf("failed to update artist: %w", classify(err))
		}
		if err := rowsAffected(res, "artist", a.ID); err != nil {
			return err
		}

		return releaseImage(tx, old.ImageID, a.ImageID)
	})
}

// GetArtist retrieves an artist by id
func (s *Store) GetArtist(id string) (*Artist, error) {
	return getArtist(s.db, id)
}

func getArtist(q querier, id string) (*Artist, error) {
	a, err := scanArtist(q.QueryRow(`SELECT `+artistColumns+` FROM artists WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get artist: %w", notFound(err, "artist", id))
	}
	return a, nil
}

// GetArtistByName retrieves an artist by its exact (case-sensitive) name
func (s *Store) GetArtistByName(name string) (*Artist, error) {
	a, err := scanArtist(s.db.QueryRow(`SELECT `+artistColumns+` FROM artists WHERE name = ?`, name))
	if err != nil {
		return nil, fmt.Errorf("failed to get artist: %w", notFound(err, "artist", name))
	}
	return a, nil
}

// UpsertArtist returns the id of the artist with the given name, creating
// it if needed
func (s *Store) UpsertArtist(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("failed to upsert artist: %w", constraintf("artist name is required"))
	}

	var id string
	err := s.Transaction(func(tx *sql.Tx) error {
		var err error
		id, err = upsertArtist(tx, name)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func upsertArtist(q querier, name string) (string, error) {
	var id string
	err := q.QueryRow(`SELECT id FROM artists WHERE name = ?`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up artist: %w", classify(err))
	}
	id = newID()
	return id, insertArtist(q, &Artist{ID: id, Name: name})
}

// CountArtists returns the number of artists
func (s *Store) CountArtists() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM artists").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count artists: %w", err)
	}
	return count, nil
}

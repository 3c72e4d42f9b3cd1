package store

import (
	"bytes"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// Images have no exported delete. They are removed only by the cascade
// coordinator once nothing references them (see cascade.go).

// ContentHash returns the hex SHA-256 of image data
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PutImage stores a blob under a new id. Identical bytes stored twice get
// two ids; use PutImageDedup to share rows.
func (s *Store) PutImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("failed to insert image: %w", constraintf("image data is empty"))
	}

	id := newID()
	err := s.Transaction(func(tx *sql.Tx) error {
		return insertImage(tx, id, data)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// PutImageDedup returns the id of an existing image with the same content,
// or stores data under a new id
func (s *Store) PutImageDedup(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("failed to insert image: %w", constraintf("image data is empty"))
	}

	var id string
	err := s.Transaction(func(tx *sql.Tx) error {
		var err error
		id, err = putImageDedup(tx, data)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func putImageDedup(q querier, data []byte) (string, error) {
	existing, err := findImageByContent(q, ContentHash(data), data)
	if err != nil {
		return "", err
	}
	if existing != "" {
		return existing, nil
	}
	id := newID()
	return id, insertImage(q, id, data)
}

func insertImage(q querier, id string, data []byte) error {
	ts := now()
	_, err := q.Exec(`
		INSERT INTO images (id, data, hash, date_created, date_updated)
		VALUES (?, ?, ?, ?, ?)
	`, id, data, ContentHash(data), ts, ts)
	if err != nil {
		return fmt.Errorf("failed to insert image: %w", classify(err))
	}
	return nil
}

// findImageByContent compares bytes as well as the hash so a collision can
// never alias two different pictures
func findImageByContent(q querier, hash string, data []byte) (string, error) {
	rows, err := q.Query(`SELECT id, data FROM images WHERE hash = ? ORDER BY date_created, id`, hash)
	if err != nil {
		return "", fmt.Errorf("failed to query images: %w", classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var stored []byte
		if err := rows.Scan(&id, &stored); err != nil {
			return "", fmt.Errorf("failed to scan image: %w", err)
		}
		if bytes.Equal(stored, data) {
			return id, nil
		}
	}
	return "", rows.Err()
}

// GetImage retrieves an image by id
func (s *Store) GetImage(id string) (*Image, error) {
	img := &Image{}
	err := s.db.QueryRow(`
		SELECT id, data, hash, date_created, date_updated
		FROM images WHERE id = ?
	`, id).Scan(&img.ID, &img.Data, &img.Hash, &img.DateCreated, &img.DateUpdated)
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", notFound(err, "image", id))
	}
	return img, nil
}

// ImageExists reports whether an image row is present
func (s *Store) ImageExists(id string) (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM images WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check image: %w", classify(err))
	}
	return n > 0, nil
}

// ImageRefCount returns how many artist, album, song and playlist rows
// reference an image
func (s *Store) ImageRefCount(id string) (int, error) {
	return imageRefCount(s.db, id)
}

func imageRefCount(q querier, id string) (int, error) {
	var n int
	err := q.QueryRow(`
		SELECT (SELECT COUNT(*) FROM artists WHERE image_id = ?1)
		     + (SELECT COUNT(*) FROM albums WHERE image_id = ?1)
		     + (SELECT COUNT(*) FROM songs WHERE image_id = ?1)
		     + (SELECT COUNT(*) FROM playlists WHERE image_id = ?1)
	`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count image references: %w", classify(err))
	}
	return n, nil
}

// deleteImageTx removes an image row. Only the cascade coordinator calls it,
// and only after imageRefCount returned zero in the same transaction.
func deleteImageTx(q querier, id string) error {
	if _, err := q.Exec(`DELETE FROM images WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete image %s: %w", id, classify(err))
	}
	return nil
}

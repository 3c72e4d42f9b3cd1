package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
)

// TrackImport is one audio file's tags and file facts as read by an importer
type TrackImport struct {
	Path        string
	Size        int64
	Modified    int64 // unix seconds
	Title       string
	Artist      string
	AlbumArtist string
	Album       string
	Genre       string
	Date        string
	TrackNumber int
	Duration    int // seconds
	Picture     []byte
}

// ImportTrack registers a file in one transaction: the artist and album are
// found or created by name, embedded artwork is stored once per distinct
// content, and the song is inserted or refreshed by file path. Reports
// whether the song is new.
func (s *Store) ImportTrack(in *TrackImport) (*Song, bool, error) {
	if in.Path == "" {
		return nil, false, fmt.Errorf("failed to import track: %w", constraintf("file path is required"))
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		base := filepath.Base(in.Path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	var song *Song
	var created bool
	err := s.Transaction(func(tx *sql.Tx) error {
		var err error
		song = &Song{
			Title:        title,
			FilePath:     in.Path,
			FileSize:     in.Size,
			FileModified: in.Modified,
			Genre:        strings.TrimSpace(in.Genre),
			Date:         strings.TrimSpace(in.Date),
			Duration:     in.Duration,
			TrackNumber:  in.TrackNumber,
		}
		created = false

		if len(in.Picture) > 0 {
			if song.ImageID, err = putImageDedup(tx, in.Picture); err != nil {
				return err
			}
		}

		if name := strings.TrimSpace(in.Artist); name != "" {
			if song.ArtistID, err = upsertArtist(tx, name); err != nil {
				return err
			}
		}

		if album := strings.TrimSpace(in.Album); album != "" {
			albumArtist := song.ArtistID
			if name := strings.TrimSpace(in.AlbumArtist); name != "" {
				if albumArtist, err = upsertArtist(tx, name); err != nil {
					return err
				}
			}
			if song.AlbumID, err = upsertAlbum(tx, album, albumArtist, song.ImageID); err != nil {
				return err
			}
		}

		if err := validateSong(song); err != nil {
			return fmt.Errorf("failed to import %s: %w", in.Path, err)
		}

		existing, err := scanSong(tx.QueryRow(`SELECT `+songColumns+` FROM songs WHERE file_path = ?`, in.Path))
		if err == sql.ErrNoRows {
			song.ID = newID()
			created = true
			return insertSong(tx, song)
		}
		if err != nil {
			return fmt.Errorf("failed to look up song: %w", classify(err))
		}

		song.ID = existing.ID
		song.Favorite = existing.Favorite
		song.Pinned = existing.Pinned
		song.LUFS = existing.LUFS
		song.DateAdded = existing.DateAdded
		if err := updateSong(tx, song); err != nil {
			return err
		}
		return releaseSong(tx, existing, song)
	})
	if err != nil {
		return nil, false, err
	}
	return song, created, nil
}

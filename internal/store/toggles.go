package store

import (
	"database/sql"
	"fmt"
)

// Kind names a catalog entity type
type Kind string

const (
	KindSong     Kind = "song"
	KindAlbum    Kind = "album"
	KindArtist   Kind = "artist"
	KindPlaylist Kind = "playlist"
)

// ParseKind accepts singular or plural entity names
func ParseKind(s string) (Kind, error) {
	switch s {
	case "song", "songs":
		return KindSong, nil
	case "album", "albums":
		return KindAlbum, nil
	case "artist", "artists":
		return KindArtist, nil
	case "playlist", "playlists":
		return KindPlaylist, nil
	}
	return "", fmt.Errorf("unknown kind %q (want song, album, artist or playlist)", s)
}

func (k Kind) table() string {
	return string(k) + "s"
}

// SetFavorite flags or unflags a song, album or artist. Playlists have no
// favorite flag.
func (s *Store) SetFavorite(kind Kind, id string, on bool) error {
	switch kind {
	case KindSong, KindAlbum, KindArtist:
	default:
		return fmt.Errorf("failed to set favorite: %w", constraintf(string(kind)+" cannot be a favorite"))
	}
	return s.setFlag(kind, "favorite", id, on)
}

// SetPinned pins or unpins any entity kind
func (s *Store) SetPinned(kind Kind, id string, on bool) error {
	switch kind {
	case KindSong, KindAlbum, KindArtist, KindPlaylist:
	default:
		return fmt.Errorf("failed to set pinned: %w", constraintf("unknown kind "+string(kind)))
	}
	return s.setFlag(kind, "pinned", id, on)
}

// setFlag only receives column and table names from the switch statements
// above, never user input
func (s *Store) setFlag(kind Kind, column, id string, on bool) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = ? WHERE id = ?`, kind.table(), column)
	args := []any{on, id}
	if kind == KindSong || kind == KindPlaylist {
		query = fmt.Sprintf(`UPDATE %s SET %s = ?, date_updated = ? WHERE id = ?`, kind.table(), column)
		args = []any{on, now(), id}
	}

	return s.Transaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(query, args...)
		if err != nil {
			return fmt.Errorf("failed to set %s: %w", column, classify(err))
		}
		return rowsAffected(res, string(kind), id)
	})
}

// Pinned groups the pinned entities of each kind
type Pinned struct {
	Songs     []*Song
	Albums    []*Album
	Artists   []*Artist
	Playlists []*Playlist
}

// PinnedItems returns every pinned song, album, artist and playlist
func (s *Store) PinnedItems() (*Pinned, error) {
	p := &Pinned{}

	rows, err := s.db.Query(`SELECT ` + songColumns + ` FROM songs WHERE pinned = 1 ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pinned songs: %w", err)
	}
	if p.Songs, err = scanSongs(rows); err != nil {
		return nil, err
	}

	if p.Albums, err = queryAlbums(s.db, `SELECT `+albumColumns+` FROM albums WHERE pinned = 1 ORDER BY title, id`); err != nil {
		return nil, err
	}
	if p.Artists, err = queryArtists(s.db, `SELECT `+artistColumns+` FROM artists WHERE pinned = 1 ORDER BY name, id`); err != nil {
		return nil, err
	}

	playlists, err := s.ListPlaylists()
	if err != nil {
		return nil, err
	}
	for _, pl := range playlists {
		if pl.Pinned {
			p.Playlists = append(p.Playlists, pl)
		}
	}

	return p, nil
}

package store

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"modernc.org/sqlite"
)

func init() {
	// fold(x) lets SQL compare text the same way Fold does in Go
	sqlite.MustRegisterDeterministicScalarFunction("fold", 1, func(ctx *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return Fold(v), nil
		case []byte:
			return Fold(string(v)), nil
		}
		return args[0], nil
	})
}

// Fold normalizes text for case-insensitive matching: NFC, Unicode case
// folding, trimmed, inner whitespace collapsed
func Fold(s string) string {
	s = norm.NFC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// likePattern builds a substring LIKE pattern (ESCAPE '\') from a filter
func likePattern(filter string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(Fold(filter)) + "%"
}

// SongSort selects the ordering of ListSongs
type SongSort string

const (
	SortTitle     SongSort = "title"
	SortArtist    SongSort = "artist"
	SortAlbum     SongSort = "album"
	SortDuration  SongSort = "duration"
	SortDateAdded SongSort = "date_added"
)

var songOrder = map[SongSort]string{
	SortTitle:     "fold(title)",
	SortArtist:    "fold((SELECT name FROM artists WHERE artists.id = songs.artist_id))",
	SortAlbum:     "fold((SELECT title FROM albums WHERE albums.id = songs.album_id))",
	SortDuration:  "duration",
	SortDateAdded: "date_added",
}

// ParseSongSort validates a sort key; empty means title
func ParseSongSort(s string) (SongSort, error) {
	if s == "" {
		return SortTitle, nil
	}
	if _, ok := songOrder[SongSort(s)]; !ok {
		return "", fmt.Errorf("unknown sort %q (want title, artist, album, duration or date_added)", s)
	}
	return SongSort(s), nil
}

// SongQuery filters and pages ListSongs. Filter matches title, artist name
// or album title as a case-insensitive substring. Limit 0 means no limit.
type SongQuery struct {
	Filter        string
	FavoritesOnly bool
	ArtistID      string
	AlbumID       string
	Sort          SongSort
	Desc          bool
	Limit         int
	Offset        int
}

func (q SongQuery) where() (string, []any) {
	var conds []string
	var args []any

	if strings.TrimSpace(q.Filter) != "" {
		p := likePattern(q.Filter)
		conds = append(conds, `(fold(title) LIKE ? ESCAPE '\'
			OR fold((SELECT name FROM artists WHERE artists.id = songs.artist_id)) LIKE ? ESCAPE '\'
			OR fold((SELECT title FROM albums WHERE albums.id = songs.album_id)) LIKE ? ESCAPE '\')`)
		args = append(args, p, p, p)
	}
	if q.FavoritesOnly {
		conds = append(conds, "favorite = 1")
	}
	if q.ArtistID != "" {
		conds = append(conds, "artist_id = ?")
		args = append(args, q.ArtistID)
	}
	if q.AlbumID != "" {
		conds = append(conds, "album_id = ?")
		args = append(args, q.AlbumID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func pageArgs(limit, offset int) []any {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	return []any{limit, offset}
}

// ListSongs returns one page of songs
func (s *Store) ListSongs(q SongQuery) ([]*Song, error) {
	order, ok := songOrder[q.Sort]
	if !ok {
		order = songOrder[SortTitle]
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}

	where, args := q.where()
	query := `SELECT ` + songColumns + ` FROM songs` + where +
		fmt.Sprintf(` ORDER BY %s %s, fold(title) %s, id %s LIMIT ? OFFSET ?`, order, dir, dir, dir)

	rows, err := s.db.Query(query, append(args, pageArgs(q.Limit, q.Offset)...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	return scanSongs(rows)
}

// CountSongs returns the number of songs matching q, ignoring paging
func (s *Store) CountSongs(q SongQuery) (int, error) {
	where, args := q.where()
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM songs`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return n, nil
}

// ListQuery filters and pages album and artist listings
type ListQuery struct {
	Filter        string
	FavoritesOnly bool
	Limit         int
	Offset        int
}

func (q ListQuery) where(column string) (string, []any) {
	var conds []string
	var args []any
	if strings.TrimSpace(q.Filter) != "" {
		conds = append(conds, "fold("+column+`) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(q.Filter))
	}
	if q.FavoritesOnly {
		conds = append(conds, "favorite = 1")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListAlbums returns one page of albums ordered by title
func (s *Store) ListAlbums(q ListQuery) ([]*Album, error) {
	where, args := q.where("title")
	return queryAlbums(s.db, `SELECT `+albumColumns+` FROM albums`+where+
		` ORDER BY fold(title), id LIMIT ? OFFSET ?`, append(args, pageArgs(q.Limit, q.Offset)...)...)
}

// ListArtists returns one page of artists ordered by name
func (s *Store) ListArtists(q ListQuery) ([]*Artist, error) {
	where, args := q.where("name")
	return queryArtists(s.db, `SELECT `+artistColumns+` FROM artists`+where+
		` ORDER BY fold(name), id LIMIT ? OFFSET ?`, append(args, pageArgs(q.Limit, q.Offset)...)...)
}

// SearchResults holds matches of each kind
type SearchResults struct {
	Songs     []*Song
	Albums    []*Album
	Artists   []*Artist
	Playlists []*Playlist
}

// SearchCounts holds per-kind match totals
type SearchCounts struct {
	Songs     int
	Albums    int
	Artists   int
	Playlists int
}

// Search matches query against song titles, album titles, artist names
// and playlist names. Limit caps each kind separately (0 = 20).
func (s *Store) Search(query string, limit int) (*SearchResults, error) {
	if limit <= 0 {
		limit = 20
	}
	res := &SearchResults{}
	if strings.TrimSpace(query) == "" {
		return res, nil
	}
	p := likePattern(query)

	rows, err := s.db.Query(`SELECT `+songColumns+` FROM songs
		WHERE fold(title) LIKE ? ESCAPE '\'
		ORDER BY fold(title), id LIMIT ?`, p, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search songs: %w", err)
	}
	if res.Songs, err = scanSongs(rows); err != nil {
		return nil, err
	}

	res.Albums, err = queryAlbums(s.db, `SELECT `+albumColumns+` FROM albums
		WHERE fold(title) LIKE ? ESCAPE '\'
		ORDER BY fold(title), id LIMIT ?`, p, limit)
	if err != nil {
		return nil, err
	}

	res.Artists, err = queryArtists(s.db, `SELECT `+artistColumns+` FROM artists
		WHERE fold(name) LIKE ? ESCAPE '\'
		ORDER BY fold(name), id LIMIT ?`, p, limit)
	if err != nil {
		return nil, err
	}

	prows, err := s.db.Query(`SELECT `+playlistColumns+` FROM playlists
		WHERE fold(name) LIKE ? ESCAPE '\'
		ORDER BY fold(name), id LIMIT ?`, p, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search playlists: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		pl, err := scanPlaylist(prows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		res.Playlists = append(res.Playlists, pl)
	}

	return res, prows.Err()
}

// SearchCounts returns how many rows of each kind match query
func (s *Store) SearchCounts(query string) (*SearchCounts, error) {
	c := &SearchCounts{}
	if strings.TrimSpace(query) == "" {
		return c, nil
	}
	p := likePattern(query)

	err := s.db.QueryRow(`
		SELECT (SELECT COUNT(*) FROM songs WHERE fold(title) LIKE ?1 ESCAPE '\'),
		       (SELECT COUNT(*) FROM albums WHERE fold(title) LIKE ?1 ESCAPE '\'),
		       (SELECT COUNT(*) FROM artists WHERE fold(name) LIKE ?1 ESCAPE '\'),
		       (SELECT COUNT(*) FROM playlists WHERE fold(name) LIKE ?1 ESCAPE '\')
	`, p).Scan(&c.Songs, &c.Albums, &c.Artists, &c.Playlists)
	if err != nil {
		return nil, fmt.Errorf("failed to count search results: %w", err)
	}
	return c, nil
}

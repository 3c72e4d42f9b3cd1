package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/franz/music-catalog/internal/util"
)

// CascadeResult lists every row removed by one delete chain or GC sweep
type CascadeResult struct {
	Songs     []string
	Albums    []string
	Artists   []string
	Playlists []string
	Images    []string

	// Playlists whose positions were renumbered after losing tracks
	Compacted []string
}

// Total returns the number of deleted rows
func (r *CascadeResult) Total() int {
	return len(r.Songs) + len(r.Albums) + len(r.Artists) + len(r.Playlists) + len(r.Images)
}

// Empty reports whether nothing was deleted or renumbered
func (r *CascadeResult) Empty() bool {
	return r.Total() == 0 && len(r.Compacted) == 0
}

func (r *CascadeResult) String() string {
	return fmt.Sprintf("%d songs, %d albums, %d artists, %d playlists, %d images",
		len(r.Songs), len(r.Albums), len(r.Artists), len(r.Playlists), len(r.Images))
}

// cascade carries one delete chain inside a transaction. Structural
// deletes run first; image ids touched along the way are only checked in
// finish, against the state left by the whole chain.
type cascade struct {
	q        querier
	res      *CascadeResult
	images   []string
	touched  map[string]bool
	playlist map[string]bool
}

func newCascade(q querier) *cascade {
	return &cascade{
		q:        q,
		res:      &CascadeResult{},
		touched:  make(map[string]bool),
		playlist: make(map[string]bool),
	}
}

func (c *cascade) touchImage(id string) {
	if id == "" || c.touched[id] {
		return
	}
	c.touched[id] = true
	c.images = append(c.images, id)
}

// deleteSong removes a song row. Its playlist rows, event contexts and
// events go with it through ON DELETE CASCADE; the playlists it was in are
// remembered for compaction.
func (c *cascade) deleteSong(song *Song) error {
	playlists, err := songPlaylists(c.q, song.ID)
	if err != nil {
		return err
	}
	for _, id := range playlists {
		c.playlist[id] = true
	}

	if _, err := c.q.Exec(`DELETE FROM songs WHERE id = ?`, song.ID); err != nil {
		return fmt.Errorf("failed to delete song %s: %w", song.ID, classify(err))
	}
	c.res.Songs = append(c.res.Songs, song.ID)
	c.touchImage(song.ImageID)
	return nil
}

func (c *cascade) deleteAlbum(a *Album) error {
	if _, err := c.q.Exec(`DELETE FROM albums WHERE id = ?`, a.ID); err != nil {
		return fmt.Errorf("failed to delete album %s: %w", a.ID, classify(err))
	}
	c.res.Albums = append(c.res.Albums, a.ID)
	c.touchImage(a.ImageID)
	return nil
}

func (c *cascade) deleteArtist(a *Artist) error {
	if _, err := c.q.Exec(`DELETE FROM artists WHERE id = ?`, a.ID); err != nil {
		return fmt.Errorf("failed to delete artist %s: %w", a.ID, classify(err))
	}
	c.res.Artists = append(c.res.Artists, a.ID)
	c.touchImage(a.ImageID)
	return nil
}

// albumIfEmpty deletes an album once no song belongs to it, then gives its
// artist the same treatment
func (c *cascade) albumIfEmpty(albumID string) error {
	if albumID == "" {
		return nil
	}

	var n int
	if err := c.q.QueryRow(`SELECT COUNT(*) FROM songs WHERE album_id = ?`, albumID).Scan(&n); err != nil {
		return fmt.Errorf("failed to count album songs: %w", classify(err))
	}
	if n > 0 {
		return nil
	}

	album, err := getAlbum(c.q, albumID)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := c.deleteAlbum(album); err != nil {
		return err
	}
	return c.artistIfEmpty(album.ArtistID)
}

// artistIfEmpty deletes an artist once no album and no song is credited to it
func (c *cascade) artistIfEmpty(artistID string) error {
	if artistID == "" {
		return nil
	}

	var n int
	err := c.q.QueryRow(`
		SELECT (SELECT COUNT(*) FROM albums WHERE artist_id = ?1)
		     + (SELECT COUNT(*) FROM songs WHERE artist_id = ?1)
	`, artistID).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to count artist references: %w", classify(err))
	}
	if n > 0 {
		return nil
	}

	artist, err := getArtist(c.q, artistID)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	return c.deleteArtist(artist)
}

// finish compacts the playlists that lost tracks and then deletes every
// touched image that nothing references any more
func (c *cascade) finish() error {
	ids := make([]string, 0, len(c.playlist))
	for id := range c.playlist {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		changed, err := compactPlaylist(c.q, id)
		if err != nil {
			return err
		}
		if changed > 0 {
			c.res.Compacted = append(c.res.Compacted, id)
		}
	}

	for _, id := range c.images {
		freed, err := sweepImage(c.q, id)
		if err != nil {
			return err
		}
		if freed {
			c.res.Images = append(c.res.Images, id)
		}
	}

	return nil
}

// sweepImage deletes an image if it is reference-free. Reports whether a
// row was removed.
func sweepImage(q querier, id string) (bool, error) {
	refs, err := imageRefCount(q, id)
	if err != nil {
		return false, err
	}
	if refs > 0 {
		return false, nil
	}

	var n int
	if err := q.QueryRow(`SELECT COUNT(*) FROM images WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check image: %w", classify(err))
	}
	if n == 0 {
		return false, nil
	}

	if err := deleteImageTx(q, id); err != nil {
		return false, err
	}
	return true, nil
}

// releaseImage frees oldID after an entity switched to newID
func releaseImage(q querier, oldID, newID string) error {
	if oldID == "" || oldID == newID {
		return nil
	}
	_, err := sweepImage(q, oldID)
	return err
}

// releaseSong runs the bottom-up chain for whatever a song update left
// behind: an album it moved out of, an artist it no longer credits, an
// image it replaced
func releaseSong(q querier, old, cur *Song) error {
	c := newCascade(q)
	if old.AlbumID != cur.AlbumID {
		if err := c.albumIfEmpty(old.AlbumID); err != nil {
			return err
		}
	}
	if old.ArtistID != cur.ArtistID {
		if err := c.artistIfEmpty(old.ArtistID); err != nil {
			return err
		}
	}
	if old.ImageID != cur.ImageID {
		c.touchImage(old.ImageID)
	}
	if err := c.finish(); err != nil {
		return err
	}
	logCascade("song update", cur.ID, c.res)
	return nil
}

// releaseAlbum is releaseSong for an album moved to another artist
func releaseAlbum(q querier, old, cur *Album) error {
	c := newCascade(q)
	if old.ArtistID != cur.ArtistID {
		if err := c.artistIfEmpty(old.ArtistID); err != nil {
			return err
		}
	}
	if old.ImageID != cur.ImageID {
		c.touchImage(old.ImageID)
	}
	if err := c.finish(); err != nil {
		return err
	}
	logCascade("album update", cur.ID, c.res)
	return nil
}

// DeleteSong removes a song, then its album if that was the album's last
// song, then the album's artist if that was the artist's last album, then
// every image the chain left unreferenced. Playlists that contained the
// song are compacted. An artist is only removed once no album and no
// song credits it, so a song-only artist goes with its last song.
func (s *Store) DeleteSong(id string) (*CascadeResult, error) {
	var res *CascadeResult
	err := s.Transaction(func(tx *sql.Tx) error {
		song, err := getSong(tx, id)
		if err != nil {
			return err
		}
		res, err = deleteSongChain(tx, song)
		return err
	})
	if err != nil {
		return nil, err
	}
	logCascade("song", id, res)
	return res, nil
}

// DeleteSongByPath is DeleteSong keyed by file path
func (s *Store) DeleteSongByPath(filePath string) (*CascadeResult, error) {
	var res *CascadeResult
	err := s.Transaction(func(tx *sql.Tx) error {
		song, err := scanSong(tx.QueryRow(`SELECT `+songColumns+` FROM songs WHERE file_path = ?`, filePath))
		if err != nil {
			return fmt.Errorf("failed to get song: %w", notFound(err, "song", filePath))
		}
		res, err = deleteSongChain(tx, song)
		return err
	})
	if err != nil {
		return nil, err
	}
	logCascade("song", filePath, res)
	return res, nil
}

func deleteSongChain(q querier, song *Song) (*CascadeResult, error) {
	c := newCascade(q)
	if err := c.deleteSong(song); err != nil {
		return nil, err
	}
	if err := c.albumIfEmpty(song.AlbumID); err != nil {
		return nil, err
	}
	if err := c.artistIfEmpty(song.ArtistID); err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c.res, nil
}

// DeleteAlbum removes an album with all of its songs, then its artist if
// the artist has nothing else, then unreferenced images
func (s *Store) DeleteAlbum(id string) (*CascadeResult, error) {
	var res *CascadeResult
	err := s.Transaction(func(tx *sql.Tx) error {
		album, err := getAlbum(tx, id)
		if err != nil {
			return err
		}

		c := newCascade(tx)
		credited, err := c.deleteAlbumSongs(album.ID)
		if err != nil {
			return err
		}
		if err := c.deleteAlbum(album); err != nil {
			return err
		}

		credited = append(credited, album.ArtistID)
		for _, artistID := range credited {
			if err := c.artistIfEmpty(artistID); err != nil {
				return err
			}
		}

		if err := c.finish(); err != nil {
			return err
		}
		res = c.res
		return nil
	})
	if err != nil {
		return nil, err
	}
	logCascade("album", id, res)
	return res, nil
}

// DeleteArtist removes an artist together with all of its albums and their
// songs. Songs on other albums that credit the artist lose the credit
// (artist_id becomes NULL). Featured artists left with nothing are
// removed, then unreferenced images.
func (s *Store) DeleteArtist(id string) (*CascadeResult, error) {
	var res *CascadeResult
	err := s.Transaction(func(tx *sql.Tx) error {
		artist, err := getArtist(tx, id)
		if err != nil {
			return err
		}

		albums, err := queryAlbums(tx, `SELECT `+albumColumns+` FROM albums WHERE artist_id = ? ORDER BY id`, id)
		if err != nil {
			return err
		}

		c := newCascade(tx)
		var credited []string
		for _, album := range albums {
			ids, err := c.deleteAlbumSongs(album.ID)
			if err != nil {
				return err
			}
			credited = append(credited, ids...)
			if err := c.deleteAlbum(album); err != nil {
				return err
			}
		}

		if err := c.deleteArtist(artist); err != nil {
			return err
		}

		for _, artistID := range credited {
			if artistID == id {
				continue
			}
			if err := c.artistIfEmpty(artistID); err != nil {
				return err
			}
		}

		if err := c.finish(); err != nil {
			return err
		}
		res = c.res
		return nil
	})
	if err != nil {
		return nil, err
	}
	logCascade("artist", id, res)
	return res, nil
}

// deleteAlbumSongs deletes every song of an album and returns the artist
// ids those songs were credited to
func (c *cascade) deleteAlbumSongs(albumID string) ([]string, error) {
	rows, err := c.q.Query(`SELECT `+songColumns+` FROM songs WHERE album_id = ? ORDER BY id`, albumID)
	if err != nil {
		return nil, fmt.Errorf("failed to query album songs: %w", classify(err))
	}
	songs, err := scanSongs(rows)
	if err != nil {
		return nil, err
	}

	var credited []string
	for _, song := range songs {
		if err := c.deleteSong(song); err != nil {
			return nil, err
		}
		if song.ArtistID != "" {
			credited = append(credited, song.ArtistID)
		}
	}
	return credited, nil
}

// DeletePlaylist removes a playlist. Its tracks, event contexts and events
// cascade in storage; the songs stay. The playlist image is freed if
// nothing else uses it.
func (s *Store) DeletePlaylist(id string) (*CascadeResult, error) {
	var res *CascadeResult
	err := s.Transaction(func(tx *sql.Tx) error {
		p, err := getPlaylist(tx, id)
		if err != nil {
			return err
		}

		c := newCascade(tx)
		if _, err := tx.Exec(`DELETE FROM playlists WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete playlist %s: %w", id, classify(err))
		}
		c.res.Playlists = append(c.res.Playlists, id)
		c.touchImage(p.ImageID)

		if err := c.finish(); err != nil {
			return err
		}
		res = c.res
		return nil
	})
	if err != nil {
		return nil, err
	}
	logCascade("playlist", id, res)
	return res, nil
}

// CollectGarbage sweeps the whole catalog to a fixed point: albums with no
// songs, artists with no albums and no songs, images nothing references.
// Playlists with position gaps are compacted. On an orphan-free catalog it
// deletes nothing.
func (s *Store) CollectGarbage() (*CascadeResult, error) {
	var res *CascadeResult
	err := s.Transaction(func(tx *sql.Tx) error {
		var err error
		res, err = collectGarbage(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !res.Empty() {
		util.InfoLog("Garbage collection removed %s", res)
	}
	return res, nil
}

var errDryRun = errors.New("dry run")

// FindOrphans reports what CollectGarbage would remove without removing it.
// The sweep runs in a transaction that is always rolled back.
func (s *Store) FindOrphans() (*CascadeResult, error) {
	var res *CascadeResult
	err := s.Transaction(func(tx *sql.Tx) error {
		var err error
		res, err = collectGarbage(tx)
		if err != nil {
			return err
		}
		return errDryRun
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, err
	}
	return res, nil
}

func collectGarbage(q querier) (*CascadeResult, error) {
	c := newCascade(q)

	for {
		albums, err := queryAlbums(q, `
			SELECT `+albumColumns+` FROM albums
			WHERE NOT EXISTS (SELECT 1 FROM songs WHERE songs.album_id = albums.id)
			ORDER BY id
		`)
		if err != nil {
			return nil, err
		}
		for _, a := range albums {
			if err := c.deleteAlbum(a); err != nil {
				return nil, err
			}
		}

		artists, err := queryArtists(q, `
			SELECT `+artistColumns+` FROM artists
			WHERE NOT EXISTS (SELECT 1 FROM albums WHERE albums.artist_id = artists.id)
			  AND NOT EXISTS (SELECT 1 FROM songs WHERE songs.artist_id = artists.id)
			ORDER BY id
		`)
		if err != nil {
			return nil, err
		}
		for _, a := range artists {
			if err := c.deleteArtist(a); err != nil {
				return nil, err
			}
		}

		if len(albums) == 0 && len(artists) == 0 {
			break
		}
	}

	gappy, err := gappyPlaylists(q)
	if err != nil {
		return nil, err
	}
	for _, id := range gappy {
		c.playlist[id] = true
	}

	rows, err := q.Query(`
		SELECT id FROM images
		WHERE NOT EXISTS (SELECT 1 FROM artists WHERE artists.image_id = images.id)
		  AND NOT EXISTS (SELECT 1 FROM albums WHERE albums.image_id = images.id)
		  AND NOT EXISTS (SELECT 1 FROM songs WHERE songs.image_id = images.id)
		  AND NOT EXISTS (SELECT 1 FROM playlists WHERE playlists.image_id = images.id)
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unreferenced images: %w", classify(err))
	}
	var free []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan image id: %w", err)
		}
		free = append(free, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range free {
		c.touchImage(id)
	}

	if err := c.finish(); err != nil {
		return nil, err
	}
	return c.res, nil
}

// gappyPlaylists returns playlists whose positions are not exactly 0..N-1
func gappyPlaylists(q querier) ([]string, error) {
	rows, err := q.Query(`
		SELECT playlist_id FROM playlist_tracks
		GROUP BY playlist_id
		HAVING MIN(position) != 0 OR MAX(position) != COUNT(*) - 1
		ORDER BY playlist_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to check playlist positions: %w", classify(err))
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

// GappyPlaylists returns the ids of playlists whose positions have gaps
func (s *Store) GappyPlaylists() ([]string, error) {
	return gappyPlaylists(s.db)
}

func queryAlbums(q querier, query string, args ...any) ([]*Album, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query albums: %w", classify(err))
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

func queryArtists(q querier, query string, args ...any) ([]*Artist, error) {
	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query artists: %w", classify(err))
	}
	defer rows.Close()

	var artists []*Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artist: %w", err)
		}
		artists = append(artists, a)
	}
	return artists, rows.Err()
}

func logCascade(kind, id string, res *CascadeResult) {
	if res == nil || res.Empty() {
		return
	}
	util.DebugLog("Delete %s %s removed %s (compacted %d playlists)", kind, id, res, len(res.Compacted))
}

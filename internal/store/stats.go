package store

import "fmt"

// Stats summarizes catalog contents
type Stats struct {
	Songs         int
	Albums        int
	Artists       int
	Playlists     int
	Tracks        int
	Images        int
	ImageBytes    int64
	EventContexts int
	Events        int
	FileBytes     int64
	Duration      int64 // seconds
}

// Stats returns row counts and byte totals in one read
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{}
	err := s.db.QueryRow(`
		SELECT (SELECT COUNT(*) FROM songs),
		       (SELECT COUNT(*) FROM albums),
		       (SELECT COUNT(*) FROM artists),
		       (SELECT COUNT(*) FROM playlists),
		       (SELECT COUNT(*) FROM playlist_tracks),
		       (SELECT COUNT(*) FROM images),
		       (SELECT COALESCE(SUM(LENGTH(data)), 0) FROM images),
		       (SELECT COUNT(*) FROM event_contexts),
		       (SELECT COUNT(*) FROM events),
		       (SELECT COALESCE(SUM(file_size), 0) FROM songs),
		       (SELECT COALESCE(SUM(duration), 0) FROM songs)
	`).Scan(&st.Songs, &st.Albums, &st.Artists, &st.Playlists, &st.Tracks,
		&st.Images, &st.ImageBytes, &st.EventContexts, &st.Events, &st.FileBytes, &st.Duration)
	if err != nil {
		return nil, fmt.Errorf("failed to read stats: %w", err)
	}
	return st, nil
}

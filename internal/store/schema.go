package store

// Schema v1 - catalog tables
// image_id columns carry no ON DELETE action: an image row can only be
// removed once nothing points at it, and the cascade coordinator is the
// only code path that deletes images.
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Shared binary artwork
CREATE TABLE IF NOT EXISTS images (
  id TEXT PRIMARY KEY NOT NULL,
  data BLOB NOT NULL,
  hash TEXT NOT NULL,
  date_created DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  date_updated DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS artists (
  id TEXT PRIMARY KEY NOT NULL,
  name TEXT NOT NULL UNIQUE,
  image_id TEXT REFERENCES images(id),
  favorite INTEGER NOT NULL DEFAULT 0,
  pinned INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS albums (
  id TEXT PRIMARY KEY NOT NULL,
  title TEXT NOT NULL,
  artist_id TEXT REFERENCES artists(id) ON DELETE SET NULL,
  image_id TEXT REFERENCES images(id),
  favorite INTEGER NOT NULL DEFAULT 0,
  pinned INTEGER NOT NULL DEFAULT 0
);

-- NULL artist_id would make a plain UNIQUE(title, artist_id) ineffective
CREATE UNIQUE INDEX IF NOT EXISTS idx_albums_title_artist
  ON albums(title, IFNULL(artist_id, ''));

CREATE TABLE IF NOT EXISTS songs (
  id TEXT PRIMARY KEY NOT NULL,
  title TEXT NOT NULL,
  artist_id TEXT REFERENCES artists(id) ON DELETE SET NULL,
  album_id TEXT REFERENCES albums(id) ON DELETE SET NULL,
  file_path TEXT NOT NULL UNIQUE,
  file_size INTEGER NOT NULL DEFAULT 0,
  file_modified INTEGER NOT NULL DEFAULT 0,
  genre TEXT,
  date TEXT,
  duration INTEGER NOT NULL,
  image_id TEXT REFERENCES images(id),
  track_number INTEGER,
  favorite INTEGER NOT NULL DEFAULT 0,
  lufs REAL,
  pinned INTEGER NOT NULL DEFAULT 0,
  date_added DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  date_updated DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS playlists (
  id TEXT PRIMARY KEY NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  image_id TEXT REFERENCES images(id),
  pinned INTEGER NOT NULL DEFAULT 0,
  date_created DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  date_updated DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS playlist_tracks (
  id TEXT PRIMARY KEY NOT NULL,
  playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
  song_id TEXT NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
  position INTEGER NOT NULL CHECK (position >= 0),
  date_added DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (playlist_id, song_id),
  UNIQUE (playlist_id, position)
);

-- Playback history
CREATE TABLE IF NOT EXISTS event_contexts (
  id TEXT PRIMARY KEY NOT NULL,
  song_id TEXT REFERENCES songs(id) ON DELETE CASCADE,
  playlist_id TEXT REFERENCES playlists(id) ON DELETE CASCADE,
  date_created DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS events (
  id TEXT PRIMARY KEY NOT NULL,
  event_type TEXT NOT NULL CHECK (event_type IN ('PLAY', 'STOP', 'PAUSE', 'RESUME')),
  context_id TEXT REFERENCES event_contexts(id) ON DELETE CASCADE,
  date_created DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Schema v2 - foreign key and listing indexes
// Every FK column is indexed: the cascade coordinator probes them on each
// delete, and SQLite scans the child table for ON DELETE actions otherwise.
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_images_hash ON images(hash);

CREATE INDEX IF NOT EXISTS idx_artists_image_id ON artists(image_id);
CREATE INDEX IF NOT EXISTS idx_artists_favorite ON artists(favorite);

CREATE INDEX IF NOT EXISTS idx_albums_artist_id ON albums(artist_id);
CREATE INDEX IF NOT EXISTS idx_albums_image_id ON albums(image_id);
CREATE INDEX IF NOT EXISTS idx_albums_favorite ON albums(favorite);

CREATE INDEX IF NOT EXISTS idx_songs_artist_id ON songs(artist_id);
CREATE INDEX IF NOT EXISTS idx_songs_album_id ON songs(album_id);
CREATE INDEX IF NOT EXISTS idx_songs_image_id ON songs(image_id);
CREATE INDEX IF NOT EXISTS idx_songs_favorite ON songs(favorite);
CREATE INDEX IF NOT EXISTS idx_songs_date_added ON songs(date_added);

CREATE INDEX IF NOT EXISTS idx_playlists_image_id ON playlists(image_id);

CREATE INDEX IF NOT EXISTS idx_playlist_tracks_song_id ON playlist_tracks(song_id);

CREATE INDEX IF NOT EXISTS idx_event_contexts_song_id ON event_contexts(song_id);
CREATE INDEX IF NOT EXISTS idx_event_contexts_playlist_id ON event_contexts(playlist_id);

CREATE INDEX IF NOT EXISTS idx_events_context_id ON events(context_id);
CREATE INDEX IF NOT EXISTS idx_events_type ON events(event_type);
`

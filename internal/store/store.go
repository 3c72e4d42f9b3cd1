package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/franz/music-catalog/internal/util"
	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	currentSchemaVersion = 2
)

// Store represents the catalog's persistent state
type Store struct {
	db    *sql.DB
	retry *util.RetryConfig
}

// OpenOptions holds options for opening a database
type OpenOptions struct {
	NetworkOptimized bool              // Apply network-optimized pragmas
	Retry            *util.RetryConfig // Retry policy for aborted transactions (nil = default)
	BusyTimeout      time.Duration     // How long a writer waits on a held lock (0 = 5s)
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Open opens or creates a SQLite database at the given path with default options
func Open(path string) (*Store, error) {
	return OpenWithOptions(path, nil)
}

// OpenWithOptions opens or creates a SQLite database with custom options
func OpenWithOptions(path string, opts *OpenOptions) (*Store, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	// _txlock=immediate takes the write lock at BEGIN, which serializes
	// writers touching the same artist/album tree.
	busyTimeout := opts.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	params := url.Values{}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	params.Add("_pragma", "foreign_keys(1)")
	params.Set("_txlock", "immediate")
	params.Set("_time_format", "sqlite")
	dsn := fmt.Sprintf("file:%s?%s", path, params.Encode())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with a single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	retry := util.DefaultRetryConfig()
	if opts.Retry != nil {
		r := *opts.Retry
		retry = &r
	}
	if retry.Retryable == nil {
		retry.Retryable = IsAborted
	}

	store := &Store{db: db, retry: retry}

	// Apply network-optimized pragmas if requested
	if opts.NetworkOptimized {
		if err := store.applyNetworkPragmas(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply network pragmas: %w", err)
		}
	}

	// Run migrations
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// applyNetworkPragmas applies SQLite optimizations for a database file that
// lives on a network filesystem
func (s *Store) applyNetworkPragmas() error {
	pragmas := []string{
		// NORMAL is safe with WAL mode
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		// Negative value = KB (~64 MB)
		"PRAGMA cache_size = -64000",
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for custom queries
func (s *Store) DB() *sql.DB {
	return s.db
}

// SQLiteVersion returns the SQLite version string
func SQLiteVersion() string {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return ""
	}
	defer db.Close()

	var version string
	err = db.QueryRow("SELECT sqlite_version()").Scan(&version)
	if err != nil {
		return ""
	}
	return version
}

// CheckIntegrity runs PRAGMA integrity_check on the database
func (s *Store) CheckIntegrity() error {
	var result string
	err := s.db.QueryRow("PRAGMA integrity_check").Scan(&result)
	if err != nil {
		return fmt.Errorf("integrity check query failed: %w", err)
	}

	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}

	return nil
}

// ForeignKeyViolation is one row reported by PRAGMA foreign_key_check
type ForeignKeyViolation struct {
	Table  string
	RowID  int64
	Parent string
}

// CheckForeignKeys runs PRAGMA foreign_key_check and returns every dangling reference
func (s *Store) CheckForeignKeys() ([]ForeignKeyViolation, error) {
	rows, err := s.db.Query("PRAGMA foreign_key_check")
	if err != nil {
		return nil, fmt.Errorf("foreign key check failed: %w", err)
	}
	defer rows.Close()

	var violations []ForeignKeyViolation
	for rows.Next() {
		var v ForeignKeyViolation
		var rowID sql.NullInt64
		var fkid int
		if err := rows.Scan(&v.Table, &rowID, &v.Parent, &fkid); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key violation: %w", err)
		}
		v.RowID = rowID.Int64
		violations = append(violations, v)
	}

	return violations, rows.Err()
}

// migrate applies database migrations
func (s *Store) migrate() error {
	version, err := s.getSchemaVersion()
	if err != nil {
		return err
	}

	if version >= currentSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Apply schema v1
	if version < 1 {
		if _, err := tx.Exec(schemaV1); err != nil {
			return fmt.Errorf("failed to apply schema v1: %w", err)
		}
		if err := s.setSchemaVersion(tx, 1); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	// Apply schema v2 - FK and listing indexes
	if version < 2 {
		if _, err := tx.Exec(schemaV2); err != nil {
			return fmt.Errorf("failed to apply schema v2: %w", err)
		}
		if err := s.setSchemaVersion(tx, 2); err != nil {
			return fmt.Errorf("failed to set schema version: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}

// getSchemaVersion returns the current schema version
func (s *Store) getSchemaVersion() (int, error) {
	var exists int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&exists)
	if err != nil {
		return 0, err
	}

	if exists == 0 {
		return 0, nil
	}

	var version int
	err = s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion records a schema version in a transaction
func (s *Store) setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// Transaction executes a function within a transaction. Transactions
// aborted by a concurrent writer are retried with backoff, so fn must not
// carry state across calls.
func (s *Store) Transaction(fn func(*sql.Tx) error) error {
	return util.Retry(s.retry, func() error {
		return s.transaction(fn)
	}, "transaction")
}

func (s *Store) transaction(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classify(err))
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}

	return nil
}

// newID returns a fresh row identifier
func newID() string {
	return uuid.NewString()
}

// now returns the timestamp written to date columns; UTC keeps the stored
// text sortable
func now() time.Time {
	return time.Now().UTC()
}

// nullable maps the empty string to SQL NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableInt maps zero to SQL NULL
func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

// rowsAffected reports ErrNotFound when a statement keyed by id touched nothing
func rowsAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

// notFound converts sql.ErrNoRows into ErrNotFound
func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return classify(err)
}

// Image is a stored binary artwork blob
type Image struct {
	ID          string
	Data        []byte
	Hash        string
	DateCreated time.Time
	DateUpdated time.Time
}

// Artist is a performer; Name is unique across the catalog
type Artist struct {
	ID       string
	Name     string
	ImageID  string
	Favorite bool
	Pinned   bool
}

// Album groups songs; (Title, ArtistID) is unique
type Album struct {
	ID       string
	Title    string
	ArtistID string
	ImageID  string
	Favorite bool
	Pinned   bool
}

// Song is one audio file in the library
type Song struct {
	ID           string
	Title        string
	ArtistID     string
	AlbumID      string
	FilePath     string
	FileSize     int64
	FileModified int64
	Genre        string
	Date         string
	Duration     int // seconds
	ImageID      string
	TrackNumber  int
	Favorite     bool
	LUFS         *float64
	Pinned       bool
	DateAdded    time.Time
	DateUpdated  time.Time
}

// Playlist is a user-curated ordered list of songs
type Playlist struct {
	ID          string
	Name        string
	Description string
	ImageID     string
	Pinned      bool
	DateCreated time.Time
	DateUpdated time.Time
}

// PlaylistTrack is a song's membership in a playlist. Positions are
// zero-based and dense within a playlist.
type PlaylistTrack struct {
	ID         string
	PlaylistID string
	SongID     string
	Position   int
	DateAdded  time.Time
	Song       *Song
}

// EventType enumerates playback events
type EventType string

const (
	EventPlay   EventType = "PLAY"
	EventStop   EventType = "STOP"
	EventPause  EventType = "PAUSE"
	EventResume EventType = "RESUME"
)

// EventContext ties playback events to the song and/or playlist being played
type EventContext struct {
	ID          string
	SongID      string
	PlaylistID  string
	DateCreated time.Time
}

// Event is one append-only playback history record
type Event struct {
	ID          string
	Type        EventType
	ContextID   string
	DateCreated time.Time
	Timestamp   time.Time
}

package mediastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"media-picker/internal/filesystem"
	"media-picker/internal/logging"
	"media-picker/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// FileName is the name of the index file inside DATABASE_DIR.
const FileName = "media.db"

// Store is the sqlite-backed media repository.
type Store struct {
	db      *sqlx.DB
	dbPath  string
	mu      sync.RWMutex
	txStart time.Time
	retry   filesystem.RetryConfig
	frames  FrameSource
}

// Option configures a Store.
type Option func(*Store)

// WithRetryConfig overrides the NFS retry settings used by Open.
func WithRetryConfig(cfg filesystem.RetryConfig) Option {
	return func(s *Store) { s.retry = cfg }
}

// WithFrameSource enables native video thumbnails.
func WithFrameSource(fs FrameSource) Option {
	return func(s *Store) { s.frames = fs }
}

// New opens (or creates) the index at dbPath. The parent directory must
// already exist and be writable.
func New(ctx context.Context, dbPath string, opts ...Option) (*Store, error) {
	logging.Info("Media index path: %s", dbPath)

	if err := checkWritable(filepath.Dir(dbPath)); err != nil {
		logging.Warn("Media index permission diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors during indexing
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sqlx.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open media index: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close media index after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to media index: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:     db,
		dbPath: dbPath,
		retry:  filesystem.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close media index after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize media index schema: %w", err)
	}

	logging.Info("Media index initialized at %s", dbPath)
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS media (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	path TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	size INTEGER NOT NULL DEFAULT 0,
	mime_type TEXT NOT NULL DEFAULT '',
	date_taken INTEGER NOT NULL DEFAULT 0,
	date_added INTEGER NOT NULL DEFAULT 0,
	date_modified INTEGER NOT NULL DEFAULT 0,
	seen_at INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_media_collection ON media(collection);
CREATE INDEX IF NOT EXISTS idx_media_seen_at ON media(seen_at);

CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	value TEXT
);
`

func (s *Store) initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	return s.runMigrations(ctx)
}

// runMigrations applies schema changes to indexes created by older builds.
func (s *Store) runMigrations(ctx context.Context) error {
	// Migration 1: pending rows
	var pendingExists bool
	err := s.db.GetContext(ctx, &pendingExists, `
		SELECT COUNT(*) > 0
		FROM pragma_table_info('media')
		WHERE name='is_pending'
	`)
	if err != nil {
		return fmt.Errorf("failed to check for is_pending column: %w", err)
	}

	if !pendingExists {
		logging.Info("Migrating media index: adding is_pending column")
		if _, err := s.db.ExecContext(ctx, `
			ALTER TABLE media ADD COLUMN is_pending INTEGER NOT NULL DEFAULT 0
		`); err != nil {
			return fmt.Errorf("failed to add is_pending column: %w", err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the index file path.
func (s *Store) Path() string {
	return s.dbPath
}

// BeginBatch starts a transaction for indexing writes. The caller must
// finish it with EndBatch.
func (s *Store) BeginBatch() (*sqlx.Tx, error) {
	s.mu.Lock()
	txStart := time.Now()
	// Transaction lifetime is owned by EndBatch, not a timeout context.
	tx, err := s.db.BeginTxx(context.Background(), nil)
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	s.txStart = txStart
	return tx, nil
}

// EndBatch commits tx, or rolls it back when err is non-nil.
func (s *Store) EndBatch(tx *sqlx.Tx, err error) error {
	duration := time.Since(s.txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	return tx.Commit()
}

// GetMetadata retrieves a metadata value by key. It returns sql.ErrNoRows
// when the key does not exist.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	if err := s.db.GetContext(ctx, &value, "SELECT value FROM metadata WHERE key = ?", key); err != nil {
		return "", err
	}
	return value.String, nil
}

// SetMetadata sets a metadata key-value pair.
func (s *Store) SetMetadata(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// LastIndexRun returns when the indexer last completed, or the zero time.
func (s *Store) LastIndexRun(ctx context.Context) (time.Time, error) {
	value, err := s.GetMetadata(ctx, "last_index_run")
	if errors.Is(err, sql.ErrNoRows) || (err == nil && value == "") {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastIndexRun records when the indexer last completed.
func (s *Store) SetLastIndexRun(ctx context.Context, t time.Time) error {
	return s.SetMetadata(ctx, "last_index_run", t.UTC().Format(time.RFC3339))
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func checkWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat media index directory: %w", err)
	}
	logging.Debug("Media index directory: %s (mode: %v)", dir, info.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("media index directory not writable: %w", err)
	}
	_ = os.Remove(testFile)
	return nil
}

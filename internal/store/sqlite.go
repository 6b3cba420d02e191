package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"weathercache/internal/metrics"
	"weathercache/internal/models"
)

const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// SQLiteStore keeps records in a local file. Writes go through a single
// connection; reads use their own pool.
type SQLiteStore struct {
	readDB  *sql.DB
	writeDB *sql.DB

	closeOnce sync.Once
	closeErr  error
}

func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, &models.ConfigurationError{Setting: "storage.sqlite_path", Err: errors.New("cannot be empty")}
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, &models.StorageError{Op: "open", Err: fmt.Errorf("creating cache dir: %w", err)}
	}

	dsn := "file:" + dbPath + "?" + sqlitePragmas

	writeDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &models.StorageError{Op: "open", Err: fmt.Errorf("opening write db: %w", err)}
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		writeDB.Close()
		return nil, &models.StorageError{Op: "open", Err: fmt.Errorf("opening read db: %w", err)}
	}
	readDB.SetMaxOpenConns(4)

	s := &SQLiteStore{readDB: readDB, writeDB: writeDB}
	if err := s.init(ctx); err != nil {
		s.Close()
		return nil, &models.StorageError{Op: "open", Err: err}
	}

	log.Printf("SQLite store ready at %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) init(ctx context.Context) error {
	_, err := s.writeDB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS day_summaries (
			cache_key  TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*models.DailyRecord, bool, error) {
	start := time.Now()

	var value string
	err := s.readDB.QueryRowContext(ctx, `SELECT value FROM day_summaries WHERE cache_key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		observe("get", "sqlite", key, start, nil)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, observe("get", "sqlite", key, start, err)
	}

	record, err := decodeRecord(key, []byte(value))
	if err != nil {
		return nil, false, observe("get", "sqlite", key, start, err)
	}
	observe("get", "sqlite", key, start, nil)
	return record, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, record *models.DailyRecord) error {
	start := time.Now()

	data, err := encodeRecord(key, record)
	if err != nil {
		return observe("put", "sqlite", key, start, err)
	}

	_, err = s.writeDB.ExecContext(ctx, `
		INSERT INTO day_summaries (cache_key, value, created_at) VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET value = excluded.value`,
		key, string(data), time.Now().UTC())
	s.recordPoolStats()
	return observe("put", "sqlite", key, start, err)
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()

	res, err := s.writeDB.ExecContext(ctx, `DELETE FROM day_summaries WHERE cache_key = ?`, key)
	if err != nil {
		return false, observe("delete", "sqlite", key, start, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, observe("delete", "sqlite", key, start, err)
	}
	observe("delete", "sqlite", key, start, nil)
	return n > 0, nil
}

func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.readDB != nil {
			errs = append(errs, s.readDB.Close())
		}
		if s.writeDB != nil {
			errs = append(errs, s.writeDB.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

func (s *SQLiteStore) recordPoolStats() {
	stats := s.readDB.Stats()
	metrics.UpdateDBConnectionStats("sqlite", stats.OpenConnections, stats.InUse)
}

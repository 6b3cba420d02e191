package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"weathercache/internal/metrics"
	"weathercache/internal/models"
)

// MySQLStore keeps records in a shared MySQL database
type MySQLStore struct {
	conn *sql.DB

	closeOnce sync.Once
	closeErr  error
}

// NewMySQLStore opens a connection and initializes the schema.
// dsn format: "username:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, &models.StorageError{Op: "open", Err: fmt.Errorf("failed to open database: %w", err)}
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, &models.StorageError{Op: "open", Err: fmt.Errorf("failed to ping database: %w", err)}
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return newMySQLStore(ctx, conn)
}

func newMySQLStore(ctx context.Context, conn *sql.DB) (*MySQLStore, error) {
	s := &MySQLStore{conn: conn}
	if err := s.initSchema(ctx); err != nil {
		conn.Close()
		return nil, &models.StorageError{Op: "open", Err: fmt.Errorf("failed to initialize schema: %w", err)}
	}
	return s, nil
}

func (s *MySQLStore) initSchema(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS day_summaries (
			cache_key VARCHAR(255) NOT NULL PRIMARY KEY,
			value JSON NOT NULL,
			created_at DATETIME(6) NOT NULL
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`)
	return err
}

func (s *MySQLStore) Get(ctx context.Context, key string) (*models.DailyRecord, bool, error) {
	start := time.Now()

	var value []byte
	err := s.conn.QueryRowContext(ctx, "SELECT value FROM day_summaries WHERE cache_key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		observe("get", "mysql", key, start, nil)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, observe("get", "mysql", key, start, err)
	}

	record, err := decodeRecord(key, value)
	if err != nil {
		return nil, false, observe("get", "mysql", key, start, err)
	}
	observe("get", "mysql", key, start, nil)
	return record, true, nil
}

func (s *MySQLStore) Put(ctx context.Context, key string, record *models.DailyRecord) error {
	start := time.Now()

	data, err := encodeRecord(key, record)
	if err != nil {
		return observe("put", "mysql", key, start, err)
	}

	_, err = s.conn.ExecContext(ctx,
		"INSERT INTO day_summaries (cache_key, value, created_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
		key, string(data), time.Now().UTC())

	stats := s.conn.Stats()
	metrics.UpdateDBConnectionStats("mysql", stats.OpenConnections, stats.InUse)

	return observe("put", "mysql", key, start, err)
}

func (s *MySQLStore) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()

	res, err := s.conn.ExecContext(ctx, "DELETE FROM day_summaries WHERE cache_key = ?", key)
	if err != nil {
		return false, observe("delete", "mysql", key, start, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, observe("delete", "mysql", key, start, err)
	}
	observe("delete", "mysql", key, start, nil)
	return n > 0, nil
}

func (s *MySQLStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

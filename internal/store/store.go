package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"weathercache/internal/config"
	"weathercache/internal/metrics"
	"weathercache/internal/models"
)

// Store is the key-value persistence behind the range cache.
// A missing key is reported through found, never as an error.
type Store interface {
	Get(ctx context.Context, key string) (*models.DailyRecord, bool, error)
	Put(ctx context.Context, key string, record *models.DailyRecord) error
	Delete(ctx context.Context, key string) (bool, error)
	Close() error
}

type Options struct {
	Driver     string
	SQLitePath string
	MySQLDSN   string
	KeyPrefix  string
	Redis      config.RedisConfig
}

// OptionsFromConfig maps the storage and redis sections of the loaded config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Driver:     cfg.Storage.Driver,
		SQLitePath: cfg.Storage.SQLitePath,
		MySQLDSN:   cfg.Storage.MySQLDSN,
		KeyPrefix:  cfg.Storage.KeyPrefix,
		Redis:      cfg.Redis,
	}
}

// Open connects the backend named by opts.Driver
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "sqlite":
		return NewSQLiteStore(ctx, opts.SQLitePath)
	case "redis":
		return DialRedisStore(ctx, opts.Redis, opts.KeyPrefix)
	case "mysql":
		return NewMySQLStore(ctx, opts.MySQLDSN)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, &models.ConfigurationError{Setting: "storage.driver", Err: fmt.Errorf("unknown driver %q", opts.Driver)}
	}
}

func encodeRecord(key string, record *models.DailyRecord) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, &models.StorageError{Op: "encode", Key: key, Err: err}
	}
	return data, nil
}

func decodeRecord(key string, data []byte) (*models.DailyRecord, error) {
	var record models.DailyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, &models.StorageError{Op: "decode", Key: key, Err: err}
	}
	return &record, nil
}

// observe records one backend operation and wraps a failure in StorageError
func observe(op, backend, key string, start time.Time, err error) error {
	metrics.RecordStoreOp(op, backend, time.Since(start), err)
	if err == nil {
		return nil
	}
	var storageErr *models.StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	return &models.StorageError{Op: op, Key: key, Err: err}
}

// Package storage provides the untyped key-value store that holds the portal's
// session, in the role browser local storage plays for a single-page app.
package storage

import (
	"context"
	"errors"
	"fmt"

	"auth_portal/internal/config"
	"auth_portal/internal/platform/database"

	"go.uber.org/zap"
)

// Fixed key names for the persisted token pair.
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// ErrEmptyKey is returned when a blank key is passed to a store.
var ErrEmptyKey = errors.New("storage: key must not be empty")

// KeyValueStore is a flat string key-value store. Reads and writes of distinct
// keys are independent; there is no transaction spanning several keys.
type KeyValueStore interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}

// New builds the store selected by STORAGE_DRIVER. The returned cleanup func
// releases any underlying resource and is always non-nil.
func New(cfg *config.Config, logger *zap.Logger) (KeyValueStore, func(), error) {
	noop := func() {}
	log := logger.Named("Storage")

	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		log.Info("Using in-memory local storage; the session will not survive a restart")
		return NewMemoryStore(), noop, nil

	case config.StorageDriverFile:
		store, err := NewFileStore(cfg.StoragePath)
		if err != nil {
			return nil, noop, err
		}
		log.Info("Using file local storage", zap.String("path", cfg.StoragePath))
		return store, noop, nil

	case config.StorageDriverSQLite, config.StorageDriverPostgres:
		db, err := database.NewGORM(cfg)
		if err != nil {
			return nil, noop, err
		}
		store, err := NewGORMStore(db)
		if err != nil {
			database.CloseGORMDB(db)
			return nil, noop, err
		}
		log.Info("Using database local storage", zap.String("driver", cfg.StorageDriver))
		return store, func() { database.CloseGORMDB(db) }, nil
	}

	return nil, noop, fmt.Errorf("storage: unsupported driver %q", cfg.StorageDriver)
}

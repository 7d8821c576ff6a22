package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wedding-os/client/internal/config"
	"github.com/wedding-os/client/pkg/utils"
)

// KV is a durable string key/value store. A missing key is reported with
// found=false and a nil error.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Closer is implemented by backends holding connections or file handles.
type Closer interface {
	Close() error
}

// Open builds the backend selected by cfg.StorageBackend.
func Open(cfg *config.Config, logger *zap.Logger) (KV, error) {
	switch cfg.StorageBackend {
	case config.StorageFile, "":
		logger.Debug("storage.open", zap.String("backend", "file"), zap.String("path", cfg.StoragePath))
		return NewFileStore(cfg.StoragePath)
	case config.StorageRedis:
		logger.Debug("storage.open",
			zap.String("backend", "redis"),
			zap.String("addr", utils.MaskDSN(cfg.RedisAddr)),
			zap.Int("db", cfg.RedisDB))
		return NewRedisStore(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, cfg.RedisPrefix)
	case config.StorageMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

package storage

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/credit-tracker/internal/config"
	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
	"github.com/sheikh-saqib/credit-tracker/internal/storage/memory"
	"github.com/sheikh-saqib/credit-tracker/internal/storage/mysql"
	"github.com/sheikh-saqib/credit-tracker/internal/storage/postgres"
	"github.com/sheikh-saqib/credit-tracker/internal/storage/redisstore"
)

// Backends bundles the stores picked by configuration and the cleanup for the
// connections they hold.
type Backends struct {
	Documents interfaces.DocumentStore
	Sessions  interfaces.SessionStore

	closers []func() error
}

// Open builds the document and session stores named in cfg.
func Open(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*Backends, error) {
	b := &Backends{}

	var rdb goredis.UniversalClient
	redisClient := func() (goredis.UniversalClient, error) {
		if rdb != nil {
			return rdb, nil
		}
		if len(cfg.RedisAddrs) == 0 {
			return nil, fmt.Errorf("REDIS_ADDR is empty")
		}
		rdb = redisstore.NewClient(cfg.RedisAddrs, cfg.RedisPass)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			rdb = nil
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		b.closers = append(b.closers, rdb.Close)
		return rdb, nil
	}

	switch cfg.StorageBackend {
	case "memory":
		b.Documents = memory.NewMemoryDocumentStore()
	case "postgres":
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		b.Documents = postgres.NewPostgresDocumentStore(db)
	case "mysql":
		db, err := mysql.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		b.Documents = mysql.NewMySQLDocumentStore(db)
	case "redis":
		client, err := redisClient()
		if err != nil {
			return nil, err
		}
		b.Documents = redisstore.NewDocumentStore(client)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	switch cfg.SessionBackend {
	case "memory":
		b.Sessions = memory.NewMemorySessionStore()
	case "redis":
		client, err := redisClient()
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Sessions = redisstore.NewSessionStore(client)
	default:
		b.Close()
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}

	logger.Info("storage ready",
		zap.String("documents", cfg.StorageBackend),
		zap.String("sessions", cfg.SessionBackend))
	return b, nil
}

// Close releases every connection opened by Open, returning the first error.
func (b *Backends) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	b.closers = nil
	return first
}

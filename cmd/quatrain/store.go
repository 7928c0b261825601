package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/CTAG07/Quatrain/internal/config"
	"github.com/CTAG07/Quatrain/pkg/markov"
	"github.com/CTAG07/Quatrain/pkg/store/file"
	"github.com/CTAG07/Quatrain/pkg/store/redis"
	"github.com/CTAG07/Quatrain/pkg/store/sqlite"
)

// modelStore is a markov.Store that can also delete models.
type modelStore interface {
	markov.Store
	Remove(ctx context.Context, name string) error
}

// openStore opens the backend selected in c. The returned func releases it.
func openStore(c *config.Config) (modelStore, func(), error) {
	switch c.Store.Backend {
	case "file":
		return file.New(c.Store.Dir), func() {}, nil

	case "sqlite":
		if dir := filepath.Dir(c.Store.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		db, err := initDB(c.Store.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err = sqlite.SetupSchema(db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to setup markov schema: %w", err)
		}
		s, err := sqlite.New(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		s.SetLogger(logger)
		return s, func() {
			s.Close()
			_ = db.Close()
		}, nil

	case "redis":
		var opts []redis.Option
		if c.Store.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(c.Store.Redis.Prefix))
		}
		if c.Store.Redis.TTLSeconds > 0 {
			opts = append(opts, redis.WithTTL(time.Duration(c.Store.Redis.TTLSeconds)*time.Second))
		}
		s := redis.New(c.Store.Redis.Addr, c.Store.Redis.Password, c.Store.Redis.DB, opts...)
		return s, func() { _ = s.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
}

// Package redis shares binary table snapshots between processes through Redis.
package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/CTAG07/Quatrain/pkg/markov"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "quatrain:"

// Store implements markov.Store using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for stored models.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the namespace for the store's keys. Models live under
// prefix+"model:" and the index at prefix+"index".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(name string) string {
	return s.prefix + "model:" + name
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save writes the snapshot of t under name and records it in the model index.
func (s *Store) Save(ctx context.Context, name string, t *markov.Table) error {
	if name == "" {
		return errors.New("model name cannot be empty")
	}
	var buf bytes.Buffer
	if err := markov.WriteSnapshot(&buf, t); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(name), buf.Bytes(), s.ttl)

	// Index score is the expiry time so List can drop expired names lazily.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: name,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load reads the snapshot stored under name.
func (s *Store) Load(ctx context.Context, name string) (*markov.Table, error) {
	val, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, &markov.ModelNotFoundError{Name: name}
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	t, err := markov.ReadSnapshot(bytes.NewReader(val))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %q: %w", name, err)
	}
	return t, nil
}

// Remove deletes the model stored under name.
func (s *Store) Remove(ctx context.Context, name string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(name))
	pipe.ZRem(ctx, s.indexKey(), name)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns the names of the models that have not expired.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired models: %w", err)
	}

	names, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return names, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

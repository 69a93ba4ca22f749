package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/xaenox/knowledge-hub/internal/models"
)

// RedisStorage keeps the snapshot under snapshot:<name> and its summary under snapshot:<name>:meta.
type RedisStorage struct {
	client *redis.Client
	name   string
}

func NewRedisStorage(ctx context.Context, redisURL, name string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("could not connect to redis (%s): %w", opts.Addr, err)
	}
	return NewRedisStorageWithClient(client, name), nil
}

func NewRedisStorageWithClient(client *redis.Client, name string) *RedisStorage {
	if name == "" {
		name = DefaultSnapshotName
	}
	return &RedisStorage{client: client, name: name}
}

func (s *RedisStorage) key() string {
	return fmt.Sprintf("snapshot:%s", s.name)
}

func (s *RedisStorage) Load(ctx context.Context) (models.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key()).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	return decodeSnapshot(data)
}

func (s *RedisStorage) Save(ctx context.Context, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(), data, 0)
	pipe.HSet(ctx, s.key()+":meta",
		"githubUsername", snap.GitHubUsername,
		"items", len(snap.Items),
		"savedAt", snap.SavedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}

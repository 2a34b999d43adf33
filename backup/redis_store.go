package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/genforge-dev/genforge/queue"
)

// RedisStore implements Store on Redis, for deployments where backups must
// survive the host. Artifacts and records live under a key prefix, with a
// set index for listing.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix for all backup keys (default: "genforge:backup:").
	Prefix string
	// TTL is the artifact expiry duration (0 = never expire).
	TTL time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStoreFromClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewRedisStoreFromClient wraps an existing client. Useful for testing
// with miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "genforge:backup:"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) artifactKey(handle string) string { return s.prefix + "artifact:" + handle }
func (s *RedisStore) recordKey(handle string) string   { return s.prefix + "record:" + handle }
func (s *RedisStore) indexKey() string                 { return s.prefix + "index" }

func (s *RedisStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Create stores the encoded state and its record under the handle.
func (s *RedisStore) Create(ctx context.Context, handle string, st queue.State) (*Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if handle == "" {
		handle = uuid.New().String()
	}
	if err := validateHandle(handle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	data, checksum, err := encodeState(st)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	// Write-once: claim the artifact key before writing anything else.
	ok, err := s.client.SetNX(ctx, s.artifactKey(handle), data, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: handle %q already exists", ErrWriteFailed, handle)
	}

	rec := &Record{
		Handle:    handle,
		CreatedAt: time.Now().UTC(),
		Version:   formatVersion,
		Checksum:  checksum,
	}
	recData, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.recordKey(handle), recData, s.ttl)
	pipe.SAdd(ctx, s.indexKey(), handle)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return rec, nil
}

// Restore fetches and decodes the artifact named by handle.
func (s *RedisStore) Restore(ctx context.Context, handle string) (queue.State, error) {
	if err := s.checkOpen(); err != nil {
		return queue.State{}, err
	}

	data, err := s.client.Get(ctx, s.artifactKey(handle)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return queue.State{}, fmt.Errorf("%w: %s", ErrNotFound, handle)
		}
		return queue.State{}, fmt.Errorf("get artifact: %w", err)
	}
	return decodeState(data)
}

// List returns records for all artifacts in the index, newest first.
func (s *RedisStore) List(ctx context.Context) ([]*Record, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	handles, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}

	records := make([]*Record, 0, len(handles))
	for _, handle := range handles {
		data, err := s.client.Get(ctx, s.recordKey(handle)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Record expired; drop the stale index entry.
				s.client.SRem(ctx, s.indexKey(), handle)
				continue
			}
			return nil, fmt.Errorf("get record: %w", err)
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		records = append(records, &rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	return records, nil
}

// Delete removes an artifact, its record, and its index entry.
func (s *RedisStore) Delete(ctx context.Context, handle string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.artifactKey(handle))
	pipe.Del(ctx, s.recordKey(handle))
	pipe.SRem(ctx, s.indexKey(), handle)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	return nil
}

// Close releases the Redis client.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.client.Ping(ctx).Err()
}

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aluiziolira/go-booksync/models"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no value was handed off under a key.
var ErrNotFound = errors.New("pipeline: handoff key not found")

// Store passes values between the steps of a run.
type Store interface {
	Put(ctx context.Context, runID, key string, value []byte) error
	Get(ctx context.Context, runID, key string) ([]byte, error)
}

// EncodeBatch serialises books as an ordered JSON array of
// {Title, Author, Price, Rating} objects. An empty batch encodes as [].
func EncodeBatch(books []models.BookRecord) ([]byte, error) {
	if books == nil {
		books = []models.BookRecord{}
	}
	data, err := json.Marshal(books)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	return data, nil
}

// DecodeBatch is the inverse of EncodeBatch. Empty input decodes to an empty batch.
func DecodeBatch(data []byte) ([]models.BookRecord, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var books []models.BookRecord
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return books, nil
}

// MemoryStore keeps handoff values in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, runID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[handoffKey(runID, key)] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, runID, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[handoffKey(runID, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// RedisStore keeps handoff values in Redis so steps can run in separate processes.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a store; ttl <= 0 keeps values until deleted.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, runID, key string, value []byte) error {
	ttl := s.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := s.redis.Set(ctx, handoffKey(runID, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, runID, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, handoffKey(runID, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return data, nil
}

func handoffKey(runID, key string) string {
	return "booksync:run:" + runID + ":" + key
}

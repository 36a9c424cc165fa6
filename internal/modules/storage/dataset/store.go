package dataset

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/reviewinsight/server/internal/models"
	"github.com/reviewinsight/server/internal/pkg/apperr"
	"github.com/reviewinsight/server/internal/pkg/redis"
)

// Store keeps uploaded datasets by ID for the lifetime of a browsing session.
type Store interface {
	Put(ctx context.Context, ds *models.Dataset) error
	Get(ctx context.Context, id string) (*models.Dataset, error)
	Delete(ctx context.Context, id string) error
}

type memoryItem struct {
	ds        *models.Dataset
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Sweep drops expired datasets.
type MemoryStore struct {
	mu    sync.RWMutex
	ttl   time.Duration
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, items: make(map[string]memoryItem), now: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, ds *models.Dataset) error {
	s.mu.Lock()
	s.items[ds.ID] = memoryItem{ds: ds, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Dataset, error) {
	s.mu.RLock()
	item, ok := s.items[id]
	s.mu.RUnlock()
	if !ok || !s.now().Before(item.expiresAt) {
		return nil, apperr.NotFound("dataset %q not found or expired, upload the file again", id)
	}
	return item.ds, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
	return nil
}

// Sweep removes expired datasets and returns how many were dropped.
func (s *MemoryStore) Sweep(context.Context) (int, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, item := range s.items {
		if !now.Before(item.expiresAt) {
			delete(s.items, id)
			removed++
		}
	}
	return removed, nil
}

// RedisStore keeps datasets as JSON with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix + "dataset:", ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, ds *models.Dataset) error {
	payload, err := json.Marshal(ds)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.prefix+ds.ID, payload, s.ttl)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Dataset, error) {
	raw, err := s.client.Get(ctx, s.prefix+id)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return nil, apperr.NotFound("dataset %q not found or expired, upload the file again", id)
	}
	var ds models.Dataset
	if err := json.Unmarshal([]byte(raw), &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.prefix+id)
}

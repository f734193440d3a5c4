package infrastructure

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
)

type MemoryCredentialStore struct {
	mu         sync.RWMutex
	credential domain.Credential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (s *MemoryCredentialStore) Load(_ context.Context) (domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, nil
}

func (s *MemoryCredentialStore) Save(_ context.Context, credential domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = credential
	return nil
}

func (s *MemoryCredentialStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = ""
	return nil
}

// RedisCredentialStore keeps the credential under a single key so it survives restarts
// of the calling shell. A zero ttl stores it without expiry.
type RedisCredentialStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

func NewRedisCredentialStore(client redis.UniversalClient, key string, ttl time.Duration) *RedisCredentialStore {
	return &RedisCredentialStore{client: client, key: key, ttl: ttl}
}

func (s *RedisCredentialStore) Load(ctx context.Context) (domain.Credential, error) {
	value, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return domain.Credential(value), nil
}

func (s *RedisCredentialStore) Save(ctx context.Context, credential domain.Credential) error {
	return s.client.Set(ctx, s.key, string(credential), s.ttl).Err()
}

func (s *RedisCredentialStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}

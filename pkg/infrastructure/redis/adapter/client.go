package adapter

import (
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to a single Redis node.
func NewRedisClient(addr, password string, db int) redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

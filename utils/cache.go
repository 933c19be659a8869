// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"pitstop/config"

	"github.com/go-redis/redis/v8"
)

var (
	// SessionCacheClient holds live conversation sessions.
	SessionCacheClient *redis.Client
)

// InitSessionCache initializes the Redis client backing the conversation
// session store. The session store is the per-conversation canonical state,
// so a failed connection here is fatal.
func InitSessionCache() {
	SessionCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSessionDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := SessionCacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Session Cache): %v", err)
	}
}

// GetSessionCacheClient returns the session cache client.
func GetSessionCacheClient() *redis.Client {
	if SessionCacheClient == nil {
		InitSessionCache()
	}
	return SessionCacheClient
}

// InitRedis brings up every Redis client the service uses.
func InitRedis() {
	InitSessionCache()
}

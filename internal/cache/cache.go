// Package cache 提供读穿缓存与计数器抽象，支持进程内与 Redis 两种后端。
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss 表示缓存未命中。
var ErrMiss = errors.New("cache miss")

// Cache 是以字符串为键、字节为值的缓存。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Counter 在固定时间窗口内累加计数，窗口从第一次累加开始计算。
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Store 同时具备缓存与计数能力。
type Store interface {
	Cache
	Counter
}

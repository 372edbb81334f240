package repository

import (
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/KartikLabhshetwar/oneurl/constant"
)

// IdempotencyStore 记录最近出现过的点击指纹，用于抑制重复提交。
// Reserve 返回 false 表示指纹在有效期内已存在（即重复点击）。
// Release 是补偿动作：事件落库失败时释放指纹，让后续重试有机会补写事件。
type IdempotencyStore interface {
	Reserve(fingerprint string, ttl time.Duration) (bool, error)
	Release(fingerprint string) error
}

// Idempotency 全局去重存储，main 中初始化，测试中可替换为内存实现
var Idempotency IdempotencyStore

// redisIdempotencyStore 基于 Redis SET NX EX，天然支持并发下的原子占位
type redisIdempotencyStore struct {
	pool *redis.Pool
}

func NewRedisIdempotencyStore(pool *redis.Pool) IdempotencyStore {
	return &redisIdempotencyStore{pool: pool}
}

func (s *redisIdempotencyStore) Reserve(fingerprint string, ttl time.Duration) (bool, error) {
	conn := s.pool.Get()
	defer conn.Close()

	seconds := int(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	reply, err := conn.Do("SET", constant.GetIdempotencyKey(fingerprint), "1", "NX", "EX", seconds)
	if err != nil {
		return false, err
	}
	// NX 未生效时返回 nil，表示 key 已存在
	return reply != nil, nil
}

func (s *redisIdempotencyStore) Release(fingerprint string) error {
	conn := s.pool.Get()
	defer conn.Close()

	_, err := conn.Do("DEL", constant.GetIdempotencyKey(fingerprint))
	return err
}

// memoryIdempotencyStore 进程内实现，测试和无 Redis 的开发环境使用
type memoryIdempotencyStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

func NewMemoryIdempotencyStore() IdempotencyStore {
	return &memoryIdempotencyStore{expires: make(map[string]time.Time)}
}

func (s *memoryIdempotencyStore) Reserve(fingerprint string, ttl time.Duration) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if exp, ok := s.expires[fingerprint]; ok && exp.After(now) {
		return false, nil
	}
	s.expires[fingerprint] = now.Add(ttl)

	// 顺带清理过期项，避免长期运行时无限增长
	for k, exp := range s.expires {
		if !exp.After(now) {
			delete(s.expires, k)
		}
	}
	return true, nil
}

func (s *memoryIdempotencyStore) Release(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expires, fingerprint)
	return nil
}

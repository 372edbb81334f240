package repository

import (
	"sync"
	"time"

	"github.com/gomodule/redigo/redis"
)

// CounterStore 固定窗口限流计数器。Incr 原子自增并返回窗口内的当前计数，
// 窗口首次命中时设置过期时间。
type CounterStore interface {
	Incr(key string, window time.Duration) (int64, error)
}

// Counters 全局限流计数器，main 中初始化，测试中可替换为内存实现
var Counters CounterStore

type redisCounterStore struct {
	pool *redis.Pool
}

func NewRedisCounterStore(pool *redis.Pool) CounterStore {
	return &redisCounterStore{pool: pool}
}

func (s *redisCounterStore) Incr(key string, window time.Duration) (int64, error) {
	conn := s.pool.Get()
	defer conn.Close()

	n, err := redis.Int64(conn.Do("INCR", key))
	if err != nil {
		return 0, err
	}
	if n == 1 {
		seconds := int(window / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		if _, err := conn.Do("EXPIRE", key, seconds); err != nil {
			return n, err
		}
	}
	return n, nil
}

type memoryCounter struct {
	count int64
	reset time.Time
}

// memoryCounterStore 进程内固定窗口计数器，互斥锁保证并发自增不丢计数
type memoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
}

func NewMemoryCounterStore() CounterStore {
	return &memoryCounterStore{counters: make(map[string]*memoryCounter)}
}

func (s *memoryCounterStore) Incr(key string, window time.Duration) (int64, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || now.After(c.reset) {
		c = &memoryCounter{reset: now.Add(window)}
		s.counters[key] = c
	}
	c.count++
	return c.count, nil
}

package storage

import (
	"context"
	"io"
	"sync"
)

// ObjectStorage 对象存储边界：镜像的预览图和用户头像都经由它上传。
// Upload 返回可公开访问的稳定 URL，Delete 按对象 key 删除。
type ObjectStorage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

// Storage 全局对象存储实例，main 中初始化，测试中替换为内存实现
var Storage ObjectStorage

// MemoryStorage 进程内实现，测试使用
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
		baseURL: baseURL,
	}
}

func (s *MemoryStorage) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()

	return s.baseURL + "/" + key, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

// Get 测试辅助：按 key 取回对象内容
func (s *MemoryStorage) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

// Len 测试辅助：当前存储的对象数
func (s *MemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

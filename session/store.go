package session

import (
	"context"
	"sync"
	"time"
)

// Store 会话存储
type Store interface {
	// Load 读取会话，不存在或已过期时返回 ErrNotFound
	Load(ctx context.Context, id string) (*State, error)
	// Save 保存会话，ttl <= 0 表示不过期
	Save(ctx context.Context, id string, state *State, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
	// Collect 清理 before 之前过期的会话，返回清理数量
	Collect(ctx context.Context, before time.Time) (int, error)
}

// MemoryStore 进程内会话存储，保存编码后的数据
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建内存会话存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*State, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	s.mu.Unlock()

	if !ok || entry.expired(s.now()) {
		return nil, ErrNotFound
	}
	return Decode(entry.data)
}

func (s *MemoryStore) Save(_ context.Context, id string, state *State, ttl time.Duration) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) Collect(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, entry := range s.entries {
		if entry.expired(before) {
			delete(s.entries, id)
			count++
		}
	}
	return count, nil
}

// Len 当前保存的会话数量（包括已过期但未清理的）
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (e memoryEntry) expired(at time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(at)
}

package store

import (
	"context"
	"sync"
)

// MemoryCounterStore はプロセス内のマップにヒット数を保存する
// ローカル実行とテストで使う
type MemoryCounterStore struct {
	mu     sync.Mutex
	counts map[string]int64

	// Err が設定されている場合、Incrementは加算せずにこのエラーを返す
	Err error
}

// NewMemoryCounterStore は空のMemoryCounterStoreを作成
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counts: make(map[string]int64)}
}

// Increment はロックを取ってヒット数を加算する
func (s *MemoryCounterStore) Increment(_ context.Context, key string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.counts[key] += amount
	return nil
}

// Get は指定パスのヒット数を返す
func (s *MemoryCounterStore) Get(_ context.Context, path string) (Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Hit{Path: path, Hits: s.counts[path]}, nil
}

// List は全パスのヒット数をパス順で返す
func (s *MemoryCounterStore) List(_ context.Context) ([]Hit, error) {
	s.mu.Lock()
	hits := make([]Hit, 0, len(s.counts))
	for path, n := range s.counts {
		hits = append(hits, Hit{Path: path, Hits: n})
	}
	s.mu.Unlock()

	SortByPath(hits)
	return hits, nil
}

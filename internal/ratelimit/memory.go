package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"fingate/internal/core"
)

type window struct {
	mu      sync.Mutex
	start   time.Time
	count   int
	limit   int
	evicted bool
}

// MemoryStore 以 sync.Map 存放每把 key 的視窗，鎖只鎖單一 key
type MemoryStore struct {
	windows    sync.Map // keyID -> *window
	size       atomic.Int64
	length     time.Duration
	maxEntries int
	now        func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithClock 測試用時鐘
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// WithMaxEntries 超過時先回收過期視窗；仍在使用中的視窗不會被回收
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) { s.maxEntries = n }
}

func NewMemoryStore(length time.Duration, opts ...MemoryOption) *MemoryStore {
	if length <= 0 {
		length = time.Minute
	}
	s := &MemoryStore{length: length, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) CheckAndIncrement(_ context.Context, keyID string, limit int) (core.RateDecision, error) {
	now := s.now()
	for {
		w := s.load(keyID, now)
		w.mu.Lock()
		if w.evicted {
			// 拿到的是剛被回收的視窗，重新取得
			w.mu.Unlock()
			continue
		}
		decision := s.decide(w, now, limit)
		w.mu.Unlock()
		return decision, nil
	}
}

func (s *MemoryStore) load(keyID string, now time.Time) *window {
	if v, ok := s.windows.Load(keyID); ok {
		return v.(*window)
	}
	if s.maxEntries > 0 && int(s.size.Load()) >= s.maxEntries {
		s.Sweep(now)
	}
	v, loaded := s.windows.LoadOrStore(keyID, &window{})
	if !loaded {
		s.size.Add(1)
	}
	return v.(*window)
}

// decide 呼叫端持有 w.mu
func (s *MemoryStore) decide(w *window, now time.Time, limit int) core.RateDecision {
	if w.count == 0 || now.Sub(w.start) >= s.length {
		w.start = now
		w.count = 0
		w.limit = limit
	}
	resetIn := w.start.Add(s.length).Sub(now)
	if w.limit <= 0 || w.count >= w.limit {
		return core.RateDecision{Allowed: false, Remaining: 0, Limit: w.limit, ResetIn: resetIn}
	}
	w.count++
	return core.RateDecision{Allowed: true, Remaining: w.limit - w.count, Limit: w.limit, ResetIn: resetIn}
}

// Sweep 回收已過期的視窗，回傳回收數量
func (s *MemoryStore) Sweep(now time.Time) int {
	removed := 0
	s.windows.Range(func(key, value any) bool {
		w := value.(*window)
		w.mu.Lock()
		if now.Sub(w.start) >= s.length {
			w.evicted = true
			s.windows.Delete(key)
			s.size.Add(-1)
			removed++
		}
		w.mu.Unlock()
		return true
	})
	return removed
}

func (s *MemoryStore) Delete(_ context.Context, keyID string) error {
	value, ok := s.windows.LoadAndDelete(keyID)
	if !ok {
		return nil
	}
	w := value.(*window)
	w.mu.Lock()
	w.evicted = true
	w.mu.Unlock()
	s.size.Add(-1)
	return nil
}

// Len 目前保存的視窗數
func (s *MemoryStore) Len() int {
	return int(s.size.Load())
}

package memory

import (
	"context"
	"sync"

	"fingate/internal/database/mongodb/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UsageStore struct {
	mu      sync.Mutex
	entries []model.UsageLog
}

func NewUsageStore() *UsageStore {
	return &UsageStore{}
}

func (s *UsageStore) Append(_ context.Context, entry *model.UsageLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *UsageStore) ListByKey(_ context.Context, apiKeyID string, limit int64) ([]*model.UsageLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.UsageLog
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].APIKeyID != apiKeyID {
			continue
		}
		e := s.entries[i]
		out = append(out, &e)
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (s *UsageStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.entries)), nil
}

// Entries 依寫入順序回傳快照
func (s *UsageStore) Entries() []model.UsageLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.UsageLog(nil), s.entries...)
}

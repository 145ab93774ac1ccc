package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fingate/internal/database/mongodb/model"
	"fingate/internal/database/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type APIKeyStore struct {
	mu     sync.RWMutex
	byID   map[primitive.ObjectID]*model.APIKey
	byHash map[string]primitive.ObjectID
}

func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{
		byID:   make(map[primitive.ObjectID]*model.APIKey),
		byHash: make(map[string]primitive.ObjectID),
	}
}

func copyKey(k *model.APIKey) *model.APIKey {
	cp := *k
	cp.ExpiresAt = cloneTime(k.ExpiresAt)
	cp.LastUsedAt = cloneTime(k.LastUsedAt)
	return &cp
}

func (s *APIKeyStore) Create(_ context.Context, key *model.APIKey) (*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byHash[key.KeyHash]; exists {
		return nil, store.ErrDuplicate
	}
	if key.ID.IsZero() {
		key.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	key.CreatedAt, key.UpdatedAt = now, now
	s.byID[key.ID] = copyKey(key)
	s.byHash[key.KeyHash] = key.ID
	return copyKey(key), nil
}

func (s *APIKeyStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyKey(k), nil
}

func (s *APIKeyStore) GetByHash(_ context.Context, keyHash string) (*model.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[keyHash]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyKey(s.byID[id]), nil
}

func (s *APIKeyStore) ListByOwner(_ context.Context, ownerID string) ([]*model.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.APIKey
	for _, k := range s.byID {
		if k.OwnerID == ownerID {
			out = append(out, copyKey(k))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *APIKeyStore) SetActive(_ context.Context, id primitive.ObjectID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	k.IsActive = active
	k.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *APIKeyStore) TouchLastUsed(_ context.Context, touches map[primitive.ObjectID]time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, at := range touches {
		k, ok := s.byID[id]
		if !ok {
			continue
		}
		if k.LastUsedAt == nil || at.After(*k.LastUsedAt) {
			t := at
			k.LastUsedAt = &t
		}
	}
	return nil
}

func (s *APIKeyStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.byHash, k.KeyHash)
	delete(s.byID, id)
	return nil
}

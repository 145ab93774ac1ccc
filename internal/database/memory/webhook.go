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

type WebhookStore struct {
	mu       sync.RWMutex
	webhooks map[primitive.ObjectID]*model.Webhook
}

func NewWebhookStore() *WebhookStore {
	return &WebhookStore{webhooks: make(map[primitive.ObjectID]*model.Webhook)}
}

func copyWebhook(w *model.Webhook) *model.Webhook {
	cp := *w
	cp.Events = append([]string(nil), w.Events...)
	return &cp
}

func (s *WebhookStore) Create(_ context.Context, webhook *model.Webhook) (*model.Webhook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if webhook.ID.IsZero() {
		webhook.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	webhook.CreatedAt, webhook.UpdatedAt = now, now
	s.webhooks[webhook.ID] = copyWebhook(webhook)
	return copyWebhook(webhook), nil
}

func (s *WebhookStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.webhooks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyWebhook(w), nil
}

func (s *WebhookStore) list(match func(*model.Webhook) bool) []*model.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Webhook
	for _, w := range s.webhooks {
		if match(w) {
			out = append(out, copyWebhook(w))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *WebhookStore) ListByOwner(_ context.Context, ownerID string) ([]*model.Webhook, error) {
	return s.list(func(w *model.Webhook) bool { return w.OwnerID == ownerID }), nil
}

func (s *WebhookStore) ListSubscribers(_ context.Context, ownerID, eventType string) ([]*model.Webhook, error) {
	return s.list(func(w *model.Webhook) bool {
		return w.OwnerID == ownerID && w.IsActive && w.Subscribes(eventType)
	}), nil
}

func (s *WebhookStore) Update(_ context.Context, webhook *model.Webhook) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.webhooks[webhook.ID]
	if !ok {
		return store.ErrNotFound
	}
	existing.URL = webhook.URL
	existing.Events = append([]string(nil), webhook.Events...)
	existing.IsActive = webhook.IsActive
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *WebhookStore) UpdateSecret(_ context.Context, id primitive.ObjectID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.webhooks[id]
	if !ok {
		return store.ErrNotFound
	}
	existing.Secret = secret
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *WebhookStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.webhooks[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.webhooks, id)
	return nil
}

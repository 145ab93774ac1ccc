package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fingate/internal/core"
	"fingate/internal/database/mongodb/model"
	"fingate/internal/database/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliveryStore 以單一 mutex 保護；認領與寫回都在鎖內完成，等同 Mongo 的條件更新
type DeliveryStore struct {
	mu         sync.Mutex
	deliveries map[primitive.ObjectID]*model.WebhookDelivery
	// 建立順序，作為 createdAt 相同時的排序依據
	seq   map[primitive.ObjectID]int64
	nextN int64
}

func NewDeliveryStore() *DeliveryStore {
	return &DeliveryStore{
		deliveries: make(map[primitive.ObjectID]*model.WebhookDelivery),
		seq:        make(map[primitive.ObjectID]int64),
	}
}

func copyDelivery(d *model.WebhookDelivery) *model.WebhookDelivery {
	cp := *d
	cp.Payload = append([]byte(nil), d.Payload...)
	cp.ClaimedUntil = cloneTime(d.ClaimedUntil)
	cp.DeliveredAt = cloneTime(d.DeliveredAt)
	if d.RetryOf != nil {
		id := *d.RetryOf
		cp.RetryOf = &id
	}
	return &cp
}

func (s *DeliveryStore) Create(_ context.Context, delivery *model.WebhookDelivery) (*model.WebhookDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if delivery.ID.IsZero() {
		delivery.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = now
	}
	delivery.UpdatedAt = now
	if delivery.Status == "" {
		delivery.Status = core.DeliveryPending
	}
	s.nextN++
	s.seq[delivery.ID] = s.nextN
	s.deliveries[delivery.ID] = copyDelivery(delivery)
	return copyDelivery(delivery), nil
}

func (s *DeliveryStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.WebhookDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyDelivery(d), nil
}

func (s *DeliveryStore) ListByWebhook(_ context.Context, webhookID primitive.ObjectID, limit int64) ([]*model.WebhookDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.WebhookDelivery
	for _, d := range s.deliveries {
		if d.WebhookID == webhookID {
			out = append(out, copyDelivery(d))
		}
	}
	// 最新在前
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] > s.seq[out[j].ID] })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *DeliveryStore) claimable(d *model.WebhookDelivery, opts store.ClaimOptions) bool {
	if d.Status != core.DeliveryPending || d.Attempts >= opts.MaxAttempts {
		return false
	}
	if d.NextAttemptAt.After(opts.Now) {
		return false
	}
	return d.ClaimedUntil == nil || !d.ClaimedUntil.After(opts.Now)
}

func (s *DeliveryStore) Claim(_ context.Context, opts store.ClaimOptions) ([]*model.WebhookDelivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []*model.WebhookDelivery
	for _, d := range s.deliveries {
		if s.claimable(d, opts) {
			candidates = append(candidates, d)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
		}
		return s.seq[candidates[i].ID] < s.seq[candidates[j].ID]
	})
	if opts.Limit > 0 && len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	until := opts.Now.Add(opts.Lease)
	out := make([]*model.WebhookDelivery, 0, len(candidates))
	for _, d := range candidates {
		d.ClaimToken = opts.Token
		d.ClaimedUntil = &until
		out = append(out, copyDelivery(d))
	}
	return out, nil
}

func (s *DeliveryStore) owned(id primitive.ObjectID, token string) (*model.WebhookDelivery, error) {
	d, ok := s.deliveries[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if d.Status != core.DeliveryPending || d.ClaimToken != token {
		return nil, store.ErrClaimLost
	}
	return d, nil
}

func (s *DeliveryStore) Renew(_ context.Context, id primitive.ObjectID, token string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.owned(id, token)
	if err != nil {
		return err
	}
	d.ClaimedUntil = &until
	return nil
}

func (s *DeliveryStore) SaveOutcome(_ context.Context, delivery *model.WebhookDelivery, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.owned(delivery.ID, token)
	if err != nil {
		return err
	}
	d.Status = delivery.Status
	d.HTTPStatus = delivery.HTTPStatus
	d.ResponseBody = delivery.ResponseBody
	d.ErrorMessage = delivery.ErrorMessage
	d.Attempts = delivery.Attempts
	d.LatencyMs = delivery.LatencyMs
	d.NextAttemptAt = delivery.NextAttemptAt
	d.DeliveredAt = cloneTime(delivery.DeliveredAt)
	d.ClaimToken = ""
	d.ClaimedUntil = nil
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *DeliveryStore) Release(_ context.Context, id primitive.ObjectID, token string, nextAttemptAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.owned(id, token)
	if err != nil {
		return err
	}
	d.NextAttemptAt = nextAttemptAt
	d.ClaimToken = ""
	d.ClaimedUntil = nil
	d.UpdatedAt = time.Now().UTC()
	return nil
}

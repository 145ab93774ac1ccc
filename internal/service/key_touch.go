package service

import (
	"context"
	"sync"
	"time"

	"fingate/internal/database/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// KeyTouchBatcher 延後寫回 lastUsedAt：認證只記在記憶體，由 cron 批次寫回
type KeyTouchBatcher struct {
	mu      sync.Mutex
	pending map[primitive.ObjectID]time.Time
	keys    store.APIKeyStore
	logger  *zap.Logger
}

func NewKeyTouchBatcher(keys store.APIKeyStore, logger *zap.Logger) *KeyTouchBatcher {
	return &KeyTouchBatcher{
		pending: make(map[primitive.ObjectID]time.Time),
		keys:    keys,
		logger:  logger,
	}
}

func (b *KeyTouchBatcher) Touch(id primitive.ObjectID, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, ok := b.pending[id]; !ok || at.After(prev) {
		b.pending[id] = at
	}
}

// Flush 寫回失敗時把資料放回，下次再試
func (b *KeyTouchBatcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	batch := b.pending
	b.pending = make(map[primitive.ObjectID]time.Time, len(batch))
	b.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := b.keys.TouchLastUsed(ctx, batch); err != nil {
		b.logger.Warn("flush api key lastUsedAt failed", zap.Int("keys", len(batch)), zap.Error(err))
		for id, at := range batch {
			b.Touch(id, at)
		}
		return err
	}
	b.logger.Debug("flushed api key lastUsedAt", zap.Int("keys", len(batch)))
	return nil
}

func (b *KeyTouchBatcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Package memory 提供 store 介面的 process 內實作：storage driver = memory 時使用，也作為測試替身。
package memory

import (
	"time"

	"fingate/internal/database/store"
)

// NewStores 建立一組 memory store
func NewStores() *store.Stores {
	return &store.Stores{
		APIKeys:    NewAPIKeyStore(),
		Webhooks:   NewWebhookStore(),
		Deliveries: NewDeliveryStore(),
		Usage:      NewUsageStore(),
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

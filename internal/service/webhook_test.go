package service

import (
	"context"
	"testing"

	"fingate/internal/core"
	"fingate/internal/dto"
	cErr "fingate/internal/pkg/error"
	"fingate/utils/signature"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestWebhookSecretIsReturnedOnlyOnCreateAndRotate(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	created, err := f.webhooks.Create(ctx, "owner-1", &dto.CreateWebhookDto{URL: "https://hooks.example.com/in", Events: []string{core.EventPaymentReceived}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Secret)
	assert.True(t, created.IsActive)
	id, _ := primitive.ObjectIDFromHex(created.ID)

	rotated, err := f.webhooks.RotateSecret(ctx, "owner-1", id)
	require.NoError(t, err)
	assert.NotEqual(t, created.Secret, rotated.Secret)

	stored, err := f.env.stores.Webhooks.GetByID(ctx, id)
	require.NoError(t, err)
	payload := []byte(`{"a":1}`)
	assert.True(t, signature.Verify(rotated.Secret, payload, signature.Header(stored.Secret, payload)))
}

func TestWebhookUpdateAndOwnerScope(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()

	created, err := f.webhooks.Create(ctx, "owner-1", &dto.CreateWebhookDto{URL: "https://hooks.example.com/in", Events: []string{core.EventPaymentReceived}})
	require.NoError(t, err)
	id, _ := primitive.ObjectIDFromHex(created.ID)

	_, err = f.webhooks.Get(ctx, "owner-2", id)
	assert.Equal(t, "not-found", cErr.From(err).Code())
	_, err = f.webhooks.ListDeliveries(ctx, "owner-2", id, 0)
	assert.Equal(t, "not-found", cErr.From(err).Code())

	url := "https://hooks.example.com/v2"
	events := []string{core.EventBankSyncCompleted}
	updated, err := f.webhooks.Update(ctx, "owner-1", id, &dto.UpdateWebhookDto{URL: &url, Events: &events})
	require.NoError(t, err)
	assert.Equal(t, url, updated.URL)
	assert.Equal(t, events, updated.Events)
	assert.True(t, updated.IsActive)

	listed, err := f.webhooks.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, url, listed[0].URL)

	others, err := f.webhooks.List(ctx, "owner-2")
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestWebhookDeleteKeepsDeliveries(t *testing.T) {
	f := newDeliveryFixture(t)
	ctx := context.Background()
	webhook, deliveryID := f.subscribe(t, "https://hooks.example.com/in")
	id, _ := primitive.ObjectIDFromHex(webhook.ID)

	deliveries, err := f.webhooks.ListDeliveries(ctx, "owner-1", id, 0)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, deliveryID.Hex(), deliveries[0].ID)

	require.NoError(t, f.webhooks.Delete(ctx, "owner-1", id))
	assert.Equal(t, "pending", string(f.delivery(t, deliveryID).Status))
	_, err = f.webhooks.Get(ctx, "owner-1", id)
	assert.Equal(t, "not-found", cErr.From(err).Code())
}

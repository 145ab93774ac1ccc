package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fingate/internal/dto"
	cErr "fingate/internal/pkg/error"
	"fingate/internal/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAPIKeyService(env *testEnv) (*APIKeyService, *KeyTouchBatcher) {
	touches := NewKeyTouchBatcher(env.stores.APIKeys, env.logger)
	limiter := ratelimit.NewLimiter(env.conf, ratelimit.NewMemoryStore(time.Minute), env.logger, env.trace, env.metric)
	return NewAPIKeyService(env.trace, env.metric, env.stores.APIKeys, touches, limiter, env.conf, env.logger), touches
}

func TestAPIKeyCreateAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	svc, touches := newAPIKeyService(env)
	ctx := context.Background()

	limit := 2
	created, err := svc.Create(ctx, "owner-1", &dto.CreateAPIKeyDto{Name: " primary ", RateLimitPerMinute: &limit})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Key)
	assert.Equal(t, "primary", created.Name)
	assert.Equal(t, 2, created.RateLimitPerMinute)

	principal, err := svc.Authenticate(ctx, created.Key)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", principal.OwnerID)
	assert.Equal(t, created.ID, principal.KeyID)
	assert.Equal(t, 2, principal.RateLimitPerMinute)
	assert.Equal(t, 1, touches.Pending())

	// 明文不會出現在後續查詢
	listed, err := svc.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestAPIKeyDefaultLimit(t *testing.T) {
	env := newTestEnv(t)
	env.conf.RateLimit.DefaultLimit = 7
	svc, _ := newAPIKeyService(env)

	created, err := svc.Create(context.Background(), "owner-1", &dto.CreateAPIKeyDto{Name: "k"})
	require.NoError(t, err)
	assert.Equal(t, 7, created.RateLimitPerMinute)
}

func TestAuthenticateRejections(t *testing.T) {
	env := newTestEnv(t)
	svc, touches := newAPIKeyService(env)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "  ")
	assert.True(t, errors.Is(err, cErr.MissingCredential("")))

	_, err = svc.Authenticate(ctx, "fg_not_a_real_key")
	assert.True(t, errors.Is(err, cErr.InvalidCredential("")))

	inactive, err := svc.Create(ctx, "owner-1", &dto.CreateAPIKeyDto{Name: "inactive"})
	require.NoError(t, err)
	id, _ := primitive.ObjectIDFromHex(inactive.ID)
	_, err = svc.SetActive(ctx, "owner-1", id, false)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, inactive.Key)
	assert.True(t, errors.Is(err, cErr.InactiveCredential("")))

	expiresAt := time.Now().Add(time.Hour)
	expiring, err := svc.Create(ctx, "owner-1", &dto.CreateAPIKeyDto{Name: "expiring", ExpiresAt: &expiresAt})
	require.NoError(t, err)
	svc.now = func() time.Time { return expiresAt.Add(time.Second) }
	_, err = svc.Authenticate(ctx, expiring.Key)
	assert.True(t, errors.Is(err, cErr.ExpiredCredential("")))

	assert.Zero(t, touches.Pending())
}

func TestAPIKeyCreateRejectsPastExpiry(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newAPIKeyService(env)

	past := time.Now().Add(-time.Minute)
	_, err := svc.Create(context.Background(), "owner-1", &dto.CreateAPIKeyDto{Name: "old", ExpiresAt: &past})
	assert.Equal(t, "validation-error", cErr.From(err).Code())
}

func TestAPIKeyOwnerScope(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newAPIKeyService(env)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner-1", &dto.CreateAPIKeyDto{Name: "mine"})
	require.NoError(t, err)
	id, _ := primitive.ObjectIDFromHex(created.ID)

	_, err = svc.Get(ctx, "owner-2", id)
	assert.Equal(t, 404, cErr.From(err).HttpCode())
	assert.Equal(t, 404, cErr.From(svc.Delete(ctx, "owner-2", id)).HttpCode())

	require.NoError(t, svc.Delete(ctx, "owner-1", id))
	_, err = svc.Authenticate(ctx, created.Key)
	assert.True(t, errors.Is(err, cErr.InvalidCredential("")))
}

func TestAPIKeyDeleteDropsRateWindow(t *testing.T) {
	env := newTestEnv(t)
	windows := ratelimit.NewMemoryStore(time.Minute)
	limiter := ratelimit.NewLimiter(env.conf, windows, env.logger, env.trace, env.metric)
	svc := NewAPIKeyService(env.trace, env.metric, env.stores.APIKeys, NewKeyTouchBatcher(env.stores.APIKeys, env.logger), limiter, env.conf, env.logger)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner-1", &dto.CreateAPIKeyDto{Name: "k"})
	require.NoError(t, err)
	principal, err := svc.Authenticate(ctx, created.Key)
	require.NoError(t, err)
	_, err = limiter.Allow(ctx, principal)
	require.NoError(t, err)
	require.Equal(t, 1, windows.Len())

	id, _ := primitive.ObjectIDFromHex(created.ID)
	require.NoError(t, svc.Delete(ctx, "owner-1", id))
	assert.Zero(t, windows.Len())
}

func TestKeyTouchFlush(t *testing.T) {
	env := newTestEnv(t)
	svc, touches := newAPIKeyService(env)
	ctx := context.Background()

	created, err := svc.Create(ctx, "owner-1", &dto.CreateAPIKeyDto{Name: "k"})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, created.Key)
	require.NoError(t, err)

	require.NoError(t, touches.Flush(ctx))
	assert.Zero(t, touches.Pending())

	id, _ := primitive.ObjectIDFromHex(created.ID)
	got, err := svc.Get(ctx, "owner-1", id)
	require.NoError(t, err)
	assert.NotNil(t, got.LastUsedAt)
}

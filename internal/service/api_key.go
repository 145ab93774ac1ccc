package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"fingate/config"
	"fingate/internal/core"
	"fingate/internal/database/mongodb/model"
	"fingate/internal/database/store"
	"fingate/internal/dto"
	cErr "fingate/internal/pkg/error"
	"fingate/internal/ratelimit"
	"fingate/internal/telemetry"
	"fingate/utils/apikey"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// APIKeyService 負責 Key Store 管理與閘道認證
type APIKeyService struct {
	trace   *telemetry.Trace
	metric  *telemetry.Metric
	keys    store.APIKeyStore
	touches *KeyTouchBatcher
	limiter *ratelimit.Limiter
	config  *config.Configuration
	logger  *zap.Logger
	now     func() time.Time
}

func NewAPIKeyService(
	trace *telemetry.Trace,
	metric *telemetry.Metric,
	keys store.APIKeyStore,
	touches *KeyTouchBatcher,
	limiter *ratelimit.Limiter,
	config *config.Configuration,
	logger *zap.Logger,
) *APIKeyService {
	return &APIKeyService{
		trace:   trace,
		metric:  metric,
		keys:    keys,
		touches: touches,
		limiter: limiter,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Create 產生新金鑰，只保存雜湊；明文只在這次回應中出現
func (s *APIKeyService) Create(ctx context.Context, ownerID string, req *dto.CreateAPIKeyDto) (_ *dto.CreatedAPIKeyResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		return nil, cErr.ValidateErr("expiresAt must be in the future")
	}
	limit := s.config.RateLimit.Limit()
	if req.RateLimitPerMinute != nil {
		limit = *req.RateLimitPerMinute
	}

	plaintext, err := apikey.Generate()
	if err != nil {
		return nil, cErr.InternalServer("failed to generate api key")
	}
	key := &model.APIKey{
		ID:                 primitive.NewObjectID(),
		OwnerID:            ownerID,
		Name:               strings.TrimSpace(req.Name),
		KeyHash:            apikey.Hash(plaintext, s.config.App.SecretKey),
		KeyPrefix:          apikey.DisplayPrefix(plaintext),
		RateLimitPerMinute: limit,
		IsActive:           true,
	}
	if req.ExpiresAt != nil {
		expiresAt := req.ExpiresAt.UTC()
		key.ExpiresAt = &expiresAt
	}

	created, err := s.keys.Create(ctx, key)
	if err != nil {
		s.logger.Error("create api key failed", zap.String("ownerID", ownerID), zap.Error(err))
		return nil, cErr.DatabaseError("create api key failed")
	}
	return &dto.CreatedAPIKeyResponseDto{
		APIKeyResponseDto: *modelToAPIKeyResponseDto(created),
		Key:               plaintext,
	}, nil
}

// Authenticate 以雜湊查詢驗證 bearer credential；四種拒絕原因各有不同錯誤碼
func (s *APIKeyService) Authenticate(ctx context.Context, credential string) (_ core.Principal, returnedError error) {
	ctx, span, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	meta := core.TraceAPIKeyMiddlewareMeta{Where: "authenticate"}
	defer func() { s.trace.ApplyTraceAttributes(span, meta) }()

	credential = strings.TrimSpace(credential)
	if credential == "" {
		meta.Status = "missing"
		s.metric.IncAuthFailure("missing-credential")
		return core.Principal{}, cErr.MissingCredential("authorization bearer token is required")
	}

	key, err := s.keys.GetByHash(ctx, apikey.Hash(credential, s.config.App.SecretKey))
	if errors.Is(err, store.ErrNotFound) {
		meta.Status = "invalid"
		s.metric.IncAuthFailure("invalid-credential")
		return core.Principal{}, cErr.InvalidCredential("api key is not valid")
	}
	if err != nil {
		meta.Status = "store_error"
		s.logger.Error("lookup api key failed", zap.Error(err))
		return core.Principal{}, cErr.DatabaseError("api key lookup failed")
	}

	meta.APIKeyID, meta.OwnerID, meta.KeyName = key.ID.Hex(), key.OwnerID, key.Name
	now := s.now()
	if !key.IsActive {
		meta.Status = "inactive"
		s.metric.IncAuthFailure("inactive-credential")
		return core.Principal{}, cErr.InactiveCredential("api key has been deactivated")
	}
	if key.Expired(now) {
		meta.Status = "expired"
		s.metric.IncAuthFailure("expired-credential")
		return core.Principal{}, cErr.ExpiredCredential("api key has expired")
	}

	meta.Status = "ok"
	s.touches.Touch(key.ID, now.UTC())
	return core.Principal{
		KeyID:              key.ID.Hex(),
		OwnerID:            key.OwnerID,
		KeyName:            key.Name,
		RateLimitPerMinute: key.RateLimitPerMinute,
	}, nil
}

func (s *APIKeyService) List(ctx context.Context, ownerID string) (_ []*dto.APIKeyResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	keys, err := s.keys.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, cErr.DatabaseError("list api keys failed")
	}
	resp := make([]*dto.APIKeyResponseDto, len(keys))
	for i, k := range keys {
		resp[i] = modelToAPIKeyResponseDto(k)
	}
	return resp, nil
}

// owned 其他 owner 的 key 一律回 404，不透露存在與否
func (s *APIKeyService) owned(ctx context.Context, ownerID string, id primitive.ObjectID) (*model.APIKey, error) {
	key, err := s.keys.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && key.OwnerID != ownerID) {
		return nil, cErr.NotFound("api key not found")
	}
	if err != nil {
		return nil, cErr.DatabaseError("get api key failed")
	}
	return key, nil
}

func (s *APIKeyService) Get(ctx context.Context, ownerID string, id primitive.ObjectID) (_ *dto.APIKeyResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	key, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	return modelToAPIKeyResponseDto(key), nil
}

func (s *APIKeyService) SetActive(ctx context.Context, ownerID string, id primitive.ObjectID, active bool) (_ *dto.APIKeyResponseDto, returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	key, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if err := s.keys.SetActive(ctx, id, active); err != nil {
		return nil, cErr.DatabaseError("update api key failed")
	}
	key.IsActive = active
	return modelToAPIKeyResponseDto(key), nil
}

// Delete 刪除後所有使用該 key 的請求都會得到 invalid-credential
func (s *APIKeyService) Delete(ctx context.Context, ownerID string, id primitive.ObjectID) (returnedError error) {
	ctx, _, end := s.trace.WithSpan(ctx)
	defer func() { end(returnedError) }()

	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.keys.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return cErr.DatabaseError("delete api key failed")
	}
	// 視窗殘留只影響記憶體或 redis 空間，不影響刪除結果
	if err := s.limiter.Reset(ctx, id.Hex()); err != nil {
		s.logger.Warn("reset rate limit window failed", zap.String("apiKeyID", id.Hex()), zap.Error(err))
	}
	return nil
}

func modelToAPIKeyResponseDto(k *model.APIKey) *dto.APIKeyResponseDto {
	return &dto.APIKeyResponseDto{
		ID:                 k.ID.Hex(),
		OwnerID:            k.OwnerID,
		Name:               k.Name,
		KeyPrefix:          k.KeyPrefix,
		RateLimitPerMinute: k.RateLimitPerMinute,
		IsActive:           k.IsActive,
		ExpiresAt:          k.ExpiresAt,
		LastUsedAt:         k.LastUsedAt,
		CreatedAt:          k.CreatedAt,
		UpdatedAt:          k.UpdatedAt,
	}
}

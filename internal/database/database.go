package database

import (
	"time"

	"fingate/config"
	client "fingate/internal/database/client"
	"fingate/internal/database/memory"
	mongoRepo "fingate/internal/database/mongodb/repository"
	redisRepo "fingate/internal/database/redis/repository"
	"fingate/internal/database/store"
	"fingate/internal/ratelimit"
	"fingate/internal/telemetry"

	"github.com/google/wire"
	"go.uber.org/zap"
)

// Connections 依設定建立的外部連線；未使用的為 nil
type Connections struct {
	Mongo *client.MongoClient
	Redis *client.RedisClient
}

// NewConnections 只連線設定中會用到的資料庫
func NewConnections(logger *zap.Logger, conf *config.Configuration) (*Connections, func(), error) {
	conns := &Connections{}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if !conf.Storage.UseMemory() {
		mongoClient, mongoCleanup, err := client.NewMongoClient(logger, conf)
		if err != nil {
			return nil, nil, err
		}
		conns.Mongo = mongoClient
		cleanups = append(cleanups, mongoCleanup)
	}
	if conf.RateLimit.Store == config.RateLimitStoreRedis {
		redisClient, redisCleanup, err := client.NewRedisClient(logger, conf)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		conns.Redis = redisClient
		cleanups = append(cleanups, redisCleanup)
	}
	return conns, cleanup, nil
}

// NewStores mongo 或 memory 實作
func NewStores(logger *zap.Logger, conns *Connections) *store.Stores {
	if conns.Mongo == nil {
		logger.Warn("using in-memory storage; data is lost on restart")
		return memory.NewStores()
	}
	return mongoRepo.NewMongoDBRepository(
		mongoRepo.NewAPIKeyRepository(conns.Mongo),
		mongoRepo.NewWebhookRepository(conns.Mongo),
		mongoRepo.NewDeliveryRepository(conns.Mongo),
		mongoRepo.NewUsageLogRepository(conns.Mongo),
	).Stores()
}

// NewRateLimitStore redis 共用視窗或 process 內視窗
func NewRateLimitStore(conf *config.Configuration, trace *telemetry.Trace, conns *Connections) ratelimit.Store {
	if conns.Redis != nil {
		return redisRepo.NewRedisRepository(redisRepo.NewRateLimiterRepository(conf, trace, conns.Redis)).RateLimiter()
	}
	return ratelimit.NewMemoryStore(
		time.Duration(conf.RateLimit.Window())*time.Second,
		ratelimit.WithMaxEntries(conf.RateLimit.Entries()),
	)
}

// ProviderSet 定義所有 DB Client 與 store 的依賴
var ProviderSet = wire.NewSet(
	NewConnections,
	NewStores,
	NewRateLimitStore,
	client.NewFluentdClient,
	wire.FieldsOf(new(*store.Stores), "APIKeys", "Webhooks", "Deliveries", "Usage"),
)

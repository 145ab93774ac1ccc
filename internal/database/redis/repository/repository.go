package repository

// RedisRepository 多個閘道 process 共用的 Redis 資料
type RedisRepository struct {
	rateLimitRepo *RateLimiterRepository
}

func NewRedisRepository(rateLimitRepo *RateLimiterRepository) *RedisRepository {
	return &RedisRepository{rateLimitRepo: rateLimitRepo}
}

// RateLimiter 取得共用視窗計數器
func (repository *RedisRepository) RateLimiter() *RateLimiterRepository {
	return repository.rateLimitRepo
}

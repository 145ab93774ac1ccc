package config

import "time"

type Webhook struct {
	BatchSize   int   `mapstructure:"BATCH_SIZE" json:"batchSize" yaml:"batchSize"`
	MaxAttempts int   `mapstructure:"MAX_ATTEMPTS" json:"maxAttempts" yaml:"maxAttempts"`
	TimeoutMs   int64 `mapstructure:"TIMEOUT_MS" json:"timeoutMs" yaml:"timeoutMs"`
	// 認領（claim）租約秒數，超過即視為 worker 已崩潰，可被重新認領
	LeaseSeconds int64 `mapstructure:"LEASE_SECONDS" json:"leaseSeconds" yaml:"leaseSeconds"`
	// webhook 停用時延後下次處理的秒數
	SkipDeferralSeconds int64 `mapstructure:"SKIP_DEFERRAL_SECONDS" json:"skipDeferralSeconds" yaml:"skipDeferralSeconds"`
	// 儲存的 response body 截斷長度
	ResponseBodyLimit int `mapstructure:"RESPONSE_BODY_LIMIT" json:"responseBodyLimit" yaml:"responseBodyLimit"`
	// Delivery Worker 的 cron spec（含秒），空字串代表不在 process 內排程
	DeliverySpec string `mapstructure:"DELIVERY_SPEC" json:"deliverySpec" yaml:"deliverySpec"`
	// lastUsedAt 批次寫回的 cron spec，預設每 30 秒
	KeyTouchSpec string `mapstructure:"KEY_TOUCH_SPEC" json:"keyTouchSpec" yaml:"keyTouchSpec"`
}

func (w Webhook) Batch() int {
	if w.BatchSize <= 0 {
		return 10
	}
	return w.BatchSize
}

func (w Webhook) Attempts() int {
	if w.MaxAttempts <= 0 {
		return 3
	}
	return w.MaxAttempts
}

func (w Webhook) Timeout() time.Duration {
	if w.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(w.TimeoutMs) * time.Millisecond
}

// Lease 至少要比單次投遞逾時長，否則投遞中的紀錄會被其他 worker 重新認領
func (w Webhook) Lease() time.Duration {
	lease := time.Duration(w.LeaseSeconds) * time.Second
	if min := w.Timeout() + 30*time.Second; lease < min {
		return min
	}
	return lease
}

func (w Webhook) SkipDeferral() time.Duration {
	if w.SkipDeferralSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(w.SkipDeferralSeconds) * time.Second
}

func (w Webhook) BodyLimit() int {
	if w.ResponseBodyLimit <= 0 {
		return 1024
	}
	return w.ResponseBodyLimit
}

func (w Webhook) TouchSpec() string {
	if w.KeyTouchSpec == "" {
		return "@every 30s"
	}
	return w.KeyTouchSpec
}

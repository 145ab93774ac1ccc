package core

// DeliveryStatus 是 WebhookDelivery 的狀態機
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

// Terminal 終態不可再轉移
func (s DeliveryStatus) Terminal() bool {
	return s == DeliveryDelivered || s == DeliveryFailed
}

// Webhook 投遞時附帶的標頭
const (
	HeaderWebhookSignature = "X-Webhook-Signature"
	HeaderWebhookEvent     = "X-Webhook-Event"
	HeaderWebhookDelivery  = "X-Webhook-Delivery"
)

// 常見事件類型（事件類型為開放字串，這裡僅列出內建來源）
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionUpdated = "transaction.updated"
	EventReportReady        = "report.ready"
	EventForecastReady      = "forecast.ready"
	EventBankSyncCompleted  = "bank_sync.completed"
	EventPaymentReceived    = "payment.received"
)

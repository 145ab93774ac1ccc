package error

const (
	// 0 ~ 999: 成功類別
	SUCCESS = 0 // 200 OK

	// 40000 ~ 40099: 用戶請求錯誤 (400 系列)
	BAD_REQUEST_BODY    = 40000 // 400 - 無效的請求體
	BAD_REQUEST_PARAMS  = 40001 // 400 - 無效的請求參數
	BAD_REQUEST_HEADERS = 40002 // 400 - 無效的請求標頭
	VALIDATION_ERROR    = 40003 // 400 - 欄位驗證失敗
	MISSING_FIELD       = 40004 // 400 - 轉發前缺少必要欄位

	// 40100 ~ 40399: 驗證與權限錯誤 (401 403 系列)
	UNAUTHORIZED        = 40100 // 401 - 未授權
	MISSING_CREDENTIAL  = 40101 // 401 - 缺少 Authorization: Bearer
	INVALID_CREDENTIAL  = 40102 // 401 - 查無此 API Key
	INACTIVE_CREDENTIAL = 40103 // 401 - API Key 已停用
	EXPIRED_CREDENTIAL  = 40104 // 401 - API Key 已過期
	FORBIDDEN           = 40300 // 403 - 禁止訪問

	// 40400 ~ 40499: 資源錯誤 (404 系列)
	NOT_FOUND       = 40400 // 404 - 資源未找到
	ROUTE_NOT_FOUND = 40401 // 404 - 閘道路由不存在

	CONFLICT          = 40900 // 409 - 狀態衝突
	PAYLOAD_TOO_LARGE = 41300 // 413 - body 超過上限

	// 42900 ~ 42999: 流量限制錯誤 (429 系列)
	RATE_LIMIT_EXCEEDED = 42900 // 429 - 速率限制超過

	// 50000 ~ 50199: 伺服器內部錯誤 (500 系列)
	INTERNAL_ERROR      = 50000 // 500 - 內部錯誤
	DATABASE_ERROR      = 50001 // 500 - 資料庫錯誤
	SERVICE_UNAVAILABLE = 50002 // 503 - 服務暫停 (維護模式)
	RATE_LIMITER_DOWN   = 50003 // 503 - 限流儲存不可用

	// 50200 ~ 50499: 內部服務（上游）錯誤 (502 504 系列)
	UPSTREAM_ERROR    = 50200 // 502 - 內部服務失敗
	UPSTREAM_REJECTED = 50201 // 4xx - 內部服務拒絕請求（狀態碼透傳）
	UPSTREAM_TIMEOUT  = 50400 // 504 - 內部服務逾時
)

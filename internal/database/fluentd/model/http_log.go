package model

// RequestLog 進入閘道時的請求紀錄，body 只保留截斷後的預覽
type RequestLog struct {
	RequestID   string `json:"request_id"`
	Service     string `json:"service"`
	Method      string `json:"method"`
	Path        string `json:"path"`
	Route       string `json:"route,omitempty"`
	BodyPreview string `json:"body_preview,omitempty"`
	ClientHash  string `json:"client_hash,omitempty"`
	UserAgent   string `json:"user_agent,omitempty"`
	ReceivedAt  string `json:"received_at"`
	Version     string `json:"version,omitempty"`
	LoggedAt    string `json:"logged_at"`
}

// ResponseLog 與 RequestLog 以 request_id 對應
type ResponseLog struct {
	RequestID   string `json:"request_id"`
	Service     string `json:"service"`
	StatusCode  int    `json:"status_code"`
	ErrorCode   string `json:"error_code,omitempty"`
	ErrorNumber int    `json:"error_number,omitempty"`
	Detail      string `json:"detail,omitempty"`
	BodyPreview string `json:"body_preview,omitempty"`
	SentAt      string `json:"sent_at"`
	Version     string `json:"version,omitempty"`
	LoggedAt    string `json:"logged_at"`
}

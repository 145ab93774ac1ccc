package response

import (
	"errors"
	"net/http"
	"time"

	"fingate/internal/core"
	cErr "fingate/internal/pkg/error"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Response 所有 API 的統一信封
type Response struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	Meta      *Meta  `json:"meta,omitempty"`
	RequestID string `json:"request_id"`
}

// Meta 閘道請求的計量資訊；管理端 API 不帶
type Meta struct {
	ResponseTimeMs     int64  `json:"response_time_ms"`
	CreditsConsumed    int    `json:"credits_consumed"`
	RateLimitRemaining *int   `json:"rate_limit_remaining,omitempty"`
	ResetInSeconds     *int64 `json:"reset_in_seconds,omitempty"`
}

func Create(c *gin.Context, data any) {
	c.Status(http.StatusCreated)
	c.Set("data", data)
	c.Set("message", "Create Success")
	c.Abort()
}

func Success(c *gin.Context, data any) {
	c.Set("data", data)
	c.Set("message", "Request Success")
	c.Abort()
}

func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// EnableMeta 在閘道路由上建立 Meta，後續 middleware / handler 直接修改同一份
func EnableMeta(c *gin.Context) *Meta {
	meta := &Meta{}
	c.Set(core.ContextMetaKey, meta)
	return meta
}

func MetaFrom(c *gin.Context) *Meta {
	if v, ok := c.Get(core.ContextMetaKey); ok {
		if meta, ok := v.(*Meta); ok {
			return meta
		}
	}
	return nil
}

// RequestID 取得（必要時建立）本次請求的 ID
func RequestID(c *gin.Context) string {
	if v, ok := c.Get(core.ContextRequestIDKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	c.Set(core.ContextRequestIDKey, id.String())
	return id.String()
}

// RequestStart 取得請求開始時間（TraceEntry / Response middleware 設定）
func RequestStart(c *gin.Context) time.Time {
	if v, ok := c.Get(core.ContextRequestTimeKey); ok {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	now := time.Now()
	c.Set(core.ContextRequestTimeKey, now)
	return now
}

// FirstError 回傳第一個 *cErr.Error；沒有應用錯誤但有其他錯誤時回傳 InternalServer
func FirstError(c *gin.Context) *cErr.Error {
	if len(c.Errors) == 0 {
		return nil
	}
	for _, e := range c.Errors {
		var appErr *cErr.Error
		if errors.As(e.Err, &appErr) {
			return appErr
		}
	}
	return cErr.InternalServer("unknown error")
}

// ResolveStatus 在信封寫出前推算最終狀態碼（Usage middleware 用）
func ResolveStatus(c *gin.Context) int {
	if appErr := FirstError(c); appErr != nil {
		return appErr.HttpCode()
	}
	return c.Writer.Status()
}

func finalizeMeta(c *gin.Context) *Meta {
	meta := MetaFrom(c)
	if meta == nil {
		return nil
	}
	meta.ResponseTimeMs = time.Since(RequestStart(c)).Milliseconds()
	return meta
}

// Envelope 組裝成功回應
func Envelope(c *gin.Context, data any) Response {
	return Response{
		Success:   true,
		Data:      data,
		Meta:      finalizeMeta(c),
		RequestID: RequestID(c),
	}
}

func Fail(c *gin.Context, httpCode int, code string, msg string, details any) {
	c.JSON(httpCode, Response{
		Success:   false,
		Error:     msg,
		Code:      code,
		Details:   details,
		Meta:      finalizeMeta(c),
		RequestID: RequestID(c),
	})
	c.Abort()
}

func FailByErr(c *gin.Context, err error) {
	v := cErr.From(err)
	Fail(c, v.HttpCode(), v.Code(), v.ErrorDesc(), v.Details())
}

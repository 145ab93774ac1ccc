package error

import (
	"errors"
	"net/http"
)

type Error struct {
	httpCode  int
	errorCode int
	errorMsg  string
	errorDesc string
	details   any
}

func New(httpCode, errorCode int, errorMsg string, errorDesc string) *Error {
	return &Error{
		httpCode:  httpCode,
		errorCode: errorCode,
		errorMsg:  errorMsg,
		errorDesc: errorDesc,
	}
}

func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalServer(err.Error())
}

// WithDetails 回傳帶 details 的副本（共用的錯誤值不被修改）
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.details = details
	return &cp
}

// ✅ 用戶端錯誤 (400 系列)
func ValidateErr(errorDesc string) *Error {
	return New(http.StatusBadRequest, VALIDATION_ERROR, "validation-error", errorDesc)
}

func ValidatePathParamsErr(errorDesc string) *Error {
	return New(http.StatusBadRequest, BAD_REQUEST_PARAMS, "validation-error", errorDesc)
}

func MissingField(errorDesc string) *Error {
	return New(http.StatusBadRequest, MISSING_FIELD, "missing-field", errorDesc)
}

func BadRequest(errorDesc string, errorCode ...int) *Error {
	errCode := BAD_REQUEST_BODY
	if len(errorCode) > 0 {
		errCode = errorCode[0]
	}
	return New(http.StatusBadRequest, errCode, "bad-request", errorDesc)
}

func BadRequestBody(errorDesc string) *Error {
	return New(http.StatusBadRequest, BAD_REQUEST_BODY, "bad-request-body", errorDesc)
}

func PayloadTooLarge(errorDesc string) *Error {
	return New(http.StatusRequestEntityTooLarge, PAYLOAD_TOO_LARGE, "payload-too-large", errorDesc)
}

func Conflict(errorDesc string) *Error {
	return New(http.StatusConflict, CONFLICT, "conflict", errorDesc)
}

// ✅ 驗證錯誤 (401)，四種 API Key 失敗各自獨立的 code
func MissingCredential(errorDesc string) *Error {
	return New(http.StatusUnauthorized, MISSING_CREDENTIAL, "missing-credential", errorDesc)
}

func InvalidCredential(errorDesc string) *Error {
	return New(http.StatusUnauthorized, INVALID_CREDENTIAL, "invalid-credential", errorDesc)
}

func InactiveCredential(errorDesc string) *Error {
	return New(http.StatusUnauthorized, INACTIVE_CREDENTIAL, "inactive-credential", errorDesc)
}

func ExpiredCredential(errorDesc string) *Error {
	return New(http.StatusUnauthorized, EXPIRED_CREDENTIAL, "expired-credential", errorDesc)
}

func Unauthorized(errorDesc string, errorCode ...int) *Error {
	errCode := UNAUTHORIZED
	if len(errorCode) > 0 {
		errCode = errorCode[0]
	}
	return New(http.StatusUnauthorized, errCode, "unauthorized", errorDesc)
}

func Forbidden(errorDesc string, errorCode ...int) *Error {
	errCode := FORBIDDEN
	if len(errorCode) > 0 {
		errCode = errorCode[0]
	}
	return New(http.StatusForbidden, errCode, "forbidden", errorDesc)
}

// ✅ 流量限制 (429)
func RateLimitExceeded(errorDesc string) *Error {
	return New(http.StatusTooManyRequests, RATE_LIMIT_EXCEEDED, "rate-limit-exceeded", errorDesc)
}

func RateLimiterUnavailable(desc string) *Error {
	return New(http.StatusServiceUnavailable, RATE_LIMITER_DOWN, "rate-limiter-unavailable", desc)
}

// ✅ 資源找不到 (404)
func NotFound(errorDesc string, errorCode ...int) *Error {
	errCode := NOT_FOUND
	if len(errorCode) > 0 {
		errCode = errorCode[0]
	}
	return New(http.StatusNotFound, errCode, "not-found", errorDesc)
}

// RouteNotFound details 帶有效路由清單
func RouteNotFound(path string, validRoutes []string) *Error {
	return New(http.StatusNotFound, ROUTE_NOT_FOUND, "route-not-found", "no gateway route for "+path).
		WithDetails(map[string]any{"valid_routes": validRoutes})
}

// ✅ 伺服器內部錯誤 (500 系列)
func InternalServer(errorDesc string) *Error {
	return New(http.StatusInternalServerError, INTERNAL_ERROR, "internal-server-error", errorDesc)
}

func DatabaseError(errorDesc string) *Error {
	return New(http.StatusInternalServerError, DATABASE_ERROR, "database-error", errorDesc)
}

func ServiceUnavailable(errorDesc string) *Error {
	return New(http.StatusServiceUnavailable, SERVICE_UNAVAILABLE, "service-unavailable", errorDesc)
}

// ✅ 內部服務（上游）錯誤 (502, 504)
func UpstreamError(errorDesc string) *Error {
	return New(http.StatusBadGateway, UPSTREAM_ERROR, "upstream-error", errorDesc)
}

// UpstreamRejected 上游回 4xx：狀態碼透傳給呼叫端
func UpstreamRejected(status int, errorDesc string) *Error {
	if status < http.StatusBadRequest || status >= http.StatusInternalServerError {
		status = http.StatusBadRequest
	}
	return New(status, UPSTREAM_REJECTED, "upstream-rejected", errorDesc)
}

func UpstreamTimeout(errorDesc string) *Error {
	return New(http.StatusGatewayTimeout, UPSTREAM_TIMEOUT, "upstream-timeout", errorDesc)
}

func (e *Error) HttpCode() int {
	return e.httpCode
}

func (e *Error) ErrorCode() int {
	return e.errorCode
}

// Code 機器可讀的錯誤代碼（kebab-case）
func (e *Error) Code() string {
	return e.errorMsg
}

func (e *Error) ErrorDesc() string {
	return e.errorDesc
}

func (e *Error) Details() any {
	return e.details
}

func (e *Error) Error() string {
	return e.errorMsg
}

// Is 以 errorCode 比對，讓 errors.Is(err, cErr.InvalidCredential("")) 成立
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.errorCode == t.errorCode
}

func MapHttpStatusToError(status int, desc string) *Error {
	switch status {
	case http.StatusBadRequest:
		return BadRequest(desc)
	case http.StatusUnauthorized:
		return Unauthorized(desc)
	case http.StatusForbidden:
		return Forbidden(desc)
	case http.StatusNotFound:
		return NotFound(desc)
	case http.StatusRequestEntityTooLarge:
		return PayloadTooLarge(desc)
	case http.StatusTooManyRequests:
		return RateLimitExceeded(desc)
	case http.StatusServiceUnavailable:
		return ServiceUnavailable(desc)
	case http.StatusBadGateway:
		return UpstreamError(desc)
	case http.StatusGatewayTimeout:
		return UpstreamTimeout(desc)
	default:
		return InternalServer(desc)
	}
}

package middleware

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"
	"unicode/utf8"

	"fingate/config"
	"fingate/internal/core"
	"fingate/internal/database/fluentd/model"
	"fingate/internal/database/fluentd/repository"
	cErr "fingate/internal/pkg/error"
	res "fingate/internal/pkg/response"
	"fingate/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Recovery 把 panic 與 c.Errors 統一輸出成錯誤信封
type Recovery struct {
	logger            *zap.Logger
	trace             *telemetry.Trace
	config            *config.Configuration
	fluentdRepository *repository.LogRepository
}

func NewRecovery(
	logger *zap.Logger,
	trace *telemetry.Trace,
	config *config.Configuration,
	fluentdRepository *repository.LogRepository,
) *Recovery {
	return &Recovery{
		logger:            logger,
		trace:             trace,
		config:            config,
		fluentdRepository: fluentdRepository,
	}
}

func (middleware *Recovery) ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestTime := res.RequestStart(c)
		requestID := res.RequestID(c)

		defer func() {
			if rec := recover(); rec != nil {
				middleware.recoverPanic(c, rec, requestID, time.Since(requestTime))
			}
		}()

		c.Next()

		// handler 已自行回寫時不覆蓋
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		duration := time.Since(requestTime)
		appErr := res.FirstError(c)
		fields := []zap.Field{
			zap.String("code", appErr.Code()),
			zap.Int("status", appErr.HttpCode()),
			zap.String("desc", appErr.ErrorDesc()),
			zap.String("path", c.Request.URL.Path),
			zap.Duration("duration", duration),
			zap.String("requestId", requestID),
		}
		if appErr.HttpCode() >= http.StatusInternalServerError {
			fields = append(fields, zap.String("errors", c.Errors.String()))
			middleware.logger.Error(appErr.Error(), fields...)
		} else {
			middleware.logger.Warn(appErr.Error(), fields...)
		}
		res.FailByErr(c, appErr)
		middleware.logResponse(c, requestID, appErr, appErr.ErrorDesc())
	}
}

// recoverPanic 對外只回 internal-server-error，panic 內容與 stack 留在 log 與 span
func (middleware *Recovery) recoverPanic(c *gin.Context, rec any, requestID string, duration time.Duration) {
	_, span, end := middleware.trace.WithSpan(c.Request.Context(), string(core.SpanRecoveryMiddleware))
	meta := core.TracePanicMeta{
		Path:       c.Request.URL.Path,
		Method:     c.Request.Method,
		ClientIP:   c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
		DurationMs: float64(duration.Milliseconds()),
		Message:    safeText([]byte(fmt.Sprint(rec)), 8000),
		Stack:      safeText(debug.Stack(), 16000),
		Status:     http.StatusInternalServerError,
	}
	middleware.trace.ApplyTraceAttributes(span, meta)
	middleware.logger.Error("[PANIC] Recovered",
		zap.String("path", meta.Path),
		zap.String("method", meta.Method),
		zap.Duration("duration", duration),
		zap.String("panic", meta.Message),
		zap.String("stacktrace", meta.Stack),
		zap.String("requestId", requestID),
	)

	err := cErr.InternalServer("unexpected panic")
	end(err)
	if !c.Writer.Written() {
		res.FailByErr(c, err)
	}
	middleware.logResponse(c, requestID, err, meta.Message)
	c.Abort()
}

func (middleware *Recovery) logResponse(c *gin.Context, requestID string, appErr *cErr.Error, detail string) {
	if middleware.fluentdRepository == nil {
		return
	}
	err := middleware.fluentdRepository.LogResponse(c.Request.Context(), model.ResponseLog{
		RequestID:   requestID,
		Service:     middleware.config.App.Name,
		StatusCode:  appErr.HttpCode(),
		ErrorCode:   appErr.Code(),
		ErrorNumber: appErr.ErrorCode(),
		Detail:      safeText([]byte(detail), 8000),
		SentAt:      time.Now().UTC().Format(repository.TimeLayout),
	})
	if err != nil {
		middleware.logger.Warn("ship response log failed", zap.Error(err))
	}
}

// ---- helpers ----

// safeText 截斷到 max bytes；非 UTF-8 內容改以 base64 保存
func safeText(b []byte, max int) string {
	truncated := len(b) > max
	if truncated {
		b = b[:max]
	}
	if !utf8.Valid(b) {
		return "b64:" + base64.StdEncoding.EncodeToString(b)
	}
	if truncated {
		return string(b) + "…"
	}
	return string(b)
}

package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"fingate/config"
	"fingate/internal/core"
	"fingate/internal/database/fluentd/model"
	"fingate/internal/database/fluentd/repository"
	"fingate/internal/pkg/response"
	"fingate/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// bodyPreviewLimit 請求 body 只預覽前段，其餘原封不動留給下游
const bodyPreviewLimit = 2000

// 不寫進 log 的標頭
var redactedHeaders = map[string]struct{}{
	"authorization": {},
	"cookie":        {},
	"x-api-key":     {},
}

type Logger struct {
	logger            *zap.Logger
	trace             *telemetry.Trace
	config            *config.Configuration
	fluentdRepository *repository.LogRepository
}

func NewLogger(
	logger *zap.Logger,
	trace *telemetry.Trace,
	config *config.Configuration,
	fluentdRepository *repository.LogRepository,
) *Logger {
	return &Logger{
		logger:            logger,
		trace:             trace,
		config:            config,
		fluentdRepository: fluentdRepository,
	}
}

// LoggerHandler 記錄每個請求的詳細資訊（避免讀取二進位 body；文字 body 做安全截斷與 UTF-8 處理）
func (m *Logger) LoggerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoint := c.FullPath()
		if untraced(endpoint) {
			c.Next()
			return
		}

		ctx, span, end := m.trace.WithSpan(c.Request.Context(), string(core.SpanLoggerMiddleware))
		requestTime := response.RequestStart(c)
		requestID := response.RequestID(c)

		// ===== 判斷 content-type，二進位不讀 body =====
		mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
		var bodyRaw string
		if isBinaryContent(mediaType) {
			if c.Request.ContentLength > 0 {
				bodyRaw = fmt.Sprintf("(binary %s, %d bytes)", mediaType, c.Request.ContentLength)
			} else {
				bodyRaw = fmt.Sprintf("(binary %s)", mediaType)
			}
		} else if c.Request.Body != nil && c.Request.ContentLength != 0 {
			// 只讀預覽長度，再接回原 body，body 大小限制仍由下游處理
			prefix, _ := io.ReadAll(io.LimitReader(c.Request.Body, bodyPreviewLimit+1))
			c.Request.Body = readCloser{
				Reader: io.MultiReader(bytes.NewReader(prefix), c.Request.Body),
				Closer: c.Request.Body,
			}
			bodyRaw = toSafePreview(prefix, bodyPreviewLimit)
		}

		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		headerMap := make(map[string]string, len(c.Request.Header))
		for k, v := range c.Request.Header {
			lk := strings.ToLower(k)
			if _, redacted := redactedHeaders[lk]; redacted {
				headerMap[lk] = "[redacted]"
				continue
			}
			headerMap[lk] = strings.Join(v, ",")
		}
		paramsMap := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			paramsMap[p.Key] = p.Value
		}

		m.trace.ApplyTraceAttributes(span, core.LoggerRequestMeta{
			Method:     method,
			Path:       path,
			FullPath:   endpoint,
			Query:      query,
			Body:       bodyRaw,
			Scheme:     c.Request.URL.Scheme,
			Host:       c.Request.Host,
			UserAgent:  c.Request.UserAgent(),
			ContentLen: c.Request.ContentLength,
			Proto:      c.Request.Proto,
			ClientIP:   c.ClientIP(),
			Headers:    headerMap,
			Params:     paramsMap,
		})

		logFields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Any("headers", headerMap),
			zap.String("requestId", requestID),
		}
		if query != "" {
			logFields = append(logFields, zap.String("query", query))
		}
		if len(paramsMap) > 0 {
			logFields = append(logFields, zap.Any("params", paramsMap))
		}
		if bodyRaw != "" {
			logFields = append(logFields, zap.String("body", bodyRaw))
		}
		m.logger.Info("[Request] logging middleware message", logFields...)

		if m.fluentdRepository != nil {
			err := m.fluentdRepository.LogRequest(ctx, model.RequestLog{
				RequestID:   requestID,
				Service:     m.config.App.Name,
				Method:      method,
				Path:        path,
				Route:       c.FullPath(),
				BodyPreview: bodyRaw,
				ClientHash:  hashIP(c.ClientIP()),
				UserAgent:   c.Request.UserAgent(),
				ReceivedAt:  requestTime.UTC().Format(repository.TimeLayout),
			})
			if err != nil {
				m.logger.Warn("ship request log failed", zap.Error(err))
			}
		}
		end(nil)
		c.Next()
	}
}

type readCloser struct {
	io.Reader
	io.Closer
}

func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:8])
}

// 僅對文字內容做安全預覽：UTF-8 直接截斷；非 UTF-8 以 Base64 表示
func toSafePreview(b []byte, max int) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		if len(b) > max {
			return string(b[:max]) + "…"
		}
		return string(b)
	}
	if len(b) > max {
		b = b[:max]
	}
	return "b64:" + base64.StdEncoding.EncodeToString(b)
}

// 是否為二進位內容（不讀 body）
func isBinaryContent(mediaType string) bool {
	return strings.HasPrefix(mediaType, "multipart/") ||
		strings.HasPrefix(mediaType, "image/") ||
		strings.HasPrefix(mediaType, "audio/") ||
		strings.HasPrefix(mediaType, "video/") ||
		mediaType == "application/octet-stream"
}

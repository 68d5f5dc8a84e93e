package router

import (
	"strings"
	"time"

	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey    = handlershared.ContextKeyRequestID
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 128
)

// RequestIDMiddleware 沿用上游请求 ID，缺失或超长时重新生成
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)
		c.Next()
	}
}

func getRequestID(c *gin.Context) string {
	return handlershared.ContextString(c, requestIDKey)
}

// LoggerMiddleware 请求日志与接口指标；5xx 或带错误的请求按 error 级别输出
func LoggerMiddleware(log *zap.Logger, httpMetrics *metrics.HTTPMetrics) gin.HandlerFunc {
	if log == nil {
		log = zap.L()
	}
	sugar := log.Named("http").Sugar()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()
		httpMetrics.Observe(c.Request.Method, c.FullPath(), status, elapsed)

		kv := []interface{}{
			"request_id", getRequestID(c),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", status,
			"latency_ms", elapsed.Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if adminID := handlershared.ContextUint(c, handlershared.ContextKeyAdminID); adminID > 0 {
			kv = append(kv, "admin_id", adminID)
		}
		if len(c.Errors) > 0 || status >= 500 {
			sugar.Errorw("request", append(kv, "errors", c.Errors.String())...)
			return
		}
		sugar.Infow("request", kv...)
	}
}

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/chiptrack/internal/config"
	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/i18n"
	"github.com/chiptrack/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 固定窗口限流；超限后 key 的过期时间延长到 Block
type RateLimitRule struct {
	Prefix      string
	Window      time.Duration
	MaxRequests int
	Block       time.Duration
	MessageKey  string
}

// NewRateLimitRule 由配置生成规则
func NewRateLimitRule(prefix string, cfg config.RateLimitConfig) RateLimitRule {
	return RateLimitRule{
		Prefix:      prefix,
		Window:      time.Duration(cfg.WindowSeconds) * time.Second,
		MaxRequests: cfg.MaxAttempts,
		Block:       time.Duration(cfg.BlockSeconds) * time.Second,
	}
}

func (r RateLimitRule) enabled() bool {
	return r.Window > 0 && r.MaxRequests > 0
}

// RateLimitDecision 一次计数的结果
type RateLimitDecision struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// RateLimiter 计数后端
type RateLimiter interface {
	Hit(ctx context.Context, key string, rule RateLimitRule) (RateLimitDecision, error)
}

// NewRateLimiter 有 Redis 时跨实例计数，否则退回进程内计数
func NewRateLimiter(client *redis.Client) RateLimiter {
	if client != nil {
		return &redisRateLimiter{client: client}
	}
	return newMemoryRateLimiter(time.Now)
}

// KEYS[1]=key ARGV[1]=窗口秒 ARGV[2]=上限 ARGV[3]=封禁秒
var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
if current == tonumber(ARGV[2]) + 1 and tonumber(ARGV[3]) > 0 then
	redis.call("EXPIRE", KEYS[1], ARGV[3])
end
return {current, redis.call("TTL", KEYS[1])}
`)

type redisRateLimiter struct {
	client *redis.Client
}

func (l *redisRateLimiter) Hit(ctx context.Context, key string, rule RateLimitRule) (RateLimitDecision, error) {
	values, err := rateLimitScript.Run(ctx, l.client, []string{key},
		int(rule.Window/time.Second), rule.MaxRequests, int(rule.Block/time.Second)).Int64Slice()
	if err != nil {
		return RateLimitDecision{}, err
	}
	if len(values) < 2 {
		return RateLimitDecision{}, fmt.Errorf("rate limit script returned %d values", len(values))
	}
	decision := RateLimitDecision{Count: values[0], Allowed: values[0] <= int64(rule.MaxRequests)}
	if !decision.Allowed {
		decision.RetryAfter = time.Duration(values[1]) * time.Second
	}
	return decision, nil
}

type memoryWindow struct {
	count     int64
	expiresAt time.Time
}

type memoryRateLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]*memoryWindow
}

func newMemoryRateLimiter(now func() time.Time) *memoryRateLimiter {
	return &memoryRateLimiter{now: now, windows: make(map[string]*memoryWindow)}
}

func (l *memoryRateLimiter) Hit(_ context.Context, key string, rule RateLimitRule) (RateLimitDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, w := range l.windows {
		if !now.Before(w.expiresAt) {
			delete(l.windows, k)
		}
	}
	w, ok := l.windows[key]
	if !ok {
		w = &memoryWindow{expiresAt: now.Add(rule.Window)}
		l.windows[key] = w
	}
	w.count++
	if w.count == int64(rule.MaxRequests)+1 && rule.Block > 0 {
		w.expiresAt = now.Add(rule.Block)
	}
	decision := RateLimitDecision{Count: w.count, Allowed: w.count <= int64(rule.MaxRequests)}
	if !decision.Allowed {
		decision.RetryAfter = w.expiresAt.Sub(now)
	}
	return decision, nil
}

// RateLimitMiddleware 超限返回 429；计数后端故障时放行并告警
func RateLimitMiddleware(limiter RateLimiter, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || !rule.enabled() {
			c.Next()
			return
		}

		key := ""
		if keyFunc != nil {
			key = strings.TrimSpace(keyFunc(c))
		}
		if key == "" {
			key = c.ClientIP()
		}
		if rule.Prefix != "" {
			key = rule.Prefix + ":" + key
		}

		decision, err := limiter.Hit(c.Request.Context(), key, rule)
		if err != nil {
			logger.Warnw("rate_limit_backend_failed", "prefix", rule.Prefix, "error", err)
			c.Next()
			return
		}
		if decision.Allowed {
			c.Next()
			return
		}

		waitSeconds := int(decision.RetryAfter.Round(time.Second) / time.Second)
		if waitSeconds < 1 {
			waitSeconds = max(int(rule.Window/time.Second), 1)
		}
		msgKey := strings.TrimSpace(rule.MessageKey)
		if msgKey == "" {
			msgKey = "error.too_many_requests"
		}
		handlershared.RequestLog(c).Warnw("rate_limit_exceeded",
			"prefix", rule.Prefix,
			"count", decision.Count,
			"retry_after_seconds", waitSeconds,
		)
		c.Header("Retry-After", fmt.Sprintf("%d", waitSeconds))
		response.Error(c, response.CodeTooManyRequests, i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds))
		c.Abort()
	}
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

// KeyByCustomer 已鉴权客户按 customer_id 限流，未鉴权时退回 IP
func KeyByCustomer(c *gin.Context) string {
	if id := handlershared.ContextUint(c, handlershared.ContextKeyCustomerID); id > 0 {
		return fmt.Sprintf("customer:%d", id)
	}
	return c.ClientIP()
}

// KeyByIPAndJSONField 使用 JSON 字段 + IP 作为限流 key，读取后恢复请求体
func KeyByIPAndJSONField(field string) RateLimitKeyFunc {
	return func(c *gin.Context) string {
		value := strings.ToLower(readJSONField(c, field))
		if value == "" {
			return c.ClientIP()
		}
		return value + "|" + c.ClientIP()
	}
}

func readJSONField(c *gin.Context, field string) string {
	if c == nil || c.Request == nil || c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	var text string
	if err := json.Unmarshal(payload[field], &text); err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

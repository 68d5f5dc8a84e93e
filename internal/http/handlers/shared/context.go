package shared

import (
	"strings"

	"github.com/chiptrack/internal/http/response"

	"github.com/gin-gonic/gin"
)

// 鉴权与请求中间件写入的上下文键
const (
	ContextKeyAdminID    = "admin_id"
	ContextKeyUsername   = "username"
	ContextKeyCustomerID = "customer_id"
	ContextKeyRequestID  = "request_id"
)

// ContextUint 读取中间件写入的主体 ID，缺失或类型不符时返回 0
func ContextUint(c *gin.Context, key string) uint {
	if value, ok := c.Get(key); ok {
		if id, ok := value.(uint); ok {
			return id
		}
	}
	return 0
}

// ContextString 读取字符串上下文值并去除首尾空白
func ContextString(c *gin.Context, key string) string {
	return strings.TrimSpace(c.GetString(key))
}

// RequireContextID 缺失时返回 401；类型不符说明中间件写入有误，返回 500
func RequireContextID(c *gin.Context, key string) (uint, bool) {
	value, exists := c.Get(key)
	if !exists {
		RespondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return 0, false
	}
	id, ok := value.(uint)
	if !ok {
		RespondError(c, response.CodeInternal, "error.context_type_invalid", nil)
		return 0, false
	}
	if id == 0 {
		RespondError(c, response.CodeUnauthorized, "error.user_id_invalid", nil)
		return 0, false
	}
	return id, true
}

package shared

import (
	"strconv"
	"strings"
	"time"

	"github.com/chiptrack/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ParseUintParam 解析路径中的正整数 ID，失败时直接写入 400。
func ParseUintParam(c *gin.Context, key string) (uint, bool) {
	value, err := strconv.ParseUint(strings.TrimSpace(c.Param(key)), 10, 64)
	if err != nil || value == 0 {
		RespondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return 0, false
	}
	return uint(value), true
}

// ParseQueryUint 解析可选的正整数查询参数，空值返回 0。
func ParseQueryUint(c *gin.Context, key string) (uint, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

// ParseQueryTime 解析 RFC3339 或 YYYY-MM-DD 格式的时间参数。
func ParseQueryTime(c *gin.Context, key string) (*time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// 列表分页默认值与上限
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageQuery 读取 page 与 page_size，非法值回落到默认值，page_size 不超过上限。
func PageQuery(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.Query("page_size"))
	if err != nil || pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return page, min(pageSize, MaxPageSize)
}

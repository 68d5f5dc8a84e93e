package router

import (
	"context"
	"time"

	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/logger"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 2 * time.Second

// readinessCheck 单项依赖探测
type readinessCheck struct {
	Name  string
	Probe func(ctx context.Context) error
}

// readinessHandler 依次探测数据库与缓存，任一失败返回 500 并列出失败项
func readinessHandler(checks ...readinessCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		results := make(map[string]interface{}, len(checks))
		ready := true
		for _, check := range checks {
			if err := check.Probe(ctx); err != nil {
				ready = false
				results[check.Name] = err.Error()
				logger.Warnw("readiness_check_failed", "dependency", check.Name, "error", err)
				continue
			}
			results[check.Name] = "ok"
		}
		if !ready {
			response.ErrorWithData(c, response.CodeInternal, "not ready", map[string]interface{}{"checks": results})
			return
		}
		response.Success(c, gin.H{"checks": results})
	}
}

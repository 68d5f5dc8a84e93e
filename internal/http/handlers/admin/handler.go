package admin

import (
	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/provider"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 后台接口：操作员登录、芯片流转、订单与客户管理、RBAC
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c).With("admin_id", currentAdminID(c))
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondBindError(c *gin.Context, err error) {
	handlershared.RespondBindError(c, err)
}

func respondChipError(c *gin.Context, err error) {
	handlershared.RespondChipError(c, err)
}

package public

import (
	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/provider"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler 客户端扫码、白名单与产线编码接口
type Handler struct {
	*provider.Container
}

// New 创建客户端处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
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

var customerOrderErrorRules = []handlershared.MappedError{
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
	{Target: service.ErrOrderStatusInvalid, Code: response.CodeConflict, Key: "error.order_status_invalid"},
}

func respondOrderError(c *gin.Context, err error) {
	handlershared.RespondWithMappedError(c, err, customerOrderErrorRules, response.CodeInternal, "error.internal_error")
}

package shared

import (
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/http/validation"
	"github.com/chiptrack/internal/i18n"
	"github.com/chiptrack/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if id := c.GetString("request_id"); id != "" {
		return logger.SW("request_id", id)
	}
	return logger.S()
}

// RespondAppError 按请求语言渲染文案；带 Cause 的错误记一条 handler_error 日志。
func RespondAppError(c *gin.Context, appErr *response.AppError) {
	if appErr == nil {
		appErr = response.NewAppError(response.CodeInternal, "error.internal_error")
	}
	msg := i18n.Sprintf(i18n.ResolveLocale(c), appErr.Key, appErr.Args...)
	if appErr.Cause != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"key", appErr.Key,
			"path", c.FullPath(),
			"error", appErr.Cause,
		)
	}
	response.ErrorWithData(c, appErr.Code, msg, appErr.Data)
}

// RespondError 返回国际化错误响应。
func RespondError(c *gin.Context, code int, key string, err error) {
	RespondAppError(c, response.NewAppError(code, key).WithCause(err))
}

// RespondErrorWithData 返回国际化错误响应并附带业务数据。
func RespondErrorWithData(c *gin.Context, code int, key string, data gin.H, err error) {
	RespondAppError(c, response.NewAppError(code, key).WithData(data).WithCause(err))
}

// RespondBindError 参数绑定失败时返回字段级提示。
func RespondBindError(c *gin.Context, err error) {
	if details := validation.FieldErrors(err); len(details) > 0 {
		RespondErrorWithData(c, response.CodeBadRequest, "error.bad_request", gin.H{"fields": details}, nil)
		return
	}
	RespondError(c, response.CodeBadRequest, "error.bad_request", err)
}

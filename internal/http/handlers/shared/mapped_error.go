package shared

import (
	"errors"

	"github.com/chiptrack/internal/http/response"

	"github.com/gin-gonic/gin"
)

// MappedError 业务错误到接口错误的映射关系。
type MappedError struct {
	Target error
	Code   int
	Key    string
}

// MatchMappedError 按规则顺序匹配，未命中返回 nil
func MatchMappedError(err error, rules []MappedError) *response.AppError {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			return response.NewAppError(rule.Code, rule.Key)
		}
	}
	return nil
}

// RespondWithMappedError 未命中时使用兜底错误码并记录原始错误。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackKey string) {
	if appErr := MatchMappedError(err, rules); appErr != nil {
		RespondAppError(c, appErr)
		return
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// ConcatMappedErrors 合并多组映射规则。
func ConcatMappedErrors(groups ...[]MappedError) []MappedError {
	var result []MappedError
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

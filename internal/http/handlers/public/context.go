package public

import (
	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
)

func getCustomerID(c *gin.Context) (uint, bool) {
	return handlershared.RequireContextID(c, handlershared.ContextKeyCustomerID)
}

// customerActor 当前客户作为操作人，记录来源 IP 供安全事件使用
func customerActor(c *gin.Context) (service.ChipActor, bool) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return service.ChipActor{}, false
	}
	return service.CustomerActor(customerID, c.ClientIP()), true
}

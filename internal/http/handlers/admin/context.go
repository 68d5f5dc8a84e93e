package admin

import (
	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
)

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.RequireContextID(c, handlershared.ContextKeyAdminID)
}

// adminActor 当前管理员作为芯片操作人
func adminActor(c *gin.Context) (service.ChipActor, bool) {
	adminID, ok := getAdminID(c)
	if !ok {
		return service.ChipActor{}, false
	}
	return service.AdminActor(adminID), true
}

func currentAdminID(c *gin.Context) uint {
	return handlershared.ContextUint(c, handlershared.ContextKeyAdminID)
}

func currentUsername(c *gin.Context) string {
	return handlershared.ContextString(c, handlershared.ContextKeyUsername)
}

func currentRequestID(c *gin.Context) string {
	return handlershared.ContextString(c, handlershared.ContextKeyRequestID)
}

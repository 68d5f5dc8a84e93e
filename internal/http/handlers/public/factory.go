package public

import (
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
)

// RequestEncodingRequest 产线编码请求
type RequestEncodingRequest struct {
	UID string `json:"uid" binding:"required,chip_uid"`
}

// RequestEncoding 产线编码工具按 UID 申请写卡数据
func (h *Handler) RequestEncoding(c *gin.Context) {
	var req RequestEncodingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.ChipService.RequestEncoding(c.Request.Context(), service.FactoryActor(c.ClientIP()), req.UID)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, result)
}

// GetChipInfo 产线按 UID 查询编码状态
func (h *Handler) GetChipInfo(c *gin.Context) {
	info, err := h.ChipService.GetChipInfo(c.Param("uid"))
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, info)
}

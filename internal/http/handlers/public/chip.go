package public

import (
	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
)

// ScanRequest 扫描校验请求
type ScanRequest struct {
	UID string `json:"uid" binding:"required,chip_uid"`
}

// ValidateScan 巡检扫描校验
func (h *Handler) ValidateScan(c *gin.Context) {
	actor, ok := customerActor(c)
	if !ok {
		return
	}
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.ChipService.ValidateScan(c.Request.Context(), actor, req.UID)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, result)
}

// ActivateChipRequest 激活请求（NFC 读出的 block 数据）
type ActivateChipRequest struct {
	UID        string `json:"uid" binding:"required,chip_uid"`
	ChipID     string `json:"chip_id"`
	Block4Data string `json:"block4_data" binding:"omitempty,hex16"`
	Block8Data string `json:"block8_data" binding:"omitempty,hex16"`
}

// ActivateChip 客户首次激活芯片
func (h *Handler) ActivateChip(c *gin.Context) {
	actor, ok := customerActor(c)
	if !ok {
		return
	}
	var req ActivateChipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.ChipService.ActivateChip(c.Request.Context(), actor, service.ActivateChipInput{
		UID:        req.UID,
		ChipID:     req.ChipID,
		Block4Data: req.Block4Data,
		Block8Data: req.Block8Data,
	})
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, gin.H{
		"chip":     result.Chip,
		"order_id": result.Order.ID,
		"order_no": result.Order.OrderNo,
	})
}

// ConfirmDeliveryRequest 签收请求
type ConfirmDeliveryRequest struct {
	PackagingCode string `json:"packaging_code"`
}

// ConfirmDelivery 客户签收芯片
func (h *Handler) ConfirmDelivery(c *gin.Context) {
	actor, ok := customerActor(c)
	if !ok {
		return
	}
	chipID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req ConfirmDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	chip, err := h.ChipService.ConfirmDelivery(c.Request.Context(), actor, chipID, req.PackagingCode)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, chip)
}

// AssignControlPointRequest 绑定巡检点请求
type AssignControlPointRequest struct {
	ControlPointID uint `json:"control_point_id" binding:"required"`
}

// AssignToControlPoint 将芯片绑定到巡检点
func (h *Handler) AssignToControlPoint(c *gin.Context) {
	actor, ok := customerActor(c)
	if !ok {
		return
	}
	chipID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req AssignControlPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	chip, err := h.ChipService.AssignToControlPoint(c.Request.Context(), actor, chipID, req.ControlPointID)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, chip)
}

// RequestSavRequest 售后申请
type RequestSavRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

// RequestSav 客户申请售后，返回生成的保修单
func (h *Handler) RequestSav(c *gin.Context) {
	actor, ok := customerActor(c)
	if !ok {
		return
	}
	chipID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req RequestSavRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	chip, order, err := h.ChipService.RequestSav(c.Request.Context(), actor, chipID, req.Reason)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, gin.H{
		"chip":           chip,
		"warranty_order": order,
	})
}

// DeactivateChip 客户停用芯片
func (h *Handler) DeactivateChip(c *gin.Context) {
	actor, ok := customerActor(c)
	if !ok {
		return
	}
	chipID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}

	chip, err := h.ChipService.Deactivate(c.Request.Context(), actor, chipID)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, chip)
}

// GetChipStatusHistory 芯片流转记录
func (h *Handler) GetChipStatusHistory(c *gin.Context) {
	actor, ok := customerActor(c)
	if !ok {
		return
	}
	chipID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}

	history, err := h.ChipService.ListHistory(actor, chipID)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, history)
}

// GetWhitelist 离线巡检白名单
func (h *Handler) GetWhitelist(c *gin.Context) {
	actor, ok := customerActor(c)
	if !ok {
		return
	}
	customerID, ok := handlershared.ParseUintParam(c, "customer_id")
	if !ok {
		return
	}

	whitelist, err := h.ChipService.GetWhitelist(c.Request.Context(), actor, customerID)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, whitelist)
}

package admin

import (
	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
)

// SupplierOrderLineRequest 采购明细
type SupplierOrderLineRequest struct {
	Label    string `json:"label" binding:"max=255"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// CreateSupplierOrderRequest 创建采购单请求
type CreateSupplierOrderRequest struct {
	Reference    string                     `json:"reference" binding:"required,max=100"`
	SupplierName string                     `json:"supplier_name" binding:"max=255"`
	Lines        []SupplierOrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// CreateSupplierOrder 登记供应商采购单
func (h *Handler) CreateSupplierOrder(c *gin.Context) {
	var req CreateSupplierOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	lines := make([]service.SupplierOrderLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, service.SupplierOrderLineInput{Label: line.Label, Quantity: line.Quantity})
	}
	order, err := h.SupplierOrderService.CreateSupplierOrder(req.Reference, req.SupplierName, lines)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, order)
}

// GetSupplierOrder 采购单详情（含明细）
func (h *Handler) GetSupplierOrder(c *gin.Context) {
	orderID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.SupplierOrderService.GetSupplierOrder(orderID)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, order)
}

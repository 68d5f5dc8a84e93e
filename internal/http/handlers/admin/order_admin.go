package admin

import (
	"strings"

	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/repository"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateOrderRequest 后台创建订单请求
type CreateOrderRequest struct {
	CustomerID    uint         `json:"customer_id" binding:"required"`
	ChipsQuantity int          `json:"chips_quantity" binding:"required,min=1"`
	TotalAmount   models.Money `json:"total_amount"`
	Currency      string       `json:"currency" binding:"omitempty,len=3"`
	Notes         string       `json:"notes" binding:"max=1000"`
}

// CreateOrder 为客户创建标准订单
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.OrderService.CreateOrder(service.CreateOrderInput{
		CustomerID:    req.CustomerID,
		ChipsQuantity: req.ChipsQuantity,
		TotalAmount:   req.TotalAmount.Decimal,
		Currency:      req.Currency,
		Notes:         req.Notes,
	})
	if err != nil {
		respondChipError(c, err)
		return
	}
	requestLog(c).Infow("admin_order_created",
		"order_id", order.ID,
		"customer_id", order.CustomerID,
		"chips_quantity", order.ChipsQuantity,
		"unit_price", order.TotalAmount.PerUnit(order.ChipsQuantity).String(),
	)
	response.Success(c, order)
}

// ListOrders 后台订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	customerID, err := handlershared.ParseQueryUint(c, "customer_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	createdFrom, err := handlershared.ParseQueryTime(c, "created_from")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	createdTo, err := handlershared.ParseQueryTime(c, "created_to")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	orders, total, err := h.OrderService.ListOrdersForAdmin(repository.OrderListFilter{
		Page:        page,
		PageSize:    pageSize,
		CustomerID:  customerID,
		Status:      strings.TrimSpace(c.Query("status")),
		Type:        strings.TrimSpace(c.Query("type")),
		OrderNo:     strings.TrimSpace(c.Query("order_no")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetOrder 后台订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	orderID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrderForAdmin(orderID)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, order)
}

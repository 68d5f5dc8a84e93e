package public

import (
	"strings"

	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListOrders 客户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	page, pageSize := handlershared.PageQuery(c)

	orders, total, err := h.OrderService.ListOrdersByCustomer(repository.OrderListFilter{
		Page:       page,
		PageSize:   pageSize,
		CustomerID: customerID,
		Status:     strings.TrimSpace(c.Query("status")),
		Type:       strings.TrimSpace(c.Query("type")),
		OrderNo:    strings.TrimSpace(c.Query("order_no")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.SuccessWithPage(c, orders, response.BuildPagination(page, pageSize, total))
}

// GetOrder 客户订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	orderID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}

	order, err := h.OrderService.GetOrder(customerID, orderID)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	response.Success(c, order)
}

// ConfirmOrderReceipt 客户确认订单到货，订单进入激活队列
func (h *Handler) ConfirmOrderReceipt(c *gin.Context) {
	customerID, ok := getCustomerID(c)
	if !ok {
		return
	}
	orderID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}

	order, err := h.OrderService.ConfirmReceipt(customerID, orderID)
	if err != nil {
		respondOrderError(c, err)
		return
	}
	response.Success(c, order)
}

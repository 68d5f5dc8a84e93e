package admin

import (
	"errors"
	"time"

	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateCustomerRequest 创建客户请求
type CreateCustomerRequest struct {
	Name               string `json:"name" binding:"required,max=255"`
	SubscriptionStatus string `json:"subscription_status"`
	ChipQuota          *int   `json:"chip_quota" binding:"omitempty,min=0"`
}

// CreateCustomer 创建客户
func (h *Handler) CreateCustomer(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	quota := h.Config.Chip.DefaultChipQuota
	if req.ChipQuota != nil {
		quota = *req.ChipQuota
	}

	customer, err := h.CustomerService.CreateCustomer(service.CreateCustomerInput{
		Name:               req.Name,
		SubscriptionStatus: req.SubscriptionStatus,
		ChipQuota:          quota,
	})
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, customer)
}

// GetCustomer 客户详情
func (h *Handler) GetCustomer(c *gin.Context) {
	customerID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	customer, err := h.CustomerService.GetCustomer(customerID)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, customer)
}

// UpdateSubscriptionRequest 订阅状态变更
type UpdateSubscriptionRequest struct {
	SubscriptionStatus string `json:"subscription_status" binding:"required"`
}

// UpdateCustomerSubscription 更新客户订阅状态
func (h *Handler) UpdateCustomerSubscription(c *gin.Context) {
	customerID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	customer, err := h.CustomerService.UpdateSubscription(c.Request.Context(), customerID, req.SubscriptionStatus)
	if err != nil {
		if errors.Is(err, service.ErrChipInvalidInput) {
			respondError(c, response.CodeBadRequest, "error.subscription_invalid", nil)
			return
		}
		respondChipError(c, err)
		return
	}
	requestLog(c).Infow("admin_customer_subscription_updated",
		"customer_id", customer.ID,
		"subscription_status", customer.SubscriptionStatus,
	)
	response.Success(c, customer)
}

// CreateControlPointRequest 新增检测点
type CreateControlPointRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Location string `json:"location" binding:"max=500"`
}

// CreateControlPoint 为客户新增检测点
func (h *Handler) CreateControlPoint(c *gin.Context) {
	customerID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req CreateControlPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	point, err := h.CustomerService.CreateControlPoint(customerID, req.Name, req.Location)
	if err != nil {
		respondChipError(c, err)
		return
	}
	response.Success(c, point)
}

// IssueCustomerTokenRequest 签发客户 Token
type IssueCustomerTokenRequest struct {
	TTLHours int `json:"ttl_hours" binding:"omitempty,min=1,max=8760"`
}

// IssueCustomerToken 后台为客户签发移动端 Token
func (h *Handler) IssueCustomerToken(c *gin.Context) {
	customerID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req IssueCustomerTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	customer, err := h.CustomerService.GetCustomer(customerID)
	if err != nil {
		respondChipError(c, err)
		return
	}
	token, expiresAt, err := h.AuthService.GenerateCustomerToken(customer, time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	requestLog(c).Infow("admin_customer_token_issued",
		"customer_id", customer.ID,
		"expires_at", expiresAt,
	)
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

package admin

import (
	"errors"
	"time"

	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
)

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string                 `json:"token"`
	User      map[string]interface{} `json:"user"`
	ExpiresAt string                 `json:"expires_at"`
}

// AdminLogin 管理员登录
func (h *Handler) AdminLogin(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	admin, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			requestLog(c).Warnw("admin_login_rejected", "username", req.Username, "client_ip", c.ClientIP())
			respondError(c, response.CodeUnauthorized, "error.login_invalid", nil)
			return
		}
		if errors.Is(err, service.ErrAdminDisabled) {
			requestLog(c).Warnw("admin_login_disabled", "username", req.Username, "client_ip", c.ClientIP())
			respondError(c, response.CodeForbidden, "error.admin_disabled", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, LoginResponse{
		Token: token,
		User: map[string]interface{}{
			"id":       admin.ID,
			"username": admin.Username,
			"station":  admin.Station,
			"is_super": admin.IsSuper,
		},
		ExpiresAt: expiresAt.Format(time.RFC3339),
	})
}

// GetAdminMe 当前管理员信息
func (h *Handler) GetAdminMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return
	}
	response.Success(c, gin.H{
		"id":            admin.ID,
		"username":      admin.Username,
		"station":       admin.Station,
		"is_super":      admin.IsSuper,
		"last_login_at": admin.LastLoginAt,
	})
}

// UpdatePasswordRequest 修改密码请求
type UpdatePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// UpdateAdminPassword 修改管理员密码
func (h *Handler) UpdateAdminPassword(c *gin.Context) {
	id, ok := getAdminID(c)
	if !ok {
		return
	}

	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.AuthService.ChangePassword(id, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidPassword) {
			respondError(c, response.CodeBadRequest, "error.password_invalid", nil)
			return
		}
		if errors.Is(err, service.ErrWeakPassword) {
			respondPasswordPolicyError(c, err)
			return
		}
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}

	response.Success(c, nil)
}

// respondPasswordPolicyError 按策略返回具体的密码要求
func respondPasswordPolicyError(c *gin.Context, err error) {
	var perr *service.PasswordPolicyError
	if errors.As(err, &perr) {
		handlershared.RespondAppError(c, response.NewAppError(response.CodeBadRequest, perr.Key()).WithArgs(perr.Args()...))
		return
	}
	respondError(c, response.CodeBadRequest, "error.password_invalid", err)
}

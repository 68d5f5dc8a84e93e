package admin

import (
	"errors"
	"net/url"
	"strings"

	"github.com/chiptrack/internal/authz"
	"github.com/chiptrack/internal/cache"
	"github.com/chiptrack/internal/constants"
	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/repository"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
)

const protectedSuperAdminUsername = models.DefaultAdminUsername

type authzSetAdminRolesPayload struct {
	Roles []string `json:"roles"`
}

type authzCreateAdminPayload struct {
	Username string   `json:"username" binding:"required,min=3,max=64"`
	Password string   `json:"password" binding:"required"`
	Station  string   `json:"station"`
	Roles    []string `json:"roles"`
}

type authzAdminStatusPayload struct {
	Disabled *bool `json:"disabled" binding:"required"`
}

// GetAuthzMe 获取当前管理员权限快照
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	policies, err := h.AuthzService.GetAdminPolicies(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}

	response.Success(c, gin.H{
		"admin_id": adminID,
		"is_super": c.GetBool("admin_is_super"),
		"roles":    roles,
		"policies": policies,
	})
}

// ListAuthzRoles 内置角色列表
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	response.Success(c, h.AuthzService.ListRoles())
}

// GetAuthzRolePolicies 获取角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.role_invalid", nil)
		return
	}

	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondAuthzRoleError(c, err)
		return
	}
	response.Success(c, policies)
}

// ListAuthzAdmins 管理员列表（含角色）
func (h *Handler) ListAuthzAdmins(c *gin.Context) {
	station := strings.TrimSpace(c.Query("station"))
	if station != "" && !constants.IsValidStation(station) {
		respondError(c, response.CodeBadRequest, "error.admin_station_invalid", nil)
		return
	}
	admins, err := h.AdminRepo.List(repository.AdminListFilter{
		Station:         station,
		IncludeDisabled: c.Query("include_disabled") == "true",
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}

	items := make([]gin.H, 0, len(admins))
	for _, admin := range admins {
		roles, roleErr := h.AuthzService.GetAdminRoles(admin.ID)
		if roleErr != nil {
			respondError(c, response.CodeInternal, "error.internal_error", roleErr)
			return
		}
		items = append(items, gin.H{
			"id":            admin.ID,
			"username":      admin.Username,
			"station":       admin.Station,
			"disabled":      admin.Disabled,
			"is_super":      admin.IsSuper,
			"last_login_at": admin.LastLoginAt,
			"created_at":    admin.CreatedAt,
			"roles":         roles,
		})
	}
	response.Success(c, items)
}

// CreateAuthzAdmin 创建后台操作员并分配角色
func (h *Handler) CreateAuthzAdmin(c *gin.Context) {
	var req authzCreateAdminPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	username := strings.TrimSpace(req.Username)
	if len(username) < 3 || strings.EqualFold(username, protectedSuperAdminUsername) {
		respondError(c, response.CodeBadRequest, "error.admin_username_invalid", nil)
		return
	}

	station := strings.TrimSpace(req.Station)
	if station == "" {
		station = constants.StationOffice
	}
	if !constants.IsValidStation(station) {
		respondError(c, response.CodeBadRequest, "error.admin_station_invalid", nil)
		return
	}

	existing, err := h.AdminRepo.GetByUsername(username)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	if existing != nil {
		respondError(c, response.CodeConflict, "error.admin_username_exists", nil)
		return
	}
	if err := h.AuthService.ValidatePassword(req.Password); err != nil {
		respondPasswordPolicyError(c, err)
		return
	}
	hash, err := h.AuthService.HashPassword(req.Password)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}

	admin := &models.Admin{Username: username, PasswordHash: hash, Station: station}
	if err := h.AdminRepo.Create(admin); err != nil {
		if models.IsDuplicateKey(err) {
			respondError(c, response.CodeConflict, "error.admin_username_exists", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	_ = cache.SetAdminAuthState(c.Request.Context(), cache.BuildAdminAuthState(admin))

	if len(req.Roles) > 0 {
		if err := h.AuthzService.SetAdminRoles(admin.ID, req.Roles); err != nil {
			respondAuthzRoleError(c, err)
			return
		}
	}
	h.recordAuthzAudit(c, "admin_create", &admin.ID, nil)

	logger.Infow("admin_authz_admin_created",
		"operator_admin_id", currentAdminID(c),
		"target_admin_id", admin.ID,
		"target_username", admin.Username,
		"roles", req.Roles,
	)
	response.Success(c, admin)
}

// GetAuthzAdminRoles 获取管理员角色
func (h *Handler) GetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.Success(c, roles)
}

// SetAuthzAdminRoles 覆盖设置管理员角色
func (h *Handler) SetAuthzAdminRoles(c *gin.Context) {
	adminID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	admin, err := h.AdminRepo.GetByID(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	if admin == nil {
		respondError(c, response.CodeNotFound, "error.not_found", nil)
		return
	}

	var req authzSetAdminRolesPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	previous, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	if err := h.AuthzService.SetAdminRoles(adminID, req.Roles); err != nil {
		respondAuthzRoleError(c, err)
		return
	}
	h.recordAuthzAudit(c, "admin_roles_update", &adminID, previous)

	logger.Infow("admin_authz_admin_roles_updated",
		"operator_admin_id", currentAdminID(c),
		"target_admin_id", adminID,
		"roles", req.Roles,
	)
	response.Success(c, nil)
}

// SetAuthzAdminStatus 停用或启用操作员
func (h *Handler) SetAuthzAdminStatus(c *gin.Context) {
	adminID, ok := handlershared.ParseUintParam(c, "id")
	if !ok {
		return
	}
	var req authzAdminStatusPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if *req.Disabled && adminID == currentAdminID(c) {
		respondError(c, response.CodeBadRequest, "error.admin_disable_self", nil)
		return
	}
	admin, err := h.AuthService.SetAdminDisabled(adminID, *req.Disabled)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}

	logger.Infow("admin_authz_admin_status_updated",
		"operator_admin_id", currentAdminID(c),
		"target_admin_id", adminID,
		"disabled", admin.Disabled,
	)
	response.Success(c, gin.H{"id": admin.ID, "disabled": admin.Disabled})
}

// ListAuthzAuditLogs 权限审计日志
func (h *Handler) ListAuthzAuditLogs(c *gin.Context) {
	page, pageSize := handlershared.PageQuery(c)
	operatorID, err := handlershared.ParseQueryUint(c, "operator_admin_id")
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	targetID, err := handlershared.ParseQueryUint(c, "target_admin_id")
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

	items, total, err := h.AuthzAuditService.ListForAdmin(repository.AuthzAuditLogListFilter{
		Page:            page,
		PageSize:        pageSize,
		OperatorAdminID: operatorID,
		TargetAdminID:   targetID,
		Action:          strings.TrimSpace(c.Query("action")),
		CreatedFrom:     createdFrom,
		CreatedTo:       createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal_error", err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// recordAuthzAudit 以变更后的实际角色为准记录差异
func (h *Handler) recordAuthzAudit(c *gin.Context, action string, targetAdminID *uint, previous []string) {
	if h == nil || h.AuthzAuditService == nil || targetAdminID == nil {
		return
	}
	result, err := h.AuthzService.GetAdminRoles(*targetAdminID)
	if err == nil {
		err = h.AuthzAuditService.Record(service.AuthzAuditRecordInput{
			OperatorAdminID:  currentAdminID(c),
			OperatorUsername: currentUsername(c),
			TargetAdminID:    targetAdminID,
			Action:           action,
			PreviousRoles:    previous,
			ResultRoles:      result,
			RequestID:        currentRequestID(c),
		})
	}
	if err != nil {
		logger.Warnw("admin_authz_audit_record_failed",
			"error", err,
			"action", action,
			"operator_admin_id", currentAdminID(c),
		)
	}
}

// respondAuthzRoleError 未知角色按参数错误返回，其余视为内部错误
func respondAuthzRoleError(c *gin.Context, err error) {
	if errors.Is(err, authz.ErrUnknownRole) {
		respondError(c, response.CodeBadRequest, "error.role_invalid", nil)
		return
	}
	respondError(c, response.CodeInternal, "error.internal_error", err)
}

func decodeRoleParam(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}

package service

import (
	"sort"
	"strings"
	"time"

	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/repository"
)

// AuthzAuditRecordInput 角色变更审计输入
type AuthzAuditRecordInput struct {
	OperatorAdminID  uint
	OperatorUsername string
	TargetAdminID    *uint
	Action           string
	PreviousRoles    []string
	ResultRoles      []string
	RequestID        string
}

// AuthzAuditService 权限审计服务
type AuthzAuditService struct {
	repo repository.AuthzAuditLogRepository
	now  func() time.Time
}

// NewAuthzAuditService 创建权限审计服务
func NewAuthzAuditService(repo repository.AuthzAuditLogRepository) *AuthzAuditService {
	return &AuthzAuditService{repo: repo, now: time.Now}
}

// Record 写入角色变更；缺少操作人或动作时忽略
func (s *AuthzAuditService) Record(input AuthzAuditRecordInput) error {
	if s == nil || s.repo == nil {
		return nil
	}
	action := strings.TrimSpace(input.Action)
	if input.OperatorAdminID == 0 || action == "" {
		return nil
	}

	granted, revoked := diffRoles(input.PreviousRoles, input.ResultRoles)
	item := &models.AuthzAuditLog{
		OperatorAdminID:  input.OperatorAdminID,
		OperatorUsername: strings.TrimSpace(input.OperatorUsername),
		TargetAdminID:    input.TargetAdminID,
		Action:           action,
		GrantedRoles:     granted,
		RevokedRoles:     revoked,
		ResultRoles:      sortedRoles(input.ResultRoles),
		RequestID:        strings.TrimSpace(input.RequestID),
		CreatedAt:        s.now(),
	}
	return s.repo.Create(item)
}

// ListForAdmin 管理端查询权限审计日志
func (s *AuthzAuditService) ListForAdmin(filter repository.AuthzAuditLogListFilter) ([]models.AuthzAuditLog, int64, error) {
	if s == nil || s.repo == nil {
		return []models.AuthzAuditLog{}, 0, nil
	}
	return s.repo.ListAdmin(filter)
}

// diffRoles 计算新增与移除的角色
func diffRoles(previous, result []string) (models.StringArray, models.StringArray) {
	before := make(map[string]struct{}, len(previous))
	for _, role := range previous {
		before[role] = struct{}{}
	}
	after := make(map[string]struct{}, len(result))
	for _, role := range result {
		after[role] = struct{}{}
	}

	granted := models.StringArray{}
	for role := range after {
		if _, ok := before[role]; !ok {
			granted = append(granted, role)
		}
	}
	revoked := models.StringArray{}
	for role := range before {
		if _, ok := after[role]; !ok {
			revoked = append(revoked, role)
		}
	}
	sort.Strings(granted)
	sort.Strings(revoked)
	return granted, revoked
}

func sortedRoles(roles []string) models.StringArray {
	out := make(models.StringArray, 0, len(roles))
	out = append(out, roles...)
	sort.Strings(out)
	return out
}

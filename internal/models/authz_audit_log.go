package models

import "time"

// AuthzAuditLog 后台角色分配审计日志
// 说明：记录操作人对目标管理员的角色变更，保存变更前后差异。
type AuthzAuditLog struct {
	ID               uint        `gorm:"primarykey" json:"id"`
	OperatorAdminID  uint        `gorm:"index;not null" json:"operator_admin_id"`
	OperatorUsername string      `gorm:"type:varchar(100);index;not null;default:''" json:"operator_username"`
	TargetAdminID    *uint       `gorm:"index" json:"target_admin_id,omitempty"`
	Action           string      `gorm:"type:varchar(100);index;not null" json:"action"`
	GrantedRoles     StringArray `gorm:"type:text" json:"granted_roles"`
	RevokedRoles     StringArray `gorm:"type:text" json:"revoked_roles"`
	ResultRoles      StringArray `gorm:"type:text" json:"result_roles"`
	RequestID        string      `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`
	CreatedAt        time.Time   `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (AuthzAuditLog) TableName() string {
	return "authz_audit_logs"
}

package models

import "time"

// Admin 后台操作员（工坊、仓库、售后与办公室人员）
type Admin struct {
	ID                 uint       `gorm:"primarykey" json:"id"`                                            // 主键
	Username           string     `gorm:"uniqueIndex;type:varchar(64);not null" json:"username"`           // 登录名
	PasswordHash       string     `gorm:"not null" json:"-"`                                               // bcrypt 哈希
	Station            string     `gorm:"type:varchar(16);index;not null;default:'bureau'" json:"station"` // 岗位
	Disabled           bool       `gorm:"not null;default:false" json:"disabled"`                          // 停用后禁止登录
	TokenVersion       uint64     `gorm:"not null;default:0" json:"-"`                                     // 递增即吊销全部 Token
	TokenInvalidBefore *time.Time `gorm:"index" json:"-"`                                                  // 早于该时间签发的 Token 失效
	IsSuper            bool       `gorm:"not null;default:false;index" json:"is_super"`                    // 跳过 RBAC
	LastLoginAt        *time.Time `json:"last_login_at"`
	CreatedAt          time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (Admin) TableName() string {
	return "admins"
}

// RevokeTokens 使已签发的全部 Token 失效
func (a *Admin) RevokeTokens(at time.Time) {
	a.TokenVersion++
	a.TokenInvalidBefore = &at
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer 客户（租户）表
type Customer struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                       // 主键
	Name               string         `gorm:"not null" json:"name"`                                       // 客户名称
	Status             string         `gorm:"index;not null;default:'active'" json:"status"`              // 账号状态
	SubscriptionStatus string         `gorm:"index;not null;default:'active'" json:"subscription_status"` // 订阅状态
	ChipQuota          int            `gorm:"not null;default:0" json:"chip_quota"`                       // 芯片配额（0 表示使用系统默认）
	TokenVersion       uint64         `gorm:"not null;default:0" json:"-"`                                // Token 版本
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt          time.Time      `gorm:"index" json:"updated_at"`                                    // 更新时间
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间
}

// TableName 指定表名
func (Customer) TableName() string {
	return "customers"
}

// ControlPoint 检测点（设备台账）
type ControlPoint struct {
	ID         uint           `gorm:"primarykey" json:"id"`              // 主键
	CustomerID uint           `gorm:"index;not null" json:"customer_id"` // 所属客户
	Name       string         `gorm:"not null" json:"name"`              // 名称
	Location   string         `json:"location,omitempty"`                // 位置
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`           // 创建时间
	UpdatedAt  time.Time      `gorm:"index" json:"updated_at"`           // 更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                    // 软删除时间
}

// TableName 指定表名
func (ControlPoint) TableName() string {
	return "control_points"
}

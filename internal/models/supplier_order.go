package models

import (
	"time"

	"gorm.io/gorm"
)

// SupplierOrder 供应商采购单
type SupplierOrder struct {
	ID           uint           `gorm:"primarykey" json:"id"`                  // 主键
	Reference    string         `gorm:"uniqueIndex;not null" json:"reference"` // 采购单号
	SupplierName string         `json:"supplier_name"`                         // 供应商
	Status       string         `gorm:"index;not null" json:"status"`          // 状态
	ReceivedAt   *time.Time     `json:"received_at,omitempty"`                 // 到货时间
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`               // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`               // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                        // 软删除时间

	Lines []SupplierOrderLine `gorm:"foreignKey:SupplierOrderID" json:"lines,omitempty"` // 采购明细
}

// TableName 指定表名
func (SupplierOrder) TableName() string {
	return "supplier_orders"
}

// SupplierOrderLine 供应商采购明细
type SupplierOrderLine struct {
	ID              uint      `gorm:"primarykey" json:"id"`                    // 主键
	SupplierOrderID uint      `gorm:"index;not null" json:"supplier_order_id"` // 采购单ID
	Label           string    `json:"label"`                                   // 品名
	Quantity        int       `gorm:"not null" json:"quantity"`                // 数量
	CreatedAt       time.Time `gorm:"index" json:"created_at"`                 // 创建时间
}

// TableName 指定表名
func (SupplierOrderLine) TableName() string {
	return "supplier_order_lines"
}

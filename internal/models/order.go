package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 客户订单表
type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                      // 主键
	OrderNo         string         `gorm:"uniqueIndex;not null" json:"order_no"`                      // 订单编号
	CustomerID      uint           `gorm:"index;not null" json:"customer_id"`                         // 客户ID
	Type            string         `gorm:"type:varchar(20);index;not null" json:"type"`               // 订单类型（standard/warranty）
	Status          string         `gorm:"type:varchar(20);index;not null" json:"status"`             // 订单状态
	ChipsQuantity   int            `gorm:"not null;default:0" json:"chips_quantity"`                  // 芯片数量
	IsStockReserved bool           `gorm:"not null;default:false" json:"is_stock_reserved"`           // 是否占用库存
	Currency        string         `gorm:"not null" json:"currency"`                                  // 币种
	TotalAmount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"` // 金额
	SourceChipID    *uint          `gorm:"index" json:"source_chip_id,omitempty"`                     // 售后来源芯片
	Notes           string         `gorm:"type:text" json:"notes,omitempty"`                          // 备注
	ShippedAt       *time.Time     `gorm:"index" json:"shipped_at"`                                   // 发货时间
	DeliveredAt     *time.Time     `gorm:"index" json:"delivered_at"`                                 // 签收时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                   // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

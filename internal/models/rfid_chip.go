package models

import (
	"time"

	"github.com/chiptrack/internal/constants"
)

// RfidChip RFID 芯片登记表
type RfidChip struct {
	ID                       uint                 `gorm:"primarykey" json:"id"`                                   // 主键（芯片内部编号，写入 NFC block 4）
	ChipID                   string               `gorm:"type:varchar(36);uniqueIndex;not null" json:"chip_id"`   // 芯片 UUID
	UID                      string               `gorm:"type:varchar(32);uniqueIndex;not null" json:"uid"`       // 出厂 UID（规范化大写十六进制）
	Salt                     *string              `gorm:"type:varchar(64)" json:"-"`                              // 编码盐值
	Checksum                 *string              `gorm:"type:varchar(64)" json:"-"`                              // 校验和（NFC block 8）
	Status                   constants.ChipStatus `gorm:"type:varchar(32);index;not null" json:"status"`          // 生命周期状态
	CustomerID               *uint                `gorm:"index" json:"customer_id,omitempty"`                     // 所属客户
	OrderID                  *uint                `gorm:"index" json:"order_id,omitempty"`                        // 激活时消耗的客户订单
	SupplierOrderID          *uint                `gorm:"index" json:"supplier_order_id,omitempty"`               // 供应商订单
	ClientOrderID            *uint                `gorm:"index" json:"client_order_id,omitempty"`                 // 发货关联的客户订单
	ControlPointID           *uint                `gorm:"index" json:"control_point_id,omitempty"`                // 绑定的检测点
	PackagingCode            string               `gorm:"type:varchar(64);index" json:"packaging_code,omitempty"` // 包装码
	ReplacementChipID        *uint                `gorm:"index" json:"replacement_chip_id,omitempty"`             // 替换芯片
	SavReason                string               `gorm:"type:text" json:"sav_reason,omitempty"`                  // 售后原因
	ArchiveReason            string               `gorm:"type:text" json:"archive_reason,omitempty"`              // 归档原因
	ReceivedFromSupplierDate *time.Time           `json:"received_from_supplier_date,omitempty"`                  // 供应商到货时间
	EncodingDate             *time.Time           `json:"encoding_date,omitempty"`                                // 编码时间
	ShippedToClientDate      *time.Time           `json:"shipped_to_client_date,omitempty"`                       // 发货时间
	DeliveredToClientDate    *time.Time           `json:"delivered_to_client_date,omitempty"`                     // 签收时间
	FirstScanDate            *time.Time           `json:"first_scan_date,omitempty"`                              // 首次扫描时间
	LastScanDate             *time.Time           `json:"last_scan_date,omitempty"`                               // 最近扫描时间
	AssignmentDate           *time.Time           `json:"assignment_date,omitempty"`                              // 绑定检测点时间
	SavReturnDate            *time.Time           `json:"sav_return_date,omitempty"`                              // 售后退回时间
	DeactivationDate         *time.Time           `json:"deactivation_date,omitempty"`                            // 停用时间
	ArchivedDate             *time.Time           `json:"archived_date,omitempty"`                                // 归档时间
	Version                  uint64               `gorm:"not null;default:0" json:"version"`                      // 乐观锁版本
	CreatedAt                time.Time            `gorm:"index" json:"created_at"`                                // 创建时间
	UpdatedAt                time.Time            `gorm:"index" json:"updated_at"`                                // 更新时间
}

// TableName 指定表名
func (RfidChip) TableName() string {
	return "rfid_chips"
}

// IsEncoded 是否已完成编码
func (c *RfidChip) IsEncoded() bool {
	return c != nil && c.Salt != nil && c.Checksum != nil && *c.Salt != "" && *c.Checksum != ""
}

// RfidChipStatusHistory 芯片状态流转记录（只追加）
type RfidChipStatusHistory struct {
	ID         uint                 `gorm:"primarykey" json:"id"`                         // 主键
	RfidChipID uint                 `gorm:"index;not null" json:"rfid_chip_id"`           // 芯片ID
	Event      constants.ChipEvent  `gorm:"type:varchar(40);not null" json:"event"`       // 触发事件
	FromStatus constants.ChipStatus `gorm:"type:varchar(32);not null" json:"from_status"` // 原状态
	ToStatus   constants.ChipStatus `gorm:"type:varchar(32);not null" json:"to_status"`   // 新状态
	ChangedAt  time.Time            `gorm:"index;not null" json:"changed_at"`             // 变更时间
	ChangedBy  string               `gorm:"type:varchar(64);not null" json:"changed_by"`  // 操作人
	Notes      string               `gorm:"type:text" json:"notes,omitempty"`             // 备注
}

// TableName 指定表名
func (RfidChipStatusHistory) TableName() string {
	return "rfid_chip_status_histories"
}

// ChipSecurityEvent 芯片安全拦截记录
type ChipSecurityEvent struct {
	ID         uint       `gorm:"primarykey" json:"id"`                          // 主键
	RfidChipID *uint      `gorm:"index" json:"rfid_chip_id,omitempty"`           // 芯片ID（未知 UID 时为空）
	UID        string     `gorm:"type:varchar(64);index" json:"uid"`             // 上报的 UID
	CustomerID *uint      `gorm:"index" json:"customer_id,omitempty"`            // 请求方客户
	Reason     string     `gorm:"type:varchar(40);index;not null" json:"reason"` // 拦截原因
	Detail     string     `gorm:"type:text" json:"detail,omitempty"`             // 详情
	ClientIP   string     `gorm:"type:varchar(64)" json:"client_ip,omitempty"`   // 客户端IP
	NotifiedAt *time.Time `json:"notified_at,omitempty"`                         // 告警投递时间
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                       // 创建时间
}

// TableName 指定表名
func (ChipSecurityEvent) TableName() string {
	return "rfid_chip_security_events"
}

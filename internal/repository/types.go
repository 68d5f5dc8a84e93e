package repository

import (
	"time"

	"github.com/chiptrack/internal/constants"
)

// ChipListFilter 查询芯片列表的过滤条件
type ChipListFilter struct {
	Page            int
	PageSize        int
	Status          constants.ChipStatus
	CustomerID      uint
	SupplierOrderID uint
	UID             string // UID 或包装码模糊匹配
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}

// ChipSecurityEventListFilter 查询安全事件的过滤条件
type ChipSecurityEventListFilter struct {
	Page        int
	PageSize    int
	Reason      string
	UID         string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	CustomerID  uint
	Status      string
	Type        string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ChipStatusCount 按状态聚合结果
type ChipStatusCount struct {
	Status constants.ChipStatus
	Total  int64
}

// AuthzAuditLogListFilter 权限审计日志过滤条件
type AuthzAuditLogListFilter struct {
	Page            int
	PageSize        int
	OperatorAdminID uint
	TargetAdminID   uint
	Action          string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}

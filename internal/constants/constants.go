package constants

// ChipStatus 芯片生命周期状态（封闭枚举）
type ChipStatus string

// 芯片状态常量
const (
	ChipStatusInTransit   ChipStatus = "EN_TRANSIT"
	ChipStatusInWorkshop  ChipStatus = "EN_ATELIER"
	ChipStatusInStock     ChipStatus = "EN_STOCK"
	ChipStatusShipping    ChipStatus = "EN_LIVRAISON"
	ChipStatusDelivered   ChipStatus = "LIVREE"
	ChipStatusInactive    ChipStatus = "INACTIVE"
	ChipStatusActive      ChipStatus = "ACTIVE"
	ChipStatusSavReturn   ChipStatus = "RETOUR_SAV"
	ChipStatusSavReceived ChipStatus = "RECEPTION_SAV"
	ChipStatusReplaced    ChipStatus = "REMPLACEE"
	ChipStatusArchived    ChipStatus = "ARCHIVEE"
)

// AllChipStatuses 按生命周期顺序列出全部状态
var AllChipStatuses = []ChipStatus{
	ChipStatusInTransit,
	ChipStatusInWorkshop,
	ChipStatusInStock,
	ChipStatusShipping,
	ChipStatusDelivered,
	ChipStatusInactive,
	ChipStatusActive,
	ChipStatusSavReturn,
	ChipStatusSavReceived,
	ChipStatusReplaced,
	ChipStatusArchived,
}

// IsValid 判断状态是否属于枚举
func (s ChipStatus) IsValid() bool {
	for _, item := range AllChipStatuses {
		if item == s {
			return true
		}
	}
	return false
}

// IsStockHolding 未绑定客户的库存态
func (s ChipStatus) IsStockHolding() bool {
	return s == ChipStatusInTransit || s == ChipStatusInWorkshop || s == ChipStatusInStock
}

// ParseChipStatus 解析外部输入的状态
func ParseChipStatus(raw string) (ChipStatus, bool) {
	status := ChipStatus(raw)
	if !status.IsValid() {
		return "", false
	}
	return status, true
}

// ChipEvent 芯片流转事件
type ChipEvent string

// 芯片事件常量
const (
	ChipEventReceiveFromSupplier ChipEvent = "receive_from_supplier"
	ChipEventEncode              ChipEvent = "encode"
	ChipEventShipToClient        ChipEvent = "ship_to_client"
	ChipEventConfirmDelivery     ChipEvent = "confirm_delivery"
	ChipEventActivate            ChipEvent = "activate"
	ChipEventAssign              ChipEvent = "assign_to_control_point"
	ChipEventRequestSav          ChipEvent = "request_sav"
	ChipEventReceiveSav          ChipEvent = "receive_sav"
	ChipEventReplace             ChipEvent = "replace"
	ChipEventArchive             ChipEvent = "archive"
	ChipEventDeactivate          ChipEvent = "deactivate"
	// ChipEventScan 只读校验，不产生流转
	ChipEventScan ChipEvent = "scan"
)

// 订单状态常量
const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCanceled  = "CANCELED"
)

// 订单类型常量
const (
	OrderTypeStandard = "standard"
	OrderTypeWarranty = "warranty"
)

// 客户状态常量
const (
	CustomerStatusActive   = "active"
	CustomerStatusDisabled = "disabled"
)

// 订阅状态常量
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// 供应商订单状态常量
const (
	SupplierOrderStatusOpen     = "open"
	SupplierOrderStatusReceived = "received"
)

// 芯片安全事件原因
const (
	ChipSecurityReasonUnknownUID       = "unknown_uid"
	ChipSecurityReasonChipIDMismatch   = "chip_id_mismatch"
	ChipSecurityReasonBlock4Mismatch   = "block4_mismatch"
	ChipSecurityReasonChecksumMismatch = "checksum_mismatch"
	ChipSecurityReasonChecksumCorrupt  = "checksum_corrupt"
	ChipSecurityReasonForeignChip      = "foreign_chip"
)

// 操作人标识
const (
	ChangedBySystem   = "system"
	ChangedByFactory  = "factory"
	ChangedByCustomer = "customer"
	ChangedByAdmin    = "admin"
)

// 后台操作员岗位
const (
	StationOffice    = "bureau"
	StationAtelier   = "atelier"
	StationWarehouse = "entrepot"
	StationSAV       = "sav"
)

// IsValidStation 校验岗位取值
func IsValidStation(station string) bool {
	switch station {
	case StationOffice, StationAtelier, StationWarehouse, StationSAV:
		return true
	}
	return false
}

// 系统默认货币
const DefaultCurrency = "EUR"

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskChipSecurityAlert    = "chip:security_alert"
	TaskChipWhitelistRefresh = "chip:whitelist_refresh"
	TaskChipSavRequested     = "chip:sav_requested"
)

package service

import "errors"

// 通用错误
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrWeakPassword       = errors.New("weak password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrCustomerDisabled   = errors.New("customer disabled")
	ErrAdminDisabled      = errors.New("admin disabled")
)

// 芯片参数校验错误
var (
	ErrChipInvalidUID          = errors.New("invalid chip uid")
	ErrChipInvalidInput        = errors.New("invalid chip input")
	ErrChipPayloadMissing      = errors.New("chip payload missing")
	ErrChipPayloadMalformed    = errors.New("chip payload malformed")
	ErrChipArchiveReasonShort  = errors.New("archive reason too short")
	ErrChipSavReasonRequired   = errors.New("sav reason required")
	ErrPackagingCodeMismatch   = errors.New("packaging code mismatch")
	ErrChipReplacementSelf     = errors.New("chip cannot replace itself")
	ErrImportEmpty             = errors.New("import uid list empty")
	ErrImportTooLarge          = errors.New("import uid list too large")
	ErrSpreadsheetUnsupported  = errors.New("spreadsheet format unsupported")
	ErrSpreadsheetUIDMissing   = errors.New("spreadsheet uid column missing")
	ErrSpreadsheetTooLarge     = errors.New("spreadsheet too large")
	ErrSpreadsheetParseFailed  = errors.New("spreadsheet parse failed")
	ErrOrderNotShippable       = errors.New("order cannot receive chips")
	ErrControlPointNotOwned    = errors.New("control point belongs to another customer")
	ErrChipHistoryReplayFailed = errors.New("chip history is not a valid lifecycle walk")
)

// 资源不存在
var (
	ErrChipNotFound            = errors.New("chip not found")
	ErrReplacementChipNotFound = errors.New("replacement chip not found")
	ErrOrderNotFound           = errors.New("order not found")
	ErrSupplierOrderNotFound   = errors.New("supplier order not found")
	ErrCustomerNotFound        = errors.New("customer not found")
	ErrControlPointNotFound    = errors.New("control point not found")
)

// 状态冲突
var (
	ErrChipInvalidTransition = errors.New("chip invalid transition")
	ErrChipAlreadyEncoded    = errors.New("chip already encoded")
	ErrChipDuplicate         = errors.New("chip uid already registered")
	ErrChipConcurrentUpdate  = errors.New("chip modified concurrently")
	ErrChipNotOwned          = errors.New("chip belongs to another customer")
	ErrOrderStatusInvalid    = errors.New("order status invalid")
)

// 安全拦截（对外统一提示，日志记录具体原因）
var (
	ErrChipSecurityViolation = errors.New("chip verification failed")
	ErrChipUnknownUID        = errors.New("chip uid not provisioned")
	ErrChipIDMismatch        = errors.New("chip id mismatch")
	ErrChipBlock4Mismatch    = errors.New("chip block4 mismatch")
	ErrChipChecksumMismatch  = errors.New("chip checksum mismatch")
	ErrChipForeignScan       = errors.New("chip scanned by foreign customer")
)

// 配额与业务规则
var (
	ErrSubscriptionInactive = errors.New("subscription inactive")
	ErrChipQuotaExceeded    = errors.New("chip quota exceeded")
	ErrNoEligibleOrder      = errors.New("no delivered order with free slots")
	ErrImportCountMismatch  = errors.New("import count mismatch")
)

// 依赖失败
var (
	ErrChipFetchFailed     = errors.New("chip fetch failed")
	ErrChipUpdateFailed    = errors.New("chip update failed")
	ErrChipHistoryFailed   = errors.New("chip history write failed")
	ErrChipCryptoFailed    = errors.New("chip crypto failed")
	ErrOrderFetchFailed    = errors.New("order fetch failed")
	ErrOrderUpdateFailed   = errors.New("order update failed")
	ErrOrderCreateFailed   = errors.New("order create failed")
	ErrCustomerFetchFailed = errors.New("customer fetch failed")
)

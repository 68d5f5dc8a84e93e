package shared

import (
	"errors"

	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
)

// ChipValidationErrorRules 参数类错误
var ChipValidationErrorRules = []MappedError{
	{Target: service.ErrChipInvalidUID, Code: response.CodeBadRequest, Key: "error.chip_uid_invalid"},
	{Target: service.ErrChipInvalidInput, Code: response.CodeBadRequest, Key: "error.chip_input_invalid"},
	{Target: service.ErrChipPayloadMissing, Code: response.CodeBadRequest, Key: "error.chip_payload_missing"},
	{Target: service.ErrChipPayloadMalformed, Code: response.CodeBadRequest, Key: "error.chip_payload_malformed"},
	{Target: service.ErrChipSavReasonRequired, Code: response.CodeBadRequest, Key: "error.chip_sav_reason_required"},
	{Target: service.ErrPackagingCodeMismatch, Code: response.CodeBadRequest, Key: "error.packaging_code_mismatch"},
	{Target: service.ErrChipReplacementSelf, Code: response.CodeBadRequest, Key: "error.chip_replacement_self"},
	{Target: service.ErrImportEmpty, Code: response.CodeBadRequest, Key: "error.import_empty"},
	{Target: service.ErrImportTooLarge, Code: response.CodeBadRequest, Key: "error.import_too_large"},
	{Target: service.ErrSpreadsheetUnsupported, Code: response.CodeBadRequest, Key: "error.spreadsheet_unsupported"},
	{Target: service.ErrSpreadsheetUIDMissing, Code: response.CodeBadRequest, Key: "error.spreadsheet_uid_missing"},
	{Target: service.ErrSpreadsheetTooLarge, Code: response.CodeBadRequest, Key: "error.spreadsheet_too_large"},
	{Target: service.ErrSpreadsheetParseFailed, Code: response.CodeBadRequest, Key: "error.spreadsheet_parse_failed"},
	{Target: service.ErrOrderNotShippable, Code: response.CodeBadRequest, Key: "error.order_not_shippable"},
	{Target: service.ErrControlPointNotOwned, Code: response.CodeBadRequest, Key: "error.control_point_not_owned"},
}

// ChipNotFoundErrorRules 资源不存在
var ChipNotFoundErrorRules = []MappedError{
	{Target: service.ErrChipNotFound, Code: response.CodeNotFound, Key: "error.chip_not_found"},
	{Target: service.ErrReplacementChipNotFound, Code: response.CodeNotFound, Key: "error.replacement_chip_not_found"},
	{Target: service.ErrOrderNotFound, Code: response.CodeNotFound, Key: "error.order_not_found"},
	{Target: service.ErrSupplierOrderNotFound, Code: response.CodeNotFound, Key: "error.supplier_order_not_found"},
	{Target: service.ErrCustomerNotFound, Code: response.CodeNotFound, Key: "error.customer_not_found"},
	{Target: service.ErrControlPointNotFound, Code: response.CodeNotFound, Key: "error.control_point_not_found"},
}

// ChipConflictErrorRules 状态冲突与并发
var ChipConflictErrorRules = []MappedError{
	{Target: service.ErrChipAlreadyEncoded, Code: response.CodeConflict, Key: "error.chip_already_encoded"},
	{Target: service.ErrChipConcurrentUpdate, Code: response.CodeConflict, Key: "error.chip_concurrent_update"},
	{Target: service.ErrChipNotOwned, Code: response.CodeConflict, Key: "error.chip_not_owned"},
	{Target: service.ErrOrderStatusInvalid, Code: response.CodeConflict, Key: "error.order_status_invalid"},
	{Target: service.ErrChipHistoryReplayFailed, Code: response.CodeConflict, Key: "error.chip_history_corrupt"},
}

// ChipBusinessRuleErrorRules 配额、订阅与 FIFO
var ChipBusinessRuleErrorRules = []MappedError{
	{Target: service.ErrSubscriptionInactive, Code: response.CodeUnprocessable, Key: "error.subscription_inactive"},
	{Target: service.ErrCustomerDisabled, Code: response.CodeUnprocessable, Key: "error.customer_disabled"},
	{Target: service.ErrChipQuotaExceeded, Code: response.CodeUnprocessable, Key: "error.chip_quota_exceeded"},
	{Target: service.ErrNoEligibleOrder, Code: response.CodeUnprocessable, Key: "error.no_eligible_order"},
}

var chipErrorRules = ConcatMappedErrors(
	ChipValidationErrorRules,
	ChipNotFoundErrorRules,
	ChipConflictErrorRules,
	ChipBusinessRuleErrorRules,
)

// TranslateChipError 芯片业务错误转换为接口错误，未识别的错误按 500 处理
func TranslateChipError(err error) *response.AppError {
	if errors.Is(err, service.ErrChipSecurityViolation) {
		// 具体原因已写入安全日志，对外只给通用提示
		return response.NewAppError(response.CodeForbidden, "error.chip_verification_failed")
	}
	if stateErr, ok := service.AsChipStateError(err); ok {
		key := "error.chip_invalid_transition"
		if errors.Is(err, service.ErrChipAlreadyEncoded) {
			key = "error.chip_already_encoded"
		}
		return response.NewAppError(response.CodeConflict, key).WithData(gin.H{
			"current_status": stateErr.Current,
			"event":          stateErr.Event,
			"allowed":        stateErr.Allowed,
		})
	}
	var mismatch *service.ImportCountMismatchError
	if errors.As(err, &mismatch) {
		return response.NewAppError(response.CodeUnprocessable, "error.import_count_mismatch").WithData(gin.H{
			"expected":   mismatch.Expected,
			"provided":   mismatch.Provided,
			"difference": mismatch.Difference,
		})
	}
	var duplicate *service.ChipDuplicateError
	if errors.As(err, &duplicate) && duplicate.Existing != nil {
		return response.NewAppError(response.CodeConflict, "error.chip_duplicate").WithData(gin.H{
			"existing_chip_id": duplicate.Existing.ID,
			"current_status":   duplicate.Existing.Status,
		})
	}
	if errors.Is(err, service.ErrChipDuplicate) {
		return response.NewAppError(response.CodeConflict, "error.chip_duplicate")
	}
	if appErr := MatchMappedError(err, chipErrorRules); appErr != nil {
		return appErr
	}
	return response.NewAppError(response.CodeInternal, "error.internal_error").WithCause(err)
}

// RespondChipError 芯片接口统一错误出口
func RespondChipError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	RespondAppError(c, TranslateChipError(err))
}

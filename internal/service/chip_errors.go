package service

import (
	"errors"
	"fmt"

	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/models"
)

// ChipStateError 状态冲突，携带当前状态供调用方对账
type ChipStateError struct {
	ChipID  uint
	Event   constants.ChipEvent
	Current constants.ChipStatus
	Allowed []constants.ChipStatus
	Err     error
}

func (e *ChipStateError) Error() string {
	return fmt.Sprintf("%v: event %s not allowed from %s", e.cause(), e.Event, e.Current)
}

func (e *ChipStateError) Unwrap() error {
	return e.cause()
}

// Is 同时匹配 ErrChipInvalidTransition 与具体原因
func (e *ChipStateError) Is(target error) bool {
	return target == ErrChipInvalidTransition
}

func (e *ChipStateError) cause() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrChipInvalidTransition
}

// ChipSecurityError 安全拦截，对外只暴露 ErrChipSecurityViolation
type ChipSecurityError struct {
	Reason     string
	Err        error
	UID        string
	RfidChipID *uint
}

func (e *ChipSecurityError) Error() string {
	return fmt.Sprintf("%v: %s", ErrChipSecurityViolation, e.Reason)
}

func (e *ChipSecurityError) Unwrap() error {
	return e.Err
}

// Is 匹配 ErrChipSecurityViolation
func (e *ChipSecurityError) Is(target error) bool {
	return target == ErrChipSecurityViolation
}

// ChipDuplicateError UID 已登记
type ChipDuplicateError struct {
	Existing *models.RfidChip
}

func (e *ChipDuplicateError) Error() string {
	if e.Existing == nil {
		return ErrChipDuplicate.Error()
	}
	return fmt.Sprintf("%v: %s", ErrChipDuplicate, e.Existing.UID)
}

func (e *ChipDuplicateError) Unwrap() error {
	return ErrChipDuplicate
}

// ImportCountMismatchError 导入数量与采购明细不一致
type ImportCountMismatchError struct {
	Expected   int64
	Provided   int64
	Difference int64
}

func (e *ImportCountMismatchError) Error() string {
	return fmt.Sprintf("%v: expected %d, provided %d", ErrImportCountMismatch, e.Expected, e.Provided)
}

func (e *ImportCountMismatchError) Unwrap() error {
	return ErrImportCountMismatch
}

// AsChipStateError 提取状态冲突详情
func AsChipStateError(err error) (*ChipStateError, bool) {
	var stateErr *ChipStateError
	if errors.As(err, &stateErr) {
		return stateErr, true
	}
	return nil, false
}

// AsChipSecurityError 提取安全拦截详情
func AsChipSecurityError(err error) (*ChipSecurityError, bool) {
	var secErr *ChipSecurityError
	if errors.As(err, &secErr) {
		return secErr, true
	}
	return nil, false
}

func newSecurityError(reason string, err error) error {
	return &ChipSecurityError{Reason: reason, Err: err}
}

func wrapDependency(sentinel error, err error) error {
	if err == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

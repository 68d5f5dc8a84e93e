package service

import (
	"context"
	"errors"

	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/models"

	"gorm.io/gorm"
)

// ActivateChipInput 首次激活提交的 NFC 数据
type ActivateChipInput struct {
	UID        string
	ChipID     string
	Block4Data string
	Block8Data string
}

// ActivationResult 激活结果
type ActivationResult struct {
	Chip  *models.RfidChip
	Order *models.Order
}

// ActivateChip 防克隆校验后按 FIFO 绑定客户订单
func (s *ChipService) ActivateChip(ctx context.Context, actor ChipActor, input ActivateChipInput) (*ActivationResult, error) {
	if actor.CustomerID == 0 {
		return nil, ErrCustomerNotFound
	}
	uid, err := NormalizeUID(input.UID)
	if err != nil {
		return nil, err
	}
	payload := ActivationPayload{
		ChipID:     input.ChipID,
		Block4Data: input.Block4Data,
		Block8Data: input.Block8Data,
	}

	var result *ActivationResult
	req := chipTransitionRequest{
		Event:     constants.ChipEventActivate,
		ChangedBy: actor.changedBy(),
		Guard: func(tc *transitionContext) error {
			if err := s.security.VerifyActivationPayload(tc.chip, payload); err != nil {
				return tagSecurityError(err, tc.chip)
			}
			// 锁定客户行，同一客户的激活串行执行，配额与订单名额计数才可靠
			customer, err := s.customerRepo.WithTx(tc.tx).GetByIDForUpdate(actor.CustomerID)
			if err != nil {
				return wrapDependency(ErrCustomerFetchFailed, err)
			}
			if err := checkSubscription(customer); err != nil {
				return err
			}
			if err := s.checkQuota(tc.tx, customer); err != nil {
				return err
			}
			order, err := s.pickFIFOOrder(tc.tx, actor.CustomerID)
			if err != nil {
				return err
			}
			customerID := actor.CustomerID
			orderID := order.ID
			tc.chip.CustomerID = &customerID
			tc.chip.OrderID = &orderID
			tc.chip.ClientOrderID = &orderID
			tc.chip.LastScanDate = &tc.now
			tc.order = order
			return nil
		},
	}

	err = s.transact(ctx, req.Event, func(tx *gorm.DB, applied *[]appliedTransition) error {
		chip, err := s.chipRepo.WithTx(tx).GetByUIDForUpdate(uid)
		if err != nil {
			return wrapDependency(ErrChipFetchFailed, err)
		}
		if chip == nil {
			return &ChipSecurityError{
				Reason: constants.ChipSecurityReasonUnknownUID,
				Err:    ErrChipUnknownUID,
				UID:    uid,
			}
		}
		tc, err := s.applyLocked(tx, chip, req, applied)
		if err != nil {
			return err
		}
		result = &ActivationResult{Chip: tc.chip, Order: tc.order}
		return nil
	})
	if err != nil {
		if IsSecurityViolation(err) {
			s.reportSecurity(ctx, err, actor)
		}
		return nil, err
	}
	return result, nil
}

// tagSecurityError 为安全拦截补充芯片标识
func tagSecurityError(err error, chip *models.RfidChip) error {
	var secErr *ChipSecurityError
	if !errors.As(err, &secErr) || chip == nil {
		return err
	}
	chipRef := chip.ID
	secErr.UID = chip.UID
	secErr.RfidChipID = &chipRef
	return err
}

// checkQuota 已激活与未启用芯片总数不得超过配额，调用方需已锁定客户行
func (s *ChipService) checkQuota(tx *gorm.DB, customer *models.Customer) error {
	quota := customer.ChipQuota
	if quota <= 0 {
		quota = s.cfg.DefaultChipQuota
	}
	if quota <= 0 {
		return nil
	}
	count, err := s.chipRepo.WithTx(tx).CountByCustomerAndStatuses(customer.ID, []constants.ChipStatus{
		constants.ChipStatusActive,
		constants.ChipStatusInactive,
	})
	if err != nil {
		return wrapDependency(ErrChipFetchFailed, err)
	}
	if count >= int64(quota) {
		return ErrChipQuotaExceeded
	}
	return nil
}

// pickFIFOOrder 按签收先后逐个锁定标准订单，锁内计数，返回第一个仍有名额的订单
func (s *ChipService) pickFIFOOrder(tx *gorm.DB, customerID uint) (*models.Order, error) {
	orderRepo := s.orderRepo.WithTx(tx)
	chipRepo := s.chipRepo.WithTx(tx)
	orders, err := orderRepo.ListDeliveredStandardByCustomer(customerID)
	if err != nil {
		return nil, wrapDependency(ErrOrderFetchFailed, err)
	}
	for i := range orders {
		if orders[i].ChipsQuantity <= 0 {
			continue
		}
		locked, err := orderRepo.GetByIDForUpdate(orders[i].ID)
		if err != nil {
			return nil, wrapDependency(ErrOrderFetchFailed, err)
		}
		if locked == nil || locked.Status != constants.OrderStatusDelivered || locked.ChipsQuantity <= 0 {
			continue
		}
		assigned, err := chipRepo.CountByOrder(locked.ID)
		if err != nil {
			return nil, wrapDependency(ErrChipFetchFailed, err)
		}
		if assigned >= int64(locked.ChipsQuantity) {
			continue
		}
		return locked, nil
	}
	return nil, ErrNoEligibleOrder
}

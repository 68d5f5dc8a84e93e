package service

import (
	"fmt"

	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/models"

	"github.com/shopspring/decimal"
)

// markOrderShipped 首颗芯片发出后订单置为已发货
func markOrderShipped(tc *transitionContext) error {
	order := tc.order
	if order == nil || order.Status != constants.OrderStatusPaid {
		return nil
	}
	order.Status = constants.OrderStatusShipped
	if order.ShippedAt == nil {
		order.ShippedAt = &tc.now
	}
	order.UpdatedAt = tc.now
	if err := tc.svc.orderRepo.WithTx(tc.tx).Update(order); err != nil {
		return wrapDependency(ErrOrderUpdateFailed, err)
	}
	return nil
}

// releaseStockReservation 订单名额占满后释放库存预留
func releaseStockReservation(tc *transitionContext) error {
	order := tc.order
	if order == nil || !order.IsStockReserved {
		return nil
	}
	assigned, err := tc.svc.chipRepo.WithTx(tc.tx).CountByOrder(order.ID)
	if err != nil {
		return wrapDependency(ErrChipFetchFailed, err)
	}
	if assigned < int64(order.ChipsQuantity) {
		return nil
	}
	order.IsStockReserved = false
	order.UpdatedAt = tc.now
	if err := tc.svc.orderRepo.WithTx(tc.tx).Update(order); err != nil {
		return wrapDependency(ErrOrderUpdateFailed, err)
	}
	return nil
}

// createWarrantyOrder 售后申请生成 0 元保修订单，失败则回滚售后流转
func createWarrantyOrder(tc *transitionContext) error {
	chip := tc.chip
	if chip.CustomerID == nil {
		return fmt.Errorf("%w: chip %d has no customer", ErrOrderCreateFailed, chip.ID)
	}
	chipRef := chip.ID
	order := &models.Order{
		OrderNo:       generateOrderNo(tc.now),
		CustomerID:    *chip.CustomerID,
		Type:          constants.OrderTypeWarranty,
		Status:        constants.OrderStatusPending,
		ChipsQuantity: 1,
		Currency:      constants.DefaultCurrency,
		TotalAmount:   models.NewMoney(decimal.Zero),
		SourceChipID:  &chipRef,
		Notes:         chip.SavReason,
		CreatedAt:     tc.now,
		UpdatedAt:     tc.now,
	}
	if err := tc.svc.orderRepo.WithTx(tc.tx).Create(order); err != nil {
		return wrapDependency(ErrOrderCreateFailed, err)
	}
	tc.order = order
	return nil
}

// cascadeArchiveOnDeliveredReplacement 替换件已签收时原芯片直接归档
func cascadeArchiveOnDeliveredReplacement(tc *transitionContext) error {
	if tc.replacement == nil || tc.replacement.Status != constants.ChipStatusDelivered {
		return nil
	}
	req := archiveRequest(fmt.Sprintf("replacement chip %d already delivered", tc.replacement.ID))
	req.ChangedBy = constants.ChangedBySystem
	_, err := tc.svc.applyLocked(tc.tx, tc.chip, req, tc.applied)
	return err
}

package service

import (
	"fmt"
	"time"

	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/models"

	"gorm.io/gorm"
)

// chipEdge 状态机的一条边
type chipEdge struct {
	from []constants.ChipStatus
	to   constants.ChipStatus
}

// chipTransitionTable 所有合法流转，状态检查只在此处进行
var chipTransitionTable = map[constants.ChipEvent]chipEdge{
	constants.ChipEventReceiveFromSupplier: {
		from: []constants.ChipStatus{constants.ChipStatusInTransit},
		to:   constants.ChipStatusInWorkshop,
	},
	constants.ChipEventEncode: {
		from: []constants.ChipStatus{constants.ChipStatusInWorkshop},
		to:   constants.ChipStatusInStock,
	},
	constants.ChipEventShipToClient: {
		from: []constants.ChipStatus{constants.ChipStatusInStock},
		to:   constants.ChipStatusShipping,
	},
	constants.ChipEventConfirmDelivery: {
		from: []constants.ChipStatus{constants.ChipStatusShipping},
		to:   constants.ChipStatusDelivered,
	},
	constants.ChipEventActivate: {
		from: []constants.ChipStatus{constants.ChipStatusInStock},
		to:   constants.ChipStatusInactive,
	},
	constants.ChipEventAssign: {
		from: []constants.ChipStatus{constants.ChipStatusDelivered, constants.ChipStatusInactive},
		to:   constants.ChipStatusActive,
	},
	constants.ChipEventRequestSav: {
		from: []constants.ChipStatus{constants.ChipStatusActive},
		to:   constants.ChipStatusSavReturn,
	},
	constants.ChipEventReceiveSav: {
		from: []constants.ChipStatus{constants.ChipStatusSavReturn},
		to:   constants.ChipStatusSavReceived,
	},
	constants.ChipEventReplace: {
		from: []constants.ChipStatus{constants.ChipStatusSavReturn, constants.ChipStatusSavReceived},
		to:   constants.ChipStatusReplaced,
	},
	constants.ChipEventArchive: {
		from: nonTerminalStatuses(),
		to:   constants.ChipStatusArchived,
	},
	constants.ChipEventDeactivate: {
		from: []constants.ChipStatus{constants.ChipStatusActive, constants.ChipStatusDelivered},
		to:   constants.ChipStatusInactive,
	},
}

func nonTerminalStatuses() []constants.ChipStatus {
	statuses := make([]constants.ChipStatus, 0, len(constants.AllChipStatuses)-1)
	for _, status := range constants.AllChipStatuses {
		if status != constants.ChipStatusArchived {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

// NextChipStatus 返回事件在当前状态下的目标状态
func NextChipStatus(current constants.ChipStatus, event constants.ChipEvent) (constants.ChipStatus, bool) {
	edge, ok := chipTransitionTable[event]
	if !ok {
		return "", false
	}
	for _, from := range edge.from {
		if from == current {
			return edge.to, true
		}
	}
	return "", false
}

// AllowedSources 返回事件允许的来源状态
func AllowedSources(event constants.ChipEvent) []constants.ChipStatus {
	edge, ok := chipTransitionTable[event]
	if !ok {
		return nil
	}
	out := make([]constants.ChipStatus, len(edge.from))
	copy(out, edge.from)
	return out
}

// isLegalEdge 判断 from→to 是否为任一事件的合法边
func isLegalEdge(from, to constants.ChipStatus) bool {
	for _, edge := range chipTransitionTable {
		if edge.to != to {
			continue
		}
		for _, src := range edge.from {
			if src == from {
				return true
			}
		}
	}
	return false
}

// ReplayChipHistory 从 EN_TRANSIT 开始重放流转记录，返回重放后的状态
func ReplayChipHistory(entries []models.RfidChipStatusHistory) (constants.ChipStatus, error) {
	current := constants.ChipStatusInTransit
	for i, entry := range entries {
		if entry.FromStatus != current {
			return current, fmt.Errorf("%w: entry %d starts from %s, expected %s",
				ErrChipHistoryReplayFailed, i, entry.FromStatus, current)
		}
		if entry.Event != "" {
			next, ok := NextChipStatus(entry.FromStatus, entry.Event)
			if !ok || next != entry.ToStatus {
				return current, fmt.Errorf("%w: entry %d event %s does not lead %s to %s",
					ErrChipHistoryReplayFailed, i, entry.Event, entry.FromStatus, entry.ToStatus)
			}
		} else if !isLegalEdge(entry.FromStatus, entry.ToStatus) {
			return current, fmt.Errorf("%w: entry %d %s to %s is not a lifecycle edge",
				ErrChipHistoryReplayFailed, i, entry.FromStatus, entry.ToStatus)
		}
		current = entry.ToStatus
	}
	return current, nil
}

// chipTransitionRequest 一次流转请求
type chipTransitionRequest struct {
	Event     constants.ChipEvent
	ChangedBy string
	Notes     string
	// Guard 在状态校验通过后、写入前执行：校验前置条件并修改芯片字段
	Guard func(tc *transitionContext) error
}

// transitionContext 流转执行上下文（事务内）
type transitionContext struct {
	svc       *ChipService
	tx        *gorm.DB
	chip      *models.RfidChip
	from      constants.ChipStatus
	event     constants.ChipEvent
	now       time.Time
	changedBy string
	notes     string

	// 由 Guard 或副作用填充
	order       *models.Order
	replacement *models.RfidChip

	applied *[]appliedTransition
}

// appliedTransition 已写入的流转，提交后用于指标与缓存
type appliedTransition struct {
	chipID     uint
	event      constants.ChipEvent
	from       constants.ChipStatus
	to         constants.ChipStatus
	customerID *uint
	changedBy  string
}

// chipEffect 写入后、同一事务内执行的副作用，失败则整体回滚
type chipEffect func(tc *transitionContext) error

// chipEffects 按事件注册的副作用
// 级联归档会回调 applyLocked，故在 init 中注册以避免包级初始化循环
var chipEffects map[constants.ChipEvent][]chipEffect

func init() {
	chipEffects = map[constants.ChipEvent][]chipEffect{
		constants.ChipEventShipToClient: {markOrderShipped},
		constants.ChipEventActivate:     {releaseStockReservation},
		constants.ChipEventRequestSav:   {createWarrantyOrder},
		constants.ChipEventReplace:      {cascadeArchiveOnDeliveredReplacement},
	}
}

// applyLocked 在已加锁的芯片上执行流转：状态校验、前置条件、版本写入、历史、副作用
func (s *ChipService) applyLocked(tx *gorm.DB, chip *models.RfidChip, req chipTransitionRequest, applied *[]appliedTransition) (*transitionContext, error) {
	to, ok := NextChipStatus(chip.Status, req.Event)
	if !ok {
		return nil, &ChipStateError{
			ChipID:  chip.ID,
			Event:   req.Event,
			Current: chip.Status,
			Allowed: AllowedSources(req.Event),
		}
	}

	tc := &transitionContext{
		svc:       s,
		tx:        tx,
		chip:      chip,
		from:      chip.Status,
		event:     req.Event,
		now:       s.now(),
		changedBy: req.ChangedBy,
		notes:     req.Notes,
		applied:   applied,
	}
	if req.Guard != nil {
		if err := req.Guard(tc); err != nil {
			return nil, err
		}
	}

	expectedVersion := chip.Version
	chip.Status = to
	chip.UpdatedAt = tc.now
	affected, err := s.chipRepo.WithTx(tx).UpdateWithVersion(chip, expectedVersion)
	if err != nil {
		return nil, wrapDependency(ErrChipUpdateFailed, err)
	}
	if affected == 0 {
		return nil, ErrChipConcurrentUpdate
	}

	entry := &models.RfidChipStatusHistory{
		RfidChipID: chip.ID,
		Event:      req.Event,
		FromStatus: tc.from,
		ToStatus:   to,
		ChangedAt:  tc.now,
		ChangedBy:  req.ChangedBy,
		Notes:      req.Notes,
	}
	if err := s.historyRepo.WithTx(tx).Create(entry); err != nil {
		return nil, wrapDependency(ErrChipHistoryFailed, err)
	}
	if applied != nil {
		*applied = append(*applied, appliedTransition{
			chipID:     chip.ID,
			event:      req.Event,
			from:       tc.from,
			to:         to,
			customerID: chip.CustomerID,
			changedBy:  req.ChangedBy,
		})
	}

	for _, effect := range chipEffects[req.Event] {
		if err := effect(tc); err != nil {
			return nil, err
		}
	}
	return tc, nil
}

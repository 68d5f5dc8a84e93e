package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chiptrack/internal/cache"
	"github.com/chiptrack/internal/config"
	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/metrics"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/queue"
	"github.com/chiptrack/internal/repository"

	"gorm.io/gorm"
)

const whitelistRefreshDelay = 2 * time.Second

// ChipService 芯片生命周期服务，所有状态变更都经由流转引擎
type ChipService struct {
	cfg               config.ChipConfig
	chipRepo          repository.ChipRepository
	historyRepo       repository.ChipHistoryRepository
	orderRepo         repository.OrderRepository
	customerRepo      repository.CustomerRepository
	supplierOrderRepo repository.SupplierOrderRepository
	securityEventRepo repository.ChipSecurityEventRepository
	security          *ChipSecurityService
	queueClient       *queue.Client
	metrics           *metrics.ChipMetrics
	now               func() time.Time
}

// NewChipService 创建芯片服务
func NewChipService(cfg config.ChipConfig, chipRepo repository.ChipRepository, historyRepo repository.ChipHistoryRepository, orderRepo repository.OrderRepository, customerRepo repository.CustomerRepository, supplierOrderRepo repository.SupplierOrderRepository, securityEventRepo repository.ChipSecurityEventRepository, security *ChipSecurityService, queueClient *queue.Client, chipMetrics *metrics.ChipMetrics) *ChipService {
	if security == nil {
		security = NewChipSecurityService(cfg)
	}
	return &ChipService{
		cfg:               cfg,
		chipRepo:          chipRepo,
		historyRepo:       historyRepo,
		orderRepo:         orderRepo,
		customerRepo:      customerRepo,
		supplierOrderRepo: supplierOrderRepo,
		securityEventRepo: securityEventRepo,
		security:          security,
		queueClient:       queueClient,
		metrics:           chipMetrics,
		now:               time.Now,
	}
}

// Security 返回芯片加密服务
func (s *ChipService) Security() *ChipSecurityService {
	return s.security
}

// ChipActor 发起操作的主体
type ChipActor struct {
	Kind       string
	ID         uint
	CustomerID uint
	ClientIP   string
}

// AdminActor 后台操作人
func AdminActor(adminID uint) ChipActor {
	return ChipActor{Kind: constants.ChangedByAdmin, ID: adminID}
}

// CustomerActor 客户操作人
func CustomerActor(customerID uint, clientIP string) ChipActor {
	return ChipActor{Kind: constants.ChangedByCustomer, ID: customerID, CustomerID: customerID, ClientIP: clientIP}
}

// FactoryActor 工厂编码工具
func FactoryActor(clientIP string) ChipActor {
	return ChipActor{Kind: constants.ChangedByFactory, ClientIP: clientIP}
}

func (a ChipActor) changedBy() string {
	switch a.Kind {
	case "":
		return constants.ChangedBySystem
	case constants.ChangedByAdmin, constants.ChangedByCustomer:
		if a.ID > 0 {
			return fmt.Sprintf("%s:%d", a.Kind, a.ID)
		}
	}
	return a.Kind
}

func (a ChipActor) isCustomer() bool {
	return a.Kind == constants.ChangedByCustomer
}

// authorize 客户只能操作自己名下的芯片
func (a ChipActor) authorize(chip *models.RfidChip) error {
	if !a.isCustomer() {
		return nil
	}
	if chip.CustomerID == nil || *chip.CustomerID != a.CustomerID {
		return ErrChipNotOwned
	}
	return nil
}

// transact 执行一次流转事务，提交后处理指标、日志、缓存
func (s *ChipService) transact(ctx context.Context, event constants.ChipEvent, fn func(tx *gorm.DB, applied *[]appliedTransition) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()
	applied := make([]appliedTransition, 0, 2)
	err := models.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, &applied)
	})
	if err != nil {
		return err
	}
	s.metrics.ObserveTransition(string(event), time.Since(started))
	s.afterCommit(ctx, applied)
	return nil
}

// transitionByID 加锁读取芯片并执行一条边
func (s *ChipService) transitionByID(ctx context.Context, actor ChipActor, chipID uint, req chipTransitionRequest) (*transitionContext, error) {
	if chipID == 0 {
		return nil, ErrChipNotFound
	}
	req.ChangedBy = actor.changedBy()
	var result *transitionContext
	err := s.transact(ctx, req.Event, func(tx *gorm.DB, applied *[]appliedTransition) error {
		chip, err := s.chipRepo.WithTx(tx).GetByIDForUpdate(chipID)
		if err != nil {
			return wrapDependency(ErrChipFetchFailed, err)
		}
		if chip == nil {
			return ErrChipNotFound
		}
		if err := actor.authorize(chip); err != nil {
			return err
		}
		tc, err := s.applyLocked(tx, chip, req, applied)
		if err != nil {
			return err
		}
		result = tc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ChipService) afterCommit(ctx context.Context, applied []appliedTransition) {
	customers := make(map[uint]struct{})
	for _, item := range applied {
		s.metrics.IncTransition(string(item.event), string(item.to))
		logger.Infow("chip_transition_applied",
			"chip_id", item.chipID,
			"event", item.event,
			"from", item.from,
			"to", item.to,
			"changed_by", item.changedBy,
		)
		if item.customerID != nil && *item.customerID > 0 {
			customers[*item.customerID] = struct{}{}
		}
	}
	for customerID := range customers {
		if err := cache.DelChipWhitelist(ctx, customerID); err != nil {
			logger.Warnw("chip_whitelist_invalidate_failed", "customer_id", customerID, "error", err)
		}
		if s.queueClient == nil {
			continue
		}
		payload := queue.ChipWhitelistRefreshPayload{CustomerID: customerID}
		if err := s.queueClient.EnqueueChipWhitelistRefresh(payload, whitelistRefreshDelay); err != nil {
			logger.Warnw("chip_whitelist_refresh_enqueue_failed", "customer_id", customerID, "error", err)
		}
	}
}

// reportSecurity 记录安全拦截：安全日志、指标、事件落库、告警任务
func (s *ChipService) reportSecurity(ctx context.Context, err error, actor ChipActor) {
	secErr, ok := AsChipSecurityError(err)
	if !ok {
		return
	}
	s.metrics.IncSecurityRejection(secErr.Reason)
	logger.SecurityAlertw("chip_security_rejected",
		"reason", secErr.Reason,
		"uid", secErr.UID,
		"rfid_chip_id", secErr.RfidChipID,
		"customer_id", actor.CustomerID,
		"client_ip", actor.ClientIP,
		"detail", secErr.Err,
	)
	if s.securityEventRepo == nil {
		return
	}
	event := &models.ChipSecurityEvent{
		RfidChipID: secErr.RfidChipID,
		UID:        secErr.UID,
		Reason:     secErr.Reason,
		ClientIP:   actor.ClientIP,
		CreatedAt:  s.now(),
	}
	if secErr.Err != nil {
		event.Detail = secErr.Err.Error()
	}
	if actor.CustomerID > 0 {
		customerID := actor.CustomerID
		event.CustomerID = &customerID
	}
	if createErr := s.securityEventRepo.Create(event); createErr != nil {
		logger.Errorw("chip_security_event_persist_failed", "reason", secErr.Reason, "error", createErr)
		return
	}
	if s.queueClient == nil {
		return
	}
	if enqueueErr := s.queueClient.EnqueueChipSecurityAlert(securityAlertPayload(event)); enqueueErr != nil {
		logger.Warnw("chip_security_alert_enqueue_failed", "event_id", event.ID, "error", enqueueErr)
	}
}

func securityAlertPayload(event *models.ChipSecurityEvent) queue.ChipSecurityAlertPayload {
	return queue.ChipSecurityAlertPayload{EventID: event.ID, Reason: event.Reason, UID: event.UID}
}

// ReceiveFromSupplier 供应商到货入库
func (s *ChipService) ReceiveFromSupplier(ctx context.Context, actor ChipActor, chipID uint) (*models.RfidChip, error) {
	tc, err := s.transitionByID(ctx, actor, chipID, chipTransitionRequest{
		Event: constants.ChipEventReceiveFromSupplier,
		Guard: func(tc *transitionContext) error {
			tc.chip.ReceivedFromSupplierDate = &tc.now
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return tc.chip, nil
}

// EncodingResult 编码结果，ChipKey 只在此处返回一次
type EncodingResult struct {
	RfidChipID   uint       `json:"id"`
	ChipID       string     `json:"chip_id"`
	UID          string     `json:"uid"`
	Salt         string     `json:"salt"`
	Checksum     string     `json:"checksum"`
	ChipKey      string     `json:"chip_key"`
	Block4Data   string     `json:"block4_data"`
	Block8Data   string     `json:"block8_data"`
	EncodingDate *time.Time `json:"encoding_date"`
}

// Encode 后台触发编码
func (s *ChipService) Encode(ctx context.Context, actor ChipActor, chipID uint) (*EncodingResult, error) {
	var result *EncodingResult
	_, err := s.transitionByID(ctx, actor, chipID, s.encodeRequest(&result))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RequestEncoding 工厂编码工具按 UID 申请编码
func (s *ChipService) RequestEncoding(ctx context.Context, actor ChipActor, rawUID string) (*EncodingResult, error) {
	uid, err := NormalizeUID(rawUID)
	if err != nil {
		return nil, err
	}
	var result *EncodingResult
	req := s.encodeRequest(&result)
	req.ChangedBy = actor.changedBy()
	err = s.transact(ctx, req.Event, func(tx *gorm.DB, applied *[]appliedTransition) error {
		chip, err := s.chipRepo.WithTx(tx).GetByUIDForUpdate(uid)
		if err != nil {
			return wrapDependency(ErrChipFetchFailed, err)
		}
		if chip == nil {
			return ErrChipNotFound
		}
		_, err = s.applyLocked(tx, chip, req, applied)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ChipService) encodeRequest(out **EncodingResult) chipTransitionRequest {
	return chipTransitionRequest{
		Event: constants.ChipEventEncode,
		Guard: func(tc *transitionContext) error {
			chip := tc.chip
			if chip.IsEncoded() {
				return &ChipStateError{
					ChipID:  chip.ID,
					Event:   tc.event,
					Current: chip.Status,
					Allowed: AllowedSources(tc.event),
					Err:     ErrChipAlreadyEncoded,
				}
			}
			if strings.TrimSpace(chip.ChipID) == "" {
				chip.ChipID = s.security.GenerateChipID()
			}
			salt, err := s.security.GenerateSalt()
			if err != nil {
				return wrapDependency(ErrChipCryptoFailed, err)
			}
			chipKey, err := s.security.GenerateChipKey(chip.ChipID)
			if err != nil {
				return wrapDependency(ErrChipCryptoFailed, err)
			}
			checksum := s.security.GenerateChecksum(chip.UID, salt, chip.ChipID)
			chip.Salt = &salt
			chip.Checksum = &checksum
			chip.EncodingDate = &tc.now
			*out = &EncodingResult{
				RfidChipID:   chip.ID,
				ChipID:       chip.ChipID,
				UID:          chip.UID,
				Salt:         salt,
				Checksum:     checksum,
				ChipKey:      chipKey,
				Block4Data:   s.security.BuildBlock4Payload(chip),
				Block8Data:   checksum,
				EncodingDate: chip.EncodingDate,
			}
			return nil
		},
	}
}

// ShipToClientInput 发货参数
type ShipToClientInput struct {
	OrderID       uint
	PackagingCode string
}

// ShipToClient 出库发货并绑定客户订单
func (s *ChipService) ShipToClient(ctx context.Context, actor ChipActor, chipID uint, input ShipToClientInput) (*models.RfidChip, error) {
	if input.OrderID == 0 {
		return nil, ErrChipInvalidInput
	}
	tc, err := s.transitionByID(ctx, actor, chipID, chipTransitionRequest{
		Event: constants.ChipEventShipToClient,
		Guard: func(tc *transitionContext) error {
			order, err := s.orderRepo.WithTx(tc.tx).GetByIDForUpdate(input.OrderID)
			if err != nil {
				return wrapDependency(ErrOrderFetchFailed, err)
			}
			if order == nil {
				return ErrOrderNotFound
			}
			if order.Type == constants.OrderTypeWarranty ||
				order.Status == constants.OrderStatusCanceled ||
				order.Status == constants.OrderStatusCompleted {
				return ErrOrderNotShippable
			}
			// 订单行锁已持有，计数与写入之间不会被并发发货插入
			shipped, err := s.chipRepo.WithTx(tc.tx).CountByClientOrder(order.ID)
			if err != nil {
				return wrapDependency(ErrChipFetchFailed, err)
			}
			if order.ChipsQuantity > 0 && shipped >= int64(order.ChipsQuantity) {
				return ErrOrderNotShippable
			}
			code := strings.TrimSpace(input.PackagingCode)
			if code == "" {
				code = generatePackagingCode(tc.now)
			}
			customerID := order.CustomerID
			orderID := order.ID
			tc.chip.CustomerID = &customerID
			tc.chip.ClientOrderID = &orderID
			tc.chip.PackagingCode = code
			tc.chip.ShippedToClientDate = &tc.now
			tc.order = order
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return tc.chip, nil
}

// ConfirmDelivery 客户确认签收（校验包装码）
func (s *ChipService) ConfirmDelivery(ctx context.Context, actor ChipActor, chipID uint, packagingCode string) (*models.RfidChip, error) {
	packagingCode = strings.TrimSpace(packagingCode)
	if packagingCode == "" {
		return nil, ErrChipInvalidInput
	}
	tc, err := s.transitionByID(ctx, actor, chipID, chipTransitionRequest{
		Event: constants.ChipEventConfirmDelivery,
		Guard: func(tc *transitionContext) error {
			if !strings.EqualFold(tc.chip.PackagingCode, packagingCode) {
				return ErrPackagingCodeMismatch
			}
			if tc.chip.CustomerID != nil {
				if err := s.requireActiveSubscription(tc.tx, *tc.chip.CustomerID); err != nil {
					return err
				}
			}
			tc.chip.DeliveredToClientDate = &tc.now
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return tc.chip, nil
}

// AssignToControlPoint 绑定检测点并启用
func (s *ChipService) AssignToControlPoint(ctx context.Context, actor ChipActor, chipID uint, controlPointID uint) (*models.RfidChip, error) {
	if controlPointID == 0 {
		return nil, ErrChipInvalidInput
	}
	tc, err := s.transitionByID(ctx, actor, chipID, chipTransitionRequest{
		Event: constants.ChipEventAssign,
		Guard: func(tc *transitionContext) error {
			point, err := s.customerRepo.WithTx(tc.tx).GetControlPoint(controlPointID)
			if err != nil {
				return wrapDependency(ErrCustomerFetchFailed, err)
			}
			if point == nil {
				return ErrControlPointNotFound
			}
			if tc.chip.CustomerID == nil || *tc.chip.CustomerID != point.CustomerID {
				return ErrControlPointNotOwned
			}
			pointID := point.ID
			tc.chip.ControlPointID = &pointID
			tc.chip.AssignmentDate = &tc.now
			if tc.chip.FirstScanDate == nil {
				tc.chip.FirstScanDate = &tc.now
			}
			tc.chip.LastScanDate = &tc.now
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return tc.chip, nil
}

// RequestSav 申请售后，同事务生成 0 元保修订单
func (s *ChipService) RequestSav(ctx context.Context, actor ChipActor, chipID uint, reason string) (*models.RfidChip, *models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, nil, ErrChipSavReasonRequired
	}
	tc, err := s.transitionByID(ctx, actor, chipID, chipTransitionRequest{
		Event: constants.ChipEventRequestSav,
		Notes: reason,
		Guard: func(tc *transitionContext) error {
			tc.chip.SavReason = reason
			tc.chip.SavReturnDate = &tc.now
			return nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	s.notifySav(tc, reason)
	return tc.chip, tc.order, nil
}

func (s *ChipService) notifySav(tc *transitionContext, reason string) {
	if s.queueClient == nil || tc.order == nil {
		return
	}
	payload := queue.ChipSavRequestedPayload{
		ChipID:          tc.chip.ID,
		UID:             tc.chip.UID,
		WarrantyOrderID: tc.order.ID,
		Reason:          reason,
	}
	if tc.chip.CustomerID != nil {
		payload.CustomerID = *tc.chip.CustomerID
	}
	if err := s.queueClient.EnqueueChipSavRequested(payload); err != nil {
		logger.Warnw("chip_sav_notification_enqueue_failed", "chip_id", tc.chip.ID, "error", err)
	}
}

// ReceiveSav 售后件到厂
func (s *ChipService) ReceiveSav(ctx context.Context, actor ChipActor, chipID uint) (*models.RfidChip, error) {
	tc, err := s.transitionByID(ctx, actor, chipID, chipTransitionRequest{
		Event: constants.ChipEventReceiveSav,
	})
	if err != nil {
		return nil, err
	}
	return tc.chip, nil
}

// Replace 以新芯片替换售后芯片
func (s *ChipService) Replace(ctx context.Context, actor ChipActor, chipID uint, replacementID uint) (*models.RfidChip, error) {
	if replacementID == 0 {
		return nil, ErrChipInvalidInput
	}
	if replacementID == chipID {
		return nil, ErrChipReplacementSelf
	}
	tc, err := s.transitionByID(ctx, actor, chipID, chipTransitionRequest{
		Event: constants.ChipEventReplace,
		Notes: fmt.Sprintf("replaced by chip %d", replacementID),
		Guard: func(tc *transitionContext) error {
			replacement, err := s.chipRepo.WithTx(tc.tx).GetByIDForUpdate(replacementID)
			if err != nil {
				return wrapDependency(ErrChipFetchFailed, err)
			}
			if replacement == nil {
				return ErrReplacementChipNotFound
			}
			id := replacement.ID
			tc.chip.ReplacementChipID = &id
			tc.replacement = replacement
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return tc.chip, nil
}

// Archive 人工归档，原因需达到最少词数
func (s *ChipService) Archive(ctx context.Context, actor ChipActor, chipID uint, reason string) (*models.RfidChip, error) {
	reason = strings.TrimSpace(reason)
	if len(strings.Fields(reason)) < s.ArchiveMinWords() {
		return nil, ErrChipArchiveReasonShort
	}
	tc, err := s.transitionByID(ctx, actor, chipID, archiveRequest(reason))
	if err != nil {
		return nil, err
	}
	return tc.chip, nil
}

func archiveRequest(reason string) chipTransitionRequest {
	return chipTransitionRequest{
		Event: constants.ChipEventArchive,
		Notes: reason,
		Guard: func(tc *transitionContext) error {
			tc.chip.ArchiveReason = reason
			tc.chip.ArchivedDate = &tc.now
			return nil
		},
	}
}

// Deactivate 停用芯片并解除检测点绑定
func (s *ChipService) Deactivate(ctx context.Context, actor ChipActor, chipID uint) (*models.RfidChip, error) {
	tc, err := s.transitionByID(ctx, actor, chipID, chipTransitionRequest{
		Event: constants.ChipEventDeactivate,
		Guard: func(tc *transitionContext) error {
			tc.chip.ControlPointID = nil
			tc.chip.DeactivationDate = &tc.now
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return tc.chip, nil
}

// ArchiveMinWords 归档原因最少词数
func (s *ChipService) ArchiveMinWords() int {
	if s.cfg.ArchiveMinWords > 0 {
		return s.cfg.ArchiveMinWords
	}
	return 10
}

// requireActiveSubscription 校验客户订阅状态
func (s *ChipService) requireActiveSubscription(tx *gorm.DB, customerID uint) error {
	customer, err := s.customerRepo.WithTx(tx).GetByID(customerID)
	if err != nil {
		return wrapDependency(ErrCustomerFetchFailed, err)
	}
	return checkSubscription(customer)
}

func checkSubscription(customer *models.Customer) error {
	if customer == nil {
		return ErrCustomerNotFound
	}
	if customer.Status != constants.CustomerStatusActive {
		return ErrCustomerDisabled
	}
	if customer.SubscriptionStatus != constants.SubscriptionStatusActive {
		return ErrSubscriptionInactive
	}
	return nil
}

func generatePackagingCode(now time.Time) string {
	return fmt.Sprintf("PKG-%s-%s", now.Format("20060102"), randNumeric(6))
}


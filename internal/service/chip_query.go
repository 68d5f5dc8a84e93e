package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/chiptrack/internal/cache"
	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/repository"
)

const exportPageSize = 500

// ScanResult 日常巡检扫描结果
type ScanResult struct {
	RfidChipID     uint                 `json:"id"`
	ChipID         string               `json:"chip_id"`
	UID            string               `json:"uid"`
	Status         constants.ChipStatus `json:"status"`
	ControlPointID *uint                `json:"control_point_id,omitempty"`
	LastScanDate   *time.Time           `json:"last_scan_date,omitempty"`
}

// ValidateScan 只读校验：归属、状态为 ACTIVE、校验和有效
func (s *ChipService) ValidateScan(ctx context.Context, actor ChipActor, rawUID string) (*ScanResult, error) {
	uid, err := NormalizeUID(rawUID)
	if err != nil {
		return nil, err
	}
	chip, err := s.chipRepo.GetByUID(uid)
	if err != nil {
		return nil, wrapDependency(ErrChipFetchFailed, err)
	}
	if err := s.verifyScan(chip, uid, actor); err != nil {
		if IsSecurityViolation(err) {
			s.reportSecurity(ctx, err, actor)
		}
		return nil, err
	}
	return &ScanResult{
		RfidChipID:     chip.ID,
		ChipID:         chip.ChipID,
		UID:            chip.UID,
		Status:         chip.Status,
		ControlPointID: chip.ControlPointID,
		LastScanDate:   chip.LastScanDate,
	}, nil
}

func (s *ChipService) verifyScan(chip *models.RfidChip, uid string, actor ChipActor) error {
	if chip == nil {
		return &ChipSecurityError{Reason: constants.ChipSecurityReasonUnknownUID, Err: ErrChipUnknownUID, UID: uid}
	}
	chipRef := chip.ID
	if actor.isCustomer() && (chip.CustomerID == nil || *chip.CustomerID != actor.CustomerID) {
		return &ChipSecurityError{Reason: constants.ChipSecurityReasonForeignChip, Err: ErrChipForeignScan, UID: uid, RfidChipID: &chipRef}
	}
	if chip.Status != constants.ChipStatusActive {
		return &ChipStateError{
			ChipID:  chip.ID,
			Event:   constants.ChipEventScan,
			Current: chip.Status,
			Allowed: []constants.ChipStatus{constants.ChipStatusActive},
		}
	}
	if !chip.IsEncoded() || !s.security.ValidateChecksum(chip.UID, *chip.Salt, chip.ChipID, *chip.Checksum) {
		return &ChipSecurityError{Reason: constants.ChipSecurityReasonChecksumCorrupt, Err: ErrChipChecksumMismatch, UID: uid, RfidChipID: &chipRef}
	}
	return nil
}

// ChipInfo 工厂查询信息，不含加密材料
type ChipInfo struct {
	UID          string               `json:"uid"`
	ChipID       string               `json:"chip_id"`
	Status       constants.ChipStatus `json:"status"`
	IsEncoded    bool                 `json:"is_encoded"`
	EncodingDate *time.Time           `json:"encoding_date,omitempty"`
}

// GetChipInfo 按 UID 查询编码状态
func (s *ChipService) GetChipInfo(rawUID string) (*ChipInfo, error) {
	uid, err := NormalizeUID(rawUID)
	if err != nil {
		return nil, err
	}
	chip, err := s.chipRepo.GetByUID(uid)
	if err != nil {
		return nil, wrapDependency(ErrChipFetchFailed, err)
	}
	if chip == nil {
		return nil, ErrChipNotFound
	}
	return &ChipInfo{
		UID:          chip.UID,
		ChipID:       chip.ChipID,
		Status:       chip.Status,
		IsEncoded:    chip.IsEncoded(),
		EncodingDate: chip.EncodingDate,
	}, nil
}

// GetChip 获取芯片详情
func (s *ChipService) GetChip(actor ChipActor, chipID uint) (*models.RfidChip, error) {
	chip, err := s.chipRepo.GetByID(chipID)
	if err != nil {
		return nil, wrapDependency(ErrChipFetchFailed, err)
	}
	if chip == nil {
		return nil, ErrChipNotFound
	}
	if err := actor.authorize(chip); err != nil {
		return nil, err
	}
	return chip, nil
}

// ListChips 芯片列表
func (s *ChipService) ListChips(filter repository.ChipListFilter) ([]models.RfidChip, int64, error) {
	chips, total, err := s.chipRepo.List(filter)
	if err != nil {
		return nil, 0, wrapDependency(ErrChipFetchFailed, err)
	}
	return chips, total, nil
}

// ListHistory 芯片流转记录
func (s *ChipService) ListHistory(actor ChipActor, chipID uint) ([]models.RfidChipStatusHistory, error) {
	if _, err := s.GetChip(actor, chipID); err != nil {
		return nil, err
	}
	entries, err := s.historyRepo.ListByChip(chipID)
	if err != nil {
		return nil, wrapDependency(ErrChipFetchFailed, err)
	}
	return entries, nil
}

// GetWhitelist 客户 ACTIVE 芯片白名单（优先读缓存）
func (s *ChipService) GetWhitelist(ctx context.Context, actor ChipActor, customerID uint) (*cache.ChipWhitelist, error) {
	if customerID == 0 {
		return nil, ErrCustomerNotFound
	}
	if actor.isCustomer() && actor.CustomerID != customerID {
		return nil, ErrChipNotOwned
	}
	cached, hit, err := cache.GetChipWhitelist(ctx, customerID)
	if err != nil {
		logger.Warnw("chip_whitelist_cache_read_failed", "customer_id", customerID, "error", err)
	}
	if hit && cached != nil {
		return cached, nil
	}
	return s.RefreshWhitelist(ctx, customerID)
}

// RefreshWhitelist 重建客户白名单并写入缓存
func (s *ChipService) RefreshWhitelist(ctx context.Context, customerID uint) (*cache.ChipWhitelist, error) {
	chips, err := s.chipRepo.ListByCustomerAndStatus(customerID, constants.ChipStatusActive)
	if err != nil {
		return nil, wrapDependency(ErrChipFetchFailed, err)
	}
	list := &cache.ChipWhitelist{
		CustomerID:  customerID,
		Entries:     make([]cache.WhitelistEntry, 0, len(chips)),
		GeneratedAt: s.now().Unix(),
	}
	for _, chip := range chips {
		list.Entries = append(list.Entries, cache.WhitelistEntry{
			ID:             chip.ID,
			ChipID:         chip.ChipID,
			UID:            chip.UID,
			ControlPointID: chip.ControlPointID,
		})
	}
	ttl := time.Duration(s.cfg.WhitelistCacheTTLSeconds) * time.Second
	if err := cache.SetChipWhitelist(ctx, list, ttl); err != nil {
		logger.Warnw("chip_whitelist_cache_write_failed", "customer_id", customerID, "error", err)
	}
	return list, nil
}

var exportHeader = []string{
	"id", "chip_id", "uid", "status", "customer_id", "order_id", "supplier_order_id",
	"control_point_id", "packaging_code", "encoding_date", "shipped_to_client_date",
	"delivered_to_client_date", "last_scan_date", "archived_date", "created_at",
}

// ExportCSV 按过滤条件导出芯片台账
func (s *ChipService) ExportCSV(filter repository.ChipListFilter, w io.Writer) (int, error) {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return 0, err
	}
	filter.PageSize = exportPageSize
	written := 0
	for page := 1; ; page++ {
		filter.Page = page
		chips, total, err := s.chipRepo.List(filter)
		if err != nil {
			return written, wrapDependency(ErrChipFetchFailed, err)
		}
		for i := range chips {
			if err := writer.Write(exportRecord(&chips[i])); err != nil {
				return written, err
			}
			written++
		}
		if len(chips) < exportPageSize || int64(written) >= total {
			break
		}
	}
	writer.Flush()
	return written, writer.Error()
}

func exportRecord(chip *models.RfidChip) []string {
	return []string{
		strconv.FormatUint(uint64(chip.ID), 10),
		chip.ChipID,
		chip.UID,
		string(chip.Status),
		formatOptionalID(chip.CustomerID),
		formatOptionalID(chip.OrderID),
		formatOptionalID(chip.SupplierOrderID),
		formatOptionalID(chip.ControlPointID),
		chip.PackagingCode,
		formatOptionalTime(chip.EncodingDate),
		formatOptionalTime(chip.ShippedToClientDate),
		formatOptionalTime(chip.DeliveredToClientDate),
		formatOptionalTime(chip.LastScanDate),
		formatOptionalTime(chip.ArchivedDate),
		chip.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func formatOptionalID(id *uint) string {
	if id == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*id), 10)
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// StatusCount 状态统计
type StatusCount struct {
	Status constants.ChipStatus `json:"status"`
	Total  int64                `json:"total"`
}

// StatsByStatus 按生命周期顺序返回各状态数量（无数据补 0）
func (s *ChipService) StatsByStatus() ([]StatusCount, error) {
	rows, err := s.chipRepo.CountGroupByStatus()
	if err != nil {
		return nil, wrapDependency(ErrChipFetchFailed, err)
	}
	totals := make(map[constants.ChipStatus]int64, len(rows))
	for _, row := range rows {
		totals[row.Status] = row.Total
	}
	stats := make([]StatusCount, 0, len(constants.AllChipStatuses))
	for _, status := range constants.AllChipStatuses {
		stats = append(stats, StatusCount{Status: status, Total: totals[status]})
	}
	return stats, nil
}

// ChipAudit 历史重放对账结果
type ChipAudit struct {
	RfidChipID     uint                 `json:"id"`
	Status         constants.ChipStatus `json:"status"`
	ReplayedStatus constants.ChipStatus `json:"replayed_status"`
	HistoryCount   int                  `json:"history_count"`
	Consistent     bool                 `json:"consistent"`
	Issues         []string             `json:"issues"`
}

// AuditChip 以流转记录为准核对芯片状态与时间字段
func (s *ChipService) AuditChip(chipID uint) (*ChipAudit, error) {
	chip, err := s.chipRepo.GetByID(chipID)
	if err != nil {
		return nil, wrapDependency(ErrChipFetchFailed, err)
	}
	if chip == nil {
		return nil, ErrChipNotFound
	}
	entries, err := s.historyRepo.ListByChip(chipID)
	if err != nil {
		return nil, wrapDependency(ErrChipFetchFailed, err)
	}
	audit := &ChipAudit{
		RfidChipID:   chip.ID,
		Status:       chip.Status,
		HistoryCount: len(entries),
		Issues:       make([]string, 0),
	}
	replayed, replayErr := ReplayChipHistory(entries)
	audit.ReplayedStatus = replayed
	if replayErr != nil {
		audit.Issues = append(audit.Issues, replayErr.Error())
	} else if replayed != chip.Status {
		audit.Issues = append(audit.Issues, fmt.Sprintf("status %s differs from replayed %s", chip.Status, replayed))
	}
	seen := make(map[constants.ChipEvent]bool, len(entries))
	for _, entry := range entries {
		seen[entry.Event] = true
	}
	for event, stamp := range eventTimestamps(chip) {
		if seen[event] && stamp == nil {
			audit.Issues = append(audit.Issues, fmt.Sprintf("event %s recorded but timestamp missing", event))
		}
	}
	if seen[constants.ChipEventEncode] && !chip.IsEncoded() {
		audit.Issues = append(audit.Issues, "encode recorded but salt or checksum missing")
	}
	audit.Consistent = len(audit.Issues) == 0
	return audit, nil
}

func eventTimestamps(chip *models.RfidChip) map[constants.ChipEvent]*time.Time {
	return map[constants.ChipEvent]*time.Time{
		constants.ChipEventReceiveFromSupplier: chip.ReceivedFromSupplierDate,
		constants.ChipEventEncode:              chip.EncodingDate,
		constants.ChipEventShipToClient:        chip.ShippedToClientDate,
		constants.ChipEventConfirmDelivery:     chip.DeliveredToClientDate,
		constants.ChipEventAssign:              chip.AssignmentDate,
		constants.ChipEventRequestSav:          chip.SavReturnDate,
		constants.ChipEventDeactivate:          chip.DeactivationDate,
		constants.ChipEventArchive:             chip.ArchivedDate,
	}
}

// ListSecurityEvents 安全事件列表
func (s *ChipService) ListSecurityEvents(filter repository.ChipSecurityEventListFilter) ([]models.ChipSecurityEvent, int64, error) {
	events, total, err := s.securityEventRepo.List(filter)
	if err != nil {
		return nil, 0, wrapDependency(ErrChipFetchFailed, err)
	}
	return events, total, nil
}

// MarkSecurityEventNotified 告警投递成功后回写
func (s *ChipService) MarkSecurityEventNotified(eventID uint) (*models.ChipSecurityEvent, error) {
	event, err := s.securityEventRepo.GetByID(eventID)
	if err != nil {
		return nil, wrapDependency(ErrChipFetchFailed, err)
	}
	if event == nil {
		return nil, ErrNotFound
	}
	if event.NotifiedAt != nil {
		return event, nil
	}
	now := s.now()
	if err := s.securityEventRepo.MarkNotified(eventID, now); err != nil {
		return nil, wrapDependency(ErrChipUpdateFailed, err)
	}
	event.NotifiedAt = &now
	return event, nil
}

// ResendPendingSecurityAlerts 重新投递超过 grace 仍未确认的告警
func (s *ChipService) ResendPendingSecurityAlerts(grace time.Duration, limit int) (int, error) {
	if s.queueClient == nil || !s.queueClient.Enabled() {
		return 0, nil
	}
	events, err := s.securityEventRepo.ListPendingNotification(s.now().Add(-grace), limit)
	if err != nil {
		return 0, wrapDependency(ErrChipFetchFailed, err)
	}
	sent := 0
	for _, event := range events {
		if err := s.queueClient.EnqueueChipSecurityAlert(securityAlertPayload(&event)); err != nil {
			logger.Warnw("chip_security_alert_resend_failed", "event_id", event.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

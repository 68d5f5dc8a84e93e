package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

const (
	defaultImportErrorLimit    = 50
	defaultImportMaxRows       = 10000
	defaultSpreadsheetMaxBytes = 5 << 20

	xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	importReasonInvalidUID     = "invalid_uid"
	importReasonDuplicateBatch = "duplicate_in_batch"
	importReasonRegistered     = "already_registered"
	importReasonInsertFailed   = "insert_failed"
)

// RegisterSingle 单颗登记，UID 已存在时返回已登记芯片
func (s *ChipService) RegisterSingle(ctx context.Context, rawUID string, supplierOrderID *uint) (*models.RfidChip, error) {
	uid, err := NormalizeUID(rawUID)
	if err != nil {
		return nil, err
	}
	if supplierOrderID != nil && *supplierOrderID > 0 {
		order, err := s.supplierOrderRepo.GetByID(*supplierOrderID)
		if err != nil {
			return nil, wrapDependency(ErrChipFetchFailed, err)
		}
		if order == nil {
			return nil, ErrSupplierOrderNotFound
		}
	} else {
		supplierOrderID = nil
	}
	existing, err := s.chipRepo.GetByUID(uid)
	if err != nil {
		return nil, wrapDependency(ErrChipFetchFailed, err)
	}
	if existing != nil {
		return nil, &ChipDuplicateError{Existing: existing}
	}
	chip := s.newTransitChip(uid, supplierOrderID)
	if err := s.chipRepo.Create(chip); err != nil {
		if models.IsDuplicateKey(err) {
			existing, _ = s.chipRepo.GetByUID(uid)
			return nil, &ChipDuplicateError{Existing: existing}
		}
		return nil, wrapDependency(ErrChipUpdateFailed, err)
	}
	logger.Infow("chip_registered", "chip_id", chip.ID, "uid", chip.UID, "supplier_order_id", supplierOrderID)
	return chip, nil
}

func (s *ChipService) newTransitChip(uid string, supplierOrderID *uint) *models.RfidChip {
	now := s.now()
	return &models.RfidChip{
		ChipID:          s.security.GenerateChipID(),
		UID:             uid,
		Status:          constants.ChipStatusInTransit,
		SupplierOrderID: supplierOrderID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ImportIssue 导入异常行
type ImportIssue struct {
	Row    int    `json:"row"`
	UID    string `json:"uid"`
	Reason string `json:"reason"`
}

// ImportResult 批量导入结果
type ImportResult struct {
	SupplierOrderID uint          `json:"supplier_order_id"`
	Success         int           `json:"success"`
	Duplicates      int           `json:"duplicates"`
	Errors          int           `json:"errors"`
	ErrorDetails    []ImportIssue `json:"error_details"`
	Truncated       bool          `json:"truncated"`
}

func (r *ImportResult) addIssue(limit int, issue ImportIssue) {
	if len(r.ErrorDetails) >= limit {
		r.Truncated = true
		return
	}
	r.ErrorDetails = append(r.ErrorDetails, issue)
}

// ImportUIDs 按采购单批量登记，数量须与采购明细合计一致
func (s *ChipService) ImportUIDs(ctx context.Context, supplierOrderID uint, uids []string) (*ImportResult, error) {
	if len(uids) == 0 {
		return nil, ErrImportEmpty
	}
	maxRows := s.cfg.ImportMaxRows
	if maxRows <= 0 {
		maxRows = defaultImportMaxRows
	}
	if len(uids) > maxRows {
		return nil, ErrImportTooLarge
	}
	if supplierOrderID == 0 {
		return nil, ErrSupplierOrderNotFound
	}
	order, err := s.supplierOrderRepo.GetByID(supplierOrderID)
	if err != nil {
		return nil, wrapDependency(ErrChipFetchFailed, err)
	}
	if order == nil {
		return nil, ErrSupplierOrderNotFound
	}
	expected, err := s.supplierOrderRepo.SumLineQuantity(supplierOrderID)
	if err != nil {
		return nil, wrapDependency(ErrChipFetchFailed, err)
	}
	provided := int64(len(uids))
	if provided != expected {
		return nil, &ImportCountMismatchError{
			Expected:   expected,
			Provided:   provided,
			Difference: provided - expected,
		}
	}

	errorLimit := s.cfg.ImportErrorLimit
	if errorLimit <= 0 {
		errorLimit = defaultImportErrorLimit
	}
	result := &ImportResult{SupplierOrderID: supplierOrderID, ErrorDetails: make([]ImportIssue, 0)}

	normalized := make([]string, len(uids))
	candidates := make([]string, 0, len(uids))
	for i, raw := range uids {
		uid, err := NormalizeUID(raw)
		if err != nil {
			continue
		}
		normalized[i] = uid
		candidates = append(candidates, uid)
	}
	existing, err := s.chipRepo.ListExistingUIDs(candidates)
	if err != nil {
		return nil, wrapDependency(ErrChipFetchFailed, err)
	}

	seen := make(map[string]struct{}, len(uids))
	orderRef := supplierOrderID
	for i, raw := range uids {
		row := i + 1
		uid := normalized[i]
		if uid == "" {
			result.Errors++
			result.addIssue(errorLimit, ImportIssue{Row: row, UID: strings.TrimSpace(raw), Reason: importReasonInvalidUID})
			continue
		}
		if _, ok := seen[uid]; ok {
			result.Duplicates++
			result.addIssue(errorLimit, ImportIssue{Row: row, UID: uid, Reason: importReasonDuplicateBatch})
			continue
		}
		seen[uid] = struct{}{}
		if _, ok := existing[uid]; ok {
			result.Duplicates++
			result.addIssue(errorLimit, ImportIssue{Row: row, UID: uid, Reason: importReasonRegistered})
			continue
		}
		chip := s.newTransitChip(uid, &orderRef)
		if err := s.chipRepo.Create(chip); err != nil {
			if models.IsDuplicateKey(err) {
				result.Duplicates++
				result.addIssue(errorLimit, ImportIssue{Row: row, UID: uid, Reason: importReasonRegistered})
				continue
			}
			logger.Warnw("chip_import_row_failed", "supplier_order_id", supplierOrderID, "row", row, "error", err)
			result.Errors++
			result.addIssue(errorLimit, ImportIssue{Row: row, UID: uid, Reason: importReasonInsertFailed})
			continue
		}
		result.Success++
	}

	s.metrics.AddImportRows("success", result.Success)
	s.metrics.AddImportRows("duplicate", result.Duplicates)
	s.metrics.AddImportRows("error", result.Errors)
	logger.Infow("chip_import_completed",
		"supplier_order_id", supplierOrderID,
		"success", result.Success,
		"duplicates", result.Duplicates,
		"errors", result.Errors,
	)
	return result, nil
}

// SpreadsheetUIDs 表格解析结果
type SpreadsheetUIDs struct {
	Format string   `json:"format"`
	Sheet  string   `json:"sheet,omitempty"`
	UIDs   []string `json:"uids"`
	Count  int      `json:"count"`
}

// ParseSpreadsheet 从 xlsx/csv 中提取 UID 列
func (s *ChipService) ParseSpreadsheet(filename string, data []byte) (*SpreadsheetUIDs, error) {
	if len(data) == 0 {
		return nil, ErrSpreadsheetUnsupported
	}
	maxBytes := s.cfg.SpreadsheetMaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultSpreadsheetMaxBytes
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrSpreadsheetTooLarge
	}

	switch detectSpreadsheetFormat(filename, data) {
	case "xlsx":
		return parseXLSX(data)
	case "csv":
		return parseCSV(data)
	default:
		return nil, ErrSpreadsheetUnsupported
	}
}

func detectSpreadsheetFormat(filename string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(filename))
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		switch {
		case m.Is(xlsxMIME):
			return "xlsx"
		case m.Is("application/zip"):
			if ext == ".xlsx" {
				return "xlsx"
			}
			return ""
		case m.Is("text/csv"), m.Is("text/plain"):
			if ext == "" || ext == ".csv" || ext == ".txt" {
				return "csv"
			}
			return ""
		}
	}
	return ""
}

func parseXLSX(data []byte) (*SpreadsheetUIDs, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpreadsheetParseFailed, err)
	}
	defer func() {
		_ = f.Close()
	}()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrSpreadsheetUIDMissing
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSpreadsheetParseFailed, err)
	}
	uids, err := extractUIDColumn(rows)
	if err != nil {
		return nil, err
	}
	return &SpreadsheetUIDs{Format: "xlsx", Sheet: sheet, UIDs: uids, Count: len(uids)}, nil
}

func parseCSV(data []byte) (*SpreadsheetUIDs, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	head := data[:min(len(data), 1024)]
	if bytes.Count(head, []byte(";")) > bytes.Count(head, []byte(",")) {
		reader.Comma = ';'
	}
	rows := make([][]string, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSpreadsheetParseFailed, err)
		}
		rows = append(rows, record)
	}
	uids, err := extractUIDColumn(rows)
	if err != nil {
		return nil, err
	}
	return &SpreadsheetUIDs{Format: "csv", UIDs: uids, Count: len(uids)}, nil
}

// extractUIDColumn 首行表头中查找 UID 列（不区分大小写）
func extractUIDColumn(rows [][]string) ([]string, error) {
	if len(rows) == 0 {
		return nil, ErrSpreadsheetUIDMissing
	}
	column := -1
	for i, header := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(header), "uid") {
			column = i
			break
		}
	}
	if column < 0 {
		return nil, ErrSpreadsheetUIDMissing
	}
	uids := make([]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if column >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[column])
		if value == "" {
			continue
		}
		uids = append(uids, value)
	}
	return uids, nil
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func createSupplierOrder(t *testing.T, db *gorm.DB, reference string, quantities ...int) *models.SupplierOrder {
	t.Helper()
	order := &models.SupplierOrder{
		Reference:    reference,
		SupplierName: "NXP Distribution",
		Status:       constants.SupplierOrderStatusOpen,
	}
	for i, qty := range quantities {
		order.Lines = append(order.Lines, models.SupplierOrderLine{
			Label:    "NTAG batch " + string(rune('A'+i)),
			Quantity: qty,
		})
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create supplier order failed: %v", err)
	}
	return order
}

func countChips(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var total int64
	if err := db.Model(&models.RfidChip{}).Count(&total).Error; err != nil {
		t.Fatalf("count chips failed: %v", err)
	}
	return total
}

func TestImportRejectsCountMismatch(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	order := createSupplierOrder(t, db, "SO-MISMATCH", 6, 4)

	uids := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		uids = append(uids, testUID(100+i))
	}
	_, err := svc.ImportUIDs(context.Background(), order.ID, uids)
	if !errors.Is(err, ErrImportCountMismatch) {
		t.Fatalf("expected count mismatch, got %v", err)
	}
	var mismatch *ImportCountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected mismatch details, got %T", err)
	}
	if mismatch.Expected != 10 || mismatch.Provided != 8 || mismatch.Difference != -2 {
		t.Fatalf("unexpected mismatch: %+v", mismatch)
	}
	if total := countChips(t, db); total != 0 {
		t.Fatalf("expected no chips created, got %d", total)
	}
}

func TestImportReportsRowOutcomes(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	order := createSupplierOrder(t, db, "SO-MIXED", 5)
	createChipInStatus(t, db, testUID(200), constants.ChipStatusInStock, nil)

	uids := []string{
		"04:00:00:00:00:01:2D",
		testUID(200),
		"not-a-uid",
		testUID(302),
		"04000000000012d",
	}
	result, err := svc.ImportUIDs(context.Background(), order.ID, uids)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Success != 2 || result.Duplicates != 1 || result.Errors != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.ErrorDetails) != 3 {
		t.Fatalf("expected 3 issue rows, got %d", len(result.ErrorDetails))
	}
	if result.ErrorDetails[0].Row != 2 || result.ErrorDetails[0].Reason != importReasonRegistered {
		t.Fatalf("unexpected first issue: %+v", result.ErrorDetails[0])
	}
	if result.ErrorDetails[1].Row != 3 || result.ErrorDetails[1].Reason != importReasonInvalidUID {
		t.Fatalf("unexpected second issue: %+v", result.ErrorDetails[1])
	}

	var chip models.RfidChip
	if err := db.Where("uid = ?", "0400000000012D").First(&chip).Error; err != nil {
		t.Fatalf("expected normalized uid to be stored: %v", err)
	}
	if chip.Status != constants.ChipStatusInTransit || chip.SupplierOrderID == nil || *chip.SupplierOrderID != order.ID {
		t.Fatalf("unexpected imported chip: %+v", chip)
	}
	if entries := loadHistory(t, db, chip.ID); len(entries) != 0 {
		t.Fatalf("registration must not write history, got %d rows", len(entries))
	}
}

func TestImportDetectsDuplicatesWithinBatch(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	order := createSupplierOrder(t, db, "SO-DUP", 3)

	result, err := svc.ImportUIDs(context.Background(), order.ID, []string{testUID(400), testUID(401), testUID(400)})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Success != 2 || result.Duplicates != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.ErrorDetails[0].Reason != importReasonDuplicateBatch || result.ErrorDetails[0].Row != 3 {
		t.Fatalf("unexpected issue: %+v", result.ErrorDetails[0])
	}
}

func TestImportTruncatesErrorDetails(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	svc.cfg.ImportErrorLimit = 2
	order := createSupplierOrder(t, db, "SO-TRUNC", 4)

	result, err := svc.ImportUIDs(context.Background(), order.ID, []string{"x", "y", "z", testUID(500)})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if result.Errors != 3 || len(result.ErrorDetails) != 2 || !result.Truncated {
		t.Fatalf("unexpected truncation: %+v", result)
	}
}

func TestImportRequiresSupplierOrder(t *testing.T) {
	svc, _ := setupChipServiceTest(t)
	if _, err := svc.ImportUIDs(context.Background(), 0, []string{testUID(1)}); !errors.Is(err, ErrSupplierOrderNotFound) {
		t.Fatalf("expected supplier order not found, got %v", err)
	}
	if _, err := svc.ImportUIDs(context.Background(), 42, nil); !errors.Is(err, ErrImportEmpty) {
		t.Fatalf("expected empty import, got %v", err)
	}
}

func TestRegisterSingleRejectsDuplicate(t *testing.T) {
	svc, _ := setupChipServiceTest(t)
	first, err := svc.RegisterSingle(context.Background(), "04-aa-bb-cc", nil)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if first.UID != "04AABBCC" || first.Status != constants.ChipStatusInTransit || first.ChipID == "" {
		t.Fatalf("unexpected chip: %+v", first)
	}

	_, err = svc.RegisterSingle(context.Background(), "04AABBCC", nil)
	if !errors.Is(err, ErrChipDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	var dup *ChipDuplicateError
	if !errors.As(err, &dup) || dup.Existing == nil || dup.Existing.ID != first.ID {
		t.Fatalf("expected existing chip in duplicate error, got %v", err)
	}

	missing := uint(999)
	if _, err := svc.RegisterSingle(context.Background(), "04AABBCD", &missing); !errors.Is(err, ErrSupplierOrderNotFound) {
		t.Fatalf("expected supplier order not found, got %v", err)
	}
}

func TestParseSpreadsheetXLSX(t *testing.T) {
	svc, _ := setupChipServiceTest(t)
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"Label", "UID"},
		{"tag-1", testUID(1)},
		{"tag-2", ""},
		{"tag-3", testUID(3)},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name failed: %v", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("set row failed: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx failed: %v", err)
	}
	_ = f.Close()

	parsed, err := svc.ParseSpreadsheet("chips.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("parse xlsx failed: %v", err)
	}
	if parsed.Format != "xlsx" || parsed.Count != 2 {
		t.Fatalf("unexpected parse result: %+v", parsed)
	}
	if parsed.UIDs[0] != testUID(1) || parsed.UIDs[1] != testUID(3) {
		t.Fatalf("unexpected uids: %v", parsed.UIDs)
	}
}

func TestParseSpreadsheetCSV(t *testing.T) {
	svc, _ := setupChipServiceTest(t)
	data := []byte("\xef\xbb\xbfLabel;uid\ntag-1;04A1B2C3\ntag-2;04A1B2C4\ntag-3;04A1B2C5\n")

	parsed, err := svc.ParseSpreadsheet("chips.csv", data)
	if err != nil {
		t.Fatalf("parse csv failed: %v", err)
	}
	if parsed.Format != "csv" || parsed.Count != 3 || parsed.UIDs[2] != "04A1B2C5" {
		t.Fatalf("unexpected parse result: %+v", parsed)
	}

	_, err = svc.ParseSpreadsheet("chips.csv", []byte("label,serial\ntag-1,04A1B2C3\ntag-2,04A1B2C4\n"))
	if !errors.Is(err, ErrSpreadsheetUIDMissing) {
		t.Fatalf("expected missing uid column, got %v", err)
	}
}

func TestParseSpreadsheetRejectsUnsupported(t *testing.T) {
	svc, _ := setupChipServiceTest(t)
	if _, err := svc.ParseSpreadsheet("chips.pdf", []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n1 0 obj\n")); !errors.Is(err, ErrSpreadsheetUnsupported) {
		t.Fatalf("expected unsupported format, got %v", err)
	}
	if _, err := svc.ParseSpreadsheet("empty.csv", nil); !errors.Is(err, ErrSpreadsheetUnsupported) {
		t.Fatalf("expected unsupported for empty upload, got %v", err)
	}
	svc.cfg.SpreadsheetMaxBytes = 8
	if _, err := svc.ParseSpreadsheet("big.csv", []byte("uid\n04A1B2C3\n")); !errors.Is(err, ErrSpreadsheetTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
}

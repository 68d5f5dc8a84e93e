package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/chiptrack/internal/config"
	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/metrics"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func testChipConfig() config.ChipConfig {
	return config.ChipConfig{
		ChecksumSecret:   "test-checksum-secret",
		KeySecret:        "test-key-secret",
		SaltBytes:        16,
		ArchiveMinWords:  10,
		ImportErrorLimit: 50,
		ImportMaxRows:    1000,
		DefaultChipQuota: 100,
	}
}

func setupChipServiceTest(t *testing.T) (*ChipService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:chip_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Customer{},
		&models.ControlPoint{},
		&models.SupplierOrder{},
		&models.SupplierOrderLine{},
		&models.Order{},
		&models.RfidChip{},
		&models.RfidChipStatusHistory{},
		&models.ChipSecurityEvent{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	svc := NewChipService(
		testChipConfig(),
		repository.NewChipRepository(db),
		repository.NewChipHistoryRepository(db),
		repository.NewOrderRepository(db),
		repository.NewCustomerRepository(db),
		repository.NewSupplierOrderRepository(db),
		repository.NewChipSecurityEventRepository(db),
		nil,
		nil,
		metrics.NewChipMetrics(nil),
	)
	return svc, db
}

func testUID(n int) string {
	return fmt.Sprintf("04%012X", n)
}

func createTestCustomer(t *testing.T, db *gorm.DB, quota int) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		Name:               fmt.Sprintf("customer-%d", time.Now().UnixNano()),
		Status:             constants.CustomerStatusActive,
		SubscriptionStatus: constants.SubscriptionStatusActive,
		ChipQuota:          quota,
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return customer
}

func createDeliveredOrder(t *testing.T, db *gorm.DB, customerID uint, quantity int, deliveredAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNo:         fmt.Sprintf("CT-TEST-%d", time.Now().UnixNano()),
		CustomerID:      customerID,
		Type:            constants.OrderTypeStandard,
		Status:          constants.OrderStatusDelivered,
		ChipsQuantity:   quantity,
		IsStockReserved: true,
		Currency:        constants.DefaultCurrency,
		TotalAmount:     models.NewMoney(decimal.NewFromInt(int64(quantity) * 10)),
		DeliveredAt:     &deliveredAt,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

// createChipInStatus 直接写入指定状态的芯片（不产生流转记录）
func createChipInStatus(t *testing.T, db *gorm.DB, uid string, status constants.ChipStatus, customerID *uint) *models.RfidChip {
	t.Helper()
	chip := &models.RfidChip{
		ChipID:     uuid.NewString(),
		UID:        uid,
		Status:     status,
		CustomerID: customerID,
	}
	if err := db.Create(chip).Error; err != nil {
		t.Fatalf("create chip failed: %v", err)
	}
	return chip
}

// stockChip 走完登记、到货、编码，返回 EN_STOCK 芯片与编码结果
func stockChip(t *testing.T, svc *ChipService, uid string) (*models.RfidChip, *EncodingResult) {
	t.Helper()
	ctx := context.Background()
	chip, err := svc.RegisterSingle(ctx, uid, nil)
	if err != nil {
		t.Fatalf("register chip failed: %v", err)
	}
	if _, err := svc.ReceiveFromSupplier(ctx, AdminActor(1), chip.ID); err != nil {
		t.Fatalf("receive chip failed: %v", err)
	}
	encoded, err := svc.Encode(ctx, AdminActor(1), chip.ID)
	if err != nil {
		t.Fatalf("encode chip failed: %v", err)
	}
	return chip, encoded
}

func activationInput(encoded *EncodingResult) ActivateChipInput {
	return ActivateChipInput{
		UID:        encoded.UID,
		ChipID:     encoded.ChipID,
		Block4Data: encoded.Block4Data,
		Block8Data: encoded.Block8Data,
	}
}

func loadChip(t *testing.T, db *gorm.DB, id uint) *models.RfidChip {
	t.Helper()
	var chip models.RfidChip
	if err := db.First(&chip, id).Error; err != nil {
		t.Fatalf("load chip failed: %v", err)
	}
	return &chip
}

func loadHistory(t *testing.T, db *gorm.DB, chipID uint) []models.RfidChipStatusHistory {
	t.Helper()
	var entries []models.RfidChipStatusHistory
	if err := db.Where("rfid_chip_id = ?", chipID).Order("id asc").Find(&entries).Error; err != nil {
		t.Fatalf("load history failed: %v", err)
	}
	return entries
}

func TestChipLifecycleHistoryReplays(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	ctx := context.Background()
	customer := createTestCustomer(t, db, 0)
	order := &models.Order{
		OrderNo:         "CT-LIFECYCLE",
		CustomerID:      customer.ID,
		Type:            constants.OrderTypeStandard,
		Status:          constants.OrderStatusPaid,
		ChipsQuantity:   1,
		IsStockReserved: true,
		Currency:        constants.DefaultCurrency,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	point := &models.ControlPoint{CustomerID: customer.ID, Name: "gate-1"}
	if err := db.Create(point).Error; err != nil {
		t.Fatalf("create control point failed: %v", err)
	}

	chip, _ := stockChip(t, svc, testUID(1))
	shipped, err := svc.ShipToClient(ctx, AdminActor(1), chip.ID, ShipToClientInput{OrderID: order.ID})
	if err != nil {
		t.Fatalf("ship failed: %v", err)
	}
	if !strings.HasPrefix(shipped.PackagingCode, "PKG-") {
		t.Fatalf("expected generated packaging code, got %q", shipped.PackagingCode)
	}
	actor := CustomerActor(customer.ID, "127.0.0.1")
	if _, err := svc.ConfirmDelivery(ctx, actor, chip.ID, shipped.PackagingCode); err != nil {
		t.Fatalf("confirm delivery failed: %v", err)
	}
	assigned, err := svc.AssignToControlPoint(ctx, actor, chip.ID, point.ID)
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if assigned.FirstScanDate == nil || assigned.AssignmentDate == nil {
		t.Fatalf("expected scan and assignment dates to be stamped")
	}
	if _, err := svc.Deactivate(ctx, actor, chip.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if _, err := svc.AssignToControlPoint(ctx, actor, chip.ID, point.ID); err != nil {
		t.Fatalf("reassign failed: %v", err)
	}

	entries := loadHistory(t, db, chip.ID)
	if len(entries) != 7 {
		t.Fatalf("expected 7 history rows, got %d", len(entries))
	}
	final := loadChip(t, db, chip.ID)
	replayed, err := ReplayChipHistory(entries)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if replayed != final.Status || final.Status != constants.ChipStatusActive {
		t.Fatalf("expected ACTIVE after replay, got chip=%s replay=%s", final.Status, replayed)
	}
	if final.Version != uint64(len(entries)) {
		t.Fatalf("expected version %d, got %d", len(entries), final.Version)
	}

	var refreshed models.Order
	if err := db.First(&refreshed, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if refreshed.Status != constants.OrderStatusShipped || refreshed.ShippedAt == nil {
		t.Fatalf("expected order shipped, got %s", refreshed.Status)
	}

	audit, err := svc.AuditChip(chip.ID)
	if err != nil {
		t.Fatalf("audit failed: %v", err)
	}
	if !audit.Consistent {
		t.Fatalf("expected consistent audit, got issues: %v", audit.Issues)
	}
}

func TestChipInvalidTransitionLeavesNoHistory(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	chip := createChipInStatus(t, db, testUID(2), constants.ChipStatusInTransit, nil)

	_, err := svc.ReceiveSav(context.Background(), AdminActor(1), chip.ID)
	if !errors.Is(err, ErrChipInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	stateErr, ok := AsChipStateError(err)
	if !ok || stateErr.Current != constants.ChipStatusInTransit {
		t.Fatalf("expected state error with current status, got %v", err)
	}
	if entries := loadHistory(t, db, chip.ID); len(entries) != 0 {
		t.Fatalf("expected no history rows, got %d", len(entries))
	}
}

func TestEncodeTwiceRejected(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	chip, first := stockChip(t, svc, testUID(3))
	if first.ChipKey == "" || len(first.Checksum) != chipBlockHexLen {
		t.Fatalf("unexpected encoding result: %+v", first)
	}

	_, err := svc.Encode(context.Background(), AdminActor(1), chip.ID)
	if !errors.Is(err, ErrChipInvalidTransition) {
		t.Fatalf("expected state conflict on second encode, got %v", err)
	}
	_, err = svc.RequestEncoding(context.Background(), FactoryActor("10.0.0.1"), chip.UID)
	if !errors.Is(err, ErrChipInvalidTransition) {
		t.Fatalf("expected state conflict on factory encode, got %v", err)
	}

	stored := loadChip(t, db, chip.ID)
	if stored.Salt == nil || *stored.Salt != first.Salt {
		t.Fatalf("salt changed after rejected encode")
	}
	if stored.Checksum == nil || *stored.Checksum != first.Checksum {
		t.Fatalf("checksum changed after rejected encode")
	}
	if entries := loadHistory(t, db, chip.ID); len(entries) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(entries))
	}
}

func TestEncodeRejectsPreEncodedWorkshopChip(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	chip := createChipInStatus(t, db, testUID(4), constants.ChipStatusInWorkshop, nil)
	salt, checksum := "AA", "BB"
	if err := db.Model(chip).Updates(map[string]interface{}{"salt": salt, "checksum": checksum}).Error; err != nil {
		t.Fatalf("seed crypto failed: %v", err)
	}

	_, err := svc.RequestEncoding(context.Background(), FactoryActor(""), chip.UID)
	if !errors.Is(err, ErrChipAlreadyEncoded) {
		t.Fatalf("expected already encoded, got %v", err)
	}
	if loadChip(t, db, chip.ID).Status != constants.ChipStatusInWorkshop {
		t.Fatalf("chip status should be unchanged")
	}
}

func TestActivateRejectsClonedChecksum(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	customer := createTestCustomer(t, db, 0)
	createDeliveredOrder(t, db, customer.ID, 5, time.Now())
	genuine, genuineEnc := stockChip(t, svc, testUID(10))
	_, otherEnc := stockChip(t, svc, testUID(11))

	input := activationInput(genuineEnc)
	input.Block8Data = svc.Security().GenerateChecksum(genuineEnc.UID, otherEnc.Salt, otherEnc.ChipID)

	_, err := svc.ActivateChip(context.Background(), CustomerActor(customer.ID, "203.0.113.5"), input)
	if !errors.Is(err, ErrChipSecurityViolation) {
		t.Fatalf("expected security violation, got %v", err)
	}
	secErr, ok := AsChipSecurityError(err)
	if !ok || secErr.Reason != constants.ChipSecurityReasonChecksumMismatch {
		t.Fatalf("expected checksum mismatch reason, got %v", err)
	}
	if loadChip(t, db, genuine.ID).Status != constants.ChipStatusInStock {
		t.Fatalf("chip should stay in stock after rejected activation")
	}

	var events []models.ChipSecurityEvent
	if err := db.Find(&events).Error; err != nil {
		t.Fatalf("load security events failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 security event, got %d", len(events))
	}
	if events[0].RfidChipID == nil || *events[0].RfidChipID != genuine.ID || events[0].ClientIP != "203.0.113.5" {
		t.Fatalf("unexpected security event: %+v", events[0])
	}
}

func TestActivateRejectsTamperedIdentifiers(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	customer := createTestCustomer(t, db, 0)
	createDeliveredOrder(t, db, customer.ID, 5, time.Now())
	_, enc := stockChip(t, svc, testUID(12))
	_, other := stockChip(t, svc, testUID(13))
	actor := CustomerActor(customer.ID, "")

	wrongID := activationInput(enc)
	wrongID.ChipID = other.ChipID
	_, err := svc.ActivateChip(context.Background(), actor, wrongID)
	if secErr, ok := AsChipSecurityError(err); !ok || secErr.Reason != constants.ChipSecurityReasonChipIDMismatch {
		t.Fatalf("expected chip id mismatch, got %v", err)
	}

	wrongBlock4 := activationInput(enc)
	wrongBlock4.Block4Data = other.Block4Data
	_, err = svc.ActivateChip(context.Background(), actor, wrongBlock4)
	if secErr, ok := AsChipSecurityError(err); !ok || secErr.Reason != constants.ChipSecurityReasonBlock4Mismatch {
		t.Fatalf("expected block4 mismatch, got %v", err)
	}

	malformed := activationInput(enc)
	malformed.Block8Data = "XYZ"
	_, err = svc.ActivateChip(context.Background(), actor, malformed)
	if !errors.Is(err, ErrChipPayloadMalformed) {
		t.Fatalf("expected malformed payload, got %v", err)
	}

	unknown := activationInput(enc)
	unknown.UID = testUID(999)
	_, err = svc.ActivateChip(context.Background(), actor, unknown)
	if secErr, ok := AsChipSecurityError(err); !ok || secErr.Reason != constants.ChipSecurityReasonUnknownUID {
		t.Fatalf("expected unknown uid, got %v", err)
	}
}

func TestActivateFIFOAcrossDeliveredOrders(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	customer := createTestCustomer(t, db, 10)
	day1 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	day5 := day1.AddDate(0, 0, 4)
	later := createDeliveredOrder(t, db, customer.ID, 2, day5)
	earlier := createDeliveredOrder(t, db, customer.ID, 2, day1)

	actor := CustomerActor(customer.ID, "")
	expected := []uint{earlier.ID, earlier.ID, later.ID, later.ID}
	for i, orderID := range expected {
		_, enc := stockChip(t, svc, testUID(20+i))
		result, err := svc.ActivateChip(context.Background(), actor, activationInput(enc))
		if err != nil {
			t.Fatalf("activation %d failed: %v", i+1, err)
		}
		if result.Chip.Status != constants.ChipStatusInactive {
			t.Fatalf("activation %d: expected INACTIVE, got %s", i+1, result.Chip.Status)
		}
		if result.Chip.OrderID == nil || *result.Chip.OrderID != orderID {
			t.Fatalf("activation %d: expected order %d, got %v", i+1, orderID, result.Chip.OrderID)
		}
		if result.Chip.CustomerID == nil || *result.Chip.CustomerID != customer.ID {
			t.Fatalf("activation %d: customer not bound", i+1)
		}
	}

	fifth, enc := stockChip(t, svc, testUID(30))
	_, err := svc.ActivateChip(context.Background(), actor, activationInput(enc))
	if !errors.Is(err, ErrNoEligibleOrder) {
		t.Fatalf("expected no eligible order, got %v", err)
	}
	if loadChip(t, db, fifth.ID).Status != constants.ChipStatusInStock {
		t.Fatalf("fifth chip should remain in stock")
	}

	var reloaded models.Order
	if err := db.First(&reloaded, earlier.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if reloaded.IsStockReserved {
		t.Fatalf("expected stock reservation released once order is filled")
	}
}

func TestActivateRespectsQuotaAndSubscription(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	customer := createTestCustomer(t, db, 1)
	createDeliveredOrder(t, db, customer.ID, 5, time.Now())
	customerID := customer.ID
	createChipInStatus(t, db, testUID(40), constants.ChipStatusActive, &customerID)

	_, enc := stockChip(t, svc, testUID(41))
	_, err := svc.ActivateChip(context.Background(), CustomerActor(customer.ID, ""), activationInput(enc))
	if !errors.Is(err, ErrChipQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}

	if err := db.Model(customer).Updates(map[string]interface{}{
		"chip_quota":          10,
		"subscription_status": constants.SubscriptionStatusPastDue,
	}).Error; err != nil {
		t.Fatalf("update customer failed: %v", err)
	}
	_, err = svc.ActivateChip(context.Background(), CustomerActor(customer.ID, ""), activationInput(enc))
	if !errors.Is(err, ErrSubscriptionInactive) {
		t.Fatalf("expected subscription inactive, got %v", err)
	}
}

func TestActivateRejectsFilledOrder(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	customer := createTestCustomer(t, db, 10)
	order := createDeliveredOrder(t, db, customer.ID, 1, time.Now())
	actor := CustomerActor(customer.ID, "")

	_, enc := stockChip(t, svc, testUID(70))
	first, err := svc.ActivateChip(context.Background(), actor, activationInput(enc))
	if err != nil {
		t.Fatalf("first activation failed: %v", err)
	}
	if first.Order == nil || first.Order.ID != order.ID {
		t.Fatalf("expected order %d to be picked", order.ID)
	}

	second, enc := stockChip(t, svc, testUID(71))
	_, err = svc.ActivateChip(context.Background(), actor, activationInput(enc))
	if !errors.Is(err, ErrNoEligibleOrder) {
		t.Fatalf("expected no eligible order once the slot is taken, got %v", err)
	}
	if loadChip(t, db, second.ID).Status != constants.ChipStatusInStock {
		t.Fatalf("second chip should remain in stock")
	}
	var bound int64
	if err := db.Model(&models.RfidChip{}).Where("order_id = ?", order.ID).Count(&bound).Error; err != nil {
		t.Fatalf("count chips failed: %v", err)
	}
	if bound != 1 {
		t.Fatalf("expected exactly 1 chip bound to order, got %d", bound)
	}
}

func TestShipToClientCapsAtOrderQuantity(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	customer := createTestCustomer(t, db, 0)
	order := &models.Order{
		OrderNo:         "CT-SHIP-CAP",
		CustomerID:      customer.ID,
		Type:            constants.OrderTypeStandard,
		Status:          constants.OrderStatusPaid,
		ChipsQuantity:   2,
		IsStockReserved: true,
		Currency:        constants.DefaultCurrency,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < order.ChipsQuantity; i++ {
		chip, _ := stockChip(t, svc, testUID(80+i))
		if _, err := svc.ShipToClient(ctx, AdminActor(1), chip.ID, ShipToClientInput{OrderID: order.ID}); err != nil {
			t.Fatalf("ship %d failed: %v", i+1, err)
		}
	}

	extra, _ := stockChip(t, svc, testUID(89))
	_, err := svc.ShipToClient(ctx, AdminActor(1), extra.ID, ShipToClientInput{OrderID: order.ID})
	if !errors.Is(err, ErrOrderNotShippable) {
		t.Fatalf("expected order not shippable once quantity is reached, got %v", err)
	}
	stored := loadChip(t, db, extra.ID)
	if stored.Status != constants.ChipStatusInStock || stored.ClientOrderID != nil {
		t.Fatalf("extra chip should stay unbound in stock, got %s", stored.Status)
	}
}

func TestReplaceCascadesArchiveWhenReplacementDelivered(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	customer := createTestCustomer(t, db, 0)
	customerID := customer.ID
	original := createChipInStatus(t, db, testUID(50), constants.ChipStatusSavReturn, &customerID)
	replacement := createChipInStatus(t, db, testUID(51), constants.ChipStatusDelivered, &customerID)

	updated, err := svc.Replace(context.Background(), AdminActor(1), original.ID, replacement.ID)
	if err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if updated.Status != constants.ChipStatusArchived {
		t.Fatalf("expected ARCHIVEE, got %s", updated.Status)
	}
	stored := loadChip(t, db, original.ID)
	if stored.Status != constants.ChipStatusArchived || stored.ArchivedDate == nil {
		t.Fatalf("expected archived chip with date, got %s", stored.Status)
	}
	if stored.ReplacementChipID == nil || *stored.ReplacementChipID != replacement.ID {
		t.Fatalf("replacement chip not recorded")
	}
	entries := loadHistory(t, db, original.ID)
	if len(entries) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(entries))
	}
	if entries[0].FromStatus != constants.ChipStatusSavReturn || entries[0].ToStatus != constants.ChipStatusReplaced {
		t.Fatalf("unexpected first row: %s -> %s", entries[0].FromStatus, entries[0].ToStatus)
	}
	if entries[1].FromStatus != constants.ChipStatusReplaced || entries[1].ToStatus != constants.ChipStatusArchived {
		t.Fatalf("unexpected second row: %s -> %s", entries[1].FromStatus, entries[1].ToStatus)
	}
	if entries[1].ChangedBy != constants.ChangedBySystem {
		t.Fatalf("expected system cascade, got %s", entries[1].ChangedBy)
	}
}

func TestReplaceKeepsReplacedWhenReplacementNotDelivered(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	original := createChipInStatus(t, db, testUID(52), constants.ChipStatusSavReceived, nil)
	replacement := createChipInStatus(t, db, testUID(53), constants.ChipStatusInStock, nil)

	updated, err := svc.Replace(context.Background(), AdminActor(1), original.ID, replacement.ID)
	if err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if updated.Status != constants.ChipStatusReplaced {
		t.Fatalf("expected REMPLACEE, got %s", updated.Status)
	}
	if _, err := svc.Replace(context.Background(), AdminActor(1), original.ID, original.ID); !errors.Is(err, ErrChipReplacementSelf) {
		t.Fatalf("expected self replacement rejection, got %v", err)
	}
	if _, err := svc.Replace(context.Background(), AdminActor(1), replacement.ID, 9999); !errors.Is(err, ErrChipInvalidTransition) {
		t.Fatalf("expected state conflict before replacement lookup, got %v", err)
	}
}

func TestRequestSavCreatesWarrantyOrder(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	customer := createTestCustomer(t, db, 0)
	customerID := customer.ID
	chip := createChipInStatus(t, db, testUID(60), constants.ChipStatusActive, &customerID)

	if _, _, err := svc.RequestSav(context.Background(), CustomerActor(customer.ID, ""), chip.ID, "  "); !errors.Is(err, ErrChipSavReasonRequired) {
		t.Fatalf("expected reason required, got %v", err)
	}
	updated, order, err := svc.RequestSav(context.Background(), CustomerActor(customer.ID, ""), chip.ID, "antenna cracked")
	if err != nil {
		t.Fatalf("request sav failed: %v", err)
	}
	if updated.Status != constants.ChipStatusSavReturn || updated.SavReturnDate == nil {
		t.Fatalf("unexpected chip after sav: %+v", updated)
	}
	if order == nil || order.Type != constants.OrderTypeWarranty || !order.TotalAmount.Decimal.IsZero() {
		t.Fatalf("unexpected warranty order: %+v", order)
	}
	if order.SourceChipID == nil || *order.SourceChipID != chip.ID || order.CustomerID != customer.ID {
		t.Fatalf("warranty order not linked to chip")
	}
}

func TestRequestSavRollsBackWhenWarrantyOrderFails(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	customer := createTestCustomer(t, db, 0)
	customerID := customer.ID
	chip := createChipInStatus(t, db, testUID(61), constants.ChipStatusActive, &customerID)
	if err := db.Migrator().DropTable(&models.Order{}); err != nil {
		t.Fatalf("drop orders failed: %v", err)
	}

	_, _, err := svc.RequestSav(context.Background(), AdminActor(1), chip.ID, "water damage")
	if !errors.Is(err, ErrOrderCreateFailed) {
		t.Fatalf("expected warranty order failure, got %v", err)
	}
	stored := loadChip(t, db, chip.ID)
	if stored.Status != constants.ChipStatusActive || stored.SavReturnDate != nil || stored.Version != chip.Version {
		t.Fatalf("expected chip untouched, got status=%s version=%d", stored.Status, stored.Version)
	}
	if entries := loadHistory(t, db, chip.ID); len(entries) != 0 {
		t.Fatalf("expected no history rows, got %d", len(entries))
	}
}

func TestArchiveRequiresDescriptiveReason(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	chip := createChipInStatus(t, db, testUID(70), constants.ChipStatusInStock, nil)

	if _, err := svc.Archive(context.Background(), AdminActor(1), chip.ID, "broken"); !errors.Is(err, ErrChipArchiveReasonShort) {
		t.Fatalf("expected short reason rejection, got %v", err)
	}
	reason := "chip casing cracked during warehouse inventory and cannot be reused anymore"
	archived, err := svc.Archive(context.Background(), AdminActor(1), chip.ID, reason)
	if err != nil {
		t.Fatalf("archive failed: %v", err)
	}
	if archived.Status != constants.ChipStatusArchived || archived.ArchiveReason != reason {
		t.Fatalf("unexpected archived chip: %+v", archived)
	}
	if _, err := svc.Archive(context.Background(), AdminActor(1), chip.ID, reason); !errors.Is(err, ErrChipInvalidTransition) {
		t.Fatalf("archived chip must be terminal, got %v", err)
	}
}

func TestCustomerCannotTouchForeignChip(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	owner := createTestCustomer(t, db, 0)
	other := createTestCustomer(t, db, 0)
	ownerID := owner.ID
	chip := createChipInStatus(t, db, testUID(80), constants.ChipStatusActive, &ownerID)

	if _, err := svc.Deactivate(context.Background(), CustomerActor(other.ID, ""), chip.ID); !errors.Is(err, ErrChipNotOwned) {
		t.Fatalf("expected not owned, got %v", err)
	}
	if _, err := svc.ListHistory(CustomerActor(other.ID, ""), chip.ID); !errors.Is(err, ErrChipNotOwned) {
		t.Fatalf("expected not owned on history, got %v", err)
	}
	foreignPoint := &models.ControlPoint{CustomerID: other.ID, Name: "foreign"}
	if err := db.Create(foreignPoint).Error; err != nil {
		t.Fatalf("create control point failed: %v", err)
	}
	if _, err := svc.Deactivate(context.Background(), CustomerActor(owner.ID, ""), chip.ID); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	_, err := svc.AssignToControlPoint(context.Background(), CustomerActor(owner.ID, ""), chip.ID, foreignPoint.ID)
	if !errors.Is(err, ErrControlPointNotOwned) {
		t.Fatalf("expected control point ownership error, got %v", err)
	}
}

func TestConfirmDeliveryChecksPackagingCode(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	customer := createTestCustomer(t, db, 0)
	customerID := customer.ID
	chip := createChipInStatus(t, db, testUID(90), constants.ChipStatusShipping, &customerID)
	if err := db.Model(chip).Update("packaging_code", "PKG-1").Error; err != nil {
		t.Fatalf("seed packaging code failed: %v", err)
	}

	_, err := svc.ConfirmDelivery(context.Background(), CustomerActor(customer.ID, ""), chip.ID, "PKG-2")
	if !errors.Is(err, ErrPackagingCodeMismatch) {
		t.Fatalf("expected packaging mismatch, got %v", err)
	}
	delivered, err := svc.ConfirmDelivery(context.Background(), CustomerActor(customer.ID, ""), chip.ID, "pkg-1")
	if err != nil {
		t.Fatalf("confirm delivery failed: %v", err)
	}
	if delivered.Status != constants.ChipStatusDelivered || delivered.DeliveredToClientDate == nil {
		t.Fatalf("unexpected delivered chip: %+v", delivered)
	}
}

func TestStaleVersionIsRejected(t *testing.T) {
	svc, db := setupChipServiceTest(t)
	chip := createChipInStatus(t, db, testUID(95), constants.ChipStatusInTransit, nil)

	err := svc.transact(context.Background(), constants.ChipEventReceiveFromSupplier, func(tx *gorm.DB, applied *[]appliedTransition) error {
		stale := loadChip(t, tx, chip.ID)
		if err := tx.Model(&models.RfidChip{}).Where("id = ?", chip.ID).Update("version", 5).Error; err != nil {
			return err
		}
		_, err := svc.applyLocked(tx, stale, chipTransitionRequest{Event: constants.ChipEventReceiveFromSupplier}, applied)
		return err
	})
	if !errors.Is(err, ErrChipConcurrentUpdate) {
		t.Fatalf("expected concurrent update, got %v", err)
	}
	if loadChip(t, db, chip.ID).Status != constants.ChipStatusInTransit {
		t.Fatalf("chip should be unchanged")
	}
}

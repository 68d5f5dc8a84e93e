package public

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chiptrack/internal/config"
	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/http/validation"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/provider"
	"github.com/chiptrack/internal/repository"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type publicResponseAssert struct {
	StatusCode int                    `json:"status_code"`
	Msg        string                 `json:"msg"`
	Data       map[string]interface{} `json:"data"`
}

func setupPublicChipHandlerTest(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := validation.Register(); err != nil {
		t.Fatalf("register validators failed: %v", err)
	}

	dsn := fmt.Sprintf("file:public_chip_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	chipCfg := config.ChipConfig{ChecksumSecret: "public-checksum", KeySecret: "public-key", SaltBytes: 16}
	container := &provider.Container{
		Config:   &config.Config{Chip: chipCfg},
		ChipRepo: repository.NewChipRepository(db),
	}
	container.ChipService = service.NewChipService(
		chipCfg,
		container.ChipRepo,
		repository.NewChipHistoryRepository(db),
		repository.NewOrderRepository(db),
		repository.NewCustomerRepository(db),
		repository.NewSupplierOrderRepository(db),
		repository.NewChipSecurityEventRepository(db),
		nil,
		nil,
		nil,
	)
	return New(container), db
}

func newPublicContext(method, target, body string, customerID uint) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	if customerID > 0 {
		c.Set("customer_id", customerID)
	}
	return c, w
}

func decodePublicResponse(t *testing.T, w *httptest.ResponseRecorder) publicResponseAssert {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var resp publicResponseAssert
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

// createActiveChip 写入一颗已编码且处于 ACTIVE 的芯片
func createActiveChip(t *testing.T, h *Handler, db *gorm.DB, uid string, customerID uint) *models.RfidChip {
	t.Helper()
	security := h.ChipService.Security()
	salt, err := security.GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt failed: %v", err)
	}
	chipID := security.GenerateChipID()
	checksum := security.GenerateChecksum(uid, salt, chipID)
	owner := customerID
	chip := &models.RfidChip{
		ChipID:     chipID,
		UID:        uid,
		Status:     constants.ChipStatusActive,
		CustomerID: &owner,
		Salt:       &salt,
		Checksum:   &checksum,
	}
	if err := db.Create(chip).Error; err != nil {
		t.Fatalf("create chip failed: %v", err)
	}
	return chip
}

func createCustomer(t *testing.T, db *gorm.DB, name string) *models.Customer {
	t.Helper()
	customer := &models.Customer{
		Name:               name,
		Status:             constants.CustomerStatusActive,
		SubscriptionStatus: constants.SubscriptionStatusActive,
	}
	if err := db.Create(customer).Error; err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return customer
}

func countSecurityEvents(t *testing.T, db *gorm.DB, reason string) int64 {
	t.Helper()
	var total int64
	if err := db.Model(&models.ChipSecurityEvent{}).Where("reason = ?", reason).Count(&total).Error; err != nil {
		t.Fatalf("count security events failed: %v", err)
	}
	return total
}

func TestRequestEncodingHandler(t *testing.T) {
	h, _ := setupPublicChipHandlerTest(t)
	ctx := context.Background()
	chip, err := h.ChipService.RegisterSingle(ctx, "04C0FFEE000001", nil)
	if err != nil {
		t.Fatalf("register chip failed: %v", err)
	}
	if _, err := h.ChipService.ReceiveFromSupplier(ctx, service.AdminActor(1), chip.ID); err != nil {
		t.Fatalf("receive chip failed: %v", err)
	}

	c, w := newPublicContext(http.MethodPost, "/api/v1/factory/chips/request-encoding", `{"uid":"04c0ffee000001"}`, 0)
	h.RequestEncoding(c)
	resp := decodePublicResponse(t, w)
	if resp.StatusCode != 0 {
		t.Fatalf("request encoding status_code want 0 got %d msg=%s", resp.StatusCode, resp.Msg)
	}
	for _, key := range []string{"chip_key", "block4_data", "block8_data", "salt"} {
		if value, _ := resp.Data[key].(string); value == "" {
			t.Fatalf("expected %s in encoding result: %+v", key, resp.Data)
		}
	}

	c, w = newPublicContext(http.MethodPost, "/api/v1/factory/chips/request-encoding", `{"uid":"04C0FFEE000001"}`, 0)
	h.RequestEncoding(c)
	if resp := decodePublicResponse(t, w); resp.StatusCode != 409 {
		t.Fatalf("second encoding status_code want 409 got %d", resp.StatusCode)
	}

	c, w = newPublicContext(http.MethodGet, "/api/v1/factory/chips/info/04C0FFEE000001", "", 0)
	c.Params = gin.Params{{Key: "uid", Value: "04C0FFEE000001"}}
	h.GetChipInfo(c)
	resp = decodePublicResponse(t, w)
	if resp.StatusCode != 0 || resp.Data["status"] != string(constants.ChipStatusInStock) {
		t.Fatalf("unexpected chip info: %+v", resp)
	}

	c, w = newPublicContext(http.MethodGet, "/api/v1/factory/chips/info/04C0FFEE999999", "", 0)
	c.Params = gin.Params{{Key: "uid", Value: "04C0FFEE999999"}}
	h.GetChipInfo(c)
	if resp := decodePublicResponse(t, w); resp.StatusCode != 404 {
		t.Fatalf("unknown chip info status_code want 404 got %d", resp.StatusCode)
	}
}

func TestValidateScanHandler(t *testing.T) {
	h, db := setupPublicChipHandlerTest(t)
	owner := createCustomer(t, db, "owner")
	other := createCustomer(t, db, "other")
	chip := createActiveChip(t, h, db, "04AA00000000A1", owner.ID)

	c, w := newPublicContext(http.MethodPost, "/api/v1/chips/validate-scan", `{"uid":"04AA00000000A1"}`, owner.ID)
	h.ValidateScan(c)
	resp := decodePublicResponse(t, w)
	if resp.StatusCode != 0 || resp.Data["chip_id"] != chip.ChipID {
		t.Fatalf("owner scan failed: %+v", resp)
	}

	c, w = newPublicContext(http.MethodPost, "/api/v1/chips/validate-scan", `{"uid":"04AA00000000A1"}`, other.ID)
	h.ValidateScan(c)
	if resp := decodePublicResponse(t, w); resp.StatusCode != 403 {
		t.Fatalf("foreign scan status_code want 403 got %d", resp.StatusCode)
	}
	if got := countSecurityEvents(t, db, constants.ChipSecurityReasonForeignChip); got != 1 {
		t.Fatalf("expected one foreign chip event, got %d", got)
	}

	c, w = newPublicContext(http.MethodPost, "/api/v1/chips/validate-scan", `{"uid":"04BB00000000B2"}`, owner.ID)
	h.ValidateScan(c)
	if resp := decodePublicResponse(t, w); resp.StatusCode != 403 {
		t.Fatalf("unknown uid status_code want 403 got %d", resp.StatusCode)
	}
	if got := countSecurityEvents(t, db, constants.ChipSecurityReasonUnknownUID); got != 1 {
		t.Fatalf("expected one unknown uid event, got %d", got)
	}

	c, w = newPublicContext(http.MethodPost, "/api/v1/chips/validate-scan", `{"uid":"04AA00000000A1"}`, 0)
	h.ValidateScan(c)
	if resp := decodePublicResponse(t, w); resp.StatusCode == 0 {
		t.Fatalf("scan without customer context should fail")
	}
}

func TestGetWhitelistHandler(t *testing.T) {
	h, db := setupPublicChipHandlerTest(t)
	owner := createCustomer(t, db, "owner")
	other := createCustomer(t, db, "other")
	createActiveChip(t, h, db, "04AA00000000C1", owner.ID)
	createActiveChip(t, h, db, "04AA00000000C2", owner.ID)
	createActiveChip(t, h, db, "04AA00000000C3", other.ID)

	c, w := newPublicContext(http.MethodGet, "/api/v1/chips/whitelist", "", owner.ID)
	c.Params = gin.Params{{Key: "customer_id", Value: fmt.Sprintf("%d", owner.ID)}}
	h.GetWhitelist(c)
	resp := decodePublicResponse(t, w)
	if resp.StatusCode != 0 {
		t.Fatalf("whitelist status_code want 0 got %d msg=%s", resp.StatusCode, resp.Msg)
	}
	if entries, _ := resp.Data["entries"].([]interface{}); len(entries) != 2 {
		t.Fatalf("whitelist entries want 2 got %+v", resp.Data["entries"])
	}

	c, w = newPublicContext(http.MethodGet, "/api/v1/chips/whitelist", "", owner.ID)
	c.Params = gin.Params{{Key: "customer_id", Value: fmt.Sprintf("%d", other.ID)}}
	h.GetWhitelist(c)
	if resp := decodePublicResponse(t, w); resp.StatusCode != 409 {
		t.Fatalf("foreign whitelist status_code want 409 got %d", resp.StatusCode)
	}
}

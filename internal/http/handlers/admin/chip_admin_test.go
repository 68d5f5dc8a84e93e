package admin

import (
	"context"
	"encoding/csv"
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

type adminResponseAssert struct {
	StatusCode int                    `json:"status_code"`
	Msg        string                 `json:"msg"`
	Data       map[string]interface{} `json:"data"`
}

func setupAdminChipHandlerTest(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if err := validation.Register(); err != nil {
		t.Fatalf("register validators failed: %v", err)
	}

	dsn := fmt.Sprintf("file:admin_chip_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Admin{},
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

	cfg := &config.Config{
		JWT:  config.JWTConfig{SecretKey: "admin-handler-secret", ExpireHours: 1},
		Chip: config.ChipConfig{ChecksumSecret: "handler-checksum", KeySecret: "handler-key", SaltBytes: 16, ArchiveMinWords: 3},
	}
	adminRepo := repository.NewAdminRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	container := &provider.Container{
		Config:       cfg,
		AdminRepo:    adminRepo,
		CustomerRepo: customerRepo,
		ChipRepo:     repository.NewChipRepository(db),
		AuthService:  service.NewAuthService(cfg, adminRepo, customerRepo),
	}
	container.ChipService = service.NewChipService(
		cfg.Chip,
		container.ChipRepo,
		repository.NewChipHistoryRepository(db),
		repository.NewOrderRepository(db),
		customerRepo,
		repository.NewSupplierOrderRepository(db),
		repository.NewChipSecurityEventRepository(db),
		nil,
		nil,
		nil,
	)
	return New(container), db
}

// newAdminContext 构造带 admin_id 的请求上下文
func newAdminContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
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
	c.Set("admin_id", uint(1))
	return c, w
}

func decodeAdminResponse(t *testing.T, w *httptest.ResponseRecorder) adminResponseAssert {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var resp adminResponseAssert
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v body=%s", err, w.Body.String())
	}
	return resp
}

func TestAdminLogin(t *testing.T) {
	h, db := setupAdminChipHandlerTest(t)
	hash, err := h.AuthService.HashPassword("Sup3r-Secret!")
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	if err := db.Create(&models.Admin{Username: "ops", PasswordHash: hash}).Error; err != nil {
		t.Fatalf("create admin failed: %v", err)
	}

	c, w := newAdminContext(http.MethodPost, "/admin/login", `{"username":"ops","password":"wrong"}`)
	h.AdminLogin(c)
	if resp := decodeAdminResponse(t, w); resp.StatusCode != 401 {
		t.Fatalf("wrong password status_code want 401 got %d", resp.StatusCode)
	}

	c, w = newAdminContext(http.MethodPost, "/admin/login", `{"username":" ops ","password":"Sup3r-Secret!"}`)
	h.AdminLogin(c)
	resp := decodeAdminResponse(t, w)
	if resp.StatusCode != 0 {
		t.Fatalf("login status_code want 0 got %d msg=%s", resp.StatusCode, resp.Msg)
	}
	if token, _ := resp.Data["token"].(string); token == "" {
		t.Fatalf("expected token in response: %+v", resp.Data)
	}

	c, w = newAdminContext(http.MethodPost, "/admin/login", `{"username":"ops"}`)
	h.AdminLogin(c)
	if resp := decodeAdminResponse(t, w); resp.StatusCode != 400 {
		t.Fatalf("missing password status_code want 400 got %d", resp.StatusCode)
	}
}

func TestRegisterSingleChipHandler(t *testing.T) {
	h, _ := setupAdminChipHandlerTest(t)

	c, w := newAdminContext(http.MethodPost, "/admin/chips/register-single", `{"uid":"04:a1:b2:c3:d4:e5:f6"}`)
	h.RegisterSingleChip(c)
	resp := decodeAdminResponse(t, w)
	if resp.StatusCode != 0 {
		t.Fatalf("register status_code want 0 got %d msg=%s", resp.StatusCode, resp.Msg)
	}
	if resp.Data["uid"] != "04A1B2C3D4E5F6" || resp.Data["status"] != string(constants.ChipStatusInTransit) {
		t.Fatalf("unexpected registered chip: %+v", resp.Data)
	}
	firstID := resp.Data["id"]

	c, w = newAdminContext(http.MethodPost, "/admin/chips/register-single", `{"uid":"04A1B2C3D4E5F6"}`)
	h.RegisterSingleChip(c)
	resp = decodeAdminResponse(t, w)
	if resp.StatusCode != 409 {
		t.Fatalf("duplicate status_code want 409 got %d", resp.StatusCode)
	}
	if resp.Data["existing_chip_id"] != firstID {
		t.Fatalf("duplicate should point at existing chip %v, got %+v", firstID, resp.Data)
	}

	c, w = newAdminContext(http.MethodPost, "/admin/chips/register-single", `{"uid":"not-hex"}`)
	h.RegisterSingleChip(c)
	resp = decodeAdminResponse(t, w)
	if resp.StatusCode != 400 {
		t.Fatalf("invalid uid status_code want 400 got %d", resp.StatusCode)
	}
	fields, _ := resp.Data["fields"].(map[string]interface{})
	if _, ok := fields["uid"]; !ok {
		t.Fatalf("expected uid field error, got %+v", resp.Data)
	}
}

func TestChipTransitionConflictReportsAllowedSources(t *testing.T) {
	h, _ := setupAdminChipHandlerTest(t)
	chip, err := h.ChipService.RegisterSingle(context.Background(), "04A1B2C3D4E5F7", nil)
	if err != nil {
		t.Fatalf("register chip failed: %v", err)
	}

	c, w := newAdminContext(http.MethodPut, fmt.Sprintf("/admin/chips/%d/encode", chip.ID), "")
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", chip.ID)}}
	h.EncodeChip(c)
	resp := decodeAdminResponse(t, w)
	if resp.StatusCode != 409 {
		t.Fatalf("encode from EN_TRANSIT status_code want 409 got %d", resp.StatusCode)
	}
	if resp.Data["current_status"] != string(constants.ChipStatusInTransit) {
		t.Fatalf("unexpected conflict payload: %+v", resp.Data)
	}

	c, w = newAdminContext(http.MethodPut, fmt.Sprintf("/admin/chips/%d/receive-from-supplier", chip.ID), "")
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", chip.ID)}}
	h.ReceiveChipFromSupplier(c)
	if resp := decodeAdminResponse(t, w); resp.StatusCode != 0 || resp.Data["status"] != string(constants.ChipStatusInWorkshop) {
		t.Fatalf("receive from supplier failed: %+v", resp)
	}

	c, w = newAdminContext(http.MethodPut, "/admin/chips/0/encode", "")
	c.Params = gin.Params{{Key: "id", Value: "0"}}
	h.EncodeChip(c)
	if resp := decodeAdminResponse(t, w); resp.StatusCode != 400 {
		t.Fatalf("zero id status_code want 400 got %d", resp.StatusCode)
	}

	c, w = newAdminContext(http.MethodPut, "/admin/chips/9999/encode", "")
	c.Params = gin.Params{{Key: "id", Value: "9999"}}
	h.EncodeChip(c)
	if resp := decodeAdminResponse(t, w); resp.StatusCode != 404 {
		t.Fatalf("unknown chip status_code want 404 got %d", resp.StatusCode)
	}
}

func TestListChipsFiltersByStatus(t *testing.T) {
	h, db := setupAdminChipHandlerTest(t)
	for i, status := range []constants.ChipStatus{constants.ChipStatusInTransit, constants.ChipStatusInStock, constants.ChipStatusInStock} {
		chip := &models.RfidChip{ChipID: fmt.Sprintf("chip-%d", i), UID: fmt.Sprintf("04%012X", i+1), Status: status}
		if err := db.Create(chip).Error; err != nil {
			t.Fatalf("create chip failed: %v", err)
		}
	}

	c, w := newAdminContext(http.MethodGet, "/admin/chips?status=en_stock&page=1&page_size=20", "")
	h.ListChips(c)
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	var resp struct {
		StatusCode int `json:"status_code"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
		Data []map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp.StatusCode != 0 || resp.Pagination.Total != 2 || len(resp.Data) != 2 {
		t.Fatalf("unexpected list response: code=%d total=%d len=%d", resp.StatusCode, resp.Pagination.Total, len(resp.Data))
	}

	c, w = newAdminContext(http.MethodGet, "/admin/chips?status=UNKNOWN", "")
	h.ListChips(c)
	if resp := decodeAdminResponse(t, w); resp.StatusCode != 400 {
		t.Fatalf("unknown status filter want 400 got %d", resp.StatusCode)
	}
}

func TestExportChipsCSV(t *testing.T) {
	h, db := setupAdminChipHandlerTest(t)
	chip := &models.RfidChip{ChipID: "chip-export", UID: "04AABBCCDDEEFF", Status: constants.ChipStatusInStock}
	if err := db.Create(chip).Error; err != nil {
		t.Fatalf("create chip failed: %v", err)
	}

	c, w := newAdminContext(http.MethodGet, "/admin/chips/export/csv", "")
	h.ExportChipsCSV(c)
	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if contentType := strings.TrimSpace(w.Header().Get("Content-Type")); !strings.HasPrefix(contentType, "text/csv") {
		t.Fatalf("content-type should be csv, got %s", contentType)
	}
	rows, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("csv rows want 2 got %d", len(rows))
	}
	if rows[0][2] != "uid" || rows[1][2] != chip.UID {
		t.Fatalf("unexpected csv content: %+v", rows)
	}
}

func TestMarkSecurityEventNotifiedHandler(t *testing.T) {
	h, db := setupAdminChipHandlerTest(t)
	event := &models.ChipSecurityEvent{UID: "04A1B2C3D4E5F6", Reason: constants.ChipSecurityReasonUnknownUID}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	c, w := newAdminContext(http.MethodPut, "/admin/security-events/1/notified", "")
	c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", event.ID)}}
	h.MarkSecurityEventNotified(c)
	if resp := decodeAdminResponse(t, w); resp.StatusCode != 0 || resp.Data["notified_at"] == nil {
		t.Fatalf("mark notified failed: %+v", resp)
	}

	c, w = newAdminContext(http.MethodPut, "/admin/security-events/9999/notified", "")
	c.Params = gin.Params{{Key: "id", Value: "9999"}}
	h.MarkSecurityEventNotified(c)
	if resp := decodeAdminResponse(t, w); resp.StatusCode != 404 {
		t.Fatalf("unknown event status_code want 404 got %d", resp.StatusCode)
	}
}

func TestSetAuthzAdminStatusBlocksLogin(t *testing.T) {
	h, db := setupAdminChipHandlerTest(t)
	hash, err := h.AuthService.HashPassword("Sup3r-Secret!")
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	for _, username := range []string{"office", "atelier01"} {
		if err := db.Create(&models.Admin{Username: username, PasswordHash: hash, Station: constants.StationAtelier}).Error; err != nil {
			t.Fatalf("create admin failed: %v", err)
		}
	}

	c, w := newAdminContext(http.MethodPut, "/admin/authz/admins/2/status", `{"disabled":true}`)
	c.Params = gin.Params{{Key: "id", Value: "2"}}
	h.SetAuthzAdminStatus(c)
	if resp := decodeAdminResponse(t, w); resp.StatusCode != 0 || resp.Data["disabled"] != true {
		t.Fatalf("disable status_code want 0 got %d data=%+v", resp.StatusCode, resp.Data)
	}

	c, w = newAdminContext(http.MethodPost, "/admin/login", `{"username":"atelier01","password":"Sup3r-Secret!"}`)
	h.AdminLogin(c)
	if resp := decodeAdminResponse(t, w); resp.StatusCode != 403 {
		t.Fatalf("disabled login status_code want 403 got %d", resp.StatusCode)
	}

	c, w = newAdminContext(http.MethodPut, "/admin/authz/admins/1/status", `{"disabled":true}`)
	c.Params = gin.Params{{Key: "id", Value: "1"}}
	h.SetAuthzAdminStatus(c)
	if resp := decodeAdminResponse(t, w); resp.StatusCode != 400 {
		t.Fatalf("self disable status_code want 400 got %d", resp.StatusCode)
	}

	c, w = newAdminContext(http.MethodPut, "/admin/authz/admins/99/status", `{"disabled":false}`)
	c.Params = gin.Params{{Key: "id", Value: "99"}}
	h.SetAuthzAdminStatus(c)
	if resp := decodeAdminResponse(t, w); resp.StatusCode != 404 {
		t.Fatalf("missing admin status_code want 404 got %d", resp.StatusCode)
	}

	var stored models.Admin
	if err := db.First(&stored, 2).Error; err != nil {
		t.Fatalf("load admin failed: %v", err)
	}
	if !stored.Disabled || stored.TokenVersion != 1 || stored.TokenInvalidBefore == nil {
		t.Fatalf("disable should revoke tokens: %+v", stored)
	}
}

package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/chiptrack/internal/models"
)

const authStateCacheTTL = 10 * time.Minute

// CustomerAuthState 客户鉴权快照，仅用于服务端缓存
type CustomerAuthState struct {
	CustomerID         uint   `json:"customer_id"`
	Status             string `json:"status"`
	SubscriptionStatus string `json:"subscription_status"`
	TokenVersion       uint64 `json:"token_version"`
	UpdatedAt          int64  `json:"updated_at"`
}

// AdminAuthState 管理员鉴权快照
// token_invalid_before 为 Unix 秒时间戳，0 表示未设置
type AdminAuthState struct {
	AdminID            uint   `json:"admin_id"`
	Username           string `json:"username"`
	TokenVersion       uint64 `json:"token_version"`
	TokenInvalidBefore int64  `json:"token_invalid_before"`
	IsSuper            bool   `json:"is_super"`
	Disabled           bool   `json:"disabled"`
	UpdatedAt          int64  `json:"updated_at"`
}

// AcceptsToken 账号可用、版本一致且签发时间不早于失效点
func (s *AdminAuthState) AcceptsToken(version uint64, issuedAt time.Time) bool {
	if s == nil || s.Disabled || s.TokenVersion != version {
		return false
	}
	if s.TokenInvalidBefore <= 0 {
		return true
	}
	return !issuedAt.IsZero() && issuedAt.Unix() >= s.TokenInvalidBefore
}

// authStateKey 相对键，读写时由 GetJSON/SetJSON 统一加前缀
func authStateKey(kind string, id uint) string {
	return "auth:" + kind + ":" + strconv.FormatUint(uint64(id), 10)
}

// BuildCustomerAuthState 从客户模型构建鉴权快照
func BuildCustomerAuthState(customer *models.Customer) *CustomerAuthState {
	if customer == nil {
		return nil
	}
	return &CustomerAuthState{
		CustomerID:         customer.ID,
		Status:             customer.Status,
		SubscriptionStatus: customer.SubscriptionStatus,
		TokenVersion:       customer.TokenVersion,
		UpdatedAt:          time.Now().Unix(),
	}
}

// BuildAdminAuthState 从管理员模型构建鉴权快照
func BuildAdminAuthState(admin *models.Admin) *AdminAuthState {
	if admin == nil {
		return nil
	}
	state := &AdminAuthState{
		AdminID:      admin.ID,
		Username:     admin.Username,
		TokenVersion: admin.TokenVersion,
		IsSuper:      admin.IsSuper,
		Disabled:     admin.Disabled,
		UpdatedAt:    time.Now().Unix(),
	}
	if admin.TokenInvalidBefore != nil {
		state.TokenInvalidBefore = admin.TokenInvalidBefore.Unix()
	}
	return state
}

func getAuthState[T any](ctx context.Context, kind string, id uint) (*T, bool, error) {
	if id == 0 {
		return nil, false, nil
	}
	var state T
	hit, err := GetJSON(ctx, authStateKey(kind, id), &state)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &state, true, nil
}

func GetCustomerAuthState(ctx context.Context, customerID uint) (*CustomerAuthState, bool, error) {
	return getAuthState[CustomerAuthState](ctx, "customer", customerID)
}

func SetCustomerAuthState(ctx context.Context, state *CustomerAuthState) error {
	if state == nil || state.CustomerID == 0 {
		return nil
	}
	return SetJSON(ctx, authStateKey("customer", state.CustomerID), state, authStateCacheTTL)
}

func GetAdminAuthState(ctx context.Context, adminID uint) (*AdminAuthState, bool, error) {
	return getAuthState[AdminAuthState](ctx, "admin", adminID)
}

func SetAdminAuthState(ctx context.Context, state *AdminAuthState) error {
	if state == nil || state.AdminID == 0 {
		return nil
	}
	return SetJSON(ctx, authStateKey("admin", state.AdminID), state, authStateCacheTTL)
}

// DelAdminAuthState 删除管理员鉴权快照
func DelAdminAuthState(ctx context.Context, adminID uint) error {
	if adminID == 0 {
		return nil
	}
	return Del(ctx, authStateKey("admin", adminID))
}

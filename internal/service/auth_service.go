package service

import (
	"context"
	"strings"
	"time"

	"github.com/chiptrack/internal/cache"
	"github.com/chiptrack/internal/config"
	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// decoyPasswordHash 仅用于对齐不存在账号的登录耗时
const decoyPasswordHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3GKfMRwQYkAOnSgnZcKVdqO"

// AuthService 认证服务（后台账号 + 客户端 Token）
type AuthService struct {
	cfg          *config.Config
	adminRepo    repository.AdminRepository
	customerRepo repository.CustomerRepository
}

// NewAuthService 创建认证服务实例
func NewAuthService(cfg *config.Config, adminRepo repository.AdminRepository, customerRepo repository.CustomerRepository) *AuthService {
	return &AuthService{
		cfg:          cfg,
		adminRepo:    adminRepo,
		customerRepo: customerRepo,
	}
}

// HashPassword 使用 bcrypt 加密密码
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword 验证密码
func (s *AuthService) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword 校验密码是否符合策略
func (s *AuthService) ValidatePassword(password string) error {
	if s == nil || s.cfg == nil {
		return nil
	}
	return validatePassword(s.cfg.Security.PasswordPolicy, password)
}

// GenerateJWT 生成后台 JWT Token
func (s *AuthService) GenerateJWT(admin *models.Admin) (string, time.Time, error) {
	ttl := time.Duration(s.cfg.JWT.ExpireHours) * time.Hour
	if ttl <= 0 {
		ttl = defaultAdminTokenTTL
	}
	claims := JWTClaims{
		AdminID:          admin.ID,
		Username:         admin.Username,
		TokenVersion:     admin.TokenVersion,
		RegisteredClaims: registeredClaims("", time.Now(), ttl),
	}
	token, err := signHS256(s.cfg.JWT.SecretKey, claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// ParseJWT 解析后台 JWT Token
func (s *AuthService) ParseJWT(tokenString string) (*JWTClaims, error) {
	return parseHS256(tokenString, s.cfg.JWT.SecretKey, "", &JWTClaims{})
}

// rememberAdmin 刷新鉴权快照，缓存失败只影响性能
func (s *AuthService) rememberAdmin(ctx context.Context, admin *models.Admin) {
	if err := cache.SetAdminAuthState(ctx, cache.BuildAdminAuthState(admin)); err != nil {
		logger.Warnw("admin_auth_state_cache_write_failed", "admin_id", admin.ID, "error", err)
	}
}

// Login 管理员登录，密码正确但账号已停用时返回 ErrAdminDisabled
func (s *AuthService) Login(username, password string) (*models.Admin, string, time.Time, error) {
	admin, err := s.adminRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if admin == nil {
		// 账号不存在时同样执行一次比对，避免通过响应耗时枚举用户名
		_ = s.VerifyPassword(decoyPasswordHash, password)
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if err := s.VerifyPassword(admin.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, ErrInvalidCredentials
	}
	if admin.Disabled {
		return nil, "", time.Time{}, ErrAdminDisabled
	}

	token, expiresAt, err := s.GenerateJWT(admin)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	now := time.Now()
	if err := s.adminRepo.TouchLastLogin(admin.ID, now); err != nil {
		return nil, "", time.Time{}, err
	}
	admin.LastLoginAt = &now
	s.rememberAdmin(context.Background(), admin)
	return admin, token, expiresAt, nil
}

// ChangePassword 修改管理员密码，旧 Token 全部失效
func (s *AuthService) ChangePassword(adminID uint, oldPassword, newPassword string) error {
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return err
	}
	if admin == nil {
		return ErrNotFound
	}
	if err := s.VerifyPassword(admin.PasswordHash, oldPassword); err != nil {
		return ErrInvalidPassword
	}
	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}
	hashedPassword, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	admin.PasswordHash = hashedPassword
	admin.RevokeTokens(time.Now())
	if err := s.adminRepo.UpdateCredentials(admin); err != nil {
		return err
	}
	s.rememberAdmin(context.Background(), admin)
	return nil
}

// SetAdminDisabled 停用或启用操作员；停用时吊销已签发的 Token
func (s *AuthService) SetAdminDisabled(adminID uint, disabled bool) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByID(adminID)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrNotFound
	}
	if admin.Disabled == disabled {
		return admin, nil
	}
	admin.Disabled = disabled
	if disabled {
		admin.RevokeTokens(time.Now())
	}
	if err := s.adminRepo.SetDisabled(admin); err != nil {
		return nil, err
	}
	s.rememberAdmin(context.Background(), admin)
	return admin, nil
}

// GenerateCustomerToken 为客户签发 Token（外部认证服务不可用时由后台签发）
func (s *AuthService) GenerateCustomerToken(customer *models.Customer, ttl time.Duration) (string, time.Time, error) {
	if customer == nil || customer.ID == 0 {
		return "", time.Time{}, ErrCustomerNotFound
	}
	if ttl <= 0 {
		ttl = defaultCustomerTokenTTL
	}
	claims := CustomerClaims{
		CustomerID:       customer.ID,
		TokenVersion:     customer.TokenVersion,
		RegisteredClaims: registeredClaims(s.cfg.CustomerJWT.Issuer, time.Now(), ttl),
	}
	token, err := signHS256(s.cfg.CustomerJWT.SecretKey, claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt.Time, nil
}

// ParseCustomerToken 解析客户端 Token，配置了 issuer 时一并校验
func (s *AuthService) ParseCustomerToken(tokenString string) (*CustomerClaims, error) {
	claims, err := parseHS256(tokenString, s.cfg.CustomerJWT.SecretKey, s.cfg.CustomerJWT.Issuer, &CustomerClaims{})
	if err != nil || claims.CustomerID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ResolveCustomerState 校验客户账号状态与 Token 版本（优先读缓存）
func (s *AuthService) ResolveCustomerState(ctx context.Context, claims *CustomerClaims) (*cache.CustomerAuthState, error) {
	if claims == nil {
		return nil, ErrInvalidToken
	}
	state, hit, err := cache.GetCustomerAuthState(ctx, claims.CustomerID)
	if err != nil {
		logger.Warnw("customer_auth_state_cache_read_failed", "customer_id", claims.CustomerID, "error", err)
	}
	if !hit || state == nil {
		customer, err := s.customerRepo.GetByID(claims.CustomerID)
		if err != nil {
			return nil, err
		}
		if customer == nil {
			return nil, ErrInvalidToken
		}
		state = cache.BuildCustomerAuthState(customer)
		_ = cache.SetCustomerAuthState(ctx, state)
	}
	if state.TokenVersion != claims.TokenVersion {
		return nil, ErrInvalidToken
	}
	if state.Status != constants.CustomerStatusActive {
		return nil, ErrCustomerDisabled
	}
	return state, nil
}

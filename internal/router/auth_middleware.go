package router

import (
	"errors"
	"net"
	"strings"
	"time"

	"github.com/chiptrack/internal/authz"
	"github.com/chiptrack/internal/cache"
	handlershared "github.com/chiptrack/internal/http/handlers/shared"
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/i18n"
	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/repository"
	"github.com/chiptrack/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	adminIsSuperContextKey        = "admin_is_super"
	customerSubscriptionStatusKey = "customer_subscription_status"
)

func abortWith(c *gin.Context, code int, key string) {
	msg := i18n.T(i18n.ResolveLocale(c), key)
	switch code {
	case response.CodeUnauthorized:
		response.Unauthorized(c, msg)
	case response.CodeForbidden:
		response.Forbidden(c, msg)
	default:
		response.Error(c, code, msg)
	}
	c.Abort()
}

func abortUnauthorized(c *gin.Context, key string) {
	abortWith(c, response.CodeUnauthorized, key)
}

func bearerToken(c *gin.Context) (string, bool) {
	scheme, token, found := strings.Cut(c.GetHeader("Authorization"), " ")
	if !found || scheme != "Bearer" {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// resolveAdminAuthState 优先读缓存快照，未命中回源数据库并回填
func resolveAdminAuthState(c *gin.Context, adminRepo repository.AdminRepository, adminID uint) *cache.AdminAuthState {
	ctx := c.Request.Context()
	if cached, hit, err := cache.GetAdminAuthState(ctx, adminID); err == nil && hit {
		return cached
	}
	admin, err := adminRepo.GetByID(adminID)
	if err != nil || admin == nil {
		return nil
	}
	state := cache.BuildAdminAuthState(admin)
	if err := cache.SetAdminAuthState(ctx, state); err != nil {
		logger.Debugw("admin_auth_state_cache_write_failed", "admin_id", adminID, "error", err)
	}
	return state
}

// JWTAuthMiddleware 后台 JWT 鉴权：校验签名后比对账号状态、token_version 与失效时间点
func JWTAuthMiddleware(secretKey string, adminRepo repository.AdminRepository) gin.HandlerFunc {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return []byte(secretKey), nil }

	return func(c *gin.Context) {
		if secretKey == "" || adminRepo == nil {
			logger.Errorw("admin_jwt_middleware_misconfigured", "has_secret", secretKey != "")
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		raw, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		claims := &service.JWTClaims{}
		token, err := parser.ParseWithClaims(raw, claims, keyFunc)
		if err != nil || !token.Valid || claims.AdminID == 0 {
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		var issuedAt time.Time
		if claims.IssuedAt != nil {
			issuedAt = claims.IssuedAt.Time
		}
		state := resolveAdminAuthState(c, adminRepo, claims.AdminID)
		if !state.AcceptsToken(claims.TokenVersion, issuedAt) {
			abortUnauthorized(c, "error.token_invalid")
			return
		}

		c.Set(handlershared.ContextKeyAdminID, claims.AdminID)
		c.Set(handlershared.ContextKeyUsername, claims.Username)
		c.Set(adminIsSuperContextKey, state.IsSuper)
		c.Next()
	}
}

// AdminRBACMiddleware 按路由模板与方法做 casbin 鉴权，超级管理员直接放行
func AdminRBACMiddleware(authzService *authz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authzService == nil {
			logger.Errorw("admin_rbac_service_unavailable")
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if c.GetBool(adminIsSuperContextKey) {
			c.Next()
			return
		}
		adminID := handlershared.ContextUint(c, handlershared.ContextKeyAdminID)
		if adminID == 0 {
			abortUnauthorized(c, "error.unauthorized")
			return
		}

		resource := c.FullPath()
		if strings.TrimSpace(resource) == "" {
			resource = c.Request.URL.Path
		}
		allowed, err := authzService.EnforceAdmin(adminID, resource, c.Request.Method)
		if err != nil {
			logger.Errorw("admin_rbac_enforce_failed",
				"admin_id", adminID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"error", err,
			)
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		if !allowed {
			logger.Warnw("admin_rbac_permission_denied",
				"admin_id", adminID,
				"method", c.Request.Method,
				"resource", authz.NormalizeObject(resource),
			)
			abortWith(c, response.CodeForbidden, "error.forbidden")
			return
		}
		c.Next()
	}
}

// CustomerJWTAuthMiddleware 客户端 Token 鉴权中间件
func CustomerJWTAuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authService == nil {
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		raw, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "error.unauthorized")
			return
		}
		claims, err := authService.ParseCustomerToken(raw)
		if err != nil {
			abortUnauthorized(c, "error.token_invalid")
			return
		}
		state, err := authService.ResolveCustomerState(c.Request.Context(), claims)
		switch {
		case err == nil:
		case errors.Is(err, service.ErrCustomerDisabled):
			abortUnauthorized(c, "error.customer_disabled")
			return
		case errors.Is(err, service.ErrInvalidToken):
			abortUnauthorized(c, "error.token_invalid")
			return
		default:
			logger.Errorw("customer_auth_state_resolve_failed", "customer_id", claims.CustomerID, "error", err)
			abortWith(c, response.CodeInternal, "error.internal_error")
			return
		}

		c.Set(handlershared.ContextKeyCustomerID, state.CustomerID)
		c.Set(customerSubscriptionStatusKey, state.SubscriptionStatus)
		c.Next()
	}
}

// parseFactoryNetworks 单个 IP 视为主机网段，非法条目记录后忽略
func parseFactoryNetworks(entries []string) []*net.IPNet {
	networks := make([]*net.IPNet, 0, len(entries))
	for _, raw := range entries {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			if ip := net.ParseIP(raw); ip != nil && ip.To4() != nil {
				raw += "/32"
			} else {
				raw += "/128"
			}
		}
		_, network, err := net.ParseCIDR(raw)
		if err != nil {
			logger.Warnw("factory_cidr_invalid", "cidr", raw, "error", err)
			continue
		}
		networks = append(networks, network)
	}
	return networks
}

// FactoryCIDRMiddleware 产线接口来源网段限制，未配置网段时放行
func FactoryCIDRMiddleware(cidrs []string) gin.HandlerFunc {
	networks := parseFactoryNetworks(cidrs)
	restricted := len(cidrs) > 0
	return func(c *gin.Context) {
		if !restricted {
			c.Next()
			return
		}
		if ip := net.ParseIP(c.ClientIP()); ip != nil {
			for _, network := range networks {
				if network.Contains(ip) {
					c.Next()
					return
				}
			}
		}
		logger.Warnw("factory_request_rejected", "client_ip", c.ClientIP(), "path", c.Request.URL.Path)
		abortWith(c, response.CodeForbidden, "error.factory_forbidden")
	}
}

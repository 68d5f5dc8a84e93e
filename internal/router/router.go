package router

import (
	"sort"
	"strings"

	"github.com/chiptrack/internal/authz"
	"github.com/chiptrack/internal/cache"
	"github.com/chiptrack/internal/config"
	adminhandlers "github.com/chiptrack/internal/http/handlers/admin"
	publichandlers "github.com/chiptrack/internal/http/handlers/public"
	"github.com/chiptrack/internal/http/response"
	"github.com/chiptrack/internal/http/validation"
	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	if err := validation.Register(); err != nil {
		logger.Errorw("router_register_validation_failed", "error", err)
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	limiter := NewRateLimiter(cache.Client())
	adminLoginRule := NewRateLimitRule(cache.Key("rate", "admin_login"), cfg.Security.LoginRateLimit)
	scanLimiter := RateLimitMiddleware(limiter, NewRateLimitRule(cache.Key("rate", "scan"), cfg.Security.ScanRateLimit), KeyByCustomer)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log, c.HTTPMetrics))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 产线编码工具（按来源网段放行）
		factory := apiV1.Group("/factory", FactoryCIDRMiddleware(cfg.Factory.AllowedCIDRs))
		{
			factory.POST("/chips/request-encoding", publicHandler.RequestEncoding)
			factory.GET("/chips/info/:uid", publicHandler.GetChipInfo)
		}

		// 客户接口（需鉴权）
		customer := apiV1.Group("", CustomerJWTAuthMiddleware(c.AuthService))
		{
			customer.POST("/chips/validate-scan", scanLimiter, publicHandler.ValidateScan)
			customer.POST("/chips/activate-chip", scanLimiter, publicHandler.ActivateChip)
			customer.GET("/chips/whitelist/:customer_id", publicHandler.GetWhitelist)
			customer.PUT("/chips/:id/confirm-delivery", publicHandler.ConfirmDelivery)
			customer.PUT("/chips/:id/assign-to-controlpoint", publicHandler.AssignToControlPoint)
			customer.POST("/chips/:id/request-sav", publicHandler.RequestSav)
			customer.PUT("/chips/:id/deactivate", publicHandler.DeactivateChip)
			customer.GET("/chips/:id/status-history", publicHandler.GetChipStatusHistory)

			customer.GET("/orders", publicHandler.ListOrders)
			customer.GET("/orders/:id", publicHandler.GetOrder)
			customer.POST("/orders/:id/confirm-receipt", publicHandler.ConfirmOrderReceipt)
		}

		// 后台接口
		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", RateLimitMiddleware(limiter, adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

			adminJWT := JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo)

			// 本人账号操作只校验登录态
			self := admin.Group("", adminJWT)
			{
				self.GET("/me", adminHandler.GetAdminMe)
				self.PUT("/password", adminHandler.UpdateAdminPassword)
				self.GET("/authz/me", adminHandler.GetAuthzMe)
			}

			authorized := admin.Group("", adminJWT, AdminRBACMiddleware(c.AuthzService))
			{
				// 芯片入库与生命周期
				authorized.POST("/chips/register-single", adminHandler.RegisterSingleChip)
				authorized.POST("/chips/import-excel", adminHandler.ImportChips)
				authorized.POST("/chips/parse-excel", adminHandler.ParseChipSpreadsheet)
				authorized.GET("/chips", adminHandler.ListChips)
				authorized.GET("/chips/export/csv", adminHandler.ExportChipsCSV)
				authorized.GET("/chips/stats/by-status", adminHandler.GetChipStatsByStatus)
				authorized.GET("/chips/security-events", adminHandler.ListSecurityEvents)
				authorized.GET("/chips/:id", adminHandler.GetChip)
				authorized.GET("/chips/:id/status-history", adminHandler.GetChipStatusHistory)
				authorized.GET("/chips/:id/audit", adminHandler.AuditChip)
				authorized.PUT("/chips/:id/receive-from-supplier", adminHandler.ReceiveChipFromSupplier)
				authorized.PUT("/chips/:id/encode", adminHandler.EncodeChip)
				authorized.PUT("/chips/:id/ship-to-client", adminHandler.ShipChipToClient)
				authorized.PUT("/chips/:id/receive-sav", adminHandler.ReceiveChipSav)
				authorized.PUT("/chips/:id/replace", adminHandler.ReplaceChip)
				authorized.PUT("/chips/:id/archive", adminHandler.ArchiveChip)
				authorized.PUT("/chips/:id/deactivate", adminHandler.DeactivateChip)
				authorized.PUT("/security-events/:id/notified", adminHandler.MarkSecurityEventNotified)

				// 订单
				authorized.POST("/orders", adminHandler.CreateOrder)
				authorized.GET("/orders", adminHandler.ListOrders)
				authorized.GET("/orders/:id", adminHandler.GetOrder)

				// 客户与控制点
				authorized.POST("/customers", adminHandler.CreateCustomer)
				authorized.GET("/customers/:id", adminHandler.GetCustomer)
				authorized.PUT("/customers/:id/subscription", adminHandler.UpdateCustomerSubscription)
				authorized.POST("/customers/:id/control-points", adminHandler.CreateControlPoint)
				authorized.POST("/customers/:id/token", adminHandler.IssueCustomerToken)

				// 供应商采购单
				authorized.POST("/supplier-orders", adminHandler.CreateSupplierOrder)
				authorized.GET("/supplier-orders/:id", adminHandler.GetSupplierOrder)

				// 权限管理
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				authorized.GET("/authz/admins", adminHandler.ListAuthzAdmins)
				authorized.POST("/authz/admins", adminHandler.CreateAuthzAdmin)
				authorized.GET("/authz/admins/:id/roles", adminHandler.GetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/roles", adminHandler.SetAuthzAdminRoles)
				authorized.PUT("/authz/admins/:id/status", adminHandler.SetAuthzAdminStatus)
				authorized.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
				authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", readinessHandler(
		readinessCheck{Name: "database", Probe: models.Ping},
		readinessCheck{Name: "cache", Probe: cache.Ping},
	))

	if cfg.Metrics.Enabled && c.Registry != nil {
		path := strings.TrimSpace(cfg.Metrics.Path)
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})))
	}

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}

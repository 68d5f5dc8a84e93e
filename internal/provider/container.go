package provider

import (
	"errors"

	"github.com/chiptrack/internal/authz"
	"github.com/chiptrack/internal/cache"
	"github.com/chiptrack/internal/config"
	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/metrics"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/queue"
	"github.com/chiptrack/internal/repository"
	"github.com/chiptrack/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Registry    *prometheus.Registry

	// Repositories
	AdminRepo             repository.AdminRepository
	CustomerRepo          repository.CustomerRepository
	OrderRepo             repository.OrderRepository
	SupplierOrderRepo     repository.SupplierOrderRepository
	ChipRepo              repository.ChipRepository
	ChipHistoryRepo       repository.ChipHistoryRepository
	ChipSecurityEventRepo repository.ChipSecurityEventRepository
	AuthzAuditLogRepo     repository.AuthzAuditLogRepository

	// Metrics
	ChipMetrics *metrics.ChipMetrics
	TaskMetrics *metrics.TaskMetrics
	HTTPMetrics *metrics.HTTPMetrics

	// Services
	AuthzService         *authz.Service
	AuthService          *service.AuthService
	AuthzAuditService    *service.AuthzAuditService
	ChipService          *service.ChipService
	OrderService         *service.OrderService
	CustomerService      *service.CustomerService
	SupplierOrderService *service.SupplierOrderService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化指标
	c.initMetrics()

	// 3. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.CustomerRepo = repository.NewCustomerRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.SupplierOrderRepo = repository.NewSupplierOrderRepository(db)
	c.ChipRepo = repository.NewChipRepository(db)
	c.ChipHistoryRepo = repository.NewChipHistoryRepository(db)
	c.ChipSecurityEventRepo = repository.NewChipSecurityEventRepository(db)
	c.AuthzAuditLogRepo = repository.NewAuthzAuditLogRepository(db)
}

func (c *Container) initMetrics() {
	if !c.Config.Metrics.Enabled {
		return
	}
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	c.ChipMetrics = metrics.NewChipMetrics(c.Registry)
	c.TaskMetrics = metrics.NewTaskMetrics(c.Registry)
	c.HTTPMetrics = metrics.NewHTTPMetrics(c.Registry)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.AdminRepo, c.CustomerRepo)
	c.AuthzAuditService = service.NewAuthzAuditService(c.AuthzAuditLogRepo)
	c.CustomerService = service.NewCustomerService(c.CustomerRepo)
	c.SupplierOrderService = service.NewSupplierOrderService(c.SupplierOrderRepo)
	c.OrderService = service.NewOrderService(c.OrderRepo, c.CustomerRepo)
	c.ChipService = service.NewChipService(
		c.Config.Chip,
		c.ChipRepo,
		c.ChipHistoryRepo,
		c.OrderRepo,
		c.CustomerRepo,
		c.SupplierOrderRepo,
		c.ChipSecurityEventRepo,
		service.NewChipSecurityService(c.Config.Chip),
		c.QueueClient,
		c.ChipMetrics,
	)
}

// Close 释放队列客户端与 Redis 连接
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.QueueClient != nil {
		if err := c.QueueClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := cache.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

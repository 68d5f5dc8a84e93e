package main

import (
	"context"
	"fmt"

	"github.com/chiptrack/internal/config"
	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/metrics"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/repository"
	"github.com/chiptrack/internal/service"

	"github.com/shopspring/decimal"
)

const (
	seedSupplierReference = "SEED-PO-0001"
	seedChipCount         = 12
	seedShippedCount      = 4
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.ToDBOptions()); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	var existing models.SupplierOrder
	if err := models.DB.Where("reference = ?", seedSupplierReference).Limit(1).Find(&existing).Error; err != nil {
		stdLog.Fatalf("Failed to check seed state: %v", err)
	}
	if existing.ID != 0 {
		stdLog.Printf("Seed data already present (supplier order %s), skipping", seedSupplierReference)
		return
	}

	db := models.DB
	customerRepo := repository.NewCustomerRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	supplierOrderRepo := repository.NewSupplierOrderRepository(db)
	customerService := service.NewCustomerService(customerRepo)
	orderService := service.NewOrderService(orderRepo, customerRepo)
	supplierOrderService := service.NewSupplierOrderService(supplierOrderRepo)
	chipRepo := repository.NewChipRepository(db)
	chipService := service.NewChipService(
		cfg.Chip,
		chipRepo,
		repository.NewChipHistoryRepository(db),
		orderRepo,
		customerRepo,
		supplierOrderRepo,
		repository.NewChipSecurityEventRepository(db),
		nil,
		nil,
		metrics.NewChipMetrics(nil),
	)
	ctx := context.Background()
	actor := service.AdminActor(0)

	// 客户与检测点
	customers := []service.CreateCustomerInput{
		{Name: "Transports Girard", SubscriptionStatus: constants.SubscriptionStatusActive, ChipQuota: 50},
		{Name: "Clinique Saint-Roch", SubscriptionStatus: constants.SubscriptionStatusActive, ChipQuota: 20},
	}
	createdCustomers := make([]*models.Customer, 0, len(customers))
	for _, input := range customers {
		customer, err := customerService.CreateCustomer(input)
		if err != nil {
			stdLog.Fatalf("Failed to create customer %s: %v", input.Name, err)
		}
		createdCustomers = append(createdCustomers, customer)
		stdLog.Printf("Created customer: %s (#%d)", customer.Name, customer.ID)
	}
	for i, customer := range createdCustomers {
		point, err := customerService.CreateControlPoint(customer.ID, fmt.Sprintf("Portique %d", i+1), "Entrée principale")
		if err != nil {
			stdLog.Fatalf("Failed to create control point for customer %d: %v", customer.ID, err)
		}
		stdLog.Printf("Created control point: %s (#%d)", point.Name, point.ID)
	}

	// 采购单与芯片入库
	supplierOrder, err := supplierOrderService.CreateSupplierOrder(seedSupplierReference, "NXP Distribution", []service.SupplierOrderLineInput{
		{Label: "NTAG 424 DNA tags", Quantity: seedChipCount},
	})
	if err != nil {
		stdLog.Fatalf("Failed to create supplier order: %v", err)
	}
	stdLog.Printf("Created supplier order: %s (#%d)", supplierOrder.Reference, supplierOrder.ID)

	uids := make([]string, 0, seedChipCount)
	for i := 0; i < seedChipCount; i++ {
		uids = append(uids, fmt.Sprintf("04C0FFEE%06X", i+1))
	}
	imported, err := chipService.ImportUIDs(ctx, supplierOrder.ID, uids)
	if err != nil {
		stdLog.Fatalf("Failed to import chips: %v", err)
	}
	stdLog.Printf("Imported %d chips", imported.Success)

	stocked := make([]uint, 0, len(uids))
	for _, uid := range uids {
		chip, err := chipRepo.GetByUID(uid)
		if err != nil || chip == nil {
			stdLog.Fatalf("Failed to load chip %s: %v", uid, err)
		}
		if _, err := chipService.ReceiveFromSupplier(ctx, actor, chip.ID); err != nil {
			stdLog.Fatalf("Failed to receive chip %s: %v", uid, err)
		}
		if _, err := chipService.Encode(ctx, actor, chip.ID); err != nil {
			stdLog.Fatalf("Failed to encode chip %s: %v", uid, err)
		}
		stocked = append(stocked, chip.ID)
	}
	stdLog.Printf("Encoded %d chips into stock", len(stocked))

	// 客户订单与发货
	order, err := orderService.CreateOrder(service.CreateOrderInput{
		CustomerID:    createdCustomers[0].ID,
		ChipsQuantity: seedShippedCount,
		TotalAmount:   decimal.NewFromFloat(49.90).Mul(decimal.NewFromInt(seedShippedCount)),
		Currency:      "EUR",
		Notes:         "Seed order",
	})
	if err != nil {
		stdLog.Fatalf("Failed to create order: %v", err)
	}
	for _, chipID := range stocked[:seedShippedCount] {
		if _, err := chipService.ShipToClient(ctx, actor, chipID, service.ShipToClientInput{OrderID: order.ID}); err != nil {
			stdLog.Fatalf("Failed to ship chip %d: %v", chipID, err)
		}
	}
	stdLog.Printf("Shipped %d chips on order %s", seedShippedCount, order.OrderNo)
	stdLog.Printf("Seed completed")
}

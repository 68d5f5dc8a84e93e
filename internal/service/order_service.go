package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/logger"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 客户订单服务（芯片发货、签收、保修单）
type OrderService struct {
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	now          func() time.Time
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, customerRepo repository.CustomerRepository) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		now:          time.Now,
	}
}

var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusPaid:     true,
		constants.OrderStatusCanceled: true,
	},
	constants.OrderStatusPaid: {
		constants.OrderStatusShipped:   true,
		constants.OrderStatusDelivered: true,
		constants.OrderStatusCanceled:  true,
	},
	constants.OrderStatusShipped: {
		constants.OrderStatusDelivered: true,
	},
	constants.OrderStatusDelivered: {
		constants.OrderStatusCompleted: true,
	},
}

func canTransitionOrder(from, to string) bool {
	return allowedTransitions[from][to]
}

// CreateOrderInput 后台创建标准订单
type CreateOrderInput struct {
	CustomerID    uint
	ChipsQuantity int
	TotalAmount   decimal.Decimal
	Currency      string
	Notes         string
}

// CreateOrder 创建标准订单（已支付，预留库存）
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.CustomerID == 0 || input.ChipsQuantity <= 0 || input.TotalAmount.IsNegative() {
		return nil, ErrChipInvalidInput
	}
	customer, err := s.customerRepo.GetByID(input.CustomerID)
	if err != nil {
		return nil, wrapDependency(ErrCustomerFetchFailed, err)
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = constants.DefaultCurrency
	}
	now := s.now()
	order := &models.Order{
		OrderNo:         generateOrderNo(now),
		CustomerID:      customer.ID,
		Type:            constants.OrderTypeStandard,
		Status:          constants.OrderStatusPaid,
		ChipsQuantity:   input.ChipsQuantity,
		IsStockReserved: true,
		Currency:        currency,
		TotalAmount:     models.NewMoney(input.TotalAmount),
		Notes:           strings.TrimSpace(input.Notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, wrapDependency(ErrOrderCreateFailed, err)
	}
	return order, nil
}

// GetOrder 获取订单，客户只能查看自己的订单
func (s *OrderService) GetOrder(customerID uint, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, wrapDependency(ErrOrderFetchFailed, err)
	}
	if order == nil || (customerID > 0 && order.CustomerID != customerID) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ConfirmReceipt 客户确认收货，订单进入 FIFO 激活队列
func (s *OrderService) ConfirmReceipt(customerID uint, orderID uint) (*models.Order, error) {
	if customerID == 0 || orderID == 0 {
		return nil, ErrOrderNotFound
	}
	var updated *models.Order
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.GetByIDForUpdate(orderID)
		if err != nil {
			return wrapDependency(ErrOrderFetchFailed, err)
		}
		if order == nil || order.CustomerID != customerID {
			return ErrOrderNotFound
		}
		if order.Type != constants.OrderTypeStandard {
			return ErrOrderStatusInvalid
		}
		if !canTransitionOrder(order.Status, constants.OrderStatusDelivered) {
			return ErrOrderStatusInvalid
		}
		now := s.now()
		order.Status = constants.OrderStatusDelivered
		order.DeliveredAt = &now
		order.UpdatedAt = now
		if err := orderRepo.Update(order); err != nil {
			return wrapDependency(ErrOrderUpdateFailed, err)
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("order_receipt_confirmed", "order_id", updated.ID, "customer_id", customerID)
	return updated, nil
}

func generateOrderNo(now time.Time) string {
	return fmt.Sprintf("CT%s%s", now.Format("20060102150405"), randNumeric(6))
}

func randNumeric(length int) string {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b.WriteString("0")
			continue
		}
		b.WriteString(fmt.Sprintf("%d", n.Int64()))
	}
	return b.String()
}

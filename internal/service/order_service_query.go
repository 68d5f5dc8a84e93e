package service

import (
	"strings"

	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/repository"
)

// ListOrdersByCustomer 客户订单列表
func (s *OrderService) ListOrdersByCustomer(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.CustomerID == 0 {
		return []models.Order{}, 0, nil
	}
	return s.listOrders(filter)
}

// ListOrdersForAdmin 后台订单列表
func (s *OrderService) ListOrdersForAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.listOrders(filter)
}

// GetOrderForAdmin 后台订单详情
func (s *OrderService) GetOrderForAdmin(orderID uint) (*models.Order, error) {
	return s.GetOrder(0, orderID)
}

func (s *OrderService) listOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	filter.Status = strings.ToUpper(strings.TrimSpace(filter.Status))
	filter.Type = strings.ToLower(strings.TrimSpace(filter.Type))
	filter.OrderNo = strings.TrimSpace(filter.OrderNo)
	orders, total, err := s.orderRepo.List(filter)
	if err != nil {
		return nil, 0, wrapDependency(ErrOrderFetchFailed, err)
	}
	return orders, total, nil
}

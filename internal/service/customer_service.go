package service

import (
	"context"
	"strings"

	"github.com/chiptrack/internal/cache"
	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/repository"
)

// CustomerService 客户与检测点管理
type CustomerService struct {
	customerRepo repository.CustomerRepository
}

// NewCustomerService 创建客户服务
func NewCustomerService(customerRepo repository.CustomerRepository) *CustomerService {
	return &CustomerService{customerRepo: customerRepo}
}

// CreateCustomerInput 创建客户参数
type CreateCustomerInput struct {
	Name               string
	SubscriptionStatus string
	ChipQuota          int
}

// CreateCustomer 创建客户
func (s *CustomerService) CreateCustomer(input CreateCustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || input.ChipQuota < 0 {
		return nil, ErrChipInvalidInput
	}
	subscription := strings.TrimSpace(input.SubscriptionStatus)
	if subscription == "" {
		subscription = constants.SubscriptionStatusActive
	}
	if !isSubscriptionStatus(subscription) {
		return nil, ErrChipInvalidInput
	}
	customer := &models.Customer{
		Name:               name,
		Status:             constants.CustomerStatusActive,
		SubscriptionStatus: subscription,
		ChipQuota:          input.ChipQuota,
	}
	if err := s.customerRepo.Create(customer); err != nil {
		return nil, wrapDependency(ErrCustomerFetchFailed, err)
	}
	return customer, nil
}

// GetCustomer 获取客户
func (s *CustomerService) GetCustomer(id uint) (*models.Customer, error) {
	customer, err := s.customerRepo.GetByID(id)
	if err != nil {
		return nil, wrapDependency(ErrCustomerFetchFailed, err)
	}
	if customer == nil {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

// UpdateSubscription 更新订阅状态并刷新鉴权快照
func (s *CustomerService) UpdateSubscription(ctx context.Context, id uint, status string) (*models.Customer, error) {
	status = strings.TrimSpace(status)
	if !isSubscriptionStatus(status) {
		return nil, ErrChipInvalidInput
	}
	customer, err := s.GetCustomer(id)
	if err != nil {
		return nil, err
	}
	customer.SubscriptionStatus = status
	if err := s.customerRepo.Update(customer); err != nil {
		return nil, wrapDependency(ErrCustomerFetchFailed, err)
	}
	_ = cache.SetCustomerAuthState(ctx, cache.BuildCustomerAuthState(customer))
	return customer, nil
}

// CreateControlPoint 为客户新增检测点
func (s *CustomerService) CreateControlPoint(customerID uint, name, location string) (*models.ControlPoint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrChipInvalidInput
	}
	if _, err := s.GetCustomer(customerID); err != nil {
		return nil, err
	}
	point := &models.ControlPoint{
		CustomerID: customerID,
		Name:       name,
		Location:   strings.TrimSpace(location),
	}
	if err := s.customerRepo.CreateControlPoint(point); err != nil {
		return nil, wrapDependency(ErrCustomerFetchFailed, err)
	}
	return point, nil
}

func isSubscriptionStatus(status string) bool {
	switch status {
	case constants.SubscriptionStatusActive, constants.SubscriptionStatusPastDue, constants.SubscriptionStatusCanceled:
		return true
	}
	return false
}

package service

import (
	"strings"

	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/models"
	"github.com/chiptrack/internal/repository"
)

// SupplierOrderService 供应商采购单
type SupplierOrderService struct {
	repo repository.SupplierOrderRepository
}

// NewSupplierOrderService 创建采购单服务
func NewSupplierOrderService(repo repository.SupplierOrderRepository) *SupplierOrderService {
	return &SupplierOrderService{repo: repo}
}

// SupplierOrderLineInput 采购明细参数
type SupplierOrderLineInput struct {
	Label    string
	Quantity int
}

// CreateSupplierOrder 创建采购单（含明细）
func (s *SupplierOrderService) CreateSupplierOrder(reference, supplierName string, lines []SupplierOrderLineInput) (*models.SupplierOrder, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" || len(lines) == 0 {
		return nil, ErrChipInvalidInput
	}
	order := &models.SupplierOrder{
		Reference:    reference,
		SupplierName: strings.TrimSpace(supplierName),
		Status:       constants.SupplierOrderStatusOpen,
		Lines:        make([]models.SupplierOrderLine, 0, len(lines)),
	}
	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, ErrChipInvalidInput
		}
		order.Lines = append(order.Lines, models.SupplierOrderLine{
			Label:    strings.TrimSpace(line.Label),
			Quantity: line.Quantity,
		})
	}
	if err := s.repo.Create(order); err != nil {
		if models.IsDuplicateKey(err) {
			return nil, ErrChipInvalidInput
		}
		return nil, wrapDependency(ErrOrderCreateFailed, err)
	}
	return order, nil
}

// GetSupplierOrder 获取采购单
func (s *SupplierOrderService) GetSupplierOrder(id uint) (*models.SupplierOrder, error) {
	order, err := s.repo.GetByID(id)
	if err != nil {
		return nil, wrapDependency(ErrOrderFetchFailed, err)
	}
	if order == nil {
		return nil, ErrSupplierOrderNotFound
	}
	return order, nil
}

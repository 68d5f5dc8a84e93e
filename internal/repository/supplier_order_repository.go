package repository

import (
	"errors"

	"github.com/chiptrack/internal/models"

	"gorm.io/gorm"
)

// SupplierOrderRepository 供应商采购单数据访问接口
type SupplierOrderRepository interface {
	Create(order *models.SupplierOrder) error
	GetByID(id uint) (*models.SupplierOrder, error)
	SumLineQuantity(id uint) (int64, error)
	WithTx(tx *gorm.DB) *GormSupplierOrderRepository
}

// GormSupplierOrderRepository GORM 实现
type GormSupplierOrderRepository struct {
	db *gorm.DB
}

// NewSupplierOrderRepository 创建采购单仓库
func NewSupplierOrderRepository(db *gorm.DB) *GormSupplierOrderRepository {
	return &GormSupplierOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormSupplierOrderRepository) WithTx(tx *gorm.DB) *GormSupplierOrderRepository {
	if tx == nil {
		return r
	}
	return &GormSupplierOrderRepository{db: tx}
}

// Create 创建采购单（含明细）
func (r *GormSupplierOrderRepository) Create(order *models.SupplierOrder) error {
	return r.db.Create(order).Error
}

// GetByID 根据 ID 获取采购单（含明细）
func (r *GormSupplierOrderRepository) GetByID(id uint) (*models.SupplierOrder, error) {
	var order models.SupplierOrder
	if err := r.db.Preload("Lines").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// SumLineQuantity 汇总采购明细数量
func (r *GormSupplierOrderRepository) SumLineQuantity(id uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.SupplierOrderLine{}).
		Where("supplier_order_id = ?", id).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	return total, err
}

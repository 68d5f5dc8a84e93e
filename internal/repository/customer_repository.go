package repository

import (
	"errors"

	"github.com/chiptrack/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CustomerRepository 客户数据访问接口
type CustomerRepository interface {
	Create(customer *models.Customer) error
	GetByID(id uint) (*models.Customer, error)
	GetByIDForUpdate(id uint) (*models.Customer, error)
	Update(customer *models.Customer) error
	GetControlPoint(id uint) (*models.ControlPoint, error)
	CreateControlPoint(point *models.ControlPoint) error
	WithTx(tx *gorm.DB) *GormCustomerRepository
}

// GormCustomerRepository GORM 实现
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository 创建客户仓库
func NewCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCustomerRepository) WithTx(tx *gorm.DB) *GormCustomerRepository {
	if tx == nil {
		return r
	}
	return &GormCustomerRepository{db: tx}
}

// Create 创建客户
func (r *GormCustomerRepository) Create(customer *models.Customer) error {
	return r.db.Create(customer).Error
}

// GetByID 根据 ID 获取客户
func (r *GormCustomerRepository) GetByID(id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// GetByIDForUpdate 加行锁获取客户，用于串行化同一客户的激活
func (r *GormCustomerRepository) GetByIDForUpdate(id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// Update 更新客户
func (r *GormCustomerRepository) Update(customer *models.Customer) error {
	return r.db.Save(customer).Error
}

// GetControlPoint 根据 ID 获取检测点
func (r *GormCustomerRepository) GetControlPoint(id uint) (*models.ControlPoint, error) {
	var point models.ControlPoint
	if err := r.db.First(&point, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &point, nil
}

// CreateControlPoint 创建检测点
func (r *GormCustomerRepository) CreateControlPoint(point *models.ControlPoint) error {
	return r.db.Create(point).Error
}

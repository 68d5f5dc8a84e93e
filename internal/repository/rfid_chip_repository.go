package repository

import (
	"errors"
	"strings"

	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChipRepository 芯片登记数据访问接口
type ChipRepository interface {
	Create(chip *models.RfidChip) error
	GetByID(id uint) (*models.RfidChip, error)
	GetByIDForUpdate(id uint) (*models.RfidChip, error)
	GetByUID(uid string) (*models.RfidChip, error)
	GetByUIDForUpdate(uid string) (*models.RfidChip, error)
	ListExistingUIDs(uids []string) (map[string]struct{}, error)
	UpdateWithVersion(chip *models.RfidChip, expectedVersion uint64) (int64, error)
	CountByCustomerAndStatuses(customerID uint, statuses []constants.ChipStatus) (int64, error)
	CountByOrder(orderID uint) (int64, error)
	CountByClientOrder(orderID uint) (int64, error)
	List(filter ChipListFilter) ([]models.RfidChip, int64, error)
	ListByCustomerAndStatus(customerID uint, status constants.ChipStatus) ([]models.RfidChip, error)
	CountGroupByStatus() ([]ChipStatusCount, error)
	WithTx(tx *gorm.DB) *GormChipRepository
}

// GormChipRepository GORM 实现
type GormChipRepository struct {
	db *gorm.DB
}

// NewChipRepository 创建芯片仓库
func NewChipRepository(db *gorm.DB) *GormChipRepository {
	return &GormChipRepository{db: db}
}

// WithTx 绑定事务
func (r *GormChipRepository) WithTx(tx *gorm.DB) *GormChipRepository {
	if tx == nil {
		return r
	}
	return &GormChipRepository{db: tx}
}

// Create 创建芯片
func (r *GormChipRepository) Create(chip *models.RfidChip) error {
	return r.db.Create(chip).Error
}

// GetByID 根据 ID 获取芯片
func (r *GormChipRepository) GetByID(id uint) (*models.RfidChip, error) {
	return r.first(r.db.Where("id = ?", id))
}

// GetByIDForUpdate 加锁读取芯片
func (r *GormChipRepository) GetByIDForUpdate(id uint) (*models.RfidChip, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// GetByUID 根据 UID 获取芯片
func (r *GormChipRepository) GetByUID(uid string) (*models.RfidChip, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, nil
	}
	return r.first(r.db.Where("uid = ?", uid))
}

// GetByUIDForUpdate 根据 UID 加锁读取芯片
func (r *GormChipRepository) GetByUIDForUpdate(uid string) (*models.RfidChip, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, nil
	}
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("uid = ?", uid))
}

func (r *GormChipRepository) first(query *gorm.DB) (*models.RfidChip, error) {
	var chip models.RfidChip
	if err := query.First(&chip).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &chip, nil
}

// ListExistingUIDs 返回已登记的 UID 集合
func (r *GormChipRepository) ListExistingUIDs(uids []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(uids))
	if len(uids) == 0 {
		return existing, nil
	}
	const chunk = 500
	for start := 0; start < len(uids); start += chunk {
		end := start + chunk
		if end > len(uids) {
			end = len(uids)
		}
		var found []string
		if err := r.db.Model(&models.RfidChip{}).
			Where("uid IN ?", uids[start:end]).
			Pluck("uid", &found).Error; err != nil {
			return nil, err
		}
		for _, uid := range found {
			existing[uid] = struct{}{}
		}
	}
	return existing, nil
}

// UpdateWithVersion 按版本号更新芯片，返回受影响行数
func (r *GormChipRepository) UpdateWithVersion(chip *models.RfidChip, expectedVersion uint64) (int64, error) {
	if chip == nil || chip.ID == 0 {
		return 0, errors.New("invalid chip")
	}
	chip.Version = expectedVersion + 1
	result := r.db.Model(&models.RfidChip{}).
		Where("id = ? AND version = ?", chip.ID, expectedVersion).
		Select("*").
		Omit("id", "uid", "created_at").
		Updates(chip)
	if result.Error != nil {
		chip.Version = expectedVersion
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		chip.Version = expectedVersion
	}
	return result.RowsAffected, nil
}

// CountByCustomerAndStatuses 统计客户名下指定状态的芯片数
func (r *GormChipRepository) CountByCustomerAndStatuses(customerID uint, statuses []constants.ChipStatus) (int64, error) {
	if customerID == 0 || len(statuses) == 0 {
		return 0, nil
	}
	var total int64
	err := r.db.Model(&models.RfidChip{}).
		Where("customer_id = ? AND status IN ?", customerID, statuses).
		Count(&total).Error
	return total, err
}

// CountByOrder 统计订单已消耗的芯片数
func (r *GormChipRepository) CountByOrder(orderID uint) (int64, error) {
	if orderID == 0 {
		return 0, nil
	}
	var total int64
	err := r.db.Model(&models.RfidChip{}).Where("order_id = ?", orderID).Count(&total).Error
	return total, err
}

// CountByClientOrder 统计已发往某客户订单的芯片数
func (r *GormChipRepository) CountByClientOrder(orderID uint) (int64, error) {
	if orderID == 0 {
		return 0, nil
	}
	var total int64
	err := r.db.Model(&models.RfidChip{}).Where("client_order_id = ?", orderID).Count(&total).Error
	return total, err
}

// List 芯片列表
func (r *GormChipRepository) List(filter ChipListFilter) ([]models.RfidChip, int64, error) {
	query := r.db.Model(&models.RfidChip{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CustomerID > 0 {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.SupplierOrderID > 0 {
		query = query.Where("supplier_order_id = ?", filter.SupplierOrderID)
	}
	query = whereContainsAny(query, strings.ToUpper(filter.UID), "uid", "packaging_code")
	query = withCreatedRange(query, filter.CreatedFrom, filter.CreatedTo)
	return findPage[models.RfidChip](query, filter.Page, filter.PageSize, "id asc")
}

// ListByCustomerAndStatus 客户名下指定状态的芯片
func (r *GormChipRepository) ListByCustomerAndStatus(customerID uint, status constants.ChipStatus) ([]models.RfidChip, error) {
	chips := make([]models.RfidChip, 0)
	if customerID == 0 {
		return chips, nil
	}
	err := r.db.Where("customer_id = ? AND status = ?", customerID, status).
		Order("id asc").
		Find(&chips).Error
	if err != nil {
		return nil, err
	}
	return chips, nil
}

// CountGroupByStatus 按状态统计芯片数
func (r *GormChipRepository) CountGroupByStatus() ([]ChipStatusCount, error) {
	var rows []ChipStatusCount
	err := r.db.Model(&models.RfidChip{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

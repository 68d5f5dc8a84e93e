package repository

import (
	"github.com/chiptrack/internal/models"

	"gorm.io/gorm"
)

// ChipHistoryRepository 芯片状态流转记录（只追加，不提供修改与删除）
type ChipHistoryRepository interface {
	Create(entry *models.RfidChipStatusHistory) error
	ListByChip(chipID uint) ([]models.RfidChipStatusHistory, error)
	WithTx(tx *gorm.DB) *GormChipHistoryRepository
}

// GormChipHistoryRepository GORM 实现
type GormChipHistoryRepository struct {
	db *gorm.DB
}

// NewChipHistoryRepository 创建流转记录仓库
func NewChipHistoryRepository(db *gorm.DB) *GormChipHistoryRepository {
	return &GormChipHistoryRepository{db: db}
}

// WithTx 绑定事务
func (r *GormChipHistoryRepository) WithTx(tx *gorm.DB) *GormChipHistoryRepository {
	if tx == nil {
		return r
	}
	return &GormChipHistoryRepository{db: tx}
}

// Create 追加一条流转记录
func (r *GormChipHistoryRepository) Create(entry *models.RfidChipStatusHistory) error {
	return r.db.Create(entry).Error
}

// ListByChip 按时间顺序返回芯片的流转记录
func (r *GormChipHistoryRepository) ListByChip(chipID uint) ([]models.RfidChipStatusHistory, error) {
	entries := make([]models.RfidChipStatusHistory, 0)
	if chipID == 0 {
		return entries, nil
	}
	if err := r.db.Where("rfid_chip_id = ?", chipID).
		Order("changed_at asc, id asc").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

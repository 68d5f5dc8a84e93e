package repository

import (
	"strings"
	"time"

	"github.com/chiptrack/internal/models"

	"gorm.io/gorm"
)

// ChipSecurityEventRepository 安全事件数据访问接口
type ChipSecurityEventRepository interface {
	Create(event *models.ChipSecurityEvent) error
	MarkNotified(id uint, at time.Time) error
	GetByID(id uint) (*models.ChipSecurityEvent, error)
	List(filter ChipSecurityEventListFilter) ([]models.ChipSecurityEvent, int64, error)
	ListPendingNotification(before time.Time, limit int) ([]models.ChipSecurityEvent, error)
}

// GormChipSecurityEventRepository GORM 实现
type GormChipSecurityEventRepository struct {
	db *gorm.DB
}

// NewChipSecurityEventRepository 创建安全事件仓库
func NewChipSecurityEventRepository(db *gorm.DB) *GormChipSecurityEventRepository {
	return &GormChipSecurityEventRepository{db: db}
}

// Create 写入安全事件
func (r *GormChipSecurityEventRepository) Create(event *models.ChipSecurityEvent) error {
	return r.db.Create(event).Error
}

// MarkNotified 标记告警已投递
func (r *GormChipSecurityEventRepository) MarkNotified(id uint, at time.Time) error {
	return r.db.Model(&models.ChipSecurityEvent{}).
		Where("id = ? AND notified_at IS NULL", id).
		Update("notified_at", at).Error
}

// ListPendingNotification 返回早于 before 且尚未投递告警的事件
func (r *GormChipSecurityEventRepository) ListPendingNotification(before time.Time, limit int) ([]models.ChipSecurityEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	events := make([]models.ChipSecurityEvent, 0)
	err := r.db.Where("notified_at IS NULL AND created_at < ?", before).
		Order("id asc").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetByID 根据 ID 获取安全事件
func (r *GormChipSecurityEventRepository) GetByID(id uint) (*models.ChipSecurityEvent, error) {
	var event models.ChipSecurityEvent
	result := r.db.Where("id = ?", id).Limit(1).Find(&event)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &event, nil
}

// List 安全事件列表（倒序）
func (r *GormChipSecurityEventRepository) List(filter ChipSecurityEventListFilter) ([]models.ChipSecurityEvent, int64, error) {
	query := r.db.Model(&models.ChipSecurityEvent{})
	if reason := strings.TrimSpace(filter.Reason); reason != "" {
		query = query.Where("reason = ?", reason)
	}
	if uid := strings.TrimSpace(filter.UID); uid != "" {
		query = query.Where("uid = ?", strings.ToUpper(uid))
	}
	query = withCreatedRange(query, filter.CreatedFrom, filter.CreatedTo)
	return findPage[models.ChipSecurityEvent](query, filter.Page, filter.PageSize, "id desc")
}

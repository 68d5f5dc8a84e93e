package repository

import (
	"errors"
	"time"

	"github.com/chiptrack/internal/models"

	"gorm.io/gorm"
)

// AdminRepository 后台操作员数据访问接口
type AdminRepository interface {
	GetByUsername(username string) (*models.Admin, error)
	GetByID(id uint) (*models.Admin, error)
	List(filter AdminListFilter) ([]models.Admin, error)
	Create(admin *models.Admin) error
	TouchLastLogin(id uint, at time.Time) error
	UpdateCredentials(admin *models.Admin) error
	SetDisabled(admin *models.Admin) error
}

// AdminListFilter 操作员列表过滤条件
type AdminListFilter struct {
	Station         string
	IncludeDisabled bool
}

// GormAdminRepository GORM 实现
type GormAdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository 创建操作员仓库
func NewAdminRepository(db *gorm.DB) *GormAdminRepository {
	return &GormAdminRepository{db: db}
}

func (r *GormAdminRepository) first(query *gorm.DB) (*models.Admin, error) {
	var admin models.Admin
	if err := query.First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

// GetByUsername 按登录名查询
func (r *GormAdminRepository) GetByUsername(username string) (*models.Admin, error) {
	return r.first(r.db.Where("username = ?", username))
}

// GetByID 按 ID 查询
func (r *GormAdminRepository) GetByID(id uint) (*models.Admin, error) {
	if id == 0 {
		return nil, nil
	}
	return r.first(r.db.Where("id = ?", id))
}

// List 操作员列表，默认不含已停用账号
func (r *GormAdminRepository) List(filter AdminListFilter) ([]models.Admin, error) {
	query := r.db.Model(&models.Admin{})
	if filter.Station != "" {
		query = query.Where("station = ?", filter.Station)
	}
	if !filter.IncludeDisabled {
		query = query.Where("disabled = ?", false)
	}
	admins := make([]models.Admin, 0)
	if err := query.Order("id asc").Find(&admins).Error; err != nil {
		return nil, err
	}
	return admins, nil
}

// Create 创建操作员
func (r *GormAdminRepository) Create(admin *models.Admin) error {
	return r.db.Create(admin).Error
}

// TouchLastLogin 只更新最后登录时间
func (r *GormAdminRepository) TouchLastLogin(id uint, at time.Time) error {
	return r.db.Model(&models.Admin{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// UpdateCredentials 写入新密码哈希与 Token 吊销标记
func (r *GormAdminRepository) UpdateCredentials(admin *models.Admin) error {
	return r.db.Model(admin).Select("password_hash", "token_version", "token_invalid_before").Updates(admin).Error
}

// SetDisabled 写入停用状态与 Token 吊销标记
func (r *GormAdminRepository) SetDisabled(admin *models.Admin) error {
	return r.db.Model(admin).Select("disabled", "token_version", "token_invalid_before").Updates(admin).Error
}

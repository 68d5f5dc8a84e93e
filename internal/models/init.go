package models

import (
	"strings"

	"github.com/chiptrack/internal/constants"
	"github.com/chiptrack/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// DefaultAdminUsername 初始超级管理员登录名
const DefaultAdminUsername = "admin"

// insecureDefaultAdminPassword 仅用于本地调试环境
const insecureDefaultAdminPassword = "admin123"

// InitDefaultAdmin 空库时创建办公室岗位的超级管理员；已有操作员时保证 admin 仍为超级管理员
func InitDefaultAdmin(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		username = DefaultAdminUsername
	}

	var count int64
	if err := DB.Model(&Admin{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		result := DB.Model(&Admin{}).
			Where("username = ? AND is_super = ?", DefaultAdminUsername, false).
			Update("is_super", true)
		if result.Error != nil {
			logger.Warnw("default_admin_promote_failed", "error", result.Error)
		}
		return nil
	}

	usingFallback := password == ""
	if usingFallback {
		password = insecureDefaultAdminPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := Admin{
		Username:     username,
		PasswordHash: string(hash),
		Station:      constants.StationOffice,
		IsSuper:      true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	logger.Warnw("default_admin_created",
		"username", username,
		"station", admin.Station,
		"insecure_password", usingFallback,
	)
	return nil
}

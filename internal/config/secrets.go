package config

import (
	"fmt"
	"strings"
)

// 默认密钥（仅用于开发环境）
const (
	DefaultJWTSecret      = "change-me-in-production"
	DefaultChecksumSecret = "chip-checksum-change-me-in-production"
)

// IsWeakSecret 判断密钥是否过弱或仍为默认值
func IsWeakSecret(secret string) bool {
	if len(secret) < 32 {
		return true
	}
	normalized := strings.ToLower(secret)
	return strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "change-in-production") ||
		strings.Contains(normalized, "your-secret-key")
}

// WeakSecrets 返回仍为弱密钥的配置项
func (c *Config) WeakSecrets() []string {
	if c == nil {
		return nil
	}
	checks := []struct {
		key   string
		value string
	}{
		{"jwt.secret", c.JWT.SecretKey},
		{"customer_jwt.secret", c.CustomerJWT.SecretKey},
		{"chip.checksum_secret", c.Chip.ChecksumSecret},
		{"chip.key_secret", c.Chip.KeySecret},
	}
	weak := make([]string, 0)
	for _, item := range checks {
		if IsWeakSecret(item.value) {
			weak = append(weak, item.key)
		}
	}
	return weak
}

// ValidateRelease 生产模式下拒绝弱密钥
func (c *Config) ValidateRelease() error {
	if c == nil || c.Server.Mode != "release" {
		return nil
	}
	if weak := c.WeakSecrets(); len(weak) > 0 {
		return fmt.Errorf("weak secrets configured: %s", strings.Join(weak, ", "))
	}
	return nil
}

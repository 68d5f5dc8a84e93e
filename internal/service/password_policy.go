package service

import (
	"unicode"

	"github.com/chiptrack/internal/config"
)

// bcrypt 只接受 72 字节以内的明文
const bcryptMaxPasswordBytes = 72

// PasswordPolicyError 未满足的密码规则，Key 对应 i18n 文案
type PasswordPolicyError struct {
	key  string
	args []interface{}
}

func (e *PasswordPolicyError) Error() string { return e.key }

// Is 统一归类为 ErrWeakPassword
func (e *PasswordPolicyError) Is(target error) bool { return target == ErrWeakPassword }

// Key 文案键
func (e *PasswordPolicyError) Key() string { return e.key }

// Args 文案参数
func (e *PasswordPolicyError) Args() []interface{} { return e.args }

type charClasses struct {
	upper, lower, digit, special bool
}

func classifyPassword(password string) charClasses {
	var classes charClasses
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			classes.upper = true
		case unicode.IsLower(r):
			classes.lower = true
		case unicode.IsDigit(r):
			classes.digit = true
		default:
			classes.special = true
		}
	}
	return classes
}

// validatePassword 依次检查长度与字符类别，返回第一条未满足的规则
func validatePassword(policy config.PasswordPolicyConfig, password string) error {
	if len(password) > bcryptMaxPasswordBytes {
		return &PasswordPolicyError{key: "error.password_max_length", args: []interface{}{bcryptMaxPasswordBytes}}
	}
	if policy.MinLength > 0 && len([]rune(password)) < policy.MinLength {
		return &PasswordPolicyError{key: "error.password_min_length", args: []interface{}{policy.MinLength}}
	}

	classes := classifyPassword(password)
	rules := []struct {
		required bool
		present  bool
		key      string
	}{
		{policy.RequireUpper, classes.upper, "error.password_require_upper"},
		{policy.RequireLower, classes.lower, "error.password_require_lower"},
		{policy.RequireNumber, classes.digit, "error.password_require_number"},
		{policy.RequireSpecial, classes.special, "error.password_require_special"},
	}
	for _, rule := range rules {
		if rule.required && !rule.present {
			return &PasswordPolicyError{key: rule.key}
		}
	}
	return nil
}

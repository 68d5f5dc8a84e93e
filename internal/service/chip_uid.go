package service

import (
	"encoding/hex"
	"strings"
)

var uidSeparatorReplacer = strings.NewReplacer(":", "", "-", "", " ", "", "\t", "")

// NormalizeUID 规范化出厂 UID：去分隔符、大写、仅接受 4/7/10 字节
func NormalizeUID(raw string) (string, error) {
	uid := strings.ToUpper(uidSeparatorReplacer.Replace(strings.TrimSpace(raw)))
	switch len(uid) {
	case 8, 14, 20:
	default:
		return "", ErrChipInvalidUID
	}
	if _, err := hex.DecodeString(uid); err != nil {
		return "", ErrChipInvalidUID
	}
	return uid, nil
}

// IsHexBlock 判断是否为 16 字节块的十六进制表示
func IsHexBlock(value string) bool {
	if len(value) != chipBlockHexLen {
		return false
	}
	_, err := hex.DecodeString(value)
	return err == nil
}

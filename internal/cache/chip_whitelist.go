package cache

import (
	"context"
	"fmt"
	"time"
)

const defaultWhitelistTTL = 5 * time.Minute

// WhitelistEntry 客户可扫描芯片快照
type WhitelistEntry struct {
	ID             uint   `json:"id"`
	ChipID         string `json:"chip_id"`
	UID            string `json:"uid"`
	ControlPointID *uint  `json:"control_point_id,omitempty"`
}

// ChipWhitelist 客户白名单缓存结构
type ChipWhitelist struct {
	CustomerID  uint             `json:"customer_id"`
	Entries     []WhitelistEntry `json:"entries"`
	GeneratedAt int64            `json:"generated_at"`
}

func chipWhitelistKey(customerID uint) string {
	return fmt.Sprintf("chip:whitelist:%d", customerID)
}

// GetChipWhitelist 读取客户白名单缓存
func GetChipWhitelist(ctx context.Context, customerID uint) (*ChipWhitelist, bool, error) {
	if customerID == 0 {
		return nil, false, nil
	}
	var list ChipWhitelist
	hit, err := GetJSON(ctx, chipWhitelistKey(customerID), &list)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &list, true, nil
}

// SetChipWhitelist 写入客户白名单缓存
func SetChipWhitelist(ctx context.Context, list *ChipWhitelist, ttl time.Duration) error {
	if list == nil || list.CustomerID == 0 {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultWhitelistTTL
	}
	return SetJSON(ctx, chipWhitelistKey(list.CustomerID), list, ttl)
}

// DelChipWhitelist 芯片状态变化后失效客户白名单
func DelChipWhitelist(ctx context.Context, customerID uint) error {
	if customerID == 0 {
		return nil
	}
	return Del(ctx, chipWhitelistKey(customerID))
}

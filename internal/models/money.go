package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount 金额无法解析或为负数
var ErrInvalidAmount = errors.New("invalid amount")

// Money 订单金额，按分（2 位小数）存储与输出
type Money struct {
	decimal.Decimal
}

// NewMoney 从 decimal 创建金额
func NewMoney(amount decimal.Decimal) Money {
	return Money{Decimal: amount.Round(2)}
}

// ParseMoney 解析金额字符串，兼容 "12,50" 与 "1 250.00" 这类法式写法
func ParseMoney(raw string) (Money, error) {
	text := strings.TrimSpace(raw)
	for _, space := range []string{" ", "\u00a0", "\u202f"} {
		text = strings.ReplaceAll(text, space, "")
	}
	if strings.Count(text, ",") == 1 && !strings.Contains(text, ".") {
		text = strings.Replace(text, ",", ".", 1)
	}
	if text == "" {
		return Money{}, nil
	}
	amount, err := decimal.NewFromString(text)
	if err != nil || amount.IsNegative() {
		return Money{}, ErrInvalidAmount
	}
	return NewMoney(amount), nil
}

// PerUnit 按数量均摊的单价，数量非正时返回 0
func (m Money) PerUnit(quantity int) Money {
	if quantity <= 0 {
		return Money{}
	}
	return NewMoney(m.Decimal.Div(decimal.NewFromInt(int64(quantity))))
}

// MarshalJSON 输出固定 2 位小数的字符串，避免浮点误差
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON 接受字符串或数字
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*m = Money{}
		return nil
	}
	if b[0] == '"' {
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		parsed, err := ParseMoney(text)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	parsed, err := ParseMoney(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value 写库
func (m Money) Value() (driver.Value, error) {
	return m.Decimal.Round(2).Value()
}

// Scan 读库
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(2)
	return nil
}

func (m Money) String() string {
	return m.Decimal.Round(2).StringFixed(2)
}

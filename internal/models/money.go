package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// MoneyScale 金额保留位数
const MoneyScale int32 = 2

// RoundAmount 按 2 位小数、四舍五入（远离零）取整。
// 仅用于汇总值（小计、折扣、税额、合计），行内中间值不在此处取整。
func RoundAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(MoneyScale)
}

// SumAmounts 以全精度累加，不做任何取整
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return total
}

// Money 统一金额类型（保留 2 位小数）
type Money struct {
	decimal.Decimal
}

// NewMoneyFromDecimal 从 decimal 创建金额
func NewMoneyFromDecimal(amount decimal.Decimal) Money {
	return Money{Decimal: RoundAmount(amount)}
}

// NewMoneyFromString 从字符串创建金额
func NewMoneyFromString(raw string) (Money, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Money{}, err
	}
	return NewMoneyFromDecimal(d), nil
}

// MarshalJSON 统一输出 2 位小数的字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON 解析金额（字符串或数字）
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			m.Decimal = decimal.Zero
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		m.Decimal = RoundAmount(d)
		return nil
	}
	// 数字直接按文本解析，避免 float64 带来的二进制误差
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return err
	}
	m.Decimal = RoundAmount(d)
	return nil
}

// Value 用于数据库写入
func (m Money) Value() (driver.Value, error) {
	return RoundAmount(m.Decimal).Value()
}

// Scan 用于数据库读取
func (m *Money) Scan(value interface{}) error {
	if err := m.Decimal.Scan(value); err != nil {
		return err
	}
	m.Decimal = RoundAmount(m.Decimal)
	return nil
}

// String 返回 2 位小数格式
func (m Money) String() string {
	return RoundAmount(m.Decimal).StringFixed(MoneyScale)
}

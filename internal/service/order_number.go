package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/repository"

	"gorm.io/gorm"
)

// OrderNumberGenerator 生成 PREFIX-YYYYMMDD-NNNN 订单号
type OrderNumberGenerator struct {
	prefix   string
	location *time.Location
}

// NewOrderNumberGenerator 创建订单号生成器，日期按门店时区计算
func NewOrderNumberGenerator(prefix string, location *time.Location) *OrderNumberGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = constants.OrderNoPrefixDefault
	}
	if location == nil {
		location = time.UTC
	}
	return &OrderNumberGenerator{prefix: prefix, location: location}
}

// DateScope 返回门店时区下的日期段 YYYYMMDD
func (g *OrderNumberGenerator) DateScope(now time.Time) string {
	return now.In(g.location).Format("20060102")
}

// Next 在事务内读取当日最大序号并返回下一个订单号。
// 并发冲突由 order_no 唯一索引兜底，调用方按唯一冲突重试整个事务。
func (g *OrderNumberGenerator) Next(tx *gorm.DB, dateScope string) (string, error) {
	scopePrefix := fmt.Sprintf("%s-%s-", g.prefix, dateScope)
	latest, err := repository.NewOrderRepository(tx).FindLatestOrderNo(scopePrefix)
	if err != nil {
		return "", err
	}
	next := 1
	if latest != "" {
		seq, err := strconv.Atoi(strings.TrimPrefix(latest, scopePrefix))
		if err != nil {
			return "", fmt.Errorf("parse order number %q: %w", latest, err)
		}
		next = seq + 1
	}
	return fmt.Sprintf("%s%0*d", scopePrefix, constants.OrderNoSequenceWidth, next), nil
}

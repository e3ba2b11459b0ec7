package repository

import "time"

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page          int
	PageSize      int
	Status        string
	Channel       string
	OrderNo       string
	Keyword       string
	ScheduledDate string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// PromoListFilter 查询优惠码列表的过滤条件
type PromoListFilter struct {
	Page     int
	PageSize int
	Code     string
	IsActive *bool
}

// TimeslotListFilter 查询时段列表的过滤条件
type TimeslotListFilter struct {
	Date       string
	Type       string
	OnlyActive bool
}

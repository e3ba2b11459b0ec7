package constants

// 订单状态常量
const (
	OrderStatusNew            = "NEW"
	OrderStatusConfirmed      = "CONFIRMED"
	OrderStatusInProduction   = "IN_PRODUCTION"
	OrderStatusReady          = "READY"
	OrderStatusOutForDelivery = "OUT_FOR_DELIVERY"
	OrderStatusCompleted      = "COMPLETED"
	OrderStatusCancelled      = "CANCELLED"
	OrderStatusRefunded       = "REFUNDED"
)

// 订单渠道常量
const (
	OrderChannelOnline = "ONLINE"
	OrderChannelPOS    = "POS"
)

// 履约方式常量
const (
	FulfillmentPickup   = "PICKUP"
	FulfillmentDelivery = "DELIVERY"
	FulfillmentWalkIn   = "WALKIN"
)

// 支付方式常量
const (
	PaymentMethodCard       = "CARD"
	PaymentMethodPayInStore = "PAY_IN_STORE"
	PaymentMethodCash       = "CASH"
	PaymentMethodComp       = "COMP"
)

// 优惠码类型常量
const (
	PromoTypePercentage  = "PERCENTAGE"
	PromoTypeFixedAmount = "FIXED_AMOUNT"
)

// 优惠码校验失败原因
const (
	PromoReasonNotFound     = "not_found"
	PromoReasonInactive     = "inactive"
	PromoReasonNotStarted   = "not_started"
	PromoReasonExpired      = "expired"
	PromoReasonExhausted    = "exhausted"
	PromoReasonBelowMinimum = "below_minimum"
)

// 价格默认配置
const (
	DefaultTaxRate     = "0.0825"
	DefaultDeliveryFee = "5.00"
	DefaultCurrency    = "USD"
)

// 订单号默认配置
const (
	OrderNoPrefixDefault      = "BAK"
	OrderNoSequenceWidth      = 4
	OrderNoRetryAttemptsLimit = 3
)

// 员工角色常量
const (
	StaffRoleManager = "manager"
	StaffRoleCashier = "cashier"
)

// 队列常量
const (
	QueueDefault           = "default"
	QueueCritical          = "critical"
	TaskOrderPaymentExpire = "order:payment_timeout"
	TaskOrderRefundRetry   = "order:refund_retry"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "bk"
	CacheKeyMenu       = "catalog:menu"
)

// 时区默认值
const (
	StoreTimezoneDefault = "America/Chicago"
)

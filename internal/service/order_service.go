package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bakehouse-next/internal/config"
	"github.com/bakehouse-next/internal/constants"
	"github.com/bakehouse-next/internal/logger"
	"github.com/bakehouse-next/internal/models"
	"github.com/bakehouse-next/internal/queue"
	"github.com/bakehouse-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderServiceDeps 订单服务依赖
type OrderServiceDeps struct {
	OrderRepo      repository.OrderRepository
	PromoRepo      repository.PromoRepository
	RedemptionRepo repository.PromoRedemptionRepository
	TimeslotRepo   repository.TimeslotRepository
	CustomerRepo   repository.CustomerRepository
	Resolver       *CatalogResolver
	PromoService   *PromoService
	Pricing        *PricingEngine
	Numbers        *OrderNumberGenerator
	Gateway        PaymentGateway
	QueueClient    *queue.Client
}

// OrderServiceOptions 订单服务运行参数
type OrderServiceOptions struct {
	RetryAttempts      int
	PaymentExpire      time.Duration
	TransactionTimeout time.Duration
	POSAllowOverbook   bool
	Now                func() time.Time
}

// OrderServiceOptionsFrom 从配置构建订单服务参数
func OrderServiceOptionsFrom(cfg config.OrderConfig) OrderServiceOptions {
	return OrderServiceOptions{
		RetryAttempts:      cfg.NumberRetryAttempts,
		PaymentExpire:      time.Duration(cfg.PaymentExpireMinutes) * time.Minute,
		TransactionTimeout: cfg.TransactionTimeout(),
		POSAllowOverbook:   cfg.POSAllowOverbook,
	}
}

// OrderService 订单服务（下单事务协调）
type OrderService struct {
	orderRepo      repository.OrderRepository
	promoRepo      repository.PromoRepository
	redemptionRepo repository.PromoRedemptionRepository
	timeslotRepo   repository.TimeslotRepository
	customerRepo   repository.CustomerRepository
	resolver       *CatalogResolver
	promoService   *PromoService
	pricing        *PricingEngine
	numbers        *OrderNumberGenerator
	gateway        PaymentGateway
	queueClient    *queue.Client
	opts           OrderServiceOptions
}

// NewOrderService 创建订单服务
func NewOrderService(deps OrderServiceDeps, opts OrderServiceOptions) *OrderService {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = constants.OrderNoRetryAttemptsLimit
	}
	if opts.PaymentExpire <= 0 {
		opts.PaymentExpire = 15 * time.Minute
	}
	if opts.TransactionTimeout <= 0 {
		opts.TransactionTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &OrderService{
		orderRepo:      deps.OrderRepo,
		promoRepo:      deps.PromoRepo,
		redemptionRepo: deps.RedemptionRepo,
		timeslotRepo:   deps.TimeslotRepo,
		customerRepo:   deps.CustomerRepo,
		resolver:       deps.Resolver,
		promoService:   deps.PromoService,
		pricing:        deps.Pricing,
		numbers:        deps.Numbers,
		gateway:        deps.Gateway,
		queueClient:    deps.QueueClient,
		opts:           opts,
	}
}

// GuestInfo 游客联系方式
type GuestInfo struct {
	Name  string
	Email string
	Phone string
}

// CustomerIdentity 已登录顾客身份（来自顾客 Token）
type CustomerIdentity struct {
	Email string
	Name  string
	Phone string
}

// CreateOrderInput 下单输入（线上与 POS 共用）
type CreateOrderInput struct {
	Items           []CartLineInput
	FulfillmentType string
	PaymentMethod   string
	ScheduledDate   string
	TimeslotID      uint
	DeliveryAddress string
	TipAmount       decimal.Decimal
	PromoCode       string
	Notes           string
	Guest           *GuestInfo
	Customer        *CustomerIdentity
	StaffID         uint
}

// CreateOrderResult 下单结果
type CreateOrderResult struct {
	Order          *models.Order
	ClientSecret   string
	PublishableKey string
}

// CartPreviewInput 购物车预览输入
type CartPreviewInput struct {
	Items           []CartLineInput
	FulfillmentType string
	PromoCode       string
	TipAmount       decimal.Decimal
}

// PromoPreview 预览中的优惠码结果
type PromoPreview struct {
	Code     string       `json:"code"`
	Valid    bool         `json:"valid"`
	Reason   string       `json:"reason,omitempty"`
	Message  string       `json:"message,omitempty"`
	Discount models.Money `json:"discount"`
}

// CartPreview 购物车预览结果（不落库）
type CartPreview struct {
	Lines    []ResolvedLine
	Warnings []ResolutionWarning
	Totals   *Totals
	Promo    *PromoPreview
	Currency string
}

// orderPlan 事务前准备好的下单数据
type orderPlan struct {
	channel         string
	fulfillmentType string
	paymentMethod   string
	lines           []ResolvedLine
	totals          *Totals
	promo           *models.Promo
	timeslot        *models.Timeslot
	scheduledDate   string
	deliveryAddress string
	notes           string
	customer        *models.Customer
	guest           GuestInfo
	staffID         *uint
	checkoutRef     string
	paid            bool
	now             time.Time
}

// PreviewCart 宽松模式计算购物车金额，不占用优惠码与时段
func (s *OrderService) PreviewCart(input CartPreviewInput) (*CartPreview, error) {
	fulfillment := normalizeUpper(input.FulfillmentType)
	if fulfillment == "" {
		fulfillment = constants.FulfillmentPickup
	}
	resolution, err := s.resolver.Resolve(input.Items, ResolutionLenient)
	if err != nil {
		return nil, err
	}
	subtotal := s.pricing.Subtotal(resolution.Lines)

	discount := decimal.Zero
	var promoPreview *PromoPreview
	if code := strings.TrimSpace(input.PromoCode); code != "" {
		evaluation, err := s.promoService.Evaluate(code, subtotal, s.opts.Now())
		if err != nil {
			return nil, err
		}
		promoPreview = &PromoPreview{
			Code:    repository.NormalizePromoCode(code),
			Valid:   evaluation.Valid,
			Reason:  evaluation.Reason,
			Message: evaluation.Message,
		}
		if evaluation.Valid {
			discount = evaluation.Discount
		}
		promoPreview.Discount = models.NewMoneyFromDecimal(discount)
	}

	totals, err := s.pricing.Price(PriceInput{
		Lines:           resolution.Lines,
		FulfillmentType: fulfillment,
		Discount:        discount,
		Tip:             input.TipAmount,
	})
	if err != nil {
		return nil, err
	}
	return &CartPreview{
		Lines:    resolution.Lines,
		Warnings: resolution.Warnings,
		Totals:   totals,
		Promo:    promoPreview,
		Currency: s.pricing.Currency(),
	}, nil
}

// CreateOrder 线上下单
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	return s.createOrder(ctx, constants.OrderChannelOnline, input)
}

// CreatePOSOrder 门店收银下单
func (s *OrderService) CreatePOSOrder(ctx context.Context, input CreateOrderInput) (*CreateOrderResult, error) {
	return s.createOrder(ctx, constants.OrderChannelPOS, input)
}

func (s *OrderService) createOrder(ctx context.Context, channel string, input CreateOrderInput) (*CreateOrderResult, error) {
	plan, err := s.buildOrderPlan(channel, input)
	if err != nil {
		return nil, err
	}

	var intent *PaymentIntent
	if plan.needsPaymentIntent() {
		intent, err = s.createPaymentIntent(ctx, plan)
		if err != nil {
			return nil, err
		}
	}

	order, err := s.persistOrder(ctx, plan, intent)
	if err != nil {
		if intent != nil {
			s.cancelPaymentIntentQuietly(ctx, intent.ID, plan.checkoutRef)
		}
		logger.Warnw("order_create_failed",
			"channel", channel,
			"checkout_ref", plan.checkoutRef,
			"error", err,
		)
		return nil, err
	}

	if intent != nil {
		s.enqueuePaymentExpire(order)
	}

	logger.Infow("order_created",
		"order_id", order.ID,
		"order_no", order.OrderNo,
		"channel", order.Channel,
		"total_amount", order.TotalAmount.String(),
		"payment_method", order.PaymentMethod,
	)

	result := &CreateOrderResult{Order: order}
	if intent != nil {
		result.ClientSecret = intent.ClientSecret
		if s.gateway != nil {
			result.PublishableKey = s.gateway.PublishableKey()
		}
	}
	return result, nil
}

func (s *OrderService) buildOrderPlan(channel string, input CreateOrderInput) (*orderPlan, error) {
	fulfillment := normalizeUpper(input.FulfillmentType)
	if err := validateFulfillment(channel, fulfillment); err != nil {
		return nil, err
	}
	paymentMethod, err := resolvePaymentMethod(channel, input.PaymentMethod)
	if err != nil {
		return nil, err
	}
	deliveryAddress := strings.TrimSpace(input.DeliveryAddress)
	if fulfillment == constants.FulfillmentDelivery && deliveryAddress == "" {
		return nil, newValidationError("delivery_address", "is required for delivery")
	}

	now := s.opts.Now()
	plan := &orderPlan{
		channel:         channel,
		fulfillmentType: fulfillment,
		paymentMethod:   paymentMethod,
		deliveryAddress: deliveryAddress,
		notes:           strings.TrimSpace(input.Notes),
		checkoutRef:     uuid.NewString(),
		now:             now,
	}
	if input.StaffID != 0 {
		staffID := input.StaffID
		plan.staffID = &staffID
	}

	if err := s.applySchedule(plan, input); err != nil {
		return nil, err
	}

	resolution, err := s.resolver.Resolve(input.Items, ResolutionStrict)
	if err != nil {
		return nil, err
	}
	plan.lines = resolution.Lines
	subtotal := s.pricing.Subtotal(plan.lines)

	discount := decimal.Zero
	if code := strings.TrimSpace(input.PromoCode); code != "" {
		evaluation, err := s.promoService.Evaluate(code, subtotal, now)
		if err != nil {
			return nil, err
		}
		if !evaluation.Valid {
			return nil, evaluation.Err()
		}
		plan.promo = evaluation.Promo
		discount = evaluation.Discount
	}

	totals, err := s.pricing.Price(PriceInput{
		Lines:           plan.lines,
		FulfillmentType: fulfillment,
		Discount:        discount,
		Tip:             input.TipAmount,
	})
	if err != nil {
		return nil, err
	}
	plan.totals = totals

	if err := s.applyContact(plan, input); err != nil {
		return nil, err
	}

	switch paymentMethod {
	case constants.PaymentMethodCash, constants.PaymentMethodComp:
		plan.paid = true
	case constants.PaymentMethodCard:
		plan.paid = !totals.Total.GreaterThan(decimal.Zero)
	}
	return plan, nil
}

func (s *OrderService) applySchedule(plan *orderPlan, input CreateOrderInput) error {
	if input.TimeslotID != 0 {
		if plan.fulfillmentType == constants.FulfillmentWalkIn {
			return newValidationError("timeslot_id", "is not allowed for walk-in orders")
		}
		slot, err := s.loadTimeslot(input.TimeslotID, plan.fulfillmentType)
		if err != nil {
			return err
		}
		plan.timeslot = slot
		plan.scheduledDate = slot.Date
		return nil
	}
	date := strings.TrimSpace(input.ScheduledDate)
	if date == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return newValidationError("scheduled_date", "must be YYYY-MM-DD")
	}
	plan.scheduledDate = date
	return nil
}

func (s *OrderService) loadTimeslot(id uint, fulfillment string) (*models.Timeslot, error) {
	slot, err := s.timeslotRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, ErrTimeslotNotFound
	}
	if slot.Type != fulfillment {
		return nil, newValidationError("timeslot_id", fmt.Sprintf("is a %s slot", strings.ToLower(slot.Type)))
	}
	return slot, nil
}

func (s *OrderService) applyContact(plan *orderPlan, input CreateOrderInput) error {
	if input.Customer != nil && strings.TrimSpace(input.Customer.Email) != "" {
		customer, err := s.resolveCustomer(*input.Customer)
		if err != nil {
			return err
		}
		plan.customer = customer
		return nil
	}
	guest := GuestInfo{}
	if input.Guest != nil {
		guest = GuestInfo{
			Name:  strings.TrimSpace(input.Guest.Name),
			Email: strings.ToLower(strings.TrimSpace(input.Guest.Email)),
			Phone: strings.TrimSpace(input.Guest.Phone),
		}
	}
	if guest.Email != "" {
		if _, err := mail.ParseAddress(guest.Email); err != nil {
			return newValidationError("guest.email", "is not a valid email address")
		}
	}
	// POS 客人可匿名
	if plan.channel == constants.OrderChannelOnline {
		if guest.Name == "" {
			return newValidationError("guest.name", "is required")
		}
		if guest.Email == "" && guest.Phone == "" {
			return newValidationError("guest", "email or phone is required")
		}
	}
	plan.guest = guest
	return nil
}

// resolveCustomer 按邮箱查找或创建顾客
func (s *OrderService) resolveCustomer(identity CustomerIdentity) (*models.Customer, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, newValidationError("customer.email", "is not a valid email address")
	}
	customer, err := s.customerRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if customer != nil {
		return customer, nil
	}
	customer = &models.Customer{
		Email: email,
		Name:  strings.TrimSpace(identity.Name),
		Phone: strings.TrimSpace(identity.Phone),
	}
	if err := s.customerRepo.Create(customer); err != nil {
		if !repository.IsUniqueViolation(err) {
			return nil, err
		}
		// 并发首单
		existing, getErr := s.customerRepo.GetByEmail(email)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, err
		}
		return existing, nil
	}
	return customer, nil
}

func (p *orderPlan) needsPaymentIntent() bool {
	return p.paymentMethod == constants.PaymentMethodCard && !p.paid
}

func (p *orderPlan) contactEmail() string {
	if p.customer != nil {
		return p.customer.Email
	}
	return p.guest.Email
}

func (s *OrderService) createPaymentIntent(ctx context.Context, plan *orderPlan) (*PaymentIntent, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("%w: %w", ErrPaymentFailed, ErrPaymentNotConfigured)
	}
	intent, err := s.gateway.CreatePaymentIntent(ctx, PaymentIntentRequest{
		Amount:         plan.totals.Total.Decimal,
		Currency:       s.pricing.Currency(),
		Reference:      plan.checkoutRef,
		Description:    fmt.Sprintf("Bakery order %s", plan.checkoutRef),
		ReceiptEmail:   plan.contactEmail(),
		IdempotencyKey: plan.checkoutRef,
	})
	if err != nil {
		logger.Warnw("order_payment_intent_create_failed",
			"checkout_ref", plan.checkoutRef,
			"amount", plan.totals.Total.String(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	if intent == nil || strings.TrimSpace(intent.ID) == "" {
		return nil, fmt.Errorf("%w: empty payment intent", ErrPaymentFailed)
	}
	return intent, nil
}

func (s *OrderService) cancelPaymentIntentQuietly(ctx context.Context, intentID, checkoutRef string) {
	if s.gateway == nil || intentID == "" {
		return
	}
	if err := s.gateway.CancelPaymentIntent(context.WithoutCancel(ctx), intentID); err != nil {
		logger.Warnw("order_payment_intent_cancel_failed",
			"payment_intent_id", intentID,
			"checkout_ref", checkoutRef,
			"error", err,
		)
	}
}

// persistOrder 执行下单事务，订单号唯一冲突时整体重试
func (s *OrderService) persistOrder(ctx context.Context, plan *orderPlan, intent *PaymentIntent) (*models.Order, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.RetryAttempts; attempt++ {
		order, err := s.persistOnce(ctx, plan, intent)
		if err == nil {
			return order, nil
		}
		if !repository.IsUniqueViolation(err) {
			return nil, wrapOrderCreateError(err)
		}
		lastErr = err
		logger.Warnw("order_number_conflict_retry",
			"attempt", attempt,
			"checkout_ref", plan.checkoutRef,
			"error", err,
		)
	}
	return nil, wrapOrderCreateError(lastErr)
}

func wrapOrderCreateError(err error) error {
	if errors.Is(err, ErrPromoInvalid) || errors.Is(err, ErrTimeslotUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrOrderCreateFailed, err)
}

func (s *OrderService) persistOnce(ctx context.Context, plan *orderPlan, intent *PaymentIntent) (*models.Order, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.opts.TransactionTimeout)
	defer cancel()

	order := plan.newOrder(s.pricing)
	if intent != nil {
		intentID := intent.ID
		order.PaymentIntentID = &intentID
	}
	items := plan.newItems()

	err := models.DB.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		orderNo, err := s.numbers.Next(tx, s.numbers.DateScope(plan.now))
		if err != nil {
			return err
		}
		order.OrderNo = orderNo
		if err := s.orderRepo.WithTx(tx).Create(order, items); err != nil {
			return err
		}

		if plan.promo != nil {
			redeemed, err := s.promoRepo.WithTx(tx).Redeem(plan.promo.ID)
			if err != nil {
				return err
			}
			if !redeemed {
				return &PromoInvalidError{Reason: constants.PromoReasonExhausted, Message: "promo code usage limit reached"}
			}
			redemption := &models.PromoRedemption{
				PromoID:        plan.promo.ID,
				OrderID:        order.ID,
				CustomerID:     order.CustomerID,
				Code:           plan.promo.Code,
				DiscountAmount: order.DiscountAmount,
				CreatedAt:      plan.now,
			}
			if err := s.redemptionRepo.WithTx(tx).Create(redemption); err != nil {
				return err
			}
		}

		if plan.timeslot != nil {
			reserved, err := s.reserveSeat(s.timeslotRepo.WithTx(tx), plan.channel, plan.timeslot.ID)
			if err != nil {
				return err
			}
			if !reserved {
				return ErrTimeslotUnavailable
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	full, err := s.orderRepo.GetByID(order.ID)
	if err == nil && full != nil {
		return full, nil
	}
	return order, nil
}

// reserveSeat 线上严格占位，POS 按配置允许超订
func (s *OrderService) reserveSeat(repo repository.TimeslotRepository, channel string, slotID uint) (bool, error) {
	if channel == constants.OrderChannelPOS && s.opts.POSAllowOverbook {
		return repo.ForceReserve(slotID)
	}
	return repo.Reserve(slotID)
}

func (p *orderPlan) newOrder(pricing *PricingEngine) *models.Order {
	status := constants.OrderStatusNew
	order := &models.Order{
		Status:          status,
		Channel:         p.channel,
		FulfillmentType: p.fulfillmentType,
		Currency:        pricing.Currency(),
		Subtotal:        p.totals.Subtotal,
		DiscountAmount:  p.totals.Discount,
		TaxRate:         pricing.TaxRate().String(),
		TaxAmount:       p.totals.Tax,
		DeliveryFee:     p.totals.DeliveryFee,
		TipAmount:       p.totals.Tip,
		TotalAmount:     p.totals.Total,
		PaymentMethod:   p.paymentMethod,
		CheckoutRef:     p.checkoutRef,
		ScheduledDate:   p.scheduledDate,
		DeliveryAddress: p.deliveryAddress,
		GuestName:       p.guest.Name,
		GuestEmail:      p.guest.Email,
		GuestPhone:      p.guest.Phone,
		Notes:           p.notes,
		StaffID:         p.staffID,
		CreatedAt:       p.now,
		UpdatedAt:       p.now,
	}
	if p.paid {
		paidAt := p.now
		order.IsPaid = true
		order.PaidAt = &paidAt
		order.Status = constants.OrderStatusConfirmed
	}
	if p.promo != nil {
		promoID := p.promo.ID
		order.PromoID = &promoID
		order.PromoCode = p.promo.Code
	}
	if p.timeslot != nil {
		slotID := p.timeslot.ID
		order.TimeslotID = &slotID
	}
	if p.customer != nil {
		customerID := p.customer.ID
		order.CustomerID = &customerID
	}
	return order
}

func (p *orderPlan) newItems() []models.OrderItem {
	items := make([]models.OrderItem, 0, len(p.lines))
	for _, line := range p.lines {
		item := models.OrderItem{
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			Name:        line.ProductName,
			VariantName: line.VariantName,
			BasePrice:   models.NewMoneyFromDecimal(line.BasePrice),
			UnitPrice:   models.NewMoneyFromDecimal(line.UnitPrice),
			Quantity:    line.Quantity,
			LineTotal:   models.NewMoneyFromDecimal(line.LineTotal),
			Note:        line.Note,
			CreatedAt:   p.now,
			UpdatedAt:   p.now,
		}
		for _, addon := range line.Addons {
			item.Addons = append(item.Addons, models.OrderItemAddon{
				AddonID:   addon.AddonID,
				Name:      addon.Name,
				UnitPrice: models.NewMoneyFromDecimal(addon.UnitPrice),
				Note:      addon.Note,
				CreatedAt: p.now,
			})
		}
		items = append(items, item)
	}
	return items
}

func (s *OrderService) enqueuePaymentExpire(order *models.Order) {
	if !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueOrderPaymentExpire(queue.OrderPaymentExpirePayload{
		OrderID: order.ID,
	}, s.opts.PaymentExpire); err != nil {
		logger.Errorw("order_enqueue_payment_timeout_failed",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"error", err,
		)
	}
}

func validateFulfillment(channel, fulfillment string) error {
	switch fulfillment {
	case constants.FulfillmentPickup, constants.FulfillmentDelivery:
		return nil
	case constants.FulfillmentWalkIn:
		if channel == constants.OrderChannelPOS {
			return nil
		}
		return newValidationError("fulfillment_type", "walk-in is only available at the counter")
	case "":
		return newValidationError("fulfillment_type", "is required")
	default:
		return newValidationError("fulfillment_type", "is not supported")
	}
}

func resolvePaymentMethod(channel, raw string) (string, error) {
	method := normalizeUpper(raw)
	if channel == constants.OrderChannelPOS {
		switch method {
		case "":
			return constants.PaymentMethodCash, nil
		case constants.PaymentMethodCash, constants.PaymentMethodComp, constants.PaymentMethodCard:
			return method, nil
		}
		return "", newValidationError("payment_method", "must be CASH, COMP or CARD")
	}
	switch method {
	case "":
		return constants.PaymentMethodCard, nil
	case constants.PaymentMethodCard, constants.PaymentMethodPayInStore:
		return method, nil
	}
	return "", newValidationError("payment_method", "must be CARD or PAY_IN_STORE")
}

func normalizeUpper(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/campverse/api/internal/domain"
	"github.com/campverse/api/internal/payments"
	"github.com/campverse/api/internal/platform/events"
	"github.com/campverse/api/internal/platform/requestctx"
	"github.com/campverse/api/internal/repositories"
)

const (
	orderIDPrefix   = "ord_"
	maxOrderNote    = 500
	maxOrderImages  = 10
	maxLineQuantity = 999
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders             repositories.OrderRepository
	Carts              repositories.CartRepository
	Payments           payments.Gateway
	Notifier           Notifier
	Events             events.Publisher
	TaxRate            decimal.Decimal
	DefaultShippingFee int64
	Currency           string
	Clock              func() time.Time
	IDGenerator        func() string
	Logger             Logger
}

type orderService struct {
	orders      repositories.OrderRepository
	carts       repositories.CartRepository
	payments    payments.Gateway
	notifier    Notifier
	events      eventEmitter
	taxRate     decimal.Decimal
	shippingFee int64
	currency    string
	clock       func() time.Time
	newID       func() string
	logger      Logger
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.TaxRate.IsNegative() {
		return nil, errors.New("order service: tax rate must not be negative")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "VND"
	}

	return &orderService{
		orders:      deps.Orders,
		carts:       deps.Carts,
		payments:    deps.Payments,
		notifier:    deps.Notifier,
		events:      eventEmitter{publisher: deps.Events, newID: idGen, logger: logger},
		taxRate:     deps.TaxRate,
		shippingFee: deps.DefaultShippingFee,
		currency:    currency,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	lines := cmd.Items
	if cmd.FromCart && userID != "" {
		if s.carts == nil {
			return Order{}, errors.New("order service: cart repository not configured")
		}
		cart, err := s.carts.Get(ctx, userID)
		if err != nil && !repositories.IsNotFound(err) {
			return Order{}, err
		}
		lines = lines[:0:0]
		for _, item := range cart.Items {
			lines = append(lines, OrderLineInput{ProductID: item.ProductID, Quantity: item.Quantity})
		}
	}

	merged, err := validateOrderInput(userID, lines, cmd)
	if err != nil {
		return Order{}, err
	}

	now := s.clock()
	order := Order{
		ID:               orderIDPrefix + s.newID(),
		UserID:           userID,
		ShippingAddress:  trimAddress(cmd.ShippingAddress),
		PaymentMethod:    cmd.PaymentMethod,
		PaymentStatus:    domain.PaymentStatusPending,
		PaymentReference: strings.TrimSpace(cmd.PaymentReference),
		Status:           domain.OrderStatusPending,
		Currency:         s.currency,
		Note:             strings.TrimSpace(cmd.Note),
		Locale:           localeString(ctx),
		CreatedAt:        now,
		UpdatedAt:        now,
		History: []domain.HistoryEntry{{
			Status: string(domain.OrderStatusPending),
			Date:   now,
			Note:   "order placed",
			Actor:  userID,
		}},
	}
	order.OrderNumber = orderNumber(order.ID, now)

	if order.PaymentMethod == domain.PaymentMethodCard {
		if err := s.verifyCardPayment(ctx, &order); err != nil {
			return Order{}, err
		}
	}

	shippingFee := s.shippingFee
	if cmd.ShippingFee != nil {
		shippingFee = *cmd.ShippingFee
	}
	req := repositories.PlaceOrderRequest{
		Order: order,
		Lines: merged,
		Totals: func(items []domain.OrderItem) domain.OrderTotals {
			return domain.ComputeTotals(items, shippingFee, cmd.Discount, s.taxRate)
		},
	}
	if cmd.FromCart {
		req.ClearCartOf = userID
	}

	placed, err := s.orders.Place(ctx, req)
	if err != nil {
		return Order{}, s.mapPlaceError(err)
	}

	s.logger(ctx, "order.created", map[string]any{
		"orderId":    placed.ID,
		"userId":     placed.UserID,
		"grandTotal": placed.Totals.GrandTotal,
		"payment":    string(placed.PaymentMethod),
	})
	s.events.emit(ctx, events.TypeOrderCreated, placed.ID, placed.UserID, now, newOrderEventPayload(placed, "", userID))
	s.notify(ctx, placed, domain.NotificationTypeOrderStatus, templateOrderCreated, placed.OrderNumber)
	return placed, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderNotFound)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, mapRepositoryError(err, ErrOrderNotFound, ErrOrderConflict)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.Page[Order], error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return domain.Page[Order]{}, &ValidationError{Kind: ErrOrderValidation, Fields: []string{fmt.Sprintf("status %q is not supported", filter.Status)}}
	}
	return s.orders.List(ctx, repositories.OrderListFilter{
		UserID:     strings.TrimSpace(filter.UserID),
		Status:     filter.Status,
		Pagination: normalizePage(filter.Pagination),
	})
}

// UpdateStatus applies an administrative transition. Moving to cancelled restores stock in
// the same transaction.
func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error) {
	if !cmd.Status.IsValid() {
		return Order{}, &ValidationError{Kind: ErrOrderValidation, Fields: []string{fmt.Sprintf("status %q is not supported", cmd.Status)}}
	}
	if len(cmd.Images) > maxOrderImages {
		return Order{}, &ValidationError{Kind: ErrOrderValidation, Fields: []string{fmt.Sprintf("at most %d images are allowed", maxOrderImages)}}
	}

	now := s.clock()
	var previous OrderStatus
	updated, err := s.orders.Mutate(ctx, strings.TrimSpace(cmd.OrderID), func(order *domain.Order) (bool, error) {
		previous = order.Status
		if !order.Status.CanTransitionTo(cmd.Status) {
			return false, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidTransition, order.Status, cmd.Status)
		}
		applyOrderStatus(order, cmd.Status, now, cmd.ActorID, cmd.Note, cmd.Images)
		return cmd.Status == domain.OrderStatusCancelled, nil
	})
	if err != nil {
		return Order{}, mapRepositoryError(err, ErrOrderNotFound, ErrOrderConflict)
	}

	s.afterStatusChange(ctx, updated, previous, cmd.ActorID, now)
	return updated, nil
}

// CancelOrder is the owner path: pending orders are cancelled outright while orders already
// in fulfilment move to cancel_request for an administrator to resolve.
func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	now := s.clock()
	reason := strings.TrimSpace(cmd.Reason)
	var previous OrderStatus
	updated, err := s.orders.Mutate(ctx, strings.TrimSpace(cmd.OrderID), func(order *domain.Order) (bool, error) {
		if cmd.UserID != "" && order.UserID != cmd.UserID {
			return false, ErrOrderNotFound
		}
		previous = order.Status
		next := domain.OrderStatusCancelRequest
		switch order.Status {
		case domain.OrderStatusPending:
			next = domain.OrderStatusCancelled
		case domain.OrderStatusProcessing, domain.OrderStatusConfirmed, domain.OrderStatusShipping:
		default:
			return false, fmt.Errorf("%w: cannot cancel %s order", ErrOrderInvalidTransition, order.Status)
		}
		note := "cancelled by customer"
		if next == domain.OrderStatusCancelRequest {
			note = "cancellation requested"
		}
		if reason != "" {
			note += ": " + reason
		}
		applyOrderStatus(order, next, now, cmd.ActorID, note, nil)
		return next == domain.OrderStatusCancelled, nil
	})
	if err != nil {
		return Order{}, mapRepositoryError(err, ErrOrderNotFound, ErrOrderConflict)
	}

	s.afterStatusChange(ctx, updated, previous, cmd.ActorID, now)
	return updated, nil
}

// ConfirmPayment records a PSP outcome. Repeating an already recorded outcome is a no-op.
func (s *orderService) ConfirmPayment(ctx context.Context, cmd ConfirmPaymentCommand) (Order, error) {
	switch cmd.Status {
	case domain.PaymentStatusPaid, domain.PaymentStatusFailed, domain.PaymentStatusRefunded:
	default:
		return Order{}, &ValidationError{Kind: ErrOrderValidation, Fields: []string{fmt.Sprintf("payment status %q is not supported", cmd.Status)}}
	}

	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		order, err := s.orders.FindByPaymentReference(ctx, strings.TrimSpace(cmd.PaymentReference))
		if err != nil {
			return Order{}, mapRepositoryError(err, ErrOrderNotFound, ErrOrderConflict)
		}
		orderID = order.ID
	}

	now := s.clock()
	changed := false
	updated, err := s.orders.Mutate(ctx, orderID, func(order *domain.Order) (bool, error) {
		changed = false
		if order.PaymentStatus == cmd.Status {
			return false, nil
		}
		if order.PaymentStatus == domain.PaymentStatusRefunded {
			return false, fmt.Errorf("%w: payment already refunded", ErrOrderConflict)
		}
		if ref := strings.TrimSpace(cmd.PaymentReference); ref != "" && order.PaymentReference == "" {
			order.PaymentReference = ref
		}
		order.PaymentStatus = cmd.Status
		if cmd.Status == domain.PaymentStatusPaid {
			paidAt := now
			if cmd.PaidAt != nil {
				paidAt = cmd.PaidAt.UTC()
			}
			order.PaidAt = &paidAt
		}
		order.UpdatedAt = now
		order.History = append(order.History, domain.HistoryEntry{
			Status: string(order.Status),
			Date:   now,
			Note:   "payment " + string(cmd.Status),
		})
		changed = true
		return false, nil
	})
	if err != nil {
		return Order{}, mapRepositoryError(err, ErrOrderNotFound, ErrOrderConflict)
	}
	if !changed {
		return updated, nil
	}

	s.events.emit(ctx, events.TypeOrderPaymentUpdated, updated.ID, updated.UserID, now, newOrderEventPayload(updated, "", ""))
	s.notify(ctx, updated, domain.NotificationTypePayment, templateOrderPayment, updated.OrderNumber, statusLabel(updated.PaymentStatus))
	return updated, nil
}

// RefundOrder marks a cancelled paid order as refunded. Card payments are refunded through
// the PSP first.
func (s *orderService) RefundOrder(ctx context.Context, cmd RefundOrderCommand) (Order, error) {
	current, err := s.GetOrder(ctx, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if err := refundable(current); err != nil {
		return Order{}, err
	}

	if current.PaymentMethod == domain.PaymentMethodCard && current.PaymentReference != "" && s.payments != nil {
		if _, err := s.payments.Refund(ctx, payments.RefundRequest{
			IntentID:       current.PaymentReference,
			Reason:         cmd.Reason,
			IdempotencyKey: "refund:" + current.ID,
		}); err != nil {
			return Order{}, fmt.Errorf("order: refund payment: %w", err)
		}
	}

	now := s.clock()
	updated, err := s.orders.Mutate(ctx, current.ID, func(order *domain.Order) (bool, error) {
		if err := refundable(*order); err != nil {
			return false, err
		}
		order.PaymentStatus = domain.PaymentStatusRefunded
		order.UpdatedAt = now
		note := "payment refunded"
		if reason := strings.TrimSpace(cmd.Reason); reason != "" {
			note += ": " + reason
		}
		order.History = append(order.History, domain.HistoryEntry{
			Status: string(order.Status),
			Date:   now,
			Note:   note,
			Actor:  cmd.ActorID,
		})
		return false, nil
	})
	if err != nil {
		return Order{}, mapRepositoryError(err, ErrOrderNotFound, ErrOrderConflict)
	}

	s.events.emit(ctx, events.TypeOrderPaymentUpdated, updated.ID, updated.UserID, now, newOrderEventPayload(updated, "", cmd.ActorID))
	s.notify(ctx, updated, domain.NotificationTypePayment, templateOrderPayment, updated.OrderNumber, statusLabel(updated.PaymentStatus))
	return updated, nil
}

func refundable(order Order) error {
	if order.Status != domain.OrderStatusCancelled || order.PaymentStatus != domain.PaymentStatusPaid {
		return fmt.Errorf("%w: order is %s with payment %s", ErrOrderRefundNotAllowed, order.Status, order.PaymentStatus)
	}
	return nil
}

func (s *orderService) verifyCardPayment(ctx context.Context, order *Order) error {
	if order.PaymentReference == "" {
		return &ValidationError{Kind: ErrOrderValidation, Fields: []string{"paymentReference is required for card payments"}}
	}
	if s.payments == nil {
		return fmt.Errorf("%w: %v", ErrOrderPaymentFailed, payments.ErrGatewayNotConfigured)
	}
	details, err := s.payments.LookupPayment(ctx, order.PaymentReference)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOrderPaymentFailed, err)
	}
	switch details.Status {
	case payments.StatusSucceeded:
		order.PaymentStatus = domain.PaymentStatusPaid
		paidAt := order.CreatedAt
		if details.CapturedAt != nil {
			paidAt = details.CapturedAt.UTC()
		}
		order.PaidAt = &paidAt
	case payments.StatusFailed, payments.StatusRefunded:
		return fmt.Errorf("%w: payment %s is %s", ErrOrderPaymentFailed, details.IntentID, details.Status)
	}
	return nil
}

func (s *orderService) mapPlaceError(err error) error {
	if stockErr, ok := repositories.AsStockError(err); ok {
		switch stockErr.Code {
		case repositories.StockErrorOutOfStock:
			return fmt.Errorf("%w: %w", ErrOrderOutOfStock, stockErr)
		default:
			return &ValidationError{Kind: ErrOrderValidation, Fields: []string{fmt.Sprintf("product %s is not available", stockErr.ProductID)}}
		}
	}
	return mapRepositoryError(err, ErrOrderNotFound, ErrOrderConflict)
}

func (s *orderService) afterStatusChange(ctx context.Context, order Order, previous OrderStatus, actor string, now time.Time) {
	s.logger(ctx, "order.status.changed", map[string]any{
		"orderId": order.ID,
		"from":    string(previous),
		"to":      string(order.Status),
		"actor":   actor,
	})
	s.events.emit(ctx, events.TypeOrderStatusChanged, order.ID, order.UserID, now, newOrderEventPayload(order, previous, actor))
	s.notify(ctx, order, domain.NotificationTypeOrderStatus, templateOrderStatus, order.OrderNumber, statusLabel(order.Status))
}

func (s *orderService) notify(ctx context.Context, order Order, kind NotificationType, template string, args ...any) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, NotifyCommand{
		UserID:   order.UserID,
		Type:     kind,
		Template: template,
		Args:     args,
		Locale:   order.Locale,
		OrderID:  order.ID,
		Data: map[string]any{
			"orderNumber":   order.OrderNumber,
			"status":        string(order.Status),
			"paymentStatus": string(order.PaymentStatus),
		},
	}); err != nil {
		s.logger(ctx, "order.notify.failed", map[string]any{"orderId": order.ID, "error": err})
	}
}

func applyOrderStatus(order *domain.Order, next OrderStatus, now time.Time, actor, note string, images []string) {
	order.Status = next
	order.UpdatedAt = now
	if next == domain.OrderStatusCancelled {
		order.CancelledAt = &now
	}
	order.History = append(order.History, domain.HistoryEntry{
		Status: string(next),
		Date:   now,
		Note:   strings.TrimSpace(note),
		Images: slices.Clone(images),
		Actor:  actor,
	})
}

func validateOrderInput(userID string, lines []OrderLineInput, cmd CreateOrderCommand) ([]repositories.OrderLine, error) {
	v := newValidation(ErrOrderValidation)
	if userID == "" {
		v.addf("userId is required")
	}
	if len(lines) == 0 {
		v.addf("items must contain at least one product")
	}
	merged := make([]repositories.OrderLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for i, line := range lines {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" {
			v.addf("items[%d].productId is required", i)
			continue
		}
		if line.Quantity <= 0 || line.Quantity > maxLineQuantity {
			v.addf("items[%d].quantity must be between 1 and %d", i, maxLineQuantity)
			continue
		}
		if pos, ok := index[productID]; ok {
			merged[pos].Quantity += line.Quantity
			continue
		}
		index[productID] = len(merged)
		merged = append(merged, repositories.OrderLine{ProductID: productID, Quantity: line.Quantity})
	}

	addr := cmd.ShippingAddress
	if strings.TrimSpace(addr.Recipient) == "" {
		v.addf("shippingAddress.recipient is required")
	}
	if strings.TrimSpace(addr.Phone) == "" {
		v.addf("shippingAddress.phone is required")
	}
	if strings.TrimSpace(addr.Line1) == "" {
		v.addf("shippingAddress.line1 is required")
	}
	if strings.TrimSpace(addr.City) == "" {
		v.addf("shippingAddress.city is required")
	}
	if !cmd.PaymentMethod.IsValid() {
		v.addf("paymentMethod must be one of cod, card")
	}
	if cmd.ShippingFee != nil && *cmd.ShippingFee < 0 {
		v.addf("shippingFee must not be negative")
	}
	if cmd.Discount < 0 {
		v.addf("discount must not be negative")
	}
	if len([]rune(cmd.Note)) > maxOrderNote {
		v.addf("note must be at most %d characters", maxOrderNote)
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return merged, nil
}

func trimAddress(addr Address) Address {
	return Address{
		Recipient:  strings.TrimSpace(addr.Recipient),
		Phone:      strings.TrimSpace(addr.Phone),
		Line1:      strings.TrimSpace(addr.Line1),
		Line2:      strings.TrimSpace(addr.Line2),
		Ward:       strings.TrimSpace(addr.Ward),
		District:   strings.TrimSpace(addr.District),
		City:       strings.TrimSpace(addr.City),
		Country:    strings.ToUpper(strings.TrimSpace(addr.Country)),
		PostalCode: strings.TrimSpace(addr.PostalCode),
	}
}

// orderNumber derives a short human readable number from the order id.
func orderNumber(orderID string, now time.Time) string {
	suffix := strings.ToUpper(orderID)
	if len(suffix) > 6 {
		suffix = suffix[len(suffix)-6:]
	}
	return fmt.Sprintf("CV-%s-%s", now.Format("060102"), suffix)
}

func localeString(ctx context.Context) string {
	tag := requestctx.Locale(ctx)
	if tag.IsRoot() {
		return ""
	}
	return tag.String()
}

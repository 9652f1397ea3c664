package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/catalog"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/inventory"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/metrics"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/notify"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/payment"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/user"
)

// SignatureVerifier proves a payment claim came from the gateway.
type SignatureVerifier interface {
	Verify(intentID, paymentID, signature string) bool
}

// Notifier accepts an event for best-effort, asynchronous delivery.
type Notifier interface {
	Dispatch(ev notify.Event)
}

// Service sequences fulfillment: reserve stock, verify payment, persist the
// order, notify the buyer. Persistence is the single source of truth; the
// service keeps no order state between requests.
type Service struct {
	repo     Repository
	users    user.Repository
	products catalog.Repository
	stock    inventory.Ledger
	intents  payment.IntentCreator
	verifier SignatureVerifier
	notifier Notifier

	log     *zap.Logger
	metrics *metrics.Metrics
	baseURL string
	now     func() time.Time
}

func NewService(
	repo Repository,
	users user.Repository,
	products catalog.Repository,
	stock inventory.Ledger,
	intents payment.IntentCreator,
	verifier SignatureVerifier,
	notifier Notifier,
	log *zap.Logger,
	m *metrics.Metrics,
	baseURL string,
) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		products: products,
		stock:    stock,
		intents:  intents,
		verifier: verifier,
		notifier: notifier,
		log:      log,
		metrics:  m,
		baseURL:  baseURL,
		now:      time.Now,
	}
}

// WithClock overrides the service clock, primarily for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Line is one requested order line before snapshotting.
type Line struct {
	ProductID  string
	VariantKey string
	Quantity   int
}

// Placed is the result of PlaceOrder. Intent is set for online payments
// only; the client completes payment against it and calls ConfirmPayment.
type Placed struct {
	Order  *Order
	Intent *payment.Intent
}

func (s *Service) PlaceOrder(ctx context.Context, buyer *user.User, lines []Line, paymentMethod string, addr Address) (*Placed, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrValidation)
	}
	for i, l := range lines {
		if l.ProductID == "" {
			return nil, fmt.Errorf("%w: item %d has no product", ErrValidation, i)
		}
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d has non-positive quantity", ErrValidation, i)
		}
	}

	// Snapshot name and price before touching stock so a failed lookup
	// costs nothing.
	items := make([]Item, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		p, err := s.products.Get(ctx, l.ProductID, l.VariantKey)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown product %s", ErrValidation, l.ProductID)
			}
			return nil, err
		}
		items = append(items, Item{
			ProductID:  l.ProductID,
			VariantKey: l.VariantKey,
			Name:       p.Name,
			Quantity:   l.Quantity,
			UnitPrice:  p.Price,
		})
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	// Reserve every line; any failure rolls back what was already taken.
	// No partial orders.
	reserved := make([]Line, 0, len(lines))
	for _, l := range lines {
		ok, err := s.stock.Reserve(ctx, l.ProductID, l.VariantKey, l.Quantity)
		if err != nil && !errors.Is(err, inventory.ErrNotFound) {
			s.releaseAll(ctx, reserved)
			return nil, err
		}
		if err != nil || !ok {
			s.releaseAll(ctx, reserved)
			return nil, fmt.Errorf("%w: product %s", ErrInsufficientStock, l.ProductID)
		}
		reserved = append(reserved, l)
	}

	o, err := New(buyer.ID, items, total, paymentMethod, addr, s.now())
	if err != nil {
		s.releaseAll(ctx, reserved)
		return nil, err
	}
	o.ID = uuid.NewString()

	var intent *payment.Intent
	if paymentMethod == PaymentMethodOnline {
		intent, err = s.intents.CreateIntent(ctx, total)
		if err != nil {
			s.releaseAll(ctx, reserved)
			return nil, err
		}
		o.PaymentIntentID = intent.ID
	}

	if err := s.repo.Create(ctx, o); err != nil {
		s.releaseAll(ctx, reserved)
		return nil, err
	}

	s.metrics.OrdersPlaced.WithLabelValues(paymentMethod).Inc()
	s.log.Info("order placed",
		zap.String("order", o.HumanID),
		zap.String("buyer", buyer.ID),
		zap.String("payment_method", paymentMethod),
		zap.String("total", total.StringFixed(2)),
	)

	// Online orders announce themselves once payment is confirmed.
	if paymentMethod == PaymentMethodCOD {
		s.notifier.Dispatch(s.event(notify.KindOrderPlaced, o, buyer))
	}
	return &Placed{Order: o, Intent: intent}, nil
}

// ConfirmPayment verifies the submitted payment proof and, only then, marks
// the order paid. A failed verification changes nothing: the buyer retries
// or contacts support, and the order stays Pending.
func (s *Service) ConfirmPayment(ctx context.Context, orderID, intentID, paymentID, signature string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.PaymentIntentID == "" {
		return nil, fmt.Errorf("%w: order has no payment intent", ErrValidation)
	}
	if intentID == "" {
		intentID = o.PaymentIntentID
	}
	if intentID != o.PaymentIntentID || !s.verifier.Verify(intentID, paymentID, signature) {
		s.log.Warn("payment verification failed",
			zap.String("order", o.HumanID),
			zap.String("payment_id", paymentID),
		)
		return nil, payment.ErrVerificationFailed
	}

	if err := s.repo.SetPaymentResult(ctx, o.ID, paymentID, PaymentPaid); err != nil {
		return nil, err
	}
	o.PaymentStatus = PaymentPaid
	o.PaymentID = paymentID

	s.log.Info("payment confirmed", zap.String("order", o.HumanID))
	s.dispatchTo(ctx, notify.KindPaymentConfirmed, o)
	return o, nil
}

// Confirm acknowledges a fresh order, records the delivery estimate and
// moves it to Processing.
func (s *Service) Confirm(ctx context.Context, orderID string, eta time.Time) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	steps, err := o.Confirm(eta, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Confirm(ctx, o.ID, eta, steps); err != nil {
		return nil, err
	}

	s.log.Info("order confirmed", zap.String("order", o.HumanID), zap.Time("eta", eta))
	s.dispatchTo(ctx, notify.KindOrderConfirmed, o)
	return o, nil
}

// Transition applies an admin status change through the legality table.
// Cancellation releases reserved stock; delivery asks for feedback.
func (s *Service) Transition(ctx context.Context, orderID string, target Status) (*Order, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, target)
	}
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	prev := o.Status
	steps, err := o.Transition(target, s.now())
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return o, nil
	}
	if err := s.repo.UpdateStatus(ctx, o.ID, prev, target, steps); err != nil {
		return nil, err
	}

	s.log.Info("order status changed",
		zap.String("order", o.HumanID),
		zap.String("from", string(prev)),
		zap.String("to", string(target)),
	)

	if target == StatusCancelled {
		s.releaseOrderStock(ctx, o)
	}
	s.dispatchTo(ctx, notify.KindStatusChanged, o)
	if target == StatusDelivered {
		s.dispatchTo(ctx, notify.KindFeedbackRequest, o)
	}
	return o, nil
}

// Cancel is the compensating path: status moves to Cancelled and every
// reserved line goes back to the shelf.
func (s *Service) Cancel(ctx context.Context, orderID string) (*Order, error) {
	return s.Transition(ctx, orderID, StatusCancelled)
}

func (s *Service) RecordFeedback(ctx context.Context, orderID, status string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := o.RecordFeedback(status, s.now()); err != nil {
		return nil, err
	}
	if err := s.repo.SetFeedback(ctx, o.ID, o.FeedbackStatus, o.ClosedAt); err != nil {
		return nil, err
	}
	s.log.Info("feedback recorded", zap.String("order", o.HumanID), zap.String("feedback", status))
	return o, nil
}

// SendMessage dispatches an ad-hoc admin note to the buyer over every
// channel.
func (s *Service) SendMessage(ctx context.Context, orderID, text string) error {
	if text == "" {
		return fmt.Errorf("%w: message is empty", ErrValidation)
	}
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	buyer, err := s.users.GetByID(ctx, o.BuyerID)
	if err != nil {
		return err
	}
	ev := s.event(notify.KindAdminMessage, o, buyer)
	ev.Message = text
	s.notifier.Dispatch(ev)
	return nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

func (s *Service) ListByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]Order, error) {
	return s.repo.ListByBuyer(ctx, buyerID, limit, offset)
}

func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]Order, error) {
	return s.repo.ListAll(ctx, limit, offset)
}

// Purge irreversibly deletes an order. Logged loudly because there is no
// way back.
func (s *Service) Purge(ctx context.Context, orderID string) error {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.repo.Purge(ctx, o.ID); err != nil {
		return err
	}
	s.log.Warn("order purged", zap.String("order", o.HumanID), zap.String("id", o.ID))
	return nil
}

// releaseAll undoes reservations after a later step failed. A failed
// release is a stock accuracy bug: it is logged and counted for monitoring,
// never silently dropped.
func (s *Service) releaseAll(ctx context.Context, reserved []Line) {
	for _, l := range reserved {
		if err := s.stock.Release(ctx, l.ProductID, l.VariantKey, l.Quantity); err != nil {
			s.metrics.StockReleaseFailures.Inc()
			s.log.Error("stock release failed after aborted placement",
				zap.String("product", l.ProductID),
				zap.String("variant", l.VariantKey),
				zap.Int("quantity", l.Quantity),
				zap.Error(err),
			)
		}
	}
}

func (s *Service) releaseOrderStock(ctx context.Context, o *Order) {
	for _, it := range o.Items {
		if err := s.stock.Release(ctx, it.ProductID, it.VariantKey, it.Quantity); err != nil {
			s.metrics.StockReleaseFailures.Inc()
			s.log.Error("stock release failed on cancellation",
				zap.String("order", o.HumanID),
				zap.String("product", it.ProductID),
				zap.Error(err),
			)
		}
	}
}

// dispatchTo resolves the buyer and hands the event to the dispatcher. A
// missing buyer record downgrades to a log line; notification is
// best-effort by contract.
func (s *Service) dispatchTo(ctx context.Context, kind notify.Kind, o *Order) {
	buyer, err := s.users.GetByID(ctx, o.BuyerID)
	if err != nil {
		s.log.Error("cannot resolve buyer for notification",
			zap.String("order", o.HumanID),
			zap.String("buyer", o.BuyerID),
			zap.Error(err),
		)
		return
	}
	s.notifier.Dispatch(s.event(kind, o, buyer))
}

// event flattens the order into a notification event. Contact resolution
// prefers the per-order delivery address over the buyer profile.
func (s *Service) event(kind notify.Kind, o *Order, buyer *user.User) notify.Event {
	phone := o.Address.Phone
	if phone == "" {
		phone = buyer.Phone
	}
	wa := o.Address.WhatsApp
	if wa == "" {
		wa = buyer.WhatsApp
	}

	lines := make([]notify.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, notify.Line{Name: it.Name, Quantity: it.Quantity})
	}

	eta := ""
	if o.EstimatedDelivery != nil {
		eta = o.EstimatedDelivery.Format("Mon, 02 Jan 2006")
	}

	return notify.Event{
		Kind:    kind,
		OrderID: o.ID,
		HumanID: o.HumanID,
		Recipient: notify.Recipient{
			Name:     buyer.Name,
			Email:    buyer.Email,
			Phone:    phone,
			WhatsApp: wa,
		},
		Lines:         lines,
		Total:         o.Total,
		PaymentStatus: o.PaymentStatus,
		OrderStatus:   string(o.Status),
		ETA:           eta,
		TrackingURL:   fmt.Sprintf("%s/orders/%s", s.baseURL, o.ID),
	}
}

package order

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentMethodCOD    = "Cash on Delivery"
	PaymentMethodOnline = "Online Payment"

	PaymentPending = "Pending"
	PaymentPaid    = "Paid"
	PaymentFailed  = "Failed"

	FeedbackPending     = "Pending"
	FeedbackReceived    = "Received"
	FeedbackNotReceived = "NotReceived"
)

// Item is a line snapshot. Name and unit price are copied from the catalog
// at creation and never re-derived, so later catalog edits cannot change a
// placed order.
type Item struct {
	ProductID  string          `json:"product_id"`
	VariantKey string          `json:"variant_key,omitempty"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// TrackingStep is one append-only timeline entry.
type TrackingStep struct {
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Completed bool      `json:"completed"`
}

// Address is an embedded snapshot; later profile edits never retroactively
// change a placed order.
type Address struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Phone    string `json:"phone"`
	WhatsApp string `json:"whatsapp,omitempty"`
}

// Order is the aggregate root. Status, tracking and feedback change only
// through the methods below; the repo persists what they produce.
type Order struct {
	ID      string `json:"id"`
	HumanID string `json:"human_id"`
	BuyerID string `json:"buyer_id"`

	Items []Item          `json:"items"`
	Total decimal.Decimal `json:"total"`

	PaymentMethod   string `json:"payment_method"`
	PaymentStatus   string `json:"payment_status"`
	PaymentIntentID string `json:"payment_intent_id,omitempty"`
	PaymentID       string `json:"payment_id,omitempty"`

	Status   Status         `json:"order_status"`
	Tracking []TrackingStep `json:"tracking_steps"`

	Address           Address    `json:"delivery_address"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`

	FeedbackStatus string     `json:"feedback_status"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New builds an order in its initial state. It rejects empty item lists,
// non-positive quantities, negative prices, and a total that does not equal
// the sum of the lines.
func New(buyerID string, items []Item, total decimal.Decimal, paymentMethod string, addr Address, now time.Time) (*Order, error) {
	if buyerID == "" {
		return nil, fmt.Errorf("%w: buyer is required", ErrValidation)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrValidation)
	}
	if paymentMethod != PaymentMethodCOD && paymentMethod != PaymentMethodOnline {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, paymentMethod)
	}

	sum := decimal.Zero
	for i, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d has non-positive quantity", ErrValidation, i)
		}
		if it.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: item %d has negative price", ErrValidation, i)
		}
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	if !sum.Equal(total) {
		return nil, fmt.Errorf("%w: total %s does not match item sum %s", ErrValidation, total, sum)
	}

	return &Order{
		HumanID:        NewHumanID(now),
		BuyerID:        buyerID,
		Items:          items,
		Total:          total,
		PaymentMethod:  paymentMethod,
		PaymentStatus:  PaymentPending,
		Status:         StatusOrdered,
		Tracking:       []TrackingStep{{Status: StatusOrdered, Timestamp: now, Completed: true}},
		Address:        addr,
		FeedbackStatus: FeedbackPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// NewHumanID generates the display code shown to customers. Generated once
// at creation, never regenerated.
func NewHumanID(now time.Time) string {
	return fmt.Sprintf("#ORD-%d-%04d", now.UnixMilli(), rand.Intn(10000))
}

// Transition moves the order to target and returns the tracking steps the
// move appended. Skipped intermediate statuses are materialized and every
// earlier pending step is marked completed. A transition to the current
// status is a no-op.
func (o *Order) Transition(target Status, now time.Time) ([]TrackingStep, error) {
	if target == o.Status {
		return nil, nil
	}
	if !CanTransition(o.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, target)
	}

	for i := range o.Tracking {
		o.Tracking[i].Completed = true
	}
	added := make([]TrackingStep, 0, 1)
	for _, s := range pathBetween(o.Status, target) {
		added = append(added, TrackingStep{Status: s, Timestamp: now, Completed: true})
	}
	o.Tracking = append(o.Tracking, added...)
	o.Status = target
	o.UpdatedAt = now
	return added, nil
}

// Confirm is the admin acknowledgement of a fresh order: Ordered moves to
// Processing and the delivery estimate is recorded.
func (o *Order) Confirm(eta time.Time, now time.Time) ([]TrackingStep, error) {
	if o.Status != StatusOrdered {
		return nil, fmt.Errorf("%w: confirm requires status %s, have %s", ErrIllegalTransition, StatusOrdered, o.Status)
	}
	steps, err := o.Transition(StatusProcessing, now)
	if err != nil {
		return nil, err
	}
	o.EstimatedDelivery = &eta
	return steps, nil
}

// RecordFeedback is only meaningful once the order was delivered. Received
// closes the order for audit purposes; Closed is a flag, not a status.
func (o *Order) RecordFeedback(status string, now time.Time) error {
	if status != FeedbackReceived && status != FeedbackNotReceived {
		return fmt.Errorf("%w: unknown feedback status %q", ErrValidation, status)
	}
	if o.Status != StatusDelivered {
		return fmt.Errorf("%w: feedback requires a delivered order, have %s", ErrIllegalTransition, o.Status)
	}
	o.FeedbackStatus = status
	if status == FeedbackReceived && o.ClosedAt == nil {
		o.ClosedAt = &now
	}
	o.UpdatedAt = now
	return nil
}

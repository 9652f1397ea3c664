package notify

import "github.com/shopspring/decimal"

type Kind string

const (
	KindOrderPlaced      Kind = "order_placed"
	KindPaymentConfirmed Kind = "payment_confirmed"
	KindOrderConfirmed   Kind = "order_confirmed"
	KindStatusChanged    Kind = "status_changed"
	KindFeedbackRequest  Kind = "feedback_request"
	KindAdminMessage     Kind = "admin_message"
)

// Recipient carries the already-resolved contact points for one event.
// The caller applies the resolution policy (order address contact over
// buyer profile contact) before dispatching.
type Recipient struct {
	Name     string
	Email    string
	Phone    string
	WhatsApp string
}

type Line struct {
	Name     string
	Quantity int
}

// Event is a logical notification, ephemeral by design: it is consumed by
// the dispatcher and discarded, never persisted.
type Event struct {
	Kind      Kind
	OrderID   string
	HumanID   string
	Recipient Recipient

	Lines         []Line
	Total         decimal.Decimal
	PaymentStatus string
	OrderStatus   string
	ETA           string
	TrackingURL   string

	// Free-form text for admin ad-hoc messages.
	Message string
}

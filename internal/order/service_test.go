package order

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/catalog"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/inventory"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/metrics"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/notify"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/payment"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/user"
)

type memRepo struct {
	mu     sync.Mutex
	orders map[string]*Order
}

func newMemRepo() *memRepo { return &memRepo{orders: map[string]*Order{}} }

func (r *memRepo) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (r *memRepo) ListByBuyer(_ context.Context, buyerID string, _, _ int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		if o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memRepo) ListAll(_ context.Context, _, _ int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id string, _, _ Status, _ []TrackingStep) error {
	if _, ok := r.orders[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (r *memRepo) Confirm(_ context.Context, id string, _ time.Time, _ []TrackingStep) error {
	if _, ok := r.orders[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (r *memRepo) SetPaymentResult(_ context.Context, id, paymentID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.PaymentStatus = status
	o.PaymentID = paymentID
	return nil
}

func (r *memRepo) SetFeedback(_ context.Context, id, status string, closedAt *time.Time) error {
	if _, ok := r.orders[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (r *memRepo) Purge(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[id]; !ok {
		return ErrNotFound
	}
	delete(r.orders, id)
	return nil
}

type memLedger struct {
	mu       sync.Mutex
	stock    map[string]int
	released []string
}

func newMemLedger(stock map[string]int) *memLedger { return &memLedger{stock: stock} }

func key(productID, variantKey string) string { return productID + "|" + variantKey }

func (l *memLedger) Reserve(_ context.Context, productID, variantKey string, qty int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := key(productID, variantKey)
	available, ok := l.stock[k]
	if !ok {
		return false, inventory.ErrNotFound
	}
	if available < qty {
		return false, nil
	}
	l.stock[k] = available - qty
	return true, nil
}

func (l *memLedger) Release(_ context.Context, productID, variantKey string, qty int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := key(productID, variantKey)
	l.stock[k] += qty
	l.released = append(l.released, k)
	return nil
}

func (l *memLedger) available(productID, variantKey string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[key(productID, variantKey)]
}

type memCatalog struct{ products map[string]catalog.Product }

func (c *memCatalog) Get(_ context.Context, productID, variantKey string) (*catalog.Product, error) {
	p, ok := c.products[key(productID, variantKey)]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

type memUsers struct{ users map[string]*user.User }

func (u *memUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	usr, ok := u.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return usr, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Dispatch(ev notify.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) kinds() []notify.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.Kind, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Kind)
	}
	return out
}

type stubIntents struct {
	intent *payment.Intent
	err    error
}

func (s *stubIntents) CreateIntent(context.Context, decimal.Decimal) (*payment.Intent, error) {
	return s.intent, s.err
}

const testSecret = "testsecret"

func signTest(intentID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

type fixture struct {
	svc      *Service
	repo     *memRepo
	ledger   *memLedger
	notifier *recordingNotifier
	buyer    *user.User
}

func newFixture(t *testing.T, stock map[string]int) *fixture {
	t.Helper()

	buyer := &user.User{
		ID:    "buyer1",
		Name:  "Asha Rao",
		Email: "asha@example.com",
		Phone: "+911234567890",
		Role:  user.RoleCustomer,
	}
	repo := newMemRepo()
	ledger := newMemLedger(stock)
	notifier := &recordingNotifier{}

	svc := NewService(
		repo,
		&memUsers{users: map[string]*user.User{buyer.ID: buyer}},
		&memCatalog{products: map[string]catalog.Product{
			"p1|": {ID: "p1", Name: "Millet Mix", Price: decimal.NewFromInt(100)},
			"p2|": {ID: "p2", Name: "Jaggery Bites", Price: decimal.NewFromInt(50)},
		}},
		ledger,
		&stubIntents{intent: &payment.Intent{ID: "intent_123", Amount: decimal.NewFromInt(200), Currency: "INR"}},
		payment.NewVerifier(testSecret),
		notifier,
		zap.NewNop(),
		metrics.NewForTest(),
		"http://localhost:8080",
	).WithClock(func() time.Time { return testNow })

	return &fixture{svc: svc, repo: repo, ledger: ledger, notifier: notifier, buyer: buyer}
}

func TestPlaceOrder_CODHappyPath(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5})
	placed, err := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{{ProductID: "p1", Quantity: 2}}, PaymentMethodCOD, Address{City: "Chennai"})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	o := placed.Order
	if !o.Total.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("total = %s, want 200", o.Total)
	}
	if o.Status != StatusOrdered {
		t.Fatalf("status = %s, want Ordered", o.Status)
	}
	if len(o.Tracking) != 1 || o.Tracking[0].Status != StatusOrdered || !o.Tracking[0].Completed {
		t.Fatalf("tracking = %+v, want one completed Ordered step", o.Tracking)
	}
	if o.Items[0].Name != "Millet Mix" {
		t.Fatalf("item name not snapshotted: %+v", o.Items[0])
	}
	if placed.Intent != nil {
		t.Fatalf("COD order carries a payment intent")
	}
	if f.ledger.available("p1", "") != 3 {
		t.Fatalf("stock = %d, want 3", f.ledger.available("p1", ""))
	}
	if kinds := f.notifier.kinds(); len(kinds) != 1 || kinds[0] != notify.KindOrderPlaced {
		t.Fatalf("notifications = %v, want [order_placed]", kinds)
	}
}

func TestPlaceOrder_EmptyItems(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{})
	if _, err := f.svc.PlaceOrder(context.Background(), f.buyer, nil, PaymentMethodCOD, Address{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestPlaceOrder_InsufficientStockRollsBackReservations(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5, "p2|": 1})
	_, err := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 3},
		}, PaymentMethodCOD, Address{})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	// The first line's reservation must have been compensated.
	if f.ledger.available("p1", "") != 5 {
		t.Fatalf("p1 stock = %d, want 5 after rollback", f.ledger.available("p1", ""))
	}
	if len(f.ledger.released) != 1 {
		t.Fatalf("releases = %v, want exactly the first line", f.ledger.released)
	}
	if len(f.notifier.kinds()) != 0 {
		t.Fatalf("rejected order sent notifications: %v", f.notifier.kinds())
	}
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5})
	_, err := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{{ProductID: "ghost", Quantity: 1}}, PaymentMethodCOD, Address{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestPlaceOrder_OnlineDefersNotificationToPayment(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5})
	placed, err := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{{ProductID: "p1", Quantity: 2}}, PaymentMethodOnline, Address{})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if placed.Intent == nil || placed.Intent.ID != "intent_123" {
		t.Fatalf("intent = %+v, want intent_123", placed.Intent)
	}
	if placed.Order.PaymentIntentID != "intent_123" {
		t.Fatalf("order did not record intent id")
	}
	if len(f.notifier.kinds()) != 0 {
		t.Fatalf("online order notified before payment: %v", f.notifier.kinds())
	}
}

func TestConfirmPayment_ValidSignature(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5})
	placed, _ := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{{ProductID: "p1", Quantity: 2}}, PaymentMethodOnline, Address{})

	o, err := f.svc.ConfirmPayment(context.Background(), placed.Order.ID, "", "pay_789", signTest("intent_123", "pay_789"))
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if o.PaymentStatus != PaymentPaid {
		t.Fatalf("payment status = %s, want Paid", o.PaymentStatus)
	}
	if kinds := f.notifier.kinds(); len(kinds) != 1 || kinds[0] != notify.KindPaymentConfirmed {
		t.Fatalf("notifications = %v, want [payment_confirmed]", kinds)
	}
}

func TestConfirmPayment_BadSignatureLeavesOrderUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5})
	placed, _ := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{{ProductID: "p1", Quantity: 2}}, PaymentMethodOnline, Address{})

	_, err := f.svc.ConfirmPayment(context.Background(), placed.Order.ID, "", "pay_789", "deadbeef")
	if !errors.Is(err, payment.ErrVerificationFailed) {
		t.Fatalf("err = %v, want ErrVerificationFailed", err)
	}

	stored, _ := f.repo.GetByID(context.Background(), placed.Order.ID)
	if stored.PaymentStatus != PaymentPending {
		t.Fatalf("payment status = %s, want Pending after failed verification", stored.PaymentStatus)
	}
	if stored.Status != StatusOrdered {
		t.Fatalf("order status changed on failed verification: %s", stored.Status)
	}
}

func TestTransition_TimelineShowsEveryStatusDone(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5})
	placed, _ := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{{ProductID: "p1", Quantity: 2}}, PaymentMethodCOD, Address{})

	if _, err := f.svc.Transition(context.Background(), placed.Order.ID, StatusProcessing); err != nil {
		t.Fatalf("to Processing: %v", err)
	}
	o, err := f.svc.Transition(context.Background(), placed.Order.ID, StatusShipped)
	if err != nil {
		t.Fatalf("to Shipped: %v", err)
	}

	want := []Status{StatusOrdered, StatusProcessing, StatusShipped}
	if len(o.Tracking) != len(want) {
		t.Fatalf("tracking = %+v, want %v", o.Tracking, want)
	}
	for i, st := range o.Tracking {
		if st.Status != want[i] || !st.Completed {
			t.Fatalf("step %d = %+v, want completed %s", i, st, want[i])
		}
	}
}

func TestTransition_DeliveredOrderRejectsFurtherMoves(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5})
	placed, _ := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{{ProductID: "p1", Quantity: 2}}, PaymentMethodCOD, Address{})

	if _, err := f.svc.Transition(context.Background(), placed.Order.ID, StatusDelivered); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, err := f.svc.Transition(context.Background(), placed.Order.ID, StatusProcessing); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("err = %v, want ErrIllegalTransition", err)
	}
}

func TestTransition_DeliveredRequestsFeedback(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5})
	placed, _ := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{{ProductID: "p1", Quantity: 2}}, PaymentMethodCOD, Address{})

	if _, err := f.svc.Transition(context.Background(), placed.Order.ID, StatusDelivered); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	kinds := f.notifier.kinds()
	// placed, status change, feedback request
	if len(kinds) != 3 || kinds[1] != notify.KindStatusChanged || kinds[2] != notify.KindFeedbackRequest {
		t.Fatalf("notifications = %v, want status_changed then feedback_request", kinds)
	}
}

func TestCancel_ReleasesReservedStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5})
	placed, _ := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{{ProductID: "p1", Quantity: 2}}, PaymentMethodCOD, Address{})
	if f.ledger.available("p1", "") != 3 {
		t.Fatalf("stock = %d after placement, want 3", f.ledger.available("p1", ""))
	}

	o, err := f.svc.Cancel(context.Background(), placed.Order.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if o.Status != StatusCancelled {
		t.Fatalf("status = %s, want Cancelled", o.Status)
	}
	if f.ledger.available("p1", "") != 5 {
		t.Fatalf("stock = %d after cancel, want 5", f.ledger.available("p1", ""))
	}
}

func TestConfirm_RecordsETAAndNotifies(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5})
	placed, _ := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{{ProductID: "p1", Quantity: 2}}, PaymentMethodCOD, Address{})

	eta := testNow.AddDate(0, 0, 4)
	o, err := f.svc.Confirm(context.Background(), placed.Order.ID, eta)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if o.Status != StatusProcessing {
		t.Fatalf("status = %s, want Processing", o.Status)
	}

	kinds := f.notifier.kinds()
	if kinds[len(kinds)-1] != notify.KindOrderConfirmed {
		t.Fatalf("notifications = %v, want order_confirmed last", kinds)
	}
	last := f.notifier.events[len(f.notifier.events)-1]
	if last.ETA == "" {
		t.Fatalf("confirmation event has no ETA")
	}
}

func TestSendMessage_DispatchesAdminNote(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5})
	placed, _ := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{{ProductID: "p1", Quantity: 2}}, PaymentMethodCOD, Address{})

	if err := f.svc.SendMessage(context.Background(), placed.Order.ID, "arriving early"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	last := f.notifier.events[len(f.notifier.events)-1]
	if last.Kind != notify.KindAdminMessage || last.Message != "arriving early" {
		t.Fatalf("last event = %+v, want admin message", last)
	}
}

func TestEvent_PrefersOrderContactOverProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5})
	if _, err := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{{ProductID: "p1", Quantity: 2}}, PaymentMethodCOD,
		Address{Phone: "+919999999999", WhatsApp: "+918888888888"}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	ev := f.notifier.events[0]
	if ev.Recipient.Phone != "+919999999999" {
		t.Fatalf("recipient phone = %s, want the order address phone", ev.Recipient.Phone)
	}
	if ev.Recipient.WhatsApp != "+918888888888" {
		t.Fatalf("recipient whatsapp = %s, want the order address whatsapp", ev.Recipient.WhatsApp)
	}
	if ev.Recipient.Email != "asha@example.com" {
		t.Fatalf("recipient email = %s, want the profile email", ev.Recipient.Email)
	}
}

func TestPurge_RemovesOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t, map[string]int{"p1|": 5})
	placed, _ := f.svc.PlaceOrder(context.Background(), f.buyer,
		[]Line{{ProductID: "p1", Quantity: 2}}, PaymentMethodCOD, Address{})

	if err := f.svc.Purge(context.Background(), placed.Order.ID); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), placed.Order.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after purge", err)
	}
}

package notify

import (
	"fmt"
	"strings"
)

// Render produces the channel-specific form of an event. Every channel gets
// the same semantic content; chat-style channels get the short body, email
// gets the long one.
func Render(ev Event, channel string) Message {
	switch channel {
	case "email":
		return Message{Subject: subject(ev), Body: longBody(ev)}
	default:
		return Message{Subject: subject(ev), Body: shortBody(ev)}
	}
}

func subject(ev Event) string {
	switch ev.Kind {
	case KindOrderPlaced:
		return fmt.Sprintf("Order %s received", ev.HumanID)
	case KindPaymentConfirmed:
		return fmt.Sprintf("Payment received for order %s", ev.HumanID)
	case KindOrderConfirmed:
		return fmt.Sprintf("Order %s confirmed", ev.HumanID)
	case KindStatusChanged:
		return fmt.Sprintf("Order %s is now %s", ev.HumanID, ev.OrderStatus)
	case KindFeedbackRequest:
		return fmt.Sprintf("How was your order %s?", ev.HumanID)
	case KindAdminMessage:
		return fmt.Sprintf("Update on your order %s", ev.HumanID)
	default:
		return fmt.Sprintf("Order %s", ev.HumanID)
	}
}

func shortBody(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, ", firstName(ev.Recipient.Name))

	switch ev.Kind {
	case KindOrderPlaced:
		fmt.Fprintf(&b, "we received your order %s for a total of %s (payment: %s).",
			ev.HumanID, ev.Total.StringFixed(2), ev.PaymentStatus)
	case KindPaymentConfirmed:
		fmt.Fprintf(&b, "your payment of %s for order %s is confirmed.",
			ev.Total.StringFixed(2), ev.HumanID)
	case KindOrderConfirmed:
		fmt.Fprintf(&b, "your order %s is confirmed and being prepared.", ev.HumanID)
		if ev.ETA != "" {
			fmt.Fprintf(&b, " Estimated delivery: %s.", ev.ETA)
		}
	case KindStatusChanged:
		fmt.Fprintf(&b, "your order %s is now %s.", ev.HumanID, ev.OrderStatus)
	case KindFeedbackRequest:
		fmt.Fprintf(&b, "your order %s was delivered. We would love to hear how it went.", ev.HumanID)
	case KindAdminMessage:
		fmt.Fprintf(&b, "a note about your order %s: %s", ev.HumanID, ev.Message)
	}

	if ev.TrackingURL != "" {
		fmt.Fprintf(&b, " Track it here: %s", ev.TrackingURL)
	}
	return b.String()
}

func longBody(ev Event) string {
	var b strings.Builder
	b.WriteString(shortBody(ev))

	if len(ev.Lines) > 0 {
		b.WriteString("\n\nYour items:\n")
		for _, l := range ev.Lines {
			fmt.Fprintf(&b, "  - %dx %s\n", l.Quantity, l.Name)
		}
		fmt.Fprintf(&b, "Total: %s", ev.Total.StringFixed(2))
	}
	return b.String()
}

func firstName(full string) string {
	if full == "" {
		return "there"
	}
	if i := strings.IndexByte(full, ' '); i > 0 {
		return full[:i]
	}
	return full
}

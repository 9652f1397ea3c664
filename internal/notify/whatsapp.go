package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type WhatsAppChannel struct {
	client *twilio.RestClient
	from   string
}

func NewWhatsAppChannel(accountSID, authToken, from string) *WhatsAppChannel {
	return &WhatsAppChannel{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: from,
	}
}

func (w *WhatsAppChannel) Name() string { return "whatsapp" }

func (w *WhatsAppChannel) Send(_ context.Context, to Recipient, msg Message) error {
	number := to.WhatsApp
	if number == "" {
		number = to.Phone
	}
	if number == "" {
		return fmt.Errorf("whatsapp: recipient has no number")
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(whatsAppAddr(number))
	params.SetFrom(whatsAppAddr(w.from))
	params.SetBody(msg.Body)

	if _, err := w.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("whatsapp: send to %s: %w", number, err)
	}
	return nil
}

func whatsAppAddr(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

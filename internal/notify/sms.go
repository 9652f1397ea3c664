package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type SMSChannel struct {
	client *twilio.RestClient
	from   string
}

func NewSMSChannel(accountSID, authToken, from string) *SMSChannel {
	return &SMSChannel{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from: from,
	}
}

func (s *SMSChannel) Name() string { return "sms" }

func (s *SMSChannel) Send(_ context.Context, to Recipient, msg Message) error {
	if to.Phone == "" {
		return fmt.Errorf("sms: recipient has no phone number")
	}
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to.Phone)
	params.SetFrom(s.from)
	params.SetBody(msg.Body)

	if _, err := s.client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("sms: send to %s: %w", to.Phone, err)
	}
	return nil
}

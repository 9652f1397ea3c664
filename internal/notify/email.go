package notify

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

type EmailChannel struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailChannel(host string, port int, username, password, from string) *EmailChannel {
	return &EmailChannel{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
	}
}

func (e *EmailChannel) Name() string { return "email" }

func (e *EmailChannel) Send(_ context.Context, to Recipient, msg Message) error {
	if to.Email == "" {
		return fmt.Errorf("email: recipient has no address")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", to.Email)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("email: send to %s: %w", to.Email, err)
	}
	return nil
}

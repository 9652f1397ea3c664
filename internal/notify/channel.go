package notify

import (
	"context"

	"go.uber.org/zap"
)

// Message is the rendered, channel-ready form of an event.
type Message struct {
	Subject string
	Body    string
}

// Channel is one independent notification transport. Implementations fail
// independently; the dispatcher isolates their errors.
type Channel interface {
	Name() string
	Send(ctx context.Context, to Recipient, msg Message) error
}

// NoopChannel stands in for a channel whose credentials are absent.
// Missing provider config degrades the channel, it never fails the service.
type NoopChannel struct {
	name string
	log  *zap.Logger
}

func NewNoopChannel(name string, log *zap.Logger) *NoopChannel {
	return &NoopChannel{name: name, log: log}
}

func (n *NoopChannel) Name() string { return n.name }

func (n *NoopChannel) Send(_ context.Context, to Recipient, msg Message) error {
	n.log.Info("notification channel disabled, dropping message",
		zap.String("channel", n.name),
		zap.String("subject", msg.Subject),
		zap.String("recipient", to.Name),
	)
	return nil
}

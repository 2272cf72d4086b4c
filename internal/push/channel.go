package push

import (
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/commercekit/support-chat/internal/model"
	"github.com/commercekit/support-chat/pkg/logger"
)

const (
	// SubjectPrefix is the prefix for all chat push subjects.
	SubjectPrefix = "chat"

	// adminSubject carries every event; the admin console subscribes here.
	adminSubject = SubjectPrefix + ".admin"
)

// userSubject returns the per-customer subject.
func userSubject(userID string) string {
	return fmt.Sprintf("%s.user.%s", SubjectPrefix, userID)
}

// Scope selects which slice of the event stream a subscription receives.
type Scope struct {
	subject string
}

// CustomerScope scopes a subscription to one customer's conversations.
func CustomerScope(userID string) Scope {
	return Scope{subject: userSubject(userID)}
}

// AdminScope scopes a subscription to all conversations.
func AdminScope() Scope {
	return Scope{subject: adminSubject}
}

// Publisher fans out row-level events to the admin subject and to the
// owning customer's subject.
type Publisher struct {
	client *Client
	logger *logger.Logger
}

// NewPublisher creates a publisher on the given connection.
func NewPublisher(client *Client, log *logger.Logger) *Publisher {
	return &Publisher{client: client, logger: log}
}

// Publish encodes the event once and publishes it to both scopes.
// ownerID is the customer owning the affected conversation.
func (p *Publisher) Publish(ev *model.Event, ownerID string) error {
	data, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode push event: %w", err)
	}

	if err := p.client.conn.Publish(adminSubject, data); err != nil {
		return fmt.Errorf("publish admin event: %w", err)
	}
	if ownerID != "" {
		if err := p.client.conn.Publish(userSubject(ownerID), data); err != nil {
			return fmt.Errorf("publish user event: %w", err)
		}
	}
	return nil
}

// Subscription is a live push channel subscription.
type Subscription struct {
	sub *nats.Subscription
}

// Unsubscribe releases the channel.
func (s *Subscription) Unsubscribe() error {
	if s == nil || s.sub == nil {
		return nil
	}
	return s.sub.Unsubscribe()
}

// Subscribe delivers decoded events for the scope to handler. Envelopes
// that fail validation are logged and dropped at this boundary, so the
// handler only ever sees well-formed tagged events.
func (c *Client) Subscribe(scope Scope, handler func(*model.Event)) (*Subscription, error) {
	sub, err := c.conn.Subscribe(scope.subject, func(m *nats.Msg) {
		ev, err := model.DecodeEvent(m.Data)
		if err != nil {
			c.logger.Warn("dropping malformed push event",
				zap.String("subject", m.Subject),
				zap.Error(err),
			)
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", scope.subject, err)
	}
	return &Subscription{sub: sub}, nil
}

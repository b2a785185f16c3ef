package notify

import (
	"context"
	"fmt"
)

// Mailer renders events and passes them to a Sender.
type Mailer struct {
	templates *Templates
	sender    Sender
}

var _ Deliverer = (*Mailer)(nil)

// NewMailer creates a Mailer.
func NewMailer(templates *Templates, sender Sender) *Mailer {
	return &Mailer{templates: templates, sender: sender}
}

// Deliver renders and sends event.
func (m *Mailer) Deliver(ctx context.Context, event Event) error {
	if event.To == "" {
		return fmt.Errorf("notification %s has no recipient", event.Kind)
	}
	subject, body, err := m.templates.Render(event)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, event.To, subject, body)
}

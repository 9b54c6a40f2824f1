// Package notification sends emails in response to domain events.
// This module subscribes to the event bus and inverts the dependency:
// the health engine never needs to know about email providers or templates.
package notification

import (
	"context"
	"fmt"

	"imobportal_backend/internal/email"
	"imobportal_backend/internal/events"
	"imobportal_backend/internal/health/enforcement"
	"imobportal_backend/internal/records"
	"imobportal_backend/platform/logger"
)

// UserReader looks up the roster entry of a user for addressing.
type UserReader interface {
	GetUser(ctx context.Context, id string) (records.User, error)
}

// Module wires event handlers to the email sender.
type Module struct {
	sender email.Sender
	users  UserReader
	log    *logger.Logger
}

// New creates the notification module.
func New(sender email.Sender, users UserReader, log *logger.Logger) *Module {
	return &Module{
		sender: sender,
		users:  users,
		log:    log,
	}
}

// RegisterHandlers subscribes the module to the events it cares about.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.AutomationToggleChanged{}.EventName(), events.HandlerFunc(m.handleToggleChanged))
}

// handleToggleChanged emails the broker when a recompute flipped one of
// their automation toggles. Delivery failures are logged and swallowed;
// notifications never fail the recompute that produced them.
func (m *Module) handleToggleChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AutomationToggleChanged)
	if !ok {
		return fmt.Errorf("unexpected event type for %s", event.EventName())
	}

	user, err := m.users.GetUser(ctx, e.UserID)
	if err != nil {
		m.log.Warn("toggle notification skipped, user lookup failed", "userId", e.UserID, "error", err)
		return nil
	}
	if user.Email == "" {
		return nil
	}

	title := toggleTitle(e.ToggleID)

	if e.To {
		err = m.sender.SendAutomationRestoredEmail(ctx, user.Email, user.Name, title)
	} else {
		reason := ""
		if len(e.Reasons) > 0 {
			reason = e.Reasons[0].Message
		}
		err = m.sender.SendAutomationBlockedEmail(ctx, user.Email, user.Name, title, reason)
	}
	if err != nil {
		m.log.Warn("toggle notification delivery failed", "userId", e.UserID, "toggle", e.ToggleID, "error", err)
	}

	return nil
}

func toggleTitle(toggleID string) string {
	switch toggleID {
	case enforcement.ToggleReceiveLeads:
		return "Receber novos leads"
	case enforcement.ToggleRoletaoClaim:
		return "Participar do roletão"
	default:
		return toggleID
	}
}

// Package email delivers transactional mail over the configured SMTP relay.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"imobportal_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// Sender sends the engine's notification emails.
type Sender interface {
	SendAutomationBlockedEmail(ctx context.Context, toEmail, userName, toggleTitle, reason string) error
	SendAutomationRestoredEmail(ctx context.Context, toEmail, userName, toggleTitle string) error
}

// NewSender builds a sender from the email configuration. When email is
// disabled a no-op sender is returned so callers never branch on config.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return &NoopSender{}, nil
	}
	if cfg.GetSMTPHost() == "" {
		return nil, fmt.Errorf("email enabled but SMTP_HOST not configured")
	}
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
	}, nil
}

// SMTPSender implements Sender using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// SendAutomationBlockedEmail notifies the broker that an automation was
// switched off by the health checks.
func (s *SMTPSender) SendAutomationBlockedEmail(ctx context.Context, toEmail, userName, toggleTitle, reason string) error {
	content, err := renderEmailTemplate("automation_blocked.html", automationEmailData{
		baseEmailData: baseEmailData{
			Title:   "Automação pausada",
			Heading: "Automação pausada",
		},
		UserName:    userName,
		ToggleTitle: toggleTitle,
		Reason:      reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectAutomationBlocked, content)
}

// SendAutomationRestoredEmail notifies the broker that an automation came
// back after the health checks cleared.
func (s *SMTPSender) SendAutomationRestoredEmail(ctx context.Context, toEmail, userName, toggleTitle string) error {
	content, err := renderEmailTemplate("automation_restored.html", automationEmailData{
		baseEmailData: baseEmailData{
			Title:   "Automação reativada",
			Heading: "Automação reativada",
		},
		UserName:    userName,
		ToggleTitle: toggleTitle,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectAutomationRestored, content)
}

// NoopSender drops every email. Used when email delivery is disabled.
type NoopSender struct{}

func (*NoopSender) SendAutomationBlockedEmail(context.Context, string, string, string, string) error {
	return nil
}

func (*NoopSender) SendAutomationRestoredEmail(context.Context, string, string, string) error {
	return nil
}

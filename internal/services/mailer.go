package services

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/andures/inventario-ti/internal/config"
	"github.com/andures/inventario-ti/internal/utils"
)

// Mailer is the external email collaborator. The orchestrator awaits the
// dispatch synchronously and rolls back on failure.
type Mailer interface {
	Send(ctx context.Context, toEmail, subject, plainText, htmlContent string) error
}

type sendgridMailer struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
}

func NewSendGridMailer(cfg *config.Config) Mailer {
	return &sendgridMailer{
		client:    sendgrid.NewSendClient(cfg.SendGridAPIKey),
		fromName:  cfg.FromName,
		fromEmail: cfg.FromEmail,
	}
}

func (m *sendgridMailer) Send(ctx context.Context, toEmail, subject, plainText, htmlContent string) error {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to send email to %s via SendGrid", toEmail)
		return fmt.Errorf("%w: sendgrid send: %v", utils.ErrExternalServiceFailure, err)
	}
	if resp.StatusCode >= 400 {
		utils.Logger.Errorf("SendGrid rejected email to %s with status %d", toEmail, resp.StatusCode)
		return fmt.Errorf("%w: sendgrid status %d", utils.ErrExternalServiceFailure, resp.StatusCode)
	}
	return nil
}

package email

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hypernova-labs/invoicing-service/internal/config"
	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

// emailSender es la parte del cliente de Resend que usa el servicio
type emailSender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendService maneja el envío de correos electrónicos usando Resend API
type ResendService struct {
	sender        emailSender
	fromEmail     string
	subjectPrefix string
	logger        *logrus.Logger
}

// NewResendService crea una nueva instancia de ResendService
func NewResendService(cfg config.EmailConfig, logger *logrus.Logger) *ResendService {
	return newResendService(resend.NewClient(cfg.ResendAPIKey).Emails, cfg, logger)
}

func newResendService(sender emailSender, cfg config.EmailConfig, logger *logrus.Logger) *ResendService {
	return &ResendService{
		sender:        sender,
		fromEmail:     cfg.From,
		subjectPrefix: cfg.SubjectPrefix,
		logger:        logger,
	}
}

// SendInvoice envía la factura al destinatario, adjuntando el PDF si existe
func (s *ResendService) SendInvoice(ctx context.Context, invoice *models.Invoice, recipient string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := BuildInvoiceMessage(invoice, s.subjectPrefix)
	if err != nil {
		return err
	}

	request := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{recipient},
		Subject: msg.Subject,
		Html:    msg.HTML,
	}

	if invoice.PDFURL != nil {
		attachment, err := pdfAttachment(*invoice.PDFURL, invoice.InvoiceNumber)
		if err != nil {
			s.logger.WithError(err).WithField("invoice_id", invoice.ID).Warn("Could not attach invoice PDF, sending without it")
		} else if attachment != nil {
			request.Attachments = []*resend.Attachment{attachment}
		}
	}

	result, err := s.sender.Send(request)
	if err != nil {
		return fmt.Errorf("error sending email via Resend: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"email_id":   result.Id,
		"invoice_id": invoice.ID,
		"to":         recipient,
		"subject":    msg.Subject,
	}).Info("Email sent successfully via Resend")

	return nil
}

// pdfAttachment referencia el PDF por URL o lo lee del disco local; nil si el archivo no existe
func pdfAttachment(location, invoiceNumber string) (*resend.Attachment, error) {
	filename := invoiceNumber + ".pdf"
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return &resend.Attachment{Filename: filename, Path: location}, nil
	}

	path := filepath.Clean(strings.TrimPrefix(location, "file://"))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error reading pdf %s: %w", path, err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading pdf %s: %w", path, err)
	}

	return &resend.Attachment{Filename: filename, Content: content, ContentType: "application/pdf"}, nil
}

// ErrNotConfigured indica que no hay API key de Resend
var ErrNotConfigured = errors.New("email service not configured")

// DisabledService se usa cuando RESEND_API_KEY no está definida; todo envío falla con ErrNotConfigured
type DisabledService struct{}

// SendInvoice retorna ErrNotConfigured
func (DisabledService) SendInvoice(context.Context, *models.Invoice, string) error {
	return ErrNotConfigured
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/database"
	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/hypernova-labs/invoicing-service/internal/workflows"
	"github.com/sirupsen/logrus"
)

// Renderer genera el PDF de una factura y retorna su URL
type Renderer interface {
	Render(ctx context.Context, invoice *models.Invoice) (string, error)
}

// Notifier envía la factura por correo al destinatario
type Notifier interface {
	SendInvoice(ctx context.Context, invoice *models.Invoice, recipient string) error
}

// DocumentService coordina la generación del PDF, su bitácora y el envío por email
type DocumentService struct {
	store    database.Store
	renderer Renderer
	notifier Notifier
	events   EventPublisher
	logger   *logrus.Logger
	now      func() time.Time
}

// NewDocumentService crea una nueva instancia del coordinador
func NewDocumentService(store database.Store, renderer Renderer, notifier Notifier, events EventPublisher, logger *logrus.Logger) *DocumentService {
	if events == nil {
		events = workflows.NoopPublisher{}
	}

	return &DocumentService{
		store:    store,
		renderer: renderer,
		notifier: notifier,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// GeneratePDF renderiza el PDF de una factura emitida, registra el intento y guarda la URL.
// Si la factura tiene email de cliente se intenta el envío sin afectar el resultado.
func (s *DocumentService) GeneratePDF(ctx context.Context, id uuid.UUID, actorID string) (string, error) {
	repos := s.store.Repositories()

	invoice, err := s.load(ctx, repos, id)
	if err != nil {
		return "", err
	}

	if invoice.Status != models.InvoiceStatusIssued {
		return "", models.BusinessRule(models.MsgPDFRequiresIssued, invoice.Status)
	}

	now := s.now().UTC()
	pdfLog := &models.PDFLog{
		ID:          uuid.New(),
		InvoiceID:   invoice.ID,
		Status:      models.PDFStatusPending,
		GeneratedBy: actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repos.PDFLogs.Create(ctx, pdfLog); err != nil {
		return "", fmt.Errorf("error creating PDF log: %w", err)
	}

	logger := s.logger.WithFields(logrus.Fields{
		"invoice_id": invoice.ID,
		"pdf_log_id": pdfLog.ID,
		"actor_id":   actorID,
	})
	logger.Info("Generating invoice PDF")

	url, renderErr := s.renderer.Render(ctx, invoice)
	if renderErr != nil {
		pdfLog.MarkFailed(renderErr.Error())
		if err := repos.PDFLogs.Update(ctx, pdfLog); err != nil {
			logger.WithError(err).Error("Could not mark PDF log as failed")
		}

		logger.WithError(renderErr).Error("PDF generation failed")
		failure := models.BusinessRule(models.MsgPDFGenerationFailed, renderErr.Error())
		failure.Err = renderErr
		return "", failure
	}

	err = s.store.WithTransaction(ctx, func(tx database.Repositories) error {
		pdfLog.MarkSuccess(url, models.DefaultPDFTemplate)
		if err := tx.PDFLogs.Update(ctx, pdfLog); err != nil {
			return fmt.Errorf("error updating PDF log: %w", err)
		}
		return tx.Invoices.UpdatePDFURL(ctx, invoice.ID, url)
	})
	if err != nil {
		logger.WithError(err).Error("Could not record generated PDF")
		return "", fmt.Errorf("error recording PDF for invoice %s: %w", invoice.ID, err)
	}

	logger.WithField("pdf_url", url).Info("Invoice PDF recorded")
	invoice.PDFURL = &url

	if err := s.events.Publish(ctx, workflows.EventInvoicePDFGenerated, workflows.InvoiceEventData(invoice, actorID)); err != nil {
		logger.WithError(err).Warn("Could not publish invoice event")
	}

	if recipient := strings.TrimSpace(invoice.ClientEmail); recipient != "" {
		if err := s.notifier.SendInvoice(ctx, invoice, recipient); err != nil {
			logger.WithError(err).WithField("recipient", recipient).Warn("Invoice email after PDF generation failed")
		}
	}

	return url, nil
}

// SendByEmail envía la factura al destinatario indicado o al email del cliente
func (s *DocumentService) SendByEmail(ctx context.Context, id uuid.UUID, recipientOverride string) (string, error) {
	invoice, err := s.load(ctx, s.store.Repositories(), id)
	if err != nil {
		return "", err
	}

	recipient := strings.TrimSpace(recipientOverride)
	if recipient == "" {
		recipient = strings.TrimSpace(invoice.ClientEmail)
	}
	if recipient == "" {
		return "", models.Validation(models.MsgRecipientEmailRequired,
			models.ErrorDetail{Field: "recipient_email", Issue: "no recipient provided and invoice has no client email"})
	}

	if err := s.notifier.SendInvoice(ctx, invoice, recipient); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"invoice_id": invoice.ID,
			"recipient":  recipient,
		}).Error("Invoice email failed")
		return "", models.TransportFailure("Failed to send invoice email", err)
	}

	s.logger.WithFields(logrus.Fields{
		"invoice_id": invoice.ID,
		"recipient":  recipient,
	}).Info("Invoice email sent")

	return recipient, nil
}

// GetPDFLogs retorna los intentos de generación de PDF de una factura
func (s *DocumentService) GetPDFLogs(ctx context.Context, id uuid.UUID) ([]models.PDFLog, error) {
	repos := s.store.Repositories()
	if _, err := s.load(ctx, repos, id); err != nil {
		return nil, err
	}

	logs, err := repos.PDFLogs.ListByInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error listing PDF logs: %w", err)
	}
	return logs, nil
}

func (s *DocumentService) load(ctx context.Context, repos database.Repositories, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := repos.Invoices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, models.NotFound(models.MsgInvoiceNotFound, id)
		}
		return nil, fmt.Errorf("error loading invoice %s: %w", id, err)
	}
	return invoice, nil
}

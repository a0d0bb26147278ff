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
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// EventPublisher publica eventos del ciclo de vida después del commit
type EventPublisher interface {
	Publish(ctx context.Context, name string, data map[string]interface{}) error
}

// InvoiceService administra el ciclo de vida de las facturas: borrador, actualización y emisión
type InvoiceService struct {
	store           database.Store
	ids             IdentifierGenerator
	fallbackIDs     IdentifierGenerator
	validator       *ShipmentLinkValidator
	audit           *AuditRecorder
	events          EventPublisher
	defaultCurrency string
	logger          *logrus.Logger
	now             func() time.Time
}

// NewInvoiceService crea una nueva instancia del servicio
func NewInvoiceService(store database.Store, ids IdentifierGenerator, events EventPublisher, defaultCurrency string, logger *logrus.Logger) *InvoiceService {
	if events == nil {
		events = workflows.NoopPublisher{}
	}
	if defaultCurrency == "" {
		defaultCurrency = models.DefaultCurrency
	}

	return &InvoiceService{
		store:           store,
		ids:             ids,
		fallbackIDs:     NewUUIDIdentifierGenerator(),
		validator:       NewShipmentLinkValidator(),
		audit:           NewAuditRecorder(logger),
		events:          events,
		defaultCurrency: defaultCurrency,
		logger:          logger,
		now:             time.Now,
	}
}

// CreateDraft crea una factura en borrador con sus items y vínculos de envío en una sola transacción
func (s *InvoiceService) CreateDraft(ctx context.Context, req *models.CreateInvoiceRequest, actorID string) (*models.Invoice, error) {
	if err := validateInvoiceInput(req.InvoiceDate, req.Currency, req.TaxAmount, req.Items); err != nil {
		return nil, err
	}

	number, err := s.ids.InvoiceNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("error generating invoice number: %w", err)
	}

	now := s.now().UTC()
	invoice := &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		ClientName:    strings.TrimSpace(req.ClientName),
		ClientEmail:   strings.TrimSpace(req.ClientEmail),
		InvoiceDate:   req.InvoiceDate.Time,
		DueDate:       req.DueDate.Ptr(),
		Currency:      s.currencyOrDefault(req.Currency),
		Status:        models.InvoiceStatusDraft,
		CreatedBy:     actorID,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       0,
	}
	applyTotals(invoice, req.Items, req.TaxAmount)

	s.logger.WithFields(logrus.Fields{
		"invoice_number": number,
		"actor_id":       actorID,
		"client_name":    invoice.ClientName,
	}).Info("Creating draft invoice")

	created, err := s.insertDraft(ctx, invoice, req, actorID)
	if errors.Is(err, database.ErrDuplicateIdentifier) {
		s.logger.WithField("invoice_number", invoice.InvoiceNumber).Warn("Invoice number already in use, retrying with random identifier")
		if invoice.InvoiceNumber, err = s.fallbackIDs.InvoiceNumber(ctx); err != nil {
			return nil, fmt.Errorf("error generating invoice number: %w", err)
		}
		created, err = s.insertDraft(ctx, invoice, req, actorID)
	}
	if err != nil {
		return nil, s.failure("create draft", invoice.ID, err)
	}

	s.logger.WithFields(logrus.Fields{
		"invoice_id":     created.ID,
		"invoice_number": created.InvoiceNumber,
		"total_amount":   created.TotalAmount.String(),
	}).Info("Draft invoice created")

	s.publish(ctx, workflows.EventInvoiceDraftCreated, created, actorID)
	return created, nil
}

// insertDraft ejecuta la transacción de creación del borrador
func (s *InvoiceService) insertDraft(ctx context.Context, invoice *models.Invoice, req *models.CreateInvoiceRequest, actorID string) (*models.Invoice, error) {
	var created *models.Invoice
	err := s.store.WithTransaction(ctx, func(repos database.Repositories) error {
		if err := repos.Invoices.Create(ctx, invoice); err != nil {
			return err
		}

		if err := s.replaceItems(ctx, repos, invoice.ID, req.Items, invoice.CreatedAt, false); err != nil {
			return err
		}

		if err := s.linkShipments(ctx, repos, invoice.ID, req.ShipmentIDs, false); err != nil {
			return err
		}

		reloaded, err := s.load(ctx, repos, invoice.ID)
		if err != nil {
			return err
		}

		if err := s.audit.LogEvent(ctx, repos.Audit, models.EntityTypeInvoice, invoice.ID,
			models.AuditActionCreate, actorID, nil, reloaded, "Created draft invoice"); err != nil {
			return err
		}

		created = reloaded
		return nil
	})
	return created, err
}

// UpdateDraft reemplaza campos, items y vínculos de un borrador aplicando bloqueo optimista
func (s *InvoiceService) UpdateDraft(ctx context.Context, id uuid.UUID, req *models.UpdateInvoiceRequest, actorID string) (*models.Invoice, error) {
	if err := validateInvoiceInput(req.InvoiceDate, req.Currency, req.TaxAmount, req.Items); err != nil {
		return nil, err
	}

	var updated *models.Invoice
	err := s.store.WithTransaction(ctx, func(repos database.Repositories) error {
		current, err := s.load(ctx, repos, id)
		if err != nil {
			return err
		}

		if !current.IsEditable() {
			return models.Conflict(models.MsgInvoiceNotEditable, current.Status)
		}

		if req.Version != nil && *req.Version != current.Version {
			return models.Conflict(models.MsgVersionConflict)
		}

		// La instantánea se toma antes de cualquier escritura
		if err := s.audit.SaveHistorySnapshot(ctx, repos.Audit, current, actorID); err != nil {
			return err
		}

		next := current.Clone()
		next.ClientName = strings.TrimSpace(req.ClientName)
		next.ClientEmail = strings.TrimSpace(req.ClientEmail)
		next.InvoiceDate = req.InvoiceDate.Time
		next.DueDate = req.DueDate.Ptr()
		next.Currency = s.currencyOrDefault(req.Currency)
		applyTotals(next, req.Items, req.TaxAmount)

		if err := repos.Invoices.UpdateWithVersion(ctx, next, current.Version); err != nil {
			if errors.Is(err, database.ErrVersionConflict) {
				return models.Conflict(models.MsgVersionConflict)
			}
			return err
		}

		if err := s.replaceItems(ctx, repos, id, req.Items, s.now().UTC(), true); err != nil {
			return err
		}

		if err := repos.Shipments.UnlinkAll(ctx, id); err != nil {
			return err
		}
		if err := s.linkShipments(ctx, repos, id, req.ShipmentIDs, true); err != nil {
			return err
		}

		reloaded, err := s.load(ctx, repos, id)
		if err != nil {
			return err
		}

		if err := s.audit.LogEvent(ctx, repos.Audit, models.EntityTypeInvoice, id,
			models.AuditActionUpdate, actorID, current, reloaded, "Updated draft invoice"); err != nil {
			return err
		}

		updated = reloaded
		return nil
	})
	if err != nil {
		return nil, s.failure("update draft", id, err)
	}

	s.logger.WithFields(logrus.Fields{
		"invoice_id": id,
		"actor_id":   actorID,
		"version":    updated.Version,
	}).Info("Draft invoice updated")

	s.publish(ctx, workflows.EventInvoiceDraftUpdated, updated, actorID)
	return updated, nil
}

// Issue asigna el folio fiscal y pasa la factura de DRAFT a ISSUED de forma irreversible
func (s *InvoiceService) Issue(ctx context.Context, id uuid.UUID, actorID string) (*models.Invoice, error) {
	folio, err := s.ids.FiscalFolio(ctx)
	if err != nil {
		return nil, fmt.Errorf("error generating fiscal folio: %w", err)
	}

	issued, err := s.issueInTx(ctx, id, folio, actorID)
	if errors.Is(err, database.ErrDuplicateIdentifier) {
		s.logger.WithFields(logrus.Fields{
			"invoice_id":   id,
			"fiscal_folio": folio,
		}).Warn("Fiscal folio already in use, retrying with random identifier")
		if folio, err = s.fallbackIDs.FiscalFolio(ctx); err != nil {
			return nil, fmt.Errorf("error generating fiscal folio: %w", err)
		}
		issued, err = s.issueInTx(ctx, id, folio, actorID)
	}
	if err != nil {
		return nil, s.failure("issue", id, err)
	}

	s.logger.WithFields(logrus.Fields{
		"invoice_id":   id,
		"fiscal_folio": *issued.FiscalFolio,
		"actor_id":     actorID,
	}).Info("Invoice issued")

	s.publish(ctx, workflows.EventInvoiceIssued, issued, actorID)
	return issued, nil
}

// issueInTx aplica la transición a ISSUED con el folio indicado en una transacción
func (s *InvoiceService) issueInTx(ctx context.Context, id uuid.UUID, folio, actorID string) (*models.Invoice, error) {
	var issued *models.Invoice
	err := s.store.WithTransaction(ctx, func(repos database.Repositories) error {
		current, err := s.load(ctx, repos, id)
		if err != nil {
			return err
		}

		if !current.CanBeIssued() {
			return models.BusinessRule(models.MsgInvoiceCannotBeIssued)
		}

		next := current.Clone()
		if next.FiscalFolio == nil {
			next.FiscalFolio = &folio
		}
		next.Status = models.InvoiceStatusIssued

		if err := repos.Invoices.UpdateWithVersion(ctx, next, current.Version); err != nil {
			if errors.Is(err, database.ErrVersionConflict) {
				return models.Conflict(models.MsgVersionConflict)
			}
			return err
		}

		reloaded, err := s.load(ctx, repos, id)
		if err != nil {
			return err
		}

		if err := s.audit.SaveHistorySnapshot(ctx, repos.Audit, reloaded, actorID); err != nil {
			return err
		}

		if err := s.audit.LogEvent(ctx, repos.Audit, models.EntityTypeInvoice, id,
			models.AuditActionIssue, actorID, current, reloaded, "Issued invoice"); err != nil {
			return err
		}

		issued = reloaded
		return nil
	})
	return issued, err
}

// GetInvoice obtiene una factura por ID
func (s *InvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.load(ctx, s.store.Repositories(), id)
	if err != nil {
		return nil, s.failure("get", id, err)
	}
	return invoice, nil
}

// ListInvoices retorna todas las facturas
func (s *InvoiceService) ListInvoices(ctx context.Context) ([]models.Invoice, error) {
	invoices, err := s.store.Repositories().Invoices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing invoices: %w", err)
	}
	return invoices, nil
}

// ListInvoicesByStatus retorna las facturas en el estado indicado
func (s *InvoiceService) ListInvoicesByStatus(ctx context.Context, status models.InvoiceStatus) ([]models.Invoice, error) {
	if !status.IsValid() {
		return nil, models.Validation(fmt.Sprintf("Invalid invoice status: %s", status))
	}

	invoices, err := s.store.Repositories().Invoices.ListByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("error listing invoices by status: %w", err)
	}
	return invoices, nil
}

// GetHistory retorna las instantáneas de historial de una factura
func (s *InvoiceService) GetHistory(ctx context.Context, id uuid.UUID) ([]models.InvoiceHistory, error) {
	repos := s.store.Repositories()
	if _, err := s.load(ctx, repos, id); err != nil {
		return nil, s.failure("get history", id, err)
	}

	history, err := repos.Audit.ListHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error listing invoice history: %w", err)
	}
	return history, nil
}

// GetAuditTrail retorna los eventos de auditoría de una factura
func (s *InvoiceService) GetAuditTrail(ctx context.Context, id uuid.UUID) ([]models.AuditLog, error) {
	repos := s.store.Repositories()
	if _, err := s.load(ctx, repos, id); err != nil {
		return nil, s.failure("get audit trail", id, err)
	}

	logs, err := repos.Audit.ListLogs(ctx, models.EntityTypeInvoice, id)
	if err != nil {
		return nil, fmt.Errorf("error listing audit logs: %w", err)
	}
	return logs, nil
}

// load obtiene la factura traduciendo la ausencia a NOT_FOUND
func (s *InvoiceService) load(ctx context.Context, repos database.Repositories, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := repos.Invoices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, models.NotFound(models.MsgInvoiceNotFound, id)
		}
		return nil, err
	}
	return invoice, nil
}

// replaceItems valida las referencias de envío de cada item y los inserta, borrando antes los existentes si replace
func (s *InvoiceService) replaceItems(ctx context.Context, repos database.Repositories, invoiceID uuid.UUID, requests []models.ItemRequest, now time.Time, replace bool) error {
	for _, req := range requests {
		if req.ShipmentID != nil {
			if err := s.validator.AssertExists(ctx, repos.Shipments, *req.ShipmentID); err != nil {
				return err
			}
		}
	}

	if replace {
		if err := repos.Invoices.DeleteItems(ctx, invoiceID); err != nil {
			return err
		}
	}

	return repos.Invoices.CreateItems(ctx, BuildInvoiceItems(invoiceID, requests, now))
}

// linkShipments vincula cada envío validando la exclusividad dentro de la transacción
func (s *InvoiceService) linkShipments(ctx context.Context, repos database.Repositories, invoiceID uuid.UUID, shipmentIDs []int64, forUpdate bool) error {
	for _, shipmentID := range uniqueShipmentIDs(shipmentIDs) {
		if err := s.validator.AssertExists(ctx, repos.Shipments, shipmentID); err != nil {
			return err
		}

		var err error
		if forUpdate {
			err = s.validator.AssertLinkableForUpdate(ctx, repos.Shipments, invoiceID, shipmentID)
		} else {
			err = s.validator.AssertLinkable(ctx, repos.Shipments, shipmentID)
		}
		if err != nil {
			return err
		}

		link := &models.InvoiceShipment{
			ID:         uuid.New(),
			InvoiceID:  invoiceID,
			ShipmentID: shipmentID,
			CreatedAt:  s.now().UTC(),
		}
		if err := repos.Shipments.Link(ctx, link); err != nil {
			if errors.Is(err, database.ErrShipmentAlreadyLinked) {
				return models.Conflict(models.MsgShipmentAlreadyLinked, shipmentID)
			}
			return err
		}
	}
	return nil
}

// failure registra el error y lo retorna tipado; los errores sin tipo se envuelven como internos
func (s *InvoiceService) failure(operation string, id uuid.UUID, err error) error {
	entry := s.logger.WithFields(logrus.Fields{
		"operation":  operation,
		"invoice_id": id,
	})

	var de *models.DomainError
	if errors.As(err, &de) {
		entry.WithField("code", de.Code).Warn(de.Message)
		return err
	}

	entry.WithError(err).Error("Invoice operation failed")
	return fmt.Errorf("error in invoice %s: %w", operation, err)
}

// publish envía el evento sin afectar el resultado de la operación ya confirmada
func (s *InvoiceService) publish(ctx context.Context, name string, invoice *models.Invoice, actorID string) {
	if err := s.events.Publish(ctx, name, workflows.InvoiceEventData(invoice, actorID)); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event":      name,
			"invoice_id": invoice.ID,
		}).Warn("Could not publish invoice event")
	}
}

func (s *InvoiceService) currencyOrDefault(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return s.defaultCurrency
	}
	return currency
}

// applyTotals fija subtotal, impuesto y total = subtotal + impuesto
func applyTotals(invoice *models.Invoice, items []models.ItemRequest, tax *decimal.Decimal) {
	invoice.Subtotal = CalculateSubtotal(items)
	invoice.TaxAmount = decimal.Zero
	if tax != nil {
		invoice.TaxAmount = *tax
	}
	invoice.TotalAmount = invoice.Subtotal.Add(invoice.TaxAmount)
}

// currencyCodeLength es el largo de un código ISO 4217
const currencyCodeLength = 3

func validateInvoiceInput(invoiceDate models.Date, currency string, tax *decimal.Decimal, items []models.ItemRequest) error {
	if invoiceDate.IsZero() {
		return models.Validation("Invalid invoice", models.ErrorDetail{Field: "invoice_date", Issue: "invoice date is required"})
	}
	if c := strings.TrimSpace(currency); c != "" && len(c) != currencyCodeLength {
		return models.Validation("Invalid invoice", models.ErrorDetail{Field: "currency", Issue: "currency must be a 3-letter ISO 4217 code"})
	}
	if tax != nil && tax.IsNegative() {
		return models.Validation("Invalid invoice", models.ErrorDetail{Field: "tax_amount", Issue: "tax amount must not be negative"})
	}
	return ValidateItemRequests(items)
}

func uniqueShipmentIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

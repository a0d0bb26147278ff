package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/database"
	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/sirupsen/logrus"
)

// AuditRecorder agrega eventos de auditoría e instantáneas de historial.
// Sus errores abortan la transacción que lo invoca.
type AuditRecorder struct {
	logger *logrus.Logger
	now    func() time.Time
}

// NewAuditRecorder crea el registrador
func NewAuditRecorder(logger *logrus.Logger) *AuditRecorder {
	return &AuditRecorder{
		logger: logger,
		now:    time.Now,
	}
}

// LogEvent agrega un evento con los estados antes y después; before es nil en CREATE
func (a *AuditRecorder) LogEvent(ctx context.Context, store database.AuditStore, entityType string, entityID uuid.UUID,
	action models.AuditAction, actorID string, before, after *models.Invoice, summary string) error {
	log := &models.AuditLog{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Summary:    summary,
		CreatedAt:  a.now().UTC(),
	}

	var err error
	if before != nil {
		if log.Before, err = models.NewInvoiceSnapshot(before).Marshal(); err != nil {
			return fmt.Errorf("error serializing audit before state: %w", err)
		}
	}
	if after != nil {
		if log.After, err = models.NewInvoiceSnapshot(after).Marshal(); err != nil {
			return fmt.Errorf("error serializing audit after state: %w", err)
		}
	}

	if err := store.CreateLog(ctx, log); err != nil {
		return fmt.Errorf("error recording audit event: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"entity_type": entityType,
		"entity_id":   entityID,
		"action":      action,
		"actor_id":    actorID,
	}).Debug("Audit event recorded")

	return nil
}

// SaveHistorySnapshot agrega una copia de la factura con su versión, folio y número actuales
func (a *AuditRecorder) SaveHistorySnapshot(ctx context.Context, store database.AuditStore, invoice *models.Invoice, actorID string) error {
	snapshot, err := models.NewInvoiceSnapshot(invoice).Marshal()
	if err != nil {
		return fmt.Errorf("error serializing invoice snapshot: %w", err)
	}

	history := &models.InvoiceHistory{
		ID:            uuid.New(),
		InvoiceID:     invoice.ID,
		Version:       invoice.Version,
		FiscalFolio:   invoice.FiscalFolio,
		InvoiceNumber: invoice.InvoiceNumber,
		Snapshot:      snapshot,
		ChangedBy:     actorID,
		CreatedAt:     a.now().UTC(),
	}

	if err := store.CreateHistory(ctx, history); err != nil {
		return fmt.Errorf("error saving invoice history: %w", err)
	}

	return nil
}

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/sirupsen/logrus"
)

// AuditRepository persiste la bitácora de auditoría y el historial de facturas
type AuditRepository struct {
	q      Querier
	logger *logrus.Logger
}

// NewAuditRepository crea una nueva instancia del repositorio
func NewAuditRepository(q Querier, logger *logrus.Logger) *AuditRepository {
	return &AuditRepository{
		q:      q,
		logger: logger,
	}
}

// CreateLog agrega un evento de auditoría
func (r *AuditRepository) CreateLog(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, entity_type, entity_id, action, actor_id, before_state, after_state, summary, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.q.ExecContext(ctx, query,
		log.ID, log.EntityType, log.EntityID, log.Action, log.ActorID,
		nullJSON(log.Before), nullJSON(log.After), log.Summary, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting audit log: %w", err)
	}

	return nil
}

// CreateHistory agrega una instantánea versionada de la factura
func (r *AuditRepository) CreateHistory(ctx context.Context, history *models.InvoiceHistory) error {
	query := `
		INSERT INTO invoice_history (
			id, invoice_id, version, fiscal_folio, invoice_number, snapshot, changed_by, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := r.q.ExecContext(ctx, query,
		history.ID, history.InvoiceID, history.Version, history.FiscalFolio, history.InvoiceNumber,
		nullJSON(history.Snapshot), history.ChangedBy, history.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting invoice history: %w", err)
	}

	return nil
}

// ListLogs retorna los eventos de una entidad en orden cronológico
func (r *AuditRepository) ListLogs(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditLog, error) {
	query := `
		SELECT id, entity_type, entity_id, action, actor_id, before_state, after_state, summary, created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at, id
	`

	rows, err := r.q.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("error querying audit logs: %w", err)
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var log models.AuditLog
		var before, after []byte
		err := rows.Scan(
			&log.ID, &log.EntityType, &log.EntityID, &log.Action, &log.ActorID,
			&before, &after, &log.Summary, &log.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning audit log: %w", err)
		}
		log.Before = before
		log.After = after
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}

	return logs, nil
}

// ListHistory retorna el historial de una factura ordenado por versión
func (r *AuditRepository) ListHistory(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceHistory, error) {
	query := `
		SELECT id, invoice_id, version, fiscal_folio, invoice_number, snapshot, changed_by, created_at
		FROM invoice_history
		WHERE invoice_id = $1
		ORDER BY version, created_at
	`

	rows, err := r.q.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("error querying invoice history: %w", err)
	}
	defer rows.Close()

	history := []models.InvoiceHistory{}
	for rows.Next() {
		var h models.InvoiceHistory
		var snapshot []byte
		err := rows.Scan(
			&h.ID, &h.InvoiceID, &h.Version, &h.FiscalFolio, &h.InvoiceNumber,
			&snapshot, &h.ChangedBy, &h.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning invoice history: %w", err)
		}
		h.Snapshot = snapshot
		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice history: %w", err)
	}

	return history, nil
}

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/sirupsen/logrus"
)

// PDFLogRepository maneja el registro de generaciones de PDF
type PDFLogRepository struct {
	q      Querier
	logger *logrus.Logger
}

// NewPDFLogRepository crea una nueva instancia del repositorio
func NewPDFLogRepository(q Querier, logger *logrus.Logger) *PDFLogRepository {
	return &PDFLogRepository{
		q:      q,
		logger: logger,
	}
}

// Create registra un nuevo intento de generación
func (r *PDFLogRepository) Create(ctx context.Context, log *models.PDFLog) error {
	query := `
		INSERT INTO pdf_logs (
			id, invoice_id, status, pdf_url, template_used, error_message, generated_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.q.ExecContext(ctx, query,
		log.ID, log.InvoiceID, log.Status, log.PDFURL, log.TemplateUsed, log.ErrorMessage,
		log.GeneratedBy, log.CreatedAt, log.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting pdf log: %w", err)
	}

	return nil
}

// Update actualiza el resultado de un intento de generación
func (r *PDFLogRepository) Update(ctx context.Context, log *models.PDFLog) error {
	query := `
		UPDATE pdf_logs
		SET status = $1, pdf_url = $2, template_used = $3, error_message = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		log.Status, log.PDFURL, log.TemplateUsed, log.ErrorMessage, log.UpdatedAt, log.ID,
	)
	if err != nil {
		return fmt.Errorf("error updating pdf log: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListByInvoice retorna los intentos de generación de una factura
func (r *PDFLogRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]models.PDFLog, error) {
	query := `
		SELECT id, invoice_id, status, pdf_url, template_used, error_message, generated_by, created_at, updated_at
		FROM pdf_logs
		WHERE invoice_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.q.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("error querying pdf logs: %w", err)
	}
	defer rows.Close()

	logs := []models.PDFLog{}
	for rows.Next() {
		var log models.PDFLog
		err := rows.Scan(
			&log.ID, &log.InvoiceID, &log.Status, &log.PDFURL, &log.TemplateUsed, &log.ErrorMessage,
			&log.GeneratedBy, &log.CreatedAt, &log.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning pdf log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pdf logs: %w", err)
	}

	return logs, nil
}

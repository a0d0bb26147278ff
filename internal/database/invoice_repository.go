package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/sirupsen/logrus"
)

const invoiceColumns = `
	id, invoice_number, fiscal_folio, client_name, client_email, invoice_date, due_date,
	currency, subtotal, tax_amount, total_amount, status, created_by, pdf_url, version,
	created_at, updated_at`

// InvoiceRepository maneja las operaciones de base de datos para Invoice
type InvoiceRepository struct {
	q      Querier
	logger *logrus.Logger
}

// NewInvoiceRepository crea una nueva instancia del repositorio
func NewInvoiceRepository(q Querier, logger *logrus.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		q:      q,
		logger: logger,
	}
}

// Create inserta la cabecera de la factura. Los items se insertan con CreateItems.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, invoice_number, fiscal_folio, client_name, client_email, invoice_date, due_date,
			currency, subtotal, tax_amount, total_amount, status, created_by, pdf_url, version,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)
	`

	_, err := r.q.ExecContext(ctx, query,
		invoice.ID, invoice.InvoiceNumber, invoice.FiscalFolio, invoice.ClientName, invoice.ClientEmail,
		invoice.InvoiceDate, invoice.DueDate, invoice.Currency,
		invoice.Subtotal, invoice.TaxAmount, invoice.TotalAmount,
		invoice.Status, invoice.CreatedBy, invoice.PDFURL, invoice.Version,
		invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "invoices_invoice_number_key") {
			return ErrDuplicateIdentifier
		}
		return fmt.Errorf("error inserting invoice: %w", err)
	}

	return nil
}

// GetByID obtiene una factura por ID con sus items y envíos vinculados
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`

	invoice, err := scanInvoice(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error querying invoice: %w", err)
	}

	items, err := r.GetItems(ctx, id)
	if err != nil {
		return nil, err
	}
	invoice.Items = items

	shipmentIDs, err := NewShipmentRepository(r.q, r.logger).LinkedShipmentIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	invoice.ShipmentIDs = shipmentIDs

	return invoice, nil
}

// List retorna todas las facturas ordenadas por fecha de creación
func (r *InvoiceRepository) List(ctx context.Context) ([]models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices ORDER BY created_at DESC, invoice_number`
	return r.queryInvoices(ctx, query)
}

// ListByStatus retorna las facturas en el estado indicado
func (r *InvoiceRepository) ListByStatus(ctx context.Context, status models.InvoiceStatus) ([]models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE status = $1 ORDER BY created_at DESC, invoice_number`
	return r.queryInvoices(ctx, query, status)
}

// UpdateWithVersion actualiza la factura con bloqueo optimista sobre la columna version
func (r *InvoiceRepository) UpdateWithVersion(ctx context.Context, invoice *models.Invoice, expectedVersion int) error {
	query := `
		UPDATE invoices
		SET fiscal_folio = $3, client_name = $4, client_email = $5, invoice_date = $6, due_date = $7,
			currency = $8, subtotal = $9, tax_amount = $10, total_amount = $11, status = $12,
			updated_at = $13, version = version + 1
		WHERE id = $1 AND version = $2
	`

	now := time.Now().UTC()
	result, err := r.q.ExecContext(ctx, query,
		invoice.ID, expectedVersion,
		invoice.FiscalFolio, invoice.ClientName, invoice.ClientEmail, invoice.InvoiceDate, invoice.DueDate,
		invoice.Currency, invoice.Subtotal, invoice.TaxAmount, invoice.TotalAmount, invoice.Status,
		now,
	)
	if err != nil {
		if isUniqueViolation(err, "invoices_fiscal_folio_key") {
			return ErrDuplicateIdentifier
		}
		return fmt.Errorf("error updating invoice: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		r.logger.WithFields(logrus.Fields{
			"invoice_id":       invoice.ID,
			"expected_version": expectedVersion,
		}).Warn("Optimistic lock rejected invoice update")
		return ErrVersionConflict
	}

	invoice.Version = expectedVersion + 1
	invoice.UpdatedAt = now
	return nil
}

// UpdatePDFURL guarda la referencia del PDF generado sin alterar la versión
func (r *InvoiceRepository) UpdatePDFURL(ctx context.Context, id uuid.UUID, url string) error {
	query := `UPDATE invoices SET pdf_url = $1, updated_at = $2 WHERE id = $3`

	result, err := r.q.ExecContext(ctx, query, url, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("error updating invoice pdf url: %w", err)
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

// CreateItems inserta los items de una factura
func (r *InvoiceRepository) CreateItems(ctx context.Context, items []models.InvoiceItem) error {
	query := `
		INSERT INTO invoice_items (
			id, invoice_id, line_no, description, quantity, unit_price, line_total, shipment_id, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	for _, item := range items {
		_, err := r.q.ExecContext(ctx, query,
			item.ID, item.InvoiceID, item.LineNo, item.Description,
			item.Quantity, item.UnitPrice, item.LineTotal, item.ShipmentID, item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("error inserting invoice item: %w", err)
		}
	}

	return nil
}

// DeleteItems elimina todos los items de una factura
func (r *InvoiceRepository) DeleteItems(ctx context.Context, invoiceID uuid.UUID) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("error deleting invoice items: %w", err)
	}
	return nil
}

// GetItems obtiene los items de una factura
func (r *InvoiceRepository) GetItems(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error) {
	query := `
		SELECT id, invoice_id, line_no, description, quantity, unit_price, line_total, shipment_id, created_at
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY line_no
	`

	rows, err := r.q.QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("error querying invoice items: %w", err)
	}
	defer rows.Close()

	items := []models.InvoiceItem{}
	for rows.Next() {
		var item models.InvoiceItem
		err := rows.Scan(
			&item.ID, &item.InvoiceID, &item.LineNo, &item.Description,
			&item.Quantity, &item.UnitPrice, &item.LineTotal, &item.ShipmentID, &item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning invoice item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice items: %w", err)
	}

	return items, nil
}

func (r *InvoiceRepository) queryInvoices(ctx context.Context, query string, args ...interface{}) ([]models.Invoice, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying invoices: %w", err)
	}
	defer rows.Close()

	invoices := []models.Invoice{}
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning invoice: %w", err)
		}
		invoices = append(invoices, *invoice)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}

	return invoices, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	var invoice models.Invoice
	err := row.Scan(
		&invoice.ID, &invoice.InvoiceNumber, &invoice.FiscalFolio, &invoice.ClientName, &invoice.ClientEmail,
		&invoice.InvoiceDate, &invoice.DueDate, &invoice.Currency,
		&invoice.Subtotal, &invoice.TaxAmount, &invoice.TotalAmount,
		&invoice.Status, &invoice.CreatedBy, &invoice.PDFURL, &invoice.Version,
		&invoice.CreatedAt, &invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

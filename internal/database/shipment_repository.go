package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/sirupsen/logrus"
)

// ShipmentRepository maneja los vínculos entre facturas y envíos
type ShipmentRepository struct {
	q      Querier
	logger *logrus.Logger
}

// NewShipmentRepository crea una nueva instancia del repositorio
func NewShipmentRepository(q Querier, logger *logrus.Logger) *ShipmentRepository {
	return &ShipmentRepository{
		q:      q,
		logger: logger,
	}
}

// Exists verifica si el envío existe
func (r *ShipmentRepository) Exists(ctx context.Context, shipmentID int64) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM shipments WHERE id = $1)`, shipmentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking shipment existence: %w", err)
	}
	return exists, nil
}

// IsLinked verifica si el envío está vinculado a cualquier factura
func (r *ShipmentRepository) IsLinked(ctx context.Context, shipmentID int64) (bool, error) {
	var linked bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM invoice_shipments WHERE shipment_id = $1)`, shipmentID).Scan(&linked)
	if err != nil {
		return false, fmt.Errorf("error checking shipment link: %w", err)
	}
	return linked, nil
}

// FindLink obtiene el vínculo entre una factura y un envío, nil si no existe
func (r *ShipmentRepository) FindLink(ctx context.Context, invoiceID uuid.UUID, shipmentID int64) (*models.InvoiceShipment, error) {
	query := `
		SELECT id, invoice_id, shipment_id, created_at
		FROM invoice_shipments
		WHERE invoice_id = $1 AND shipment_id = $2
	`

	var link models.InvoiceShipment
	err := r.q.QueryRowContext(ctx, query, invoiceID, shipmentID).Scan(
		&link.ID, &link.InvoiceID, &link.ShipmentID, &link.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error querying shipment link: %w", err)
	}

	return &link, nil
}

// Link crea el vínculo. La restricción única sobre shipment_id es la garantía final de exclusividad.
func (r *ShipmentRepository) Link(ctx context.Context, link *models.InvoiceShipment) error {
	query := `
		INSERT INTO invoice_shipments (id, invoice_id, shipment_id, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.q.ExecContext(ctx, query, link.ID, link.InvoiceID, link.ShipmentID, link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "invoice_shipments_shipment_id_key") {
			return ErrShipmentAlreadyLinked
		}
		return fmt.Errorf("error inserting shipment link: %w", err)
	}

	return nil
}

// UnlinkAll elimina todos los vínculos de una factura
func (r *ShipmentRepository) UnlinkAll(ctx context.Context, invoiceID uuid.UUID) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM invoice_shipments WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("error deleting shipment links: %w", err)
	}
	return nil
}

// LinkedShipmentIDs retorna los envíos vinculados a una factura
func (r *ShipmentRepository) LinkedShipmentIDs(ctx context.Context, invoiceID uuid.UUID) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT shipment_id FROM invoice_shipments WHERE invoice_id = $1 ORDER BY shipment_id`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("error querying linked shipments: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning linked shipment: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating linked shipments: %w", err)
	}

	return ids, nil
}

package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/database"
	"github.com/hypernova-labs/invoicing-service/internal/models"
)

// ShipmentLinkValidator aplica la exclusividad de vínculos envío-factura.
// Debe usarse con los repositorios de la misma transacción que escribe el vínculo;
// la restricción única del almacén resuelve las carreras que pasen esta verificación.
type ShipmentLinkValidator struct{}

// NewShipmentLinkValidator crea el validador
func NewShipmentLinkValidator() *ShipmentLinkValidator {
	return &ShipmentLinkValidator{}
}

// AssertExists falla con NOT_FOUND si el envío no existe
func (v *ShipmentLinkValidator) AssertExists(ctx context.Context, shipments database.ShipmentStore, shipmentID int64) error {
	exists, err := shipments.Exists(ctx, shipmentID)
	if err != nil {
		return fmt.Errorf("error checking shipment %d: %w", shipmentID, err)
	}
	if !exists {
		return models.NotFound(models.MsgShipmentNotFound, shipmentID)
	}
	return nil
}

// AssertLinkable falla si el envío está vinculado a cualquier factura
func (v *ShipmentLinkValidator) AssertLinkable(ctx context.Context, shipments database.ShipmentStore, shipmentID int64) error {
	linked, err := shipments.IsLinked(ctx, shipmentID)
	if err != nil {
		return fmt.Errorf("error checking shipment %d link: %w", shipmentID, err)
	}
	if linked {
		return models.Conflict(models.MsgShipmentAlreadyLinked, shipmentID)
	}
	return nil
}

// AssertLinkableForUpdate falla solo si el envío está vinculado a una factura distinta de invoiceID
func (v *ShipmentLinkValidator) AssertLinkableForUpdate(ctx context.Context, shipments database.ShipmentStore, invoiceID uuid.UUID, shipmentID int64) error {
	linked, err := shipments.IsLinked(ctx, shipmentID)
	if err != nil {
		return fmt.Errorf("error checking shipment %d link: %w", shipmentID, err)
	}
	if !linked {
		return nil
	}

	own, err := shipments.FindLink(ctx, invoiceID, shipmentID)
	if err != nil {
		return fmt.Errorf("error checking shipment %d link: %w", shipmentID, err)
	}
	if own == nil {
		return models.Conflict(models.MsgShipmentAlreadyLinked, shipmentID)
	}
	return nil
}

package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/database/memory"
	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShipmentLinkValidator(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.AddShipment(models.Shipment{ID: 42})
	store.AddShipment(models.Shipment{ID: 43})
	repos := store.Repositories()
	validator := NewShipmentLinkValidator()

	owner := &models.Invoice{ID: uuid.New(), InvoiceNumber: "INV-A", Status: models.InvoiceStatusDraft}
	other := &models.Invoice{ID: uuid.New(), InvoiceNumber: "INV-B", Status: models.InvoiceStatusDraft}
	require.NoError(t, repos.Invoices.Create(ctx, owner))
	require.NoError(t, repos.Invoices.Create(ctx, other))
	require.NoError(t, repos.Shipments.Link(ctx, &models.InvoiceShipment{ID: uuid.New(), InvoiceID: owner.ID, ShipmentID: 42}))

	t.Run("exists", func(t *testing.T) {
		assert.NoError(t, validator.AssertExists(ctx, repos.Shipments, 42))
		err := validator.AssertExists(ctx, repos.Shipments, 99)
		assert.True(t, models.IsNotFound(err))
	})

	t.Run("linkable", func(t *testing.T) {
		assert.NoError(t, validator.AssertLinkable(ctx, repos.Shipments, 43))
		err := validator.AssertLinkable(ctx, repos.Shipments, 42)
		assert.True(t, models.IsConflict(err))
		assert.Equal(t, "Shipment 42 is already linked to another invoice", err.Error())
	})

	t.Run("linkable for update", func(t *testing.T) {
		assert.NoError(t, validator.AssertLinkableForUpdate(ctx, repos.Shipments, owner.ID, 42))
		assert.NoError(t, validator.AssertLinkableForUpdate(ctx, repos.Shipments, other.ID, 43))
		err := validator.AssertLinkableForUpdate(ctx, repos.Shipments, other.ID, 42)
		assert.True(t, models.IsConflict(err))
		assert.Equal(t, "Shipment 42 is already linked to another invoice", err.Error())
	})
}

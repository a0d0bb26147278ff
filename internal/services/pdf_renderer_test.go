package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuedInvoice() *models.Invoice {
	folio := "FISCAL-1A2B3C4D-5E6F-70-1740823200000"
	due := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	shipment := int64(42)
	return &models.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: "INV-1A2B3C4D-1740823200000",
		FiscalFolio:   &folio,
		ClientName:    "Compañía Ñandú",
		ClientEmail:   "billing@acme.test",
		InvoiceDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       &due,
		Currency:      "USD",
		Subtotal:      decimal.RequireFromString("25.00"),
		TaxAmount:     decimal.RequireFromString("1.50"),
		TotalAmount:   decimal.RequireFromString("26.50"),
		Status:        models.InvoiceStatusIssued,
		Version:       1,
		Items: []models.InvoiceItem{
			{LineNo: 1, Description: "Flete marítimo", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00"), LineTotal: decimal.RequireFromString("20.00"), ShipmentID: &shipment},
			{LineNo: 2, Description: "Manejo", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00"), LineTotal: decimal.RequireFromString("5.00")},
		},
	}
}

func TestPDFRenderer_RenderBytes(t *testing.T) {
	renderer := NewPDFRenderer(NewLocalStorage(t.TempDir(), "", testLogger()), testLogger())

	data, err := renderer.RenderBytes(issuedInvoice())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestPDFRenderer_RenderStoresLocally(t *testing.T) {
	dir := t.TempDir()
	renderer := NewPDFRenderer(NewLocalStorage(dir, "", testLogger()), testLogger())
	inv := issuedInvoice()

	url, err := renderer.Render(context.Background(), inv)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "file://"))

	path := filepath.Join(dir, "invoices", inv.ID.String(), inv.InvoiceNumber+".pdf")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestLocalStorage_PublicBaseURL(t *testing.T) {
	storage := NewLocalStorage(t.TempDir(), "https://files.test/", testLogger())

	url, err := storage.Save(context.Background(), "invoices/x/INV-1.pdf", []byte("%PDF-1.3"), pdfContentType)
	require.NoError(t, err)
	assert.Equal(t, "https://files.test/invoices/x/INV-1.pdf", url)
}

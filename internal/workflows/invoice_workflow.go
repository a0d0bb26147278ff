package workflows

import (
	"github.com/hypernova-labs/invoicing-service/internal/models"
)

// Eventos del ciclo de vida publicados después de cada commit
const (
	EventInvoiceDraftCreated = "invoice/draft.created"
	EventInvoiceDraftUpdated = "invoice/draft.updated"
	EventInvoiceIssued       = "invoice/issued"
	EventInvoicePDFGenerated = "invoice/pdf.generated"
)

// InvoiceEventData construye el payload común de los eventos de factura
func InvoiceEventData(invoice *models.Invoice, actorID string) map[string]interface{} {
	data := map[string]interface{}{
		"invoice_id":     invoice.ID.String(),
		"invoice_number": invoice.InvoiceNumber,
		"status":         string(invoice.Status),
		"version":        invoice.Version,
		"total_amount":   invoice.TotalAmount.String(),
		"currency":       invoice.Currency,
		"actor_id":       actorID,
	}
	if invoice.FiscalFolio != nil {
		data["fiscal_folio"] = *invoice.FiscalFolio
	}
	if invoice.PDFURL != nil {
		data["pdf_url"] = *invoice.PDFURL
	}
	return data
}

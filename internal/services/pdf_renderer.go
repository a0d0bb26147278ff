package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"
)

const pdfContentType = "application/pdf"

// ArtifactStorage persiste documentos generados y retorna su ubicación
type ArtifactStorage interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// PDFRenderer dibuja la factura con gofpdf y la guarda en el almacenamiento de artefactos
type PDFRenderer struct {
	storage ArtifactStorage
	logger  *logrus.Logger
	now     func() time.Time
}

// NewPDFRenderer crea una nueva instancia del renderizador
func NewPDFRenderer(storage ArtifactStorage, logger *logrus.Logger) *PDFRenderer {
	return &PDFRenderer{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Render genera el PDF y retorna la URL donde quedó almacenado
func (r *PDFRenderer) Render(ctx context.Context, invoice *models.Invoice) (string, error) {
	data, err := r.RenderBytes(invoice)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("invoices/%s/%s.pdf", invoice.ID, invoice.InvoiceNumber)
	url, err := r.storage.Save(ctx, key, data, pdfContentType)
	if err != nil {
		return "", fmt.Errorf("error storing PDF: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"invoice_id": invoice.ID,
		"pdf_size":   len(data),
		"pdf_url":    url,
	}).Info("Invoice PDF generated successfully")

	return url, nil
}

// RenderBytes genera el contenido del PDF sin almacenarlo
func (r *PDFRenderer) RenderBytes(invoice *models.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Encabezado
	pdf.SetFillColor(41, 128, 185)
	pdf.Rect(0, 0, 210, 40, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 24)
	pdf.Cell(190, 15, "FACTURA")
	pdf.Ln(15)

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(190, 10, tr(fmt.Sprintf("#%s", invoice.InvoiceNumber)))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(190, 8, fmt.Sprintf("Fecha: %s", invoice.InvoiceDate.Format("02/01/2006")))
	pdf.Ln(8)

	pdf.SetTextColor(44, 62, 80)
	pdf.SetFillColor(255, 255, 255)

	// Datos fiscales (izquierda)
	pdf.SetY(50)
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(95, 8, "DOCUMENTO")
	pdf.Ln(8)

	folio := "N/A"
	if invoice.FiscalFolio != nil {
		folio = *invoice.FiscalFolio
	}
	dueDate := "N/A"
	if invoice.DueDate != nil {
		dueDate = invoice.DueDate.Format("02/01/2006")
	}

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(95, 6, tr(fmt.Sprintf("Folio fiscal: %s", folio)))
	pdf.Ln(6)
	pdf.Cell(95, 6, tr(fmt.Sprintf("Vencimiento: %s", dueDate)))
	pdf.Ln(6)
	pdf.Cell(95, 6, fmt.Sprintf("Moneda: %s", invoice.Currency))
	pdf.Ln(6)

	// Cliente (derecha)
	pdf.SetY(50)
	pdf.SetX(105)
	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(95, 8, "CLIENTE")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.SetX(105)
	pdf.Cell(95, 6, tr(invoice.ClientName))
	pdf.Ln(6)
	if invoice.ClientEmail != "" {
		pdf.SetX(105)
		pdf.Cell(95, 6, tr(invoice.ClientEmail))
		pdf.Ln(6)
	}

	// Tabla de items
	pdf.SetY(90)
	pdf.SetFillColor(236, 240, 241)
	pdf.SetFont("Arial", "B", 10)

	colWidths := []float64{20, 70, 25, 30, 35}
	colHeaders := []string{"Línea", "Descripción", "Cantidad", "Precio Unit.", "Total"}
	for i, header := range colHeaders {
		pdf.CellFormat(colWidths[i], 10, tr(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 9)
	rowHeight := 8.0
	for i, item := range invoice.Items {
		if i%2 == 0 {
			pdf.SetFillColor(248, 249, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		pdf.CellFormat(colWidths[0], rowHeight, fmt.Sprintf("%d", item.LineNo), "1", 0, "C", true, 0, "")
		pdf.CellFormat(colWidths[1], rowHeight, tr(item.Description), "1", 0, "L", true, 0, "")
		pdf.CellFormat(colWidths[2], rowHeight, fmt.Sprintf("%d", item.Quantity), "1", 0, "R", true, 0, "")
		pdf.CellFormat(colWidths[3], rowHeight, item.UnitPrice.StringFixed(2), "1", 0, "R", true, 0, "")
		pdf.CellFormat(colWidths[4], rowHeight, item.LineTotal.StringFixed(2), "1", 0, "R", true, 0, "")
		pdf.Ln(rowHeight)
	}

	// Totales
	totalY := pdf.GetY() + 10
	pdf.SetY(totalY)
	pdf.SetDrawColor(189, 195, 199)
	pdf.Line(120, totalY, 200, totalY)
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.SetX(120)
	pdf.Cell(50, 8, "Subtotal:")
	pdf.Cell(30, 8, fmt.Sprintf("%s %s", invoice.Subtotal.StringFixed(2), invoice.Currency))
	pdf.Ln(8)

	pdf.SetX(120)
	pdf.Cell(50, 8, "Impuestos:")
	pdf.Cell(30, 8, fmt.Sprintf("%s %s", invoice.TaxAmount.StringFixed(2), invoice.Currency))
	pdf.Ln(8)

	pdf.SetFillColor(41, 128, 185)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetX(120)
	pdf.CellFormat(50, 12, "TOTAL:", "", 0, "L", true, 0, "")
	pdf.CellFormat(30, 12, fmt.Sprintf("%s %s", invoice.TotalAmount.StringFixed(2), invoice.Currency), "", 0, "L", true, 0, "")
	pdf.Ln(12)

	// Pie de página
	pdf.SetY(270)
	pdf.SetTextColor(149, 165, 166)
	pdf.SetFont("Arial", "", 8)
	pdf.Cell(190, 6, tr("Esta factura fue generada electrónicamente"))
	pdf.Ln(6)
	pdf.Cell(190, 6, fmt.Sprintf("Generado el: %s", r.now().Format("02/01/2006 15:04:05")))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("error generating PDF: %w", err)
	}

	return buf.Bytes(), nil
}

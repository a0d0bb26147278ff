package models

import (
	"time"

	"github.com/google/uuid"
)

// PDFStatus representa el estado de una generación de PDF
type PDFStatus string

const (
	PDFStatusPending PDFStatus = "PENDING"
	PDFStatusSuccess PDFStatus = "SUCCESS"
	PDFStatusFailed  PDFStatus = "FAILED"
)

// DefaultPDFTemplate es la plantilla usada al renderizar facturas
const DefaultPDFTemplate = "STANDARD"

// PDFLog registra cada intento de generación del PDF de una factura
type PDFLog struct {
	ID           uuid.UUID `json:"id" db:"id"`
	InvoiceID    uuid.UUID `json:"invoice_id" db:"invoice_id"`
	Status       PDFStatus `json:"status" db:"status"`
	PDFURL       *string   `json:"pdf_url,omitempty" db:"pdf_url"`
	TemplateUsed *string   `json:"template_used,omitempty" db:"template_used"`
	ErrorMessage *string   `json:"error_message,omitempty" db:"error_message"`
	GeneratedBy  string    `json:"generated_by" db:"generated_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// MarkSuccess marca el intento como exitoso con la referencia del artefacto
func (l *PDFLog) MarkSuccess(url, template string) {
	l.Status = PDFStatusSuccess
	l.PDFURL = &url
	l.TemplateUsed = &template
	l.ErrorMessage = nil
	l.UpdatedAt = time.Now().UTC()
}

// MarkFailed marca el intento como fallido con el mensaje de error
func (l *PDFLog) MarkFailed(message string) {
	l.Status = PDFStatusFailed
	l.ErrorMessage = &message
	l.UpdatedAt = time.Now().UTC()
}

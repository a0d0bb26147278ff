package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency es la moneda usada cuando la solicitud no indica una
const DefaultCurrency = "USD"

// InvoiceStatus representa el estado de la factura
type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "DRAFT"
	InvoiceStatusIssued InvoiceStatus = "ISSUED"
)

// IsValid indica si el estado es uno de los conocidos
func (s InvoiceStatus) IsValid() bool {
	return s == InvoiceStatusDraft || s == InvoiceStatusIssued
}

// ParseInvoiceStatus convierte un texto en InvoiceStatus sin distinguir mayúsculas
func ParseInvoiceStatus(raw string) (InvoiceStatus, bool) {
	status := InvoiceStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return status, status.IsValid()
}

// Invoice representa una factura y su estado de ciclo de vida
type Invoice struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	InvoiceNumber string          `json:"invoice_number" db:"invoice_number"`
	FiscalFolio   *string         `json:"fiscal_folio" db:"fiscal_folio"`
	ClientName    string          `json:"client_name" db:"client_name"`
	ClientEmail   string          `json:"client_email,omitempty" db:"client_email"`
	InvoiceDate   time.Time       `json:"invoice_date" db:"invoice_date"`
	DueDate       *time.Time      `json:"due_date,omitempty" db:"due_date"`
	Currency      string          `json:"currency" db:"currency"`
	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status        InvoiceStatus   `json:"status" db:"status"`
	CreatedBy     string          `json:"created_by" db:"created_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
	Version       int             `json:"version" db:"version"`
	PDFURL        *string         `json:"pdf_url,omitempty" db:"pdf_url"`

	// Relaciones
	Items       []InvoiceItem `json:"items"`
	ShipmentIDs []int64       `json:"shipment_ids"`
}

// IsEditable indica si la factura puede modificarse por la vía de actualización
func (i *Invoice) IsEditable() bool {
	return i.Status == InvoiceStatusDraft
}

// CanBeIssued indica si la factura cumple las condiciones para emitirse:
// borrador, nombre de cliente no vacío y al menos un item.
func (i *Invoice) CanBeIssued() bool {
	return i.Status == InvoiceStatusDraft &&
		strings.TrimSpace(i.ClientName) != "" &&
		len(i.Items) > 0
}

// Clone retorna una copia profunda de la factura
func (i *Invoice) Clone() *Invoice {
	if i == nil {
		return nil
	}
	c := *i
	if i.FiscalFolio != nil {
		folio := *i.FiscalFolio
		c.FiscalFolio = &folio
	}
	if i.DueDate != nil {
		due := *i.DueDate
		c.DueDate = &due
	}
	if i.PDFURL != nil {
		url := *i.PDFURL
		c.PDFURL = &url
	}
	if i.Items != nil {
		c.Items = make([]InvoiceItem, len(i.Items))
		for idx, item := range i.Items {
			c.Items[idx] = item.Clone()
		}
	}
	if i.ShipmentIDs != nil {
		c.ShipmentIDs = append([]int64(nil), i.ShipmentIDs...)
	}
	return &c
}

// InvoiceItem representa una línea de la factura
type InvoiceItem struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id" db:"invoice_id"`
	LineNo      int             `json:"line_no" db:"line_no"`
	Description string          `json:"description" db:"description"`
	Quantity    int             `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total" db:"line_total"`
	ShipmentID  *int64          `json:"shipment_id,omitempty" db:"shipment_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Clone retorna una copia del item
func (it InvoiceItem) Clone() InvoiceItem {
	if it.ShipmentID != nil {
		id := *it.ShipmentID
		it.ShipmentID = &id
	}
	return it
}

// InvoiceShipment vincula una factura con un envío externo
type InvoiceShipment struct {
	ID         uuid.UUID `json:"id" db:"id"`
	InvoiceID  uuid.UUID `json:"invoice_id" db:"invoice_id"`
	ShipmentID int64     `json:"shipment_id" db:"shipment_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Shipment es la entidad externa de envío, solo lectura para este servicio
type Shipment struct {
	ID             int64  `json:"id" db:"id"`
	TrackingNumber string `json:"tracking_number" db:"tracking_number"`
}

// ItemRequest es la forma normalizada de un item en las solicitudes de creación y actualización
type ItemRequest struct {
	Description string           `json:"description" binding:"required"`
	Quantity    *int             `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	ShipmentID  *int64           `json:"shipment_id,omitempty"`
}

// CreateInvoiceRequest representa la solicitud para crear un borrador
type CreateInvoiceRequest struct {
	ClientName  string           `json:"client_name" binding:"required"`
	ClientEmail string           `json:"client_email"`
	InvoiceDate Date             `json:"invoice_date"`
	DueDate     *Date            `json:"due_date,omitempty"`
	Currency    string           `json:"currency,omitempty"`
	TaxAmount   *decimal.Decimal `json:"tax_amount,omitempty"`
	Items       []ItemRequest    `json:"items" binding:"dive"`
	ShipmentIDs []int64          `json:"shipment_ids,omitempty"`
}

// UpdateInvoiceRequest representa la solicitud para actualizar un borrador.
// Version es opcional; si se envía debe coincidir con la versión almacenada.
type UpdateInvoiceRequest struct {
	ClientName  string           `json:"client_name" binding:"required"`
	ClientEmail string           `json:"client_email"`
	InvoiceDate Date             `json:"invoice_date"`
	DueDate     *Date            `json:"due_date,omitempty"`
	Currency    string           `json:"currency,omitempty"`
	TaxAmount   *decimal.Decimal `json:"tax_amount,omitempty"`
	Items       []ItemRequest    `json:"items" binding:"dive"`
	ShipmentIDs []int64          `json:"shipment_ids,omitempty"`
	Version     *int             `json:"version,omitempty"`
}

// InvoiceListResponse representa la respuesta de listado de facturas
type InvoiceListResponse struct {
	Invoices []Invoice `json:"invoices"`
	Total    int       `json:"total"`
}

// PDFResponse representa la respuesta de generación de PDF
type PDFResponse struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	PDFURL    string    `json:"pdf_url"`
}

// EmailResponse representa la respuesta del envío de correo
type EmailResponse struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	Recipient string    `json:"recipient"`
	Sent      bool      `json:"sent"`
}

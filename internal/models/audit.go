package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntityTypeInvoice identifica a las facturas en la bitácora de auditoría
const EntityTypeInvoice = "Invoice"

// AuditAction representa el tipo de cambio auditado
type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionIssue  AuditAction = "ISSUE"
)

// AuditLog es un evento de cambio inmutable
type AuditLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   uuid.UUID       `json:"entity_id" db:"entity_id"`
	Action     AuditAction     `json:"action" db:"action"`
	ActorID    string          `json:"actor_id" db:"actor_id"`
	Before     json.RawMessage `json:"before,omitempty" db:"before_state"`
	After      json.RawMessage `json:"after,omitempty" db:"after_state"`
	Summary    string          `json:"summary" db:"summary"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// InvoiceHistory es una copia versionada de una factura
type InvoiceHistory struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	InvoiceID     uuid.UUID       `json:"invoice_id" db:"invoice_id"`
	Version       int             `json:"version" db:"version"`
	FiscalFolio   *string         `json:"fiscal_folio,omitempty" db:"fiscal_folio"`
	InvoiceNumber string          `json:"invoice_number" db:"invoice_number"`
	Snapshot      json.RawMessage `json:"snapshot" db:"snapshot"`
	ChangedBy     string          `json:"changed_by" db:"changed_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// InvoiceSnapshot es la representación serializada de una factura en auditoría e historial.
// Los montos conservan la escala almacenada.
type InvoiceSnapshot struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	FiscalFolio   *string         `json:"fiscal_folio"`
	ClientName    string          `json:"client_name"`
	ClientEmail   string          `json:"client_email,omitempty"`
	InvoiceDate   string          `json:"invoice_date"`
	DueDate       *string         `json:"due_date,omitempty"`
	Currency      string          `json:"currency"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        InvoiceStatus   `json:"status"`
	CreatedBy     string          `json:"created_by"`
	Version       int             `json:"version"`
	Items         []InvoiceItem   `json:"items,omitempty"`
	ShipmentIDs   []int64         `json:"shipment_ids,omitempty"`
}

// NewInvoiceSnapshot construye la instantánea de una factura
func NewInvoiceSnapshot(inv *Invoice) InvoiceSnapshot {
	snap := InvoiceSnapshot{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		FiscalFolio:   inv.FiscalFolio,
		ClientName:    inv.ClientName,
		ClientEmail:   inv.ClientEmail,
		InvoiceDate:   inv.InvoiceDate.Format(DateLayout),
		Currency:      inv.Currency,
		Subtotal:      inv.Subtotal,
		TaxAmount:     inv.TaxAmount,
		TotalAmount:   inv.TotalAmount,
		Status:        inv.Status,
		CreatedBy:     inv.CreatedBy,
		Version:       inv.Version,
		Items:         inv.Items,
		ShipmentIDs:   inv.ShipmentIDs,
	}
	if inv.DueDate != nil {
		due := inv.DueDate.Format(DateLayout)
		snap.DueDate = &due
	}
	return snap
}

// Marshal serializa la instantánea a JSON
func (s InvoiceSnapshot) Marshal() (json.RawMessage, error) {
	return json.Marshal(s)
}

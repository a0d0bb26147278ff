package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/lib/pq"
)

// Errores de almacenamiento. Los servicios los traducen a errores de dominio.
var (
	ErrNotFound              = errors.New("record not found")
	ErrVersionConflict       = errors.New("version conflict")
	ErrShipmentAlreadyLinked = errors.New("shipment already linked")
	// ErrDuplicateIdentifier indica que el número de factura o el folio fiscal ya existe
	ErrDuplicateIdentifier = errors.New("duplicate invoice identifier")
)

// Querier es el subconjunto común de *sql.DB y *sql.Tx usado por los repositorios
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// InvoiceStore persiste facturas y sus items
type InvoiceStore interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context) ([]models.Invoice, error)
	ListByStatus(ctx context.Context, status models.InvoiceStatus) ([]models.Invoice, error)
	// UpdateWithVersion guarda los campos escalares si la versión almacenada es
	// expectedVersion y la incrementa en uno. Retorna ErrVersionConflict si no coincide.
	UpdateWithVersion(ctx context.Context, invoice *models.Invoice, expectedVersion int) error
	UpdatePDFURL(ctx context.Context, id uuid.UUID, url string) error
	CreateItems(ctx context.Context, items []models.InvoiceItem) error
	DeleteItems(ctx context.Context, invoiceID uuid.UUID) error
	GetItems(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error)
}

// ShipmentStore consulta envíos y administra sus vínculos con facturas
type ShipmentStore interface {
	Exists(ctx context.Context, shipmentID int64) (bool, error)
	IsLinked(ctx context.Context, shipmentID int64) (bool, error)
	FindLink(ctx context.Context, invoiceID uuid.UUID, shipmentID int64) (*models.InvoiceShipment, error)
	// Link retorna ErrShipmentAlreadyLinked cuando el envío ya tiene un vínculo
	Link(ctx context.Context, link *models.InvoiceShipment) error
	UnlinkAll(ctx context.Context, invoiceID uuid.UUID) error
	LinkedShipmentIDs(ctx context.Context, invoiceID uuid.UUID) ([]int64, error)
}

// AuditStore agrega eventos de auditoría e instantáneas de historial, solo escritura al final
type AuditStore interface {
	CreateLog(ctx context.Context, log *models.AuditLog) error
	CreateHistory(ctx context.Context, history *models.InvoiceHistory) error
	ListLogs(ctx context.Context, entityType string, entityID uuid.UUID) ([]models.AuditLog, error)
	ListHistory(ctx context.Context, invoiceID uuid.UUID) ([]models.InvoiceHistory, error)
}

// PDFLogStore persiste los intentos de generación de PDF
type PDFLogStore interface {
	Create(ctx context.Context, log *models.PDFLog) error
	Update(ctx context.Context, log *models.PDFLog) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]models.PDFLog, error)
}

// Repositories agrupa los repositorios que comparten una misma conexión o transacción
type Repositories struct {
	Invoices  InvoiceStore
	Shipments ShipmentStore
	Audit     AuditStore
	PDFLogs   PDFLogStore
}

// Store es el almacén transaccional consumido por los servicios
type Store interface {
	// Repositories retorna repositorios fuera de transacción, para lecturas
	Repositories() Repositories
	// WithTransaction ejecuta fn de forma atómica; un error revierte todo lo escrito
	WithTransaction(ctx context.Context, fn func(Repositories) error) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// isUniqueViolation indica si err es una violación de unicidad de PostgreSQL sobre constraint
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && (constraint == "" || pqErr.Constraint == constraint)
}

// nullJSON convierte un documento vacío en NULL
func nullJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

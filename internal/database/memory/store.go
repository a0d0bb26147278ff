// Package memory implementa database.Store en memoria para desarrollo local y pruebas.
// Una transacción mantiene el candado durante toda su ejecución y restaura el
// estado previo si falla, de modo que las transacciones quedan serializadas.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/database"
	"github.com/hypernova-labs/invoicing-service/internal/models"
)

type state struct {
	invoices  map[uuid.UUID]*models.Invoice
	items     map[uuid.UUID][]models.InvoiceItem
	shipments map[int64]models.Shipment
	links     map[int64]models.InvoiceShipment // por shipment_id
	audit     []models.AuditLog
	history   []models.InvoiceHistory
	pdfLogs   map[uuid.UUID]*models.PDFLog
	pdfOrder  []uuid.UUID
}

func newState() *state {
	return &state{
		invoices:  make(map[uuid.UUID]*models.Invoice),
		items:     make(map[uuid.UUID][]models.InvoiceItem),
		shipments: make(map[int64]models.Shipment),
		links:     make(map[int64]models.InvoiceShipment),
		pdfLogs:   make(map[uuid.UUID]*models.PDFLog),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, inv := range s.invoices {
		c.invoices[id] = inv.Clone()
	}
	for id, items := range s.items {
		c.items[id] = cloneItems(items)
	}
	for id, sh := range s.shipments {
		c.shipments[id] = sh
	}
	for id, link := range s.links {
		c.links[id] = link
	}
	c.audit = append([]models.AuditLog(nil), s.audit...)
	c.history = append([]models.InvoiceHistory(nil), s.history...)
	for id, log := range s.pdfLogs {
		cp := *log
		c.pdfLogs[id] = &cp
	}
	c.pdfOrder = append([]uuid.UUID(nil), s.pdfOrder...)
	return c
}

// Store es un almacén en memoria seguro para uso concurrente
type Store struct {
	mu    sync.Mutex
	state *state
}

// New crea un almacén vacío
func New() *Store {
	return &Store{state: newState()}
}

// AddShipment registra un envío externo para que pueda vincularse
func (s *Store) AddShipment(shipment models.Shipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.shipments[shipment.ID] = shipment
}

// Repositories retorna repositorios que toman el candado en cada operación
func (s *Store) Repositories() database.Repositories {
	return s.repositories(false)
}

// WithTransaction ejecuta fn con acceso exclusivo y revierte el estado si retorna error
func (s *Store) WithTransaction(ctx context.Context, fn func(database.Repositories) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	saved := s.state.clone()
	defer func() {
		if p := recover(); p != nil {
			s.state = saved
			panic(p)
		}
		if err != nil {
			s.state = saved
		}
	}()

	return fn(s.repositories(true))
}

// HealthCheck siempre es exitoso
func (s *Store) HealthCheck(context.Context) error { return nil }

// Close no libera recursos
func (s *Store) Close() error { return nil }

func (s *Store) repositories(inTx bool) database.Repositories {
	v := &view{store: s, inTx: inTx}
	return database.Repositories{
		Invoices:  &invoiceRepo{v},
		Shipments: &shipmentRepo{v},
		Audit:     &auditRepo{v},
		PDFLogs:   &pdfLogRepo{v},
	}
}

// view ejecuta operaciones sobre el estado, tomando el candado solo fuera de una transacción
type view struct {
	store *Store
	inTx  bool
}

func (v *view) do(fn func(st *state) error) error {
	if !v.inTx {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	return fn(v.store.state)
}

type invoiceRepo struct{ v *view }

func (r *invoiceRepo) Create(_ context.Context, invoice *models.Invoice) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.invoices {
			if existing.InvoiceNumber == invoice.InvoiceNumber {
				return errDuplicate("invoice_number")
			}
		}
		stored := invoice.Clone()
		stored.Items = nil
		stored.ShipmentIDs = nil
		st.invoices[invoice.ID] = stored
		return nil
	})
}

func (r *invoiceRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Invoice, error) {
	var out *models.Invoice
	err := r.v.do(func(st *state) error {
		inv, ok := st.invoices[id]
		if !ok {
			return database.ErrNotFound
		}
		out = hydrate(st, inv)
		return nil
	})
	return out, err
}

func (r *invoiceRepo) List(_ context.Context) ([]models.Invoice, error) {
	return r.list(func(*models.Invoice) bool { return true })
}

func (r *invoiceRepo) ListByStatus(_ context.Context, status models.InvoiceStatus) ([]models.Invoice, error) {
	return r.list(func(inv *models.Invoice) bool { return inv.Status == status })
}

func (r *invoiceRepo) list(keep func(*models.Invoice) bool) ([]models.Invoice, error) {
	out := []models.Invoice{}
	err := r.v.do(func(st *state) error {
		for _, inv := range st.invoices {
			if keep(inv) {
				c := inv.Clone()
				c.Items = nil
				c.ShipmentIDs = nil
				out = append(out, *c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].InvoiceNumber < out[j].InvoiceNumber
	})
	return out, err
}

func (r *invoiceRepo) UpdateWithVersion(_ context.Context, invoice *models.Invoice, expectedVersion int) error {
	return r.v.do(func(st *state) error {
		stored, ok := st.invoices[invoice.ID]
		if !ok || stored.Version != expectedVersion {
			return database.ErrVersionConflict
		}
		if invoice.FiscalFolio != nil {
			for id, other := range st.invoices {
				if id != invoice.ID && other.FiscalFolio != nil && *other.FiscalFolio == *invoice.FiscalFolio {
					return errDuplicate("fiscal_folio")
				}
			}
		}
		now := time.Now().UTC()
		updated := invoice.Clone()
		updated.Items = nil
		updated.ShipmentIDs = nil
		updated.InvoiceNumber = stored.InvoiceNumber
		updated.CreatedBy = stored.CreatedBy
		updated.CreatedAt = stored.CreatedAt
		updated.PDFURL = stored.PDFURL
		updated.Version = expectedVersion + 1
		updated.UpdatedAt = now
		st.invoices[invoice.ID] = updated

		invoice.Version = updated.Version
		invoice.UpdatedAt = now
		return nil
	})
}

func (r *invoiceRepo) UpdatePDFURL(_ context.Context, id uuid.UUID, url string) error {
	return r.v.do(func(st *state) error {
		inv, ok := st.invoices[id]
		if !ok {
			return database.ErrNotFound
		}
		inv.PDFURL = &url
		inv.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r *invoiceRepo) CreateItems(_ context.Context, items []models.InvoiceItem) error {
	return r.v.do(func(st *state) error {
		for _, item := range items {
			if _, ok := st.invoices[item.InvoiceID]; !ok {
				return database.ErrNotFound
			}
			if item.ShipmentID != nil {
				if _, ok := st.shipments[*item.ShipmentID]; !ok {
					return database.ErrNotFound
				}
			}
			st.items[item.InvoiceID] = append(st.items[item.InvoiceID], item.Clone())
		}
		return nil
	})
}

func (r *invoiceRepo) DeleteItems(_ context.Context, invoiceID uuid.UUID) error {
	return r.v.do(func(st *state) error {
		delete(st.items, invoiceID)
		return nil
	})
}

func (r *invoiceRepo) GetItems(_ context.Context, invoiceID uuid.UUID) ([]models.InvoiceItem, error) {
	var out []models.InvoiceItem
	err := r.v.do(func(st *state) error {
		out = sortedItems(st.items[invoiceID])
		return nil
	})
	return out, err
}

type shipmentRepo struct{ v *view }

func (r *shipmentRepo) Exists(_ context.Context, shipmentID int64) (bool, error) {
	var exists bool
	err := r.v.do(func(st *state) error {
		_, exists = st.shipments[shipmentID]
		return nil
	})
	return exists, err
}

func (r *shipmentRepo) IsLinked(_ context.Context, shipmentID int64) (bool, error) {
	var linked bool
	err := r.v.do(func(st *state) error {
		_, linked = st.links[shipmentID]
		return nil
	})
	return linked, err
}

func (r *shipmentRepo) FindLink(_ context.Context, invoiceID uuid.UUID, shipmentID int64) (*models.InvoiceShipment, error) {
	var out *models.InvoiceShipment
	err := r.v.do(func(st *state) error {
		if link, ok := st.links[shipmentID]; ok && link.InvoiceID == invoiceID {
			out = &link
		}
		return nil
	})
	return out, err
}

func (r *shipmentRepo) Link(_ context.Context, link *models.InvoiceShipment) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.links[link.ShipmentID]; ok {
			return database.ErrShipmentAlreadyLinked
		}
		if _, ok := st.shipments[link.ShipmentID]; !ok {
			return database.ErrNotFound
		}
		st.links[link.ShipmentID] = *link
		return nil
	})
}

func (r *shipmentRepo) UnlinkAll(_ context.Context, invoiceID uuid.UUID) error {
	return r.v.do(func(st *state) error {
		for shipmentID, link := range st.links {
			if link.InvoiceID == invoiceID {
				delete(st.links, shipmentID)
			}
		}
		return nil
	})
}

func (r *shipmentRepo) LinkedShipmentIDs(_ context.Context, invoiceID uuid.UUID) ([]int64, error) {
	var out []int64
	err := r.v.do(func(st *state) error {
		out = linkedIDs(st, invoiceID)
		return nil
	})
	return out, err
}

type auditRepo struct{ v *view }

func (r *auditRepo) CreateLog(_ context.Context, log *models.AuditLog) error {
	return r.v.do(func(st *state) error {
		st.audit = append(st.audit, *log)
		return nil
	})
}

func (r *auditRepo) CreateHistory(_ context.Context, history *models.InvoiceHistory) error {
	return r.v.do(func(st *state) error {
		st.history = append(st.history, *history)
		return nil
	})
}

func (r *auditRepo) ListLogs(_ context.Context, entityType string, entityID uuid.UUID) ([]models.AuditLog, error) {
	out := []models.AuditLog{}
	err := r.v.do(func(st *state) error {
		for _, log := range st.audit {
			if log.EntityType == entityType && log.EntityID == entityID {
				out = append(out, log)
			}
		}
		return nil
	})
	return out, err
}

func (r *auditRepo) ListHistory(_ context.Context, invoiceID uuid.UUID) ([]models.InvoiceHistory, error) {
	out := []models.InvoiceHistory{}
	err := r.v.do(func(st *state) error {
		for _, h := range st.history {
			if h.InvoiceID == invoiceID {
				out = append(out, h)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, err
}

type pdfLogRepo struct{ v *view }

func (r *pdfLogRepo) Create(_ context.Context, log *models.PDFLog) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.invoices[log.InvoiceID]; !ok {
			return database.ErrNotFound
		}
		cp := *log
		st.pdfLogs[log.ID] = &cp
		st.pdfOrder = append(st.pdfOrder, log.ID)
		return nil
	})
}

func (r *pdfLogRepo) Update(_ context.Context, log *models.PDFLog) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.pdfLogs[log.ID]; !ok {
			return database.ErrNotFound
		}
		cp := *log
		st.pdfLogs[log.ID] = &cp
		return nil
	})
}

func (r *pdfLogRepo) ListByInvoice(_ context.Context, invoiceID uuid.UUID) ([]models.PDFLog, error) {
	out := []models.PDFLog{}
	err := r.v.do(func(st *state) error {
		for _, id := range st.pdfOrder {
			if log := st.pdfLogs[id]; log.InvoiceID == invoiceID {
				out = append(out, *log)
			}
		}
		return nil
	})
	return out, err
}

func hydrate(st *state, inv *models.Invoice) *models.Invoice {
	out := inv.Clone()
	out.Items = sortedItems(st.items[inv.ID])
	out.ShipmentIDs = linkedIDs(st, inv.ID)
	return out
}

func sortedItems(items []models.InvoiceItem) []models.InvoiceItem {
	out := cloneItems(items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].LineNo < out[j].LineNo })
	return out
}

func cloneItems(items []models.InvoiceItem) []models.InvoiceItem {
	out := make([]models.InvoiceItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

func linkedIDs(st *state, invoiceID uuid.UUID) []int64 {
	ids := []int64{}
	for shipmentID, link := range st.links {
		if link.InvoiceID == invoiceID {
			ids = append(ids, shipmentID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/database"
	"github.com/hypernova-labs/invoicing-service/internal/database/memory"
	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/hypernova-labs/invoicing-service/internal/workflows"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEvent struct {
	name string
	data map[string]interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, name string, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{name: name, data: data})
	return p.err
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.name)
	}
	return out
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func newTestInvoiceService(t *testing.T) (*InvoiceService, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.New()
	store.AddShipment(models.Shipment{ID: 42, TrackingNumber: "TRK-42"})
	store.AddShipment(models.Shipment{ID: 43, TrackingNumber: "TRK-43"})
	events := &recordingPublisher{}
	svc := NewInvoiceService(store, NewUUIDIdentifierGenerator(), events, "USD", testLogger())
	return svc, store, events
}

func draftRequest(shipmentIDs ...int64) *models.CreateInvoiceRequest {
	return &models.CreateInvoiceRequest{
		ClientName:  "Acme Corp",
		ClientEmail: "billing@acme.test",
		InvoiceDate: models.NewDate(2025, time.March, 1),
		TaxAmount:   decPtr("1.50"),
		Items: []models.ItemRequest{
			{Description: "Freight", Quantity: intPtr(2), UnitPrice: decPtr("10.00")},
			{Description: "Handling", Quantity: intPtr(1), UnitPrice: decPtr("5.00")},
		},
		ShipmentIDs: shipmentIDs,
	}
}

func updateRequest(version *int, shipmentIDs ...int64) *models.UpdateInvoiceRequest {
	return &models.UpdateInvoiceRequest{
		ClientName:  "Acme Corporation",
		InvoiceDate: models.NewDate(2025, time.March, 2),
		Currency:    "eur",
		Items: []models.ItemRequest{
			{Description: "Freight", Quantity: intPtr(3), UnitPrice: decPtr("10.00")},
		},
		ShipmentIDs: shipmentIDs,
		Version:     version,
	}
}

func TestCreateDraft_ComputesTotals(t *testing.T) {
	ctx := context.Background()
	svc, store, events := newTestInvoiceService(t)

	inv, err := svc.CreateDraft(ctx, draftRequest(42), "user-1")
	require.NoError(t, err)

	assert.Equal(t, models.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, 0, inv.Version)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, "user-1", inv.CreatedBy)
	assert.Nil(t, inv.FiscalFolio)
	assert.Regexp(t, `^INV-[0-9A-F-]{8}-\d+$`, inv.InvoiceNumber)
	assert.Equal(t, "25.00", inv.Subtotal.StringFixed(2))
	assert.Equal(t, "1.50", inv.TaxAmount.StringFixed(2))
	assert.Equal(t, "26.50", inv.TotalAmount.StringFixed(2))
	require.Len(t, inv.Items, 2)
	assert.Equal(t, 1, inv.Items[0].LineNo)
	assert.Equal(t, "20.00", inv.Items[0].LineTotal.StringFixed(2))
	assert.Equal(t, []int64{42}, inv.ShipmentIDs)

	logs, err := store.Repositories().Audit.ListLogs(ctx, models.EntityTypeInvoice, inv.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionCreate, logs[0].Action)
	assert.Empty(t, logs[0].Before)
	assert.NotEmpty(t, logs[0].After)

	assert.Equal(t, []string{workflows.EventInvoiceDraftCreated}, events.names())
}

func TestCreateDraft_MissingQuantityCountsAsZero(t *testing.T) {
	svc, _, _ := newTestInvoiceService(t)
	req := draftRequest()
	req.TaxAmount = nil
	req.Items = append(req.Items, models.ItemRequest{Description: "Insurance", UnitPrice: decPtr("99.00")})

	inv, err := svc.CreateDraft(context.Background(), req, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "25.00", inv.Subtotal.StringFixed(2))
	assert.True(t, inv.TaxAmount.IsZero())
	assert.Equal(t, "25.00", inv.TotalAmount.StringFixed(2))
	require.Len(t, inv.Items, 3)
	assert.Equal(t, 0, inv.Items[2].Quantity)
}

func TestCreateDraft_RejectsInvalidInput(t *testing.T) {
	svc, _, _ := newTestInvoiceService(t)

	req := draftRequest()
	req.InvoiceDate = models.Date{}
	_, err := svc.CreateDraft(context.Background(), req, "user-1")
	assert.True(t, models.IsValidation(err))

	req = draftRequest()
	req.Items[0].Quantity = intPtr(0)
	_, err = svc.CreateDraft(context.Background(), req, "user-1")
	assert.True(t, models.IsValidation(err))
}

func TestCreateDraft_ShipmentCannotBeLinkedTwice(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestInvoiceService(t)

	_, err := svc.CreateDraft(ctx, draftRequest(42), "user-1")
	require.NoError(t, err)

	_, err = svc.CreateDraft(ctx, draftRequest(42), "user-2")
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
	assert.Equal(t, "Shipment 42 is already linked to another invoice", err.Error())

	all, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateDraft_UnknownShipmentRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, store, events := newTestInvoiceService(t)

	_, err := svc.CreateDraft(ctx, draftRequest(42, 99), "user-1")
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))

	all, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	linked, err := store.Repositories().Shipments.IsLinked(ctx, 42)
	require.NoError(t, err)
	assert.False(t, linked)
	assert.Empty(t, events.names())
}

func TestCreateDraft_ItemShipmentMustExist(t *testing.T) {
	svc, _, _ := newTestInvoiceService(t)
	req := draftRequest()
	req.Items[1].ShipmentID = int64Ptr(77)

	_, err := svc.CreateDraft(context.Background(), req, "user-1")
	assert.True(t, models.IsNotFound(err))
}

func TestCreateDraft_ConcurrentLinksAllowOnlyOne(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestInvoiceService(t)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateDraft(ctx, draftRequest(42), "user-1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, conflicts int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case models.IsConflict(err):
			conflicts++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicts)
}

func TestCreateDraft_PublishFailureDoesNotFailCreate(t *testing.T) {
	svc, _, events := newTestInvoiceService(t)
	events.err = errors.New("inngest unavailable")

	inv, err := svc.CreateDraft(context.Background(), draftRequest(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, inv)
}

func TestUpdateDraft_ReplacesContentAndBumpsVersion(t *testing.T) {
	ctx := context.Background()
	svc, _, events := newTestInvoiceService(t)
	created, err := svc.CreateDraft(ctx, draftRequest(42), "user-1")
	require.NoError(t, err)

	updated, err := svc.UpdateDraft(ctx, created.ID, updateRequest(intPtr(0), 42, 43), "user-2")
	require.NoError(t, err)

	assert.Equal(t, 1, updated.Version)
	assert.Equal(t, "Acme Corporation", updated.ClientName)
	assert.Equal(t, "EUR", updated.Currency)
	assert.Equal(t, created.InvoiceNumber, updated.InvoiceNumber)
	assert.Equal(t, "user-1", updated.CreatedBy)
	assert.Equal(t, "30.00", updated.TotalAmount.StringFixed(2))
	require.Len(t, updated.Items, 1)
	assert.ElementsMatch(t, []int64{42, 43}, updated.ShipmentIDs)

	history, err := svc.GetHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 0, history[0].Version)
	assert.Equal(t, "user-2", history[0].ChangedBy)

	trail, err := svc.GetAuditTrail(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, models.AuditActionUpdate, trail[1].Action)
	assert.NotEmpty(t, trail[1].Before)

	assert.Equal(t, []string{workflows.EventInvoiceDraftCreated, workflows.EventInvoiceDraftUpdated}, events.names())
}

func TestUpdateDraft_StaleVersionIsConflict(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestInvoiceService(t)
	created, err := svc.CreateDraft(ctx, draftRequest(), "user-1")
	require.NoError(t, err)

	_, err = svc.UpdateDraft(ctx, created.ID, updateRequest(intPtr(0)), "user-1")
	require.NoError(t, err)

	_, err = svc.UpdateDraft(ctx, created.ID, updateRequest(intPtr(0)), "user-2")
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
	assert.Equal(t, models.MsgVersionConflict, err.Error())

	current, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, current.Version)

	history, err := svc.GetHistory(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestUpdateDraft_WithoutVersionSkipsCheck(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestInvoiceService(t)
	created, err := svc.CreateDraft(ctx, draftRequest(), "user-1")
	require.NoError(t, err)

	_, err = svc.UpdateDraft(ctx, created.ID, updateRequest(nil), "user-1")
	require.NoError(t, err)
	updated, err := svc.UpdateDraft(ctx, created.ID, updateRequest(nil), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
}

func TestUpdateDraft_ShipmentOfAnotherInvoiceIsConflict(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestInvoiceService(t)
	_, err := svc.CreateDraft(ctx, draftRequest(42), "user-1")
	require.NoError(t, err)
	other, err := svc.CreateDraft(ctx, draftRequest(43), "user-1")
	require.NoError(t, err)

	_, err = svc.UpdateDraft(ctx, other.ID, updateRequest(nil, 42), "user-1")
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
	assert.Equal(t, "Shipment 42 is already linked to another invoice", err.Error())

	current, err := svc.GetInvoice(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.Version)
	assert.Equal(t, []int64{43}, current.ShipmentIDs)
}

func TestUpdateDraft_NotFound(t *testing.T) {
	svc, _, _ := newTestInvoiceService(t)
	_, err := svc.UpdateDraft(context.Background(), uuid.New(), updateRequest(nil), "user-1")
	assert.True(t, models.IsNotFound(err))
}

func TestIssue_AssignsFolioAndLocksInvoice(t *testing.T) {
	ctx := context.Background()
	svc, _, events := newTestInvoiceService(t)
	created, err := svc.CreateDraft(ctx, draftRequest(), "user-1")
	require.NoError(t, err)

	issued, err := svc.Issue(ctx, created.ID, "user-2")
	require.NoError(t, err)

	assert.Equal(t, models.InvoiceStatusIssued, issued.Status)
	assert.Equal(t, 1, issued.Version)
	require.NotNil(t, issued.FiscalFolio)
	assert.Regexp(t, `^FISCAL-[0-9A-F-]{16}-\d+$`, *issued.FiscalFolio)

	history, err := svc.GetHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 1, history[0].Version)
	assert.Equal(t, issued.FiscalFolio, history[0].FiscalFolio)

	_, err = svc.UpdateDraft(ctx, created.ID, updateRequest(nil), "user-1")
	require.Error(t, err)
	assert.True(t, models.IsConflict(err))
	assert.Equal(t, "Invoice cannot be edited. Status: ISSUED", err.Error())

	_, err = svc.Issue(ctx, created.ID, "user-1")
	assert.True(t, models.IsBusinessRule(err))

	trail, err := svc.GetAuditTrail(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, models.AuditActionIssue, trail[1].Action)

	assert.Contains(t, events.names(), workflows.EventInvoiceIssued)
}

func TestIssue_RequiresItems(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestInvoiceService(t)
	req := draftRequest()
	req.Items = nil
	created, err := svc.CreateDraft(ctx, req, "user-1")
	require.NoError(t, err)

	_, err = svc.Issue(ctx, created.ID, "user-1")
	require.Error(t, err)
	assert.True(t, models.IsBusinessRule(err))
	assert.Equal(t, models.MsgInvoiceCannotBeIssued, err.Error())

	current, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusDraft, current.Status)
	assert.Nil(t, current.FiscalFolio)
}

func TestIssue_NotFound(t *testing.T) {
	svc, _, _ := newTestInvoiceService(t)
	_, err := svc.Issue(context.Background(), uuid.New(), "user-1")
	assert.True(t, models.IsNotFound(err))
}

func TestListInvoicesByStatus(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestInvoiceService(t)
	a, err := svc.CreateDraft(ctx, draftRequest(), "user-1")
	require.NoError(t, err)
	_, err = svc.CreateDraft(ctx, draftRequest(), "user-1")
	require.NoError(t, err)
	_, err = svc.Issue(ctx, a.ID, "user-1")
	require.NoError(t, err)

	drafts, err := svc.ListInvoicesByStatus(ctx, models.InvoiceStatusDraft)
	require.NoError(t, err)
	assert.Len(t, drafts, 1)

	issued, err := svc.ListInvoicesByStatus(ctx, models.InvoiceStatusIssued)
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Equal(t, a.ID, issued[0].ID)

	_, err = svc.ListInvoicesByStatus(ctx, models.InvoiceStatus("VOID"))
	assert.True(t, models.IsValidation(err))
}

func TestGetInvoice_NotFoundMessage(t *testing.T) {
	svc, _, _ := newTestInvoiceService(t)
	id := uuid.New()

	_, err := svc.GetInvoice(context.Background(), id)
	require.Error(t, err)
	assert.Equal(t, "Invoice not found with id: "+id.String(), err.Error())
}

func TestCreateDraft_RejectsMalformedCurrency(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestInvoiceService(t)
	req := draftRequest(42)
	req.Currency = "EURO"

	_, err := svc.CreateDraft(ctx, req, "user-1")
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	var de *models.DomainError
	require.ErrorAs(t, err, &de)
	require.Len(t, de.Details, 1)
	assert.Equal(t, "currency", de.Details[0].Field)

	all, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	created, err := svc.CreateDraft(ctx, draftRequest(42), "user-1")
	require.NoError(t, err)
	update := updateRequest(intPtr(0))
	update.Currency = "EURO"
	_, err = svc.UpdateDraft(ctx, created.ID, update, "user-1")
	assert.True(t, models.IsValidation(err))
}

func TestAuditSnapshots_KeepExactAmounts(t *testing.T) {
	ctx := context.Background()
	svc, _, events := newTestInvoiceService(t)
	req := draftRequest()
	req.TaxAmount = decPtr("0.005")
	req.Items = []models.ItemRequest{
		{Description: "Sample", Quantity: intPtr(3), UnitPrice: decPtr("0.333")},
	}

	created, err := svc.CreateDraft(ctx, req, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "1.004", created.TotalAmount.String())

	trail, err := svc.GetAuditTrail(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)

	var after models.InvoiceSnapshot
	require.NoError(t, json.Unmarshal(trail[0].After, &after))
	assert.Equal(t, "0.999", after.Subtotal.String())
	assert.Equal(t, "0.005", after.TaxAmount.String())
	assert.Equal(t, "1.004", after.TotalAmount.String())
	assert.True(t, after.TotalAmount.Equal(after.Subtotal.Add(after.TaxAmount)))

	issued, err := svc.Issue(ctx, created.ID, "user-1")
	require.NoError(t, err)

	history, err := svc.GetHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	var snap models.InvoiceSnapshot
	require.NoError(t, json.Unmarshal(history[0].Snapshot, &snap))
	assert.True(t, snap.TotalAmount.Equal(issued.TotalAmount))
	assert.Equal(t, "1.004", snap.TotalAmount.String())

	events.mu.Lock()
	defer events.mu.Unlock()
	require.NotEmpty(t, events.events)
	assert.Equal(t, "1.004", events.events[0].data["total_amount"])
}

var errAuditUnavailable = errors.New("audit store unavailable")

// failingAuditStore falla las escrituras de auditoría o historial según sus banderas
type failingAuditStore struct {
	database.AuditStore
	failLog     *bool
	failHistory *bool
}

func (f failingAuditStore) CreateLog(ctx context.Context, log *models.AuditLog) error {
	if *f.failLog {
		return errAuditUnavailable
	}
	return f.AuditStore.CreateLog(ctx, log)
}

func (f failingAuditStore) CreateHistory(ctx context.Context, history *models.InvoiceHistory) error {
	if *f.failHistory {
		return errAuditUnavailable
	}
	return f.AuditStore.CreateHistory(ctx, history)
}

// auditFailureStore reemplaza el repositorio de auditoría dentro de cada transacción
type auditFailureStore struct {
	database.Store
	failLog     bool
	failHistory bool
}

func (s *auditFailureStore) WithTransaction(ctx context.Context, fn func(database.Repositories) error) error {
	return s.Store.WithTransaction(ctx, func(repos database.Repositories) error {
		repos.Audit = failingAuditStore{AuditStore: repos.Audit, failLog: &s.failLog, failHistory: &s.failHistory}
		return fn(repos)
	})
}

func newAuditFailureService(t *testing.T) (*InvoiceService, *auditFailureStore) {
	t.Helper()
	mem := memory.New()
	mem.AddShipment(models.Shipment{ID: 42, TrackingNumber: "TRK-42"})
	mem.AddShipment(models.Shipment{ID: 43, TrackingNumber: "TRK-43"})
	store := &auditFailureStore{Store: mem}
	return NewInvoiceService(store, NewUUIDIdentifierGenerator(), nil, "USD", testLogger()), store
}

func TestCreateDraft_AuditFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, store := newAuditFailureService(t)
	store.failLog = true

	_, err := svc.CreateDraft(ctx, draftRequest(42), "user-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, errAuditUnavailable)
	assert.Equal(t, models.ErrorCodeInternal, models.CodeOf(err))

	all, err := svc.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	linked, err := store.Repositories().Shipments.IsLinked(ctx, 42)
	require.NoError(t, err)
	assert.False(t, linked)

	store.failLog = false
	created, err := svc.CreateDraft(ctx, draftRequest(42), "user-1")
	require.NoError(t, err)

	_, err = svc.GetInvoice(ctx, created.ID)
	assert.NoError(t, err)
}

func TestUpdateDraft_AuditFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, store := newAuditFailureService(t)
	created, err := svc.CreateDraft(ctx, draftRequest(42), "user-1")
	require.NoError(t, err)

	for _, tc := range []struct {
		name        string
		failLog     bool
		failHistory bool
	}{
		{name: "audit log", failLog: true},
		{name: "history snapshot", failHistory: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store.failLog, store.failHistory = tc.failLog, tc.failHistory
			defer func() { store.failLog, store.failHistory = false, false }()

			_, err := svc.UpdateDraft(ctx, created.ID, updateRequest(intPtr(0), 43), "user-2")
			require.Error(t, err)
			assert.ErrorIs(t, err, errAuditUnavailable)

			current, err := svc.GetInvoice(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, 0, current.Version)
			assert.Equal(t, "Acme Corp", current.ClientName)
			assert.Equal(t, "USD", current.Currency)
			assert.True(t, current.TotalAmount.Equal(created.TotalAmount))
			require.Len(t, current.Items, 2)
			assert.Equal(t, []int64{42}, current.ShipmentIDs)

			history, err := svc.GetHistory(ctx, created.ID)
			require.NoError(t, err)
			assert.Empty(t, history)

			trail, err := svc.GetAuditTrail(ctx, created.ID)
			require.NoError(t, err)
			assert.Len(t, trail, 1)
		})
	}
}

func TestIssue_AuditFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, store := newAuditFailureService(t)
	created, err := svc.CreateDraft(ctx, draftRequest(42), "user-1")
	require.NoError(t, err)

	for _, tc := range []struct {
		name        string
		failLog     bool
		failHistory bool
	}{
		{name: "audit log", failLog: true},
		{name: "history snapshot", failHistory: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store.failLog, store.failHistory = tc.failLog, tc.failHistory
			defer func() { store.failLog, store.failHistory = false, false }()

			_, err := svc.Issue(ctx, created.ID, "user-2")
			require.Error(t, err)
			assert.ErrorIs(t, err, errAuditUnavailable)

			current, err := svc.GetInvoice(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, models.InvoiceStatusDraft, current.Status)
			assert.Equal(t, 0, current.Version)
			assert.Nil(t, current.FiscalFolio)
			require.Len(t, current.Items, 2)

			history, err := svc.GetHistory(ctx, created.ID)
			require.NoError(t, err)
			assert.Empty(t, history)
		})
	}

	issued, err := svc.Issue(ctx, created.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, 1, issued.Version)
}

// fixedIdentifiers repite siempre el mismo número y folio
type fixedIdentifiers struct{}

func (fixedIdentifiers) InvoiceNumber(context.Context) (string, error) { return "INV-20250301-000001", nil }
func (fixedIdentifiers) FiscalFolio(context.Context) (string, error) {
	return "FISCAL-20250301-000001", nil
}

func TestCreateAndIssue_DuplicateIdentifiersFallBackToRandom(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewInvoiceService(store, fixedIdentifiers{}, nil, "USD", testLogger())

	first, err := svc.CreateDraft(ctx, draftRequest(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "INV-20250301-000001", first.InvoiceNumber)

	second, err := svc.CreateDraft(ctx, draftRequest(), "user-1")
	require.NoError(t, err)
	assert.Regexp(t, `^INV-[0-9A-F]{8}-\d+$`, second.InvoiceNumber)

	issuedFirst, err := svc.Issue(ctx, first.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "FISCAL-20250301-000001", *issuedFirst.FiscalFolio)

	issuedSecond, err := svc.Issue(ctx, second.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, issuedSecond.FiscalFolio)
	assert.Regexp(t, `^FISCAL-[0-9A-F-]{16}-\d+$`, *issuedSecond.FiscalFolio)
	assert.Equal(t, 1, issuedSecond.Version)

	history, err := svc.GetHistory(ctx, second.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

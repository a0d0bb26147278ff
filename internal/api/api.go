package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/hypernova-labs/invoicing-service/internal/services"
	"github.com/sirupsen/logrus"
)

// ActorHeader identifica al usuario que ejecuta la operación
const ActorHeader = "X-Actor-ID"

var errActorRequired = errors.New("actor header required")

// HealthChecker verifica una dependencia del servicio
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// API maneja todos los endpoints de la API
type API struct {
	invoiceService  *services.InvoiceService
	documentService *services.DocumentService
	health          map[string]HealthChecker
	logger          *logrus.Logger
}

// NewAPI crea una nueva instancia de la API
func NewAPI(
	invoiceService *services.InvoiceService,
	documentService *services.DocumentService,
	health map[string]HealthChecker,
	logger *logrus.Logger,
) *API {
	return &API{
		invoiceService:  invoiceService,
		documentService: documentService,
		health:          health,
		logger:          logger,
	}
}

// RegisterRoutes registra los endpoints de facturas bajo el grupo indicado
func (api *API) RegisterRoutes(v1 *gin.RouterGroup) {
	invoices := v1.Group("/invoices")
	{
		invoices.POST("", api.CreateInvoice)
		invoices.GET("", api.ListInvoices)
		invoices.GET("/status/:status", api.ListInvoicesByStatus)
		invoices.GET("/:id", api.GetInvoice)
		invoices.PUT("/:id", api.UpdateInvoice)
		invoices.POST("/:id/issue", api.IssueInvoice)
		invoices.POST("/:id/pdf", api.GeneratePDF)
		invoices.POST("/:id/send-email", api.SendEmail)
		invoices.GET("/:id/history", api.GetHistory)
		invoices.GET("/:id/audit", api.GetAuditTrail)
		invoices.GET("/:id/pdf-logs", api.GetPDFLogs)
	}
}

// Health reporta el estado del servicio y sus dependencias
func (api *API) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}
	for name, checker := range api.health {
		if err := checker.HealthCheck(ctx); err != nil {
			api.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			checks[name] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}

	c.JSON(status, gin.H{
		"status":    state,
		"timestamp": time.Now().UTC(),
		"service":   "invoicing-service",
		"checks":    checks,
	})
}

// CreateInvoice crea una factura en borrador
func (api *API) CreateInvoice(c *gin.Context) {
	actorID, ok := api.requireActor(c)
	if !ok {
		return
	}

	var req models.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.badRequest(c, "Error binding create invoice request", err)
		return
	}

	invoice, err := api.invoiceService.CreateDraft(c.Request.Context(), &req, actorID)
	if err != nil {
		api.respondError(c, err, "Error creating invoice")
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

// UpdateInvoice actualiza un borrador
func (api *API) UpdateInvoice(c *gin.Context) {
	actorID, ok := api.requireActor(c)
	if !ok {
		return
	}

	id, ok := api.invoiceID(c)
	if !ok {
		return
	}

	var req models.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.badRequest(c, "Error binding update invoice request", err)
		return
	}

	invoice, err := api.invoiceService.UpdateDraft(c.Request.Context(), id, &req, actorID)
	if err != nil {
		api.respondError(c, err, "Error updating invoice")
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// IssueInvoice emite un borrador
func (api *API) IssueInvoice(c *gin.Context) {
	actorID, ok := api.requireActor(c)
	if !ok {
		return
	}

	id, ok := api.invoiceID(c)
	if !ok {
		return
	}

	invoice, err := api.invoiceService.Issue(c.Request.Context(), id, actorID)
	if err != nil {
		api.respondError(c, err, "Error issuing invoice")
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// GetInvoice obtiene una factura por ID
func (api *API) GetInvoice(c *gin.Context) {
	id, ok := api.invoiceID(c)
	if !ok {
		return
	}

	invoice, err := api.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err, "Error retrieving invoice")
		return
	}

	c.JSON(http.StatusOK, invoice)
}

// ListInvoices lista todas las facturas
func (api *API) ListInvoices(c *gin.Context) {
	invoices, err := api.invoiceService.ListInvoices(c.Request.Context())
	if err != nil {
		api.respondError(c, err, "Error listing invoices")
		return
	}

	c.JSON(http.StatusOK, models.InvoiceListResponse{Invoices: invoices, Total: len(invoices)})
}

// ListInvoicesByStatus lista las facturas en un estado
func (api *API) ListInvoicesByStatus(c *gin.Context) {
	status, valid := models.ParseInvoiceStatus(c.Param("status"))
	if !valid {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid invoice status", []models.ErrorDetail{
			{Field: "status", Issue: "Must be one of DRAFT, ISSUED"},
		}))
		return
	}

	invoices, err := api.invoiceService.ListInvoicesByStatus(c.Request.Context(), status)
	if err != nil {
		api.respondError(c, err, "Error listing invoices")
		return
	}

	c.JSON(http.StatusOK, models.InvoiceListResponse{Invoices: invoices, Total: len(invoices)})
}

// GeneratePDF genera el PDF de una factura emitida
func (api *API) GeneratePDF(c *gin.Context) {
	actorID, ok := api.requireActor(c)
	if !ok {
		return
	}

	id, ok := api.invoiceID(c)
	if !ok {
		return
	}

	url, err := api.documentService.GeneratePDF(c.Request.Context(), id, actorID)
	if err != nil {
		api.respondError(c, err, "Error generating PDF")
		return
	}

	c.JSON(http.StatusOK, models.PDFResponse{InvoiceID: id, PDFURL: url})
}

// SendEmail envía la factura por correo
func (api *API) SendEmail(c *gin.Context) {
	id, ok := api.invoiceID(c)
	if !ok {
		return
	}

	recipient, err := api.documentService.SendByEmail(c.Request.Context(), id, c.Query("recipient_email"))
	if err != nil {
		api.respondError(c, err, "Error sending invoice email")
		return
	}

	c.JSON(http.StatusOK, models.EmailResponse{InvoiceID: id, Recipient: recipient, Sent: true})
}

// GetHistory retorna el historial de versiones de una factura
func (api *API) GetHistory(c *gin.Context) {
	id, ok := api.invoiceID(c)
	if !ok {
		return
	}

	history, err := api.invoiceService.GetHistory(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err, "Error retrieving invoice history")
		return
	}

	c.JSON(http.StatusOK, history)
}

// GetAuditTrail retorna los eventos de auditoría de una factura
func (api *API) GetAuditTrail(c *gin.Context) {
	id, ok := api.invoiceID(c)
	if !ok {
		return
	}

	logs, err := api.invoiceService.GetAuditTrail(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err, "Error retrieving audit trail")
		return
	}

	c.JSON(http.StatusOK, logs)
}

// GetPDFLogs retorna los intentos de generación de PDF
func (api *API) GetPDFLogs(c *gin.Context) {
	id, ok := api.invoiceID(c)
	if !ok {
		return
	}

	logs, err := api.documentService.GetPDFLogs(c.Request.Context(), id)
	if err != nil {
		api.respondError(c, err, "Error retrieving PDF logs")
		return
	}

	c.JSON(http.StatusOK, logs)
}

// getActorID extrae el actor del header
func (api *API) getActorID(c *gin.Context) (string, error) {
	actorID := strings.TrimSpace(c.GetHeader(ActorHeader))
	if actorID == "" {
		return "", errActorRequired
	}
	return actorID, nil
}

func (api *API) requireActor(c *gin.Context) (string, bool) {
	actorID, err := api.getActorID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Actor ID is required", []models.ErrorDetail{
			{Field: ActorHeader, Issue: "Header is required"},
		}))
		return "", false
	}
	return actorID, true
}

func (api *API) invoiceID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid invoice ID", []models.ErrorDetail{
			{Field: "id", Issue: "Must be a valid UUID"},
		}))
		return uuid.Nil, false
	}
	return id, true
}

func (api *API) badRequest(c *gin.Context, logMessage string, err error) {
	api.logger.WithError(err).Warn(logMessage)
	c.JSON(http.StatusBadRequest, models.NewValidationError("Invalid request format", []models.ErrorDetail{
		{Field: "body", Issue: err.Error()},
	}))
}

// respondError traduce el código de dominio al estado HTTP
func (api *API) respondError(c *gin.Context, err error, logMessage string) {
	status := statusForCode(models.CodeOf(err))
	if status == http.StatusInternalServerError {
		api.logger.WithError(err).Error(logMessage)
	}
	c.JSON(status, models.NewDomainErrorResponse(err))
}

func statusForCode(code models.ErrorCode) int {
	switch code {
	case models.ErrorCodeNotFound:
		return http.StatusNotFound
	case models.ErrorCodeConflict:
		return http.StatusConflict
	case models.ErrorCodeBusinessRule:
		return http.StatusUnprocessableEntity
	case models.ErrorCodeInvalidRequest:
		return http.StatusBadRequest
	case models.ErrorCodeTransportFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

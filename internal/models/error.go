package models

import (
	"errors"
	"fmt"
)

// ErrorCode representa el código de error
type ErrorCode string

const (
	ErrorCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeConflict         ErrorCode = "CONFLICT"
	ErrorCodeBusinessRule     ErrorCode = "BUSINESS_RULE_VIOLATION"
	ErrorCodeTransportFailure ErrorCode = "TRANSPORT_FAILURE"
	ErrorCodeInternal         ErrorCode = "INTERNAL"
)

// Mensajes de dominio
const (
	MsgInvoiceNotFound        = "Invoice not found with id: %s"
	MsgShipmentNotFound       = "Shipment not found with id: %d"
	MsgShipmentAlreadyLinked  = "Shipment %d is already linked to another invoice"
	MsgInvoiceNotEditable     = "Invoice cannot be edited. Status: %s"
	MsgVersionConflict        = "Invoice has been modified by another user. Please refresh and try again."
	MsgInvoiceCannotBeIssued  = "Invoice cannot be issued. Missing required data or invalid status."
	MsgPDFRequiresIssued      = "PDF can only be generated for ISSUED invoices. Current status: %s"
	MsgPDFGenerationFailed    = "Failed to generate PDF: %s"
	MsgRecipientEmailRequired = "Recipient email is required"
)

// DomainError es el error tipado que las operaciones del núcleo devuelven al llamador
type DomainError struct {
	Code    ErrorCode
	Message string
	Details []ErrorDetail
	Err     error
}

// Error implementa la interfaz error
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap expone la causa original
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NotFound crea un error de recurso inexistente
func NotFound(format string, args ...interface{}) *DomainError {
	return &DomainError{Code: ErrorCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict crea un error de conflicto de estado o versión
func Conflict(format string, args ...interface{}) *DomainError {
	return &DomainError{Code: ErrorCodeConflict, Message: fmt.Sprintf(format, args...)}
}

// BusinessRule crea un error de regla de negocio
func BusinessRule(format string, args ...interface{}) *DomainError {
	return &DomainError{Code: ErrorCodeBusinessRule, Message: fmt.Sprintf(format, args...)}
}

// Validation crea un error de validación de entrada
func Validation(message string, details ...ErrorDetail) *DomainError {
	return &DomainError{Code: ErrorCodeInvalidRequest, Message: message, Details: details}
}

// TransportFailure crea un error de transporte (email, almacenamiento) con su causa
func TransportFailure(message string, err error) *DomainError {
	return &DomainError{Code: ErrorCodeTransportFailure, Message: message, Err: err}
}

// CodeOf retorna el código de dominio de err, INTERNAL si no es un DomainError
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrorCodeInternal
}

// IsNotFound indica si err es un error NOT_FOUND
func IsNotFound(err error) bool { return CodeOf(err) == ErrorCodeNotFound }

// IsConflict indica si err es un error CONFLICT
func IsConflict(err error) bool { return CodeOf(err) == ErrorCodeConflict }

// IsBusinessRule indica si err es una violación de regla de negocio
func IsBusinessRule(err error) bool { return CodeOf(err) == ErrorCodeBusinessRule }

// IsValidation indica si err es un error de validación
func IsValidation(err error) bool { return CodeOf(err) == ErrorCodeInvalidRequest }

// ErrorDetail representa un detalle específico del error
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ErrorResponse representa la respuesta de error estandarizada
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

// ErrorInfo representa la información del error
type ErrorInfo struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// NewErrorResponse crea una nueva respuesta de error
func NewErrorResponse(code ErrorCode, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(code),
			Message: message,
		},
	}
}

// NewValidationError crea un error de validación con detalles
func NewValidationError(message string, details []ErrorDetail) ErrorResponse {
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(ErrorCodeInvalidRequest),
			Message: message,
			Details: details,
		},
	}
}

// NewInternalError crea un error interno del servidor
func NewInternalError(message string) ErrorResponse {
	return NewErrorResponse(ErrorCodeInternal, message)
}

// NewDomainErrorResponse convierte un error de dominio en la respuesta estandarizada.
// Los errores sin tipo se reportan como INTERNAL sin exponer su mensaje.
func NewDomainErrorResponse(err error) ErrorResponse {
	var de *DomainError
	if !errors.As(err, &de) {
		return NewInternalError("internal server error")
	}
	return ErrorResponse{
		Error: ErrorInfo{
			Code:    string(de.Code),
			Message: de.Message,
			Details: de.Details,
		},
	}
}

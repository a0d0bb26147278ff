package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hypernova-labs/invoicing-service/internal/models"
	"github.com/shopspring/decimal"
)

// LineTotal calcula cantidad × precio unitario; un precio o cantidad ausente aporta cero
func LineTotal(item models.ItemRequest) decimal.Decimal {
	if item.Quantity == nil || item.UnitPrice == nil {
		return decimal.Zero
	}
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(*item.Quantity)))
}

// CalculateSubtotal suma los totales de línea con aritmética decimal exacta
func CalculateSubtotal(items []models.ItemRequest) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(LineTotal(item))
	}
	return subtotal
}

// ValidateItemRequests rechaza valores presentes pero inválidos. Los ausentes se aceptan como cero.
func ValidateItemRequests(items []models.ItemRequest) error {
	var details []models.ErrorDetail
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			details = append(details, models.ErrorDetail{
				Field: fmt.Sprintf("items[%d].description", i),
				Issue: "description is required",
			})
		}
		if item.Quantity != nil && *item.Quantity <= 0 {
			details = append(details, models.ErrorDetail{
				Field: fmt.Sprintf("items[%d].quantity", i),
				Issue: "quantity must be greater than zero",
			})
		}
		// La columna quantity es INTEGER
		if item.Quantity != nil && *item.Quantity > math.MaxInt32 {
			details = append(details, models.ErrorDetail{
				Field: fmt.Sprintf("items[%d].quantity", i),
				Issue: fmt.Sprintf("quantity must not exceed %d", math.MaxInt32),
			})
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			details = append(details, models.ErrorDetail{
				Field: fmt.Sprintf("items[%d].unit_price", i),
				Issue: "unit price must not be negative",
			})
		}
	}

	if len(details) > 0 {
		return models.Validation("Invalid invoice items", details...)
	}
	return nil
}

// BuildInvoiceItems convierte las solicitudes en items persistibles numerados desde 1
func BuildInvoiceItems(invoiceID uuid.UUID, requests []models.ItemRequest, now time.Time) []models.InvoiceItem {
	items := make([]models.InvoiceItem, 0, len(requests))
	for i, req := range requests {
		item := models.InvoiceItem{
			ID:          uuid.New(),
			InvoiceID:   invoiceID,
			LineNo:      i + 1,
			Description: strings.TrimSpace(req.Description),
			UnitPrice:   decimal.Zero,
			LineTotal:   LineTotal(req),
			ShipmentID:  req.ShipmentID,
			CreatedAt:   now,
		}
		if req.Quantity != nil {
			item.Quantity = *req.Quantity
		}
		if req.UnitPrice != nil {
			item.UnitPrice = *req.UnitPrice
		}
		items = append(items, item)
	}
	return items
}

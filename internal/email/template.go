package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/hypernova-labs/invoicing-service/internal/models"
)

// Message es el correo ya renderizado
type Message struct {
	Subject string
	HTML    string
}

var invoiceTemplate = template.Must(template.New("invoice").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Subject}}</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 8px; }
        table { width: 100%; border-collapse: collapse; margin: 20px 0; }
        td { padding: 8px; border-bottom: 1px solid #eee; }
        .total { font-size: 18px; font-weight: bold; color: #007bff; }
        .footer { margin-top: 30px; font-size: 14px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.Subject}}</h1>
        </div>
        <p>Hola {{.ClientName}},</p>
        <p>Adjunto encontrarás tu factura con los siguientes detalles:</p>
        <table>
            <tr><td><strong>Número</strong></td><td>{{.InvoiceNumber}}</td></tr>
            {{if .FiscalFolio}}<tr><td><strong>Folio fiscal</strong></td><td>{{.FiscalFolio}}</td></tr>{{end}}
            <tr><td><strong>Cliente</strong></td><td>{{.ClientName}}</td></tr>
            <tr><td><strong>Fecha</strong></td><td>{{.InvoiceDate}}</td></tr>
            {{if .DueDate}}<tr><td><strong>Vencimiento</strong></td><td>{{.DueDate}}</td></tr>{{end}}
            <tr><td><strong>Subtotal</strong></td><td>{{.Subtotal}} {{.Currency}}</td></tr>
            <tr><td><strong>Impuesto</strong></td><td>{{.TaxAmount}} {{.Currency}}</td></tr>
            <tr><td><strong>Total</strong></td><td class="total">{{.TotalAmount}} {{.Currency}}</td></tr>
        </table>
        <div class="footer">
            <p>Este es un email automático del sistema de facturación.</p>
        </div>
    </div>
</body>
</html>`))

// BuildInvoiceMessage arma el asunto "<prefijo> <número>" y el cuerpo HTML de la factura
func BuildInvoiceMessage(invoice *models.Invoice, subjectPrefix string) (Message, error) {
	prefix := strings.TrimSpace(subjectPrefix)
	if prefix == "" {
		prefix = "Factura"
	}
	subject := prefix + " " + invoice.InvoiceNumber

	data := map[string]string{
		"Subject":       subject,
		"InvoiceNumber": invoice.InvoiceNumber,
		"ClientName":    invoice.ClientName,
		"InvoiceDate":   invoice.InvoiceDate.Format("02/01/2006"),
		"Currency":      invoice.Currency,
		"Subtotal":      invoice.Subtotal.StringFixed(2),
		"TaxAmount":     invoice.TaxAmount.StringFixed(2),
		"TotalAmount":   invoice.TotalAmount.StringFixed(2),
	}
	if invoice.FiscalFolio != nil {
		data["FiscalFolio"] = *invoice.FiscalFolio
	}
	if invoice.DueDate != nil {
		data["DueDate"] = invoice.DueDate.Format("02/01/2006")
	}

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("error rendering invoice email: %w", err)
	}

	return Message{Subject: subject, HTML: buf.String()}, nil
}

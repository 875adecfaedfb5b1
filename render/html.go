package render

import (
	"bytes"
	"fmt"
	"html/template"

	"invoice-backend/models"
)

const invoiceHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.Invoice.InvoiceNumber}}</title>
  <style>
    body { margin: 0; padding: 32px; font-family: "Helvetica Neue", Arial, sans-serif; color: #1f2937; }
    .invoice { max-width: 820px; margin: 0 auto; border: 4px solid #16a34a; background: #f9fafb; padding: 16px; }
    .header { display: flex; justify-content: space-between; align-items: flex-start; margin-bottom: 32px; }
    .header h1 { margin: 0 0 8px; }
    .muted { color: #4b5563; margin: 2px 0; }
    table { width: 100%; border-collapse: collapse; font-size: 14px; }
    th, td { padding: 8px; border-bottom: 1px solid #e5e7eb; text-align: left; }
    th { text-transform: uppercase; font-size: 11px; letter-spacing: 0.04em; color: #6b7280; }
    .total { text-align: right; font-weight: 600; margin-top: 16px; }
    @media print { body { padding: 0; } }
  </style>
</head>
<body>
  <div class="invoice">
    <div class="header">
      <div class="seller">
        <h1>{{.Seller.Name}}</h1>
        <p class="muted">{{.Seller.Address}}</p>
        <p class="muted">{{.Seller.Phone}}</p>
        <p class="muted">{{.Seller.Email}}</p>
      </div>
      <div class="meta">
        <h1>INVOICE</h1>
        <p class="muted">Invoice #: {{.Invoice.InvoiceNumber}}</p>
        <p class="muted">Date: {{.Invoice.InvoiceDate}}</p>
        <p class="muted">Due Date: {{.Invoice.InvoiceDueDate}}</p>
      </div>
    </div>
    <div class="bill-to">
      <h2>Bill To:</h2>
      <p class="muted">{{.Invoice.ClientName}}</p>
      <p class="muted">{{.Invoice.ClientAddress}}</p>
      <p class="muted">{{.Invoice.ClientPostcode}}</p>
      <p class="muted">{{.Invoice.ClientPhone}}</p>
    </div>
    <table>
      <thead>
        <tr><th>Items</th><th>Qty</th><th>Price</th><th>Total</th></tr>
      </thead>
      <tbody>
        {{- range .Lines}}
        <tr><td>{{.Item}}</td><td>{{.Quantity}}</td><td>{{.Price}}</td><td>{{.Total}}</td></tr>
        {{- end}}
      </tbody>
    </table>
    <p class="total">Grand Total: {{.GrandTotal}}</p>
  </div>
</body>
</html>
`

var invoiceHTML = template.Must(template.New("invoice").Parse(invoiceHTMLTemplate))

// HTML renders inv as a standalone printable HTML page.
func (r *Renderer) HTML(inv models.Invoice) (string, error) {
	var buf bytes.Buffer
	if err := invoiceHTML.Execute(&buf, r.view(inv)); err != nil {
		return "", fmt.Errorf("render invoice %d html: %w", inv.ID, err)
	}
	return buf.String(), nil
}

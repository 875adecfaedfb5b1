package models

// Invoice is one row of the invoices table.
// Items is the decoded view of ItemsBlob; the repository keeps the two in sync.
type Invoice struct {
	ID             uint       `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	InvoiceNumber  string     `json:"invoiceNumber" gorm:"column:invoice_number"`
	InvoiceDate    string     `json:"invoiceDate" gorm:"column:invoice_date"`
	InvoiceDueDate string     `json:"invoiceDueDate" gorm:"column:invoice_due_date"`
	ClientName     string     `json:"clientName" gorm:"column:client_name"`
	ClientAddress  string     `json:"clientAddress" gorm:"column:client_address"`
	ClientPostcode string     `json:"clientPostcode" gorm:"column:client_postcode"`
	ClientEmail    string     `json:"clientEmail" gorm:"column:client_email"`
	ClientPhone    string     `json:"clientPhone" gorm:"column:client_phone"`
	Description    string     `json:"description" gorm:"column:description"`
	Items          []LineItem `json:"items" gorm:"-"`
	ItemsBlob      string     `json:"-" gorm:"column:items;type:text;not null"`
	GrandTotal     float64    `json:"grandTotal" gorm:"column:grand_total;not null"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// LineItem is one billable row embedded in an invoice.
type LineItem struct {
	Item     string  `json:"item"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

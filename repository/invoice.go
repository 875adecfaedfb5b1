package repository

import (
	"context"
	"errors"
	"fmt"

	"invoice-backend/lineitems"
	"invoice-backend/models"
	"invoice-backend/utils"

	"gorm.io/gorm"
)

// NewInvoice is the full set of fields accepted on create.
// The grand total is always derived from Items.
type NewInvoice struct {
	InvoiceNumber  string
	InvoiceDate    string
	InvoiceDueDate string
	ClientName     string
	ClientAddress  string
	ClientPostcode string
	ClientEmail    string
	ClientPhone    string
	Description    string
	Items          []models.LineItem
}

// InvoicePatch lists the fields an update may replace. Nil fields keep their
// stored value. Setting Items also replaces the grand total.
type InvoicePatch struct {
	InvoiceNumber  *string            `json:"invoiceNumber"`
	InvoiceDate    *string            `json:"invoiceDate"`
	InvoiceDueDate *string            `json:"invoiceDueDate"`
	ClientName     *string            `json:"clientName"`
	Items          *[]models.LineItem `json:"-"`
}

var patchColumns = map[string]string{
	"invoiceNumber":  "invoice_number",
	"invoiceDate":    "invoice_date",
	"invoiceDueDate": "invoice_due_date",
	"clientName":     "client_name",
}

// InvoiceRepository owns the invoices table.
type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// Create inserts a new invoice and returns it with its generated id.
func (r *InvoiceRepository) Create(ctx context.Context, in NewInvoice) (models.Invoice, error) {
	blob, err := lineitems.Encode(in.Items)
	if err != nil {
		return models.Invoice{}, err
	}

	items := in.Items
	if items == nil {
		items = []models.LineItem{}
	}
	total := lineitems.GrandTotal(items)
	if err := checkTotal(total); err != nil {
		return models.Invoice{}, err
	}
	invoice := models.Invoice{
		InvoiceNumber:  in.InvoiceNumber,
		InvoiceDate:    in.InvoiceDate,
		InvoiceDueDate: in.InvoiceDueDate,
		ClientName:     in.ClientName,
		ClientAddress:  in.ClientAddress,
		ClientPostcode: in.ClientPostcode,
		ClientEmail:    in.ClientEmail,
		ClientPhone:    in.ClientPhone,
		Description:    in.Description,
		Items:          items,
		ItemsBlob:      blob,
		GrandTotal:     total,
	}

	if err := r.db.WithContext(ctx).Create(&invoice).Error; err != nil {
		return models.Invoice{}, storageErr("create", err)
	}
	return invoice, nil
}

// GetByID returns the invoice with the given id, items decoded.
func (r *InvoiceRepository) GetByID(ctx context.Context, id uint) (models.Invoice, error) {
	return r.getByID(r.db.WithContext(ctx), id)
}

func (r *InvoiceRepository) getByID(db *gorm.DB, id uint) (models.Invoice, error) {
	var invoice models.Invoice
	if err := db.First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Invoice{}, ErrNotFound
		}
		return models.Invoice{}, storageErr("get", err)
	}
	if err := decodeItems(&invoice); err != nil {
		return models.Invoice{}, err
	}
	return invoice, nil
}

// ListRecent returns up to limit invoices, most recently created first.
// Recency is insertion order (id), never invoice number.
func (r *InvoiceRepository) ListRecent(ctx context.Context, limit int) ([]models.Invoice, error) {
	if limit <= 0 {
		return []models.Invoice{}, nil
	}

	invoices := []models.Invoice{}
	if err := r.db.WithContext(ctx).Order("id desc").Limit(limit).Find(&invoices).Error; err != nil {
		return nil, storageErr("list", err)
	}
	for i := range invoices {
		if err := decodeItems(&invoices[i]); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

// Update applies patch to the invoice with the given id and returns the stored result.
func (r *InvoiceRepository) Update(ctx context.Context, id uint, patch InvoicePatch) (models.Invoice, error) {
	updates := utils.UpdatesFromPtrDTO(&patch, patchColumns)
	if patch.Items != nil {
		blob, err := lineitems.Encode(*patch.Items)
		if err != nil {
			return models.Invoice{}, err
		}
		total := lineitems.GrandTotal(*patch.Items)
		if err := checkTotal(total); err != nil {
			return models.Invoice{}, err
		}
		updates["items"] = blob
		updates["grand_total"] = total
	}
	if len(updates) == 0 {
		return r.GetByID(ctx, id)
	}

	var out models.Invoice
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Invoice{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return storageErr("update", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var err error
		out, err = r.getByID(tx, id)
		return err
	})
	if err != nil {
		return models.Invoice{}, err
	}
	return out, nil
}

// Delete removes the invoice with the given id.
func (r *InvoiceRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Invoice{})
	if res.Error != nil {
		return storageErr("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored invoices.
func (r *InvoiceRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Invoice{}).Count(&n).Error; err != nil {
		return 0, storageErr("count", err)
	}
	return n, nil
}

func decodeItems(invoice *models.Invoice) error {
	items, err := lineitems.Decode(invoice.ItemsBlob)
	if err != nil {
		return fmt.Errorf("invoice %d: %w", invoice.ID, err)
	}
	invoice.Items = items
	return nil
}

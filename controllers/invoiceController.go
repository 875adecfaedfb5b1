package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"invoice-backend/lineitems"
	"invoice-backend/metrics"
	"invoice-backend/middlewares"
	"invoice-backend/models"
	"invoice-backend/render"
	"invoice-backend/repository"
	"invoice-backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// InvoiceStore is the persistence the invoice handlers need.
type InvoiceStore interface {
	Create(ctx context.Context, in repository.NewInvoice) (models.Invoice, error)
	GetByID(ctx context.Context, id uint) (models.Invoice, error)
	ListRecent(ctx context.Context, limit int) ([]models.Invoice, error)
	Update(ctx context.Context, id uint, patch repository.InvoicePatch) (models.Invoice, error)
	Delete(ctx context.Context, id uint) error
	Count(ctx context.Context) (int64, error)
}

type LineItemDTO struct {
	Item     string  `json:"item" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gte=0,lte=1000000000"`
	Price    float64 `json:"price" validate:"gte=0,lte=1000000000"`
}

type CreateInvoiceDTO struct {
	InvoiceNumber  string        `json:"invoiceNumber" validate:"required"`
	InvoiceDate    string        `json:"invoiceDate" validate:"required"`
	InvoiceDueDate string        `json:"invoiceDueDate"`
	ClientName     string        `json:"clientName" validate:"required"`
	ClientAddress  string        `json:"clientAddress"`
	ClientPostcode string        `json:"clientPostcode"`
	ClientEmail    string        `json:"clientEmail" validate:"omitempty,email"`
	ClientPhone    string        `json:"clientPhone"`
	Description    string        `json:"description"`
	Items          []LineItemDTO `json:"items" validate:"required,dive"`
	// Advisory only; the stored total is computed from items.
	GrandTotal *float64 `json:"grandTotal" validate:"omitempty,gte=0"`

	// Field names sent by the original front-end.
	InvoiceItems []LineItemDTO `json:"invoiceItems" validate:"-"`
	FromDate     string        `json:"fromDate" validate:"-"`
}

type UpdateInvoiceDTO struct {
	InvoiceNumber  *string        `json:"invoiceNumber" validate:"omitempty,min=1"`
	InvoiceDate    *string        `json:"invoiceDate" validate:"omitempty,min=1"`
	InvoiceDueDate *string        `json:"invoiceDueDate"`
	ClientName     *string        `json:"clientName" validate:"omitempty,min=1"`
	Items          *[]LineItemDTO `json:"items" validate:"omitempty,dive"`
	GrandTotal     *float64       `json:"grandTotal" validate:"omitempty,gte=0"`
}

func (in *CreateInvoiceDTO) applyLegacyFields() {
	if in.Items == nil && in.InvoiceItems != nil {
		in.Items = in.InvoiceItems
	}
	if in.InvoiceDueDate == "" {
		in.InvoiceDueDate = in.FromDate
	}
	in.InvoiceItems = nil
	in.FromDate = ""
}

type InvoiceController struct {
	store            InvoiceStore
	renderer         *render.Renderer
	metrics          *metrics.Metrics
	log              *zap.Logger
	listLimitDefault int
	listLimitMax     int
}

type InvoiceControllerConfig struct {
	ListLimitDefault int
	ListLimitMax     int
}

func NewInvoiceController(store InvoiceStore, renderer *render.Renderer, m *metrics.Metrics, log *zap.Logger, cfg InvoiceControllerConfig) *InvoiceController {
	if cfg.ListLimitDefault <= 0 {
		cfg.ListLimitDefault = 10
	}
	if cfg.ListLimitMax < cfg.ListLimitDefault {
		cfg.ListLimitMax = cfg.ListLimitDefault
	}
	return &InvoiceController{
		store:            store,
		renderer:         renderer,
		metrics:          m,
		log:              log.Named("invoices"),
		listLimitDefault: cfg.ListLimitDefault,
		listLimitMax:     cfg.ListLimitMax,
	}
}

// POST /api/invoices
func (ctl *InvoiceController) CreateInvoice(c *fiber.Ctx) error {
	var in CreateInvoiceDTO
	if err := middlewares.Bind(c, &in); err != nil {
		return err
	}
	in.applyLegacyFields()
	utils.TrimStrings(&in)
	if err := middlewares.ValidateStruct(&in); err != nil {
		return err
	}

	invoice, err := ctl.store.Create(c.UserContext(), repository.NewInvoice{
		InvoiceNumber:  in.InvoiceNumber,
		InvoiceDate:    in.InvoiceDate,
		InvoiceDueDate: in.InvoiceDueDate,
		ClientName:     in.ClientName,
		ClientAddress:  in.ClientAddress,
		ClientPostcode: in.ClientPostcode,
		ClientEmail:    in.ClientEmail,
		ClientPhone:    in.ClientPhone,
		Description:    in.Description,
		Items:          toLineItems(in.Items),
	})
	ctl.observe("create", err)
	if err != nil {
		return err
	}
	ctl.checkClientTotal(invoice, in.GrandTotal)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":         invoice.ID,
		"grandTotal": invoice.GrandTotal,
	})
}

// GET /api/invoices?limit=N
func (ctl *InvoiceController) GetInvoices(c *fiber.Ctx) error {
	limit := utils.ParseLimit(c.Query("limit"), ctl.listLimitDefault, ctl.listLimitMax)

	invoices, err := ctl.store.ListRecent(c.UserContext(), limit)
	ctl.observe("list", err)
	if err != nil {
		return err
	}
	return c.JSON(invoices)
}

// GET /api/invoices/:id
func (ctl *InvoiceController) GetInvoice(c *fiber.Ctx) error {
	invoice, err := ctl.load(c)
	if err != nil {
		return err
	}
	return c.JSON(invoice)
}

// PUT /api/invoices/:id
func (ctl *InvoiceController) UpdateInvoice(c *fiber.Ctx) error {
	id, err := invoiceID(c)
	if err != nil {
		return err
	}

	var in UpdateInvoiceDTO
	if err := middlewares.Bind(c, &in); err != nil {
		return err
	}
	utils.TrimStrings(&in)
	if err := middlewares.ValidateStruct(&in); err != nil {
		return err
	}

	patch := repository.InvoicePatch{
		InvoiceNumber:  in.InvoiceNumber,
		InvoiceDate:    in.InvoiceDate,
		InvoiceDueDate: in.InvoiceDueDate,
		ClientName:     in.ClientName,
	}
	if in.Items != nil {
		items := toLineItems(*in.Items)
		patch.Items = &items
	}

	invoice, err := ctl.store.Update(c.UserContext(), id, patch)
	ctl.observe("update", err)
	if err != nil {
		return err
	}
	if in.Items != nil {
		ctl.checkClientTotal(invoice, in.GrandTotal)
	}
	return c.JSON(invoice)
}

// DELETE /api/invoices/:id
func (ctl *InvoiceController) DeleteInvoice(c *fiber.Ctx) error {
	id, err := invoiceID(c)
	if err != nil {
		return err
	}

	err = ctl.store.Delete(c.UserContext(), id)
	ctl.observe("delete", err)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Invoice deleted successfully"})
}

// GET /api/invoices/:id/html
func (ctl *InvoiceController) GetInvoiceHTML(c *fiber.Ctx) error {
	invoice, err := ctl.load(c)
	if err != nil {
		return err
	}
	page, err := ctl.renderer.HTML(invoice)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.SendString(page)
}

// GET /api/invoices/:id/pdf
func (ctl *InvoiceController) GetInvoicePDF(c *fiber.Ctx) error {
	invoice, err := ctl.load(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := ctl.renderer.PDF(&buf, invoice); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="invoice-%d.pdf"`, invoice.ID))
	return c.Send(buf.Bytes())
}

// GET /healthz
func (ctl *InvoiceController) Health(c *fiber.Ctx) error {
	n, err := ctl.store.Count(c.UserContext())
	if err != nil {
		ctl.log.Warn("health check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok", "invoices": n})
}

func (ctl *InvoiceController) load(c *fiber.Ctx) (models.Invoice, error) {
	id, err := invoiceID(c)
	if err != nil {
		return models.Invoice{}, err
	}
	invoice, err := ctl.store.GetByID(c.UserContext(), id)
	ctl.observe("get", err)
	return invoice, err
}

// checkClientTotal logs when a client-supplied total disagrees with the
// computed one. The computed total is what gets stored either way.
func (ctl *InvoiceController) checkClientTotal(invoice models.Invoice, clientTotal *float64) {
	if clientTotal == nil || utils.SameCents(*clientTotal, invoice.GrandTotal) {
		return
	}
	ctl.log.Warn("client grand total differs from items",
		zap.Uint("invoice_id", invoice.ID),
		zap.Float64("client_total", *clientTotal),
		zap.Float64("computed_total", invoice.GrandTotal),
	)
}

func (ctl *InvoiceController) observe(op string, err error) {
	var corrupt *lineitems.CorruptDataError
	var storage *repository.StorageError
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		result = "not_found"
	case errors.Is(err, repository.ErrInvalidTotal):
		result = "invalid"
	case errors.As(err, &corrupt):
		result = "corrupt"
	case errors.As(err, &storage):
		result = "storage_error"
	default:
		result = "error"
	}
	ctl.metrics.ObserveInvoiceOp(op, result)
}

func invoiceID(c *fiber.Ctx) (uint, error) {
	id, err := utils.ParseID(c.Params("id"))
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid invoice id")
	}
	return id, nil
}

func toLineItems(in []LineItemDTO) []models.LineItem {
	items := make([]models.LineItem, 0, len(in))
	for _, it := range in {
		items = append(items, models.LineItem{
			Item:     it.Item,
			Quantity: it.Quantity,
			Price:    it.Price,
		})
	}
	return items
}

package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"invoice-backend/config"
	"invoice-backend/database"
	"invoice-backend/lineitems"
	"invoice-backend/metrics"
	"invoice-backend/middlewares"
	"invoice-backend/models"
	"invoice-backend/render"
	"invoice-backend/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newController(t *testing.T, store InvoiceStore) (*InvoiceController, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	ctl := NewInvoiceController(store, render.NewRenderer(config.Seller{Name: "ScrewFast Ltd"}), m, zap.NewNop(),
		InvoiceControllerConfig{ListLimitDefault: 2, ListLimitMax: 3})
	return ctl, m
}

func newApp(ctl *InvoiceController) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: middlewares.ErrorHandler(zap.NewNop())})
	app.Get("/healthz", ctl.Health)
	app.Post("/invoices", ctl.CreateInvoice)
	app.Get("/invoices", ctl.GetInvoices)
	app.Get("/invoices/:id", ctl.GetInvoice)
	app.Put("/invoices/:id", ctl.UpdateInvoice)
	app.Delete("/invoices/:id", ctl.DeleteInvoice)
	app.Get("/invoices/:id/html", ctl.GetInvoiceHTML)
	app.Get("/invoices/:id/pdf", ctl.GetInvoicePDF)
	return app
}

func setupApp(t *testing.T) (*fiber.App, *metrics.Metrics) {
	t.Helper()
	db, err := database.Open(config.Database{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "invoices.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.Migrate(db))

	ctl, m := newController(t, repository.NewInvoiceRepository(db))
	return newApp(ctl), m
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

const widgetInvoice = `{
	"invoiceNumber": "INV-1",
	"invoiceDate": "2024-01-01",
	"invoiceDueDate": "2024-01-31",
	"clientName": "  Acme  ",
	"clientEmail": "billing@acme.test",
	"items": [{"item": "Widget", "quantity": 3, "price": 2.50}]
}`

func createInvoice(t *testing.T, app *fiber.App, body string) uint {
	t.Helper()
	status, out := doJSON(t, app, http.MethodPost, "/invoices", body)
	require.Equal(t, http.StatusCreated, status, string(out))
	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(out, &created))
	return created.ID
}

func TestCreateInvoice_ReturnsIDAndComputedTotal(t *testing.T) {
	app, m := setupApp(t)

	status, out := doJSON(t, app, http.MethodPost, "/invoices", widgetInvoice)
	require.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{"id":1,"grandTotal":7.5}`, string(out))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoiceOps().WithLabelValues("create", "ok")))

	status, out = doJSON(t, app, http.MethodGet, "/invoices/1", "")
	require.Equal(t, http.StatusOK, status)
	var got models.Invoice
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "Acme", got.ClientName)
	assert.Equal(t, "2024-01-31", got.InvoiceDueDate)
	assert.Equal(t, []models.LineItem{{Item: "Widget", Quantity: 3, Price: 2.5}}, got.Items)
	assert.Equal(t, 7.5, got.GrandTotal)
}

func TestCreateInvoice_IgnoresClientTotal(t *testing.T) {
	app, _ := setupApp(t)

	body := `{"invoiceNumber":"INV-2","invoiceDate":"2024-01-01","clientName":"Acme",
		"items":[{"item":"Bolt","quantity":2,"price":1.25}],"grandTotal":999}`
	status, out := doJSON(t, app, http.MethodPost, "/invoices", body)
	require.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{"id":1,"grandTotal":2.5}`, string(out))
}

func TestCreateInvoice_LegacyFieldNames(t *testing.T) {
	app, _ := setupApp(t)

	body := `{"invoiceNumber":"INV-3","invoiceDate":"2024-02-01","fromDate":"2024-03-01","clientName":"Acme",
		"invoiceItems":[{"item":"Nut","quantity":4,"price":0.5}]}`
	id := createInvoice(t, app, body)

	_, out := doJSON(t, app, http.MethodGet, "/invoices/"+itoa(id), "")
	var got models.Invoice
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "2024-03-01", got.InvoiceDueDate)
	assert.Equal(t, []models.LineItem{{Item: "Nut", Quantity: 4, Price: 0.5}}, got.Items)
	assert.Equal(t, 2.0, got.GrandTotal)
}

func TestCreateInvoice_Validation(t *testing.T) {
	app, _ := setupApp(t)

	body := `{"invoiceDate":"2024-01-01","clientName":"  ","clientEmail":"nope",
		"items":[{"item":"Widget","quantity":-1,"price":2}]}`
	status, out := doJSON(t, app, http.MethodPost, "/invoices", body)
	require.Equal(t, http.StatusUnprocessableEntity, status)

	var resp struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(out, &resp))
	assert.Equal(t, "validation failed", resp.Message)
	assert.Equal(t, "required", resp.Errors["invoiceNumber"])
	assert.Equal(t, "required", resp.Errors["clientName"])
	assert.Equal(t, "email", resp.Errors["clientEmail"])
	assert.Equal(t, "gte", resp.Errors["items[0].quantity"])
}

func TestCreateInvoice_HugeNumbersRejected(t *testing.T) {
	app, _ := setupApp(t)

	body := `{"invoiceNumber":"INV-1","invoiceDate":"2024-01-01","clientName":"Acme",
		"items":[{"item":"w","quantity":1e200,"price":1e200}]}`
	status, out := doJSON(t, app, http.MethodPost, "/invoices", body)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, string(out), `"items[0].quantity":"lte"`)
	assert.Contains(t, string(out), `"items[0].price":"lte"`)

	status, out = doJSON(t, app, http.MethodGet, "/invoices", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(out))

	id := createInvoice(t, app, widgetInvoice)
	status, _ = doJSON(t, app, http.MethodPut, "/invoices/"+itoa(id),
		`{"items":[{"item":"w","quantity":1e200,"price":1e200}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, out = doJSON(t, app, http.MethodGet, "/invoices/"+itoa(id), "")
	require.Equal(t, http.StatusOK, status)
	var got models.Invoice
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, 7.5, got.GrandTotal)
}

func TestCreateInvoice_OverflowingTotalFromStore(t *testing.T) {
	ctl, m := newController(t, failingStore{err: repository.ErrInvalidTotal})
	app := newApp(ctl)

	status, out := doJSON(t, app, http.MethodPost, "/invoices", widgetInvoice)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.JSONEq(t, `{"message":"invoice total is out of range"}`, string(out))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoiceOps().WithLabelValues("create", "invalid")))
}

func TestCreateInvoice_MissingItems(t *testing.T) {
	app, _ := setupApp(t)

	status, out := doJSON(t, app, http.MethodPost, "/invoices",
		`{"invoiceNumber":"INV-1","invoiceDate":"2024-01-01","clientName":"Acme"}`)
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, string(out), `"items":"required"`)
}

func TestCreateInvoice_MalformedBody(t *testing.T) {
	app, _ := setupApp(t)

	status, out := doJSON(t, app, http.MethodPost, "/invoices", `{"invoiceNumber":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"message":"invalid request body"}`, string(out))
}

func TestGetInvoices_MostRecentFirstWithLimit(t *testing.T) {
	app, _ := setupApp(t)
	for _, n := range []string{"Z-1", "A-2", "M-3", "B-4"} {
		createInvoice(t, app, `{"invoiceNumber":"`+n+`","invoiceDate":"2024-01-01","clientName":"Acme","items":[]}`)
	}

	numbers := func(path string) []string {
		status, out := doJSON(t, app, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, status)
		var list []models.Invoice
		require.NoError(t, json.Unmarshal(out, &list))
		var ns []string
		for _, inv := range list {
			ns = append(ns, inv.InvoiceNumber)
		}
		return ns
	}

	assert.Equal(t, []string{"B-4"}, numbers("/invoices?limit=1"))
	// Clamped to the configured maximum of 3.
	assert.Equal(t, []string{"B-4", "M-3", "A-2"}, numbers("/invoices?limit=50"))
	assert.Equal(t, []string{"B-4", "M-3"}, numbers("/invoices"))
}

func TestGetInvoices_EmptyIsArray(t *testing.T) {
	app, _ := setupApp(t)

	status, out := doJSON(t, app, http.MethodGet, "/invoices", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(out))
}

func TestGetInvoice_NotFoundAndBadID(t *testing.T) {
	app, m := setupApp(t)

	status, out := doJSON(t, app, http.MethodGet, "/invoices/42", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"message":"invoice not found"}`, string(out))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoiceOps().WithLabelValues("get", "not_found")))

	for _, id := range []string{"abc", "0", "-3"} {
		status, out = doJSON(t, app, http.MethodGet, "/invoices/"+id, "")
		assert.Equal(t, http.StatusBadRequest, status, id)
		assert.JSONEq(t, `{"message":"invalid invoice id"}`, string(out))
	}
}

func TestUpdateInvoice_PartialReplace(t *testing.T) {
	app, _ := setupApp(t)
	id := createInvoice(t, app, widgetInvoice)

	status, out := doJSON(t, app, http.MethodPut, "/invoices/"+itoa(id),
		`{"clientName":"Globex","items":[{"item":"Gear","quantity":2,"price":10}]}`)
	require.Equal(t, http.StatusOK, status, string(out))

	var got models.Invoice
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "Globex", got.ClientName)
	assert.Equal(t, "INV-1", got.InvoiceNumber)
	assert.Equal(t, "billing@acme.test", got.ClientEmail)
	assert.Equal(t, 20.0, got.GrandTotal)
	assert.Equal(t, []models.LineItem{{Item: "Gear", Quantity: 2, Price: 10}}, got.Items)
}

func TestUpdateInvoice_NotFound(t *testing.T) {
	app, _ := setupApp(t)

	status, _ := doJSON(t, app, http.MethodPut, "/invoices/7", `{"clientName":"Globex"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, out := doJSON(t, app, http.MethodGet, "/invoices", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(out))
}

func TestUpdateInvoice_RejectsBlankRequiredField(t *testing.T) {
	app, _ := setupApp(t)
	id := createInvoice(t, app, widgetInvoice)

	status, out := doJSON(t, app, http.MethodPut, "/invoices/"+itoa(id), `{"invoiceNumber":"   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, string(out), `"invoiceNumber":"min"`)
}

func TestDeleteInvoice_Twice(t *testing.T) {
	app, _ := setupApp(t)
	id := createInvoice(t, app, widgetInvoice)

	status, out := doJSON(t, app, http.MethodDelete, "/invoices/"+itoa(id), "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Invoice deleted successfully"}`, string(out))

	status, _ = doJSON(t, app, http.MethodDelete, "/invoices/"+itoa(id), "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGetInvoiceHTML(t *testing.T) {
	app, _ := setupApp(t)
	id := createInvoice(t, app, widgetInvoice)

	req := httptest.NewRequest(http.MethodGet, "/invoices/"+itoa(id)+"/html", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, fiber.MIMETextHTMLCharsetUTF8, resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "INV-1")
	assert.Contains(t, string(body), "Widget")
	assert.Contains(t, string(body), "7.50")
}

func TestGetInvoicePDF(t *testing.T) {
	app, _ := setupApp(t)
	id := createInvoice(t, app, widgetInvoice)

	req := httptest.NewRequest(http.MethodGet, "/invoices/"+itoa(id)+"/pdf", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="invoice-1.pdf"`, resp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(string(body), "%PDF-"))
}

func TestHealth(t *testing.T) {
	app, _ := setupApp(t)
	createInvoice(t, app, widgetInvoice)

	status, out := doJSON(t, app, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok","invoices":1}`, string(out))
}

// failingStore returns the same error from every call.
type failingStore struct{ err error }

func (s failingStore) Create(context.Context, repository.NewInvoice) (models.Invoice, error) {
	return models.Invoice{}, s.err
}
func (s failingStore) GetByID(context.Context, uint) (models.Invoice, error) {
	return models.Invoice{}, s.err
}
func (s failingStore) ListRecent(context.Context, int) ([]models.Invoice, error) { return nil, s.err }
func (s failingStore) Update(context.Context, uint, repository.InvoicePatch) (models.Invoice, error) {
	return models.Invoice{}, s.err
}
func (s failingStore) Delete(context.Context, uint) error   { return s.err }
func (s failingStore) Count(context.Context) (int64, error) { return 0, s.err }

func TestStoreFailures_AreInternalErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		result string
	}{
		{"corrupt items", &lineitems.CorruptDataError{Err: errors.New("unexpected end of JSON input")}, "corrupt"},
		{"storage", &repository.StorageError{Op: "get", Err: errors.New("database is locked")}, "storage_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl, m := newController(t, failingStore{err: tt.err})
			app := newApp(ctl)

			status, out := doJSON(t, app, http.MethodGet, "/invoices/1", "")
			assert.Equal(t, http.StatusInternalServerError, status)
			assert.JSONEq(t, `{"message":"internal server error"}`, string(out))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.InvoiceOps().WithLabelValues("get", tt.result)))

			status, _ = doJSON(t, app, http.MethodPost, "/invoices", widgetInvoice)
			assert.Equal(t, http.StatusInternalServerError, status)
		})
	}
}

func TestHealth_Unavailable(t *testing.T) {
	ctl, _ := newController(t, failingStore{err: &repository.StorageError{Op: "count", Err: errors.New("closed")}})
	app := newApp(ctl)

	status, out := doJSON(t, app, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.JSONEq(t, `{"status":"unavailable"}`, string(out))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

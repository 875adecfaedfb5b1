package routes

import (
	"invoice-backend/config"
	"invoice-backend/controllers"
	"invoice-backend/metrics"
	"invoice-backend/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP app is built from.
type Deps struct {
	Config   config.Config
	DB       *gorm.DB
	Invoices *controllers.InvoiceController
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

// NewApp builds the fiber app with its global middleware chain and routes.
func NewApp(d Deps) *fiber.App {
	// ---- Fiber app with global error handler + body limit
	app := fiber.New(fiber.Config{
		ErrorHandler:          middlewares.ErrorHandler(d.Log),
		BodyLimit:             d.Config.BodyLimitBytes,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(middlewares.RequestLogger(d.Log))

	// ---- CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins:     d.Config.AllowedOrigins,
		AllowCredentials: false,
		AllowHeaders:     "Origin, Content-Type, Accept, Idempotency-Key",
	}))

	// ---- Global rate limiter (applies to all routes; tune via env)
	if d.Config.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        d.Config.RateLimitMax,
			Expiration: d.Config.RateLimitWindow,
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/healthz" || c.Path() == "/metrics"
			},
		}))
	}

	app.Use(d.Metrics.Middleware())

	Register(app, d)
	return app
}

// Register wires all HTTP routes.
func Register(app *fiber.App, d Deps) {
	app.Get("/healthz", d.Invoices.Health)
	app.Get("/metrics", d.Metrics.Handler())

	idempotent := middlewares.Idempotency(d.DB, d.Log)
	ctl := d.Invoices

	api := app.Group("/api", idempotent)
	api.Post("/invoices", ctl.CreateInvoice)
	api.Get("/invoices", ctl.GetInvoices)
	api.Get("/invoices/:id", ctl.GetInvoice)
	api.Put("/invoices/:id", ctl.UpdateInvoice)
	api.Delete("/invoices/:id", ctl.DeleteInvoice)
	api.Get("/invoices/:id/html", ctl.GetInvoiceHTML)
	api.Get("/invoices/:id/pdf", ctl.GetInvoicePDF)

	// Paths used by the original front-end.
	app.Post("/", idempotent, ctl.CreateInvoice)
	app.Get("/", ctl.GetInvoices)
	legacy := app.Group("/invoices", idempotent)
	legacy.Get("/:id", ctl.GetInvoice)
	legacy.Put("/:id", ctl.UpdateInvoice)
	legacy.Delete("/:id", ctl.DeleteInvoice)
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoice-backend/config"
	"invoice-backend/controllers"
	"invoice-backend/database"
	"invoice-backend/metrics"
	"invoice-backend/render"
	"invoice-backend/repository"
	"invoice-backend/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and serve the invoice API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(opts)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			app, db, err := buildApp(cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, app, cfg.Port, log)
		},
	}
}

// buildApp opens and migrates the database and assembles the HTTP app.
func buildApp(cfg config.Config, log *zap.Logger) (*fiber.App, *gorm.DB, error) {
	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, nil, err
	}

	m := metrics.New()
	invoices := controllers.NewInvoiceController(
		repository.NewInvoiceRepository(db),
		render.NewRenderer(cfg.Seller),
		m,
		log,
		controllers.InvoiceControllerConfig{
			ListLimitDefault: cfg.ListLimitDefault,
			ListLimitMax:     cfg.ListLimitMax,
		},
	)

	app := routes.NewApp(routes.Deps{
		Config:   cfg,
		DB:       db,
		Invoices: invoices,
		Metrics:  m,
		Log:      log,
	})
	return app, db, nil
}

// serve listens until ctx is cancelled, then shuts the app down gracefully.
func serve(ctx context.Context, app *fiber.App, port string, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting", zap.String("port", port))
		errCh <- app.Listen(":" + port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

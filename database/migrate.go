package database

import (
	"fmt"

	"invoice-backend/models"

	"gorm.io/gorm"
)

// invoicesDDL creates the invoices table per dialect. Both variants hand out
// ids from a counter that never goes backwards, so ids are not reused after delete.
var invoicesDDL = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS invoices (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	invoice_number   TEXT,
	invoice_date     TEXT,
	invoice_due_date TEXT,
	client_name      TEXT,
	client_address   TEXT,
	client_postcode  TEXT,
	client_email     TEXT,
	client_phone     TEXT,
	description      TEXT,
	items            TEXT NOT NULL,
	grand_total      REAL NOT NULL CHECK (grand_total >= 0)
)`,
	"postgres": `CREATE TABLE IF NOT EXISTS invoices (
	id               BIGSERIAL PRIMARY KEY,
	invoice_number   TEXT,
	invoice_date     TEXT,
	invoice_due_date TEXT,
	client_name      TEXT,
	client_address   TEXT,
	client_postcode  TEXT,
	client_email     TEXT,
	client_phone     TEXT,
	description      TEXT,
	items            TEXT NOT NULL,
	grand_total      DOUBLE PRECISION NOT NULL CHECK (grand_total >= 0)
)`,
}

// Migrate applies idempotent schema migrations:
// - invoices table (dialect specific DDL)
// - idempotency_keys table (AutoMigrate)
func Migrate(db *gorm.DB) error {
	dialect := db.Dialector.Name()
	ddl, ok := invoicesDDL[dialect]
	if !ok {
		return fmt.Errorf("no invoices schema for dialect %q", dialect)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(ddl).Error; err != nil {
			return fmt.Errorf("create invoices table failed: %w", err)
		}
		if err := tx.AutoMigrate(&models.IdempotencyKey{}); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}
		return nil
	})
}

package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ksred/procurement-api/internal/database/migrations"
	"github.com/ksred/procurement-api/internal/types"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	if path == "" {
		path = "procurement.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate schemas
	err = db.AutoMigrate(
		&types.User{},
		&types.Supplier{},
		&types.Warehouse{},
		&types.Product{},
		&types.InventoryRecord{},
		&types.Order{},
		&types.OrderItem{},
		&types.Transaction{},
	)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddTransactionIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.AddOrderIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

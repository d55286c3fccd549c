package migrations

import (
	"gorm.io/gorm"
)

// AddOrderIndexes creates indexes for the common order and item lookups.
func AddOrderIndexes(db *gorm.DB) error {
	indexes := []string{
		// Listing a user's orders
		`CREATE INDEX IF NOT EXISTS idx_orders_created_by
		 ON orders(created_by)`,

		// Ledger operations load all items of an order
		`CREATE INDEX IF NOT EXISTS idx_order_items_order_id
		 ON order_items(order_id)`,

		// Inventory queries per warehouse
		`CREATE INDEX IF NOT EXISTS idx_inventory_records_warehouse_id
		 ON inventory_records(warehouse_id)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}

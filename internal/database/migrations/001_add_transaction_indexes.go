package migrations

import (
	"gorm.io/gorm"
)

// AddTransactionIndexes creates the indexes the reconciliation sweep and the
// duplicate-submission check depend on.
func AddTransactionIndexes(db *gorm.DB) error {
	indexes := []string{
		// The sweep scans submitted rows oldest first
		`CREATE INDEX IF NOT EXISTS idx_transactions_status_created_at
		 ON transactions(status, created_at)`,

		// Duplicate-submission check per (order, action)
		`CREATE INDEX IF NOT EXISTS idx_transactions_order_action_status
		 ON transactions(order_id, action, status)`,

		// Listing an order's transactions
		`CREATE INDEX IF NOT EXISTS idx_transactions_order_id
		 ON transactions(order_id)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}

package reconcile

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ksred/procurement-api/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// GetSubmittedTransactions returns all in-flight transactions oldest first,
// preserving submission order for transactions targeting the same order.
func (d *Database) GetSubmittedTransactions() ([]types.Transaction, error) {
	var txs []types.Transaction
	err := d.db.Where("status = ?", types.TxStatusSubmitted).
		Order("created_at ASC").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}

func (d *Database) UpdateTransactionStatus(tx *types.Transaction, status string) error {
	tx.Status = status
	tx.UpdatedAt = time.Now()
	return d.db.Save(tx).Error
}

func (d *Database) GetOrder(orderID string) (*types.Order, error) {
	var order types.Order
	if err := d.db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (d *Database) UpdateOrder(order *types.Order) error {
	return d.db.Save(order).Error
}

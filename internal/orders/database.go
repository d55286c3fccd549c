package orders

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ksred/procurement-api/internal/types"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateOrder(order *types.Order) error {
	return d.db.Create(order).Error
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

func (d *Database) GetOrdersByCreator(userID string) ([]types.Order, error) {
	var orders []types.Order
	if err := d.db.Where("created_by = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *Database) UpdateOrder(order *types.Order) error {
	return d.db.Save(order).Error
}

func (d *Database) GetSupplier(supplierID string) (*types.Supplier, error) {
	var supplier types.Supplier
	if err := d.db.Where("supplier_id = ?", supplierID).First(&supplier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &supplier, nil
}

func (d *Database) GetWarehouse(warehouseID string) (*types.Warehouse, error) {
	var warehouse types.Warehouse
	if err := d.db.Where("warehouse_id = ?", warehouseID).First(&warehouse).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &warehouse, nil
}

func (d *Database) GetProduct(productID string) (*types.Product, error) {
	var product types.Product
	if err := d.db.Where("product_id = ?", productID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

func (d *Database) CreateItem(item *types.OrderItem) error {
	return d.db.Create(item).Error
}

func (d *Database) GetItem(orderID, itemID string) (*types.OrderItem, error) {
	var item types.OrderItem
	if err := d.db.Where("order_id = ? AND item_id = ?", orderID, itemID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (d *Database) GetItems(orderID string) ([]types.OrderItem, error) {
	var items []types.OrderItem
	if err := d.db.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (d *Database) UpdateItem(item *types.OrderItem) error {
	return d.db.Save(item).Error
}

func (d *Database) DeleteItem(item *types.OrderItem) error {
	return d.db.Unscoped().Delete(item).Error
}

func (d *Database) CreateTransaction(tx *types.Transaction) error {
	return d.db.Create(tx).Error
}

// GetSubmittedTransaction returns the in-flight transaction for an
// (order, action) pair, of which there can be at most one.
func (d *Database) GetSubmittedTransaction(orderID, action string) (*types.Transaction, error) {
	var tx types.Transaction
	err := d.db.Where("order_id = ? AND action = ? AND status = ?", orderID, action, types.TxStatusSubmitted).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (d *Database) GetTransactions(orderID string) ([]types.Transaction, error) {
	var txs []types.Transaction
	if err := d.db.Where("order_id = ?", orderID).Order("created_at DESC").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

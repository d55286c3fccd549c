package inventory

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

func (d *Database) GetRecord(warehouseID, productID string) (*types.InventoryRecord, error) {
	return getRecord(d.db, warehouseID, productID)
}

// getRecord reads through the given handle, so callers inside a transaction
// see their own writes.
func getRecord(db *gorm.DB, warehouseID, productID string) (*types.InventoryRecord, error) {
	var record types.InventoryRecord
	if err := db.Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (d *Database) GetWarehouseRecords(warehouseID string) ([]types.InventoryRecord, error) {
	var records []types.InventoryRecord
	if err := d.db.Where("warehouse_id = ?", warehouseID).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (d *Database) GetProductRecords(productID string, warehouseIDs []string) ([]types.InventoryRecord, error) {
	var records []types.InventoryRecord
	if err := d.db.Where("product_id = ? AND warehouse_id IN ?", productID, warehouseIDs).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (d *Database) GetOrderItems(orderID string) ([]types.OrderItem, error) {
	var items []types.OrderItem
	if err := d.db.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
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

func (d *Database) GetSupplierWarehouseIDs(supplierID string) ([]string, error) {
	var ids []string
	if err := d.db.Model(&types.Warehouse{}).Where("supplier_id = ?", supplierID).Pluck("warehouse_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (d *Database) GetSupplierByUserID(userID string) (*types.Supplier, error) {
	var supplier types.Supplier
	if err := d.db.Where("user_id = ?", userID).First(&supplier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &supplier, nil
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

// Transaction runs fn inside a database transaction.
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.db.Transaction(fn)
}

package inventory

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/procurement-api/internal/types"
	"github.com/ksred/procurement-api/pkg/locks"
)

// Service is the inventory ledger. It is the sole authority on available
// and reserved quantities, and serializes every operation per
// (warehouse, product) key.
type Service struct {
	db    *Database
	locks *locks.Keyed
}

// NewService creates a new inventory service with the given database connection
func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db:    NewDatabase(gormDB),
		locks: locks.NewKeyed(),
	}
}

func lockKey(warehouseID, productID string) string {
	return warehouseID + ":" + productID
}

// AddStock increases available quantity, creating the record on first use.
func (s *Service) AddStock(warehouseID, productID string, quantity int64) (*types.InventoryRecord, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", types.ErrValidation)
	}

	unlock := s.locks.Lock(lockKey(warehouseID, productID))
	defer unlock()

	record, err := s.db.GetRecord(warehouseID, productID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if record == nil {
			record = &types.InventoryRecord{
				WarehouseID:       warehouseID,
				ProductID:         productID,
				AvailableQuantity: quantity,
				ReservedQuantity:  0,
				CreatedAt:         time.Now(),
				UpdatedAt:         time.Now(),
			}
			return tx.Create(record).Error
		}

		record.AvailableQuantity += quantity
		record.UpdatedAt = time.Now()
		return tx.Save(record).Error
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("warehouse_id", warehouseID).
		Str("product_id", productID).
		Int64("quantity", quantity).
		Int64("available", record.AvailableQuantity).
		Msg("stock added")

	return record, nil
}

// RemoveStock decreases available quantity. The record is kept even when it
// reaches zero, for historical retention.
func (s *Service) RemoveStock(warehouseID, productID string, quantity int64) (*types.InventoryRecord, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("%w: quantity cannot be negative", types.ErrValidation)
	}

	unlock := s.locks.Lock(lockKey(warehouseID, productID))
	defer unlock()

	record, err := s.db.GetRecord(warehouseID, productID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: inventory record", types.ErrNotFound)
	}

	if record.AvailableQuantity < quantity {
		return nil, fmt.Errorf("%w: available %d, requested %d",
			types.ErrInsufficientStock, record.AvailableQuantity, quantity)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		record.AvailableQuantity -= quantity
		record.UpdatedAt = time.Now()
		return tx.Save(record).Error
	})
	if err != nil {
		return nil, err
	}

	return record, nil
}

// ReserveForOrder moves each item's quantity from available to reserved.
// The operation is all-or-nothing: every record is validated before any is
// mutated, so a failing item leaves earlier items untouched.
func (s *Service) ReserveForOrder(orderID, warehouseID string) error {
	return s.applyForOrder(orderID, warehouseID, func(record *types.InventoryRecord, quantity int64) error {
		if record.AvailableQuantity < quantity {
			return fmt.Errorf("%w for product %s: available %d, requested %d",
				types.ErrInsufficientStock, record.ProductID, record.AvailableQuantity, quantity)
		}
		return nil
	}, func(record *types.InventoryRecord, quantity int64) {
		record.AvailableQuantity -= quantity
		record.ReservedQuantity += quantity
	})
}

// ReleaseForOrder returns reserved quantity to available. The give-back is
// clamped to what is actually reserved, so releasing an order that was never
// reserved cannot mint stock and reserved never goes negative.
func (s *Service) ReleaseForOrder(orderID, warehouseID string) error {
	return s.applyForOrder(orderID, warehouseID, nil,
		func(record *types.InventoryRecord, quantity int64) {
			release := quantity
			if release > record.ReservedQuantity {
				release = record.ReservedQuantity
			}
			record.ReservedQuantity -= release
			record.AvailableQuantity += release
		})
}

// FinalizeForOrder permanently removes reserved quantity: the goods have
// left the warehouse. Available is unchanged.
func (s *Service) FinalizeForOrder(orderID, warehouseID string) error {
	return s.applyForOrder(orderID, warehouseID, nil,
		func(record *types.InventoryRecord, quantity int64) {
			record.ReservedQuantity -= quantity
			if record.ReservedQuantity < 0 {
				record.ReservedQuantity = 0
			}
		})
}

// applyForOrder runs a two-pass (validate all, then mutate all) update over
// every inventory record touched by the order's items, holding the per-key
// locks in sorted order and writing inside one database transaction.
func (s *Service) applyForOrder(
	orderID, warehouseID string,
	validate func(record *types.InventoryRecord, quantity int64) error,
	mutate func(record *types.InventoryRecord, quantity int64),
) error {
	items, err := s.db.GetOrderItems(orderID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: order %s", types.ErrEmptyOrder, orderID)
	}

	// Aggregate quantities per product so the same key is locked and
	// mutated once even when an order repeats a product.
	quantities := make(map[string]int64)
	productIDs := make([]string, 0, len(items))
	for _, item := range items {
		if _, seen := quantities[item.ProductID]; !seen {
			productIDs = append(productIDs, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	keys := make([]string, 0, len(productIDs))
	for _, productID := range productIDs {
		keys = append(keys, lockKey(warehouseID, productID))
	}
	unlock := s.locks.LockAll(keys)
	defer unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		records := make([]*types.InventoryRecord, 0, len(productIDs))
		for _, productID := range productIDs {
			record, err := getRecord(tx, warehouseID, productID)
			if err != nil {
				return err
			}
			if record == nil {
				return fmt.Errorf("%w: inventory record for product %s", types.ErrNotFound, productID)
			}
			if validate != nil {
				if err := validate(record, quantities[productID]); err != nil {
					return err
				}
			}
			records = append(records, record)
		}

		for _, record := range records {
			mutate(record, quantities[record.ProductID])
			record.UpdatedAt = time.Now()
			if err := tx.Save(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

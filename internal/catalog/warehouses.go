package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ksred/procurement-api/internal/types"
)

type WarehouseRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location" binding:"required"`
}

// CreateWarehouse creates a warehouse owned by the caller's supplier.
func (s *Service) CreateWarehouse(callerID string, req WarehouseRequest) (*types.Warehouse, error) {
	supplier, err := s.supplierByUserID(callerID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, fmt.Errorf("%w: supplier account required", types.ErrForbidden)
	}

	warehouse := &types.Warehouse{
		WarehouseID: uuid.New().String(),
		SupplierID:  supplier.SupplierID,
		Name:        req.Name,
		Location:    req.Location,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.db.Create(warehouse).Error; err != nil {
		return nil, err
	}
	return warehouse, nil
}

func (s *Service) GetWarehouses(callerID string) ([]types.Warehouse, error) {
	supplier, err := s.supplierByUserID(callerID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, fmt.Errorf("%w: supplier account required", types.ErrForbidden)
	}

	var warehouses []types.Warehouse
	if err := s.db.Where("supplier_id = ?", supplier.SupplierID).Find(&warehouses).Error; err != nil {
		return nil, err
	}
	return warehouses, nil
}

func (s *Service) UpdateWarehouse(callerID, warehouseID string, req WarehouseRequest) (*types.Warehouse, error) {
	warehouse, err := s.ownedWarehouse(callerID, warehouseID)
	if err != nil {
		return nil, err
	}

	warehouse.Name = req.Name
	warehouse.Location = req.Location
	warehouse.UpdatedAt = time.Now()
	if err := s.db.Save(warehouse).Error; err != nil {
		return nil, err
	}
	return warehouse, nil
}

func (s *Service) DeleteWarehouse(callerID, warehouseID string) error {
	warehouse, err := s.ownedWarehouse(callerID, warehouseID)
	if err != nil {
		return err
	}
	return s.db.Unscoped().Delete(warehouse).Error
}

func (s *Service) ownedWarehouse(callerID, warehouseID string) (*types.Warehouse, error) {
	supplier, err := s.supplierByUserID(callerID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, fmt.Errorf("%w: supplier account required", types.ErrForbidden)
	}

	warehouse, err := s.warehouseByID(warehouseID)
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, fmt.Errorf("%w: warehouse %s", types.ErrNotFound, warehouseID)
	}
	if warehouse.SupplierID != supplier.SupplierID {
		return nil, fmt.Errorf("%w: not authorized for this warehouse", types.ErrForbidden)
	}
	return warehouse, nil
}

package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ksred/procurement-api/internal/types"
)

type SupplierRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactInfo   string `json:"contactInfo" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required"`
}

// CreateSupplier registers the caller as a supplier. One supplier per user.
func (s *Service) CreateSupplier(callerID string, req SupplierRequest) (*types.Supplier, error) {
	existing, err := s.supplierByUserID(callerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: supplier already exists for this user", types.ErrConflict)
	}

	supplier := &types.Supplier{
		SupplierID:    uuid.New().String(),
		UserID:        callerID,
		Name:          req.Name,
		ContactInfo:   req.ContactInfo,
		WalletAddress: req.WalletAddress,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := s.db.Create(supplier).Error; err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *Service) GetSuppliers(callerID string) ([]types.Supplier, error) {
	var suppliers []types.Supplier
	if err := s.db.Where("user_id = ?", callerID).Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

// UpdateSupplier changes a supplier's details. The user link is immutable.
func (s *Service) UpdateSupplier(callerID, supplierID string, req SupplierRequest) (*types.Supplier, error) {
	var supplier types.Supplier
	err := s.db.Where("supplier_id = ? AND user_id = ?", supplierID, callerID).First(&supplier).Error
	if err != nil {
		return nil, fmt.Errorf("%w: supplier %s", types.ErrNotFound, supplierID)
	}

	supplier.Name = req.Name
	supplier.ContactInfo = req.ContactInfo
	supplier.WalletAddress = req.WalletAddress
	supplier.UpdatedAt = time.Now()
	if err := s.db.Save(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (s *Service) DeleteSupplier(callerID, supplierID string) error {
	result := s.db.Unscoped().Where("supplier_id = ? AND user_id = ?", supplierID, callerID).Delete(&types.Supplier{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: supplier %s", types.ErrNotFound, supplierID)
	}
	return nil
}

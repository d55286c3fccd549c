package catalog

import (
	"errors"

	"gorm.io/gorm"

	"github.com/ksred/procurement-api/internal/types"
)

// Service handles supplier, warehouse and product records. These are plain
// ownership-scoped CRUD resources; the only invariants are record existence
// and ownership.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) supplierByUserID(userID string) (*types.Supplier, error) {
	var supplier types.Supplier
	if err := s.db.Where("user_id = ?", userID).First(&supplier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &supplier, nil
}

func (s *Service) warehouseByID(warehouseID string) (*types.Warehouse, error) {
	var warehouse types.Warehouse
	if err := s.db.Where("warehouse_id = ?", warehouseID).First(&warehouse).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &warehouse, nil
}

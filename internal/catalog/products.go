package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ksred/procurement-api/internal/types"
)

type ProductRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (s *Service) CreateProduct(callerID string, req ProductRequest) (*types.Product, error) {
	product := &types.Product{
		ProductID:   uuid.New().String(),
		CreatedBy:   callerID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.db.Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func (s *Service) GetProducts(callerID string) ([]types.Product, error) {
	var products []types.Product
	if err := s.db.Where("created_by = ?", callerID).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Service) UpdateProduct(callerID, productID string, req ProductRequest) (*types.Product, error) {
	var product types.Product
	err := s.db.Where("product_id = ? AND created_by = ?", productID, callerID).First(&product).Error
	if err != nil {
		return nil, fmt.Errorf("%w: product %s", types.ErrNotFound, productID)
	}

	product.Name = req.Name
	product.Description = req.Description
	product.Category = req.Category
	product.UpdatedAt = time.Now()
	if err := s.db.Save(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Service) DeleteProduct(callerID, productID string) error {
	result := s.db.Unscoped().Where("product_id = ? AND created_by = ?", productID, callerID).Delete(&types.Product{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: product %s", types.ErrNotFound, productID)
	}
	return nil
}

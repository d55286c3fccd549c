package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ksred/procurement-api/internal/types"
)

// loadOwnedOrder fetches an order and checks the caller created it.
func (s *Service) loadOwnedOrder(callerID, orderID string) (*types.Order, error) {
	order, err := s.db.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %s", types.ErrNotFound, orderID)
	}
	if order.CreatedBy != callerID {
		return nil, fmt.Errorf("%w: not your order", types.ErrForbidden)
	}
	return order, nil
}

// Items are writable only while the owning order is pending; once the order
// leaves pending they are frozen.
func itemsWritable(order *types.Order) error {
	if order.Status != types.OrderStatusPending {
		return fmt.Errorf("%w: order items can only be modified while the order is pending", types.ErrValidation)
	}
	return nil
}

// AddItem appends an item to a pending order.
func (s *Service) AddItem(callerID, orderID, productID string, quantity int64) (*types.OrderItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be a positive integer", types.ErrValidation)
	}

	unlock := s.lockOrder(orderID)
	defer unlock()

	order, err := s.loadOwnedOrder(callerID, orderID)
	if err != nil {
		return nil, err
	}
	if err := itemsWritable(order); err != nil {
		return nil, err
	}

	product, err := s.db.GetProduct(productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: product %s", types.ErrNotFound, productID)
	}

	item := &types.OrderItem{
		ItemID:    uuid.New().String(),
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.db.CreateItem(item); err != nil {
		return nil, err
	}

	return item, nil
}

// GetItems lists an order's items.
func (s *Service) GetItems(callerID, orderID string) ([]types.OrderItem, error) {
	if _, err := s.loadOwnedOrder(callerID, orderID); err != nil {
		return nil, err
	}
	return s.db.GetItems(orderID)
}

// UpdateItem changes an item's quantity while the order is pending.
func (s *Service) UpdateItem(callerID, orderID, itemID string, quantity int64) (*types.OrderItem, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be a positive integer", types.ErrValidation)
	}

	unlock := s.lockOrder(orderID)
	defer unlock()

	order, err := s.loadOwnedOrder(callerID, orderID)
	if err != nil {
		return nil, err
	}
	if err := itemsWritable(order); err != nil {
		return nil, err
	}

	item, err := s.db.GetItem(orderID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: order item %s", types.ErrNotFound, itemID)
	}

	item.Quantity = quantity
	item.UpdatedAt = time.Now()
	if err := s.db.UpdateItem(item); err != nil {
		return nil, err
	}

	return item, nil
}

// DeleteItem removes an item while the order is pending.
func (s *Service) DeleteItem(callerID, orderID, itemID string) error {
	unlock := s.lockOrder(orderID)
	defer unlock()

	order, err := s.loadOwnedOrder(callerID, orderID)
	if err != nil {
		return err
	}
	if err := itemsWritable(order); err != nil {
		return err
	}

	item, err := s.db.GetItem(orderID, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return fmt.Errorf("%w: order item %s", types.ErrNotFound, itemID)
	}

	return s.db.DeleteItem(item)
}

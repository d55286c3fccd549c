package orders

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ksred/procurement-api/internal/auth"
	"github.com/ksred/procurement-api/internal/types"
	"github.com/ksred/procurement-api/pkg/response"
)

// GinHandlers contains HTTP handlers for order endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for order endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func callerID(c *gin.Context) (string, bool) {
	userID, err := auth.CallerID(c)
	if err != nil {
		response.Unauthorized(c, "Missing authentication claims")
		return "", false
	}
	return userID, true
}

// CreateOrderHandler handles POST requests to create new orders
func (h *GinHandlers) CreateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		var req types.CreateOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Please provide all required fields")
			return
		}

		order, err := h.service.CreateOrder(userID, req.OrderType, req.WarehouseID)
		response.Handle(c, gin.H{"order": order}, err)
	}
}

// GetOrdersHandler handles GET requests to list the caller's orders
func (h *GinHandlers) GetOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		orders, err := h.service.GetOrders(userID)
		response.Handle(c, gin.H{"orders": orders}, err)
	}
}

// AssignSupplierHandler handles PATCH requests to bind a supplier to an order
func (h *GinHandlers) AssignSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		var req types.AssignSupplierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Supplier ID is required")
			return
		}

		order, err := h.service.AssignSupplier(userID, c.Param("order_id"), req.SupplierID)
		response.Handle(c, gin.H{"order": order}, err)
	}
}

// UpdateStatusHandler handles PATCH requests to transition an order.
// Responds 200 when the transition applied synchronously, 202 with the
// submitted transaction when the effect is deferred to reconciliation, and
// 409 with the existing transaction on a duplicate submission.
func (h *GinHandlers) UpdateStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		var req types.UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Status is required")
			return
		}

		result, err := h.service.UpdateStatus(c.Request.Context(), userID, c.Param("order_id"), req.Status, req.TransactionHash)
		if err != nil {
			if errors.Is(err, types.ErrConflict) && result != nil && result.Transaction != nil {
				response.ConflictWithData(c, err.Error(), gin.H{"transaction": result.Transaction})
				return
			}
			response.Handle(c, nil, err)
			return
		}

		if result.Applied {
			response.Handle(c, result, nil)
			return
		}
		response.Accepted(c, result)
	}
}

// AddItemHandler handles POST requests to add an item to an order
func (h *GinHandlers) AddItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		var req types.OrderItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Product ID and quantity are required")
			return
		}

		item, err := h.service.AddItem(userID, c.Param("order_id"), req.ProductID, req.Quantity)
		response.Handle(c, item, err)
	}
}

// GetItemsHandler handles GET requests to list an order's items
func (h *GinHandlers) GetItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		items, err := h.service.GetItems(userID, c.Param("order_id"))
		response.Handle(c, gin.H{"items": items}, err)
	}
}

// UpdateItemHandler handles PUT requests to change an item's quantity
func (h *GinHandlers) UpdateItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		var req struct {
			Quantity int64 `json:"quantity" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Quantity is required")
			return
		}

		item, err := h.service.UpdateItem(userID, c.Param("order_id"), c.Param("item_id"), req.Quantity)
		response.Handle(c, item, err)
	}
}

// DeleteItemHandler handles DELETE requests to remove an item
func (h *GinHandlers) DeleteItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		err := h.service.DeleteItem(userID, c.Param("order_id"), c.Param("item_id"))
		response.Handle(c, gin.H{"message": "order item deleted"}, err)
	}
}

// RecordTransactionHandler handles POST requests to record a
// client-attested transaction against an order
func (h *GinHandlers) RecordTransactionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		var req types.RecordTransactionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Transaction hash and action are required")
			return
		}

		tx, err := h.service.RecordTransaction(userID, c.Param("order_id"), req.TransactionHash, req.Action, req.Status)
		response.Handle(c, tx, err)
	}
}

// GetTransactionsHandler handles GET requests to list an order's transactions
func (h *GinHandlers) GetTransactionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			return
		}

		txs, err := h.service.GetTransactions(userID, c.Param("order_id"))
		response.Handle(c, gin.H{"transactions": txs}, err)
	}
}

package inventory

import (
	"github.com/gin-gonic/gin"

	"github.com/ksred/procurement-api/internal/auth"
	"github.com/ksred/procurement-api/internal/types"
	"github.com/ksred/procurement-api/pkg/response"
)

// GinHandlers contains HTTP handlers for inventory endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for inventory endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// callerSupplier resolves the authenticated user's supplier account. Stock
// operations are supplier-only.
func (h *GinHandlers) callerSupplier(c *gin.Context) *types.Supplier {
	userID, err := auth.CallerID(c)
	if err != nil {
		response.Unauthorized(c, "Missing authentication claims")
		return nil
	}

	supplier, err := h.service.db.GetSupplierByUserID(userID)
	if err != nil {
		response.InternalError(c, "An unexpected error occurred")
		return nil
	}
	if supplier == nil {
		response.Forbidden(c, "Supplier account required")
		return nil
	}
	return supplier
}

// checkWarehouse verifies the warehouse exists and belongs to the supplier.
func (h *GinHandlers) checkWarehouse(c *gin.Context, warehouseID string, supplier *types.Supplier) bool {
	warehouse, err := h.service.db.GetWarehouse(warehouseID)
	if err != nil {
		response.InternalError(c, "An unexpected error occurred")
		return false
	}
	if warehouse == nil {
		response.NotFound(c, "Warehouse not found")
		return false
	}
	if warehouse.SupplierID != supplier.SupplierID {
		response.Forbidden(c, "Not authorized for this warehouse")
		return false
	}
	return true
}

// AddStockHandler handles POST requests to add stock for a product
func (h *GinHandlers) AddStockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		supplier := h.callerSupplier(c)
		if supplier == nil {
			return
		}

		var req types.StockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Warehouse ID, Product ID, and quantity are required")
			return
		}

		if !h.checkWarehouse(c, req.WarehouseID, supplier) {
			return
		}

		product, err := h.service.db.GetProduct(req.ProductID)
		if err != nil {
			response.InternalError(c, "An unexpected error occurred")
			return
		}
		if product == nil {
			response.NotFound(c, "Product not found")
			return
		}

		record, err := h.service.AddStock(req.WarehouseID, req.ProductID, *req.Quantity)
		response.Handle(c, record, err)
	}
}

// RemoveStockHandler handles DELETE requests to reduce stock for a product
func (h *GinHandlers) RemoveStockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		supplier := h.callerSupplier(c)
		if supplier == nil {
			return
		}

		var req types.StockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "Warehouse ID, Product ID, and quantity are required")
			return
		}

		if !h.checkWarehouse(c, req.WarehouseID, supplier) {
			return
		}

		record, err := h.service.RemoveStock(req.WarehouseID, req.ProductID, *req.Quantity)
		response.Handle(c, record, err)
	}
}

// GetWarehouseInventoryHandler handles GET requests for one warehouse's records
func (h *GinHandlers) GetWarehouseInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		supplier := h.callerSupplier(c)
		if supplier == nil {
			return
		}

		warehouseID := c.Param("warehouse_id")
		if !h.checkWarehouse(c, warehouseID, supplier) {
			return
		}

		records, err := h.service.db.GetWarehouseRecords(warehouseID)
		response.Handle(c, gin.H{"inventory": records}, err)
	}
}

// GetProductInventoryHandler handles GET requests for one product's records
// across the caller's warehouses
func (h *GinHandlers) GetProductInventoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		supplier := h.callerSupplier(c)
		if supplier == nil {
			return
		}

		productID := c.Param("product_id")
		product, err := h.service.db.GetProduct(productID)
		if err != nil {
			response.InternalError(c, "An unexpected error occurred")
			return
		}
		if product == nil {
			response.NotFound(c, "Product not found")
			return
		}

		warehouseIDs, err := h.service.db.GetSupplierWarehouseIDs(supplier.SupplierID)
		if err != nil {
			response.InternalError(c, "An unexpected error occurred")
			return
		}

		records, err := h.service.db.GetProductRecords(productID, warehouseIDs)
		response.Handle(c, gin.H{"inventory": records}, err)
	}
}

package catalog

import (
	"github.com/gin-gonic/gin"

	"github.com/ksred/procurement-api/internal/auth"
	"github.com/ksred/procurement-api/pkg/response"
)

// GinHandlers contains HTTP handlers for catalog endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func caller(c *gin.Context) (string, bool) {
	userID, err := auth.CallerID(c)
	if err != nil {
		response.Unauthorized(c, "Missing authentication claims")
		return "", false
	}
	return userID, true
}

func (h *GinHandlers) CreateSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		var req SupplierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		supplier, err := h.service.CreateSupplier(userID, req)
		response.Handle(c, supplier, err)
	}
}

func (h *GinHandlers) GetSuppliersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		suppliers, err := h.service.GetSuppliers(userID)
		response.Handle(c, suppliers, err)
	}
}

func (h *GinHandlers) UpdateSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		var req SupplierRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		supplier, err := h.service.UpdateSupplier(userID, c.Param("supplier_id"), req)
		response.Handle(c, supplier, err)
	}
}

func (h *GinHandlers) DeleteSupplierHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		err := h.service.DeleteSupplier(userID, c.Param("supplier_id"))
		response.Handle(c, gin.H{"message": "supplier deleted"}, err)
	}
}

func (h *GinHandlers) CreateWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		var req WarehouseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		warehouse, err := h.service.CreateWarehouse(userID, req)
		response.Handle(c, warehouse, err)
	}
}

func (h *GinHandlers) GetWarehousesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		warehouses, err := h.service.GetWarehouses(userID)
		response.Handle(c, warehouses, err)
	}
}

func (h *GinHandlers) UpdateWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		var req WarehouseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		warehouse, err := h.service.UpdateWarehouse(userID, c.Param("warehouse_id"), req)
		response.Handle(c, warehouse, err)
	}
}

func (h *GinHandlers) DeleteWarehouseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		err := h.service.DeleteWarehouse(userID, c.Param("warehouse_id"))
		response.Handle(c, gin.H{"message": "warehouse deleted"}, err)
	}
}

func (h *GinHandlers) CreateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		var req ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		product, err := h.service.CreateProduct(userID, req)
		response.Handle(c, product, err)
	}
}

func (h *GinHandlers) GetProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		products, err := h.service.GetProducts(userID)
		response.Handle(c, products, err)
	}
}

func (h *GinHandlers) UpdateProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		var req ProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		product, err := h.service.UpdateProduct(userID, c.Param("product_id"), req)
		response.Handle(c, product, err)
	}
}

func (h *GinHandlers) DeleteProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		err := h.service.DeleteProduct(userID, c.Param("product_id"))
		response.Handle(c, gin.H{"message": "product deleted"}, err)
	}
}

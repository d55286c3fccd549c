package types

// Request payloads shared by the HTTP handlers.

type CreateOrderRequest struct {
	OrderType   string `json:"orderType" binding:"required"`
	WarehouseID string `json:"warehouseId" binding:"required"`
}

type AssignSupplierRequest struct {
	SupplierID string `json:"supplierId" binding:"required"`
}

// UpdateStatusRequest carries the target status and, for transitions the
// caller already attested externally, the resulting transaction hash.
type UpdateStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	TransactionHash string `json:"transactionHash"`
}

type OrderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required"`
}

type StockRequest struct {
	WarehouseID string `json:"warehouseId" binding:"required"`
	ProductID   string `json:"productId" binding:"required"`
	Quantity    *int64 `json:"quantity" binding:"required"`
}

type RecordTransactionRequest struct {
	TransactionHash string `json:"transactionHash" binding:"required"`
	Action          string `json:"action" binding:"required"`
	Status          string `json:"status"`
}

package types

import (
	"time"

	"gorm.io/gorm"
)

// Order status values. Rejected and completed are terminal.
const (
	OrderStatusPending   = "pending"
	OrderStatusApproved  = "approved"
	OrderStatusRejected  = "rejected"
	OrderStatusCompleted = "completed"
)

// Attested order actions.
const (
	ActionApproved  = "approved"
	ActionCompleted = "completed"
)

// Transaction status values.
const (
	TxStatusSubmitted = "submitted"
	TxStatusConfirmed = "confirmed"
	TxStatusFailed    = "failed"
)

type User struct {
	gorm.Model    `json:"-"`
	UserID        string    `gorm:"uniqueIndex" json:"user_id"`
	Name          string    `json:"name"`
	Email         string    `gorm:"uniqueIndex" json:"email"`
	PasswordHash  string    `json:"-"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Supplier struct {
	gorm.Model    `json:"-"`
	SupplierID    string    `gorm:"uniqueIndex" json:"supplier_id"`
	UserID        string    `gorm:"uniqueIndex" json:"user_id"`
	Name          string    `json:"name"`
	ContactInfo   string    `json:"contact_info"`
	WalletAddress string    `gorm:"uniqueIndex" json:"wallet_address"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Warehouse struct {
	gorm.Model  `json:"-"`
	WarehouseID string    `gorm:"uniqueIndex" json:"warehouse_id"`
	SupplierID  string    `json:"supplier_id"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Product struct {
	gorm.Model  `json:"-"`
	ProductID   string    `gorm:"uniqueIndex" json:"product_id"`
	CreatedBy   string    `json:"created_by"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// InventoryRecord holds the available/reserved quantity pair for one
// (warehouse, product) key. Records are created lazily on first stock
// addition and never deleted.
type InventoryRecord struct {
	gorm.Model        `json:"-"`
	WarehouseID       string    `gorm:"uniqueIndex:idx_inventory_warehouse_product" json:"warehouse_id"`
	ProductID         string    `gorm:"uniqueIndex:idx_inventory_warehouse_product" json:"product_id"`
	AvailableQuantity int64     `json:"available_quantity"`
	ReservedQuantity  int64     `json:"reserved_quantity"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Order struct {
	gorm.Model  `json:"-"`
	OrderID     string    `gorm:"uniqueIndex" json:"order_id"`
	OrderType   string    `json:"order_type"`
	Status      string    `json:"status"` // pending, approved, rejected, completed
	CreatedBy   string    `json:"created_by"`
	SupplierID  string    `json:"supplier_id,omitempty"`
	WarehouseID string    `json:"warehouse_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type OrderItem struct {
	gorm.Model `json:"-"`
	ItemID     string    `gorm:"uniqueIndex" json:"item_id"`
	OrderID    string    `json:"order_id"`
	ProductID  string    `json:"product_id"`
	Quantity   int64     `json:"quantity"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Transaction is the attestation record for an order transition. At most one
// transaction per (order, action) may be in submitted status at a time, and
// only the reconciliation sweep moves it out of submitted.
type Transaction struct {
	gorm.Model      `json:"-"`
	OrderID         string    `json:"order_id"`
	TransactionHash string    `gorm:"uniqueIndex" json:"transaction_hash"`
	Action          string    `json:"action"` // approved, completed
	Status          string    `json:"status"` // submitted, confirmed, failed
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

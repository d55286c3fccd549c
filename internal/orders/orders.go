package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/procurement-api/internal/chain"
	"github.com/ksred/procurement-api/internal/inventory"
	"github.com/ksred/procurement-api/internal/types"
	"github.com/ksred/procurement-api/pkg/events"
	"github.com/ksred/procurement-api/pkg/locks"
)

// transitions is the legal status transition table. Rejected and completed
// are terminal.
var transitions = map[string][]string{
	types.OrderStatusPending:   {types.OrderStatusApproved, types.OrderStatusRejected},
	types.OrderStatusApproved:  {types.OrderStatusCompleted},
	types.OrderStatusRejected:  {},
	types.OrderStatusCompleted: {},
}

// attestedActions are the transitions that go through the chain gateway
// instead of being applied synchronously.
var attestedActions = map[string]bool{
	types.ActionApproved:  true,
	types.ActionCompleted: true,
}

// Service owns order records and enforces the status state machine,
// delegating quantity accounting to the inventory ledger and attestation to
// the chain gateway.
type Service struct {
	db        *Database
	inventory *inventory.Service
	gateway   *chain.Gateway
	publisher *events.Publisher

	// syncApply short-circuits attestation and applies transitions within
	// the request, as the test environment runs without a ledger.
	syncApply bool

	locks *locks.Keyed
}

// NewService creates a new order service. The order lock set must be shared
// with the reconciliation service so sweeper-applied transitions serialize
// against request-path transitions on the same order; a nil value makes a
// private set.
func NewService(gormDB *gorm.DB, inv *inventory.Service, gateway *chain.Gateway, publisher *events.Publisher, syncApply bool, orderLocks *locks.Keyed) *Service {
	if orderLocks == nil {
		orderLocks = locks.NewKeyed()
	}
	return &Service{
		db:        NewDatabase(gormDB),
		inventory: inv,
		gateway:   gateway,
		publisher: publisher,
		syncApply: syncApply,
		locks:     orderLocks,
	}
}

// lockOrder serializes status transitions and item writes per order.
func (s *Service) lockOrder(orderID string) func() {
	return s.locks.Lock(orderID)
}

// CreateOrder creates a pending order bound to a warehouse.
func (s *Service) CreateOrder(callerID, orderType, warehouseID string) (*types.Order, error) {
	warehouse, err := s.db.GetWarehouse(warehouseID)
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, fmt.Errorf("%w: warehouse %s", types.ErrNotFound, warehouseID)
	}

	order := &types.Order{
		OrderID:     uuid.New().String(),
		OrderType:   orderType,
		Status:      types.OrderStatusPending,
		CreatedBy:   callerID,
		WarehouseID: warehouseID,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.db.CreateOrder(order); err != nil {
		return nil, err
	}

	return order, nil
}

// GetOrders lists the caller's orders.
func (s *Service) GetOrders(callerID string) ([]types.Order, error) {
	return s.db.GetOrdersByCreator(callerID)
}

// AssignSupplier binds a supplier to a pending order. Only the order's
// creator may assign, and only once.
func (s *Service) AssignSupplier(callerID, orderID, supplierID string) (*types.Order, error) {
	unlock := s.lockOrder(orderID)
	defer unlock()

	order, err := s.db.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %s", types.ErrNotFound, orderID)
	}
	if order.CreatedBy != callerID {
		return nil, fmt.Errorf("%w: only the order creator can assign a supplier", types.ErrForbidden)
	}
	if order.Status != types.OrderStatusPending {
		return nil, fmt.Errorf("%w: supplier can only be assigned while the order is pending", types.ErrValidation)
	}
	if order.SupplierID != "" {
		return nil, fmt.Errorf("%w: supplier already assigned", types.ErrConflict)
	}

	supplier, err := s.db.GetSupplier(supplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, fmt.Errorf("%w: supplier %s", types.ErrNotFound, supplierID)
	}

	order.SupplierID = supplierID
	order.UpdatedAt = time.Now()
	if err := s.db.UpdateOrder(order); err != nil {
		return nil, err
	}

	return order, nil
}

// TransitionResult reports how a status request was handled. Applied means
// the transition took effect within the request; otherwise Transaction holds
// the submitted attestation whose confirmation will apply it later.
type TransitionResult struct {
	Order       *types.Order       `json:"order,omitempty"`
	Transaction *types.Transaction `json:"transaction,omitempty"`
	Applied     bool               `json:"applied"`
}

// UpdateStatus requests a status transition. Non-attested transitions apply
// immediately; attested ones submit a transaction to the chain gateway and
// defer the effect to reconciliation.
func (s *Service) UpdateStatus(ctx context.Context, callerID, orderID, target, proof string) (*TransitionResult, error) {
	if _, known := transitions[target]; !known {
		return nil, fmt.Errorf("%w: unknown status %q", types.ErrValidation, target)
	}

	unlock := s.lockOrder(orderID)
	defer unlock()

	order, err := s.db.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order %s", types.ErrNotFound, orderID)
	}

	if !transitionAllowed(order.Status, target) {
		return nil, fmt.Errorf("%w: cannot move from %s to %s", types.ErrInvalidTransition, order.Status, target)
	}
	if order.SupplierID == "" {
		return nil, fmt.Errorf("%w: a supplier must be assigned before status changes", types.ErrValidation)
	}

	supplier, err := s.db.GetSupplier(order.SupplierID)
	if err != nil {
		return nil, err
	}
	if supplier == nil || supplier.UserID != callerID {
		return nil, fmt.Errorf("%w: only the assigned supplier can change order status", types.ErrForbidden)
	}

	if attestedActions[target] && !s.syncApply {
		return s.submitAttestation(ctx, order, target, proof)
	}

	if err := s.applyTransition(ctx, order, target, ""); err != nil {
		return nil, err
	}
	return &TransitionResult{Order: order, Applied: true}, nil
}

// submitAttestation records a submitted transaction for the transition
// without touching the order. The reconciliation sweep applies the effect
// once the ledger confirms.
func (s *Service) submitAttestation(ctx context.Context, order *types.Order, action, proof string) (*TransitionResult, error) {
	existing, err := s.db.GetSubmittedTransaction(order.OrderID, action)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &TransitionResult{Transaction: existing},
			fmt.Errorf("%w: a transaction for this transition is already submitted", types.ErrConflict)
	}

	// An empty order can never settle, so refuse before anything reaches
	// the ledger.
	items, err := s.db.GetItems(order.OrderID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order %s", types.ErrEmptyOrder, order.OrderID)
	}

	submission, err := s.gateway.Submit(ctx, chain.Intent{
		OrderID: order.OrderID,
		Action:  action,
		Proof:   proof,
	})
	if err != nil {
		return nil, err
	}

	if submission.Mode == chain.ModeStub {
		return nil, fmt.Errorf("%w: cannot attest order transitions", types.ErrLedgerUnavailable)
	}

	tx := &types.Transaction{
		OrderID:         order.OrderID,
		TransactionHash: submission.Hash,
		Action:          action,
		Status:          types.TxStatusSubmitted,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := s.db.CreateTransaction(tx); err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: transaction hash already exists", types.ErrConflict)
		}
		return nil, err
	}

	log.Info().
		Str("order_id", order.OrderID).
		Str("action", action).
		Str("transaction_hash", tx.TransactionHash).
		Str("mode", string(submission.Mode)).
		Msg("attestation submitted, transition deferred to reconciliation")

	return &TransitionResult{Transaction: tx, Applied: false}, nil
}

// applyTransition performs the inventory side effect and then moves the
// order to the target status. An inventory failure leaves the status as-is.
func (s *Service) applyTransition(ctx context.Context, order *types.Order, target, txHash string) error {
	switch target {
	case types.OrderStatusApproved:
		if err := s.inventory.ReserveForOrder(order.OrderID, order.WarehouseID); err != nil {
			return err
		}
	case types.OrderStatusRejected:
		if err := s.inventory.ReleaseForOrder(order.OrderID, order.WarehouseID); err != nil {
			return err
		}
	case types.OrderStatusCompleted:
		if err := s.inventory.FinalizeForOrder(order.OrderID, order.WarehouseID); err != nil {
			return err
		}
	}

	order.Status = target
	order.UpdatedAt = time.Now()
	if err := s.db.UpdateOrder(order); err != nil {
		return err
	}

	s.publisher.PublishOrderStatus(ctx, events.OrderEvent{
		OrderID:         order.OrderID,
		Status:          order.Status,
		TransactionHash: txHash,
	})

	log.Info().
		Str("order_id", order.OrderID).
		Str("status", order.Status).
		Msg("order transition applied")

	return nil
}

func transitionAllowed(current, target string) bool {
	for _, allowed := range transitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// the sqlite driver surfaces constraint failures as plain errors
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

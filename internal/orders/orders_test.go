package orders

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksred/procurement-api/internal/chain"
	"github.com/ksred/procurement-api/internal/database"
	"github.com/ksred/procurement-api/internal/inventory"
	"github.com/ksred/procurement-api/internal/types"
)

// fakeLedger accepts every submission and reports every hash as pending.
type fakeLedger struct {
	submissions int
}

func (f *fakeLedger) SignAndSubmit(_ context.Context, _ []byte) (string, error) {
	f.submissions++
	return fmt.Sprintf("0xfake%060d", f.submissions), nil
}

func (f *fakeLedger) GetConfirmation(_ context.Context, _ string) (chain.Confirmation, error) {
	return chain.ConfirmationPending, nil
}

type fixture struct {
	db        *gorm.DB
	inventory *inventory.Service

	creatorID    string
	supplierUser string
	supplierID   string
	warehouseID  string
	productID    string
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	f := &fixture{
		db:           db,
		inventory:    inventory.NewService(db),
		creatorID:    "user-creator",
		supplierUser: "user-supplier",
		supplierID:   "sup-1",
		warehouseID:  "wh-1",
		productID:    "prod-1",
	}

	require.NoError(t, db.Create(&types.Supplier{
		SupplierID:    f.supplierID,
		UserID:        f.supplierUser,
		Name:          "Acme Components",
		WalletAddress: "0xsupplier",
	}).Error)
	require.NoError(t, db.Create(&types.Warehouse{
		WarehouseID: f.warehouseID,
		SupplierID:  f.supplierID,
		Name:        "Main Depot",
	}).Error)
	require.NoError(t, db.Create(&types.Product{
		ProductID: f.productID,
		CreatedBy: f.supplierUser,
		Name:      "Widget",
	}).Error)

	_, err = f.inventory.AddStock(f.warehouseID, f.productID, 100)
	require.NoError(t, err)

	return f
}

// syncService applies attested transitions within the request.
func (f *fixture) syncService() *Service {
	return NewService(f.db, f.inventory, chain.NewGateway(nil), nil, true, nil)
}

// deferredService submits attestations to the given ledger.
func (f *fixture) deferredService(ledger chain.Ledger) *Service {
	return NewService(f.db, f.inventory, chain.NewGateway(ledger), nil, false, nil)
}

func (f *fixture) createOrderWithItem(t *testing.T, s *Service, qty int64) *types.Order {
	t.Helper()
	order, err := s.CreateOrder(f.creatorID, "purchase", f.warehouseID)
	require.NoError(t, err)
	_, err = s.AddItem(f.creatorID, order.OrderID, f.productID, qty)
	require.NoError(t, err)
	_, err = s.AssignSupplier(f.creatorID, order.OrderID, f.supplierID)
	require.NoError(t, err)
	return order
}

func (f *fixture) record(t *testing.T) *types.InventoryRecord {
	t.Helper()
	var record types.InventoryRecord
	err := f.db.Where("warehouse_id = ? AND product_id = ?", f.warehouseID, f.productID).
		First(&record).Error
	require.NoError(t, err)
	return &record
}

func TestCreateOrder_UnknownWarehouse(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()

	_, err := s.CreateOrder(f.creatorID, "purchase", "no-such-warehouse")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCreateOrder_StartsPending(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()

	order, err := s.CreateOrder(f.creatorID, "purchase", f.warehouseID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusPending, order.Status)
	assert.Empty(t, order.SupplierID)
	assert.NotEmpty(t, order.OrderID)
}

func TestAssignSupplier_OnlyCreator(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()

	order, err := s.CreateOrder(f.creatorID, "purchase", f.warehouseID)
	require.NoError(t, err)

	_, err = s.AssignSupplier("someone-else", order.OrderID, f.supplierID)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestAssignSupplier_OnlyOnce(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()

	order, err := s.CreateOrder(f.creatorID, "purchase", f.warehouseID)
	require.NoError(t, err)

	_, err = s.AssignSupplier(f.creatorID, order.OrderID, f.supplierID)
	require.NoError(t, err)
	_, err = s.AssignSupplier(f.creatorID, order.OrderID, f.supplierID)
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestAssignSupplier_UnknownSupplier(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()

	order, err := s.CreateOrder(f.creatorID, "purchase", f.warehouseID)
	require.NoError(t, err)

	_, err = s.AssignSupplier(f.creatorID, order.OrderID, "no-such-supplier")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdateStatus_UnknownTarget(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	order := f.createOrderWithItem(t, s, 10)

	_, err := s.UpdateStatus(context.Background(), f.supplierUser, order.OrderID, "shipped", "")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestUpdateStatus_IllegalTransitions(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	ctx := context.Background()

	// pending cannot skip straight to completed
	order := f.createOrderWithItem(t, s, 10)
	_, err := s.UpdateStatus(ctx, f.supplierUser, order.OrderID, types.OrderStatusCompleted, "")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	// rejected is terminal
	_, err = s.UpdateStatus(ctx, f.supplierUser, order.OrderID, types.OrderStatusRejected, "")
	require.NoError(t, err)
	_, err = s.UpdateStatus(ctx, f.supplierUser, order.OrderID, types.OrderStatusApproved, "")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	// completed is terminal
	order = f.createOrderWithItem(t, s, 10)
	_, err = s.UpdateStatus(ctx, f.supplierUser, order.OrderID, types.OrderStatusApproved, "")
	require.NoError(t, err)
	_, err = s.UpdateStatus(ctx, f.supplierUser, order.OrderID, types.OrderStatusCompleted, "")
	require.NoError(t, err)
	_, err = s.UpdateStatus(ctx, f.supplierUser, order.OrderID, types.OrderStatusRejected, "")
	assert.ErrorIs(t, err, types.ErrInvalidTransition)
}

func TestUpdateStatus_RequiresAssignedSupplier(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()

	order, err := s.CreateOrder(f.creatorID, "purchase", f.warehouseID)
	require.NoError(t, err)
	_, err = s.AddItem(f.creatorID, order.OrderID, f.productID, 10)
	require.NoError(t, err)

	_, err = s.UpdateStatus(context.Background(), f.supplierUser, order.OrderID, types.OrderStatusApproved, "")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestUpdateStatus_OnlyAssignedSupplierUser(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	order := f.createOrderWithItem(t, s, 10)

	_, err := s.UpdateStatus(context.Background(), f.creatorID, order.OrderID, types.OrderStatusApproved, "")
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestUpdateStatus_ApproveReservesStock(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	order := f.createOrderWithItem(t, s, 10)

	result, err := s.UpdateStatus(context.Background(), f.supplierUser, order.OrderID, types.OrderStatusApproved, "")
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, types.OrderStatusApproved, result.Order.Status)

	record := f.record(t)
	assert.Equal(t, int64(90), record.AvailableQuantity)
	assert.Equal(t, int64(10), record.ReservedQuantity)
}

func TestUpdateStatus_CompleteFinalizesStock(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	ctx := context.Background()
	order := f.createOrderWithItem(t, s, 10)

	_, err := s.UpdateStatus(ctx, f.supplierUser, order.OrderID, types.OrderStatusApproved, "")
	require.NoError(t, err)
	_, err = s.UpdateStatus(ctx, f.supplierUser, order.OrderID, types.OrderStatusCompleted, "")
	require.NoError(t, err)

	record := f.record(t)
	assert.Equal(t, int64(90), record.AvailableQuantity)
	assert.Equal(t, int64(0), record.ReservedQuantity)
}

func TestUpdateStatus_RejectReleasesStock(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	ctx := context.Background()
	order := f.createOrderWithItem(t, s, 10)

	_, err := s.UpdateStatus(ctx, f.supplierUser, order.OrderID, types.OrderStatusApproved, "")
	require.NoError(t, err)

	// approved has no rejected edge, so release is only reachable from
	// pending here; reject a fresh order that reserved nothing
	order2 := f.createOrderWithItem(t, s, 10)
	_, err = s.UpdateStatus(ctx, f.supplierUser, order2.OrderID, types.OrderStatusRejected, "")
	require.NoError(t, err)

	// the first order's reservation is untouched, nothing was minted
	record := f.record(t)
	assert.Equal(t, int64(90), record.AvailableQuantity)
	assert.Equal(t, int64(10), record.ReservedQuantity)
}

func TestUpdateStatus_InsufficientStockLeavesStatus(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	order := f.createOrderWithItem(t, s, 500)

	_, err := s.UpdateStatus(context.Background(), f.supplierUser, order.OrderID, types.OrderStatusApproved, "")
	assert.ErrorIs(t, err, types.ErrInsufficientStock)

	stored, err := s.db.GetOrder(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusPending, stored.Status)
}

func TestUpdateStatus_DeferredSubmitsTransaction(t *testing.T) {
	f := setupFixture(t)
	ledger := &fakeLedger{}
	s := f.deferredService(ledger)
	order := f.createOrderWithItem(t, s, 10)

	result, err := s.UpdateStatus(context.Background(), f.supplierUser, order.OrderID, types.OrderStatusApproved, "")
	require.NoError(t, err)
	assert.False(t, result.Applied)
	require.NotNil(t, result.Transaction)
	assert.Equal(t, types.TxStatusSubmitted, result.Transaction.Status)
	assert.Equal(t, types.ActionApproved, result.Transaction.Action)

	// the order does not move until reconciliation confirms
	stored, err := s.db.GetOrder(order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusPending, stored.Status)

	record := f.record(t)
	assert.Equal(t, int64(100), record.AvailableQuantity)
}

func TestUpdateStatus_DuplicateSubmissionConflicts(t *testing.T) {
	f := setupFixture(t)
	s := f.deferredService(&fakeLedger{})
	ctx := context.Background()
	order := f.createOrderWithItem(t, s, 10)

	first, err := s.UpdateStatus(ctx, f.supplierUser, order.OrderID, types.OrderStatusApproved, "")
	require.NoError(t, err)

	second, err := s.UpdateStatus(ctx, f.supplierUser, order.OrderID, types.OrderStatusApproved, "")
	assert.ErrorIs(t, err, types.ErrConflict)
	require.NotNil(t, second)
	require.NotNil(t, second.Transaction)
	assert.Equal(t, first.Transaction.TransactionHash, second.Transaction.TransactionHash)
}

func TestUpdateStatus_EmptyOrderRefusedBeforeSubmission(t *testing.T) {
	f := setupFixture(t)
	ledger := &fakeLedger{}
	s := f.deferredService(ledger)

	order, err := s.CreateOrder(f.creatorID, "purchase", f.warehouseID)
	require.NoError(t, err)
	_, err = s.AssignSupplier(f.creatorID, order.OrderID, f.supplierID)
	require.NoError(t, err)

	_, err = s.UpdateStatus(context.Background(), f.supplierUser, order.OrderID, types.OrderStatusApproved, "")
	assert.ErrorIs(t, err, types.ErrEmptyOrder)

	// nothing reached the ledger and nothing was recorded
	assert.Zero(t, ledger.submissions)
	txs, err := s.db.GetTransactions(order.OrderID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestUpdateStatus_StubModeUnavailable(t *testing.T) {
	f := setupFixture(t)
	s := f.deferredService(nil)
	order := f.createOrderWithItem(t, s, 10)

	_, err := s.UpdateStatus(context.Background(), f.supplierUser, order.OrderID, types.OrderStatusApproved, "")
	assert.ErrorIs(t, err, types.ErrLedgerUnavailable)

	// nothing recorded
	txs, err := s.db.GetTransactions(order.OrderID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestUpdateStatus_ClientProofBypassesLedger(t *testing.T) {
	f := setupFixture(t)
	// no ledger configured, but a caller-supplied proof still attests
	s := f.deferredService(nil)
	order := f.createOrderWithItem(t, s, 10)

	result, err := s.UpdateStatus(context.Background(), f.supplierUser, order.OrderID, types.OrderStatusApproved, "0xclientproof")
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.Equal(t, "0xclientproof", result.Transaction.TransactionHash)
}

func TestItems_FrozenAfterLeavingPending(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	ctx := context.Background()
	order := f.createOrderWithItem(t, s, 10)

	items, err := s.GetItems(f.creatorID, order.OrderID)
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = s.UpdateStatus(ctx, f.supplierUser, order.OrderID, types.OrderStatusApproved, "")
	require.NoError(t, err)

	_, err = s.AddItem(f.creatorID, order.OrderID, f.productID, 5)
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = s.UpdateItem(f.creatorID, order.OrderID, items[0].ItemID, 5)
	assert.ErrorIs(t, err, types.ErrValidation)
	err = s.DeleteItem(f.creatorID, order.OrderID, items[0].ItemID)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestItems_OwnershipEnforced(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	order := f.createOrderWithItem(t, s, 10)

	_, err := s.GetItems("someone-else", order.OrderID)
	assert.ErrorIs(t, err, types.ErrForbidden)
	_, err = s.AddItem("someone-else", order.OrderID, f.productID, 1)
	assert.ErrorIs(t, err, types.ErrForbidden)
}

func TestAddItem_Validation(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	order, err := s.CreateOrder(f.creatorID, "purchase", f.warehouseID)
	require.NoError(t, err)

	_, err = s.AddItem(f.creatorID, order.OrderID, f.productID, 0)
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = s.AddItem(f.creatorID, order.OrderID, "no-such-product", 1)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRecordTransaction_Validation(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	order := f.createOrderWithItem(t, s, 10)

	_, err := s.RecordTransaction(f.creatorID, order.OrderID, "", types.ActionApproved, "")
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = s.RecordTransaction(f.creatorID, order.OrderID, "0xabc", "shipped", "")
	assert.ErrorIs(t, err, types.ErrValidation)
	_, err = s.RecordTransaction(f.creatorID, order.OrderID, "0xabc", types.ActionApproved, "bogus")
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestRecordTransaction_DuplicateHash(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	order := f.createOrderWithItem(t, s, 10)

	_, err := s.RecordTransaction(f.creatorID, order.OrderID, "0xabc", types.ActionApproved, types.TxStatusConfirmed)
	require.NoError(t, err)
	_, err = s.RecordTransaction(f.creatorID, order.OrderID, "0xabc", types.ActionCompleted, types.TxStatusConfirmed)
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestRecordTransaction_OneSubmittedPerAction(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	order := f.createOrderWithItem(t, s, 10)

	_, err := s.RecordTransaction(f.creatorID, order.OrderID, "0xaaa", types.ActionApproved, "")
	require.NoError(t, err)
	_, err = s.RecordTransaction(f.creatorID, order.OrderID, "0xbbb", types.ActionApproved, "")
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestGetTransactions_NewestFirst(t *testing.T) {
	f := setupFixture(t)
	s := f.syncService()
	order := f.createOrderWithItem(t, s, 10)

	older := &types.Transaction{
		OrderID: order.OrderID, TransactionHash: "0xolder",
		Action: types.ActionApproved, Status: types.TxStatusConfirmed,
		CreatedAt: time.Now().Add(-time.Hour), UpdatedAt: time.Now().Add(-time.Hour),
	}
	newer := &types.Transaction{
		OrderID: order.OrderID, TransactionHash: "0xnewer",
		Action: types.ActionCompleted, Status: types.TxStatusConfirmed,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, f.db.Create(older).Error)
	require.NoError(t, f.db.Create(newer).Error)

	txs, err := s.GetTransactions(f.creatorID, order.OrderID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "0xnewer", txs[0].TransactionHash)
}

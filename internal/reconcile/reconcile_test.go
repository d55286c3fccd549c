package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ksred/procurement-api/internal/chain"
	"github.com/ksred/procurement-api/internal/database"
	"github.com/ksred/procurement-api/internal/inventory"
	"github.com/ksred/procurement-api/internal/orders"
	"github.com/ksred/procurement-api/internal/types"
	"github.com/ksred/procurement-api/pkg/locks"
)

// scriptedLedger answers confirmation queries from a fixed table.
type scriptedLedger struct {
	confirmations map[string]chain.Confirmation
	errors        map[string]error
	queries       []string
}

func (l *scriptedLedger) SignAndSubmit(_ context.Context, _ []byte) (string, error) {
	return "", errors.New("not used in reconciliation")
}

func (l *scriptedLedger) GetConfirmation(_ context.Context, hash string) (chain.Confirmation, error) {
	l.queries = append(l.queries, hash)
	if err, ok := l.errors[hash]; ok {
		return chain.ConfirmationPending, err
	}
	return l.confirmations[hash], nil
}

type fixture struct {
	db        *gorm.DB
	inventory *inventory.Service
	ledger    *scriptedLedger
	service   *Service
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	f := &fixture{
		db:        db,
		inventory: inventory.NewService(db),
		ledger: &scriptedLedger{
			confirmations: make(map[string]chain.Confirmation),
			errors:        make(map[string]error),
		},
	}
	f.service = NewService(db, f.ledger, f.inventory, nil, nil)

	_, err = f.inventory.AddStock("wh-1", "prod-1", 100)
	require.NoError(t, err)
	return f
}

func (f *fixture) seedOrder(t *testing.T, status string, qty int64) *types.Order {
	t.Helper()
	order := &types.Order{
		OrderID:     "order-" + status + "-" + time.Now().Format("150405.000000000"),
		OrderType:   "purchase",
		Status:      status,
		CreatedBy:   "user-creator",
		SupplierID:  "sup-1",
		WarehouseID: "wh-1",
	}
	require.NoError(t, f.db.Create(order).Error)
	require.NoError(t, f.db.Create(&types.OrderItem{
		ItemID:    order.OrderID + "-item",
		OrderID:   order.OrderID,
		ProductID: "prod-1",
		Quantity:  qty,
	}).Error)
	return order
}

func (f *fixture) seedTransaction(t *testing.T, orderID, hash, action string, createdAt time.Time) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{
		OrderID:         orderID,
		TransactionHash: hash,
		Action:          action,
		Status:          types.TxStatusSubmitted,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
	require.NoError(t, f.db.Create(tx).Error)
	return tx
}

func (f *fixture) orderStatus(t *testing.T, orderID string) string {
	t.Helper()
	var order types.Order
	require.NoError(t, f.db.Where("order_id = ?", orderID).First(&order).Error)
	return order.Status
}

func (f *fixture) txStatus(t *testing.T, hash string) string {
	t.Helper()
	var tx types.Transaction
	require.NoError(t, f.db.Where("transaction_hash = ?", hash).First(&tx).Error)
	return tx.Status
}

func (f *fixture) record(t *testing.T) *types.InventoryRecord {
	t.Helper()
	var record types.InventoryRecord
	require.NoError(t, f.db.Where("warehouse_id = ? AND product_id = ?", "wh-1", "prod-1").
		First(&record).Error)
	return &record
}

func TestRun_EmptySweep(t *testing.T) {
	f := setupFixture(t)

	summary, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
}

func TestRun_ConfirmedApprovalAppliesReservation(t *testing.T) {
	f := setupFixture(t)
	order := f.seedOrder(t, types.OrderStatusPending, 10)
	f.seedTransaction(t, order.OrderID, "0xaaa", types.ActionApproved, time.Now())
	f.ledger.confirmations["0xaaa"] = chain.ConfirmationSuccess

	summary, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Confirmed)

	assert.Equal(t, types.OrderStatusApproved, f.orderStatus(t, order.OrderID))
	assert.Equal(t, types.TxStatusConfirmed, f.txStatus(t, "0xaaa"))

	record := f.record(t)
	assert.Equal(t, int64(90), record.AvailableQuantity)
	assert.Equal(t, int64(10), record.ReservedQuantity)
}

func TestRun_ConfirmedCompletionFinalizes(t *testing.T) {
	f := setupFixture(t)
	order := f.seedOrder(t, types.OrderStatusApproved, 10)
	require.NoError(t, f.inventory.ReserveForOrder(order.OrderID, "wh-1"))
	f.seedTransaction(t, order.OrderID, "0xbbb", types.ActionCompleted, time.Now())
	f.ledger.confirmations["0xbbb"] = chain.ConfirmationSuccess

	summary, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Confirmed)

	assert.Equal(t, types.OrderStatusCompleted, f.orderStatus(t, order.OrderID))

	record := f.record(t)
	assert.Equal(t, int64(90), record.AvailableQuantity)
	assert.Equal(t, int64(0), record.ReservedQuantity)
}

func TestRun_FailedConfirmationHasNoSideEffects(t *testing.T) {
	f := setupFixture(t)
	order := f.seedOrder(t, types.OrderStatusPending, 10)
	f.seedTransaction(t, order.OrderID, "0xccc", types.ActionApproved, time.Now())
	f.ledger.confirmations["0xccc"] = chain.ConfirmationFailure

	summary, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)

	assert.Equal(t, types.OrderStatusPending, f.orderStatus(t, order.OrderID))
	assert.Equal(t, types.TxStatusFailed, f.txStatus(t, "0xccc"))

	record := f.record(t)
	assert.Equal(t, int64(100), record.AvailableQuantity)
	assert.Equal(t, int64(0), record.ReservedQuantity)
}

func TestRun_PendingConfirmationRetriesNextSweep(t *testing.T) {
	f := setupFixture(t)
	order := f.seedOrder(t, types.OrderStatusPending, 10)
	f.seedTransaction(t, order.OrderID, "0xddd", types.ActionApproved, time.Now())
	f.ledger.confirmations["0xddd"] = chain.ConfirmationPending

	summary, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, types.TxStatusSubmitted, f.txStatus(t, "0xddd"))

	// confirmed on a later sweep
	f.ledger.confirmations["0xddd"] = chain.ConfirmationSuccess
	summary, err = f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Confirmed)
	assert.Equal(t, types.OrderStatusApproved, f.orderStatus(t, order.OrderID))
}

func TestRun_LedgerErrorLeavesTransactionSubmitted(t *testing.T) {
	f := setupFixture(t)
	order := f.seedOrder(t, types.OrderStatusPending, 10)
	f.seedTransaction(t, order.OrderID, "0xeee", types.ActionApproved, time.Now())
	f.ledger.errors["0xeee"] = errors.New("ledger unreachable")

	summary, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, types.TxStatusSubmitted, f.txStatus(t, "0xeee"))
	assert.Equal(t, types.OrderStatusPending, f.orderStatus(t, order.OrderID))
}

func TestRun_AppliesExactlyOnce(t *testing.T) {
	f := setupFixture(t)
	order := f.seedOrder(t, types.OrderStatusPending, 10)
	f.seedTransaction(t, order.OrderID, "0xfff", types.ActionApproved, time.Now())
	f.ledger.confirmations["0xfff"] = chain.ConfirmationSuccess

	_, err := f.service.Run(context.Background())
	require.NoError(t, err)

	// second sweep finds nothing: the transaction left submitted status
	summary, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)

	record := f.record(t)
	assert.Equal(t, int64(90), record.AvailableQuantity)
	assert.Equal(t, int64(10), record.ReservedQuantity)
}

func TestRun_StaleApprovalMarkedFailed(t *testing.T) {
	f := setupFixture(t)
	// order already moved on, the approval confirmation is stale
	order := f.seedOrder(t, types.OrderStatusRejected, 10)
	f.seedTransaction(t, order.OrderID, "0x111", types.ActionApproved, time.Now())
	f.ledger.confirmations["0x111"] = chain.ConfirmationSuccess

	summary, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, types.TxStatusFailed, f.txStatus(t, "0x111"))
	assert.Equal(t, types.OrderStatusRejected, f.orderStatus(t, order.OrderID))

	record := f.record(t)
	assert.Equal(t, int64(100), record.AvailableQuantity)
}

func TestRun_StaleCompletionMarkedFailed(t *testing.T) {
	f := setupFixture(t)
	order := f.seedOrder(t, types.OrderStatusPending, 10)
	f.seedTransaction(t, order.OrderID, "0x222", types.ActionCompleted, time.Now())
	f.ledger.confirmations["0x222"] = chain.ConfirmationSuccess

	summary, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, types.OrderStatusPending, f.orderStatus(t, order.OrderID))
}

func TestRun_MissingOrderMarkedFailed(t *testing.T) {
	f := setupFixture(t)
	f.seedTransaction(t, "no-such-order", "0x333", types.ActionApproved, time.Now())
	f.ledger.confirmations["0x333"] = chain.ConfirmationSuccess

	summary, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, types.TxStatusFailed, f.txStatus(t, "0x333"))
}

func TestRun_ProcessesOldestFirst(t *testing.T) {
	f := setupFixture(t)
	order := f.seedOrder(t, types.OrderStatusPending, 10)

	// approval precedes completion: sweeping in creation order applies both
	f.seedTransaction(t, order.OrderID, "0xapprove", types.ActionApproved, time.Now().Add(-time.Minute))
	f.seedTransaction(t, order.OrderID, "0xcomplete", types.ActionCompleted, time.Now())
	f.ledger.confirmations["0xapprove"] = chain.ConfirmationSuccess
	f.ledger.confirmations["0xcomplete"] = chain.ConfirmationSuccess

	summary, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Confirmed)
	assert.Equal(t, []string{"0xapprove", "0xcomplete"}, f.ledger.queries)

	assert.Equal(t, types.OrderStatusCompleted, f.orderStatus(t, order.OrderID))

	record := f.record(t)
	assert.Equal(t, int64(90), record.AvailableQuantity)
	assert.Equal(t, int64(0), record.ReservedQuantity)
}

// gatedLedger signals when a confirmation query starts and blocks it until
// released, so a test can interleave other work mid-sweep.
type gatedLedger struct {
	started chan struct{}
	release chan struct{}
}

func (l *gatedLedger) SignAndSubmit(_ context.Context, _ []byte) (string, error) {
	return "", errors.New("not used in reconciliation")
}

func (l *gatedLedger) GetConfirmation(_ context.Context, _ string) (chain.Confirmation, error) {
	close(l.started)
	<-l.release
	return chain.ConfirmationSuccess, nil
}

func TestRun_SettleWaitsForOrderLock(t *testing.T) {
	f := setupFixture(t)
	orderLocks := locks.NewKeyed()
	service := NewService(f.db, f.ledger, f.inventory, nil, orderLocks)

	order := f.seedOrder(t, types.OrderStatusPending, 10)
	f.seedTransaction(t, order.OrderID, "0xheld", types.ActionApproved, time.Now())
	f.ledger.confirmations["0xheld"] = chain.ConfirmationSuccess

	unlock := orderLocks.Lock(order.OrderID)

	done := make(chan *Summary, 1)
	go func() {
		summary, err := service.Run(context.Background())
		assert.NoError(t, err)
		done <- summary
	}()

	time.Sleep(100 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("sweep settled a transition while the order lock was held")
	default:
	}
	assert.Equal(t, types.TxStatusSubmitted, f.txStatus(t, "0xheld"))

	unlock()
	summary := <-done
	assert.Equal(t, 1, summary.Confirmed)
	assert.Equal(t, types.OrderStatusApproved, f.orderStatus(t, order.OrderID))
}

func TestRun_RejectionDuringSweepStaysConsistent(t *testing.T) {
	f := setupFixture(t)
	orderLocks := locks.NewKeyed()

	require.NoError(t, f.db.Create(&types.Supplier{
		SupplierID:    "sup-1",
		UserID:        "user-supplier",
		Name:          "Acme Components",
		WalletAddress: "0xsupplier",
	}).Error)

	ledger := &gatedLedger{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	service := NewService(f.db, ledger, f.inventory, nil, orderLocks)
	orderService := orders.NewService(f.db, f.inventory, chain.NewGateway(nil), nil, false, orderLocks)

	order := f.seedOrder(t, types.OrderStatusPending, 10)
	f.seedTransaction(t, order.OrderID, "0xgated", types.ActionApproved, time.Now())

	done := make(chan *Summary, 1)
	go func() {
		summary, err := service.Run(context.Background())
		assert.NoError(t, err)
		done <- summary
	}()

	// while the sweep waits on the ledger, the supplier rejects the order
	<-ledger.started
	_, err := orderService.UpdateStatus(context.Background(), "user-supplier", order.OrderID, types.OrderStatusRejected, "")
	require.NoError(t, err)

	close(ledger.release)
	summary := <-done

	// the confirmed approval is stale, not applied on top of the rejection
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, types.OrderStatusRejected, f.orderStatus(t, order.OrderID))
	assert.Equal(t, types.TxStatusFailed, f.txStatus(t, "0xgated"))

	record := f.record(t)
	assert.Equal(t, int64(100), record.AvailableQuantity)
	assert.Equal(t, int64(0), record.ReservedQuantity)
}

func TestRun_InsufficientStockRetries(t *testing.T) {
	f := setupFixture(t)
	order := f.seedOrder(t, types.OrderStatusPending, 500)
	f.seedTransaction(t, order.OrderID, "0x444", types.ActionApproved, time.Now())
	f.ledger.confirmations["0x444"] = chain.ConfirmationSuccess

	summary, err := f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, types.TxStatusSubmitted, f.txStatus(t, "0x444"))
	assert.Equal(t, types.OrderStatusPending, f.orderStatus(t, order.OrderID))

	// stock arrives, the retry succeeds
	_, err = f.inventory.AddStock("wh-1", "prod-1", 400)
	require.NoError(t, err)
	summary, err = f.service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Confirmed)
	assert.Equal(t, types.OrderStatusApproved, f.orderStatus(t, order.OrderID))
}

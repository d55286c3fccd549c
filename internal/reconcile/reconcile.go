package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ksred/procurement-api/internal/chain"
	"github.com/ksred/procurement-api/internal/inventory"
	"github.com/ksred/procurement-api/internal/types"
	"github.com/ksred/procurement-api/pkg/events"
	"github.com/ksred/procurement-api/pkg/locks"
)

// Summary reports the outcome of one sweep.
type Summary struct {
	Processed int `json:"processed"`
	Confirmed int `json:"confirmed"`
	Failed    int `json:"failed"`
	Pending   int `json:"pending"`
}

type outcome int

const (
	outcomeConfirmed outcome = iota
	outcomeFailed
	// outcomeRetry leaves the transaction submitted for the next sweep.
	outcomeRetry
)

// Service reconciles submitted transactions against the external ledger and
// applies each confirmed transition exactly once.
type Service struct {
	db         *Database
	ledger     chain.Ledger
	inventory  *inventory.Service
	publisher  *events.Publisher
	orderLocks *locks.Keyed
}

// NewService creates a reconciliation service. The order lock set must be
// the one the order service transitions under, so a confirmed transition and
// a concurrent status request on the same order cannot interleave; a nil
// value makes a private set.
func NewService(gormDB *gorm.DB, ledger chain.Ledger, inv *inventory.Service, publisher *events.Publisher, orderLocks *locks.Keyed) *Service {
	if orderLocks == nil {
		orderLocks = locks.NewKeyed()
	}
	return &Service{
		db:         NewDatabase(gormDB),
		ledger:     ledger,
		inventory:  inv,
		publisher:  publisher,
		orderLocks: orderLocks,
	}
}

// Run performs one sweep over all submitted transactions, oldest first.
// Only submitted rows are candidates, so re-running after a transaction is
// confirmed or failed never reprocesses it.
func (s *Service) Run(ctx context.Context) (*Summary, error) {
	logger := log.With().Str("component", "reconciler").Logger()

	pending, err := s.db.GetSubmittedTransactions()
	if err != nil {
		return nil, err
	}

	summary := &Summary{Processed: len(pending)}
	if len(pending) == 0 {
		return summary, nil
	}

	logger.Info().Int("submitted_count", len(pending)).Msg("starting reconciliation sweep")

	for i := range pending {
		tx := &pending[i]
		txLogger := logger.With().
			Str("transaction_hash", tx.TransactionHash).
			Str("order_id", tx.OrderID).
			Str("action", tx.Action).
			Logger()

		confirmation, err := s.ledger.GetConfirmation(ctx, tx.TransactionHash)
		if err != nil {
			// Left as submitted: the next sweep retries.
			txLogger.Error().Err(err).Msg("ledger confirmation query failed")
			summary.Pending++
			continue
		}

		switch confirmation {
		case chain.ConfirmationPending:
			summary.Pending++

		case chain.ConfirmationFailure:
			if err := s.db.UpdateTransactionStatus(tx, types.TxStatusFailed); err != nil {
				txLogger.Error().Err(err).Msg("failed to mark transaction failed")
				summary.Pending++
				continue
			}
			txLogger.Warn().Msg("transaction failed on ledger, no side effects applied")
			summary.Failed++

		case chain.ConfirmationSuccess:
			switch s.settle(ctx, tx, txLogger) {
			case outcomeConfirmed:
				summary.Confirmed++
			case outcomeFailed:
				summary.Failed++
			case outcomeRetry:
				summary.Pending++
			}
		}
	}

	logger.Info().
		Int("processed", summary.Processed).
		Int("confirmed", summary.Confirmed).
		Int("failed", summary.Failed).
		Int("pending", summary.Pending).
		Msg("reconciliation sweep completed")

	return summary, nil
}

// settle applies a confirmed transaction's deferred transition, holding the
// order's lock so the status read and write cannot interleave with a request
// transitioning the same order. A stale confirmation, where the order is no
// longer in the status the action presupposes, is marked failed rather than
// silently skipped so operators can see the anomaly.
func (s *Service) settle(ctx context.Context, tx *types.Transaction, logger zerolog.Logger) outcome {
	unlock := s.orderLocks.Lock(tx.OrderID)
	defer unlock()

	order, err := s.db.GetOrder(tx.OrderID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to fetch order")
		return outcomeRetry
	}
	if order == nil {
		return s.markFailed(tx, logger, "order no longer exists")
	}

	var target string
	switch tx.Action {
	case types.ActionApproved:
		if order.Status != types.OrderStatusPending {
			return s.markFailed(tx, logger, "order is not pending")
		}
		if err := s.inventory.ReserveForOrder(order.OrderID, order.WarehouseID); err != nil {
			logger.Error().Err(err).Msg("inventory reservation failed, will retry next sweep")
			return outcomeRetry
		}
		target = types.OrderStatusApproved

	case types.ActionCompleted:
		if order.Status != types.OrderStatusApproved {
			return s.markFailed(tx, logger, "order is not approved")
		}
		if err := s.inventory.FinalizeForOrder(order.OrderID, order.WarehouseID); err != nil {
			logger.Error().Err(err).Msg("inventory finalization failed, will retry next sweep")
			return outcomeRetry
		}
		target = types.OrderStatusCompleted

	default:
		return s.markFailed(tx, logger, "unknown action")
	}

	order.Status = target
	order.UpdatedAt = time.Now()
	if err := s.db.UpdateOrder(order); err != nil {
		logger.Error().Err(err).Msg("failed to update order status")
		return outcomeRetry
	}

	if err := s.db.UpdateTransactionStatus(tx, types.TxStatusConfirmed); err != nil {
		logger.Error().Err(err).Msg("failed to mark transaction confirmed")
		return outcomeRetry
	}

	s.publisher.PublishOrderStatus(ctx, events.OrderEvent{
		OrderID:         order.OrderID,
		Status:          order.Status,
		Action:          tx.Action,
		TransactionHash: tx.TransactionHash,
	})

	logger.Info().Str("status", order.Status).Msg("confirmed transition applied")
	return outcomeConfirmed
}

func (s *Service) markFailed(tx *types.Transaction, logger zerolog.Logger, reason string) outcome {
	if err := s.db.UpdateTransactionStatus(tx, types.TxStatusFailed); err != nil {
		logger.Error().Err(err).Msg("failed to mark transaction failed")
		return outcomeRetry
	}
	logger.Warn().Str("reason", reason).Msg("stale or unusable confirmation marked failed")
	return outcomeFailed
}

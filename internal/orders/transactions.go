package orders

import (
	"fmt"
	"time"

	"github.com/ksred/procurement-api/internal/types"
)

// RecordTransaction stores a caller-attested transaction against an order.
// Used when the client submitted the ledger entry itself and supplies the
// resulting hash directly.
func (s *Service) RecordTransaction(callerID, orderID, hash, action, status string) (*types.Transaction, error) {
	if hash == "" || action == "" {
		return nil, fmt.Errorf("%w: transaction hash and action are required", types.ErrValidation)
	}
	if action != types.ActionApproved && action != types.ActionCompleted {
		return nil, fmt.Errorf("%w: unknown action %q", types.ErrValidation, action)
	}
	if status == "" {
		status = types.TxStatusSubmitted
	}
	if status != types.TxStatusSubmitted && status != types.TxStatusConfirmed && status != types.TxStatusFailed {
		return nil, fmt.Errorf("%w: unknown transaction status %q", types.ErrValidation, status)
	}

	if _, err := s.loadOwnedOrder(callerID, orderID); err != nil {
		return nil, err
	}

	if status == types.TxStatusSubmitted {
		existing, err := s.db.GetSubmittedTransaction(orderID, action)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: a transaction for this transition is already submitted", types.ErrConflict)
		}
	}

	tx := &types.Transaction{
		OrderID:         orderID,
		TransactionHash: hash,
		Action:          action,
		Status:          status,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
	if err := s.db.CreateTransaction(tx); err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: transaction hash already exists", types.ErrConflict)
		}
		return nil, err
	}

	return tx, nil
}

// GetTransactions lists an order's transactions, newest first.
func (s *Service) GetTransactions(callerID, orderID string) ([]types.Transaction, error) {
	if _, err := s.loadOwnedOrder(callerID, orderID); err != nil {
		return nil, err
	}
	return s.db.GetTransactions(orderID)
}

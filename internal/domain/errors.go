package domain

import "errors"

var (
	// Account errors
	ErrInsufficientFunds = errors.New("not enough available funds")
	ErrAccountLocked     = errors.New("account is locked after a chargeback")

	// Dispute errors
	ErrReferencedTransactionDoesNotExist  = errors.New("referenced transaction does not exist")
	ErrReferencedTransactionIsDisputed    = errors.New("referenced transaction is already disputed")
	ErrReferencedTransactionIsNotDisputed = errors.New("referenced transaction is not disputed")

	// Translation errors
	ErrMissingAmount          = errors.New("transaction has no amount")
	ErrUnknownTransactionType = errors.New("unknown transaction type")
)

// RejectReason returns a stable label for a per-record error, used in logs and metrics.
func RejectReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrAccountLocked):
		return "account_locked"
	case errors.Is(err, ErrReferencedTransactionDoesNotExist):
		return "referenced_tx_missing"
	case errors.Is(err, ErrReferencedTransactionIsDisputed):
		return "referenced_tx_disputed"
	case errors.Is(err, ErrReferencedTransactionIsNotDisputed):
		return "referenced_tx_not_disputed"
	case errors.Is(err, ErrMissingAmount):
		return "missing_amount"
	case errors.Is(err, ErrUnknownTransactionType):
		return "unknown_type"
	default:
		return "internal"
	}
}

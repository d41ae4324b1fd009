package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TxID is the globally unique identifier of an input transaction.
type TxID uint32

// TransactionType is the kind of an input transaction.
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeDispute    TransactionType = "dispute"
	TransactionTypeResolve    TransactionType = "resolve"
	TransactionTypeChargeback TransactionType = "chargeback"
)

// legacyWithdrawal is how older exports spell withdrawals.
const legacyWithdrawal = "withdrawl"

// ParseTransactionType parses the case-sensitive type column.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeDispute,
		TransactionTypeResolve, TransactionTypeChargeback:
		return TransactionType(s), nil
	}
	if s == legacyWithdrawal {
		return TransactionTypeWithdrawal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTransactionType, s)
}

// CarriesAmount reports whether records of this type bring their own amount.
func (t TransactionType) CarriesAmount() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeWithdrawal
}

// TransactionRecord is one decoded input row.
// Amount is only valid for deposits and withdrawals; dispute, resolve and
// chargeback reference an earlier transaction by TxID instead.
type TransactionRecord struct {
	Type   TransactionType
	Client ClientID
	TxID   TxID
	Amount decimal.NullDecimal
}

// PersistedTransaction is an accepted deposit or withdrawal kept for later disputes.
type PersistedTransaction struct {
	Record   TransactionRecord
	disputed bool
}

// NewPersistedTransaction wraps rec in an undisputed entry.
func NewPersistedTransaction(rec TransactionRecord) *PersistedTransaction {
	return &PersistedTransaction{Record: rec}
}

// Disputed reports whether the transaction is under an open dispute.
func (p *PersistedTransaction) Disputed() bool {
	return p.disputed
}

// MarkDisputed opens a dispute on the transaction.
func (p *PersistedTransaction) MarkDisputed() {
	p.disputed = true
}

// ClearDisputed closes the dispute after a resolve or chargeback.
func (p *PersistedTransaction) ClearDisputed() {
	p.disputed = false
}

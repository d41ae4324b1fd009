package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ClientID identifies a client account.
type ClientID uint16

// AccountOperationKind is the account-level effect of a transaction.
type AccountOperationKind int

const (
	OpDeposit AccountOperationKind = iota
	OpWithdrawal
	OpAddHold
	OpRemoveHold
	OpChargeback
)

func (k AccountOperationKind) String() string {
	switch k {
	case OpDeposit:
		return "deposit"
	case OpWithdrawal:
		return "withdrawal"
	case OpAddHold:
		return "add_hold"
	case OpRemoveHold:
		return "remove_hold"
	case OpChargeback:
		return "chargeback"
	default:
		return fmt.Sprintf("AccountOperationKind(%d)", int(k))
	}
}

// AccountOperation is a single mutation applied to an Account.
type AccountOperation struct {
	Kind   AccountOperationKind
	Amount decimal.Decimal
}

// Account holds the balances of one client.
// Once locked by a chargeback it rejects every further operation.
type Account struct {
	Client    ClientID
	available decimal.Decimal
	held      decimal.Decimal
	locked    bool
}

// NewAccount creates an empty, unlocked account.
func NewAccount(client ClientID) *Account {
	return &Account{
		Client:    client,
		available: decimal.Zero,
		held:      decimal.Zero,
	}
}

// Available returns the funds that can be withdrawn.
func (a *Account) Available() decimal.Decimal {
	return a.available
}

// Held returns the funds frozen by open disputes.
func (a *Account) Held() decimal.Decimal {
	return a.held
}

// Total returns available plus held funds.
func (a *Account) Total() decimal.Decimal {
	return a.available.Add(a.held)
}

// Locked reports whether a chargeback froze the account.
func (a *Account) Locked() bool {
	return a.locked
}

// Apply mutates the balances according to op.
// On error the account is left unchanged.
func (a *Account) Apply(op AccountOperation) error {
	if a.locked {
		return ErrAccountLocked
	}

	switch op.Kind {
	case OpDeposit:
		a.available = a.available.Add(op.Amount)
	case OpWithdrawal:
		if a.available.LessThan(op.Amount) {
			return ErrInsufficientFunds
		}
		a.available = a.available.Sub(op.Amount)
	case OpAddHold:
		// available may go negative when the disputed funds were already spent
		a.held = a.held.Add(op.Amount)
		a.available = a.available.Sub(op.Amount)
	case OpRemoveHold:
		a.held = a.held.Sub(op.Amount)
		a.available = a.available.Add(op.Amount)
	case OpChargeback:
		a.held = a.held.Sub(op.Amount)
		a.locked = true
	default:
		return fmt.Errorf("unsupported account operation %s", op.Kind)
	}

	return nil
}

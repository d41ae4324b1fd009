package usecase

import (
	"github.com/iho/txreplay/internal/domain"
)

// AccountRepository owns the client accounts of a run.
type AccountRepository interface {
	// GetOrCreate returns the account of client, creating an empty one if needed.
	// The boolean reports whether the account was created by this call.
	GetOrCreate(client domain.ClientID) (*domain.Account, bool)
	// List returns every account ordered by client id.
	List() []*domain.Account
}

// TransactionRepository keeps accepted deposits and withdrawals for dispute lookup.
type TransactionRepository interface {
	Save(tx *domain.PersistedTransaction)
	// GetByID returns domain.ErrReferencedTransactionDoesNotExist when id is unknown.
	GetByID(id domain.TxID) (*domain.PersistedTransaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

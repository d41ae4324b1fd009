package memory

import (
	"sort"

	"github.com/iho/txreplay/internal/domain"
	"github.com/iho/txreplay/internal/usecase"
)

// LedgerStore keeps the accounts and persisted transactions of a single run.
// It is owned by one TransactionProcessor and is not safe for concurrent use.
type LedgerStore struct {
	accounts     map[domain.ClientID]*domain.Account
	transactions map[domain.TxID]*domain.PersistedTransaction
}

// NewLedgerStore creates an empty LedgerStore.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		accounts:     make(map[domain.ClientID]*domain.Account),
		transactions: make(map[domain.TxID]*domain.PersistedTransaction),
	}
}

// GetOrCreate returns the account of client, creating it on first use.
func (s *LedgerStore) GetOrCreate(client domain.ClientID) (*domain.Account, bool) {
	if acc, ok := s.accounts[client]; ok {
		return acc, false
	}
	acc := domain.NewAccount(client)
	s.accounts[client] = acc
	return acc, true
}

// List returns all accounts ordered by client id.
func (s *LedgerStore) List() []*domain.Account {
	accounts := make([]*domain.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		accounts = append(accounts, acc)
	}
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].Client < accounts[j].Client
	})
	return accounts
}

// Save stores tx under its id. A repeated id replaces the earlier entry.
func (s *LedgerStore) Save(tx *domain.PersistedTransaction) {
	s.transactions[tx.Record.TxID] = tx
}

// GetByID returns the persisted transaction with the given id.
func (s *LedgerStore) GetByID(id domain.TxID) (*domain.PersistedTransaction, error) {
	tx, ok := s.transactions[id]
	if !ok {
		return nil, domain.ErrReferencedTransactionDoesNotExist
	}
	return tx, nil
}

var (
	_ usecase.AccountRepository     = (*LedgerStore)(nil)
	_ usecase.TransactionRepository = (*LedgerStore)(nil)
)

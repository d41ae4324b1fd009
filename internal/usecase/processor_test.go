package usecase_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/txreplay/internal/adapter/repository/memory"
	"github.com/iho/txreplay/internal/domain"
	"github.com/iho/txreplay/internal/infrastructure/metrics"
	"github.com/iho/txreplay/internal/usecase"
)

func newProcessor(t *testing.T) (*usecase.TransactionProcessor, *memory.LedgerStore) {
	t.Helper()
	store := memory.NewLedgerStore()
	return usecase.NewTransactionProcessor(store, store, zerolog.Nop(), nil), store
}

func deposit(client domain.ClientID, tx domain.TxID, amount string) domain.TransactionRecord {
	return domain.TransactionRecord{
		Type:   domain.TransactionTypeDeposit,
		Client: client,
		TxID:   tx,
		Amount: decimal.NewNullDecimal(decimal.RequireFromString(amount)),
	}
}

func withdrawal(client domain.ClientID, tx domain.TxID, amount string) domain.TransactionRecord {
	rec := deposit(client, tx, amount)
	rec.Type = domain.TransactionTypeWithdrawal
	return rec
}

func reference(typ domain.TransactionType, client domain.ClientID, tx domain.TxID) domain.TransactionRecord {
	return domain.TransactionRecord{Type: typ, Client: client, TxID: tx}
}

func account(t *testing.T, store *memory.LedgerStore, client domain.ClientID) *domain.Account {
	t.Helper()
	for _, acc := range store.List() {
		if acc.Client == client {
			return acc
		}
	}
	t.Fatalf("account %d not found", client)
	return nil
}

func assertBalances(t *testing.T, acc *domain.Account, available, held string, locked bool) {
	t.Helper()
	assert.True(t, acc.Available().Equal(decimal.RequireFromString(available)), "available: want %s, got %s", available, acc.Available())
	assert.True(t, acc.Held().Equal(decimal.RequireFromString(held)), "held: want %s, got %s", held, acc.Held())
	assert.Equal(t, locked, acc.Locked(), "locked")
}

func TestTransactionProcessor_SingleDeposit(t *testing.T) {
	p, store := newProcessor(t)

	require.NoError(t, p.Apply(deposit(1, 1, "1.00")))

	assertBalances(t, account(t, store, 1), "1.00", "0.00", false)
	_, err := store.GetByID(1)
	require.NoError(t, err, "deposit must be persisted")
}

func TestTransactionProcessor_DisputeHoldsFunds(t *testing.T) {
	p, store := newProcessor(t)

	require.NoError(t, p.Apply(deposit(1, 1, "1.00")))
	require.NoError(t, p.Apply(reference(domain.TransactionTypeDispute, 1, 1)))

	assertBalances(t, account(t, store, 1), "0.00", "1.00", false)
}

func TestTransactionProcessor_ChargebackLocks(t *testing.T) {
	p, store := newProcessor(t)

	require.NoError(t, p.Apply(deposit(1, 1, "1.00")))
	require.NoError(t, p.Apply(reference(domain.TransactionTypeDispute, 1, 1)))
	require.NoError(t, p.Apply(reference(domain.TransactionTypeChargeback, 1, 1)))

	err := p.Apply(deposit(1, 2, "1.00"))
	require.ErrorIs(t, err, domain.ErrAccountLocked)

	assertBalances(t, account(t, store, 1), "0", "0", true)
}

func TestTransactionProcessor_InsufficientFunds(t *testing.T) {
	p, store := newProcessor(t)

	require.NoError(t, p.Apply(deposit(1, 1, "3.00")))
	err := p.Apply(withdrawal(1, 2, "5.00"))

	require.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assertBalances(t, account(t, store, 1), "3.00", "0", false)
}

func TestTransactionProcessor_FailedWithdrawalIsStillDisputable(t *testing.T) {
	p, store := newProcessor(t)

	require.NoError(t, p.Apply(deposit(1, 1, "3.00")))
	require.ErrorIs(t, p.Apply(withdrawal(1, 2, "5.00")), domain.ErrInsufficientFunds)

	require.NoError(t, p.Apply(reference(domain.TransactionTypeDispute, 1, 2)))
	assertBalances(t, account(t, store, 1), "-2.00", "5.00", false)
}

func TestTransactionProcessor_DisputeResolveRoundTrip(t *testing.T) {
	p, store := newProcessor(t)

	require.NoError(t, p.Apply(deposit(1, 1, "2.5")))
	require.NoError(t, p.Apply(deposit(1, 2, "0.75")))
	require.NoError(t, p.Apply(withdrawal(1, 3, "1.25")))
	before := account(t, store, 1)
	available, held := before.Available(), before.Held()

	require.NoError(t, p.Apply(reference(domain.TransactionTypeDispute, 1, 2)))
	require.NoError(t, p.Apply(reference(domain.TransactionTypeResolve, 1, 2)))

	after := account(t, store, 1)
	assert.True(t, after.Available().Equal(available))
	assert.True(t, after.Held().Equal(held))
	assert.False(t, after.Locked())
}

func TestTransactionProcessor_DisputeErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   []domain.TransactionRecord
		record  domain.TransactionRecord
		wantErr error
	}{
		{
			name:    "dispute unknown tx",
			setup:   []domain.TransactionRecord{deposit(1, 1, "4")},
			record:  reference(domain.TransactionTypeDispute, 1, 99),
			wantErr: domain.ErrReferencedTransactionDoesNotExist,
		},
		{
			name: "dispute twice",
			setup: []domain.TransactionRecord{
				deposit(1, 1, "4"),
				reference(domain.TransactionTypeDispute, 1, 1),
			},
			record:  reference(domain.TransactionTypeDispute, 1, 1),
			wantErr: domain.ErrReferencedTransactionIsDisputed,
		},
		{
			name:    "resolve without dispute",
			setup:   []domain.TransactionRecord{deposit(1, 1, "4")},
			record:  reference(domain.TransactionTypeResolve, 1, 1),
			wantErr: domain.ErrReferencedTransactionIsNotDisputed,
		},
		{
			name: "resolve already resolved",
			setup: []domain.TransactionRecord{
				deposit(1, 1, "4"),
				reference(domain.TransactionTypeDispute, 1, 1),
				reference(domain.TransactionTypeResolve, 1, 1),
			},
			record:  reference(domain.TransactionTypeResolve, 1, 1),
			wantErr: domain.ErrReferencedTransactionIsNotDisputed,
		},
		{
			name:    "chargeback without dispute",
			setup:   []domain.TransactionRecord{deposit(1, 1, "4")},
			record:  reference(domain.TransactionTypeChargeback, 1, 1),
			wantErr: domain.ErrReferencedTransactionIsNotDisputed,
		},
		{
			name:    "chargeback unknown tx",
			setup:   []domain.TransactionRecord{deposit(1, 1, "4")},
			record:  reference(domain.TransactionTypeChargeback, 1, 2),
			wantErr: domain.ErrReferencedTransactionDoesNotExist,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store := newProcessor(t)
			for _, rec := range tt.setup {
				require.NoError(t, p.Apply(rec))
			}
			acc := account(t, store, 1)
			available, held := acc.Available(), acc.Held()

			err := p.Apply(tt.record)

			require.ErrorIs(t, err, tt.wantErr)
			assert.True(t, acc.Available().Equal(available), "available changed")
			assert.True(t, acc.Held().Equal(held), "held changed")
		})
	}
}

func TestTransactionProcessor_UnknownReferenceCreatesNoAccount(t *testing.T) {
	p, store := newProcessor(t)

	require.ErrorIs(t, p.Apply(reference(domain.TransactionTypeDispute, 5, 1)), domain.ErrReferencedTransactionDoesNotExist)
	assert.Empty(t, store.List())
}

func TestTransactionProcessor_MissingAmount(t *testing.T) {
	p, store := newProcessor(t)

	err := p.Apply(domain.TransactionRecord{Type: domain.TransactionTypeDeposit, Client: 1, TxID: 1})

	require.ErrorIs(t, err, domain.ErrMissingAmount)
	assert.Empty(t, store.List())
	_, err = store.GetByID(1)
	require.ErrorIs(t, err, domain.ErrReferencedTransactionDoesNotExist, "untranslatable record must not be persisted")
}

func TestTransactionProcessor_LockedAccountRejectsAll(t *testing.T) {
	p, store := newProcessor(t)

	require.NoError(t, p.Apply(deposit(1, 1, "10")))
	require.NoError(t, p.Apply(deposit(1, 2, "5")))
	require.NoError(t, p.Apply(reference(domain.TransactionTypeDispute, 1, 2)))
	require.NoError(t, p.Apply(reference(domain.TransactionTypeChargeback, 1, 2)))

	records := []domain.TransactionRecord{
		deposit(1, 3, "1"),
		withdrawal(1, 4, "1"),
		reference(domain.TransactionTypeDispute, 1, 1),
	}
	for _, rec := range records {
		require.ErrorIs(t, p.Apply(rec), domain.ErrAccountLocked, "%s", rec.Type)
	}

	assertBalances(t, account(t, store, 1), "10", "0", true)
}

func TestTransactionProcessor_Replay(t *testing.T) {
	var logs bytes.Buffer
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	store := memory.NewLedgerStore()
	p := usecase.NewTransactionProcessor(store, store, zerolog.New(&logs), m)

	records := []domain.TransactionRecord{
		deposit(1, 1, "1.0"),
		deposit(2, 2, "2.0"),
		deposit(1, 3, "2.0"),
		withdrawal(1, 4, "1.5"),
		withdrawal(2, 5, "3.0"),
		reference(domain.TransactionTypeDispute, 1, 77),
	}

	summary, err := p.Replay(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Applied)
	assert.Equal(t, 2, summary.Rejected)
	assert.Equal(t, map[string]int{"insufficient_funds": 1, "referenced_tx_missing": 1}, summary.Reasons)

	accounts := p.Accounts()
	require.Len(t, accounts, 2)
	assertBalances(t, accounts[0], "1.5", "0", false)
	assertBalances(t, accounts[1], "2.0", "0", false)

	assert.Contains(t, logs.String(), `"reason":"insufficient_funds"`)
	assert.Contains(t, logs.String(), `"tx":5`)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.AccountsCreated))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.TransactionsPersisted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TransactionsRejected.WithLabelValues("withdrawal", "insufficient_funds")))
	assert.Contains(t, logs.String(), `"reasons":{"insufficient_funds":1,"referenced_tx_missing":1}`)
}

func TestTransactionProcessor_DisputeMetricsCountAppliedTransitions(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	store := memory.NewLedgerStore()
	p := usecase.NewTransactionProcessor(store, store, zerolog.Nop(), m)

	require.NoError(t, p.Apply(deposit(1, 1, "10")))
	require.NoError(t, p.Apply(deposit(1, 2, "5")))
	require.NoError(t, p.Apply(reference(domain.TransactionTypeDispute, 1, 2)))
	require.NoError(t, p.Apply(reference(domain.TransactionTypeChargeback, 1, 2)))

	require.ErrorIs(t, p.Apply(reference(domain.TransactionTypeDispute, 1, 1)), domain.ErrAccountLocked)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Disputes.WithLabelValues("opened")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Disputes.WithLabelValues("charged_back")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.AccountsLocked))
}

func TestTransactionProcessor_ReplayStopsOnCancel(t *testing.T) {
	p, store := newProcessor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := p.Replay(ctx, []domain.TransactionRecord{deposit(1, 1, "1")})

	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Applied)
	assert.Empty(t, store.List())
}

package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/txreplay/internal/domain"
	"github.com/iho/txreplay/internal/infrastructure/metrics"
)

// TransactionProcessor applies decoded transaction records to the ledger.
// It is not safe for concurrent use; records must be applied in input order.
type TransactionProcessor struct {
	accounts     AccountRepository
	transactions TransactionRepository
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

// NewTransactionProcessor creates a new TransactionProcessor.
func NewTransactionProcessor(
	accounts AccountRepository,
	transactions TransactionRepository,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *TransactionProcessor {
	return &TransactionProcessor{
		accounts:     accounts,
		transactions: transactions,
		logger:       logger,
		metrics:      metrics,
	}
}

// Apply applies a single record.
// A failed record leaves balances untouched; callers may continue with the next one.
func (p *TransactionProcessor) Apply(rec domain.TransactionRecord) error {
	op, err := p.toAccountOperation(rec)
	if err != nil {
		return err
	}

	var disputeEvent string
	switch rec.Type {
	case domain.TransactionTypeDeposit, domain.TransactionTypeWithdrawal:
		// Persisted before the account sees it, so a withdrawal rejected for
		// insufficient funds can still be disputed later.
		p.transactions.Save(domain.NewPersistedTransaction(rec))
		if p.metrics != nil {
			p.metrics.TransactionsPersisted.Inc()
		}
	case domain.TransactionTypeDispute:
		ref, err := p.transactions.GetByID(rec.TxID)
		if err != nil {
			return err
		}
		if ref.Disputed() {
			return domain.ErrReferencedTransactionIsDisputed
		}
		ref.MarkDisputed()
		disputeEvent = "opened"
	case domain.TransactionTypeResolve, domain.TransactionTypeChargeback:
		ref, err := p.transactions.GetByID(rec.TxID)
		if err != nil {
			return err
		}
		if !ref.Disputed() {
			return domain.ErrReferencedTransactionIsNotDisputed
		}
		ref.ClearDisputed()
		if rec.Type == domain.TransactionTypeResolve {
			disputeEvent = "resolved"
		} else {
			disputeEvent = "charged_back"
		}
	}

	account, created := p.accounts.GetOrCreate(rec.Client)
	if created && p.metrics != nil {
		p.metrics.AccountsCreated.Inc()
	}

	// The dispute flag stays changed even when the account rejects the
	// operation; only applied transitions are counted.
	if err := account.Apply(op); err != nil {
		return err
	}

	if disputeEvent != "" {
		p.observeDispute(disputeEvent)
	}

	if op.Kind == domain.OpChargeback && p.metrics != nil {
		p.metrics.AccountsLocked.Inc()
	}

	return nil
}

func (p *TransactionProcessor) toAccountOperation(rec domain.TransactionRecord) (domain.AccountOperation, error) {
	switch rec.Type {
	case domain.TransactionTypeDeposit:
		return ownAmount(domain.OpDeposit, rec)
	case domain.TransactionTypeWithdrawal:
		return ownAmount(domain.OpWithdrawal, rec)
	case domain.TransactionTypeDispute:
		return p.referencedAmount(domain.OpAddHold, rec)
	case domain.TransactionTypeResolve:
		return p.referencedAmount(domain.OpRemoveHold, rec)
	case domain.TransactionTypeChargeback:
		return p.referencedAmount(domain.OpChargeback, rec)
	default:
		return domain.AccountOperation{}, fmt.Errorf("%w: %q", domain.ErrUnknownTransactionType, rec.Type)
	}
}

func ownAmount(kind domain.AccountOperationKind, rec domain.TransactionRecord) (domain.AccountOperation, error) {
	if !rec.Amount.Valid {
		return domain.AccountOperation{}, fmt.Errorf("%s tx %d: %w", rec.Type, rec.TxID, domain.ErrMissingAmount)
	}
	return domain.AccountOperation{Kind: kind, Amount: rec.Amount.Decimal}, nil
}

// referencedAmount resolves the amount of the transaction rec points at.
func (p *TransactionProcessor) referencedAmount(kind domain.AccountOperationKind, rec domain.TransactionRecord) (domain.AccountOperation, error) {
	ref, err := p.transactions.GetByID(rec.TxID)
	if err != nil {
		return domain.AccountOperation{}, err
	}
	if !ref.Record.Amount.Valid {
		return domain.AccountOperation{}, fmt.Errorf("referenced tx %d: %w", rec.TxID, domain.ErrMissingAmount)
	}
	return domain.AccountOperation{Kind: kind, Amount: ref.Record.Amount.Decimal}, nil
}

func (p *TransactionProcessor) observeDispute(event string) {
	if p.metrics != nil {
		p.metrics.Disputes.WithLabelValues(event).Inc()
	}
}

// ReplaySummary counts the outcome of a replay.
type ReplaySummary struct {
	Applied  int
	Rejected int
	// Reasons counts rejected records by domain.RejectReason label.
	Reasons map[string]int
}

// Replay applies records in order, logging and skipping the ones that fail.
// It stops early only when ctx is cancelled, returning the context error.
func (p *TransactionProcessor) Replay(ctx context.Context, records []domain.TransactionRecord) (ReplaySummary, error) {
	summary := ReplaySummary{Reasons: make(map[string]int)}

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if err := p.Apply(rec); err != nil {
			reason := domain.RejectReason(err)
			summary.Rejected++
			summary.Reasons[reason]++

			p.logger.Warn().
				Err(err).
				Str("type", string(rec.Type)).
				Uint16("client", uint16(rec.Client)).
				Uint32("tx", uint32(rec.TxID)).
				Str("reason", reason).
				Msg("could not apply transaction")

			if p.metrics != nil {
				p.metrics.TransactionsRejected.WithLabelValues(string(rec.Type), reason).Inc()
			}
			continue
		}

		summary.Applied++
		if p.metrics != nil {
			p.metrics.TransactionsApplied.WithLabelValues(string(rec.Type)).Inc()
		}
	}

	p.logger.Info().
		Int("applied", summary.Applied).
		Int("rejected", summary.Rejected).
		Interface("reasons", summary.Reasons).
		Msg("replay completed")

	return summary, nil
}

// Accounts returns the final account snapshot ordered by client id.
func (p *TransactionProcessor) Accounts() []*domain.Account {
	return p.accounts.List()
}

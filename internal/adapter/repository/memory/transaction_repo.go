package memory

import (
	"context"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(store *Store) *TransactionRepository {
	return &TransactionRepository{store: store}
}

// Create appends a transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error {
	mt, unlock, err := r.store.begin(tx)
	if err != nil {
		return err
	}
	defer unlock()

	row := *t
	mt.transactions = append(mt.transactions, &row)

	return nil
}

// ListByGame returns a page of a game's transactions in recording order.
func (r *TransactionRepository) ListByGame(ctx context.Context, gameID string, limit, offset int) ([]*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]*domain.Transaction, 0)
	skipped := 0
	for _, t := range r.store.transactions {
		if t.GameID != gameID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(result) == limit {
			break
		}
		row := *t
		result = append(result, &row)
	}

	return result, nil
}

// SumByGame derives totals from the raw transactions.
func (r *TransactionRepository) SumByGame(ctx context.Context, gameID string) ([]*domain.ParticipantTotals, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var txs []*domain.Transaction
	for _, t := range r.store.transactions {
		if t.GameID == gameID {
			txs = append(txs, t)
		}
	}

	return domain.SumTransactions(gameID, txs), nil
}

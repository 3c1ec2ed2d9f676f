package memory

import (
	"context"
	"slices"
	"time"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	store *Store
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

// Create appends an event.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Tx, event *domain.OutboxEvent) error {
	t, unlock, err := r.store.begin(tx)
	if err != nil {
		return err
	}
	defer unlock()

	row := *event
	t.outbox = append(t.outbox, &row)

	return nil
}

// GetUnpublished returns up to limit unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]*domain.OutboxEvent, 0)
	for _, e := range r.store.outbox {
		if len(result) == limit {
			break
		}
		if !e.Published {
			row := *e
			result = append(result, &row)
		}
	}

	return result, nil
}

// MarkPublished flags an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, e := range r.store.outbox {
		if e.ID == id {
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
			return nil
		}
	}

	return nil
}

// DeletePublished removes events published before the cutoff.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.outbox = slices.DeleteFunc(r.store.outbox, func(e *domain.OutboxEvent) bool {
		return e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before)
	})

	return nil
}

package memory

import (
	"context"
	"errors"
	"sync"

	"unimalia-core/internal/domain/subscriptions"
)

type subscriptionsRepo struct {
	mu       sync.RWMutex
	byUserID map[string]subscriptions.Record
}

func NewSubscriptionsRepo() subscriptions.Repository {
	return &subscriptionsRepo{
		byUserID: make(map[string]subscriptions.Record),
	}
}

func (r *subscriptionsRepo) GetByUserID(ctx context.Context, userID string) (subscriptions.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byUserID[userID]
	if !ok {
		return subscriptions.Record{}, subscriptions.ErrNotFound
	}
	return rec, nil
}

func (r *subscriptionsRepo) Upsert(ctx context.Context, rec subscriptions.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.UserID == "" {
		return errors.New("user id required")
	}
	r.byUserID[rec.UserID] = rec
	return nil
}

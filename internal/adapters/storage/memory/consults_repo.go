package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"unimalia-core/internal/domain/consults"
)

type consultsRepo struct {
	mu   sync.RWMutex
	byID map[string]consults.ConsultRequest
}

func NewConsultsRepo() consults.Repository {
	return &consultsRepo{
		byID: make(map[string]consults.ConsultRequest),
	}
}

func (r *consultsRepo) Create(ctx context.Context, c consults.ConsultRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		return errors.New("consult id required")
	}
	if _, exists := r.byID[c.ID]; exists {
		return errors.New("consult already exists")
	}
	r.byID[c.ID] = c
	return nil
}

func (r *consultsRepo) GetByID(ctx context.Context, id string) (consults.ConsultRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return consults.ConsultRequest{}, consults.ErrNotFound
	}
	return c, nil
}

func (r *consultsRepo) CountPending(ctx context.Context, professionalID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, c := range r.byID {
		if c.ProfessionalID == professionalID && c.Status == consults.StatusPending {
			n++
		}
	}
	return n, nil
}

func (r *consultsRepo) ListByProfessional(ctx context.Context, professionalID string, f consults.ListFilter) ([]consults.ConsultRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]consults.ConsultRequest, 0)
	for _, c := range r.byID {
		if c.ProfessionalID != professionalID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(c.AnimalName), q) &&
			!strings.Contains(strings.ToLower(c.OwnerName), q) {
			continue
		}
		out = append(out, c)
	}

	// emergencia primero, luego más nueva primero
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsEmergency != out[j].IsEmergency {
			return out[i].IsEmergency
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *consultsRepo) UpdateStatus(ctx context.Context, id string, from, to consults.Status, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok || c.Status != from {
		return consults.ErrNotFound
	}
	c.Status = to
	c.UpdatedAt = now
	r.byID[id] = c
	return nil
}

func (r *consultsRepo) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, c := range r.byID {
		if c.Status != consults.StatusPending {
			continue
		}
		if c.ExpiresAt.After(now) {
			continue
		}
		c.Status = consults.StatusExpired
		c.UpdatedAt = now
		r.byID[id] = c
		n++
	}
	return n, nil
}

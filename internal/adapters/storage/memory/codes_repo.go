package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"unimalia-core/internal/domain/emergencycodes"
)

type codesRepo struct {
	mu   sync.Mutex
	byID map[string]emergencycodes.Code
}

func NewCodesRepo() emergencycodes.Repository {
	return &codesRepo{
		byID: make(map[string]emergencycodes.Code),
	}
}

func (r *codesRepo) Create(ctx context.Context, c emergencycodes.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		return errors.New("code id required")
	}
	if _, exists := r.byID[c.ID]; exists {
		return errors.New("code already exists")
	}
	r.byID[c.ID] = c
	return nil
}

// Consume es atómico bajo el mutex: dos submissions concurrentes con el
// mismo código no pueden gastarlo dos veces.
func (r *codesRepo) Consume(ctx context.Context, professionalID, code string, now time.Time) (emergencycodes.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.byID {
		if c.ProfessionalID != professionalID || c.Code != code {
			continue
		}
		if c.IsUsed || !c.ExpiresAt.After(now) {
			continue
		}
		c.IsUsed = true
		r.byID[id] = c
		return c, nil
	}
	return emergencycodes.Code{}, emergencycodes.ErrNotFound
}

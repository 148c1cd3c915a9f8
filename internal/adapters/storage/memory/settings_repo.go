package memory

import (
	"context"
	"errors"
	"sync"

	"unimalia-core/internal/domain/professionals"
)

type settingsRepo struct {
	mu       sync.RWMutex
	byProfID map[string]professionals.Settings
}

func NewSettingsRepo() professionals.Repository {
	return &settingsRepo{
		byProfID: make(map[string]professionals.Settings),
	}
}

func (r *settingsRepo) Get(ctx context.Context, professionalID string) (professionals.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byProfID[professionalID]
	if !ok {
		return professionals.Settings{}, professionals.ErrNotFound
	}
	return s, nil
}

func (r *settingsRepo) Upsert(ctx context.Context, s professionals.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ProfessionalID == "" {
		return errors.New("professional id required")
	}
	r.byProfID[s.ProfessionalID] = s
	return nil
}

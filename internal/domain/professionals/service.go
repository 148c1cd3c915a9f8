package professionals

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// SettingsFor devuelve la configuración persistida o los defaults si el
// profesional nunca guardó nada. Cualquier otro error de storage se propaga
// tal cual: el caller decide si corta (la admisión corta).
func (s *Service) SettingsFor(ctx context.Context, professionalID string) (Settings, error) {
	professionalID = strings.TrimSpace(professionalID)
	if professionalID == "" {
		return Settings{}, ErrInvalidInput
	}

	st, err := s.repo.Get(ctx, professionalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return DefaultSettings(professionalID), nil
		}
		return Settings{}, err
	}
	return st, nil
}

type UpdateInput struct {
	// Punteros para update parcial: nil = no tocar.
	CapPending *int
	Blocked    *bool
}

// Update aplica cambios parciales sobre la configuración (upsert).
func (s *Service) Update(ctx context.Context, professionalID string, in UpdateInput) (Settings, error) {
	professionalID = strings.TrimSpace(professionalID)
	if professionalID == "" {
		return Settings{}, ErrInvalidInput
	}
	if in.CapPending != nil && *in.CapPending < 0 {
		return Settings{}, ErrInvalidInput
	}

	current, err := s.SettingsFor(ctx, professionalID)
	if err != nil {
		return Settings{}, err
	}

	if in.CapPending != nil {
		current.CapPending = *in.CapPending
	}
	if in.Blocked != nil {
		current.Blocked = *in.Blocked
	}
	current.UpdatedAt = s.now()

	if err := s.repo.Upsert(ctx, current); err != nil {
		return Settings{}, err
	}
	return current, nil
}

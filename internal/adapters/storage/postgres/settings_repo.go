package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"unimalia-core/internal/domain/professionals"
)

type SettingsRepo struct {
	db *sql.DB
}

func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

func (r *SettingsRepo) Get(ctx context.Context, professionalID string) (professionals.Settings, error) {
	professionalID = strings.TrimSpace(professionalID)
	if professionalID == "" {
		return professionals.Settings{}, professionals.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT professional_id, cap_pending, blocked, updated_at
		FROM professional_settings
		WHERE professional_id = $1
	`, professionalID)

	var s professionals.Settings
	if err := row.Scan(&s.ProfessionalID, &s.CapPending, &s.Blocked, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return professionals.Settings{}, professionals.ErrNotFound
		}
		return professionals.Settings{}, err
	}
	return s, nil
}

func (r *SettingsRepo) Upsert(ctx context.Context, s professionals.Settings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO professional_settings (professional_id, cap_pending, blocked, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (professional_id) DO UPDATE
		SET cap_pending = EXCLUDED.cap_pending,
		    blocked = EXCLUDED.blocked,
		    updated_at = EXCLUDED.updated_at
	`,
		s.ProfessionalID,
		s.CapPending,
		s.Blocked,
		s.UpdatedAt,
	)
	return err
}

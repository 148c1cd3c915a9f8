package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"unimalia-core/internal/domain/emergencycodes"
)

type CodesRepo struct {
	db *sql.DB
}

func NewCodesRepo(db *sql.DB) *CodesRepo {
	return &CodesRepo{db: db}
}

func (r *CodesRepo) Create(ctx context.Context, c emergencycodes.Code) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO emergency_codes (
			id, professional_id, code, expires_at, is_used, created_at
		) VALUES ($1,$2,$3,$4,$5,$6)
	`,
		c.ID,
		c.ProfessionalID,
		c.Code,
		c.ExpiresAt,
		c.IsUsed,
		c.CreatedAt,
	)
	return err
}

// Consume gasta el código en un único UPDATE condicional: la condición
// is_used = false garantiza un-solo-uso aunque dos requests lleguen a la vez
// (gana exactamente uno, el otro ve 0 filas).
func (r *CodesRepo) Consume(ctx context.Context, professionalID, code string, now time.Time) (emergencycodes.Code, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE emergency_codes
		SET is_used = true
		WHERE professional_id = $1
		  AND code = $2
		  AND is_used = false
		  AND expires_at > $3
		RETURNING id, professional_id, code, expires_at, is_used, created_at
	`, professionalID, code, now)

	var c emergencycodes.Code
	if err := row.Scan(
		&c.ID,
		&c.ProfessionalID,
		&c.Code,
		&c.ExpiresAt,
		&c.IsUsed,
		&c.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return emergencycodes.Code{}, emergencycodes.ErrNotFound
		}
		return emergencycodes.Code{}, err
	}
	return c, nil
}

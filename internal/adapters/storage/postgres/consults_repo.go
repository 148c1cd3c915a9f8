package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"unimalia-core/internal/domain/consults"
)

type ConsultsRepo struct {
	db *sql.DB
}

func NewConsultsRepo(db *sql.DB) *ConsultsRepo {
	return &ConsultsRepo{db: db}
}

func (r *ConsultsRepo) Create(ctx context.Context, c consults.ConsultRequest) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO consult_requests (
			id, owner_id, professional_id, animal_id,
			animal_name, owner_name, message,
			status, is_emergency, emergency_code,
			created_at, expires_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		c.ID,
		c.OwnerID,
		c.ProfessionalID,
		c.AnimalID,
		c.AnimalName,
		c.OwnerName,
		c.Message,
		string(c.Status),
		c.IsEmergency,
		c.EmergencyCode,
		c.CreatedAt,
		c.ExpiresAt,
		c.UpdatedAt,
	)
	return err
}

func (r *ConsultsRepo) GetByID(ctx context.Context, id string) (consults.ConsultRequest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return consults.ConsultRequest{}, consults.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			id, owner_id, professional_id, animal_id,
			animal_name, owner_name, message,
			status, is_emergency, emergency_code,
			created_at, expires_at, updated_at
		FROM consult_requests
		WHERE id = $1
	`, id)

	return scanConsult(row)
}

func (r *ConsultsRepo) CountPending(ctx context.Context, professionalID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM consult_requests
		WHERE professional_id = $1
		  AND status = 'pending'
	`, professionalID).Scan(&n)
	return n, err
}

func (r *ConsultsRepo) ListByProfessional(ctx context.Context, professionalID string, f consults.ListFilter) ([]consults.ConsultRequest, error) {
	professionalID = strings.TrimSpace(professionalID)
	if professionalID == "" {
		return nil, nil
	}

	q := `
		SELECT
			id, owner_id, professional_id, animal_id,
			animal_name, owner_name, message,
			status, is_emergency, emergency_code,
			created_at, expires_at, updated_at
		FROM consult_requests
		WHERE professional_id = $1
	`
	args := []any{professionalID}

	if f.Status != "" {
		args = append(args, string(f.Status))
		q += ` AND status = $2`
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		args = append(args, "%"+s+"%")
		n := strconv.Itoa(len(args))
		q += ` AND (animal_name ILIKE $` + n + ` OR owner_name ILIKE $` + n + `)`
	}

	// emergencia primero, luego más nueva primero
	q += ` ORDER BY is_emergency DESC, created_at DESC`

	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += ` LIMIT $` + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]consults.ConsultRequest, 0)
	for rows.Next() {
		c, err := scanConsult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ConsultsRepo) UpdateStatus(ctx context.Context, id string, from, to consults.Status, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE consult_requests
		SET status = $3, updated_at = $4
		WHERE id = $1
		  AND status = $2
	`, id, string(from), string(to), now)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return consults.ErrNotFound
	}
	return nil
}

func (r *ConsultsRepo) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE consult_requests
		SET status = 'expired', updated_at = $1
		WHERE status = 'pending'
		  AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsult(row rowScanner) (consults.ConsultRequest, error) {
	var c consults.ConsultRequest
	var status string

	if err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.ProfessionalID,
		&c.AnimalID,
		&c.AnimalName,
		&c.OwnerName,
		&c.Message,
		&status,
		&c.IsEmergency,
		&c.EmergencyCode,
		&c.CreatedAt,
		&c.ExpiresAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return consults.ConsultRequest{}, consults.ErrNotFound
		}
		return consults.ConsultRequest{}, err
	}

	c.Status = consults.Status(status)
	return c, nil
}

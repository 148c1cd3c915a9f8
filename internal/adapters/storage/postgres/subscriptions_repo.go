package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"unimalia-core/internal/domain/subscriptions"
)

type SubscriptionsRepo struct {
	db *sql.DB
}

func NewSubscriptionsRepo(db *sql.DB) *SubscriptionsRepo {
	return &SubscriptionsRepo{db: db}
}

func (r *SubscriptionsRepo) GetByUserID(ctx context.Context, userID string) (subscriptions.Record, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return subscriptions.Record{}, subscriptions.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			user_id, role, billing_interval, status,
			current_period_end, cancel_at_period_end,
			external_customer_id, external_subscription_id,
			last_processed_event_id,
			created_at, updated_at
		FROM subscription_records
		WHERE user_id = $1
	`, userID)

	var rec subscriptions.Record
	var role, interval string
	var periodEnd sql.NullTime

	if err := row.Scan(
		&rec.UserID,
		&role,
		&interval,
		&rec.Status,
		&periodEnd,
		&rec.CancelAtPeriodEnd,
		&rec.ExternalCustomerID,
		&rec.ExternalSubscriptionID,
		&rec.LastProcessedEventID,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return subscriptions.Record{}, subscriptions.ErrNotFound
		}
		return subscriptions.Record{}, err
	}

	rec.Role = subscriptions.Role(role)
	rec.Interval = subscriptions.Interval(interval)
	if periodEnd.Valid {
		t := periodEnd.Time
		rec.CurrentPeriodEnd = &t
	}
	return rec, nil
}

func (r *SubscriptionsRepo) Upsert(ctx context.Context, rec subscriptions.Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscription_records (
			user_id, role, billing_interval, status,
			current_period_end, cancel_at_period_end,
			external_customer_id, external_subscription_id,
			last_processed_event_id,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (user_id) DO UPDATE
		SET role = EXCLUDED.role,
		    billing_interval = EXCLUDED.billing_interval,
		    status = EXCLUDED.status,
		    current_period_end = EXCLUDED.current_period_end,
		    cancel_at_period_end = EXCLUDED.cancel_at_period_end,
		    external_customer_id = EXCLUDED.external_customer_id,
		    external_subscription_id = EXCLUDED.external_subscription_id,
		    last_processed_event_id = EXCLUDED.last_processed_event_id,
		    updated_at = EXCLUDED.updated_at
	`,
		rec.UserID,
		string(rec.Role),
		string(rec.Interval),
		rec.Status,
		toNullTime(rec.CurrentPeriodEnd),
		rec.CancelAtPeriodEnd,
		rec.ExternalCustomerID,
		rec.ExternalSubscriptionID,
		rec.LastProcessedEventID,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	return err
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

package professionals

import "context"

type Repository interface {
	Get(ctx context.Context, professionalID string) (Settings, error)
	Upsert(ctx context.Context, s Settings) error
}

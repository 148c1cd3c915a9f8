package subscriptions

import "context"

type Repository interface {
	GetByUserID(ctx context.Context, userID string) (Record, error)

	// Upsert escribe el estado completo del record (last-write-wins por
	// campo, no merge), clave user_id.
	Upsert(ctx context.Context, r Record) error
}

package emergencycodes

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, c Code) error

	// Consume marca el código como usado en un solo paso condicional:
	// éxito iff existe para ese profesional, is_used=false y expires_at > now.
	// Devuelve ErrNotFound si no hay código consumible (inexistente, usado
	// o vencido se tratan igual hacia afuera).
	Consume(ctx context.Context, professionalID, code string, now time.Time) (Code, error)
}

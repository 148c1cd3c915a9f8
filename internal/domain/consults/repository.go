package consults

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, c ConsultRequest) error
	GetByID(ctx context.Context, id string) (ConsultRequest, error)

	// CountPending cuenta las solicitudes pending del profesional.
	// Es la lectura del chequeo de cupo: debe quedar lo más cerca posible
	// del insert (la ventana read→write es la carrera tolerada).
	CountPending(ctx context.Context, professionalID string) (int, error)

	// ListByProfessional devuelve las solicitudes del profesional ordenadas
	// emergencia-primero y luego más-nueva-primero.
	ListByProfessional(ctx context.Context, professionalID string, f ListFilter) ([]ConsultRequest, error)

	// UpdateStatus transiciona id de from a to, condicional: si la fila no
	// está en from no toca nada y devuelve ErrNotFound.
	UpdateStatus(ctx context.Context, id string, from, to Status, now time.Time) error

	// ExpireOverdue pasa a expired toda pending con expires_at <= now.
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}

type ListFilter struct {
	Status Status // opcional
	Query  string // match libre contra animal_name / owner_name
	Limit  int
}

package notify

import (
	"context"
	"time"
)

// ConsultAcceptedEvent es lo que se publica cuando una solicitud entra como
// pending. Lo consume el servicio de notificaciones (push/mail), fuera de
// este core.
type ConsultAcceptedEvent struct {
	RequestID      string    `json:"request_id"`
	OwnerID        string    `json:"owner_id"`
	ProfessionalID string    `json:"professional_id"`
	AnimalID       string    `json:"animal_id"`
	IsEmergency    bool      `json:"is_emergency"`
	CreatedAt      time.Time `json:"created_at"`
}

// Publisher publica eventos de dominio hacia afuera. Best-effort: la admisión
// nunca falla por no poder notificar.
type Publisher interface {
	PublishConsultAccepted(ctx context.Context, evt ConsultAcceptedEvent) error
}

package consults

import "time"

// Status define el ciclo de vida de una solicitud de consulta.
// @Enum pending, accepted, rejected, expired
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

const (
	// DefaultPendingTTL: una solicitud sin respuesta en 24h se considera
	// abandonada y deja de contar contra el cupo.
	DefaultPendingTTL = 24 * time.Hour
)

// ConsultRequest es una solicitud de consulta de un dueño hacia un
// profesional. Mientras esté pending cuenta contra el cupo del profesional.
type ConsultRequest struct {
	ID string

	OwnerID        string
	ProfessionalID string
	AnimalID       string

	AnimalName string
	OwnerName  string
	Message    string

	Status Status

	// IsEmergency marca que la admisión pasó por código de bypass.
	// EmergencyCode guarda el código usado, solo para auditoría.
	IsEmergency   bool
	EmergencyCode string

	CreatedAt time.Time
	ExpiresAt time.Time
	UpdatedAt time.Time
}

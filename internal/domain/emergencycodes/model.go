package emergencycodes

import "time"

const (
	// DefaultTTL: ventana corta a propósito; un código filtrado caduca solo.
	DefaultTTL = 15 * time.Minute

	// CodeLength: 6 chars alfanuméricos en mayúscula. Suficiente contra
	// colisiones dentro del TTL y con la tasa de emisión esperada; no es un
	// primitivo de seguridad.
	CodeLength = 6
)

// Code es un código de bypass de emergencia: un solo uso, acotado en tiempo,
// ligado a un profesional.
type Code struct {
	ID             string
	ProfessionalID string

	Code string // token opaco, alfanumérico en mayúscula

	ExpiresAt time.Time
	IsUsed    bool

	CreatedAt time.Time
}

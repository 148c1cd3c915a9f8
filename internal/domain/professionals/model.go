package professionals

import "time"

const (
	// DefaultCapPending es el tope de solicitudes pendientes si el profesional
	// nunca configuró nada.
	DefaultCapPending = 20
)

// Settings es la configuración de admisión de un profesional.
// La escribe solo el profesional (o un admin en su nombre); el flujo de
// admisión la lee y nada más.
type Settings struct {
	ProfessionalID string

	CapPending int  // >= 0
	Blocked    bool // switch manual: no aceptar solicitudes nuevas

	UpdatedAt time.Time
}

// DefaultSettings devuelve la configuración implícita de un profesional
// sin fila persistida.
func DefaultSettings(professionalID string) Settings {
	return Settings{
		ProfessionalID: professionalID,
		CapPending:     DefaultCapPending,
		Blocked:        false,
	}
}

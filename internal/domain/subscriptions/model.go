package subscriptions

import "time"

// Role es el tier/rol interno que habilita el plan facturado.
// @Enum free, owner, veterinarian, groomer, petsitter, boarding, trainer
type Role string

const (
	RoleFree         Role = "free"
	RoleOwner        Role = "owner"
	RoleVeterinarian Role = "veterinarian"
	RoleGroomer      Role = "groomer"
	RolePetsitter    Role = "petsitter"
	RoleBoarding     Role = "boarding"
	RoleTrainer      Role = "trainer"
)

// Interval es el período de cobro.
// @Enum monthly, yearly
type Interval string

const (
	IntervalMonthly Interval = "monthly"
	IntervalYearly  Interval = "yearly"
	IntervalNone    Interval = "" // sin plan mapeado
)

// Record es el espejo local del estado de suscripción de un usuario.
// Como máximo una fila por usuario (user_id es la clave). Nunca se borra:
// un downgrade se expresa vía status/rol, no borrando la fila.
type Record struct {
	UserID string

	Role     Role
	Interval Interval

	// Status es el estado crudo del procesador de pagos
	// (active/trialing/past_due/canceled/unpaid/incomplete/...).
	Status string

	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool

	ExternalCustomerID     string
	ExternalSubscriptionID string

	// LastProcessedEventID identifica el último evento externo aplicado por
	// completo. Es el marcador de idempotencia: mismo event id => no reaplicar.
	LastProcessedEventID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsProfessional dice si el rol corresponde a un tier profesional
// (directorio de servicios).
func (r Role) IsProfessional() bool {
	switch r {
	case RoleVeterinarian, RoleGroomer, RolePetsitter, RoleBoarding, RoleTrainer:
		return true
	}
	return false
}

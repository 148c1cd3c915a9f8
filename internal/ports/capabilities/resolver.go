package capabilities

import "context"

// Capabilities conocidas por el core. Se resuelven contra el rol de la
// suscripción persistida, nunca contra listas de identidades hardcodeadas.
const (
	CapProfessionalWrite = "professional:write"
)

type Resolver interface {
	Has(ctx context.Context, userID, capability string) (bool, error)
}

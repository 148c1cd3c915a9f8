// Package subscriptionroles resuelve capabilities contra el rol de la
// suscripción persistida del usuario. Nada de allowlists de identidades:
// la fuente de verdad es el record que sincroniza el webhook de facturación.
package subscriptionroles

import (
	"context"
	"errors"
	"os"
	"strings"

	"unimalia-core/internal/domain/subscriptions"
	"unimalia-core/internal/ports/capabilities"
)

// RecordSource es lo mínimo que el resolver necesita del módulo de
// suscripciones.
type RecordSource interface {
	RecordFor(ctx context.Context, userID string) (subscriptions.Record, error)
}

type Resolver struct {
	subs     RecordSource
	allowAll bool
}

// NewResolver crea el resolver. Con ALLOW_ALL_CAPABILITIES=true (env) todo
// da true: modo dev / fallback.
func NewResolver(subs RecordSource) *Resolver {
	allowAll := strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_ALL_CAPABILITIES")), "true")
	return &Resolver{
		subs:     subs,
		allowAll: allowAll,
	}
}

// Estados del procesador con los que el tier pagado sigue vigente.
func statusGrantsAccess(status string) bool {
	switch status {
	case "active", "trialing", "past_due":
		return true
	}
	return false
}

func (r *Resolver) Has(ctx context.Context, userID, capability string) (bool, error) {
	capability = strings.TrimSpace(capability)
	if capability == "" {
		return false, errors.New("capability required")
	}

	if r.allowAll {
		return true, nil
	}
	if r == nil || r.subs == nil {
		return false, errors.New("subscriptions source not configured")
	}

	rec, err := r.subs.RecordFor(ctx, userID)
	if err != nil {
		if errors.Is(err, subscriptions.ErrNotFound) {
			// sin fila => tier free, sin capabilities profesionales
			return false, nil
		}
		return false, err
	}

	switch capability {
	case capabilities.CapProfessionalWrite:
		return rec.Role.IsProfessional() && statusGrantsAccess(rec.Status), nil
	}
	return false, nil
}

package auth

import "context"

// AuthVerifier valida un token de acceso contra el identity provider (local
// o remoto) y devuelve la identidad. Implementaciones en adapters/auth.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

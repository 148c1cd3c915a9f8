package auth

// Claims es la identidad que el proveedor externo ya verificó.
// El core la recibe como dada: acá no se diseña protocolo de auth.
type Claims struct {
	UserID string
	Email  string
}

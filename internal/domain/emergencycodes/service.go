package emergencycodes

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// Alfabeto sin 0/O ni 1/I para que el código se pueda dictar por teléfono.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Issue genera y persiste un código nuevo para el profesional. Emitir no
// invalida códigos anteriores: cada fila es independiente.
func (s *Service) Issue(ctx context.Context, professionalID string, ttl time.Duration) (Code, error) {
	professionalID = strings.TrimSpace(professionalID)
	if professionalID == "" {
		return Code{}, ErrInvalidInput
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	token, err := randomCode(CodeLength)
	if err != nil {
		return Code{}, err
	}

	now := s.now()
	c := Code{
		ID:             uuid.NewString(),
		ProfessionalID: professionalID,
		Code:           token,
		ExpiresAt:      now.Add(ttl),
		IsUsed:         false,
		CreatedAt:      now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return Code{}, err
	}
	return c, nil
}

// Consume intenta gastar un código (normalizado: trim + mayúscula) para el
// profesional. Un código usado o vencido responde ErrNotFound, igual que uno
// inexistente: el caller no distingue y trata todo como "sin código válido".
func (s *Service) Consume(ctx context.Context, professionalID, input string) (Code, error) {
	professionalID = strings.TrimSpace(professionalID)
	code := strings.ToUpper(strings.TrimSpace(input))
	if professionalID == "" || code == "" {
		return Code{}, ErrInvalidInput
	}
	return s.repo.Consume(ctx, professionalID, code, s.now())
}

func randomCode(n int) (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = codeAlphabet[v.Int64()]
	}
	return string(b), nil
}

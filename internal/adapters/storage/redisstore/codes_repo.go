// Package redisstore implementa el repo de códigos de emergencia sobre
// Redis: el TTL de la key es el vencimiento del código y GETDEL hace el
// consumo de un-solo-uso en una operación atómica del lado del server.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"unimalia-core/internal/domain/emergencycodes"

	"github.com/redis/go-redis/v9"
)

type CodesRepo struct {
	rdb *redis.Client
}

func NewCodesRepo(rdb *redis.Client) *CodesRepo {
	return &CodesRepo{rdb: rdb}
}

// codeRecord es lo que se guarda como valor; el código en sí vive en la key.
type codeRecord struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *CodesRepo) Create(ctx context.Context, c emergencycodes.Code) error {
	if r.rdb == nil {
		return errors.New("redis not configured")
	}

	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return errors.New("code already expired")
	}

	val, err := json.Marshal(codeRecord{
		ID:        c.ID,
		ExpiresAt: c.ExpiresAt,
		CreatedAt: c.CreatedAt,
	})
	if err != nil {
		return err
	}

	return r.rdb.Set(ctx, codeKey(c.ProfessionalID, c.Code), val, ttl).Err()
}

// Consume usa GETDEL: si dos requests compiten por el mismo código, Redis
// le entrega el valor a exactamente uno. La expiración la maneja el TTL de
// la key, así que acá no hace falta mirar now (queda en la firma por el
// contrato del repo).
func (r *CodesRepo) Consume(ctx context.Context, professionalID, code string, now time.Time) (emergencycodes.Code, error) {
	if r.rdb == nil {
		return emergencycodes.Code{}, errors.New("redis not configured")
	}

	val, err := r.rdb.GetDel(ctx, codeKey(professionalID, code)).Result()
	if errors.Is(err, redis.Nil) {
		return emergencycodes.Code{}, emergencycodes.ErrNotFound
	}
	if err != nil {
		return emergencycodes.Code{}, err
	}

	var rec codeRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return emergencycodes.Code{}, err
	}

	return emergencycodes.Code{
		ID:             rec.ID,
		ProfessionalID: professionalID,
		Code:           code,
		ExpiresAt:      rec.ExpiresAt,
		IsUsed:         true,
		CreatedAt:      rec.CreatedAt,
	}, nil
}

func codeKey(professionalID, code string) string {
	return fmt.Sprintf("emcode:%s:%s", professionalID, code)
}

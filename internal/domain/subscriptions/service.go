package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrInvalidPayload = errors.New("invalid event payload")
)

// Outcome clasifica qué pasó con una entrega del webhook.
type Outcome string

const (
	// OutcomeApplied: el evento se aplicó y quedó marcado como procesado.
	OutcomeApplied Outcome = "applied"
	// OutcomeIgnored: tipo no relevante o metadata sin user_id. Se responde
	// 2xx igual para que el emisor no lo reintente para siempre.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeDuplicate: mismo event id ya aplicado (re-entrega).
	OutcomeDuplicate Outcome = "duplicate"
)

type Result struct {
	Outcome   Outcome
	EventID   string
	EventType string
	Record    Record // válido solo con OutcomeApplied
}

// event es el sobre del procesador de pagos (forma tipo Stripe).
type event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object subscriptionObject `json:"object"`
	} `json:"data"`
}

type subscriptionObject struct {
	ID                string            `json:"id"`
	Customer          string            `json:"customer"`
	Status            string            `json:"status"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64             `json:"current_period_end"`
	Metadata          map[string]string `json:"metadata"`
	Items             struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Plan struct {
		ID string `json:"id"`
	} `json:"plan"`
}

// Tipos de lifecycle que sí tocan el record; todo lo demás se ignora antes
// de pisar el datastore (el volumen de eventos irrelevantes es alto).
var relevantTypes = map[string]struct{}{
	"customer.subscription.created": {},
	"customer.subscription.updated": {},
	"customer.subscription.deleted": {},
}

type Service struct {
	repo   Repository
	secret string

	tolerance time.Duration
	now       func() time.Time
}

func NewService(repo Repository, signingSecret string) *Service {
	return &Service{
		repo:      repo,
		secret:    signingSecret,
		tolerance: DefaultSignatureTolerance,
		now:       time.Now,
	}
}

// Process aplica una entrega del webhook de facturación:
//
//	firma → parse → filtro de tipo → user_id de metadata → idempotencia
//	por last_processed_event_id → mapeo plan→rol → upsert full-state.
//
// El emisor re-entrega sin garantía de orden ni de una-sola-vez; por eso el
// apply es idempotente por event id y el upsert escribe el estado completo
// (último gana, sin merge). Un error de storage en el upsert se propaga:
// el borde responde non-2xx y el emisor reintenta.
func (s *Service) Process(ctx context.Context, payload []byte, signatureHeader string) (Result, error) {
	if err := VerifySignature(payload, signatureHeader, s.secret, s.now(), s.tolerance); err != nil {
		return Result{}, err
	}

	var ev event
	if err := json.Unmarshal(payload, &ev); err != nil || strings.TrimSpace(ev.ID) == "" {
		return Result{}, ErrInvalidPayload
	}

	res := Result{EventID: ev.ID, EventType: ev.Type}

	if _, ok := relevantTypes[ev.Type]; !ok {
		res.Outcome = OutcomeIgnored
		return res, nil
	}

	userID := strings.TrimSpace(ev.Data.Object.Metadata["user_id"])
	if userID == "" {
		// sin user_id no hay forma segura de aplicar; se ignora y se
		// responde éxito para cortar la re-entrega
		res.Outcome = OutcomeIgnored
		return res, nil
	}

	existing, err := s.repo.GetByUserID(ctx, userID)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Result{}, err
	}

	if exists && existing.LastProcessedEventID == ev.ID {
		res.Outcome = OutcomeDuplicate
		res.Record = existing
		return res, nil
	}

	role, interval := ResolvePlan(priceID(ev.Data.Object))

	now := s.now()
	rec := Record{
		UserID:                 userID,
		Role:                   role,
		Interval:               interval,
		Status:                 ev.Data.Object.Status,
		CancelAtPeriodEnd:      ev.Data.Object.CancelAtPeriodEnd,
		ExternalCustomerID:     ev.Data.Object.Customer,
		ExternalSubscriptionID: ev.Data.Object.ID,
		LastProcessedEventID:   ev.ID,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if ev.Data.Object.CurrentPeriodEnd > 0 {
		t := time.Unix(ev.Data.Object.CurrentPeriodEnd, 0).UTC()
		rec.CurrentPeriodEnd = &t
	}
	if exists {
		rec.CreatedAt = existing.CreatedAt
	}

	if err := s.repo.Upsert(ctx, rec); err != nil {
		return Result{}, err
	}

	res.Outcome = OutcomeApplied
	res.Record = rec
	return res, nil
}

// RecordFor devuelve el record de un usuario (para /me/subscription y para
// el resolver de capabilities).
func (s *Service) RecordFor(ctx context.Context, userID string) (Record, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Record{}, ErrInvalidInput
	}
	return s.repo.GetByUserID(ctx, userID)
}

func priceID(obj subscriptionObject) string {
	if len(obj.Items.Data) > 0 && obj.Items.Data[0].Price.ID != "" {
		return obj.Items.Data[0].Price.ID
	}
	return obj.Plan.ID
}

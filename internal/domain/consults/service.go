package consults

import (
	"context"
	"errors"
	"strings"
	"time"

	"unimalia-core/internal/domain/emergencycodes"
	"unimalia-core/internal/domain/professionals"
	"unimalia-core/internal/ports/notify"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrBadState     = errors.New("invalid state")

	// ErrCapacity / ErrBlocked: rechazo de admisión (429 en el borde).
	ErrCapacity = errors.New("professional at capacity")
	ErrBlocked  = errors.New("professional not accepting requests")
)

// SettingsSource expone la configuración de admisión de un profesional.
// Lo implementa professionals.Service; interface local para no acoplar
// la admisión a todo el servicio.
type SettingsSource interface {
	SettingsFor(ctx context.Context, professionalID string) (professionals.Settings, error)
}

// CodeConsumer gasta un código de emergencia de forma atómica (un solo uso).
// Lo implementa emergencycodes.Service.
type CodeConsumer interface {
	Consume(ctx context.Context, professionalID, code string) (emergencycodes.Code, error)
}

type Service struct {
	repo     Repository
	settings SettingsSource
	codes    CodeConsumer
	notifier notify.Publisher // opcional (nil = no publicar)

	pendingTTL time.Duration
	now        func() time.Time
}

func NewService(repo Repository, settings SettingsSource, codes CodeConsumer) *Service {
	return &Service{
		repo:       repo,
		settings:   settings,
		codes:      codes,
		pendingTTL: DefaultPendingTTL,
		now:        time.Now,
	}
}

// SetNotifier conecta el publisher de eventos (opcional, se decide en main).
func (s *Service) SetNotifier(p notify.Publisher) {
	s.notifier = p
}

type SubmitInput struct {
	ProfessionalID string
	AnimalID       string

	AnimalName string
	OwnerName  string
	Message    string

	EmergencyCode string // opcional
}

// Submit decide si se admite una solicitud nueva:
//  1. snapshot de settings del profesional (defaults si no hay fila)
//  2. count de pendings actuales
//  3. si viene código de emergencia, intento de consumo atómico
//  4. rechazo iff (blocked || cap alcanzado) && sin código válido
//  5. insert de la solicitud pending
//
// Si storage falla antes del snapshot+count, la admisión falla cerrada:
// nunca se acepta sin haber observado settings y count. La ventana entre
// count e insert es una carrera check-then-act asumida: el cupo es un techo
// best-effort, no una cuota linealizable.
func (s *Service) Submit(ctx context.Context, ownerID string, in SubmitInput) (ConsultRequest, error) {
	ownerID = strings.TrimSpace(ownerID)
	professionalID := strings.TrimSpace(in.ProfessionalID)
	animalID := strings.TrimSpace(in.AnimalID)

	if ownerID == "" || professionalID == "" || animalID == "" {
		return ConsultRequest{}, ErrInvalidInput
	}

	st, err := s.settings.SettingsFor(ctx, professionalID)
	if err != nil {
		return ConsultRequest{}, err
	}

	pending, err := s.repo.CountPending(ctx, professionalID)
	if err != nil {
		return ConsultRequest{}, err
	}
	capReached := pending >= st.CapPending

	emergencyOk := false
	usedCode := ""
	if code := strings.TrimSpace(in.EmergencyCode); code != "" {
		c, err := s.codes.Consume(ctx, professionalID, code)
		switch {
		case err == nil:
			emergencyOk = true
			usedCode = c.Code
		case errors.Is(err, emergencycodes.ErrNotFound),
			errors.Is(err, emergencycodes.ErrInvalidInput):
			// usado, vencido o inexistente: se trata igual que "sin código"
		default:
			return ConsultRequest{}, err
		}
	}

	if (st.Blocked || capReached) && !emergencyOk {
		if st.Blocked {
			return ConsultRequest{}, ErrBlocked
		}
		return ConsultRequest{}, ErrCapacity
	}

	now := s.now()
	req := ConsultRequest{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		ProfessionalID: professionalID,
		AnimalID:       animalID,
		AnimalName:     strings.TrimSpace(in.AnimalName),
		OwnerName:      strings.TrimSpace(in.OwnerName),
		Message:        strings.TrimSpace(in.Message),
		Status:         StatusPending,
		IsEmergency:    emergencyOk,
		EmergencyCode:  usedCode,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.pendingTTL),
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, req); err != nil {
		return ConsultRequest{}, err
	}

	if s.notifier != nil {
		// best-effort: la admisión ya quedó persistida
		_ = s.notifier.PublishConsultAccepted(ctx, notify.ConsultAcceptedEvent{
			RequestID:      req.ID,
			OwnerID:        req.OwnerID,
			ProfessionalID: req.ProfessionalID,
			AnimalID:       req.AnimalID,
			IsEmergency:    req.IsEmergency,
			CreatedAt:      req.CreatedAt,
		})
	}

	return req, nil
}

// ListForProfessional devuelve las solicitudes del profesional autenticado.
func (s *Service) ListForProfessional(ctx context.Context, professionalID string, f ListFilter) ([]ConsultRequest, error) {
	professionalID = strings.TrimSpace(professionalID)
	if professionalID == "" {
		return nil, ErrInvalidInput
	}
	if f.Status != "" && !validStatus(f.Status) {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByProfessional(ctx, professionalID, f)
}

// Decide transiciona pending → accepted|rejected. Solo el profesional dueño
// de la solicitud puede decidir, y solo desde pending.
func (s *Service) Decide(ctx context.Context, requestID, professionalID string, accept bool) (ConsultRequest, error) {
	requestID = strings.TrimSpace(requestID)
	professionalID = strings.TrimSpace(professionalID)
	if requestID == "" || professionalID == "" {
		return ConsultRequest{}, ErrInvalidInput
	}

	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return ConsultRequest{}, ErrNotFound
	}
	if req.ProfessionalID != professionalID {
		return ConsultRequest{}, ErrForbidden
	}

	to := StatusRejected
	if accept {
		to = StatusAccepted
	}

	// Idempotente sobre la misma decisión
	if req.Status == to {
		return req, nil
	}

	if err := s.repo.UpdateStatus(ctx, requestID, StatusPending, to, s.now()); err != nil {
		if errors.Is(err, ErrNotFound) {
			// existía pero ya no está pending (decidida o expirada en paralelo)
			return ConsultRequest{}, ErrBadState
		}
		return ConsultRequest{}, err
	}
	return s.repo.GetByID(ctx, requestID)
}

// ExpireOverdue barre pendings vencidas. Lo dispara un ticker en main.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	return s.repo.ExpireOverdue(ctx, s.now())
}

func validStatus(st Status) bool {
	switch st {
	case StatusPending, StatusAccepted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

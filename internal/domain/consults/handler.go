package consults

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"unimalia-core/internal/middleware"
	"unimalia-core/internal/platform/metrics"
	"unimalia-core/internal/ports/capabilities"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, caps capabilities.Resolver) {
	// Dueño: alta de solicitud
	r.Post("/consults", submitHandler(svc))

	// Profesional: bandeja y decisión
	r.Get("/me/consults", listMyConsultsHandler(svc, caps))
	r.Route("/consults/{requestID}", func(cr chi.Router) {
		cr.Post("/accept", decideHandler(svc, caps, true))
		cr.Post("/reject", decideHandler(svc, caps, false))
	})
}

type submitRequest struct {
	ProfessionalID string `json:"professional_id"`
	AnimalID       string `json:"animal_id"`
	AnimalName     string `json:"animal_name"`
	OwnerName      string `json:"owner_name"`
	Message        string `json:"message"`
	EmergencyCode  string `json:"emergency_code"`
}

type consultResponse struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	ProfessionalID string    `json:"professional_id"`
	AnimalID       string    `json:"animal_id"`
	AnimalName     string    `json:"animal_name,omitempty"`
	OwnerName      string    `json:"owner_name,omitempty"`
	Message        string    `json:"message,omitempty"`
	Status         Status    `json:"status"`
	IsEmergency    bool      `json:"is_emergency"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type submitResponse struct {
	OK bool `json:"ok"`
	consultResponse
}

// submitHandler godoc
// @Summary Enviar solicitud de consulta
// @Description Crea una solicitud de consulta hacia un profesional. Se admite mientras el profesional no esté bloqueado ni haya alcanzado su cupo de pendientes; un `emergency_code` válido (un solo uso, ventana corta) saltea ambas cosas. Autenticación: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>`.
// @Tags consults
// @Accept json
// @Produce json
// @Param payload body submitRequest true "Datos de la solicitud"
// @Success 200 {object} submitResponse
// @Failure 400 {string} string "invalid json / campos requeridos"
// @Failure 401 {string} string "unauthorized"
// @Failure 429 {string} string "cupo alcanzado o profesional bloqueado"
// @Failure 503 {string} string "storage no disponible (reintentar)"
// @Router /consults [post]
func submitHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		c, err := svc.Submit(r.Context(), claims.UserID, SubmitInput{
			ProfessionalID: req.ProfessionalID,
			AnimalID:       req.AnimalID,
			AnimalName:     req.AnimalName,
			OwnerName:      req.OwnerName,
			Message:        req.Message,
			EmergencyCode:  req.EmergencyCode,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrBlocked):
				metrics.AdmissionDecisions.WithLabelValues("rejected_blocked").Inc()
				http.Error(w, err.Error(), http.StatusTooManyRequests)
			case errors.Is(err, ErrCapacity):
				metrics.AdmissionDecisions.WithLabelValues("rejected_capacity").Inc()
				http.Error(w, err.Error(), http.StatusTooManyRequests)
			default:
				// storage: el cliente puede reintentar con backoff
				http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			}
			return
		}

		if c.IsEmergency {
			metrics.AdmissionDecisions.WithLabelValues("accepted_emergency").Inc()
		} else {
			metrics.AdmissionDecisions.WithLabelValues("accepted").Inc()
		}

		writeJSON(w, http.StatusOK, submitResponse{OK: true, consultResponse: toConsultResponse(c)})
	}
}

func listMyConsultsHandler(svc *Service, caps capabilities.Resolver) http.HandlerFunc {
	// Bandeja del profesional autenticado: emergencias primero, luego más nuevas.
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !requireCapability(w, r, caps, claims.UserID) {
			return
		}

		f := ListFilter{
			Status: Status(strings.TrimSpace(r.URL.Query().Get("status"))),
			Query:  strings.TrimSpace(r.URL.Query().Get("q")),
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				f.Limit = n
			}
		}

		items, err := svc.ListForProfessional(r.Context(), claims.UserID, f)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		out := make([]consultResponse, 0, len(items))
		for _, c := range items {
			out = append(out, toConsultResponse(c))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func decideHandler(svc *Service, caps capabilities.Resolver, accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !requireCapability(w, r, caps, claims.UserID) {
			return
		}

		requestID := chi.URLParam(r, "requestID")
		c, err := svc.Decide(r.Context(), requestID, claims.UserID, accept)
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "consult not found", http.StatusNotFound)
			case errors.Is(err, ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			case errors.Is(err, ErrBadState):
				http.Error(w, "consult is no longer pending", http.StatusConflict)
			default:
				http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			}
			return
		}

		writeJSON(w, http.StatusOK, toConsultResponse(c))
	}
}

// requireCapability corta con 403 si el caller no tiene tier profesional.
// Con resolver nil (modo dev) no se exige nada.
func requireCapability(w http.ResponseWriter, r *http.Request, caps capabilities.Resolver, userID string) bool {
	if caps == nil {
		return true
	}
	ok, err := caps.Has(r.Context(), userID, capabilities.CapProfessionalWrite)
	if err != nil {
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		return false
	}
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func toConsultResponse(c ConsultRequest) consultResponse {
	return consultResponse{
		ID:             c.ID,
		OwnerID:        c.OwnerID,
		ProfessionalID: c.ProfessionalID,
		AnimalID:       c.AnimalID,
		AnimalName:     c.AnimalName,
		OwnerName:      c.OwnerName,
		Message:        c.Message,
		Status:         c.Status,
		IsEmergency:    c.IsEmergency,
		CreatedAt:      c.CreatedAt,
		ExpiresAt:      c.ExpiresAt,
	}
}

// writeJSON está duplicado a propósito en los handlers de cada módulo
// para no crear helpers compartidos antes de tiempo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

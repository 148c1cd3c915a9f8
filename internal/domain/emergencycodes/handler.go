package emergencycodes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"unimalia-core/internal/middleware"
	"unimalia-core/internal/ports/capabilities"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, caps capabilities.Resolver) {
	r.Post("/me/emergency-codes", issueHandler(svc, caps))
}

type issueRequest struct {
	// TTL en minutos, opcional (default 15).
	TTLMinutes int `json:"ttl_minutes"`
}

type codeResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// issueHandler emite un código de bypass nuevo para el profesional
// autenticado. El código se muestra una sola vez en esta respuesta.
func issueHandler(svc *Service, caps capabilities.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if caps != nil {
			allowed, err := caps.Has(r.Context(), claims.UserID, capabilities.CapProfessionalWrite)
			if err != nil {
				http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
				return
			}
			if !allowed {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		var req issueRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}
		if req.TTLMinutes < 0 {
			http.Error(w, "ttl_minutes must be >= 0", http.StatusBadRequest)
			return
		}

		c, err := svc.Issue(r.Context(), claims.UserID, time.Duration(req.TTLMinutes)*time.Minute)
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}

		writeJSON(w, http.StatusCreated, codeResponse{
			ID:        c.ID,
			Code:      c.Code,
			ExpiresAt: c.ExpiresAt,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package professionals

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
	r.Route("/me/professional/settings", func(sr chi.Router) {
		sr.Get("/", getSettingsHandler(svc, caps))
		sr.Put("/", updateSettingsHandler(svc, caps))
	})
}

type settingsResponse struct {
	ProfessionalID string     `json:"professional_id"`
	CapPending     int        `json:"cap_pending"`
	Blocked        bool       `json:"blocked"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

type updateSettingsRequest struct {
	// Punteros para update parcial: nil = no tocar.
	CapPending *int  `json:"cap_pending"`
	Blocked    *bool `json:"blocked"`
}

func getSettingsHandler(svc *Service, caps capabilities.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !allowProfessional(w, r, caps, claims.UserID) {
			return
		}

		st, err := svc.SettingsFor(r.Context(), claims.UserID)
		if err != nil {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, toSettingsResponse(st))
	}
}

func updateSettingsHandler(svc *Service, caps capabilities.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !allowProfessional(w, r, caps, claims.UserID) {
			return
		}

		var req updateSettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		st, err := svc.Update(r.Context(), claims.UserID, UpdateInput{
			CapPending: req.CapPending,
			Blocked:    req.Blocked,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, toSettingsResponse(st))
	}
}

func allowProfessional(w http.ResponseWriter, r *http.Request, caps capabilities.Resolver, userID string) bool {
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

func toSettingsResponse(st Settings) settingsResponse {
	out := settingsResponse{
		ProfessionalID: st.ProfessionalID,
		CapPending:     st.CapPending,
		Blocked:        st.Blocked,
	}
	if !st.UpdatedAt.IsZero() {
		t := st.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

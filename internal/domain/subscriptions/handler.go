package subscriptions

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"unimalia-core/internal/middleware"
	"unimalia-core/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

// SignatureHeader es el header donde el procesador manda la firma HMAC.
const SignatureHeader = "Billing-Signature"

const maxWebhookBody = 1 << 20 // 1MB

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/webhooks/billing", webhookHandler(svc))
	r.Get("/me/subscription", mySubscriptionHandler(svc))
}

// webhookHandler godoc
// @Summary Webhook de facturación
// @Description Recibe eventos de lifecycle de suscripción del procesador de pagos. Solo responde 2xx cuando el evento quedó aplicado de forma durable o fue ignorado a propósito; cualquier otra cosa es non-2xx para que el emisor reintente.
// @Tags billing
// @Accept json
// @Success 200 {object} map[string]string
// @Failure 400 {string} string "firma inválida o payload malformado"
// @Failure 503 {string} string "storage no disponible (el emisor reintenta)"
// @Router /webhooks/billing [post]
func webhookHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "cannot read body", http.StatusBadRequest)
			return
		}

		res, err := svc.Process(r.Context(), payload, r.Header.Get(SignatureHeader))
		if err != nil {
			switch {
			case errors.Is(err, ErrBadSignature):
				metrics.BillingEvents.WithLabelValues("bad_signature").Inc()
				http.Error(w, "invalid signature", http.StatusBadRequest)
			case errors.Is(err, ErrInvalidPayload):
				metrics.BillingEvents.WithLabelValues("error").Inc()
				http.Error(w, "invalid payload", http.StatusBadRequest)
			default:
				// storage: non-2xx => el emisor re-entrega
				metrics.BillingEvents.WithLabelValues("error").Inc()
				http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			}
			return
		}

		metrics.BillingEvents.WithLabelValues(string(res.Outcome)).Inc()
		writeJSON(w, http.StatusOK, map[string]string{
			"received": res.EventID,
			"outcome":  string(res.Outcome),
		})
	}
}

type subscriptionResponse struct {
	UserID            string     `json:"user_id"`
	Role              Role       `json:"role"`
	Interval          Interval   `json:"interval,omitempty"`
	Status            string     `json:"status"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
}

func mySubscriptionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		rec, err := svc.RecordFor(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// sin fila => tier free implícito
				writeJSON(w, http.StatusOK, subscriptionResponse{
					UserID: claims.UserID,
					Role:   RoleFree,
					Status: "none",
				})
				return
			}
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
			return
		}

		writeJSON(w, http.StatusOK, subscriptionResponse{
			UserID:            rec.UserID,
			Role:              rec.Role,
			Interval:          rec.Interval,
			Status:            rec.Status,
			CurrentPeriodEnd:  rec.CurrentPeriodEnd,
			CancelAtPeriodEnd: rec.CancelAtPeriodEnd,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

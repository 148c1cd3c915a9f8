package router_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"unimalia-core/internal/domain/subscriptions"
	"unimalia-core/internal/router"
)

const billingSecret = "whsec_router_test"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	h, _ := router.NewRouter(router.Options{
		BillingSecret: billingSecret,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

// doJSON dispara un request autenticado vía X-Debug-User-ID (modo dev, sin
// verifier configurado) y decodifica la respuesta en out si se pide.
func doJSON(t *testing.T, srv *httptest.Server, method, path, userID string, body any, out any) *http.Response {
	t.Helper()

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, srv.URL+path, payload)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-Debug-User-ID", userID)
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp
}

// deliverBillingEvent manda un evento firmado al webhook, como lo haría el
// procesador de pagos.
func deliverBillingEvent(t *testing.T, srv *httptest.Server, eventID, userID, priceID string) *http.Response {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "customer.subscription.created",
		"data": {
			"object": {
				"id": "sub_1",
				"customer": "cus_1",
				"status": "active",
				"metadata": {"user_id": %q},
				"items": {"data": [{"price": {"id": %q}}]}
			}
		}
	}`, eventID, userID, priceID))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/billing", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new webhook request: %v", err)
	}
	req.Header.Set(subscriptions.SignatureHeader, subscriptions.SignPayload(payload, billingSecret, time.Now()))

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("deliver webhook: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// promoteToProfessional sincroniza una suscripción de vet activa para el
// usuario, que es lo que habilita las capabilities profesionales.
func promoteToProfessional(t *testing.T, srv *httptest.Server, userID string) {
	t.Helper()
	resp := deliverBillingEvent(t, srv, "evt_promote_"+userID, userID, "price_vet_monthly")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("promote %s: status %d", userID, resp.StatusCode)
	}
}

func TestAdmissionFlow_CapBlockedAndEmergency(t *testing.T) {
	srv := newTestServer(t)
	promoteToProfessional(t, srv, "pro-1")

	// el profesional baja su cupo a 2
	cap := 2
	resp := doJSON(t, srv, http.MethodPut, "/me/professional/settings", "pro-1",
		map[string]any{"cap_pending": cap}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update settings: status %d", resp.StatusCode)
	}

	submit := func(owner, code string) *http.Response {
		body := map[string]any{
			"professional_id": "pro-1",
			"animal_id":       "animal-" + owner,
			"animal_name":     "Milo",
		}
		if code != "" {
			body["emergency_code"] = code
		}
		return doJSON(t, srv, http.MethodPost, "/consults", owner, body, nil)
	}

	// dos entran
	for i := 1; i <= 2; i++ {
		if resp := submit(fmt.Sprintf("owner-%d", i), ""); resp.StatusCode != http.StatusOK {
			t.Fatalf("submit #%d: status %d", i, resp.StatusCode)
		}
	}

	// la tercera rebota por cupo
	if resp := submit("owner-3", ""); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("submit over cap: expected 429, got %d", resp.StatusCode)
	}

	// el profesional emite un código de emergencia
	var issued struct {
		Code string `json:"code"`
	}
	resp = doJSON(t, srv, http.MethodPost, "/me/emergency-codes", "pro-1",
		map[string]any{"ttl_minutes": 15}, &issued)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("issue code: status %d", resp.StatusCode)
	}
	if issued.Code == "" {
		t.Fatalf("issue code: empty code in response")
	}

	// con código entra aunque el cupo esté lleno, y queda marcada emergencia
	var emergency struct {
		ID          string `json:"id"`
		IsEmergency bool   `json:"is_emergency"`
	}
	if resp := doJSON(t, srv, http.MethodPost, "/consults", "owner-4", map[string]any{
		"professional_id": "pro-1",
		"animal_id":       "animal-owner-4",
		"emergency_code":  issued.Code,
	}, &emergency); resp.StatusCode != http.StatusOK {
		t.Fatalf("emergency submit: status %d", resp.StatusCode)
	}
	if !emergency.IsEmergency {
		t.Fatalf("expected is_emergency=true in response")
	}

	// el código es de un solo uso: reusarlo equivale a no mandar código
	if resp := submit("owner-5", issued.Code); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("reused code: expected 429, got %d", resp.StatusCode)
	}

	// bloqueado: rechaza todo salvo emergencias
	blocked := true
	if resp := doJSON(t, srv, http.MethodPut, "/me/professional/settings", "pro-1",
		map[string]any{"blocked": blocked}, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("block professional: status %d", resp.StatusCode)
	}
	if resp := submit("owner-6", ""); resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("submit while blocked: expected 429, got %d", resp.StatusCode)
	}

	// la bandeja del profesional lista la emergencia primero
	var inbox []struct {
		ID          string `json:"id"`
		IsEmergency bool   `json:"is_emergency"`
		Status      string `json:"status"`
	}
	if resp := doJSON(t, srv, http.MethodGet, "/me/consults", "pro-1", nil, &inbox); resp.StatusCode != http.StatusOK {
		t.Fatalf("list consults: status %d", resp.StatusCode)
	}
	if len(inbox) != 3 {
		t.Fatalf("expected 3 consults in inbox, got %d", len(inbox))
	}
	if !inbox[0].IsEmergency {
		t.Fatalf("expected emergency consult first in inbox")
	}

	// decisión: aceptar pasa a accepted y repetir la misma decisión no falla
	acceptPath := "/consults/" + emergency.ID + "/accept"
	var decided struct {
		Status string `json:"status"`
	}
	if resp := doJSON(t, srv, http.MethodPost, acceptPath, "pro-1", nil, &decided); resp.StatusCode != http.StatusOK {
		t.Fatalf("accept: status %d", resp.StatusCode)
	}
	if decided.Status != "accepted" {
		t.Fatalf("expected accepted, got %s", decided.Status)
	}
	if resp := doJSON(t, srv, http.MethodPost, acceptPath, "pro-1", nil, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("idempotent accept: status %d", resp.StatusCode)
	}

	// otro profesional no puede decidir sobre esa solicitud
	promoteToProfessional(t, srv, "pro-2")
	if resp := doJSON(t, srv, http.MethodPost, acceptPath, "pro-2", nil, nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign accept: expected 403, got %d", resp.StatusCode)
	}
}

func TestProfessionalEndpoints_RequireSubscriptionTier(t *testing.T) {
	srv := newTestServer(t)

	// sin suscripción sincronizada, el tier es free: nada profesional
	if resp := doJSON(t, srv, http.MethodGet, "/me/consults", "user-free", nil, nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("free tier inbox: expected 403, got %d", resp.StatusCode)
	}
	if resp := doJSON(t, srv, http.MethodPost, "/me/emergency-codes", "user-free", nil, nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("free tier issue code: expected 403, got %d", resp.StatusCode)
	}

	// un plan de dueño (no profesional) tampoco alcanza
	resp := deliverBillingEvent(t, srv, "evt_owner", "user-owner", "price_owner_monthly")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner webhook: status %d", resp.StatusCode)
	}
	if resp := doJSON(t, srv, http.MethodGet, "/me/consults", "user-owner", nil, nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("owner tier inbox: expected 403, got %d", resp.StatusCode)
	}

	// sin identidad no hay nada
	if resp := doJSON(t, srv, http.MethodPost, "/consults", "", map[string]any{
		"professional_id": "pro-1", "animal_id": "a-1",
	}, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous submit: expected 401, got %d", resp.StatusCode)
	}
}

func TestBillingWebhook_EndToEnd(t *testing.T) {
	srv := newTestServer(t)

	// firma inválida: 400 y sin efecto
	payload := []byte(`{"id":"evt_bad","type":"customer.subscription.created"}`)
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/billing", bytes.NewReader(payload))
	req.Header.Set(subscriptions.SignatureHeader, "t=1,v1=deadbeef")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("bad signature request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad signature: expected 400, got %d", resp.StatusCode)
	}

	// entrega válida y re-entrega del mismo event id
	var first map[string]string
	r1 := deliverBillingEvent(t, srv, "evt_1", "user-1", "price_groomer_yearly")
	if r1.StatusCode != http.StatusOK {
		t.Fatalf("first delivery: status %d", r1.StatusCode)
	}
	if err := json.NewDecoder(r1.Body).Decode(&first); err != nil {
		t.Fatalf("decode first delivery: %v", err)
	}
	if first["outcome"] != "applied" {
		t.Fatalf("expected applied, got %s", first["outcome"])
	}

	var second map[string]string
	r2 := deliverBillingEvent(t, srv, "evt_1", "user-1", "price_groomer_yearly")
	if r2.StatusCode != http.StatusOK {
		t.Fatalf("redelivery: status %d", r2.StatusCode)
	}
	if err := json.NewDecoder(r2.Body).Decode(&second); err != nil {
		t.Fatalf("decode redelivery: %v", err)
	}
	if second["outcome"] != "duplicate" {
		t.Fatalf("expected duplicate, got %s", second["outcome"])
	}

	// el estado sincronizado queda visible en /me/subscription
	var sub struct {
		Role   string `json:"role"`
		Status string `json:"status"`
	}
	if resp := doJSON(t, srv, http.MethodGet, "/me/subscription", "user-1", nil, &sub); resp.StatusCode != http.StatusOK {
		t.Fatalf("me/subscription: status %d", resp.StatusCode)
	}
	if sub.Role != "groomer" || sub.Status != "active" {
		t.Fatalf("unexpected subscription: %+v", sub)
	}

	// usuario sin suscripción: free implícito
	var none struct {
		Role   string `json:"role"`
		Status string `json:"status"`
	}
	if resp := doJSON(t, srv, http.MethodGet, "/me/subscription", "user-none", nil, &none); resp.StatusCode != http.StatusOK {
		t.Fatalf("me/subscription empty: status %d", resp.StatusCode)
	}
	if none.Role != "free" || none.Status != "none" {
		t.Fatalf("expected implicit free tier, got %+v", none)
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: status %d", resp.StatusCode)
	}
}

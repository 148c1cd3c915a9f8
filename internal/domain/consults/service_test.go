package consults

import (
	"context"
	"errors"
	"testing"
	"time"

	"unimalia-core/internal/domain/emergencycodes"
	"unimalia-core/internal/domain/professionals"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

var errRepoDown = errors.New("repo: storage down")

type testRepo struct {
	byID map[string]ConsultRequest

	failCount  bool
	failCreate bool
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]ConsultRequest{}}
}

func (r *testRepo) Create(ctx context.Context, c ConsultRequest) error {
	if r.failCreate {
		return errRepoDown
	}
	if c.ID == "" {
		return errors.New("repo: id required")
	}
	if _, ok := r.byID[c.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[c.ID] = c
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (ConsultRequest, error) {
	c, ok := r.byID[id]
	if !ok {
		return ConsultRequest{}, ErrNotFound
	}
	return c, nil
}

func (r *testRepo) CountPending(ctx context.Context, professionalID string) (int, error) {
	if r.failCount {
		return 0, errRepoDown
	}
	n := 0
	for _, c := range r.byID {
		if c.ProfessionalID == professionalID && c.Status == StatusPending {
			n++
		}
	}
	return n, nil
}

func (r *testRepo) ListByProfessional(ctx context.Context, professionalID string, f ListFilter) ([]ConsultRequest, error) {
	out := make([]ConsultRequest, 0)
	for _, c := range r.byID {
		if c.ProfessionalID == professionalID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *testRepo) UpdateStatus(ctx context.Context, id string, from, to Status, now time.Time) error {
	c, ok := r.byID[id]
	if !ok || c.Status != from {
		return ErrNotFound
	}
	c.Status = to
	c.UpdatedAt = now
	r.byID[id] = c
	return nil
}

func (r *testRepo) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	n := 0
	for id, c := range r.byID {
		if c.Status == StatusPending && !c.ExpiresAt.After(now) {
			c.Status = StatusExpired
			r.byID[id] = c
			n++
		}
	}
	return n, nil
}

// -------------------------
// Fakes de settings y códigos
// -------------------------

type fakeSettings struct {
	st  professionals.Settings
	err error
}

func (f *fakeSettings) SettingsFor(ctx context.Context, professionalID string) (professionals.Settings, error) {
	if f.err != nil {
		return professionals.Settings{}, f.err
	}
	if f.st.ProfessionalID == "" {
		return professionals.DefaultSettings(professionalID), nil
	}
	return f.st, nil
}

type fakeCodes struct {
	// code válido por profesional; consumir lo borra (un solo uso)
	valid map[string]string
	err   error
}

func (f *fakeCodes) Consume(ctx context.Context, professionalID, code string) (emergencycodes.Code, error) {
	if f.err != nil {
		return emergencycodes.Code{}, f.err
	}
	if f.valid[professionalID] == code {
		delete(f.valid, professionalID)
		return emergencycodes.Code{ProfessionalID: professionalID, Code: code, IsUsed: true}, nil
	}
	return emergencycodes.Code{}, emergencycodes.ErrNotFound
}

func newService(repo *testRepo, settings *fakeSettings, codes *fakeCodes) *Service {
	if settings == nil {
		settings = &fakeSettings{}
	}
	if codes == nil {
		codes = &fakeCodes{valid: map[string]string{}}
	}
	return NewService(repo, settings, codes)
}

func submit(t *testing.T, svc *Service, owner string, in SubmitInput) (ConsultRequest, error) {
	t.Helper()
	return svc.Submit(context.Background(), owner, in)
}

// -------------------------
// Tests
// -------------------------

func TestService_Submit_AcceptsUnderCap(t *testing.T) {
	repo := newTestRepo()
	svc := newService(repo, &fakeSettings{st: professionals.Settings{
		ProfessionalID: "pro-1", CapPending: 2,
	}}, nil)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	c, err := submit(t, svc, "owner-1", SubmitInput{
		ProfessionalID: "pro-1",
		AnimalID:       "animal-1",
		AnimalName:     "Milo",
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if c.Status != StatusPending {
		t.Fatalf("expected pending, got %s", c.Status)
	}
	if c.IsEmergency {
		t.Fatalf("expected non-emergency")
	}
	if c.ExpiresAt != now.Add(DefaultPendingTTL) {
		t.Fatalf("expected expires_at = now+24h, got %v", c.ExpiresAt)
	}
}

func TestService_Submit_CapScenario(t *testing.T) {
	// Escenario completo: cap=2, dos aceptadas, tercera rechazada,
	// cuarta pasa con código, quinta reusa el código y cae como sin-código.
	repo := newTestRepo()
	codes := &fakeCodes{valid: map[string]string{"pro-1": "ABC123"}}
	svc := newService(repo, &fakeSettings{st: professionals.Settings{
		ProfessionalID: "pro-1", CapPending: 2,
	}}, codes)

	for i := 0; i < 2; i++ {
		if _, err := submit(t, svc, "owner-1", SubmitInput{
			ProfessionalID: "pro-1", AnimalID: "animal-1",
		}); err != nil {
			t.Fatalf("submit #%d error: %v", i+1, err)
		}
	}

	if _, err := submit(t, svc, "owner-1", SubmitInput{
		ProfessionalID: "pro-1", AnimalID: "animal-1",
	}); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity on 3rd submit, got %v", err)
	}

	c, err := submit(t, svc, "owner-2", SubmitInput{
		ProfessionalID: "pro-1", AnimalID: "animal-2",
		EmergencyCode: "ABC123",
	})
	if err != nil {
		t.Fatalf("emergency submit error: %v", err)
	}
	if !c.IsEmergency {
		t.Fatalf("expected is_emergency=true")
	}
	if c.EmergencyCode != "ABC123" {
		t.Fatalf("expected audit copy of code, got %q", c.EmergencyCode)
	}

	// reuso del código: un solo uso => se trata como sin código
	if _, err := submit(t, svc, "owner-3", SubmitInput{
		ProfessionalID: "pro-1", AnimalID: "animal-3",
		EmergencyCode: "ABC123",
	}); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected ErrCapacity reusing consumed code, got %v", err)
	}
}

func TestService_Submit_BlockedRequiresEmergency(t *testing.T) {
	repo := newTestRepo()
	codes := &fakeCodes{valid: map[string]string{"pro-1": "ZZTOP9"}}
	svc := newService(repo, &fakeSettings{st: professionals.Settings{
		ProfessionalID: "pro-1", CapPending: 20, Blocked: true,
	}}, codes)

	if _, err := submit(t, svc, "owner-1", SubmitInput{
		ProfessionalID: "pro-1", AnimalID: "animal-1",
	}); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected ErrBlocked, got %v", err)
	}

	c, err := submit(t, svc, "owner-1", SubmitInput{
		ProfessionalID: "pro-1", AnimalID: "animal-1",
		EmergencyCode: "ZZTOP9",
	})
	if err != nil {
		t.Fatalf("emergency submit while blocked error: %v", err)
	}
	if !c.IsEmergency {
		t.Fatalf("expected is_emergency=true while blocked")
	}
}

func TestService_Submit_DefaultSettingsWhenMissing(t *testing.T) {
	repo := newTestRepo()
	svc := newService(repo, &fakeSettings{}, nil) // sin fila => defaults

	if _, err := submit(t, svc, "owner-1", SubmitInput{
		ProfessionalID: "pro-1", AnimalID: "animal-1",
	}); err != nil {
		t.Fatalf("expected accept with default settings, got %v", err)
	}
}

func TestService_Submit_InvalidInput(t *testing.T) {
	repo := newTestRepo()
	svc := newService(repo, nil, nil)

	cases := []struct {
		name  string
		owner string
		in    SubmitInput
	}{
		{"missing owner", "", SubmitInput{ProfessionalID: "pro-1", AnimalID: "a-1"}},
		{"missing professional", "owner-1", SubmitInput{AnimalID: "a-1"}},
		{"missing animal", "owner-1", SubmitInput{ProfessionalID: "pro-1"}},
	}
	for _, tc := range cases {
		if _, err := submit(t, svc, tc.owner, tc.in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
	if len(repo.byID) != 0 {
		t.Fatalf("validation errors must not persist anything")
	}
}

func TestService_Submit_FailsClosedOnStorageError(t *testing.T) {
	// Nunca aceptar sin haber observado settings+count.
	repo := newTestRepo()
	repo.failCount = true
	svc := newService(repo, nil, nil)

	if _, err := submit(t, svc, "owner-1", SubmitInput{
		ProfessionalID: "pro-1", AnimalID: "animal-1",
	}); !errors.Is(err, errRepoDown) {
		t.Fatalf("expected storage error to propagate, got %v", err)
	}
	if len(repo.byID) != 0 {
		t.Fatalf("no insert after failed count")
	}

	svcSettings := newService(newTestRepo(), &fakeSettings{err: errRepoDown}, nil)
	if _, err := submit(t, svcSettings, "owner-1", SubmitInput{
		ProfessionalID: "pro-1", AnimalID: "animal-1",
	}); !errors.Is(err, errRepoDown) {
		t.Fatalf("expected settings storage error to propagate, got %v", err)
	}
}

func TestService_Decide_TransitionsAndOwnership(t *testing.T) {
	repo := newTestRepo()
	svc := newService(repo, &fakeSettings{st: professionals.Settings{
		ProfessionalID: "pro-1", CapPending: 5,
	}}, nil)

	c, err := submit(t, svc, "owner-1", SubmitInput{
		ProfessionalID: "pro-1", AnimalID: "animal-1",
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	// otro profesional no puede decidir
	if _, err := svc.Decide(context.Background(), c.ID, "pro-2", true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for other professional, got %v", err)
	}

	accepted, err := svc.Decide(context.Background(), c.ID, "pro-1", true)
	if err != nil {
		t.Fatalf("Decide error: %v", err)
	}
	if accepted.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}

	// idempotente sobre la misma decisión
	again, err := svc.Decide(context.Background(), c.ID, "pro-1", true)
	if err != nil {
		t.Fatalf("Decide #2 error: %v", err)
	}
	if again.Status != StatusAccepted {
		t.Fatalf("expected accepted after idempotent decide, got %s", again.Status)
	}

	// cambiar de accepted a rejected ya no es válido
	if _, err := svc.Decide(context.Background(), c.ID, "pro-1", false); !errors.Is(err, ErrBadState) {
		t.Fatalf("expected ErrBadState, got %v", err)
	}
}

func TestService_ExpireOverdue(t *testing.T) {
	repo := newTestRepo()
	svc := newService(repo, &fakeSettings{st: professionals.Settings{
		ProfessionalID: "pro-1", CapPending: 5,
	}}, nil)

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	c, err := submit(t, svc, "owner-1", SubmitInput{
		ProfessionalID: "pro-1", AnimalID: "animal-1",
	})
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}

	// todavía no venció
	if n, _ := svc.ExpireOverdue(context.Background()); n != 0 {
		t.Fatalf("expected 0 expired, got %d", n)
	}

	svc.now = func() time.Time { return now.Add(DefaultPendingTTL + time.Minute) }
	n, err := svc.ExpireOverdue(context.Background())
	if err != nil {
		t.Fatalf("ExpireOverdue error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired, got %d", n)
	}

	got, _ := repo.GetByID(context.Background(), c.ID)
	if got.Status != StatusExpired {
		t.Fatalf("expected expired, got %s", got.Status)
	}

	// la expirada ya no cuenta contra el cupo
	if pending, _ := repo.CountPending(context.Background(), "pro-1"); pending != 0 {
		t.Fatalf("expected 0 pending after expire, got %d", pending)
	}
}

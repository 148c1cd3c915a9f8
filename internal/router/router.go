package router

import (
	"database/sql"
	"net/http"

	"unimalia-core/internal/adapters/capabilities/subscriptionroles"
	mem "unimalia-core/internal/adapters/storage/memory"
	pg "unimalia-core/internal/adapters/storage/postgres"
	"unimalia-core/internal/adapters/storage/redisstore"
	"unimalia-core/internal/domain/consults"
	"unimalia-core/internal/domain/emergencycodes"
	"unimalia-core/internal/domain/professionals"
	"unimalia-core/internal/domain/subscriptions"
	"unimalia-core/internal/middleware"
	"unimalia-core/internal/ports/auth"
	"unimalia-core/internal/ports/notify"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Options struct {
	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Si viene DB, usa Postgres. Si no, in-memory (dev/tests).
	DB *sql.DB

	// Si viene Redis, los códigos de emergencia viven ahí (TTL nativo).
	Redis *redis.Client

	// Secreto de firma del webhook de facturación. Vacío => toda firma
	// se rechaza (cerrado por defecto).
	BillingSecret string

	// Publisher de eventos de dominio, opcional.
	Notifier notify.Publisher
}

// Services agrupa lo que main necesita además del handler (p.ej. el sweep
// de expiración).
type Services struct {
	Consults *consults.Service
}

func NewRouter(opts Options) (http.Handler, *Services) {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	var (
		consultsRepo consults.Repository
		settingsRepo professionals.Repository
		codesRepo    emergencycodes.Repository
		subsRepo     subscriptions.Repository
	)

	if opts.DB != nil {
		consultsRepo = pg.NewConsultsRepo(opts.DB)
		settingsRepo = pg.NewSettingsRepo(opts.DB)
		codesRepo = pg.NewCodesRepo(opts.DB)
		subsRepo = pg.NewSubscriptionsRepo(opts.DB)
	} else {
		consultsRepo = mem.NewConsultsRepo()
		settingsRepo = mem.NewSettingsRepo()
		codesRepo = mem.NewCodesRepo()
		subsRepo = mem.NewSubscriptionsRepo()
	}

	// Redis pisa el repo de códigos: ahí el TTL y el consumo de un solo
	// uso son operaciones nativas del store.
	if opts.Redis != nil {
		codesRepo = redisstore.NewCodesRepo(opts.Redis)
	}

	// Services por módulo
	professionalsSvc := professionals.NewService(settingsRepo)
	codesSvc := emergencycodes.NewService(codesRepo)
	subsSvc := subscriptions.NewService(subsRepo, opts.BillingSecret)
	consultsSvc := consults.NewService(consultsRepo, professionalsSvc, codesSvc)
	if opts.Notifier != nil {
		consultsSvc.SetNotifier(opts.Notifier)
	}

	caps := subscriptionroles.NewResolver(subsSvc)

	// Rutas por módulo
	consults.RegisterRoutes(r, consultsSvc, caps)
	professionals.RegisterRoutes(r, professionalsSvc, caps)
	emergencycodes.RegisterRoutes(r, codesSvc, caps)
	subscriptions.RegisterRoutes(r, subsSvc)

	return r, &Services{Consults: consultsSvc}
}

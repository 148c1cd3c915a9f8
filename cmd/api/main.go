package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"unimalia-core/internal/adapters/auth/identity"
	"unimalia-core/internal/adapters/auth/jwtverifier"
	"unimalia-core/internal/adapters/messaging"
	pg "unimalia-core/internal/adapters/storage/postgres"
	"unimalia-core/internal/platform/logger"
	"unimalia-core/internal/platform/metrics"
	"unimalia-core/internal/ports/auth"
	"unimalia-core/internal/router"

	"github.com/redis/go-redis/v9"
)

func main() {
	log := logger.NewFromEnv()

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	opts := router.Options{
		AuthVerifier:  buildVerifier(log),
		BillingSecret: os.Getenv("BILLING_SIGNING_SECRET"),
	}

	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		db, err := pg.Open(dsn)
		if err != nil {
			log.Error("postgres open failed", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
		defer db.Close()
		opts.DB = db
	}

	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Error("redis ping failed", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
		defer rdb.Close()
		opts.Redis = rdb
	}

	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		queue := os.Getenv("AMQP_CONSULTS_QUEUE")
		if queue == "" {
			queue = "consults.accepted"
		}
		broker, err := messaging.NewBroker(amqpURL, queue)
		if err != nil {
			log.Error("rabbitmq connect failed", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
		defer broker.Close()
		opts.Notifier = broker
	}

	handler, services := router.NewRouter(opts)

	// Sweep de pendings vencidas (define la transición pending -> expired).
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runExpireSweep(sweepCtx, services, log)

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting server", map[string]any{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopSweep()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", map[string]any{"err": err.Error()})
	}
}

// buildVerifier arma el verifier según env:
//   - AUTH_JWT_SECRET: verificación local HS256
//   - IDENTITY_URL (+ IDENTITY_API_KEY): verificación remota
//   - nada: modo dev (X-Debug-User-ID)
func buildVerifier(log logger.Logger) auth.AuthVerifier {
	if secret := os.Getenv("AUTH_JWT_SECRET"); secret != "" {
		return jwtverifier.New(secret)
	}

	if baseURL := os.Getenv("IDENTITY_URL"); baseURL != "" {
		client, err := identity.NewClient(identity.Config{
			BaseURL: baseURL,
			APIKey:  os.Getenv("IDENTITY_API_KEY"),
		})
		if err != nil {
			log.Error("identity client init failed", map[string]any{"err": err.Error()})
			os.Exit(1)
		}
		return identity.NewVerifier(client)
	}

	log.Warn("no auth verifier configured, running in dev mode", nil)
	return nil
}

func runExpireSweep(ctx context.Context, services *router.Services, log logger.Logger) {
	interval := 5 * time.Minute
	if v := os.Getenv("EXPIRE_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := services.Consults.ExpireOverdue(ctx)
			if err != nil {
				log.Warn("expire sweep failed", map[string]any{"err": err.Error()})
				continue
			}
			if n > 0 {
				metrics.ExpiredConsults.Add(float64(n))
				log.Info("expired overdue consults", map[string]any{"count": n})
			}
		}
	}
}

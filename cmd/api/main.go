package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"accessflow.dev/internal/access"
	"accessflow.dev/internal/config"
	"accessflow.dev/internal/httpapi"
	"accessflow.dev/internal/notify"
	"accessflow.dev/internal/obs"
	"accessflow.dev/internal/store/pg"
)

var version = "0.3.0"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.RequireSecret(); err != nil {
		log.Fatalf("config: %v", err)
	}

	var (
		store access.Store
		probe httpapi.ReadyProbe
	)
	if cfg.PGDSN != "" {
		pgStore, err := pg.Open(cfg.PGDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
		probe = httpapi.ReadyProbe{Ping: pgStore.Ping}
	} else {
		// Development fallback; flows run against process memory.
		log.Println("no ACCESSFLOW_PG_DSN set, using in-memory store")
		store = access.NewMemoryStore()
	}

	issuer, err := access.NewIssuer([]byte(cfg.AuthSecret))
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	opts := []access.ServiceOption{
		access.WithFrontendURL(cfg.FrontendURL),
		access.WithBrand(cfg.Brand),
	}
	var queue *notify.Queue
	if cfg.AMQPURL != "" {
		queue, err = notify.OpenQueue(cfg.AMQPURL, cfg.EmailQueue)
		if err != nil {
			log.Printf("amqp unavailable, email notifications disabled: %v", err)
		} else {
			defer queue.Close()
			opts = append(opts, access.WithNotifier(queue))
		}
	}

	svc, err := access.NewService(store, issuer, opts...)
	if err != nil {
		log.Fatalf("access service: %v", err)
	}

	api := httpapi.New(svc, probe, version)
	handler := httpapi.Logging(
		httpapi.SecurityHeaders(
			httpapi.CORS(
				httpapi.MaxBodyBytes(
					httpapi.RateLimit(api.Handler(), 20, 10),
					1<<20,
				),
				cfg.FrontendURL,
			),
		),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting accessflow-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}

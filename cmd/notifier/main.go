package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"accessflow.dev/internal/config"
	"accessflow.dev/internal/notify"
	"accessflow.dev/internal/obs"
)

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.AMQPURL == "" {
		log.Fatal("ACCESSFLOW_AMQP_URL is required")
	}
	if cfg.SMTPHost == "" || cfg.SMTPUser == "" {
		log.Fatal("SMTP host and user are required")
	}

	queue, err := notify.OpenQueue(cfg.AMQPURL, cfg.EmailQueue)
	if err != nil {
		log.Fatalf("open queue: %v", err)
	}
	defer queue.Close()

	mailer := &notify.Mailer{
		From:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Draining %q on %s", cfg.EmailQueue, cfg.AMQPURL)
	if err := notify.NewConsumer(queue, mailer).Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("consume: %v", err)
	}
	log.Println("Stopped")
}

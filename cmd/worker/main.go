package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skundu/blood-market/internal/config"
	"github.com/skundu/blood-market/internal/messaging"
	"github.com/skundu/blood-market/internal/notify"
	"github.com/skundu/blood-market/internal/telemetry"
	"github.com/skundu/blood-market/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	cfg := config.Load()

	if len(cfg.KafkaBrokers) == 0 {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(context.Background(),
		cfg.ServiceName+"-worker", cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	httpClient := &http.Client{Timeout: 10 * time.Second}

	mailer := notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPSender, cfg.SMTPPass, logger)
	sms := notify.NewSMSSender(cfg.TwilioSID, cfg.TwilioAuth, cfg.TwilioFrom, httpClient, logger)
	handler := worker.NewNotificationHandler(mailer, sms, logger)

	placedConsumer := messaging.NewConsumer(cfg.KafkaBrokers, messaging.TopicOrderPlaced, "notification-worker")
	defer func() { _ = placedConsumer.Close() }()
	cancelledConsumer := messaging.NewConsumer(cfg.KafkaBrokers, messaging.TopicOrderCancelled, "notification-worker")
	defer func() { _ = cancelledConsumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting notification worker", "brokers", cfg.KafkaBrokers)

	errs := make(chan error, 2)
	go func() { errs <- placedConsumer.Consume(ctx, handler.HandleOrderPlaced) }()
	go func() { errs <- cancelledConsumer.Consume(ctx, handler.HandleOrderCancelled) }()

	if err := <-errs; err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.Info("consumers stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-fulfillment/internal/config"
	kafkax "github.com/ariefcatur/go-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-fulfillment/internal/logx"
	"github.com/ariefcatur/go-fulfillment/internal/notify"
	"github.com/ariefcatur/go-fulfillment/internal/redisx"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logx.New(cfg.Env, cfg.ServiceName+"-notifier")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	var mailer notify.Mailer = notify.LogMailer{Log: logger}
	if cfg.SMTP.Host != "" {
		m, err := notify.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			logger.Fatal("smtp", zap.Error(err))
		}
		mailer = m
	} else {
		logger.Warn("SMTP_HOST not set, confirmations are only logged")
	}

	h := &notify.Handler{
		Dedup:  &notify.RedisDeduper{RDB: rdb, Service: "notifier", TTL: redisx.TTLDedup},
		Mailer: mailer,
		Log:    logger,
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifyGroup, notify.TopicOrderConfirmation, cfg.NotifyWorkers, logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("notifier consumer started",
			zap.String("group", cfg.NotifyGroup),
			zap.String("topic", notify.TopicOrderConfirmation),
			zap.Int("workers", cfg.NotifyWorkers))
		if err := cons.Start(ctx, h.Handle); err != nil {
			logger.Error("consumer exit", zap.Error(err))
		}
		cancel()
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer")
	cancel()
	<-done
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-fulfillment/internal/checkout"
	"github.com/ariefcatur/go-fulfillment/internal/config"
	"github.com/ariefcatur/go-fulfillment/internal/customers"
	"github.com/ariefcatur/go-fulfillment/internal/httpx"
	kafkax "github.com/ariefcatur/go-fulfillment/internal/kafka"
	"github.com/ariefcatur/go-fulfillment/internal/logx"
	"github.com/ariefcatur/go-fulfillment/internal/metrics"
	"github.com/ariefcatur/go-fulfillment/internal/notify"
	"github.com/ariefcatur/go-fulfillment/internal/orders"
	"github.com/ariefcatur/go-fulfillment/internal/payment"
	"github.com/ariefcatur/go-fulfillment/internal/postgres"
	"github.com/ariefcatur/go-fulfillment/internal/redisx"
	"github.com/ariefcatur/go-fulfillment/internal/settings"
	"github.com/ariefcatur/go-fulfillment/internal/store/pgstore"
	"github.com/ariefcatur/go-fulfillment/internal/tracking"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logx.New(cfg.Env, cfg.ServiceName)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, postgres.Options{
		DSN:         cfg.PostgresDSN,
		MaxConns:    int32(cfg.PGMaxConns),
		LockTimeout: cfg.LockTimeout,
	})
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for confirmations
	prod := kafkax.NewProducer(cfg.KafkaBrokers, notify.TopicOrderConfirmation, 1024, logger)
	prod.Start()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, "api")

	// Payment gateway; GATEWAY checkouts fail until the merchant settings exist.
	st := settings.NewPGStore(db)
	var merchant *payment.MerchantConfig
	if mc, err := payment.LoadMerchantConfig(ctx, st); err != nil {
		logger.Warn("payment gateway disabled", zap.Error(err))
	} else {
		merchant = &mc
	}
	gw := payment.NewGateway(merchant, orders.NewPGStore(db), redisx.NewTxnRegistry(rdb, cfg.PaymentTxnTTL), cfg.PaymentTxnTTL, logger)

	runner := pgstore.New(db)
	machine := tracking.NewMachine(logger)
	co := checkout.NewCoordinator(runner, machine, customers.NewPGDirectory(db),
		notify.NewKafkaNotifier(prod, cfg.ServiceName), cfg.ShippingCost, logger,
		checkout.CashOnDelivery{}, gw)
	co.Metrics = m
	tracks := &tracking.Service{Runner: runner, Machine: machine, Metrics: m}

	router := httpx.NewRouter(logger, metrics.Handler(reg))
	httpx.NewHandler(co, tracks, gw, logger).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// SIGHUP reloads merchant settings; SIGINT/SIGTERM stop the process.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for s := range sig {
		if s != syscall.SIGHUP {
			break
		}
		if err := gw.Reload(ctx, st); err != nil {
			logger.Warn("merchant config reload failed", zap.Error(err))
		}
	}
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox, flush and close writer
	prod.WaitClosed() // drain
}

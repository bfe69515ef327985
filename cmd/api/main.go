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

	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-distribution-orders/internal/config"
	"github.com/ariefcatur/go-distribution-orders/internal/fulfillment"
	"github.com/ariefcatur/go-distribution-orders/internal/httpx"
	kafkax "github.com/ariefcatur/go-distribution-orders/internal/kafka"
	"github.com/ariefcatur/go-distribution-orders/internal/logging"
	"github.com/ariefcatur/go-distribution-orders/internal/metrics"
	"github.com/ariefcatur/go-distribution-orders/internal/orders"
	"github.com/ariefcatur/go-distribution-orders/internal/postgres"
	"github.com/ariefcatur/go-distribution-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logging.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger.Named("kafka"))
	prod.Start()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	repo := &orders.Repo{DB: db}
	svc := fulfillment.NewService(fulfillment.Deps{
		Pedidos:  repo,
		Ventas:   repo,
		Payments: repo,
		Catalog:  repo,
		Events: &kafkax.Publisher{
			Sink:    prod,
			Service: cfg.ServiceName,
			TraceID: middleware.GetReqID,
		},
		Guard:    &redisx.ConversionGuard{RDB: rdb},
		Statuses: &redisx.StatusCache{RDB: rdb},
		Logger:   logger,
		Metrics:  m,
	})

	router := httpx.NewRouter(httpx.RouterConfig{Logger: logger, Metrics: m, Timeout: 3 * cfg.RequestTimeout})
	(&httpx.OrdersHandler{Svc: svc, Timeout: cfg.RequestTimeout}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox -> flush & close writer
	prod.WaitClosed() // drain
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-distribution-orders/internal/config"
	"github.com/ariefcatur/go-distribution-orders/internal/inventory"
	kafkax "github.com/ariefcatur/go-distribution-orders/internal/kafka"
	"github.com/ariefcatur/go-distribution-orders/internal/logging"
	"github.com/ariefcatur/go-distribution-orders/internal/orders"
	"github.com/ariefcatur/go-distribution-orders/internal/postgres"
	"github.com/ariefcatur/go-distribution-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	name := cfg.ServiceName + "-inventario"

	logger, err := logging.New(name, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// one producer serves both stock.deducted and stock.rejected
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, logger.Named("kafka"))
	prod.Start()

	svc := &inventory.Service{
		Stock:  &orders.StockRepo{DB: db},
		Dedup:  &redisx.Deduper{RDB: rdb, Service: cfg.InventoryGroup},
		Events: &kafkax.Publisher{Sink: prod, Service: name},
		Logger: logger,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.InventoryGroup, orders.TopicVentaCreated, cfg.InventoryWorkers, logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("inventory consumer started",
			zap.String("group", cfg.InventoryGroup),
			zap.String("topic", orders.TopicVentaCreated),
			zap.Int("workers", cfg.InventoryWorkers))
		if err := cons.Start(ctx, svc.HandleVentaCreated); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer")
	cancel()
	<-done
	prod.Close()
	prod.WaitClosed()
}

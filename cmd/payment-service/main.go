package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/orderflow/payment-service/internal/config"
	"github.com/orderflow/payment-service/internal/metrics"
	"github.com/orderflow/payment-service/internal/payment/application"
	paymenthttp "github.com/orderflow/payment-service/internal/payment/infrastructure/http"
	paymentkafka "github.com/orderflow/payment-service/internal/payment/infrastructure/kafka"
	pg "github.com/orderflow/payment-service/internal/payment/infrastructure/postgres"
	"github.com/orderflow/payment-service/internal/payment/infrastructure/randomorg"
	"github.com/orderflow/payment-service/pkg/idempotency"
	"github.com/orderflow/payment-service/pkg/logging"
	"github.com/orderflow/payment-service/pkg/shutdown"
	"github.com/orderflow/payment-service/pkg/tracing"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tracing.Setup()

	if err := pg.Migrate(cfg.DatabaseURL); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	var dedup *idempotency.Store
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		dedup = idempotency.NewStore(rdb, cfg.DedupTTL)
	}

	m := metrics.New(cfg.MetricsNamespace)
	repo := pg.NewRepository(log, pool)
	oracle := randomorg.NewClient(log, cfg.OracleURL, cfg.OracleTimeout)
	svc := application.NewService(log, repo, oracle)

	publisher := paymentkafka.NewPublisher(log, cfg.KafkaBrokers, cfg.PaymentEventsTopic, m)
	defer publisher.Close()

	for i := 0; i < cfg.ConsumerWorkers; i++ {
		consumer := paymentkafka.NewConsumer(
			log, cfg.KafkaBrokers, cfg.OrderEventsTopic, cfg.ConsumerGroup, svc, publisher, dedup, m)
		go func(worker int) {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("consumer stopped", "worker", worker, "err", err)
				cancel()
			}
		}(i)
	}

	handler := paymenthttp.NewHandler(log, svc, m.Handler())
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTPHost, cfg.HTTPPort),
		Handler: handler.Routes(),
	}
	go func() {
		log.Info("query api listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	log.Info("payment-service shutdown")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/harborpay/ledger/internal/api"
	"github.com/harborpay/ledger/internal/config"
	"github.com/harborpay/ledger/internal/events/kafka"
	"github.com/harborpay/ledger/internal/interfaces"
	"github.com/harborpay/ledger/internal/ledger"
	"github.com/harborpay/ledger/internal/storage/memory"
	"github.com/harborpay/ledger/internal/storage/postgres"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}

	var store interfaces.LedgerStore
	if os.Getenv("LEDGER_STORE") == "memory" {
		log.Info("using in-memory store")
		store = memory.NewStore()
	} else {
		pg, err := postgres.Open(cfg.DSN(), cfg.MaxOpenConns, cfg.ConnMaxLifetime)
		if err != nil {
			log.Fatal("postgres connection failed", zap.Error(err))
		}
		defer pg.Close()
		log.Info("connected to postgres",
			zap.String("host", cfg.DBHost),
			zap.String("database", cfg.DBName))
		store = pg
	}

	var publisher interfaces.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers)
		defer kp.Close()
		publisher = kp
		log.Info("kafka publisher enabled", zap.Strings("brokers", cfg.KafkaBrokers))
	}

	service := ledger.NewService(store, publisher, log)
	router := api.NewRouter(api.NewHandler(service, log))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}

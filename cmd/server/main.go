package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/config"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/donations"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/events"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/expenses"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/httpapi"
	interfaces "github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/interfaces"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/inventory"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/ledger"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/metrics"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/payments"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/profit"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/programarea"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/sales"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/ngo-bookkeeping-ledger/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := config.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	publisher, closePublisher := openPublisher(cfg, log)
	defer closePublisher()
	notifier := events.NewNotifier(publisher, cfg.KafkaTopicPrefix, log)

	ledgerService := ledger.NewLedger(store,
		ledger.WithOverdraftRejection(cfg.RejectOverdraft),
		ledger.WithNotifier(notifier),
		ledger.WithLogger(log),
	)
	tracker := inventory.NewTracker(store, log)
	allocator := programarea.NewAllocator(store)
	if err := allocator.Seed(ctx, cfg.ProgramAreas); err != nil {
		log.WithError(err).Fatal("seed program areas")
	}

	server := httpapi.NewServer(httpapi.Services{
		Ledger:    ledgerService,
		Inventory: tracker,
		Catalog:   inventory.NewCatalog(store),
		Areas:     allocator,
		Sales:     sales.NewProcessor(store, ledgerService, tracker, notifier, log),
		Donations: donations.NewProcessor(store, ledgerService, allocator, notifier, log),
		Expenses:  expenses.NewProcessor(store, ledgerService, notifier, log),
		Payments:  payments.NewWorkflow(store, notifier, log),
		Profit:    profit.NewCalculator(store, cfg.ServiceCostRatio),
	}, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

// openStore picks postgres when DATABASE_URL is set and the in-memory store
// otherwise.
func openStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (interfaces.Store, func()) {
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory store")
		return memory.NewMemoryStore(), func() {}
	}

	store, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	})
	if err != nil {
		log.WithError(err).Fatal("connect to database")
	}
	if err := store.Migrate(); err != nil {
		log.WithError(err).Fatal("migrate database")
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Warn("close database")
		}
	}
}

func openPublisher(cfg config.Config, log *logrus.Logger) (interfaces.EventPublisher, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NewLogPublisher(log), func() {}
	}

	publisher := kafka.NewPublisher(cfg.KafkaBrokers, func(topic string, err error) {
		metrics.NotificationFailed(topic)
		log.WithField("topic", topic).WithError(err).Warn("notification not delivered")
	})
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			log.WithError(err).Warn("close kafka writer")
		}
	}
}

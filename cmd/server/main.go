package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/credit-tracker/internal/auth"
	"github.com/sheikh-saqib/credit-tracker/internal/config"
	"github.com/sheikh-saqib/credit-tracker/internal/events/kafka"
	"github.com/sheikh-saqib/credit-tracker/internal/handler"
	"github.com/sheikh-saqib/credit-tracker/internal/idgen"
	interfaces "github.com/sheikh-saqib/credit-tracker/internal/interfaces"
	"github.com/sheikh-saqib/credit-tracker/internal/ledger"
	"github.com/sheikh-saqib/credit-tracker/internal/realtime"
	"github.com/sheikh-saqib/credit-tracker/internal/reconcile"
	"github.com/sheikh-saqib/credit-tracker/internal/router"
	"github.com/sheikh-saqib/credit-tracker/internal/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer backends.Close()

	// ---- realtime fan-out ----
	var (
		store      interfaces.DocumentStore = backends.Documents
		subscriber interfaces.EventSubscriber
	)
	switch cfg.Realtime {
	case "kafka":
		publisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer publisher.Close()
		sub := kafka.NewSubscriber(cfg.KafkaBrokers, cfg.KafkaTopic, "credit-tracker-"+cfg.InstanceID, logger)
		defer sub.Close()
		store = realtime.NewStore(store, publisher, cfg.KafkaTopic, cfg.InstanceID, logger)
		subscriber = sub
	}

	// ---- ledgers ----
	ids := idgen.NewMonotonic()
	tracker := ledger.NewTracker(store, ledger.Options{
		Key:                 cfg.LedgerKey,
		DefaultStudent:      cfg.DefaultStudent,
		RequireConfirmation: cfg.ConfirmDeletes,
		IDs:                 ids,
	}, logger)
	defer tracker.Close()
	roster := ledger.NewRoster(store, ledger.Options{
		Key:                 cfg.RosterKey,
		RequireConfirmation: cfg.ConfirmDeletes,
		IDs:                 ids,
	}, logger)
	defer roster.Close()

	// a failed read leaves the ledger empty; the service keeps running on local state
	if err := tracker.Load(ctx); err != nil {
		logger.Error("starting with an empty ledger", zap.Error(err))
	}
	if err := roster.Load(ctx); err != nil {
		logger.Error("starting with an empty roster", zap.Error(err))
	}

	if subscriber != nil {
		appliers := map[string]realtime.Applier{
			cfg.LedgerKey: tracker,
			cfg.RosterKey: roster,
		}
		go func() {
			err := realtime.Follow(ctx, subscriber, cfg.InstanceID, appliers, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("realtime subscription stopped", zap.Error(err))
			}
		}()
	}

	// ---- reconciliation ----
	checker := reconcile.NewChecker(tracker, roster, cfg.ReconcileRepair, logger)
	if cfg.ReconcileSchedule != "" {
		sched, err := checker.Schedule(cfg.ReconcileSchedule)
		if err != nil {
			logger.Fatal("failed to schedule reconciliation", zap.Error(err))
		}
		defer sched.Stop()
	}

	// ---- auth ----
	gate := auth.NewGate(cfg.Auth, logger)
	sessions := auth.NewManager(gate, backends.Sessions, cfg.SessionTTL, logger)

	// ---- HTTP ----
	h := handler.NewHandler(tracker, roster, sessions, checker, logger)
	r := router.SetupRoutes(chi.NewRouter(), h)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	identityhandler "travelcred/internal/identity/handler"
	identityservice "travelcred/internal/identity/service"
	jwttoken "travelcred/internal/jwt_token"
	ledgerhandler "travelcred/internal/ledger/handler"
	ledgerservice "travelcred/internal/ledger/service"
	streamhandler "travelcred/internal/notifier/handler"
	passporthandler "travelcred/internal/passport/handler"
	passportmetrics "travelcred/internal/passport/metrics"
	passportservice "travelcred/internal/passport/service"
	"travelcred/internal/platform/config"
	"travelcred/internal/platform/httpserver"
	"travelcred/internal/platform/logger"
	"travelcred/internal/platform/metrics"
	"travelcred/internal/platform/ratelimit"
	httptransport "travelcred/internal/transport/http"
	"travelcred/internal/visa/adapters"
	visahandler "travelcred/internal/visa/handler"
	visametrics "travelcred/internal/visa/metrics"
	visaservice "travelcred/internal/visa/service"
	"travelcred/pkg/domain"
)

// main wires the registries, exposes the HTTP router, and owns the server
// lifecycle. Business logic lives in the internal service packages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("travelcred exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	admin, err := domain.ParseIdentity(cfg.Registry.Administrator)
	if err != nil {
		return fmt.Errorf("ADMIN_IDENTITY: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store, err := openBackend(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.close(); err != nil {
			log.Error("close storage", "error", err)
		}
	}()

	events, err := openNotifier(ctx, cfg, reg, store.health, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := events.Close(closeCtx); err != nil {
			log.Error("close event notifier", "error", err)
		}
	}()

	ledger := ledgerservice.New(store.ledger)

	authority, err := identityservice.New(admin, store.officers, ledger,
		identityservice.WithTx(store.officersTx),
		identityservice.WithPublisher(events),
		identityservice.WithLogger(log),
	)
	if err != nil {
		return err
	}
	if err := authority.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap officers: %w", err)
	}

	passports := passportservice.New(store.passports, authority, ledger,
		passportservice.WithTx(store.passportsTx),
		passportservice.WithPublisher(events),
		passportservice.WithLogger(log),
		passportservice.WithMetrics(passportmetrics.New(reg)),
	)

	visas, err := visaservice.New(store.visas, adapters.NewPassportAdapter(passports), authority, ledger,
		visaservice.WithTx(store.visasTx),
		visaservice.WithPublisher(events),
		visaservice.WithLogger(log),
		visaservice.WithMetrics(visametrics.New(reg)),
		visaservice.WithHolderMatch(cfg.Registry.RequireHolderMatch),
	)
	if err != nil {
		return err
	}

	tokens := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)
	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Tokens:         jwttoken.NewJWTServiceAdapter(tokens),
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		ApplyLimiter:   ratelimit.New(cfg.Registry.ApplyRatePerMinute, cfg.Registry.ApplyBurst),
		RequestTimeout: cfg.Server.RequestTimeout,
		Health:         store.health,
		Officers:       identityhandler.New(authority, log),
		Passports:      passporthandler.New(passports, log),
		Visas:          visahandler.New(visas, log),
		Transitions:    ledgerhandler.New(ledger, log),
		Events:         streamhandler.New(events, log),
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting travelcred", "addr", cfg.Server.Addr, "administrator", admin, "postgres", cfg.Database.URL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

package main

import (
	"context"
	"log/slog"

	identityservice "travelcred/internal/identity/service"
	identitystore "travelcred/internal/identity/store"
	ledgerservice "travelcred/internal/ledger/service"
	ledgerstore "travelcred/internal/ledger/store"
	passportservice "travelcred/internal/passport/service"
	passportstore "travelcred/internal/passport/store"
	"travelcred/internal/platform/config"
	"travelcred/internal/platform/postgres"
	httptransport "travelcred/internal/transport/http"
	visaservice "travelcred/internal/visa/service"
	visastore "travelcred/internal/visa/store"
	txctx "travelcred/pkg/platform/tx"
)

// backend is the storage selected at startup. Under Postgres each registry
// serializes on its own advisory lock and the transition log tail lock orders
// appends across them.
type backend struct {
	officers  identityservice.Store
	ledger    ledgerservice.Store
	passports passportservice.Store
	visas     visaservice.Store

	officersTx  txctx.Runner
	passportsTx txctx.Runner
	visasTx     txctx.Runner

	health map[string]httptransport.HealthCheck
	close  func() error
}

// newMemoryBackend shares one runner between the registries so that commit
// hooks, and with them published events, run in transition log order.
func newMemoryBackend() *backend {
	runner := txctx.NewMemoryRunner()
	return &backend{
		officers:    identitystore.NewInMemory(),
		ledger:      ledgerstore.NewInMemory(),
		passports:   passportstore.NewInMemory(),
		visas:       visastore.NewInMemory(),
		officersTx:  runner,
		passportsTx: runner,
		visasTx:     runner,
		health:      map[string]httptransport.HealthCheck{},
		close:       func() error { return nil },
	}
}

func newPostgresBackend(ctx context.Context, cfg config.Database, logger *slog.Logger) (*backend, error) {
	db, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	applied, err := postgres.Migrate(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.InfoContext(ctx, "database migrated", "applied", applied)

	return &backend{
		officers:    identitystore.NewPostgres(db),
		ledger:      ledgerstore.NewPostgres(db),
		passports:   passportstore.NewPostgres(db),
		visas:       visastore.NewPostgres(db),
		officersTx:  txctx.NewSQLRunner(db, postgres.LockOfficers),
		passportsTx: txctx.NewSQLRunner(db, postgres.LockPassports),
		visasTx:     txctx.NewSQLRunner(db, postgres.LockVisas),
		health: map[string]httptransport.HealthCheck{
			"database": db.PingContext,
		},
		close: db.Close,
	}, nil
}

func openBackend(ctx context.Context, cfg config.Database, logger *slog.Logger) (*backend, error) {
	if cfg.URL == "" {
		logger.WarnContext(ctx, "DATABASE_URL not set, registries are in memory and lost on restart")
		return newMemoryBackend(), nil
	}
	return newPostgresBackend(ctx, cfg, logger)
}

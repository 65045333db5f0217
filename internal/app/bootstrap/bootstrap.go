package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	creditledger "atelier/contexts/finance-core/credit-ledger"
	ledgerpostgres "atelier/contexts/finance-core/credit-ledger/adapters/postgres"
	ledgerworkers "atelier/contexts/finance-core/credit-ledger/application/workers"
	submissionservice "atelier/contexts/request-queue/submission-service"
	submissionpostgres "atelier/contexts/request-queue/submission-service/adapters/postgres"
	submissionworkers "atelier/contexts/request-queue/submission-service/application/workers"
	voteengine "atelier/contexts/request-queue/vote-engine"
	votepostgres "atelier/contexts/request-queue/vote-engine/adapters/postgres"
	voteworkers "atelier/contexts/request-queue/vote-engine/application/workers"
	"atelier/internal/platform/config"
	"atelier/internal/platform/db"
	"atelier/internal/platform/httpserver"
	"atelier/internal/platform/messaging"
	"atelier/internal/shared/policy"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres        *db.Postgres
	ledgerRelay     ledgerworkers.OutboxRelay
	submissionRelay submissionworkers.OutboxRelay
	voteRelay       voteworkers.OutboxRelay
	pollInterval    time.Duration
	logger          *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	policies := policy.Static{
		CompletionDays: cfg.QueueCompletionDays,
		MonthlyVotes:   cfg.MonthlyVoteQuota,
		Tiers:          policy.DefaultStatic().Tiers,
	}

	ledgerRepo := ledgerpostgres.NewRepository(pg.DB, logger)
	ledgerModule := creditledger.NewModule(creditledger.Dependencies{
		Repo:     ledgerRepo,
		Outbox:   ledgerRepo,
		Clock:    ledgerpostgres.SystemClock{},
		IDGen:    ledgerpostgres.UUIDGenerator{},
		Policies: policies,
		Logger:   logger,
	})

	submissionRepo := submissionpostgres.NewRepository(pg.DB, logger)
	submissionModule := submissionservice.NewModule(submissionservice.Dependencies{
		Repo:     submissionRepo,
		Ledger:   creditLedgerAdapter{ledger: ledgerModule.Service},
		UoW:      submissionpostgres.NewUnitOfWork(pg.DB),
		Outbox:   submissionRepo,
		Clock:    submissionpostgres.SystemClock{},
		IDGen:    submissionpostgres.UUIDGenerator{},
		Policies: policies,
		Logger:   logger,
	})

	voteRepo := votepostgres.NewRepository(pg.DB, logger)
	voteModule := voteengine.NewModule(voteengine.Dependencies{
		Votes:    voteRepo,
		Queue:    queueGatewayAdapter{submissions: submissionModule.Service},
		UoW:      votepostgres.NewUnitOfWork(pg.DB),
		Outbox:   voteRepo,
		Clock:    votepostgres.SystemClock{},
		IDGen:    votepostgres.UUIDGenerator{},
		Policies: policies,
		Logger:   logger,
	})

	server := httpserver.New(ledgerModule, submissionModule, voteModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	ledgerRepo := ledgerpostgres.NewRepository(pg.DB, logger)
	submissionRepo := submissionpostgres.NewRepository(pg.DB, logger)
	voteRepo := votepostgres.NewRepository(pg.DB, logger)

	return &WorkerApp{
		postgres: pg,
		ledgerRelay: ledgerworkers.OutboxRelay{
			Outbox:    ledgerRepo,
			Publisher: kafka,
			Clock:     ledgerpostgres.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		submissionRelay: submissionworkers.OutboxRelay{
			Outbox:    submissionRepo,
			Publisher: kafka,
			Clock:     submissionpostgres.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		voteRelay: voteworkers.OutboxRelay{
			Outbox:    voteRepo,
			Publisher: kafka,
			Clock:     votepostgres.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		pollInterval: 2 * time.Second,
		logger:       logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.ledgerRelay.RunOnce(ctx); err != nil {
			return err
		}
		if err := w.submissionRelay.RunOnce(ctx); err != nil {
			return err
		}
		if err := w.voteRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

package submissionservice

import (
	"log/slog"

	httpadapter "atelier/contexts/request-queue/submission-service/adapters/http"
	"atelier/contexts/request-queue/submission-service/adapters/memory"
	"atelier/contexts/request-queue/submission-service/application"
	"atelier/contexts/request-queue/submission-service/domain/entities"
	"atelier/contexts/request-queue/submission-service/ports"
	"atelier/internal/shared/policy"
)

type Module struct {
	Service application.Service
	Handler httpadapter.Handler
	Store   *memory.Store
	Ledger  *memory.Ledger
}

type Dependencies struct {
	Repo     ports.SubmissionRepository
	Ledger   ports.CreditLedger
	UoW      ports.UnitOfWork
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Policies policy.Provider
	Logger   *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Repo:     deps.Repo,
		Ledger:   deps.Ledger,
		UoW:      deps.UoW,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Policies: deps.Policies,
		Logger:   deps.Logger,
	}
	return Module{
		Service: service,
		Handler: httpadapter.Handler{
			Submissions: service,
			Logger:      deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against its in-memory adapters, with a
// local credit account standing in for the finance-core ledger.
func NewInMemoryModule(seed []entities.Submission, balances map[string]int, policies policy.Provider, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	ledger := memory.NewLedger(balances)
	if policies == nil {
		policies = policy.DefaultStatic()
	}
	module := NewModule(Dependencies{
		Repo:     store,
		Ledger:   ledger,
		UoW:      store,
		Outbox:   store,
		Clock:    store,
		IDGen:    store,
		Policies: policies,
		Logger:   logger,
	})
	module.Store = store
	module.Ledger = ledger
	return module
}

package creditledger

import (
	"log/slog"

	httpadapter "atelier/contexts/finance-core/credit-ledger/adapters/http"
	"atelier/contexts/finance-core/credit-ledger/adapters/memory"
	"atelier/contexts/finance-core/credit-ledger/application"
	"atelier/contexts/finance-core/credit-ledger/domain/entities"
	"atelier/contexts/finance-core/credit-ledger/ports"
	"atelier/internal/shared/policy"
)

type Module struct {
	Service application.Service
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Repo     ports.Repository
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Policies policy.Provider
	Logger   *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Repo:     deps.Repo,
		Outbox:   deps.Outbox,
		Clock:    deps.Clock,
		IDGen:    deps.IDGen,
		Policies: deps.Policies,
		Logger:   deps.Logger,
	}
	return Module{
		Service: service,
		Handler: httpadapter.Handler{
			Ledger: service,
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(seed []entities.Transaction, policies policy.Provider, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	if policies == nil {
		policies = policy.DefaultStatic()
	}
	module := NewModule(Dependencies{
		Repo:     store,
		Outbox:   store,
		Clock:    store,
		IDGen:    store,
		Policies: policies,
		Logger:   logger,
	})
	module.Store = store
	return module
}

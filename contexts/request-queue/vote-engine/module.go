package voteengine

import (
	"log/slog"

	httpadapter "atelier/contexts/request-queue/vote-engine/adapters/http"
	"atelier/contexts/request-queue/vote-engine/adapters/memory"
	"atelier/contexts/request-queue/vote-engine/application"
	"atelier/contexts/request-queue/vote-engine/domain/entities"
	"atelier/contexts/request-queue/vote-engine/ports"
	"atelier/internal/shared/policy"
)

type Module struct {
	Service application.Service
	Handler httpadapter.Handler
	Store   *memory.Store
	Gateway *memory.Gateway
}

type Dependencies struct {
	Votes    ports.VoteRepository
	Queue    ports.QueueGateway
	UoW      ports.UnitOfWork
	Outbox   ports.OutboxWriter
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Policies policy.Provider
	Logger   *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Votes:    deps.Votes,
		Queue:    deps.Queue,
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
			Votes:  service,
			Logger: deps.Logger,
		},
	}
}

// NewInMemoryModule wires the module against its in-memory adapters, with a
// local queue projection standing in for the submission module.
func NewInMemoryModule(seed []entities.Vote, policies policy.Provider, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	gateway := memory.NewGateway()
	if policies == nil {
		policies = policy.DefaultStatic()
	}
	module := NewModule(Dependencies{
		Votes:    store,
		Queue:    gateway,
		UoW:      store,
		Outbox:   store,
		Clock:    store,
		IDGen:    store,
		Policies: policies,
		Logger:   logger,
	})
	module.Store = store
	module.Gateway = gateway
	return module
}

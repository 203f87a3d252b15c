package electionengine

import (
	"log/slog"
	"sync"

	httpadapter "rostrum/contexts/governance/election-engine/adapters/http"
	"rostrum/contexts/governance/election-engine/adapters/memory"
	"rostrum/contexts/governance/election-engine/application/commands"
	"rostrum/contexts/governance/election-engine/application/queries"
	"rostrum/contexts/governance/election-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
	Ledger  *memory.Ledger
}

type Dependencies struct {
	Tx      ports.Transactor
	Slates  ports.SlateStore
	Voters  ports.VoterRepository
	Tallies ports.TallyStore
	Roster  ports.RosterRepository
	Ledger  ports.ValueLedger
	Outbox  ports.OutboxWriter
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Logger  *slog.Logger
}

func NewModule(deps Dependencies) Module {
	// One commit point serializes every mutating command; reads stay
	// lock-free against the adapters' own synchronization.
	commit := &sync.Mutex{}
	slateUseCase := commands.SlateUseCase{
		Slates: deps.Slates,
		Clock:  deps.Clock,
		Logger: deps.Logger,
	}
	delegationUseCase := commands.DelegationUseCase{
		Commit:  commit,
		Tx:      deps.Tx,
		Slates:  deps.Slates,
		Voters:  deps.Voters,
		Tallies: deps.Tallies,
		Ledger:  deps.Ledger,
		Outbox:  deps.Outbox,
		Clock:   deps.Clock,
		IDGen:   deps.IDGen,
		Logger:  deps.Logger,
	}
	rosterUseCase := commands.RosterUseCase{
		Commit:  commit,
		Tx:      deps.Tx,
		Roster:  deps.Roster,
		Tallies: deps.Tallies,
		Outbox:  deps.Outbox,
		Clock:   deps.Clock,
		IDGen:   deps.IDGen,
		Logger:  deps.Logger,
	}
	standingsUseCase := queries.StandingsUseCase{
		Roster:  deps.Roster,
		Tallies: deps.Tallies,
		Voters:  deps.Voters,
	}
	return Module{
		Handler: httpadapter.Handler{
			Slates:      slateUseCase,
			Delegations: delegationUseCase,
			Roster:      rosterUseCase,
			Standings:   standingsUseCase,
			Logger:      deps.Logger,
		},
	}
}

// NewInMemoryModule wires the engine against the in-memory store and ledger,
// the configuration used by unit tests and local runs.
func NewInMemoryModule(electionSize int, logger *slog.Logger) Module {
	store := memory.NewStore(electionSize)
	ledger := memory.NewLedger()
	module := NewModule(Dependencies{
		Tx:      store,
		Slates:  store,
		Voters:  store,
		Tallies: store,
		Roster:  store,
		Ledger:  ledger,
		Outbox:  store,
		Clock:   store,
		IDGen:   store,
		Logger:  logger,
	})
	module.Store = store
	module.Ledger = ledger
	return module
}

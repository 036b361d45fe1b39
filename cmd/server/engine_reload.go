package main

import (
	"context"
	"sync/atomic"

	memgate "github.com/blueberrycongee/memgate"
	"github.com/blueberrycongee/memgate/internal/config"
	"github.com/blueberrycongee/memgate/internal/healthcheck"
	"github.com/blueberrycongee/memgate/internal/memory"
	"github.com/blueberrycongee/memgate/internal/observability"
)

// engineProvider swaps the engine atomically on config reload. The store and
// the per-key turn locks are shared across swaps: history survives a reload,
// and a turn in flight on the old engine still excludes same-key turns on
// the new one. In-flight requests finish on the engine they started with.
type engineProvider struct {
	current atomic.Pointer[memgate.Engine]
	ctx     context.Context
	store   memory.Store
	locks   *memgate.TurnLocks
	logger  *observability.Logger

	// Probe lifetime of the current engine; canceled on swap so a
	// replaced engine's prober stops instead of polling forever.
	probeCtx    context.Context
	cancelProbe context.CancelFunc
}

func newEngineProvider(ctx context.Context, cfg *config.Config, store memory.Store, logger *observability.Logger) (*engineProvider, error) {
	p := &engineProvider{
		ctx:    ctx,
		store:  store,
		locks:  memgate.NewTurnLocks(),
		logger: logger,
	}
	if err := p.Reload(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Reload builds a fresh engine from cfg and swaps it in. On failure the
// current engine keeps serving.
func (p *engineProvider) Reload(cfg *config.Config) error {
	engine, err := memgate.NewFromConfig(cfg, nil,
		memgate.WithStore(p.store),
		memgate.WithTurnLocks(p.locks),
		memgate.WithLogger(p.logger),
	)
	if err != nil {
		return err
	}

	probeCtx, cancel := context.WithCancel(p.ctx)
	engine.Start(probeCtx)
	p.current.Store(engine)

	if p.cancelProbe != nil {
		p.cancelProbe()
	}
	p.probeCtx = probeCtx
	p.cancelProbe = cancel
	return nil
}

func (p *engineProvider) HandleTurn(ctx context.Context, req memgate.TurnRequest) (*memgate.TurnResult, error) {
	return p.current.Load().HandleTurn(ctx, req)
}

func (p *engineProvider) ClearConversation(ctx context.Context, userID string) error {
	return p.current.Load().ClearConversation(ctx, userID)
}

func (p *engineProvider) Health() healthcheck.Status {
	return p.current.Load().Health()
}

// Close stops probing, shuts down the current engine, clears retained
// history, and releases the shared store.
func (p *engineProvider) Close() error {
	if p.cancelProbe != nil {
		p.cancelProbe()
	}
	return p.current.Load().Close()
}

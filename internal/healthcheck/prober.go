// Package healthcheck provides proactive upstream probing.
package healthcheck

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/blueberrycongee/memgate/pkg/types"
)

const (
	defaultProbeInterval = 30 * time.Minute
	defaultProbeTimeout  = 10 * time.Second

	modelCacheKey = "models"
)

// Config controls the proactive health checker behavior.
type Config struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration
}

// ModelLister is the slice of the completion client the prober needs.
type ModelLister interface {
	Models(ctx context.Context) ([]types.Model, error)
}

// Status is a point-in-time snapshot of upstream health.
type Status struct {
	Healthy   bool      `json:"healthy"`
	LastProbe time.Time `json:"last_probe,omitempty"`
	Error     string    `json:"error,omitempty"`
	Models    []string  `json:"models,omitempty"`
}

// Prober periodically lists upstream models and records the outcome.
type Prober struct {
	cfg     Config
	lister  ModelLister
	logger  *slog.Logger
	started atomic.Bool

	// Cached model list outlives a transient probe failure so /healthz can
	// still report what the upstream served last.
	models *gocache.Cache

	mu        sync.Mutex
	lastProbe time.Time
	lastErr   error
}

// NewProber creates a new health checker.
func NewProber(cfg Config, lister ModelLister, logger *slog.Logger) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultProbeInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultProbeTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Prober{
		cfg:    cfg,
		lister: lister,
		logger: logger,
		models: gocache.New(3*cfg.Interval, cfg.Interval),
	}
}

// Start begins the probe loop until the context is canceled.
func (p *Prober) Start(ctx context.Context) {
	if p == nil || !p.cfg.Enabled {
		return
	}
	if p.lister == nil {
		p.logger.Warn("healthcheck prober missing model lister")
		return
	}
	if !p.started.CompareAndSwap(false, true) {
		return
	}

	go p.run(ctx)
}

func (p *Prober) run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.ProbeOnce(ctx)

	for {
		select {
		case <-ticker.C:
			p.ProbeOnce(ctx)
		case <-ctx.Done():
			p.logger.Info("healthcheck prober stopped")
			return
		}
	}
}

// ProbeOnce performs a single upstream probe and records the result.
func (p *Prober) ProbeOnce(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	models, err := p.lister.Models(probeCtx)
	now := time.Now()

	p.mu.Lock()
	p.lastProbe = now
	p.lastErr = err
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("healthcheck probe failed", "error", err)
		return
	}

	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	p.models.Set(modelCacheKey, ids, gocache.DefaultExpiration)
	p.logger.Debug("healthcheck probe succeeded", "models", len(ids))
}

// Status reports the outcome of the most recent probe. A prober that has
// never run reports healthy so startup does not flap the endpoint.
func (p *Prober) Status() Status {
	p.mu.Lock()
	lastProbe := p.lastProbe
	lastErr := p.lastErr
	p.mu.Unlock()

	st := Status{
		Healthy:   lastErr == nil,
		LastProbe: lastProbe,
	}
	if lastErr != nil {
		st.Error = lastErr.Error()
	}
	if cached, ok := p.models.Get(modelCacheKey); ok {
		if ids, ok := cached.([]string); ok {
			st.Models = ids
		}
	}
	return st
}

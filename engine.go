package memgate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/memgate/internal/completion"
	"github.com/blueberrycongee/memgate/internal/config"
	"github.com/blueberrycongee/memgate/internal/entityfilter"
	"github.com/blueberrycongee/memgate/internal/healthcheck"
	"github.com/blueberrycongee/memgate/internal/identity"
	"github.com/blueberrycongee/memgate/internal/memory"
	"github.com/blueberrycongee/memgate/internal/memory/inmem"
	"github.com/blueberrycongee/memgate/internal/memory/pgstore"
	"github.com/blueberrycongee/memgate/internal/memory/redisstore"
	"github.com/blueberrycongee/memgate/internal/metrics"
	"github.com/blueberrycongee/memgate/internal/observability"
	"github.com/blueberrycongee/memgate/internal/prompt"
	turnerr "github.com/blueberrycongee/memgate/pkg/errors"
	"github.com/blueberrycongee/memgate/pkg/types"
)

// Environment supplies read-only context from the hosting platform: a
// point-in-time entity snapshot and user display name resolution. The
// engine only reads; it never mutates environment state.
type Environment interface {
	Snapshot(ctx context.Context) ([]types.EntityState, error)
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Completer is the slice of the completion client the engine depends on.
type Completer interface {
	Complete(ctx context.Context, messages []types.Message, extra map[string]json.RawMessage) (string, error)
	Models(ctx context.Context) ([]types.Model, error)
}

// TurnRequest is one incoming user turn.
type TurnRequest struct {
	// Query is the user's utterance.
	Query string `json:"query"`

	// UserID selects the conversation thread. Empty falls back to a
	// shared default thread.
	UserID string `json:"user_id,omitempty"`

	// ConversationID is accepted for API compatibility but deliberately
	// ignored for thread selection: all turns from one user share one
	// history regardless of session boundaries.
	ConversationID string `json:"conversation_id,omitempty"`
}

// TurnResult is the assistant's reply to a turn.
type TurnResult struct {
	Reply           string `json:"reply"`
	ConversationKey string `json:"conversation_key,omitempty"`
	RequestID       string `json:"request_id,omitempty"`
}

// Engine orchestrates a conversational turn: it composes the system prompt
// from environment context, merges it with retained history, dispatches the
// completion request, and writes the reply back into the store.
type Engine struct {
	cfg       *EngineConfig
	store     memory.Store
	completer Completer
	env       Environment
	resolver  identity.Resolver
	filter    *entityfilter.Filter
	prober    *healthcheck.Prober
	logger    *observability.Logger
	locks     *TurnLocks
}

// New creates an Engine from the given options.
func New(opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Completer == nil && cfg.Upstream.APIKey == "" {
		return nil, fmt.Errorf("memgate: upstream api_key is required")
	}
	if cfg.MemoryEnabled {
		if cfg.MaxMessages <= 0 {
			return nil, fmt.Errorf("memgate: max_messages must be positive, got %d", cfg.MaxMessages)
		}
		if cfg.MemoryTimeout <= 0 {
			return nil, fmt.Errorf("memgate: memory timeout must be positive, got %s", cfg.MemoryTimeout)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.LoggerConfig{}, nil)
	}

	completer := cfg.Completer
	if completer == nil {
		completer = completion.New(cfg.Upstream)
	}

	store := cfg.Store
	if store == nil {
		store = inmem.New()
	}

	locks := cfg.Locks
	if locks == nil {
		locks = NewTurnLocks()
	}

	var resolver identity.Resolver
	if cfg.Environment != nil {
		resolver = identity.NewCached(
			identity.ResolverFunc(cfg.Environment.DisplayName),
			cfg.IdentityCacheTTL,
		)
	}

	e := &Engine{
		cfg:       cfg,
		store:     store,
		completer: completer,
		env:       cfg.Environment,
		resolver:  resolver,
		filter:    entityfilter.New(cfg.Entities),
		prober:    healthcheck.NewProber(cfg.Health, completer, logger.Slog()),
		logger:    logger,
		locks:     locks,
	}

	if cfg.ValidateConnection {
		ctx, cancel := context.WithTimeout(context.Background(), e.probeTimeout())
		defer cancel()
		if _, err := completer.Models(ctx); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// NewFromConfig creates an Engine from a parsed configuration file,
// selecting the store backend it names. Options apply on top and win.
func NewFromConfig(cfg *config.Config, env Environment, opts ...Option) (*Engine, error) {
	base := []Option{
		WithUpstream(cfg.Upstream),
		WithEnvironment(env),
		WithMemory(cfg.Memory.Enabled),
		WithMaxMessages(cfg.Memory.MaxMessages),
		WithMemoryTimeout(cfg.Memory.Timeout()),
		WithEntityFilter(entityfilter.Config{
			AllowedDomains:    cfg.Entities.Domains,
			ExcludeAreas:      cfg.Entities.ExcludeAreas,
			MaxEntities:       cfg.Entities.MaxEntities,
			SmartFiltering:    cfg.Entities.SmartFiltering,
			MinimalAttributes: cfg.Entities.MinimalAttributes,
		}),
		WithPromptTemplate(cfg.Prompt.Template),
		WithAssistantName(cfg.Prompt.AssistantName),
		WithComposeContext(cfg.Prompt.ComposeContext),
		WithHealthProbe(healthcheck.Config{
			Enabled:  cfg.Health.Enabled,
			Interval: cfg.Health.Interval,
			Timeout:  cfg.Health.Timeout,
		}),
	}

	// Only build the configured backend when the caller did not inject a
	// store; a config reload reuses the existing store to keep history.
	probe := &EngineConfig{}
	for _, opt := range opts {
		opt(probe)
	}
	if probe.Store == nil {
		store, err := StoreFromConfig(cfg.Store)
		if err != nil {
			return nil, err
		}
		base = append(base, WithStore(store))
	}

	return New(append(base, opts...)...)
}

// StoreFromConfig builds the conversation store backend a config names.
func StoreFromConfig(cfg config.StoreConfig) (memory.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return inmem.New(), nil
	case "redis":
		return redisstore.New(cfg.Redis)
	case "postgres":
		return pgstore.New(cfg.Postgres)
	default:
		return nil, fmt.Errorf("memgate: unknown store backend %q", cfg.Backend)
	}
}

// Start launches the periodic health probe when enabled. It returns
// immediately; the probe loop stops when ctx is canceled.
func (e *Engine) Start(ctx context.Context) {
	e.prober.Start(ctx)
}

// Health reports the outcome of the most recent upstream probe.
func (e *Engine) Health() healthcheck.Status {
	return e.prober.Status()
}

// HandleTurn processes one user turn end to end and returns the reply.
// Failures surface as typed turn errors; see pkg/errors.
func (e *Engine) HandleTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	ctx, requestID := observability.GetOrCreateRequestID(ctx)
	log := e.logger.WithRequestID(ctx)

	reply, key, err := e.handleTurn(ctx, req, log)
	if err != nil {
		metrics.TurnsTotal.WithLabelValues(outcomeLabel(err)).Inc()
		log.RedactedError("turn failed", "user_id", req.UserID, "error", err)
		return nil, err
	}

	metrics.TurnsTotal.WithLabelValues("success").Inc()
	log.WithConversation(key).RedactedDebug("turn completed")
	return &TurnResult{Reply: reply, ConversationKey: key, RequestID: requestID}, nil
}

func (e *Engine) handleTurn(ctx context.Context, req TurnRequest, log *observability.Logger) (string, string, error) {
	systemPrompt, err := e.composeSystemPrompt(ctx, req.Query, req.UserID, log)
	if err != nil {
		// Template failure aborts the turn before any network call.
		return "", "", err
	}

	if !e.cfg.MemoryEnabled {
		messages := []types.Message{
			types.SystemMessage(systemPrompt),
			types.UserMessage(req.Query),
		}
		reply, err := e.complete(ctx, messages)
		return reply, "", err
	}

	key := memory.Key(req.UserID)

	// Turns on the same key must not interleave: both would read the same
	// history and the second commit would overwrite the first.
	unlock := e.locks.lock(key)
	defer unlock()

	now := time.Now()
	if expired, err := e.store.ExpireStale(ctx, now, e.cfg.MemoryTimeout); err != nil {
		log.Warn("expiry sweep failed", "error", err)
	} else if expired > 0 {
		metrics.ExpiredConversations.Add(float64(expired))
		log.Debug("expired stale conversations", "count", expired)
	}

	history, err := e.store.GetOrCreate(ctx, key)
	if err != nil {
		return "", key, err
	}

	history = memory.UpsertSystemMessage(history, types.SystemMessage(systemPrompt))
	history = memory.AppendUserMessage(history, req.Query)
	history = memory.Truncate(history, e.cfg.MaxMessages)

	// The expiry clock resets before the upstream call: a failed turn still
	// counts as activity, though its messages are never committed.
	if err := e.store.Touch(ctx, key, now); err != nil {
		return "", key, err
	}

	reply, err := e.complete(ctx, history)
	if err != nil {
		return "", key, err
	}

	history = memory.AppendAssistantMessage(history, reply)
	history = memory.Truncate(history, e.cfg.MaxMessages)
	if err := e.store.Commit(ctx, key, history, time.Now()); err != nil {
		return "", key, err
	}

	if n, err := e.store.Count(ctx); err == nil {
		metrics.ActiveConversations.Set(float64(n))
	}

	return reply, key, nil
}

func (e *Engine) composeSystemPrompt(ctx context.Context, query, userID string, log *observability.Logger) (string, error) {
	vars := prompt.Vars{AssistantName: e.cfg.AssistantName}

	if e.resolver != nil && userID != "" {
		name, err := e.resolver.DisplayName(ctx, userID)
		if err != nil {
			log.Debug("display name resolution failed", "user_id", userID, "error", err)
		} else {
			vars.UserName = name
		}
	}

	if e.cfg.ComposeContext && e.env != nil {
		snapshot, err := e.env.Snapshot(ctx)
		if err != nil {
			// A missing snapshot degrades the prompt, it does not fail
			// the turn.
			log.Warn("entity snapshot failed", "error", err)
		} else {
			vars.Entities = e.filter.Apply(snapshot, query)
			metrics.PromptEntities.Observe(float64(vars.Entities.Total))
		}
	}

	return prompt.Render(e.cfg.PromptTemplate, vars)
}

func (e *Engine) complete(ctx context.Context, messages []types.Message) (string, error) {
	start := time.Now()
	reply, err := e.completer.Complete(ctx, messages, e.cfg.Extra)
	metrics.CompletionLatency.Observe(time.Since(start).Seconds())
	return reply, err
}

// ClearConversation removes the retained history for a user. Clearing an
// absent conversation is not an error.
func (e *Engine) ClearConversation(ctx context.Context, userID string) error {
	key := memory.Key(userID)
	unlock := e.locks.lock(key)
	defer unlock()
	return e.store.Clear(ctx, key)
}

// ClearAll empties the entire conversation store.
func (e *Engine) ClearAll(ctx context.Context) error {
	return e.store.ClearAll(ctx)
}

// Close clears all retained history and releases store resources. History
// does not survive shutdown.
func (e *Engine) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.store.ClearAll(ctx); err != nil {
		e.logger.Warn("clearing store on shutdown failed", "error", err)
	}
	return e.store.Close()
}

func (e *Engine) probeTimeout() time.Duration {
	if e.cfg.Health.Timeout > 0 {
		return e.cfg.Health.Timeout
	}
	return 10 * time.Second
}

func outcomeLabel(err error) string {
	var te *turnerr.TurnError
	if errors.As(err, &te) {
		return te.Type
	}
	return "internal"
}

// TurnLocks serializes turns per conversation key. Engines built around the
// same store must share one instance, or turns handled by different engines
// could interleave on a key and lose each other's commits. Entries are never
// reaped; the key space is bounded by the user population.
type TurnLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTurnLocks creates an empty lock set.
func NewTurnLocks() *TurnLocks {
	return &TurnLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *TurnLocks) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}

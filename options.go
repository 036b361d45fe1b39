package memgate

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/memgate/internal/completion"
	"github.com/blueberrycongee/memgate/internal/entityfilter"
	"github.com/blueberrycongee/memgate/internal/healthcheck"
	"github.com/blueberrycongee/memgate/internal/memory"
	"github.com/blueberrycongee/memgate/internal/observability"
	"github.com/blueberrycongee/memgate/internal/prompt"
)

// EngineConfig holds all configuration for the Engine.
type EngineConfig struct {
	// Upstream endpoint settings. Ignored when Completer is set.
	Upstream completion.Config

	// Completer overrides the default HTTP completion client.
	Completer Completer

	// Store backs conversation history. Defaults to the in-memory store.
	Store memory.Store

	// Locks serializes turns per conversation key. Defaults to a fresh
	// set; engines sharing a Store must also share Locks.
	Locks *TurnLocks

	// Environment supplies entity snapshots and user display names.
	// Optional; without it prompts render with no entities and the
	// default user name.
	Environment Environment

	// Memory behavior
	MemoryEnabled bool
	MaxMessages   int
	MemoryTimeout time.Duration

	// Prompt composition
	Entities       entityfilter.Config
	PromptTemplate string
	AssistantName  string
	ComposeContext bool

	// Extra sampling parameters forwarded verbatim in the completion body.
	Extra map[string]json.RawMessage

	// Health probing
	Health             healthcheck.Config
	ValidateConnection bool

	// IdentityCacheTTL bounds how long resolved display names are cached.
	IdentityCacheTTL time.Duration

	Logger *observability.Logger
}

// Option is a function that configures the Engine.
type Option func(*EngineConfig)

// defaultEngineConfig returns sensible defaults.
func defaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		Upstream: completion.Config{
			BaseURL: completion.DefaultBaseURL,
			Model:   completion.DefaultModel,
			Timeout: completion.DefaultTimeout,
		},
		MemoryEnabled:    true,
		MaxMessages:      20,
		MemoryTimeout:    2 * time.Hour,
		Entities:         entityfilter.DefaultConfig(),
		PromptTemplate:   prompt.DefaultTemplate,
		AssistantName:    "Mammouth",
		ComposeContext:   true,
		IdentityCacheTTL: 10 * time.Minute,
	}
}

// WithUpstream sets the chat-completion endpoint configuration.
func WithUpstream(cfg completion.Config) Option {
	return func(c *EngineConfig) {
		c.Upstream = cfg
	}
}

// WithCompleter sets a custom completion client (for advanced use).
func WithCompleter(completer Completer) Option {
	return func(c *EngineConfig) {
		c.Completer = completer
	}
}

// WithStore sets the conversation store backend.
func WithStore(store memory.Store) Option {
	return func(c *EngineConfig) {
		c.Store = store
	}
}

// WithTurnLocks sets the per-key turn lock set. Required whenever several
// engines are built around one store, so same-key turns stay serialized
// across all of them.
func WithTurnLocks(locks *TurnLocks) Option {
	return func(c *EngineConfig) {
		c.Locks = locks
	}
}

// WithEnvironment sets the environment state provider.
func WithEnvironment(env Environment) Option {
	return func(c *EngineConfig) {
		c.Environment = env
	}
}

// WithMemory enables or disables conversation memory. When disabled every
// turn is a standalone request and nothing is stored.
func WithMemory(enabled bool) Option {
	return func(c *EngineConfig) {
		c.MemoryEnabled = enabled
	}
}

// WithMaxMessages bounds the stored history per conversation.
func WithMaxMessages(n int) Option {
	return func(c *EngineConfig) {
		c.MaxMessages = n
	}
}

// WithMemoryTimeout sets the retention window; records idle longer expire.
func WithMemoryTimeout(d time.Duration) Option {
	return func(c *EngineConfig) {
		c.MemoryTimeout = d
	}
}

// WithEntityFilter sets the entity filtering pipeline configuration.
func WithEntityFilter(cfg entityfilter.Config) Option {
	return func(c *EngineConfig) {
		c.Entities = cfg
	}
}

// WithPromptTemplate sets the system prompt template text.
func WithPromptTemplate(templateText string) Option {
	return func(c *EngineConfig) {
		c.PromptTemplate = templateText
	}
}

// WithAssistantName sets the assistant display name exposed to the template.
func WithAssistantName(name string) Option {
	return func(c *EngineConfig) {
		c.AssistantName = name
	}
}

// WithComposeContext gates whether entity context is composed into the
// system prompt at all. When off the template text is rendered without an
// entity snapshot.
func WithComposeContext(enabled bool) Option {
	return func(c *EngineConfig) {
		c.ComposeContext = enabled
	}
}

// WithExtraParam forwards an additional sampling parameter verbatim in the
// completion request body, e.g. top_p.
func WithExtraParam(key string, value json.RawMessage) Option {
	return func(c *EngineConfig) {
		if c.Extra == nil {
			c.Extra = make(map[string]json.RawMessage)
		}
		c.Extra[key] = value
	}
}

// WithHealthProbe configures the periodic upstream probe started by Start.
func WithHealthProbe(cfg healthcheck.Config) Option {
	return func(c *EngineConfig) {
		c.Health = cfg
	}
}

// WithValidateConnection makes New perform one upstream probe and fail fast
// on authentication or connectivity errors.
func WithValidateConnection(enabled bool) Option {
	return func(c *EngineConfig) {
		c.ValidateConnection = enabled
	}
}

// WithIdentityCacheTTL bounds how long resolved user display names are
// cached between turns.
func WithIdentityCacheTTL(d time.Duration) Option {
	return func(c *EngineConfig) {
		c.IdentityCacheTTL = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *observability.Logger) Option {
	return func(c *EngineConfig) {
		c.Logger = logger
	}
}

// Package memgate provides bounded, time-expiring conversation memory and
// request composition for chat-completion assistants.
//
// It keeps one history per user, injects environment context into the system
// prompt, and dispatches the merged conversation to an OpenAI-compatible
// chat-completion endpoint.
//
// Memgate can be used in two modes:
//   - Library Mode: embed the Engine in your Go application
//   - Gateway Mode: run cmd/server as a standalone HTTP front-end
//
// Basic usage:
//
//	engine, err := memgate.New(
//	    memgate.WithUpstream(memgate.UpstreamConfig{
//	        APIKey: os.Getenv("MAMMOUTH_API_KEY"),
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	result, err := engine.HandleTurn(ctx, memgate.TurnRequest{
//	    Query:  "Allume la lumière du salon",
//	    UserID: "user-1",
//	})
package memgate

import (
	"github.com/blueberrycongee/memgate/internal/completion"
	"github.com/blueberrycongee/memgate/internal/entityfilter"
	"github.com/blueberrycongee/memgate/internal/healthcheck"
	"github.com/blueberrycongee/memgate/pkg/errors"
	"github.com/blueberrycongee/memgate/pkg/types"
)

// Version is the current version of memgate.
const Version = "1.0.0"

// Re-export core types for convenience, so callers can use memgate.Message
// instead of types.Message.
type (
	// Message is a single conversation message.
	Message = types.Message

	// EntityState is a point-in-time environment entity snapshot entry.
	EntityState = types.EntityState

	// FilteredEntities is the reduced, domain-grouped entity set exposed
	// to the system prompt.
	FilteredEntities = types.FilteredEntities

	// TurnError is the typed error returned for failed turns.
	TurnError = errors.TurnError

	// UpstreamConfig configures the chat-completion endpoint.
	UpstreamConfig = completion.Config

	// EntityFilterConfig configures the entity filtering pipeline.
	EntityFilterConfig = entityfilter.Config

	// HealthConfig configures the periodic upstream probe.
	HealthConfig = healthcheck.Config

	// HealthStatus is a snapshot of upstream health.
	HealthStatus = healthcheck.Status
)

// Message role constants.
const (
	RoleSystem    = types.RoleSystem
	RoleUser      = types.RoleUser
	RoleAssistant = types.RoleAssistant
)

// Error type constants for use with errors.IsType.
const (
	ErrTypeAuthentication = errors.TypeAuthentication
	ErrTypeConnectivity   = errors.TypeConnectivity
	ErrTypeTimeout        = errors.TypeTimeout
	ErrTypeProtocol       = errors.TypeProtocol
	ErrTypeTemplate       = errors.TypeTemplate
	ErrTypeUpstream       = errors.TypeUpstream
)

// IsErrorType reports whether err is a TurnError of the given type.
func IsErrorType(err error, errType string) bool {
	return errors.IsType(err, errType)
}

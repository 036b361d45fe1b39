// Package entityfilter selects the bounded subset of environment entities
// exposed to the system prompt. Filtering is a pure function of the snapshot,
// the query text, and the configuration.
package entityfilter

import (
	"strings"

	"github.com/blueberrycongee/memgate/pkg/types"
)

// Sentinel states reported by the environment for entities that currently
// have no usable value.
const (
	stateUnknown     = "unknown"
	stateUnavailable = "unavailable"
)

// Config controls the filtering pipeline.
type Config struct {
	// AllowedDomains is the domain allow-list. Entities outside it never
	// reach the prompt.
	AllowedDomains []string

	// ExcludeAreas drops entities assigned to any of these area IDs.
	ExcludeAreas []string

	// MaxEntities caps how many entities survive, preserving snapshot order.
	MaxEntities int

	// SmartFiltering narrows the result to domains mentioned in the query,
	// as long as the narrowed set is non-empty.
	SmartFiltering bool

	// MinimalAttributes strips device_class from the reduced attribute set.
	MinimalAttributes bool
}

// DefaultConfig returns the default filtering configuration.
func DefaultConfig() Config {
	return Config{
		AllowedDomains: []string{"light", "switch", "sensor", "binary_sensor", "climate", "cover"},
		MaxEntities:    100,
		SmartFiltering: true,
	}
}

// Filter applies the configured pipeline to a snapshot.
type Filter struct {
	allowedDomains map[string]struct{}
	excludeAreas   map[string]struct{}
	maxEntities    int
	smart          bool
	minimal        bool
}

// New builds a Filter from config.
func New(cfg Config) *Filter {
	f := &Filter{
		allowedDomains: make(map[string]struct{}, len(cfg.AllowedDomains)),
		excludeAreas:   make(map[string]struct{}, len(cfg.ExcludeAreas)),
		maxEntities:    cfg.MaxEntities,
		smart:          cfg.SmartFiltering,
		minimal:        cfg.MinimalAttributes,
	}
	for _, d := range cfg.AllowedDomains {
		f.allowedDomains[d] = struct{}{}
	}
	for _, a := range cfg.ExcludeAreas {
		f.excludeAreas[a] = struct{}{}
	}
	return f
}

// Apply runs the pipeline over the snapshot and returns the reduced,
// domain-grouped result. It always returns a usable (possibly empty) set.
func (f *Filter) Apply(entities []types.EntityState, query string) types.FilteredEntities {
	working := make([]types.EntityState, 0, len(entities))
	for _, e := range entities {
		if _, excluded := f.excludeAreas[e.AreaID]; excluded {
			continue
		}
		if _, allowed := f.allowedDomains[e.Domain]; !allowed {
			continue
		}
		if e.State == stateUnknown || e.State == stateUnavailable {
			continue
		}
		working = append(working, e)
	}

	if f.smart {
		if narrowed := narrowByQuery(working, query); len(narrowed) > 0 {
			working = narrowed
		}
	}

	if f.maxEntities > 0 && len(working) > f.maxEntities {
		working = working[:f.maxEntities]
	}

	out := types.FilteredEntities{
		ByDomain: make(map[string][]types.FilteredEntity),
		Total:    len(working),
	}
	for _, e := range working {
		fe := types.FilteredEntity{
			EntityID: e.EntityID,
			Name:     e.Name,
			State:    e.State,
			Unit:     e.Unit,
		}
		if !f.minimal && e.DeviceClass != "" {
			fe.DeviceClass = e.DeviceClass
		}
		if _, seen := out.ByDomain[e.Domain]; !seen {
			out.Domains = append(out.Domains, e.Domain)
		}
		out.ByDomain[e.Domain] = append(out.ByDomain[e.Domain], fe)
	}
	return out
}

// narrowByQuery keeps only entities whose domain is mentioned in the query.
// An empty result means the keywords over-narrowed; the caller keeps the
// broader set instead.
func narrowByQuery(entities []types.EntityState, query string) []types.EntityState {
	relevant := relevantDomains(query)
	if len(relevant) == 0 {
		return nil
	}

	var narrowed []types.EntityState
	for _, e := range entities {
		if _, ok := relevant[e.Domain]; ok {
			narrowed = append(narrowed, e)
		}
	}
	return narrowed
}

// relevantDomains tokenizes the query against the keyword table with
// case-insensitive substring matching.
func relevantDomains(query string) map[string]struct{} {
	q := strings.ToLower(query)
	if q == "" {
		return nil
	}

	relevant := make(map[string]struct{})
	for domain, keywords := range domainKeywords {
		for _, kw := range keywords {
			if strings.Contains(q, kw) {
				relevant[domain] = struct{}{}
				break
			}
		}
	}
	return relevant
}

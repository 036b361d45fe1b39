package types

// EntityState is a point-in-time snapshot of a single environment entity.
// It is owned by the external environment provider; the engine only reads it.
type EntityState struct {
	EntityID    string `json:"entity_id"`
	Domain      string `json:"domain"`
	Name        string `json:"name"`
	State       string `json:"state"`
	Unit        string `json:"unit,omitempty"`
	DeviceClass string `json:"device_class,omitempty"`
	AreaID      string `json:"area_id,omitempty"`
}

// FilteredEntity is the reduced attribute set exposed to the prompt.
// DeviceClass is only populated when minimal attribute mode is off.
type FilteredEntity struct {
	EntityID    string `json:"entity_id"`
	Name        string `json:"name"`
	State       string `json:"state"`
	Unit        string `json:"unit,omitempty"`
	DeviceClass string `json:"device_class,omitempty"`
}

// FilteredEntities groups filtered entities by domain. Domains preserves the
// first-occurrence order of each domain in the source snapshot. Total is the
// number of entities that survived filtering and the cardinality cap.
type FilteredEntities struct {
	ByDomain map[string][]FilteredEntity
	Domains  []string
	Total    int
}

// Empty reports whether no entities survived filtering.
func (f FilteredEntities) Empty() bool {
	return f.Total == 0
}

// DomainGroup pairs a domain with its filtered entities.
type DomainGroup struct {
	Domain   string
	Entities []FilteredEntity
}

// Groups returns the grouped entities in first-occurrence domain order,
// suitable for ordered template iteration.
func (f FilteredEntities) Groups() []DomainGroup {
	groups := make([]DomainGroup, 0, len(f.Domains))
	for _, d := range f.Domains {
		groups = append(groups, DomainGroup{Domain: d, Entities: f.ByDomain[d]})
	}
	return groups
}

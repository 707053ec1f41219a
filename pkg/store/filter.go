package store

import (
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
)

// FilterKind tells a Reader which relation a Filter selects.
type FilterKind uint8

const (
	// FilterAll is a conjunction of its children. Without children it
	// matches every edition.
	FilterAll FilterKind = iota
	FilterEditionID
	FilterEntityID
	FilterOutgoingLinks
	FilterIncomingLinks
	FilterLeftEntity
	FilterRightEntity
	FilterLatest
	FilterEntityType
	FilterOwnedBy
	FilterArchived
)

// Filter selects entity editions. It is an immutable value built with the
// For* constructors and interpreted by a Reader.
type Filter struct {
	kind       FilterKind
	editionID  identifier.EntityEditionID
	entityID   identifier.EntityID
	entityType identifier.VersionedURI
	ownedBy    identifier.OwnedByID
	archived   bool
	children   []Filter
}

// ForEntityByEditionID selects exactly one edition.
func ForEntityByEditionID(id identifier.EntityEditionID) Filter {
	return Filter{kind: FilterEditionID, editionID: id}
}

// ForEntityByEntityID selects every edition of an entity, current or not.
func ForEntityByEntityID(id identifier.EntityID) Filter {
	return Filter{kind: FilterEntityID, entityID: id}
}

// ForOutgoingLinkByEntityID selects the current link entities whose left
// endpoint is id.
func ForOutgoingLinkByEntityID(id identifier.EntityID) Filter {
	return Filter{kind: FilterOutgoingLinks, entityID: id}
}

// ForIncomingLinkByEntityID selects the current link entities whose right
// endpoint is id.
func ForIncomingLinkByEntityID(id identifier.EntityID) Filter {
	return Filter{kind: FilterIncomingLinks, entityID: id}
}

// ForLeftEntityByEntityID selects the current editions of the left endpoint
// of the link entity id.
func ForLeftEntityByEntityID(id identifier.EntityID) Filter {
	return Filter{kind: FilterLeftEntity, entityID: id}
}

// ForRightEntityByEntityID selects the current editions of the right
// endpoint of the link entity id.
func ForRightEntityByEntityID(id identifier.EntityID) Filter {
	return Filter{kind: FilterRightEntity, entityID: id}
}

// ForLatestEntities selects the editions whose transaction time is still
// open.
func ForLatestEntities() Filter {
	return Filter{kind: FilterLatest}
}

func ForEntitiesByType(uri identifier.VersionedURI) Filter {
	return Filter{kind: FilterEntityType, entityType: uri}
}

func ForEntitiesOwnedBy(owner identifier.OwnedByID) Filter {
	return Filter{kind: FilterOwnedBy, ownedBy: owner}
}

func ForArchived(archived bool) Filter {
	return Filter{kind: FilterArchived, archived: archived}
}

// All combines filters with AND. Nested conjunctions are flattened.
func All(filters ...Filter) Filter {
	children := make([]Filter, 0, len(filters))
	for _, f := range filters {
		if f.kind == FilterAll {
			children = append(children, f.children...)
			continue
		}
		children = append(children, f)
	}
	return Filter{kind: FilterAll, children: children}
}

func (f Filter) Kind() FilterKind                      { return f.kind }
func (f Filter) EditionID() identifier.EntityEditionID { return f.editionID }
func (f Filter) EntityID() identifier.EntityID         { return f.entityID }
func (f Filter) EntityType() identifier.VersionedURI   { return f.entityType }
func (f Filter) OwnedByID() identifier.OwnedByID       { return f.ownedBy }
func (f Filter) Archived() bool                        { return f.archived }
func (f Filter) Filters() []Filter                     { return f.children }

// MatchesEverything reports whether f is a conjunction without children.
func (f Filter) MatchesEverything() bool {
	return f.kind == FilterAll && len(f.children) == 0
}

func (f Filter) String() string {
	switch f.kind {
	case FilterAll:
		if len(f.children) == 0 {
			return "all"
		}
		parts := make([]string, 0, len(f.children))
		for _, c := range f.children {
			parts = append(parts, c.String())
		}
		return "(" + strings.Join(parts, " and ") + ")"
	case FilterEditionID:
		return fmt.Sprintf("edition=%s", f.editionID)
	case FilterEntityID:
		return fmt.Sprintf("entity=%s", f.entityID)
	case FilterOutgoingLinks:
		return fmt.Sprintf("outgoing_links=%s", f.entityID)
	case FilterIncomingLinks:
		return fmt.Sprintf("incoming_links=%s", f.entityID)
	case FilterLeftEntity:
		return fmt.Sprintf("left_entity=%s", f.entityID)
	case FilterRightEntity:
		return fmt.Sprintf("right_entity=%s", f.entityID)
	case FilterLatest:
		return "latest"
	case FilterEntityType:
		return fmt.Sprintf("type=%s", f.entityType)
	case FilterOwnedBy:
		return fmt.Sprintf("owned_by=%s", f.ownedBy)
	case FilterArchived:
		return fmt.Sprintf("archived=%t", f.archived)
	default:
		return fmt.Sprintf("FilterKind(%d)", uint8(f.kind))
	}
}

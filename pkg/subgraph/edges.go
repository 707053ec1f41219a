package subgraph

import (
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
)

// EdgeKind enumerates the relations the traversal follows.
type EdgeKind uint8

const (
	// IsOfType connects an entity to its entity type.
	IsOfType EdgeKind = iota + 1
	// HasLeftEntity connects a link entity to its left endpoint.
	HasLeftEntity
	// HasRightEntity connects a link entity to its right endpoint.
	HasRightEntity
)

func (k EdgeKind) String() string {
	switch k {
	case IsOfType:
		return "IS_OF_TYPE"
	case HasLeftEntity:
		return "HAS_LEFT_ENTITY"
	case HasRightEntity:
		return "HAS_RIGHT_ENTITY"
	default:
		return fmt.Sprintf("EdgeKind(%d)", uint8(k))
	}
}

func (k EdgeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Endpoint is the right-hand side of an edge: an entity at a point in time or
// an ontology type edition.
type Endpoint struct {
	entity   identifier.EntityIDAndTimestamp
	ontology identifier.OntologyTypeEditionID
	isEntity bool
}

func EntityEndpoint(id identifier.EntityIDAndTimestamp) Endpoint {
	return Endpoint{entity: id, isEntity: true}
}

func OntologyEndpoint(id identifier.OntologyTypeEditionID) Endpoint {
	return Endpoint{ontology: id}
}

// Entity returns the entity endpoint and whether the endpoint is one.
func (e Endpoint) Entity() (identifier.EntityIDAndTimestamp, bool) {
	return e.entity, e.isEntity
}

// Ontology returns the ontology endpoint and whether the endpoint is one.
func (e Endpoint) Ontology() (identifier.OntologyTypeEditionID, bool) {
	return e.ontology, !e.isEntity
}

func (e Endpoint) MarshalJSON() ([]byte, error) {
	if e.isEntity {
		return json.Marshal(e.entity)
	}
	return json.Marshal(e.ontology)
}

// OutwardEdge is an edge seen from its source. Reversed means the stored
// relation points the other way, e.g. (HasLeftEntity, reversed) on an entity
// says "this entity is the left endpoint of a link".
type OutwardEdge struct {
	Kind          EdgeKind `json:"kind"`
	Reversed      bool     `json:"reversed"`
	RightEndpoint Endpoint `json:"rightEndpoint"`
}

// Edge is an outward edge anchored at an entity edition.
type Edge struct {
	Source      identifier.EntityEditionID `json:"source"`
	OutwardEdge OutwardEdge                `json:"outwardEdge"`
}

// NewIsOfTypeEdge builds the edge from an entity to its type.
func NewIsOfTypeEdge(source identifier.EntityEditionID, entityType identifier.OntologyTypeEditionID) Edge {
	return Edge{
		Source: source,
		OutwardEdge: OutwardEdge{
			Kind:          IsOfType,
			RightEndpoint: OntologyEndpoint(entityType),
		},
	}
}

// NewKnowledgeGraphEdge builds an entity-to-entity edge.
func NewKnowledgeGraphEdge(
	source identifier.EntityEditionID,
	kind EdgeKind,
	reversed bool,
	target identifier.EntityIDAndTimestamp,
) Edge {
	return Edge{
		Source: source,
		OutwardEdge: OutwardEdge{
			Kind:          kind,
			Reversed:      reversed,
			RightEndpoint: EntityEndpoint(target),
		},
	}
}

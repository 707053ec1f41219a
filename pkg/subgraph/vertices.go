package subgraph

import (
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/chronograph/pkg/knowledge"
	"github.com/OFFIS-RIT/chronograph/pkg/ontology"
)

// VertexKind tags the variant held by a Vertex.
type VertexKind uint8

const (
	EntityVertex VertexKind = iota + 1
	EntityTypeVertex
)

func (k VertexKind) String() string {
	switch k {
	case EntityVertex:
		return "entity"
	case EntityTypeVertex:
		return "entityType"
	default:
		return fmt.Sprintf("VertexKind(%d)", uint8(k))
	}
}

// Vertex is a materialized graph element. Exactly the field matching Kind is
// set.
type Vertex struct {
	Kind       VertexKind
	Entity     *knowledge.Entity
	EntityType *ontology.Record[ontology.EntityType]
}

func NewEntityVertex(e knowledge.Entity) Vertex {
	return Vertex{Kind: EntityVertex, Entity: &e}
}

func NewEntityTypeVertex(r ontology.Record[ontology.EntityType]) Vertex {
	return Vertex{Kind: EntityTypeVertex, EntityType: &r}
}

func (v Vertex) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case EntityVertex:
		return json.Marshal(struct {
			Kind  VertexKind        `json:"kind"`
			Inner *knowledge.Entity `json:"inner"`
		}{v.Kind, v.Entity})
	case EntityTypeVertex:
		return json.Marshal(struct {
			Kind  VertexKind                            `json:"kind"`
			Inner *ontology.Record[ontology.EntityType] `json:"inner"`
		}{v.Kind, v.EntityType})
	default:
		return nil, fmt.Errorf("vertex has no kind")
	}
}

func (k VertexKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

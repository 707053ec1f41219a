package subgraph

import (
	"cmp"
	"encoding/json"
	"slices"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/knowledge"
	"github.com/OFFIS-RIT/chronograph/pkg/ontology"
)

// Subgraph accumulates the result of one structural query. It is not safe
// for concurrent use; every query owns its own instance.
type Subgraph struct {
	KnowledgeGraph map[identifier.EntityEditionID]Vertex
	Ontology       map[identifier.OntologyTypeEditionID]Vertex
	Edges          map[Edge]struct{}
	Roots          map[identifier.GraphElementEditionID]struct{}
	Depths         GraphResolveDepths
}

func New(depths GraphResolveDepths) *Subgraph {
	return &Subgraph{
		KnowledgeGraph: make(map[identifier.EntityEditionID]Vertex),
		Ontology:       make(map[identifier.OntologyTypeEditionID]Vertex),
		Edges:          make(map[Edge]struct{}),
		Roots:          make(map[identifier.GraphElementEditionID]struct{}),
		Depths:         depths,
	}
}

// InsertEntity stores e as a vertex unless one with the same edition id is
// already present. It reports whether the vertex was added.
func (s *Subgraph) InsertEntity(e knowledge.Entity) bool {
	id := e.EditionID()
	if _, ok := s.KnowledgeGraph[id]; ok {
		return false
	}
	s.KnowledgeGraph[id] = NewEntityVertex(e)
	return true
}

// InsertEntityType stores r as an ontology vertex unless present.
func (s *Subgraph) InsertEntityType(r ontology.Record[ontology.EntityType]) bool {
	id := identifier.NewOntologyTypeEditionID(r.Record.ID())
	if _, ok := s.Ontology[id]; ok {
		return false
	}
	s.Ontology[id] = NewEntityTypeVertex(r)
	return true
}

func (s *Subgraph) Entity(id identifier.EntityEditionID) (*knowledge.Entity, bool) {
	v, ok := s.KnowledgeGraph[id]
	if !ok || v.Kind != EntityVertex {
		return nil, false
	}
	return v.Entity, true
}

func (s *Subgraph) EntityType(id identifier.OntologyTypeEditionID) (*ontology.Record[ontology.EntityType], bool) {
	v, ok := s.Ontology[id]
	if !ok || v.Kind != EntityTypeVertex {
		return nil, false
	}
	return v.EntityType, true
}

func (s *Subgraph) InsertEdge(e Edge) {
	s.Edges[e] = struct{}{}
}

func (s *Subgraph) HasEdge(e Edge) bool {
	_, ok := s.Edges[e]
	return ok
}

func (s *Subgraph) InsertRoot(id identifier.GraphElementEditionID) {
	s.Roots[id] = struct{}{}
}

// VertexCount counts vertices of both graph kinds.
func (s *Subgraph) VertexCount() int {
	return len(s.KnowledgeGraph) + len(s.Ontology)
}

// SortedEdges returns the edges in a stable order: by source, then kind,
// direction and target.
func (s *Subgraph) SortedEdges() []Edge {
	edges := make([]Edge, 0, len(s.Edges))
	for e := range s.Edges {
		edges = append(edges, e)
	}
	slices.SortFunc(edges, compareEdges)
	return edges
}

// SortedRoots returns the roots ordered by their string form.
func (s *Subgraph) SortedRoots() []identifier.GraphElementEditionID {
	roots := make([]identifier.GraphElementEditionID, 0, len(s.Roots))
	for r := range s.Roots {
		roots = append(roots, r)
	}
	slices.SortFunc(roots, func(a, b identifier.GraphElementEditionID) int {
		return cmp.Compare(a.String(), b.String())
	})
	return roots
}

// MarshalJSON renders a snapshot. Object keys are sorted by encoding/json and
// edges and roots are sorted here, so equal subgraphs encode to equal bytes.
func (s *Subgraph) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Roots    []identifier.GraphElementEditionID `json:"roots"`
		Vertices struct {
			KnowledgeGraph map[identifier.EntityEditionID]Vertex       `json:"knowledgeGraph"`
			Ontology       map[identifier.OntologyTypeEditionID]Vertex `json:"ontology"`
		} `json:"vertices"`
		Edges  []Edge             `json:"edges"`
		Depths GraphResolveDepths `json:"depths"`
	}{
		Roots: s.SortedRoots(),
		Vertices: struct {
			KnowledgeGraph map[identifier.EntityEditionID]Vertex       `json:"knowledgeGraph"`
			Ontology       map[identifier.OntologyTypeEditionID]Vertex `json:"ontology"`
		}{s.KnowledgeGraph, s.Ontology},
		Edges:  s.SortedEdges(),
		Depths: s.Depths,
	})
}

func compareEdges(a, b Edge) int {
	if c := cmp.Compare(a.Source.String(), b.Source.String()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.OutwardEdge.Kind, b.OutwardEdge.Kind); c != 0 {
		return c
	}
	if a.OutwardEdge.Reversed != b.OutwardEdge.Reversed {
		if a.OutwardEdge.Reversed {
			return 1
		}
		return -1
	}
	return compareEndpoints(a.OutwardEdge.RightEndpoint, b.OutwardEdge.RightEndpoint)
}

func compareEndpoints(a, b Endpoint) int {
	ae, aIsEntity := a.Entity()
	be, bIsEntity := b.Entity()
	switch {
	case aIsEntity && bIsEntity:
		if c := cmp.Compare(ae.BaseID.String(), be.BaseID.String()); c != 0 {
			return c
		}
		return ae.Timestamp.Compare(be.Timestamp)
	case aIsEntity:
		return -1
	case bIsEntity:
		return 1
	}
	ao, _ := a.Ontology()
	bo, _ := b.Ontology()
	return cmp.Compare(ao.String(), bo.String())
}

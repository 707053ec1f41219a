package store

import (
	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/subgraph"
)

type DependencyStatus uint8

const (
	// Unresolved means the element has to be expanded with the depths that
	// were passed in.
	Unresolved DependencyStatus = iota
	// Resolved means an earlier expansion already covered the request.
	Resolved
)

func (s DependencyStatus) String() string {
	if s == Resolved {
		return "resolved"
	}
	return "unresolved"
}

// DependencyMap remembers the largest resolve depths each element was
// expanded with during one query.
type DependencyMap[K comparable] struct {
	depths map[K]subgraph.GraphResolveDepths
}

func NewDependencyMap[K comparable]() *DependencyMap[K] {
	return &DependencyMap[K]{depths: make(map[K]subgraph.GraphResolveDepths)}
}

// Insert records a visit of id with depths. A visit that asks for nothing
// beyond what was recorded is Resolved; otherwise the recorded depths grow to
// the component-wise maximum and the visit is Unresolved.
func (m *DependencyMap[K]) Insert(id K, depths subgraph.GraphResolveDepths) DependencyStatus {
	prev, ok := m.depths[id]
	if ok && prev.Covers(depths) {
		return Resolved
	}
	if ok {
		depths = prev.Max(depths)
	}
	m.depths[id] = depths
	return Unresolved
}

// Depths returns the recorded depths for id.
func (m *DependencyMap[K]) Depths(id K) (subgraph.GraphResolveDepths, bool) {
	d, ok := m.depths[id]
	return d, ok
}

func (m *DependencyMap[K]) Len() int {
	return len(m.depths)
}

// DependencyContext is the per-query memo for both graph kinds. It must not
// be shared between queries.
type DependencyContext struct {
	Knowledge *DependencyMap[identifier.EntityEditionID]
	Ontology  *DependencyMap[identifier.OntologyTypeEditionID]

	// earliest memoizes the earliest decision time per entity. Editions do
	// not change within one query, so the value is looked up once.
	earliest map[identifier.EntityID]identifier.Timestamp
}

func NewDependencyContext() *DependencyContext {
	return &DependencyContext{
		Knowledge: NewDependencyMap[identifier.EntityEditionID](),
		Ontology:  NewDependencyMap[identifier.OntologyTypeEditionID](),
		earliest:  make(map[identifier.EntityID]identifier.Timestamp),
	}
}

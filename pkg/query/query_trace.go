package query

import (
	"sort"
	"sync"
)

type TraceEventKind string

const (
	TraceEventReadEntities     TraceEventKind = "read_entities"
	TraceEventReadVertex       TraceEventKind = "read_vertex"
	TraceEventReadEntityType   TraceEventKind = "read_entity_type"
	TraceEventExpandedEntity   TraceEventKind = "expanded_entity"
	TraceEventResolvedEntity   TraceEventKind = "resolved_entity"
	TraceEventEarliestDecision TraceEventKind = "earliest_decision_time"
)

// TraceEvent is an extensible event envelope for traversal tracing.
// Additive changes to this struct are backward compatible for implementers.
type TraceEvent struct {
	Kind TraceEventKind

	EditionIDs  []string
	EntityIDs   []string
	EntityTypes []string

	Filter string
	Count  int
	Error  string
}

// Tracer is a sink for traversal tracing events.
//
// Implementers can forward events to logs, telemetry, or custom post-processing
// pipelines.
type Tracer interface {
	Record(event TraceEvent)
}

// MultiTracer fan-outs trace events to multiple tracers.
type MultiTracer []Tracer

func (m MultiTracer) Record(event TraceEvent) {
	for _, t := range m {
		if t == nil {
			continue
		}
		t.Record(event)
	}
}

func RecordReadEntities(t Tracer, filter string, count int) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventReadEntities, Filter: filter, Count: count})
}

func RecordReadVertex(t Tracer, ids ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventReadVertex, EditionIDs: ids})
}

func RecordReadEntityType(t Tracer, types ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventReadEntityType, EntityTypes: types})
}

func RecordExpandedEntity(t Tracer, ids ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventExpandedEntity, EditionIDs: ids})
}

func RecordResolvedEntity(t Tracer, ids ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventResolvedEntity, EditionIDs: ids})
}

func RecordEarliestDecisionTime(t Tracer, ids ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventEarliestDecision, EntityIDs: ids})
}

// QueryTrace collects what a structural query read and expanded.
//
// It is used by graphctl to report traversal statistics and by tests to
// assert on deduplication.
//
// QueryTrace is safe for concurrent use.
type QueryTrace struct {
	mu sync.Mutex

	reads           int
	readVertexIDs   map[string]int
	readEntityTypes map[string]int
	expandedIDs     map[string]int
	resolvedIDs     map[string]int
	earliestLookups map[string]int
}

type QueryTraceSnapshot struct {
	Reads           int
	ReadVertexIDs   []string
	ReadEntityTypes []string
	ExpandedIDs     []string
	Resolved        int
	EarliestLookups int

	// DuplicateVertexReads lists edition ids that were read more than once.
	DuplicateVertexReads []string
}

func NewQueryTrace() *QueryTrace {
	return &QueryTrace{
		readVertexIDs:   make(map[string]int),
		readEntityTypes: make(map[string]int),
		expandedIDs:     make(map[string]int),
		resolvedIDs:     make(map[string]int),
		earliestLookups: make(map[string]int),
	}
}

func (t *QueryTrace) Record(event TraceEvent) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case TraceEventReadEntities:
		t.reads++
	case TraceEventReadVertex:
		countInto(t.readVertexIDs, event.EditionIDs)
	case TraceEventReadEntityType:
		countInto(t.readEntityTypes, event.EntityTypes)
	case TraceEventExpandedEntity:
		countInto(t.expandedIDs, event.EditionIDs)
	case TraceEventResolvedEntity:
		countInto(t.resolvedIDs, event.EditionIDs)
	case TraceEventEarliestDecision:
		countInto(t.earliestLookups, event.EntityIDs)
	default:
		return
	}
}

func countInto(m map[string]int, ids []string) {
	for _, id := range ids {
		if id == "" {
			continue
		}
		m[id]++
	}
}

func (t *QueryTrace) Snapshot() QueryTraceSnapshot {
	if t == nil {
		return QueryTraceSnapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := QueryTraceSnapshot{
		Reads:           t.reads,
		ReadVertexIDs:   keys(t.readVertexIDs),
		ReadEntityTypes: keys(t.readEntityTypes),
		ExpandedIDs:     keys(t.expandedIDs),
	}
	for _, n := range t.resolvedIDs {
		s.Resolved += n
	}
	for _, n := range t.earliestLookups {
		s.EarliestLookups += n
	}
	for id, n := range t.readVertexIDs {
		if n > 1 {
			s.DuplicateVertexReads = append(s.DuplicateVertexReads, id)
		}
	}
	sort.Strings(s.DuplicateVertexReads)

	return s
}

func keys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

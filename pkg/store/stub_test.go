package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/knowledge"
	"github.com/OFFIS-RIT/chronograph/pkg/ontology"
)

var (
	testOwner    = identifier.OwnedByID(uuid.MustParse("00000000-0000-0000-0000-0000000000aa"))
	testTypeURI  = identifier.NewVersionedURI("https://example.com/types/entity-type/thing/", 1)
	testLinkType = identifier.NewVersionedURI("https://example.com/types/entity-type/knows/", 1)
)

func day(n int) identifier.Timestamp {
	return identifier.NewTimestamp(time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC))
}

func entityID(n byte) identifier.EntityID {
	return identifier.NewEntityID(testOwner, identifier.EntityUUID(uuid.UUID{15: n}))
}

// stubReader evaluates filters over an in-memory edition list and counts
// calls.
type stubReader struct {
	editions []knowledge.Entity
	types    map[identifier.OntologyTypeEditionID]ontology.Record[ontology.EntityType]
	nextID   int64

	readOne   map[identifier.EntityEditionID]int
	readMany  map[FilterKind]int
	typeReads map[identifier.OntologyTypeEditionID]int
	failOn    FilterKind
	failErr   error
}

func newStubReader() *stubReader {
	r := &stubReader{
		types:     make(map[identifier.OntologyTypeEditionID]ontology.Record[ontology.EntityType]),
		readOne:   make(map[identifier.EntityEditionID]int),
		readMany:  make(map[FilterKind]int),
		typeReads: make(map[identifier.OntologyTypeEditionID]int),
		failOn:    FilterKind(255),
	}
	for _, uri := range []identifier.VersionedURI{testTypeURI, testLinkType} {
		r.types[identifier.NewOntologyTypeEditionID(uri)] = ontology.Record[ontology.EntityType]{
			Record:   *ontology.NewEntityType(uri, "Thing"),
			IsLatest: true,
		}
	}
	return r
}

// addEditions stores one edition per decision start. Earlier editions get a
// closed transaction time, the last one stays current.
func (r *stubReader) addEditions(id identifier.EntityID, link *knowledge.LinkData, decisionStarts ...identifier.Timestamp) []knowledge.Entity {
	typeURI := testTypeURI
	if link != nil {
		typeURI = testLinkType
	}
	var out []knowledge.Entity
	for i, start := range decisionStarts {
		r.nextID++
		txStart := day(10 + i)
		txEnd := identifier.Timestamp{}
		if i < len(decisionStarts)-1 {
			txEnd = day(11 + i)
		}
		version := identifier.NewEntityVersion(
			identifier.NewDecisionTimespan(start, identifier.Timestamp{}),
			identifier.NewTransactionTimespan(txStart, txEnd),
		)
		e := knowledge.Entity{
			Properties: knowledge.EntityProperties{"n": fmt.Sprint(r.nextID)},
			LinkData:   link,
			Metadata: knowledge.NewEntityMetadata(
				identifier.NewEntityEditionID(id, identifier.EntityRecordID(r.nextID), version),
				typeURI,
				knowledge.ProvenanceMetadata{},
				false,
			),
		}
		r.editions = append(r.editions, e)
		out = append(out, e)
	}
	return out
}

func (r *stubReader) addEntity(n byte) identifier.EntityID {
	id := entityID(n)
	r.addEditions(id, nil, day(1))
	return id
}

func (r *stubReader) addLink(n byte, left, right identifier.EntityID) identifier.EntityID {
	id := entityID(n)
	r.addEditions(id, &knowledge.LinkData{LeftEntityID: left, RightEntityID: right}, day(1))
	return id
}

func (r *stubReader) current(id identifier.EntityID) knowledge.Entity {
	for _, e := range r.editions {
		if e.EntityID() == id && isCurrent(e) {
			return e
		}
	}
	panic("no current edition of " + id.String())
}

func isCurrent(e knowledge.Entity) bool {
	return e.EditionID().Version.TransactionTime.End.IsZero()
}

func (r *stubReader) matches(f Filter, e knowledge.Entity) bool {
	switch f.Kind() {
	case FilterAll:
		for _, c := range f.Filters() {
			if !r.matches(c, e) {
				return false
			}
		}
		return true
	case FilterEditionID:
		return e.EntityID() == f.EditionID().BaseID && e.EditionID().RecordID == f.EditionID().RecordID
	case FilterEntityID:
		return e.EntityID() == f.EntityID()
	case FilterOutgoingLinks:
		return isCurrent(e) && e.LinkData != nil && e.LinkData.LeftEntityID == f.EntityID()
	case FilterIncomingLinks:
		return isCurrent(e) && e.LinkData != nil && e.LinkData.RightEntityID == f.EntityID()
	case FilterLeftEntity, FilterRightEntity:
		if !isCurrent(e) {
			return false
		}
		for _, l := range r.editions {
			if l.EntityID() != f.EntityID() || l.LinkData == nil || !isCurrent(l) {
				continue
			}
			endpoint := l.LinkData.LeftEntityID
			if f.Kind() == FilterRightEntity {
				endpoint = l.LinkData.RightEntityID
			}
			if endpoint == e.EntityID() {
				return true
			}
		}
		return false
	case FilterLatest:
		return isCurrent(e)
	case FilterEntityType:
		return e.Metadata.EntityTypeID == f.EntityType()
	case FilterOwnedBy:
		return e.EntityID().OwnedByID == f.OwnedByID()
	case FilterArchived:
		return e.Metadata.Archived == f.Archived()
	}
	return false
}

func (r *stubReader) ReadEntities(_ context.Context, f Filter) ([]knowledge.Entity, error) {
	r.readMany[f.Kind()]++
	if f.Kind() == r.failOn {
		return nil, r.failErr
	}
	var out []knowledge.Entity
	for _, e := range r.editions {
		if r.matches(f, e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *stubReader) ReadEntity(ctx context.Context, f Filter) (knowledge.Entity, error) {
	if f.Kind() == FilterEditionID {
		r.readOne[f.EditionID()]++
	}
	if f.Kind() == r.failOn {
		return knowledge.Entity{}, r.failErr
	}
	var out []knowledge.Entity
	for _, e := range r.editions {
		if r.matches(f, e) {
			out = append(out, e)
		}
	}
	switch len(out) {
	case 0:
		return knowledge.Entity{}, NewQueryError(ErrNoMatch)
	case 1:
		return out[0], nil
	default:
		return knowledge.Entity{}, NewQueryError(ErrAmbiguousMatch)
	}
}

func (r *stubReader) ReadEntityType(_ context.Context, id identifier.OntologyTypeEditionID) (ontology.Record[ontology.EntityType], error) {
	r.typeReads[id]++
	record, ok := r.types[id]
	if !ok {
		return record, NewQueryError(ErrNoMatch)
	}
	return record, nil
}

// pushdownReader computes the earliest decision time itself.
type pushdownReader struct {
	*stubReader
	earliestCalls int
}

func (r *pushdownReader) EarliestDecisionTime(_ context.Context, id identifier.EntityID) (identifier.Timestamp, error) {
	r.earliestCalls++
	var earliest identifier.Timestamp
	for _, e := range r.editions {
		if e.EntityID() != id {
			continue
		}
		start := e.EditionID().Version.DecisionTime.Start
		if earliest.IsZero() || start.Before(earliest) {
			earliest = start
		}
	}
	return earliest, nil
}

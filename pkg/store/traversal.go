package store

import (
	"context"

	"github.com/samber/oops"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/knowledge"
	"github.com/OFFIS-RIT/chronograph/pkg/logger"
	"github.com/OFFIS-RIT/chronograph/pkg/query"
	"github.com/OFFIS-RIT/chronograph/pkg/subgraph"
)

// Resolver walks the neighbourhood of entities through a Reader and fills a
// Subgraph. A Resolver holds no per-query state and can be shared.
type Resolver struct {
	reader Reader
	tracer query.Tracer
}

type ResolverOption func(*Resolver)

func WithResolverTracer(t query.Tracer) ResolverOption {
	return func(r *Resolver) {
		r.tracer = t
	}
}

func NewResolver(reader Reader, opts ...ResolverOption) *Resolver {
	r := &Resolver{reader: reader}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// linkStep is one of the four entity-to-entity directions.
type linkStep struct {
	kind     subgraph.EdgeKind
	reversed bool
	budget   func(subgraph.GraphResolveDepths) uint8
	next     func(subgraph.GraphResolveDepths) subgraph.GraphResolveDepths
	filter   func(identifier.EntityID) Filter
	// linkOnly steps can only match when the source is a link entity.
	linkOnly bool
}

// linkSteps are expanded in this order after the type edge.
var linkSteps = [...]linkStep{
	{
		// the entity is the left endpoint of these links
		kind:     subgraph.HasLeftEntity,
		reversed: true,
		budget:   func(d subgraph.GraphResolveDepths) uint8 { return d.HasLeftEntity.Incoming },
		next:     subgraph.GraphResolveDepths.DecrementHasLeftEntityIncoming,
		filter:   ForOutgoingLinkByEntityID,
	},
	{
		// the entity is the right endpoint of these links
		kind:     subgraph.HasRightEntity,
		reversed: true,
		budget:   func(d subgraph.GraphResolveDepths) uint8 { return d.HasRightEntity.Incoming },
		next:     subgraph.GraphResolveDepths.DecrementHasRightEntityIncoming,
		filter:   ForIncomingLinkByEntityID,
	},
	{
		kind:     subgraph.HasLeftEntity,
		budget:   func(d subgraph.GraphResolveDepths) uint8 { return d.HasLeftEntity.Outgoing },
		next:     subgraph.GraphResolveDepths.DecrementHasLeftEntityOutgoing,
		filter:   ForLeftEntityByEntityID,
		linkOnly: true,
	},
	{
		kind:     subgraph.HasRightEntity,
		budget:   func(d subgraph.GraphResolveDepths) uint8 { return d.HasRightEntity.Outgoing },
		next:     subgraph.GraphResolveDepths.DecrementHasRightEntityOutgoing,
		filter:   ForRightEntityByEntityID,
		linkOnly: true,
	},
}

// TraverseEntity expands the edition id with the given depths. The vertex is
// read only if the subgraph does not hold it yet. The first read error aborts
// the traversal.
func (r *Resolver) TraverseEntity(
	ctx context.Context,
	id identifier.EntityEditionID,
	deps *DependencyContext,
	sg *subgraph.Subgraph,
	depths subgraph.GraphResolveDepths,
) error {
	if deps.Knowledge.Insert(id, depths) == Resolved {
		query.RecordResolvedEntity(r.tracer, id.String())
		return nil
	}

	entity, err := r.entityVertex(ctx, id, sg)
	if err != nil {
		return err
	}
	query.RecordExpandedEntity(r.tracer, id.String())

	if depths.IsOfType.Outgoing > 0 {
		typeID := entity.EntityTypeEditionID()
		sg.InsertEdge(subgraph.NewIsOfTypeEdge(id, typeID))
		if err := r.TraverseEntityType(ctx, typeID, deps, sg, depths.DecrementIsOfType()); err != nil {
			return err
		}
	}

	baseID := entity.EntityID()
	isLink := entity.IsLink()
	for _, step := range linkSteps {
		if step.budget(depths) == 0 || (step.linkOnly && !isLink) {
			continue
		}

		filter := step.filter(baseID)
		related, err := r.reader.ReadEntities(ctx, filter)
		if err != nil {
			return NewQueryError(oops.
				With("edition_id", id.String(), "filter", filter.String()).
				Wrapf(err, "could not read %s neighbours", step.kind))
		}
		query.RecordReadEntities(r.tracer, filter.String(), len(related))

		for _, target := range related {
			earliest, err := r.earliestDecisionTime(ctx, deps, target.EntityID())
			if err != nil {
				return err
			}

			sg.InsertEdge(subgraph.NewKnowledgeGraphEdge(
				id,
				step.kind,
				step.reversed,
				identifier.NewEntityIDAndTimestamp(target.EntityID(), earliest),
			))

			if err := r.TraverseEntity(ctx, target.EditionID(), deps, sg, step.next(depths)); err != nil {
				return err
			}
		}
	}

	logger.Debug("[Store][TraverseEntity] Expanded entity", "edition_id", id.String(), "edges", len(sg.Edges))
	return nil
}

// TraverseEntityType materializes an entity type vertex. Entity types have no
// further edges.
func (r *Resolver) TraverseEntityType(
	ctx context.Context,
	id identifier.OntologyTypeEditionID,
	deps *DependencyContext,
	sg *subgraph.Subgraph,
	depths subgraph.GraphResolveDepths,
) error {
	if deps.Ontology.Insert(id, depths) == Resolved {
		return nil
	}
	if _, ok := sg.EntityType(id); ok {
		return nil
	}

	record, err := r.reader.ReadEntityType(ctx, id)
	if err != nil {
		return NewQueryError(oops.With("entity_type_id", id.String()).Wrapf(err, "could not read entity type"))
	}
	query.RecordReadEntityType(r.tracer, id.String())
	sg.InsertEntityType(record)
	return nil
}

func (r *Resolver) entityVertex(
	ctx context.Context,
	id identifier.EntityEditionID,
	sg *subgraph.Subgraph,
) (*knowledge.Entity, error) {
	if entity, ok := sg.Entity(id); ok {
		return entity, nil
	}

	entity, err := r.reader.ReadEntity(ctx, ForEntityByEditionID(id))
	if err != nil {
		return nil, NewQueryError(oops.With("edition_id", id.String()).Wrapf(err, "could not read entity"))
	}
	query.RecordReadVertex(r.tracer, id.String())
	sg.InsertEntity(entity)

	stored, _ := sg.Entity(id)
	return stored, nil
}

// earliestDecisionTime returns the smallest decision time start over all
// editions of id. The result is kept in deps for the rest of the query.
func (r *Resolver) earliestDecisionTime(ctx context.Context, deps *DependencyContext, id identifier.EntityID) (identifier.Timestamp, error) {
	if ts, ok := deps.earliest[id]; ok {
		return ts, nil
	}
	ts, err := r.lookupEarliestDecisionTime(ctx, id)
	if err != nil {
		return identifier.Timestamp{}, err
	}
	if deps.earliest == nil {
		deps.earliest = make(map[identifier.EntityID]identifier.Timestamp)
	}
	deps.earliest[id] = ts
	return ts, nil
}

func (r *Resolver) lookupEarliestDecisionTime(ctx context.Context, id identifier.EntityID) (identifier.Timestamp, error) {
	query.RecordEarliestDecisionTime(r.tracer, id.String())

	if edt, ok := r.reader.(earliestDecisionTimer); ok {
		ts, err := edt.EarliestDecisionTime(ctx, id)
		if err != nil {
			return identifier.Timestamp{}, NewQueryError(oops.
				With("entity_id", id.String()).
				Wrapf(err, "could not compute earliest decision time"))
		}
		return ts, nil
	}

	editions, err := r.reader.ReadEntities(ctx, ForEntityByEntityID(id))
	if err != nil {
		return identifier.Timestamp{}, NewQueryError(oops.
			With("entity_id", id.String()).
			Wrapf(err, "could not read editions"))
	}
	if len(editions) == 0 {
		return identifier.Timestamp{}, NewQueryError(oops.
			With("entity_id", id.String()).
			Wrapf(ErrNoMatch, "entity has no editions"))
	}

	earliest := editions[0].EditionID().Version.DecisionTime.Start
	for _, e := range editions[1:] {
		if start := e.EditionID().Version.DecisionTime.Start; start.Before(earliest) {
			earliest = start
		}
	}
	return earliest, nil
}

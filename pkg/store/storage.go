package store

import (
	"context"

	"github.com/go-playground/validator"
	"github.com/samber/oops"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/knowledge"
	"github.com/OFFIS-RIT/chronograph/pkg/ontology"
	"github.com/OFFIS-RIT/chronograph/pkg/subgraph"
)

// EntityStore defines the write path and the structural query entry point
// for entities. Implementations return errors classified as ErrInsertion,
// ErrUpdate or ErrQuery.
type EntityStore interface {
	CreateEntity(ctx context.Context, params CreateEntityParams) (knowledge.EntityMetadata, error)
	UpdateEntity(ctx context.Context, params UpdateEntityParams) (knowledge.EntityMetadata, error)
	GetEntity(ctx context.Context, query StructuralQuery) (*subgraph.Subgraph, error)
}

// Reader is the read primitive the traversal is built on. Results of
// ReadEntities are ordered deterministically. ReadEntity fails with
// ErrNoMatch or ErrAmbiguousMatch unless exactly one edition matches.
type Reader interface {
	ReadEntities(ctx context.Context, filter Filter) ([]knowledge.Entity, error)
	ReadEntity(ctx context.Context, filter Filter) (knowledge.Entity, error)
	ReadEntityType(ctx context.Context, id identifier.OntologyTypeEditionID) (ontology.Record[ontology.EntityType], error)
}

// earliestDecisionTimer is implemented by readers that can compute the
// earliest decision time of an entity without returning every edition.
type earliestDecisionTimer interface {
	EarliestDecisionTime(ctx context.Context, id identifier.EntityID) (identifier.Timestamp, error)
}

// StructuralQuery selects root entities and the neighbourhood to resolve
// around them.
type StructuralQuery struct {
	Filter             Filter
	GraphResolveDepths subgraph.GraphResolveDepths
}

type CreateEntityParams struct {
	OwnedByID identifier.OwnedByID `validate:"required"`
	// EntityUUID is generated when nil.
	EntityUUID *identifier.EntityUUID
	// DecisionTime defaults to the transaction time when nil.
	DecisionTime *identifier.Timestamp
	UpdatedByID  identifier.UpdatedByID `validate:"required"`
	Archived     bool
	EntityTypeID identifier.VersionedURI
	Properties   knowledge.EntityProperties
	LinkData     *knowledge.LinkData
}

type UpdateEntityParams struct {
	EntityID     identifier.EntityID
	DecisionTime *identifier.Timestamp
	UpdatedByID  identifier.UpdatedByID `validate:"required"`
	Archived     bool
	EntityTypeID identifier.VersionedURI
	Properties   knowledge.EntityProperties
	LinkOrder    knowledge.EntityLinkOrder
}

var validate = validator.New()

// Validate checks the parameters and returns an insertion error on failure.
func (p CreateEntityParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return NewInsertionError(oops.With("owned_by_id", p.OwnedByID).Wrapf(err, "invalid create parameters"))
	}
	return nil
}

// Validate checks the parameters and returns an update error on failure.
func (p UpdateEntityParams) Validate() error {
	if err := validate.Struct(p); err != nil {
		return NewUpdateError(oops.With("entity_id", p.EntityID).Wrapf(err, "invalid update parameters"))
	}
	return nil
}

// EntityEventKind is the routing key of an entity change event.
type EntityEventKind string

const (
	EntityCreated EntityEventKind = "entity.created"
	EntityUpdated EntityEventKind = "entity.updated"
)

// EntityEvent is emitted after a write committed.
type EntityEvent struct {
	Kind     EntityEventKind          `json:"kind"`
	Metadata knowledge.EntityMetadata `json:"metadata"`
}

// EventSink receives entity change events. Publish errors never undo a write.
type EventSink interface {
	Publish(ctx context.Context, event EntityEvent) error
}

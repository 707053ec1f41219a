package store

import (
	"context"

	"github.com/samber/oops"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/logger"
	"github.com/OFFIS-RIT/chronograph/pkg/query"
	"github.com/OFFIS-RIT/chronograph/pkg/subgraph"
)

// GetEntity resolves a structural query against reader. Every matched entity
// becomes a root vertex and is traversed with the query depths. The subgraph
// and dependency context are private to this call.
func GetEntity(ctx context.Context, reader Reader, q StructuralQuery, opts ...ResolverOption) (*subgraph.Subgraph, error) {
	return NewResolver(reader, opts...).GetEntity(ctx, q)
}

func (r *Resolver) GetEntity(ctx context.Context, q StructuralQuery) (*subgraph.Subgraph, error) {
	sg := subgraph.New(q.GraphResolveDepths)
	deps := NewDependencyContext()

	roots, err := r.reader.ReadEntities(ctx, q.Filter)
	if err != nil {
		return nil, NewQueryError(oops.With("filter", q.Filter.String()).Wrapf(err, "could not read root entities"))
	}
	query.RecordReadEntities(r.tracer, q.Filter.String(), len(roots))

	for _, entity := range roots {
		id := entity.EditionID()
		sg.InsertEntity(entity)
		sg.InsertRoot(identifier.KnowledgeGraphEditionID(id))

		if err := r.TraverseEntity(ctx, id, deps, sg, q.GraphResolveDepths); err != nil {
			return nil, err
		}
	}

	logger.Debug("[Store][GetEntity] Resolved subgraph",
		"filter", q.Filter.String(),
		"roots", len(sg.Roots),
		"vertices", sg.VertexCount(),
		"edges", len(sg.Edges),
	)
	return sg, nil
}

package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/OFFIS-RIT/chronograph/pkg/logger"
	"github.com/OFFIS-RIT/chronograph/pkg/query"
	"github.com/OFFIS-RIT/chronograph/pkg/store"
	"github.com/OFFIS-RIT/chronograph/pkg/subgraph"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgxv5.TxOptions) (pgxv5.Tx, error)
}

// Store implements store.EntityStore and store.Reader on PostgreSQL. It is
// safe for concurrent use as long as the connection is, which holds for a
// pgxpool.Pool. Write transactions own their connection until commit or
// rollback.
type Store struct {
	conn   pgxIConn
	trace  query.Tracer
	events store.EventSink
	types  *typeVersionCache
}

var (
	_ store.EntityStore = (*Store)(nil)
	_ store.Reader      = (*Store)(nil)
)

type StoreOption func(*Store)

// WithTracer records traversal events of GetEntity.
func WithTracer(trace query.Tracer) StoreOption {
	return func(s *Store) {
		s.trace = trace
	}
}

// WithEventSink publishes an event after every committed write.
func WithEventSink(sink store.EventSink) StoreOption {
	return func(s *Store) {
		s.events = sink
	}
}

func NewStore(conn pgxIConn, opts ...StoreOption) *Store {
	s := &Store{
		conn:  conn,
		types: newTypeVersionCache(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

// GetEntity resolves q against this store.
func (s *Store) GetEntity(ctx context.Context, q store.StructuralQuery) (*subgraph.Subgraph, error) {
	return store.NewResolver(s, store.WithResolverTracer(s.trace)).GetEntity(ctx, q)
}

func (s *Store) publish(ctx context.Context, event store.EntityEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.Error("[Store][Publish] Failed to publish entity event",
			"kind", event.Kind,
			"edition_id", event.Metadata.EditionID.String(),
			"err", err,
		)
	}
}

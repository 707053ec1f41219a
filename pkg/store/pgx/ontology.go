package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/logger"
	"github.com/OFFIS-RIT/chronograph/pkg/ontology"
	"github.com/OFFIS-RIT/chronograph/pkg/store"
)

const (
	uniqueViolation      = "23505"
	serializationFailure = "40001"
)

// typeVersionCache memoizes the internal version id of entity types. Type
// versions are immutable once written, so entries never expire.
type typeVersionCache struct {
	cache   map[identifier.VersionedURI]uuid.UUID
	cacheMu sync.RWMutex
	group   singleflight.Group
}

func newTypeVersionCache() *typeVersionCache {
	return &typeVersionCache{cache: make(map[identifier.VersionedURI]uuid.UUID)}
}

func (c *typeVersionCache) get(uri identifier.VersionedURI) (uuid.UUID, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	id, ok := c.cache[uri]
	return id, ok
}

// resolve returns the version id of the entity type uri. Only successful
// lookups are cached.
func (c *typeVersionCache) resolve(ctx context.Context, conn pgxIConn, uri identifier.VersionedURI) (uuid.UUID, error) {
	if id, ok := c.get(uri); ok {
		return id, nil
	}

	result, err, _ := c.group.Do(uri.String(), func() (any, error) {
		if id, ok := c.get(uri); ok {
			return id, nil
		}

		var id uuid.UUID
		err := conn.QueryRow(ctx, selectEntityTypeVersionIDSQL, uri.BaseURI.String(), int64(uri.Version)).Scan(&id)
		if err != nil {
			if errors.Is(err, pgxv5.ErrNoRows) {
				return nil, store.ErrUnknownEntityType
			}
			return nil, err
		}

		c.cacheMu.Lock()
		c.cache[uri] = id
		c.cacheMu.Unlock()
		return id, nil
	})
	if err != nil {
		return uuid.Nil, oops.With("entity_type_id", uri.String()).Wrapf(err, "failed to resolve entity type")
	}
	return result.(uuid.UUID), nil
}

type CreateOntologyTypeParams struct {
	Type        ontology.DatabaseType  `validate:"required"`
	OwnedByID   identifier.OwnedByID   `validate:"required"`
	UpdatedByID identifier.UpdatedByID `validate:"required"`
}

// CreateOntologyType stores a new version of an ontology type. Writing a
// version that already exists fails with an insertion error.
func (s *Store) CreateOntologyType(ctx context.Context, params CreateOntologyTypeParams) (ontology.Metadata, error) {
	if params.Type == nil || params.OwnedByID == (identifier.OwnedByID{}) || params.UpdatedByID == (identifier.UpdatedByID{}) {
		return ontology.Metadata{}, store.NewInsertionError(fmt.Errorf("ontology type, owner and actor are required"))
	}

	uri := params.Type.ID()
	if uri.Version == 0 {
		return ontology.Metadata{}, store.NewInsertionError(oops.With("type_id", uri.String()).Errorf("ontology type has no id"))
	}
	schema, err := json.Marshal(params.Type)
	if err != nil {
		return ontology.Metadata{}, store.NewInsertionError(oops.With("type_id", uri.String()).Wrapf(err, "failed to encode ontology type"))
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return ontology.Metadata{}, store.NewInsertionError(err)
	}
	defer tx.Rollback(ctx)

	versionID := uuid.New()
	if _, err := tx.Exec(ctx, insertTypeIDSQL, versionID, uri.BaseURI.String(), int64(uri.Version)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ontology.Metadata{}, store.NewInsertionError(oops.With("type_id", uri.String()).Errorf("ontology type version already exists"))
		}
		return ontology.Metadata{}, store.NewInsertionError(oops.With("type_id", uri.String()).Wrapf(err, "failed to insert type id"))
	}
	_, err = tx.Exec(ctx, fmt.Sprintf(insertOntologyTypeSQL, params.Type.Table()),
		versionID, schema, params.OwnedByID.UUID(), params.UpdatedByID.UUID(),
	)
	if err != nil {
		return ontology.Metadata{}, store.NewInsertionError(oops.With("type_id", uri.String()).Wrapf(err, "failed to insert ontology type"))
	}

	if err := tx.Commit(ctx); err != nil {
		return ontology.Metadata{}, store.NewInsertionError(err)
	}

	logger.Debug("[Store][CreateOntologyType] Created ontology type", "type_id", uri.String(), "kind", params.Type.Kind())
	return ontology.Metadata{
		EditionID:   identifier.NewOntologyTypeEditionID(uri),
		OwnedByID:   params.OwnedByID,
		UpdatedByID: params.UpdatedByID,
	}, nil
}

const selectEntityTypeVersionIDSQL = `
SELECT t.version_id
FROM type_ids t
JOIN entity_types s ON s.version_id = t.version_id
WHERE t.base_uri = $1 AND t.version = $2;
`

const insertTypeIDSQL = `
INSERT INTO type_ids (version_id, base_uri, version)
VALUES ($1, $2, $3);
`

// %s is the ontology table of the type kind.
const insertOntologyTypeSQL = `
INSERT INTO %s (version_id, schema, owned_by_id, updated_by_id)
VALUES ($1, $2, $3, $4);
`

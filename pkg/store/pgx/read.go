package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/oops"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/knowledge"
	"github.com/OFFIS-RIT/chronograph/pkg/logger"
	"github.com/OFFIS-RIT/chronograph/pkg/ontology"
	"github.com/OFFIS-RIT/chronograph/pkg/store"
)

// ReadEntities returns every edition matching filter ordered by owner,
// entity and record id.
func (s *Store) ReadEntities(ctx context.Context, filter store.Filter) ([]knowledge.Entity, error) {
	return s.readEntities(ctx, filter, 0)
}

// ReadEntity returns the only edition matching filter.
func (s *Store) ReadEntity(ctx context.Context, filter store.Filter) (knowledge.Entity, error) {
	entities, err := s.readEntities(ctx, filter, 2)
	if err != nil {
		return knowledge.Entity{}, err
	}
	switch len(entities) {
	case 0:
		return knowledge.Entity{}, store.NewQueryError(oops.With("filter", filter.String()).Wrap(store.ErrNoMatch))
	case 1:
		return entities[0], nil
	default:
		return knowledge.Entity{}, store.NewQueryError(oops.With("filter", filter.String()).Wrap(store.ErrAmbiguousMatch))
	}
}

func (s *Store) readEntities(ctx context.Context, filter store.Filter, limit int) ([]knowledge.Entity, error) {
	cond, args, err := compileFilter(filter)
	if err != nil {
		return nil, store.NewQueryError(err)
	}
	sql := selectEntitiesSQL + "WHERE " + cond + "\nORDER BY e.owned_by_id, e.entity_uuid, e.entity_record_id"
	if limit > 0 {
		sql += fmt.Sprintf("\nLIMIT %d", limit)
	}

	rows, err := s.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, store.NewQueryError(oops.With("filter", filter.String()).Wrapf(err, "failed to query entities"))
	}
	defer rows.Close()

	var entities []knowledge.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, store.NewQueryError(oops.With("filter", filter.String()).Wrapf(err, "failed to scan entity row"))
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewQueryError(oops.With("filter", filter.String()).Wrapf(err, "failed to read entity rows"))
	}

	logger.Debug("[Store][ReadEntities] Read entities", "filter", filter.String(), "count", len(entities))
	return entities, nil
}

func scanEntity(row pgxv5.Row) (knowledge.Entity, error) {
	var (
		ownedByID, entityUUID     uuid.UUID
		recordID                  int64
		decision, transaction     tstzrange
		baseURI                   string
		version                   int64
		rawProperties             []byte
		updatedByID               uuid.UUID
		archived                  bool
		leftOwner, leftEntity     *uuid.UUID
		rightOwner, rightEntity   *uuid.UUID
		leftToRight, rightToLeft  *int32
	)
	if err := row.Scan(
		&ownedByID, &entityUUID, &recordID,
		&decision, &transaction,
		&baseURI, &version,
		&rawProperties, &updatedByID, &archived,
		&leftOwner, &leftEntity, &rightOwner, &rightEntity,
		&leftToRight, &rightToLeft,
	); err != nil {
		return knowledge.Entity{}, err
	}

	entityVersion, err := versionFromRanges(decision, transaction)
	if err != nil {
		return knowledge.Entity{}, err
	}
	base, err := identifier.ParseBaseURI(baseURI)
	if err != nil {
		return knowledge.Entity{}, err
	}
	var properties knowledge.EntityProperties
	if err := json.Unmarshal(rawProperties, &properties); err != nil {
		return knowledge.Entity{}, fmt.Errorf("failed to decode properties: %w", err)
	}

	entityID := identifier.NewEntityID(identifier.OwnedByID(ownedByID), identifier.EntityUUID(entityUUID))
	entity := knowledge.Entity{
		Properties: properties,
		Metadata: knowledge.NewEntityMetadata(
			identifier.NewEntityEditionID(entityID, identifier.EntityRecordID(recordID), entityVersion),
			identifier.NewVersionedURI(base, uint32(version)),
			knowledge.ProvenanceMetadata{UpdatedByID: identifier.UpdatedByID(updatedByID)},
			archived,
		),
	}
	if leftOwner != nil && leftEntity != nil && rightOwner != nil && rightEntity != nil {
		entity.LinkData = &knowledge.LinkData{
			LeftEntityID:     identifier.NewEntityID(identifier.OwnedByID(*leftOwner), identifier.EntityUUID(*leftEntity)),
			RightEntityID:    identifier.NewEntityID(identifier.OwnedByID(*rightOwner), identifier.EntityUUID(*rightEntity)),
			LeftToRightOrder: leftToRight,
			RightToLeftOrder: rightToLeft,
		}
	}
	return entity, nil
}

// EarliestDecisionTime returns the smallest decision time start over all
// editions of id in one round trip.
func (s *Store) EarliestDecisionTime(ctx context.Context, id identifier.EntityID) (identifier.Timestamp, error) {
	var earliest pgtype.Timestamptz
	err := s.conn.QueryRow(ctx, earliestDecisionTimeSQL, id.OwnedByID.UUID(), id.EntityUUID.UUID()).Scan(&earliest)
	if err != nil {
		return identifier.Timestamp{}, store.NewQueryError(oops.With("entity_id", id.String()).Wrapf(err, "failed to query earliest decision time"))
	}
	if !earliest.Valid {
		return identifier.Timestamp{}, store.NewQueryError(oops.With("entity_id", id.String()).Wrap(store.ErrNoMatch))
	}
	return identifier.NewTimestamp(earliest.Time), nil
}

// ReadEntityType reads one entity type version.
func (s *Store) ReadEntityType(ctx context.Context, id identifier.OntologyTypeEditionID) (ontology.Record[ontology.EntityType], error) {
	return ReadType[ontology.EntityType](ctx, s.conn, id.VersionedURI())
}

// ReadType reads one version of an ontology type. IsLatest is computed by
// comparing against the highest stored version of the base URI.
func ReadType[T any, P interface {
	*T
	ontology.DatabaseType
}](ctx context.Context, conn pgxIConn, uri identifier.VersionedURI) (ontology.Record[T], error) {
	table := P(new(T)).Table()
	row := conn.QueryRow(ctx, fmt.Sprintf(selectTypeSQL, table), uri.BaseURI.String(), int64(uri.Version))
	return scanType[T, P](row, uri.String())
}

// ReadLatestType reads the highest version stored for base.
func ReadLatestType[T any, P interface {
	*T
	ontology.DatabaseType
}](ctx context.Context, conn pgxIConn, base identifier.BaseURI) (ontology.Record[T], error) {
	table := P(new(T)).Table()
	row := conn.QueryRow(ctx, fmt.Sprintf(selectLatestTypeSQL, table), base.String())
	record, err := scanType[T, P](row, base.String())
	if err != nil {
		return record, err
	}
	// the query is restricted to the maximum version
	record.IsLatest = true
	return record, nil
}

func scanType[T any, P interface {
	*T
	ontology.DatabaseType
}](row pgxv5.Row, uri string) (ontology.Record[T], error) {
	var (
		raw         []byte
		ownedByID   uuid.UUID
		updatedByID uuid.UUID
		isLatest    bool
	)
	if err := row.Scan(&raw, &ownedByID, &updatedByID, &isLatest); err != nil {
		if errors.Is(err, pgxv5.ErrNoRows) {
			err = store.ErrNoMatch
		}
		return ontology.Record[T]{}, store.NewQueryError(oops.With("type_id", uri).Wrapf(err, "failed to read ontology type"))
	}

	var record ontology.Record[T]
	if err := P(&record.Record).DecodeSchema(raw); err != nil {
		return ontology.Record[T]{}, store.NewQueryError(oops.With("type_id", uri).Wrapf(err, "failed to decode ontology type"))
	}
	record.OwnedByID = identifier.OwnedByID(ownedByID)
	record.UpdatedByID = identifier.UpdatedByID(updatedByID)
	record.IsLatest = isLatest
	return record, nil
}

const selectEntitiesSQL = `
SELECT
	e.owned_by_id,
	e.entity_uuid,
	e.entity_record_id,
	e.decision_time,
	e.transaction_time,
	t.base_uri,
	t.version,
	e.properties,
	e.updated_by_id,
	e.archived,
	i.left_owned_by_id,
	i.left_entity_uuid,
	i.right_owned_by_id,
	i.right_entity_uuid,
	e.left_to_right_order,
	e.right_to_left_order
FROM entity_editions e
JOIN entity_ids i ON i.owned_by_id = e.owned_by_id AND i.entity_uuid = e.entity_uuid
JOIN type_ids t ON t.version_id = e.entity_type_version_id
`

const earliestDecisionTimeSQL = `
SELECT MIN(lower(decision_time))
FROM entity_editions
WHERE owned_by_id = $1 AND entity_uuid = $2;
`

// %s is the ontology table of the requested kind.
const selectTypeSQL = `
SELECT
	s.schema,
	s.owned_by_id,
	s.updated_by_id,
	t.version = (SELECT MAX(version) FROM type_ids WHERE base_uri = t.base_uri) AS is_latest
FROM %s s
JOIN type_ids t ON t.version_id = s.version_id
WHERE t.base_uri = $1 AND t.version = $2;
`

const selectLatestTypeSQL = `
SELECT
	s.schema,
	s.owned_by_id,
	s.updated_by_id,
	TRUE AS is_latest
FROM %s s
JOIN type_ids t ON t.version_id = s.version_id
JOIN (
	SELECT base_uri, MAX(version) AS latest_version
	FROM type_ids
	WHERE base_uri = $1
	GROUP BY base_uri
) latest ON latest.base_uri = t.base_uri AND latest.latest_version = t.version;
`

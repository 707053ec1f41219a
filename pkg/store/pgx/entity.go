package pgx

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/knowledge"
	"github.com/OFFIS-RIT/chronograph/pkg/logger"
	"github.com/OFFIS-RIT/chronograph/pkg/store"
)

// CreateEntity writes the first edition of an entity. A fresh entity uuid is
// generated unless params carries one.
func (s *Store) CreateEntity(ctx context.Context, params store.CreateEntityParams) (knowledge.EntityMetadata, error) {
	if err := params.Validate(); err != nil {
		return knowledge.EntityMetadata{}, err
	}

	entityUUID := identifier.NewEntityUUID()
	if params.EntityUUID != nil {
		entityUUID = *params.EntityUUID
	}
	entityID := identifier.NewEntityID(params.OwnedByID, entityUUID)

	typeVersionID, err := s.types.resolve(ctx, s.conn, params.EntityTypeID)
	if err != nil {
		return knowledge.EntityMetadata{}, store.NewInsertionError(oops.With("entity_id", entityID.String()).Wrap(err))
	}
	properties, err := encodeProperties(params.Properties)
	if err != nil {
		return knowledge.EntityMetadata{}, store.NewInsertionError(oops.With("entity_id", entityID.String()).Wrap(err))
	}

	var (
		leftOwner, leftEntity, rightOwner, rightEntity *uuid.UUID
		leftToRight, rightToLeft                       *int32
	)
	if link := params.LinkData; link != nil {
		leftOwner, leftEntity = entityIDArgs(link.LeftEntityID)
		rightOwner, rightEntity = entityIDArgs(link.RightEntityID)
		leftToRight, rightToLeft = link.LeftToRightOrder, link.RightToLeftOrder
	}

	var (
		recordID              int64
		decision, transaction tstzrange
	)
	err = s.conn.QueryRow(ctx, createEntitySQL,
		params.OwnedByID.UUID(),
		entityUUID.UUID(),
		timestamptzArg(params.DecisionTime),
		params.UpdatedByID.UUID(),
		params.Archived,
		typeVersionID,
		properties,
		leftOwner, leftEntity,
		rightOwner, rightEntity,
		leftToRight, rightToLeft,
	).Scan(&recordID, &decision, &transaction)
	if err != nil {
		return knowledge.EntityMetadata{}, store.NewInsertionError(oops.With("entity_id", entityID.String()).Wrapf(err, "failed to create entity"))
	}

	metadata, err := newMetadata(entityID, recordID, decision, transaction, params.EntityTypeID, params.UpdatedByID, params.Archived)
	if err != nil {
		return knowledge.EntityMetadata{}, store.NewInsertionError(oops.With("entity_id", entityID.String()).Wrap(err))
	}

	logger.Debug("[Store][CreateEntity] Created entity", "edition_id", metadata.EditionID.String())
	s.publish(ctx, store.EntityEvent{Kind: store.EntityCreated, Metadata: metadata})
	return metadata, nil
}

// UpdateEntity closes the current edition of an entity and writes a new one.
// The write is rejected with ErrRaceConditionOnUpdate when a concurrent
// writer replaced the current edition first; callers own the retry.
func (s *Store) UpdateEntity(ctx context.Context, params store.UpdateEntityParams) (knowledge.EntityMetadata, error) {
	if err := params.Validate(); err != nil {
		return knowledge.EntityMetadata{}, err
	}
	entityID := params.EntityID

	typeVersionID, err := s.types.resolve(ctx, s.conn, params.EntityTypeID)
	if err != nil {
		return knowledge.EntityMetadata{}, store.NewUpdateError(oops.With("entity_id", entityID.String()).Wrap(err))
	}
	properties, err := encodeProperties(params.Properties)
	if err != nil {
		return knowledge.EntityMetadata{}, store.NewUpdateError(oops.With("entity_id", entityID.String()).Wrap(err))
	}

	// The snapshot taken by the existence check must also be the one the
	// procedure sees, otherwise a writer committing in between is superseded.
	tx, err := s.beginRepeatableRead(ctx)
	if err != nil {
		return knowledge.EntityMetadata{}, store.NewUpdateError(oops.With("entity_id", entityID.String()).Wrapf(err, "failed to begin transaction"))
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, entityExistsSQL, entityID.OwnedByID.UUID(), entityID.EntityUUID.UUID()).Scan(&exists); err != nil {
		return knowledge.EntityMetadata{}, store.NewUpdateError(oops.With("entity_id", entityID.String()).Wrapf(err, "failed to check entity existence"))
	}
	if !exists {
		return knowledge.EntityMetadata{}, store.NewUpdateError(oops.With("entity_id", entityID.String()).Wrap(store.ErrEntityDoesNotExist))
	}

	var (
		recordID              int64
		decision, transaction tstzrange
	)
	err = tx.QueryRow(ctx, updateEntitySQL,
		entityID.OwnedByID.UUID(),
		entityID.EntityUUID.UUID(),
		timestamptzArg(params.DecisionTime),
		params.UpdatedByID.UUID(),
		params.Archived,
		typeVersionID,
		properties,
		params.LinkOrder.LeftToRight,
		params.LinkOrder.RightToLeft,
	).Scan(&recordID, &decision, &transaction)
	if errors.Is(err, pgxv5.ErrNoRows) || isSerializationFailure(err) {
		logger.Warn("[Store][UpdateEntity] Race condition on update", "entity_id", entityID.String())
		return knowledge.EntityMetadata{}, store.NewUpdateError(oops.With("entity_id", entityID.String()).Wrap(store.ErrRaceConditionOnUpdate))
	}
	if err != nil {
		return knowledge.EntityMetadata{}, store.NewUpdateError(oops.With("entity_id", entityID.String()).Wrapf(err, "failed to update entity"))
	}

	metadata, err := newMetadata(entityID, recordID, decision, transaction, params.EntityTypeID, params.UpdatedByID, params.Archived)
	if err != nil {
		return knowledge.EntityMetadata{}, store.NewUpdateError(oops.With("entity_id", entityID.String()).Wrap(err))
	}

	if err := tx.Commit(ctx); err != nil {
		if isSerializationFailure(err) {
			return knowledge.EntityMetadata{}, store.NewUpdateError(oops.With("entity_id", entityID.String()).Wrap(store.ErrRaceConditionOnUpdate))
		}
		return knowledge.EntityMetadata{}, store.NewUpdateError(oops.With("entity_id", entityID.String()).Wrapf(err, "failed to commit update"))
	}

	logger.Debug("[Store][UpdateEntity] Updated entity", "edition_id", metadata.EditionID.String())
	s.publish(ctx, store.EntityEvent{Kind: store.EntityUpdated, Metadata: metadata})
	return metadata, nil
}

// beginRepeatableRead starts a REPEATABLE READ transaction. A connection
// that is itself a transaction only nests a savepoint, which keeps the
// isolation of the outer transaction.
func (s *Store) beginRepeatableRead(ctx context.Context) (pgxv5.Tx, error) {
	if b, ok := s.conn.(txBeginner); ok {
		return b.BeginTx(ctx, pgxv5.TxOptions{IsoLevel: pgxv5.RepeatableRead})
	}
	return s.conn.Begin(ctx)
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailure
}

func encodeProperties(p knowledge.EntityProperties) ([]byte, error) {
	if p == nil {
		p = knowledge.EntityProperties{}
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to encode properties")
	}
	return raw, nil
}

func entityIDArgs(id identifier.EntityID) (*uuid.UUID, *uuid.UUID) {
	owner, entity := id.OwnedByID.UUID(), id.EntityUUID.UUID()
	return &owner, &entity
}

func newMetadata(
	id identifier.EntityID,
	recordID int64,
	decision, transaction tstzrange,
	entityTypeID identifier.VersionedURI,
	updatedByID identifier.UpdatedByID,
	archived bool,
) (knowledge.EntityMetadata, error) {
	version, err := versionFromRanges(decision, transaction)
	if err != nil {
		return knowledge.EntityMetadata{}, err
	}
	return knowledge.NewEntityMetadata(
		identifier.NewEntityEditionID(id, identifier.EntityRecordID(recordID), version),
		entityTypeID,
		knowledge.ProvenanceMetadata{UpdatedByID: updatedByID},
		archived,
	), nil
}

const entityExistsSQL = `
SELECT EXISTS (
	SELECT 1 FROM entity_ids WHERE owned_by_id = $1 AND entity_uuid = $2
);
`

const createEntitySQL = `
SELECT entity_record_id, decision_time, transaction_time
FROM create_entity(
	_owned_by_id            => $1,
	_entity_uuid            => $2,
	_decision_time          => $3,
	_updated_by_id          => $4,
	_archived               => $5,
	_entity_type_version_id => $6,
	_properties             => $7,
	_left_owned_by_id       => $8,
	_left_entity_uuid       => $9,
	_right_owned_by_id      => $10,
	_right_entity_uuid      => $11,
	_left_to_right_order    => $12,
	_right_to_left_order    => $13
);
`

const updateEntitySQL = `
SELECT entity_record_id, decision_time, transaction_time
FROM update_entity(
	_owned_by_id            => $1,
	_entity_uuid            => $2,
	_decision_time          => $3,
	_updated_by_id          => $4,
	_archived               => $5,
	_entity_type_version_id => $6,
	_properties             => $7,
	_left_to_right_order    => $8,
	_right_to_left_order    => $9
);
`

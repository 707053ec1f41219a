package identifier

import (
	"fmt"

	"github.com/google/uuid"
)

// OwnedByID identifies the account that owns a graph element.
type OwnedByID uuid.UUID

// UpdatedByID identifies the account that recorded an edition.
type UpdatedByID uuid.UUID

// EntityUUID is the owner-scoped part of an entity identity.
type EntityUUID uuid.UUID

func NewEntityUUID() EntityUUID {
	return EntityUUID(uuid.New())
}

func (id OwnedByID) UUID() uuid.UUID   { return uuid.UUID(id) }
func (id UpdatedByID) UUID() uuid.UUID { return uuid.UUID(id) }
func (id EntityUUID) UUID() uuid.UUID  { return uuid.UUID(id) }

func (id OwnedByID) String() string   { return uuid.UUID(id).String() }
func (id UpdatedByID) String() string { return uuid.UUID(id).String() }
func (id EntityUUID) String() string  { return uuid.UUID(id).String() }

func (id OwnedByID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id UpdatedByID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id EntityUUID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }

func (id *OwnedByID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UpdatedByID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *EntityUUID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }

// EntityID is the stable identity of an entity across all of its editions.
type EntityID struct {
	OwnedByID  OwnedByID  `json:"ownedById" validate:"required"`
	EntityUUID EntityUUID `json:"entityUuid" validate:"required"`
}

func NewEntityID(owner OwnedByID, entityUUID EntityUUID) EntityID {
	return EntityID{OwnedByID: owner, EntityUUID: entityUUID}
}

// String renders the id as "<owned_by_id>%<entity_uuid>".
func (id EntityID) String() string {
	return fmt.Sprintf("%s%%%s", id.OwnedByID, id.EntityUUID)
}

// EntityRecordID is issued by the store for every successful write.
type EntityRecordID int64

// EntityVersion places an edition on both time axes.
type EntityVersion struct {
	DecisionTime    DecisionTimespan    `json:"decisionTime"`
	TransactionTime TransactionTimespan `json:"transactionTime"`
}

func NewEntityVersion(decision DecisionTimespan, transaction TransactionTimespan) EntityVersion {
	return EntityVersion{DecisionTime: decision, TransactionTime: transaction}
}

// EntityEditionID identifies one recorded version of an entity.
type EntityEditionID struct {
	BaseID   EntityID       `json:"baseId"`
	RecordID EntityRecordID `json:"recordId"`
	Version  EntityVersion  `json:"version"`
}

func NewEntityEditionID(base EntityID, record EntityRecordID, version EntityVersion) EntityEditionID {
	return EntityEditionID{BaseID: base, RecordID: record, Version: version}
}

func (id EntityEditionID) String() string {
	return fmt.Sprintf("%s@%d", id.BaseID, id.RecordID)
}

// MarshalText lets edition ids key JSON objects.
func (id EntityEditionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// EntityIDAndTimestamp points at an entity as it was at a point in time. It is
// the right endpoint of knowledge-graph edges.
type EntityIDAndTimestamp struct {
	BaseID    EntityID  `json:"baseId"`
	Timestamp Timestamp `json:"timestamp"`
}

func NewEntityIDAndTimestamp(base EntityID, ts Timestamp) EntityIDAndTimestamp {
	return EntityIDAndTimestamp{BaseID: base, Timestamp: ts}
}

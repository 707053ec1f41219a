package knowledge

import (
	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
)

// EntityProperties is the property payload of an entity, keyed by property
// type base URI.
type EntityProperties map[string]any

// LinkData turns an entity into a link entity between a left and a right
// entity. The order keys sort links that share an endpoint.
type LinkData struct {
	LeftEntityID     identifier.EntityID `json:"leftEntityId"`
	RightEntityID    identifier.EntityID `json:"rightEntityId"`
	LeftToRightOrder *int32              `json:"leftToRightOrder,omitempty"`
	RightToLeftOrder *int32              `json:"rightToLeftOrder,omitempty"`
}

// Order returns the ordering keys of the link.
func (l LinkData) Order() EntityLinkOrder {
	return EntityLinkOrder{LeftToRight: l.LeftToRightOrder, RightToLeft: l.RightToLeftOrder}
}

// EntityLinkOrder carries the ordering keys that may change on update. The
// endpoints of a link never change.
type EntityLinkOrder struct {
	LeftToRight *int32 `json:"leftToRightOrder,omitempty"`
	RightToLeft *int32 `json:"rightToLeftOrder,omitempty"`
}

// ProvenanceMetadata records who wrote an edition.
type ProvenanceMetadata struct {
	UpdatedByID identifier.UpdatedByID `json:"updatedById"`
}

// EntityMetadata is returned by the write path and carried by every entity.
type EntityMetadata struct {
	EditionID    identifier.EntityEditionID `json:"editionId"`
	EntityTypeID identifier.VersionedURI    `json:"entityTypeId"`
	Provenance   ProvenanceMetadata         `json:"provenance"`
	Archived     bool                       `json:"archived"`
}

func NewEntityMetadata(
	editionID identifier.EntityEditionID,
	entityTypeID identifier.VersionedURI,
	provenance ProvenanceMetadata,
	archived bool,
) EntityMetadata {
	return EntityMetadata{
		EditionID:    editionID,
		EntityTypeID: entityTypeID,
		Provenance:   provenance,
		Archived:     archived,
	}
}

// Entity is one edition of an entity as read from the store.
type Entity struct {
	Properties EntityProperties `json:"properties"`
	LinkData   *LinkData        `json:"linkData,omitempty"`
	Metadata   EntityMetadata   `json:"metadata"`
}

// IsLink reports whether the entity is a link entity.
func (e Entity) IsLink() bool {
	return e.LinkData != nil
}

func (e Entity) EditionID() identifier.EntityEditionID {
	return e.Metadata.EditionID
}

func (e Entity) EntityID() identifier.EntityID {
	return e.Metadata.EditionID.BaseID
}

// EntityTypeEditionID is the ontology edition the entity is of.
func (e Entity) EntityTypeEditionID() identifier.OntologyTypeEditionID {
	return identifier.NewOntologyTypeEditionID(e.Metadata.EntityTypeID)
}

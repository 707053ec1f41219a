package ontology

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
)

// Kind is the discriminator every ontology schema carries.
type Kind string

const (
	KindDataType     Kind = "dataType"
	KindPropertyType Kind = "propertyType"
	KindEntityType   Kind = "entityType"
)

// DatabaseType is implemented by ontology types that are stored in one of the
// ontology tables. DecodeSchema converts the stored JSON representation into
// the type and fails if the representation is not a valid instance of it.
type DatabaseType interface {
	Table() string
	Kind() Kind
	ID() identifier.VersionedURI
	DecodeSchema(raw []byte) error
}

// Metadata is the bookkeeping stored next to every ontology type version.
type Metadata struct {
	EditionID   identifier.OntologyTypeEditionID `json:"editionId"`
	OwnedByID   identifier.OwnedByID             `json:"ownedById"`
	UpdatedByID identifier.UpdatedByID           `json:"updatedById"`
}

// Record associates a stored ontology type with the information whether it is
// the latest version of its base URI. IsLatest is computed at read time.
type Record[T any] struct {
	Record      T                      `json:"record"`
	OwnedByID   identifier.OwnedByID   `json:"ownedById"`
	UpdatedByID identifier.UpdatedByID `json:"updatedById"`
	IsLatest    bool                   `json:"isLatest"`
}

// schemaHeader is the part of the representation all kinds share.
type schemaHeader struct {
	ID          string `json:"$id"`
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

func (h schemaHeader) versionedURI(want Kind) (identifier.VersionedURI, error) {
	if h.Kind != want {
		return identifier.VersionedURI{}, fmt.Errorf("expected kind %q, got %q", want, h.Kind)
	}
	if h.Title == "" {
		return identifier.VersionedURI{}, fmt.Errorf("%s %q has no title", want, h.ID)
	}
	return identifier.ParseVersionedURI(h.ID)
}

// DataType describes the shape of a primitive value.
type DataType struct {
	id          identifier.VersionedURI
	Title       string
	Description string
	Type        string
}

func (*DataType) Table() string { return "data_types" }
func (*DataType) Kind() Kind    { return KindDataType }

func (d *DataType) ID() identifier.VersionedURI { return d.id }

func (d *DataType) DecodeSchema(raw []byte) error {
	var repr struct {
		schemaHeader
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &repr); err != nil {
		return err
	}
	id, err := repr.versionedURI(KindDataType)
	if err != nil {
		return err
	}
	if repr.Type == "" {
		return fmt.Errorf("data type %q has no type", repr.ID)
	}
	*d = DataType{id: id, Title: repr.Title, Description: repr.Description, Type: repr.Type}
	return nil
}

func (d DataType) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		schemaHeader
		Type string `json:"type"`
	}{schemaHeader{d.id.String(), KindDataType, d.Title, d.Description}, d.Type})
}

// PropertyType constrains the values a property may take by referencing data
// types.
type PropertyType struct {
	id          identifier.VersionedURI
	Title       string
	Description string
	DataTypes   []identifier.VersionedURI
}

func (*PropertyType) Table() string { return "property_types" }
func (*PropertyType) Kind() Kind    { return KindPropertyType }

func (p *PropertyType) ID() identifier.VersionedURI { return p.id }

func (p *PropertyType) DecodeSchema(raw []byte) error {
	var repr struct {
		schemaHeader
		OneOf []struct {
			Ref string `json:"$ref"`
		} `json:"oneOf"`
	}
	if err := json.Unmarshal(raw, &repr); err != nil {
		return err
	}
	id, err := repr.versionedURI(KindPropertyType)
	if err != nil {
		return err
	}
	refs := make([]identifier.VersionedURI, 0, len(repr.OneOf))
	for _, ref := range repr.OneOf {
		uri, err := identifier.ParseVersionedURI(ref.Ref)
		if err != nil {
			return fmt.Errorf("property type %q: %w", repr.ID, err)
		}
		refs = append(refs, uri)
	}
	*p = PropertyType{id: id, Title: repr.Title, Description: repr.Description, DataTypes: refs}
	return nil
}

func (p PropertyType) MarshalJSON() ([]byte, error) {
	type ref struct {
		Ref string `json:"$ref"`
	}
	oneOf := make([]ref, 0, len(p.DataTypes))
	for _, uri := range p.DataTypes {
		oneOf = append(oneOf, ref{uri.String()})
	}
	return json.Marshal(struct {
		schemaHeader
		OneOf []ref `json:"oneOf"`
	}{schemaHeader{p.id.String(), KindPropertyType, p.Title, p.Description}, oneOf})
}

// EntityType classifies entities. Properties maps property type base URIs to
// the property type versions an entity of this type may carry; Links lists
// the link entity types that may originate from it.
type EntityType struct {
	id          identifier.VersionedURI
	Title       string
	Description string
	Properties  map[identifier.BaseURI]identifier.VersionedURI
	Links       []identifier.VersionedURI
}

func NewEntityType(id identifier.VersionedURI, title string) *EntityType {
	return &EntityType{
		id:         id,
		Title:      title,
		Properties: make(map[identifier.BaseURI]identifier.VersionedURI),
	}
}

func (*EntityType) Table() string { return "entity_types" }
func (*EntityType) Kind() Kind    { return KindEntityType }

func (e *EntityType) ID() identifier.VersionedURI { return e.id }

func (e *EntityType) DecodeSchema(raw []byte) error {
	var repr struct {
		schemaHeader
		Properties map[string]struct {
			Ref string `json:"$ref"`
		} `json:"properties"`
		Links map[string]json.RawMessage `json:"links"`
	}
	if err := json.Unmarshal(raw, &repr); err != nil {
		return err
	}
	id, err := repr.versionedURI(KindEntityType)
	if err != nil {
		return err
	}

	props := make(map[identifier.BaseURI]identifier.VersionedURI, len(repr.Properties))
	for key, ref := range repr.Properties {
		uri, err := identifier.ParseVersionedURI(ref.Ref)
		if err != nil {
			return fmt.Errorf("entity type %q: %w", repr.ID, err)
		}
		if string(uri.BaseURI) != key {
			return fmt.Errorf("entity type %q: property %q references %q", repr.ID, key, uri)
		}
		props[uri.BaseURI] = uri
	}

	links := make([]identifier.VersionedURI, 0, len(repr.Links))
	for key := range repr.Links {
		uri, err := identifier.ParseVersionedURI(key)
		if err != nil {
			return fmt.Errorf("entity type %q: %w", repr.ID, err)
		}
		links = append(links, uri)
	}
	slices.SortFunc(links, func(a, b identifier.VersionedURI) int {
		return strings.Compare(a.String(), b.String())
	})

	*e = EntityType{id: id, Title: repr.Title, Description: repr.Description, Properties: props, Links: links}
	return nil
}

func (e EntityType) MarshalJSON() ([]byte, error) {
	type ref struct {
		Ref string `json:"$ref"`
	}
	props := make(map[string]ref, len(e.Properties))
	for base, uri := range e.Properties {
		props[string(base)] = ref{uri.String()}
	}
	links := make(map[string]struct{}, len(e.Links))
	for _, uri := range e.Links {
		links[uri.String()] = struct{}{}
	}
	return json.Marshal(struct {
		schemaHeader
		Properties map[string]ref      `json:"properties"`
		Links      map[string]struct{} `json:"links,omitempty"`
	}{schemaHeader{e.id.String(), KindEntityType, e.Title, e.Description}, props, links})
}

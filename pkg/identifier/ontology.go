package identifier

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// BaseURI identifies an ontology type across its versions. It always ends
// with a slash.
type BaseURI string

func ParseBaseURI(s string) (BaseURI, error) {
	if s == "" {
		return "", fmt.Errorf("base uri is empty")
	}
	if !strings.HasSuffix(s, "/") {
		return "", fmt.Errorf("base uri %q must end with a slash", s)
	}
	return BaseURI(s), nil
}

func (u BaseURI) String() string {
	return string(u)
}

// VersionedURI is a base URI plus a version, rendered as "<base>v/<n>".
type VersionedURI struct {
	BaseURI BaseURI `validate:"required"`
	Version uint32  `validate:"min=1"`
}

func NewVersionedURI(base BaseURI, version uint32) VersionedURI {
	return VersionedURI{BaseURI: base, Version: version}
}

// ParseVersionedURI parses "https://example.com/types/entity-type/person/v/1".
func ParseVersionedURI(s string) (VersionedURI, error) {
	idx := strings.LastIndex(s, "/v/")
	if idx == -1 {
		return VersionedURI{}, fmt.Errorf("versioned uri %q has no version segment", s)
	}
	base, err := ParseBaseURI(s[:idx+1])
	if err != nil {
		return VersionedURI{}, err
	}
	version, err := strconv.ParseUint(s[idx+3:], 10, 32)
	if err != nil || version == 0 {
		return VersionedURI{}, fmt.Errorf("versioned uri %q has an invalid version", s)
	}
	return VersionedURI{BaseURI: base, Version: uint32(version)}, nil
}

func (u VersionedURI) String() string {
	return fmt.Sprintf("%sv/%d", u.BaseURI, u.Version)
}

func (u VersionedURI) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *VersionedURI) UnmarshalText(b []byte) error {
	parsed, err := ParseVersionedURI(string(b))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// OntologyTypeEditionID identifies one version of an ontology type.
type OntologyTypeEditionID struct {
	BaseID  BaseURI `json:"baseId"`
	Version uint32  `json:"version"`
}

func NewOntologyTypeEditionID(uri VersionedURI) OntologyTypeEditionID {
	return OntologyTypeEditionID{BaseID: uri.BaseURI, Version: uri.Version}
}

func (id OntologyTypeEditionID) VersionedURI() VersionedURI {
	return VersionedURI{BaseURI: id.BaseID, Version: id.Version}
}

func (id OntologyTypeEditionID) String() string {
	return id.VersionedURI().String()
}

func (id OntologyTypeEditionID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// GraphElementKind tags a GraphElementEditionID.
type GraphElementKind uint8

const (
	KnowledgeGraphElement GraphElementKind = iota + 1
	OntologyElement
)

// GraphElementEditionID is either an entity edition or an ontology type
// edition.
type GraphElementEditionID struct {
	kind     GraphElementKind
	entity   EntityEditionID
	ontology OntologyTypeEditionID
}

func KnowledgeGraphEditionID(id EntityEditionID) GraphElementEditionID {
	return GraphElementEditionID{kind: KnowledgeGraphElement, entity: id}
}

func OntologyEditionID(id OntologyTypeEditionID) GraphElementEditionID {
	return GraphElementEditionID{kind: OntologyElement, ontology: id}
}

func (id GraphElementEditionID) Kind() GraphElementKind {
	return id.kind
}

// Entity returns the entity edition and whether the id refers to one.
func (id GraphElementEditionID) Entity() (EntityEditionID, bool) {
	return id.entity, id.kind == KnowledgeGraphElement
}

// Ontology returns the ontology edition and whether the id refers to one.
func (id GraphElementEditionID) Ontology() (OntologyTypeEditionID, bool) {
	return id.ontology, id.kind == OntologyElement
}

func (id GraphElementEditionID) String() string {
	switch id.kind {
	case KnowledgeGraphElement:
		return id.entity.String()
	case OntologyElement:
		return id.ontology.String()
	default:
		return "<invalid>"
	}
}

func (id GraphElementEditionID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case KnowledgeGraphElement:
		return json.Marshal(struct {
			KnowledgeGraph EntityEditionID `json:"knowledgeGraph"`
		}{id.entity})
	case OntologyElement:
		return json.Marshal(struct {
			Ontology OntologyTypeEditionID `json:"ontology"`
		}{id.ontology})
	default:
		return nil, fmt.Errorf("graph element edition id has no kind")
	}
}

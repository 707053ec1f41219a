package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/knowledge"
	"github.com/OFFIS-RIT/chronograph/pkg/subgraph"
)

func parseOwnedByID(s string) (identifier.OwnedByID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return identifier.OwnedByID{}, fmt.Errorf("invalid owner %q: %w", s, err)
	}
	return identifier.OwnedByID(id), nil
}

func parseUpdatedByID(s string) (identifier.UpdatedByID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return identifier.UpdatedByID{}, fmt.Errorf("invalid actor %q: %w", s, err)
	}
	return identifier.UpdatedByID(id), nil
}

func parseEntityUUID(s string) (identifier.EntityUUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return identifier.EntityUUID{}, fmt.Errorf("invalid entity uuid %q: %w", s, err)
	}
	return identifier.EntityUUID(id), nil
}

// parseEntityID accepts the "<owned_by_id>%<entity_uuid>" form entity ids are
// printed in.
func parseEntityID(s string) (identifier.EntityID, error) {
	owner, entity, ok := strings.Cut(s, "%")
	if !ok {
		return identifier.EntityID{}, fmt.Errorf("invalid entity id %q: expected <owner>%%<uuid>", s)
	}
	ownedBy, err := parseOwnedByID(owner)
	if err != nil {
		return identifier.EntityID{}, err
	}
	entityUUID, err := parseEntityUUID(entity)
	if err != nil {
		return identifier.EntityID{}, err
	}
	return identifier.NewEntityID(ownedBy, entityUUID), nil
}

// parseDecisionTime returns nil for an empty value so the store uses the
// transaction time.
func parseDecisionTime(s string) (*identifier.Timestamp, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, fmt.Errorf("invalid decision time %q: %w", s, err)
	}
	ts := identifier.NewTimestamp(t)
	return &ts, nil
}

// parseProperties reads a JSON object given inline or, prefixed with "@",
// from a file.
func parseProperties(s string) (knowledge.EntityProperties, error) {
	raw := []byte(s)
	if path, ok := strings.CutPrefix(s, "@"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read properties: %w", err)
		}
		raw = b
	}
	props := knowledge.EntityProperties{}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("properties must be a JSON object: %w", err)
	}
	return props, nil
}

type depthFlags struct {
	depth    uint8
	isOfType uint8
	leftIn   uint8
	leftOut  uint8
	rightIn  uint8
	rightOut uint8
}

func (d *depthFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Uint8Var(&d.depth, "depth", 0, "Resolve depth used for every edge kind")
	fs.Uint8Var(&d.isOfType, "is-of-type", 0, "Outgoing IsOfType depth (overrides --depth)")
	fs.Uint8Var(&d.leftIn, "left-incoming", 0, "Incoming HasLeftEntity depth (overrides --depth)")
	fs.Uint8Var(&d.leftOut, "left-outgoing", 0, "Outgoing HasLeftEntity depth (overrides --depth)")
	fs.Uint8Var(&d.rightIn, "right-incoming", 0, "Incoming HasRightEntity depth (overrides --depth)")
	fs.Uint8Var(&d.rightOut, "right-outgoing", 0, "Outgoing HasRightEntity depth (overrides --depth)")
}

func (d *depthFlags) resolve(cmd *cobra.Command) subgraph.GraphResolveDepths {
	depths := subgraph.UniformDepths(d.depth)
	fs := cmd.Flags()
	if fs.Changed("is-of-type") {
		depths.IsOfType.Outgoing = d.isOfType
	}
	if fs.Changed("left-incoming") {
		depths.HasLeftEntity.Incoming = d.leftIn
	}
	if fs.Changed("left-outgoing") {
		depths.HasLeftEntity.Outgoing = d.leftOut
	}
	if fs.Changed("right-incoming") {
		depths.HasRightEntity.Incoming = d.rightIn
	}
	if fs.Changed("right-outgoing") {
		depths.HasRightEntity.Outgoing = d.rightOut
	}
	return depths
}

// orderFlag returns nil unless the flag was set.
func orderFlag(cmd *cobra.Command, name string) (*int32, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	v, err := cmd.Flags().GetInt32(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

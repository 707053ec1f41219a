package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/chronograph/pkg/ontology"
	pgxstore "github.com/OFFIS-RIT/chronograph/pkg/store/pgx"
)

// decodeOntologyType picks the ontology kind from the "kind" field of raw.
func decodeOntologyType(raw []byte) (ontology.DatabaseType, error) {
	var header struct {
		Kind ontology.Kind `json:"kind"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("ontology type is not a JSON object: %w", err)
	}

	var t ontology.DatabaseType
	switch header.Kind {
	case ontology.KindDataType:
		t = &ontology.DataType{}
	case ontology.KindPropertyType:
		t = &ontology.PropertyType{}
	case ontology.KindEntityType:
		t = &ontology.EntityType{}
	default:
		return nil, fmt.Errorf("unknown ontology kind %q", header.Kind)
	}
	if err := t.DecodeSchema(raw); err != nil {
		return nil, err
	}
	return t, nil
}

func newTypeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type",
		Short: "Manage ontology types",
	}
	cmd.AddCommand(newTypeCreateCmd(a))
	return cmd
}

func newTypeCreateCmd(a *app) *cobra.Command {
	var file, owner, actor string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Store a new version of a data, property or entity type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			t, err := decodeOntologyType(raw)
			if err != nil {
				return err
			}
			ownedBy, err := parseOwnedByID(owner)
			if err != nil {
				return err
			}
			updatedBy, err := parseUpdatedByID(actor)
			if err != nil {
				return err
			}

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			metadata, err := st.CreateOntologyType(cmd.Context(), pgxstore.CreateOntologyTypeParams{
				Type:        t,
				OwnedByID:   ownedBy,
				UpdatedByID: updatedBy,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), metadata)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON schema of the type")
	cmd.Flags().StringVar(&owner, "owner", "", "Owning account")
	cmd.Flags().StringVar(&actor, "actor", "", "Account recording the type")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/chronograph/internal/util"
	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/knowledge"
	"github.com/OFFIS-RIT/chronograph/pkg/store"
)

func newEntityCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Create and update entities",
	}
	cmd.AddCommand(newEntityCreateCmd(a), newEntityUpdateCmd(a))
	return cmd
}

type editionFlags struct {
	actor        string
	entityType   string
	properties   string
	decisionTime string
	archived     bool
}

func (f *editionFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.actor, "actor", "", "Account recording the edition")
	fs.StringVar(&f.entityType, "type", "", "Versioned entity type URI")
	fs.StringVar(&f.properties, "properties", "", "Properties as a JSON object, or @file")
	fs.StringVar(&f.decisionTime, "decision-time", "", "RFC 3339 decision time (defaults to the transaction time)")
	fs.BoolVar(&f.archived, "archived", false, "Mark the edition archived")
	fs.Int32("left-to-right", 0, "Link order seen from the left entity")
	fs.Int32("right-to-left", 0, "Link order seen from the right entity")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("type")
}

type edition struct {
	actor        identifier.UpdatedByID
	entityType   identifier.VersionedURI
	properties   knowledge.EntityProperties
	decisionTime *identifier.Timestamp
	order        knowledge.EntityLinkOrder
}

func (f *editionFlags) parse(cmd *cobra.Command) (edition, error) {
	var e edition
	var err error
	if e.actor, err = parseUpdatedByID(f.actor); err != nil {
		return e, err
	}
	if e.entityType, err = identifier.ParseVersionedURI(f.entityType); err != nil {
		return e, err
	}
	if e.properties, err = parseProperties(f.properties); err != nil {
		return e, err
	}
	if e.decisionTime, err = parseDecisionTime(f.decisionTime); err != nil {
		return e, err
	}
	if e.order.LeftToRight, err = orderFlag(cmd, "left-to-right"); err != nil {
		return e, err
	}
	if e.order.RightToLeft, err = orderFlag(cmd, "right-to-left"); err != nil {
		return e, err
	}
	return e, nil
}

func newEntityCreateCmd(a *app) *cobra.Command {
	var (
		owner, entityUUID, left, right string
		flags                          editionFlags
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an entity, or a link entity with --left and --right",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.parse(cmd)
			if err != nil {
				return err
			}
			ownedBy, err := parseOwnedByID(owner)
			if err != nil {
				return err
			}

			params := store.CreateEntityParams{
				OwnedByID:    ownedBy,
				DecisionTime: e.decisionTime,
				UpdatedByID:  e.actor,
				Archived:     flags.archived,
				EntityTypeID: e.entityType,
				Properties:   e.properties,
			}
			if entityUUID != "" {
				id, err := parseEntityUUID(entityUUID)
				if err != nil {
					return err
				}
				params.EntityUUID = &id
			}

			switch {
			case left != "" && right != "":
				leftID, err := parseEntityID(left)
				if err != nil {
					return err
				}
				rightID, err := parseEntityID(right)
				if err != nil {
					return err
				}
				params.LinkData = &knowledge.LinkData{
					LeftEntityID:     leftID,
					RightEntityID:    rightID,
					LeftToRightOrder: e.order.LeftToRight,
					RightToLeftOrder: e.order.RightToLeft,
				}
			case left != "" || right != "":
				return errors.New("a link needs both --left and --right")
			}

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			metadata, err := st.CreateEntity(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), metadata)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owning account")
	cmd.Flags().StringVar(&entityUUID, "uuid", "", "Entity UUID (generated when empty)")
	cmd.Flags().StringVar(&left, "left", "", "Left entity of a link (<owner>%<uuid>)")
	cmd.Flags().StringVar(&right, "right", "", "Right entity of a link (<owner>%<uuid>)")
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newEntityUpdateCmd(a *app) *cobra.Command {
	var (
		entity string
		flags  editionFlags
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Record a new edition of an entity",
		Long: `Record a new edition of an entity. The update is retried up to
UPDATE_MAX_TRIES times when a concurrent update wins the race.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := flags.parse(cmd)
			if err != nil {
				return err
			}
			id, err := parseEntityID(entity)
			if err != nil {
				return err
			}

			st, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}

			params := store.UpdateEntityParams{
				EntityID:     id,
				DecisionTime: e.decisionTime,
				UpdatedByID:  e.actor,
				Archived:     flags.archived,
				EntityTypeID: e.entityType,
				Properties:   e.properties,
				LinkOrder:    e.order,
			}
			metadata, err := util.RetryOnConflict(cmd.Context(), a.cfg.UpdateMaxTries, func(ctx context.Context) (knowledge.EntityMetadata, error) {
				return st.UpdateEntity(ctx, params)
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), metadata)
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "Entity to update (<owner>%<uuid>)")
	flags.register(cmd)
	_ = cmd.MarkFlagRequired("entity")
	return cmd
}

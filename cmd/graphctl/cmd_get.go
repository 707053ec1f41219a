package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/logger"
	"github.com/OFFIS-RIT/chronograph/pkg/query"
	"github.com/OFFIS-RIT/chronograph/pkg/store"
	pgxstore "github.com/OFFIS-RIT/chronograph/pkg/store/pgx"
)

type filterFlags struct {
	owner      string
	entity     string
	entityType string
	latest     bool
	archived   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.owner, "owner", "", "Only entities owned by this account")
	fs.StringVar(&f.entity, "entity", "", "Only editions of this entity (<owner>%<uuid>)")
	fs.StringVar(&f.entityType, "type", "", "Only entities of this versioned entity type URI")
	fs.BoolVar(&f.latest, "latest", true, "Only current editions")
	fs.StringVar(&f.archived, "archived", "", "Only archived (true) or unarchived (false) editions")
}

// filter conjoins every selection that was given. Without any selection the
// query matches every edition.
func (f *filterFlags) filter() (store.Filter, error) {
	var filters []store.Filter

	if f.owner != "" {
		owner, err := parseOwnedByID(f.owner)
		if err != nil {
			return store.Filter{}, err
		}
		filters = append(filters, store.ForEntitiesOwnedBy(owner))
	}
	if f.entity != "" {
		id, err := parseEntityID(f.entity)
		if err != nil {
			return store.Filter{}, err
		}
		filters = append(filters, store.ForEntityByEntityID(id))
	}
	if f.entityType != "" {
		uri, err := identifier.ParseVersionedURI(f.entityType)
		if err != nil {
			return store.Filter{}, err
		}
		filters = append(filters, store.ForEntitiesByType(uri))
	}
	if f.latest {
		filters = append(filters, store.ForLatestEntities())
	}
	switch f.archived {
	case "":
	case "true":
		filters = append(filters, store.ForArchived(true))
	case "false":
		filters = append(filters, store.ForArchived(false))
	default:
		return store.Filter{}, fmt.Errorf("invalid --archived value %q", f.archived)
	}

	return store.All(filters...), nil
}

func newGetCmd(a *app) *cobra.Command {
	var (
		filters filterFlags
		depths  depthFlags
		trace   bool
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Resolve the subgraph around the matching entities",
		Long: `Resolve the subgraph around every entity edition matching the filter
flags and print it as JSON.

  graphctl get --entity <owner>%<uuid> --depth 2
  graphctl get --type https://example.com/types/entity-type/person/v/1 --is-of-type 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := filters.filter()
			if err != nil {
				return err
			}

			var opts []pgxstore.StoreOption
			var qt *query.QueryTrace
			if trace {
				qt = query.NewQueryTrace()
				opts = append(opts, pgxstore.WithTracer(qt))
			}

			st, err := a.openStore(cmd.Context(), opts...)
			if err != nil {
				return err
			}

			sg, err := st.GetEntity(cmd.Context(), store.StructuralQuery{
				Filter:             filter,
				GraphResolveDepths: depths.resolve(cmd),
			})
			if err != nil {
				return err
			}

			if qt != nil {
				s := qt.Snapshot()
				logger.Info("[Graphctl][Get] Query trace",
					"reads", s.Reads,
					"vertices", len(s.ReadVertexIDs),
					"entity_types", len(s.ReadEntityTypes),
					"expanded", len(s.ExpandedIDs),
					"resolved", s.Resolved,
					"earliest_lookups", s.EarliestLookups,
					"duplicate_reads", len(s.DuplicateVertexReads),
				)
			}
			return printJSON(cmd.OutOrStdout(), sg)
		},
	}

	filters.register(cmd)
	depths.register(cmd)
	cmd.Flags().BoolVar(&trace, "trace", false, "Log traversal statistics")
	return cmd
}

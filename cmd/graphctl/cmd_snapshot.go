package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/OFFIS-RIT/chronograph/internal/storage"
	"github.com/OFFIS-RIT/chronograph/internal/util"
	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/leaselock"
	"github.com/OFFIS-RIT/chronograph/pkg/logger"
	"github.com/OFFIS-RIT/chronograph/pkg/store"
	"github.com/OFFIS-RIT/chronograph/pkg/subgraph"
)

type snapshotJob struct {
	id     identifier.EntityID
	key    string
	depths subgraph.GraphResolveDepths
}

type snapshotLocker interface {
	WithLease(ctx context.Context, key string, opts leaselock.Options, fn func(ctx context.Context) error) error
}

type snapshotWriter interface {
	Put(ctx context.Context, key string, sg *subgraph.Subgraph) error
}

// runSnapshots resolves and uploads every job, at most parallelism at a
// time. Each job runs its own query so traversals share no state. A job holds
// the lease on its key while it runs.
func runSnapshots(
	ctx context.Context,
	entities store.EntityStore,
	locker snapshotLocker,
	writer snapshotWriter,
	jobs []snapshotJob,
	parallelism int,
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(parallelism, 1))

	for _, job := range jobs {
		g.Go(func() error {
			opts := leaselock.Options{
				TTL:         time.Minute,
				Wait:        true,
				WaitJitter:  100 * time.Millisecond,
				OwnerPrefix: "graphctl-snapshot",
			}
			return locker.WithLease(ctx, job.key, opts, func(ctx context.Context) error {
				sg, err := entities.GetEntity(ctx, store.StructuralQuery{
					Filter:             store.All(store.ForEntityByEntityID(job.id), store.ForLatestEntities()),
					GraphResolveDepths: job.depths,
				})
				if err != nil {
					return fmt.Errorf("failed to resolve %s: %w", job.id, err)
				}
				if len(sg.SortedRoots()) == 0 {
					return fmt.Errorf("entity %s: %w", job.id, store.ErrEntityDoesNotExist)
				}

				_, err = util.RetryWithContext(ctx, 3, func(ctx context.Context) (struct{}, error) {
					return struct{}{}, writer.Put(ctx, job.key, sg)
				})
				if err != nil {
					return err
				}
				logger.Info("[Graphctl][Snapshot] Uploaded snapshot",
					"entity_id", job.id.String(),
					"key", job.key,
					"vertices", sg.VertexCount(),
				)
				return nil
			})
		})
	}

	return g.Wait()
}

func newSnapshotCmd(a *app) *cobra.Command {
	var (
		owner    string
		entities []string
		prefix   string
		depths   depthFlags
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Upload the subgraph around each entity to S3",
		Long: `Resolve the subgraph around the current edition of each entity and upload
it as JSON to the configured bucket under <prefix>/<owner>/<uuid>.json.

Snapshots run concurrently, up to QUERY_PARALLELISM at a time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ownedBy, err := parseOwnedByID(owner)
			if err != nil {
				return err
			}
			if len(entities) == 0 {
				return errors.New("at least one --entity is required")
			}

			resolved := depths.resolve(cmd)
			jobs := make([]snapshotJob, 0, len(entities))
			for _, e := range entities {
				entityUUID, err := parseEntityUUID(e)
				if err != nil {
					return err
				}
				id := identifier.NewEntityID(ownedBy, entityUUID)
				jobs = append(jobs, snapshotJob{
					id:     id,
					key:    storage.SnapshotKey(prefix, id),
					depths: resolved,
				})
			}

			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			snapshots, err := a.snapshots(ctx)
			if err != nil {
				return err
			}

			return runSnapshots(ctx, st, leaselock.New(a.pool), snapshots, jobs, a.cfg.QueryParallelism)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner of the snapshotted entities")
	cmd.Flags().StringSliceVar(&entities, "entity", nil, "Entity UUID to snapshot (repeatable)")
	cmd.Flags().StringVar(&prefix, "prefix", "snapshots", "Key prefix inside the bucket")
	depths.register(cmd)
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

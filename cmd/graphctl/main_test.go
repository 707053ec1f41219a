package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/OFFIS-RIT/chronograph/pkg/identifier"
	"github.com/OFFIS-RIT/chronograph/pkg/knowledge"
	"github.com/OFFIS-RIT/chronograph/pkg/leaselock"
	"github.com/OFFIS-RIT/chronograph/pkg/ontology"
	"github.com/OFFIS-RIT/chronograph/pkg/store"
	"github.com/OFFIS-RIT/chronograph/pkg/subgraph"
)

const (
	testOwner  = "00000000-0000-0000-0000-000000000001"
	testEntity = "00000000-0000-0000-0000-000000000002"
)

func TestParseEntityID(t *testing.T) {
	id, err := parseEntityID(testOwner + "%" + testEntity)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id.String() != testOwner+"%"+testEntity {
		t.Fatalf("expected id to round trip, got %s", id)
	}

	for _, s := range []string{"", testOwner, testOwner + "%nope", "nope%" + testEntity} {
		if _, err := parseEntityID(s); err == nil {
			t.Fatalf("expected %q to be rejected", s)
		}
	}
}

func TestParseDecisionTime(t *testing.T) {
	ts, err := parseDecisionTime("")
	if err != nil || ts != nil {
		t.Fatalf("expected nil timestamp for empty value, got %v, %v", ts, err)
	}

	ts, err = parseDecisionTime("2024-03-01T12:00:00Z")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	want := identifier.NewTimestamp(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	if ts == nil || ts.Compare(want) != 0 {
		t.Fatalf("expected %v, got %v", want, ts)
	}

	if _, err := parseDecisionTime("yesterday"); err == nil {
		t.Fatal("expected invalid time to be rejected")
	}
}

func TestParseProperties(t *testing.T) {
	props, err := parseProperties("")
	if err != nil || len(props) != 0 {
		t.Fatalf("expected empty properties, got %v, %v", props, err)
	}

	path := filepath.Join(t.TempDir(), "props.json")
	if err := os.WriteFile(path, []byte(`{"https://example.com/name/": "Alice"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, input := range []string{`{"https://example.com/name/": "Alice"}`, "@" + path} {
		props, err := parseProperties(input)
		if err != nil {
			t.Fatalf("expected no error for %q, got %v", input, err)
		}
		if props["https://example.com/name/"] != "Alice" {
			t.Fatalf("expected name property, got %v", props)
		}
	}

	if _, err := parseProperties(`[1, 2]`); err == nil {
		t.Fatal("expected non-object properties to be rejected")
	}
}

func TestDepthFlagsOverrideUniformDepth(t *testing.T) {
	var d depthFlags
	cmd := &cobra.Command{Use: "get"}
	d.register(cmd)

	if err := cmd.Flags().Set("depth", "2"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("right-incoming", "0"); err != nil {
		t.Fatal(err)
	}

	got := d.resolve(cmd)
	want := subgraph.UniformDepths(2)
	want.HasRightEntity.Incoming = 0
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestFilterFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   filterFlags
		wantErr bool
	}{
		{name: "everything", flags: filterFlags{}},
		{name: "bad owner", flags: filterFlags{owner: "x"}, wantErr: true},
		{name: "bad type", flags: filterFlags{entityType: "https://example.com/person"}, wantErr: true},
		{name: "bad archived", flags: filterFlags{archived: "maybe"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.flags.filter()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got filter %s", f)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !f.MatchesEverything() {
				t.Fatalf("expected filter to match everything, got %s", f)
			}
		})
	}

	f, err := (&filterFlags{owner: testOwner, latest: true, archived: "false"}).filter()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.Kind() != store.FilterAll || len(f.Filters()) != 3 {
		t.Fatalf("expected conjunction of 3 filters, got %s", f)
	}
}

func TestDecodeOntologyType(t *testing.T) {
	raw := []byte(`{
		"$id": "https://example.com/types/data-type/text/v/1",
		"kind": "dataType",
		"title": "Text",
		"type": "string"
	}`)
	dt, err := decodeOntologyType(raw)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if dt.Kind() != ontology.KindDataType || dt.ID().Version != 1 {
		t.Fatalf("expected data type v1, got %s %v", dt.Kind(), dt.ID())
	}

	if _, err := decodeOntologyType([]byte(`{"kind": "widget"}`)); err == nil {
		t.Fatal("expected unknown kind to be rejected")
	}
	if _, err := decodeOntologyType([]byte(`{"kind": "dataType", "title": "Text"}`)); err == nil {
		t.Fatal("expected missing id to be rejected")
	}
}

type fakeEntities struct {
	mu      sync.Mutex
	queries int
	missing identifier.EntityUUID
}

func (f *fakeEntities) CreateEntity(context.Context, store.CreateEntityParams) (knowledge.EntityMetadata, error) {
	return knowledge.EntityMetadata{}, errors.New("not implemented")
}

func (f *fakeEntities) UpdateEntity(context.Context, store.UpdateEntityParams) (knowledge.EntityMetadata, error) {
	return knowledge.EntityMetadata{}, errors.New("not implemented")
}

func (f *fakeEntities) GetEntity(_ context.Context, q store.StructuralQuery) (*subgraph.Subgraph, error) {
	f.mu.Lock()
	f.queries++
	f.mu.Unlock()

	sg := subgraph.New(q.GraphResolveDepths)
	id := q.Filter.Filters()[0].EntityID()
	if id.EntityUUID != f.missing {
		sg.InsertRoot(identifier.KnowledgeGraphEditionID(identifier.NewEntityEditionID(id, 1, identifier.EntityVersion{})))
	}
	return sg, nil
}

type fakeLocker struct {
	mu   sync.Mutex
	keys []string
}

func (l *fakeLocker) WithLease(ctx context.Context, key string, _ leaselock.Options, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.keys = append(l.keys, key)
	l.mu.Unlock()
	return fn(ctx)
}

type fakeWriter struct {
	mu    sync.Mutex
	puts  map[string]int
	fails int
}

func (w *fakeWriter) Put(_ context.Context, key string, _ *subgraph.Subgraph) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fails > 0 {
		w.fails--
		return errors.New("slow down")
	}
	w.puts[key]++
	return nil
}

func snapshotJobs(uuids ...identifier.EntityUUID) []snapshotJob {
	jobs := make([]snapshotJob, 0, len(uuids))
	for _, u := range uuids {
		id := identifier.NewEntityID(identifier.OwnedByID{1}, u)
		jobs = append(jobs, snapshotJob{id: id, key: "snapshots/" + u.String(), depths: subgraph.UniformDepths(1)})
	}
	return jobs
}

func TestRunSnapshotsUploadsEveryJob(t *testing.T) {
	entities := &fakeEntities{}
	locker := &fakeLocker{}
	writer := &fakeWriter{puts: make(map[string]int), fails: 1}
	jobs := snapshotJobs(identifier.EntityUUID{2}, identifier.EntityUUID{3}, identifier.EntityUUID{4})

	if err := runSnapshots(context.Background(), entities, locker, writer, jobs, 2); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if entities.queries != 3 || len(locker.keys) != 3 {
		t.Fatalf("expected 3 queries under 3 leases, got %d and %d", entities.queries, len(locker.keys))
	}
	for _, job := range jobs {
		if writer.puts[job.key] != 1 {
			t.Fatalf("expected one upload of %s, got %d", job.key, writer.puts[job.key])
		}
	}
}

func TestRunSnapshotsFailsOnMissingEntity(t *testing.T) {
	entities := &fakeEntities{missing: identifier.EntityUUID{3}}
	writer := &fakeWriter{puts: make(map[string]int)}
	jobs := snapshotJobs(identifier.EntityUUID{3})

	err := runSnapshots(context.Background(), entities, &fakeLocker{}, writer, jobs, 4)
	if !errors.Is(err, store.ErrEntityDoesNotExist) {
		t.Fatalf("expected ErrEntityDoesNotExist, got %v", err)
	}
	if len(writer.puts) != 0 {
		t.Fatalf("expected no uploads, got %v", writer.puts)
	}
}

func TestCommandTree(t *testing.T) {
	a := &app{}
	for _, cmd := range []*cobra.Command{newMigrateCmd(a), newGetCmd(a), newSnapshotCmd(a), newTypeCmd(a), newEntityCmd(a)} {
		if cmd.Use == "" || cmd.Short == "" {
			t.Fatalf("expected usage for %q", cmd.Name())
		}
	}

	entity := newEntityCmd(a)
	var names []string
	for _, c := range entity.Commands() {
		names = append(names, c.Name())
	}
	if strings.Join(names, ",") != "create,update" {
		t.Fatalf("expected create and update subcommands, got %v", names)
	}
}

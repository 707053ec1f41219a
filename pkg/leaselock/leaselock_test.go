package leaselock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type row struct {
	value string
	err   error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.value
	return nil
}

// memoryLocks emulates graph_locks without expiry.
type memoryLocks struct {
	mu     sync.Mutex
	owners map[string]string
}

func newMemoryLocks() *memoryLocks {
	return &memoryLocks{owners: make(map[string]string)}
}

func (m *memoryLocks) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, owner := args[0].(string), args[1].(string)
	if strings.Contains(sql, "DELETE") && m.owners[key] == owner {
		delete(m.owners, key)
	}
	return pgconn.NewCommandTag("DELETE 1"), nil
}

func (m *memoryLocks) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, owner := args[0].(string), args[1].(string)
	current, held := m.owners[key]
	switch {
	case strings.Contains(sql, "INSERT"):
		if held && current != owner {
			return row{err: pgx.ErrNoRows}
		}
		m.owners[key] = owner
		return row{value: key}
	default:
		if !held || current != owner {
			return row{err: pgx.ErrNoRows}
		}
		return row{value: key}
	}
}

func (m *memoryLocks) steal(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[key] = "someone-else"
}

func TestAcquireIsExclusive(t *testing.T) {
	locks := newMemoryLocks()
	l := New(locks)
	ctx := context.Background()

	lease, err := l.Acquire(ctx, "snapshot/a", Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, err := l.Acquire(ctx, "snapshot/a", Options{}); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if _, err := l.Acquire(ctx, "snapshot/b", Options{}); err != nil {
		t.Fatalf("expected other key to be free, got %v", err)
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("expected release, got %v", err)
	}
	if !errors.Is(lease.Err(), context.Canceled) {
		t.Fatalf("expected released lease to be cancelled, got %v", lease.Err())
	}
	if _, err := l.Acquire(ctx, "snapshot/a", Options{}); err != nil {
		t.Fatalf("expected key to be free after release, got %v", err)
	}
}

func TestAcquireWaits(t *testing.T) {
	locks := newMemoryLocks()
	l := New(locks)
	ctx := context.Background()

	first, err := l.Acquire(ctx, "snapshot", Options{})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = first.Release(context.Background())
	}()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	second, err := l.Acquire(ctx, "snapshot", Options{Wait: true, WaitInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("expected waiting acquire to succeed, got %v", err)
	}
	if second.Owner == first.Owner {
		t.Fatal("expected a fresh owner token per lease")
	}
}

func TestLeaseLostOnRenewal(t *testing.T) {
	locks := newMemoryLocks()
	l := New(locks)

	lease, err := l.Acquire(context.Background(), "snapshot", Options{TTL: time.Second, RenewEvery: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if lease.Err() != nil {
		t.Fatalf("expected held lease, got %v", lease.Err())
	}
	locks.steal("snapshot")

	select {
	case <-lease.Context().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("expected lease context to be cancelled")
	}
	if !errors.Is(lease.Err(), ErrLost) {
		t.Fatalf("expected ErrLost, got %v", lease.Err())
	}
}

func TestWithLeaseReleases(t *testing.T) {
	locks := newMemoryLocks()
	l := New(locks)

	ran := false
	err := l.WithLease(context.Background(), "snapshot", Options{}, func(ctx context.Context) error {
		ran = true
		return ctx.Err()
	})
	if err != nil || !ran {
		t.Fatalf("expected fn to run, got ran=%t err=%v", ran, err)
	}
	if len(locks.owners) != 0 {
		t.Fatalf("expected lock to be released, got %v", locks.owners)
	}

	if _, err := l.Acquire(context.Background(), "", Options{}); err == nil {
		t.Fatal("expected empty key to fail")
	}
}

package pgx

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/OFFIS-RIT/chronograph/pkg/store"
)

// fakeRow assigns scripted values to scan destinations of the same type.
// A nil value leaves the zero value.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("expected %d scan destinations, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()
		if r.values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		value := reflect.ValueOf(r.values[i])
		if !value.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("column %d: cannot assign %s to %s", i, value.Type(), target.Type())
		}
		target.Set(value)
	}
	return nil
}

type fakeRows struct {
	rows []fakeRow
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgxv5.Conn                            { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return r.rows[r.pos-1].Scan(dest...)
}

func (r *fakeRows) Values() ([]any, error) {
	return r.rows[r.pos-1].values, nil
}

// fakeConn serves QueryRow and Query from scripts in call order and records
// every statement.
type fakeConn struct {
	mu        sync.Mutex
	rows      []fakeRow
	results   []*fakeRows
	execErr   error
	sql       []string
	args      [][]any
	begun     int
	isoLevels []pgxv5.TxIsoLevel
	committed int
	rolled    int
}

func (c *fakeConn) record(sql string, args []any) {
	c.sql = append(c.sql, sql)
	c.args = append(c.args, args)
}

func (c *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(sql, args)
	if c.execErr != nil {
		return pgconn.CommandTag{}, c.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) (pgxv5.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(sql, args)
	if len(c.results) == 0 {
		return nil, errors.New("unexpected query")
	}
	rows := c.results[0]
	c.results = c.results[1:]
	return rows, nil
}

func (c *fakeConn) QueryRow(_ context.Context, sql string, args ...any) pgxv5.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(sql, args)
	if len(c.rows) == 0 {
		return fakeRow{err: errors.New("unexpected query row")}
	}
	row := c.rows[0]
	c.rows = c.rows[1:]
	return row
}

func (c *fakeConn) Begin(context.Context) (pgxv5.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.begun++
	return &fakeTx{conn: c}, nil
}

func (c *fakeConn) BeginTx(ctx context.Context, opts pgxv5.TxOptions) (pgxv5.Tx, error) {
	c.mu.Lock()
	c.isoLevels = append(c.isoLevels, opts.IsoLevel)
	c.mu.Unlock()
	return c.Begin(ctx)
}

// count returns how many recorded statements contain fragment.
func (c *fakeConn) count(fragment string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, sql := range c.sql {
		if strings.Contains(sql, fragment) {
			n++
		}
	}
	return n
}

// argsOf returns the arguments of the last statement containing fragment.
func (c *fakeConn) argsOf(fragment string) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sql) - 1; i >= 0; i-- {
		if strings.Contains(c.sql[i], fragment) {
			return c.args[i]
		}
	}
	return nil
}

// fakeTx forwards statements to its connection. Methods the store never
// calls are left to the embedded nil interface.
type fakeTx struct {
	pgxv5.Tx
	conn *fakeConn
	done bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.conn.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgxv5.Rows, error) {
	return t.conn.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgxv5.Row {
	return t.conn.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	if t.done {
		return pgxv5.ErrTxClosed
	}
	t.done = true
	t.conn.committed++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	if t.done {
		return pgxv5.ErrTxClosed
	}
	t.done = true
	t.conn.rolled++
	return nil
}

type recordingSink struct {
	events []store.EntityEvent
	err    error
}

func (s *recordingSink) Publish(_ context.Context, event store.EntityEvent) error {
	s.events = append(s.events, event)
	return s.err
}

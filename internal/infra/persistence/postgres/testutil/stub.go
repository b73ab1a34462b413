// Package testutil provides a stub database/sql driver that understands the
// statements the postgres record store issues.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var stubSeq atomic.Int64

// StubRecord is one row of the stubbed records table.
type StubRecord struct {
	Kind      string
	ID        string
	OwnerID   string
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StubConn records statements and keeps the records table in memory.
type StubConn struct {
	mu         sync.Mutex
	Execs      []string
	Records    []StubRecord
	FailExec   bool
	FailPing   bool
	FailBegin  bool
	FailCommit bool
	FailQuery  bool
}

// NewStubDB registers a uniquely named driver and opens a sql.DB on it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Statements returns a copy of the executed statements.
func (c *StubConn) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Execs...)
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	return &stubTx{conn: c}, nil
}

func normalize(query string) string {
	return strings.ToUpper(strings.Join(strings.Fields(query), " "))
}

func str(v driver.NamedValue) string {
	s, _ := v.Value.(string)
	return s
}

func ts(v driver.NamedValue) time.Time {
	t, _ := v.Value.(time.Time)
	return t
}

func bytesOf(v driver.NamedValue) []byte {
	switch b := v.Value.(type) {
	case []byte:
		return append([]byte(nil), b...)
	case string:
		return []byte(b)
	}
	return nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	q := normalize(query)
	switch {
	case strings.HasPrefix(q, "INSERT INTO RECORDS"):
		if len(args) != 6 {
			return nil, fmt.Errorf("insert expects 6 args, got %d", len(args))
		}
		for _, r := range c.Records {
			if r.Kind == str(args[0]) && r.ID == str(args[1]) {
				return nil, fmt.Errorf("duplicate key value violates unique constraint")
			}
		}
		c.Records = append(c.Records, StubRecord{
			Kind: str(args[0]), ID: str(args[1]), OwnerID: str(args[2]),
			Payload: bytesOf(args[3]), CreatedAt: ts(args[4]), UpdatedAt: ts(args[5]),
		})
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(q, "UPDATE RECORDS"):
		kind, id := str(args[2]), str(args[3])
		for i, r := range c.Records {
			if r.Kind == kind && r.ID == id {
				c.Records[i].Payload = bytesOf(args[0])
				c.Records[i].UpdatedAt = ts(args[1])
				return driver.RowsAffected(1), nil
			}
		}
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(q, "DELETE FROM RECORDS"):
		kind, id := str(args[0]), str(args[1])
		for i, r := range c.Records {
			if r.Kind == kind && r.ID == id {
				c.Records = append(c.Records[:i], c.Records[i+1:]...)
				return driver.RowsAffected(1), nil
			}
		}
		return driver.RowsAffected(0), nil
	}
	return driver.RowsAffected(0), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailQuery {
		return nil, fmt.Errorf("query fail")
	}
	q := normalize(query)
	if !strings.Contains(q, "FROM RECORDS") {
		return nil, fmt.Errorf("unsupported query: %s", query)
	}
	kind := str(args[0])
	byID := strings.Contains(q, "AND ID =")
	byOwner := strings.Contains(q, "AND OWNER_ID =")
	out := &stubRows{}
	if byID {
		out.cols = []string{"owner_id", "payload", "created_at", "updated_at"}
	} else {
		out.cols = []string{"id", "owner_id", "payload", "created_at", "updated_at"}
	}
	for _, r := range c.Records {
		if r.Kind != kind {
			continue
		}
		if byID && r.ID != str(args[1]) {
			continue
		}
		if byOwner && r.OwnerID != str(args[1]) {
			continue
		}
		payload := append([]byte(nil), r.Payload...)
		if byID {
			out.rows = append(out.rows, []driver.Value{r.OwnerID, payload, r.CreatedAt, r.UpdatedAt})
		} else {
			out.rows = append(out.rows, []driver.Value{r.ID, r.OwnerID, payload, r.CreatedAt, r.UpdatedAt})
		}
	}
	return out, nil
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		return fmt.Errorf("commit fail")
	}
	return nil
}

func (t *stubTx) Rollback() error { return nil }

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

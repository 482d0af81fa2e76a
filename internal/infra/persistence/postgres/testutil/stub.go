// Package testutil provides an in-memory database/sql driver that understands
// the handful of statements the postgres results store issues, so store tests
// run without a live server.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
)

var stubSeq uint64

// StubConn records executed statements and keeps outcome rows and state
// buckets in memory.
type StubConn struct {
	Execs []string

	Outcomes []StubOutcome
	State    map[string][]byte

	FailPing   bool
	FailExec   bool
	FailBegin  bool
	FailCommit bool
	FailQuery  bool
}

// StubOutcome mirrors one row of the outcomes table.
type StubOutcome struct {
	Year      int64
	ID        int64
	CHD       int64
	Mortality int64
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{State: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", atomic.AddUint64(&stubSeq, 1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
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

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	norm := normalize(query)
	switch {
	case strings.HasPrefix(norm, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(norm, "INSERT INTO OUTCOMES"):
		if len(args) != 4 {
			return nil, fmt.Errorf("outcomes insert expects 4 args, got %d", len(args))
		}
		c.Outcomes = append(c.Outcomes, StubOutcome{
			Year:      asInt64(args[0].Value),
			ID:        asInt64(args[1].Value),
			CHD:       asInt64(args[2].Value),
			Mortality: asInt64(args[3].Value),
		})
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(norm, "INSERT INTO STATE"):
		if len(args) != 2 {
			return nil, fmt.Errorf("state upsert expects 2 args, got %d", len(args))
		}
		bucket, _ := args[0].Value.(string)
		payload, _ := args[1].Value.([]byte)
		cp := make([]byte, len(payload))
		copy(cp, payload)
		c.State[bucket] = cp
		return driver.RowsAffected(1), nil
	}
	return driver.RowsAffected(0), nil
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if c.FailQuery {
		return nil, fmt.Errorf("query fail")
	}
	norm := normalize(query)
	switch {
	case strings.HasPrefix(norm, "SELECT COUNT(*) FROM OUTCOMES WHERE YEAR"):
		year := asInt64(args[0].Value)
		var n int64
		for _, row := range c.Outcomes {
			if row.Year == year {
				n++
			}
		}
		return &stubRows{cols: []string{"count"}, rows: [][]driver.Value{{n}}}, nil
	case strings.HasPrefix(norm, "SELECT YEAR, INDIVIDUAL_ID, CHD, MORTALITY FROM OUTCOMES"):
		rows := append([]StubOutcome(nil), c.Outcomes...)
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].Year != rows[j].Year {
				return rows[i].Year < rows[j].Year
			}
			return rows[i].ID < rows[j].ID
		})
		values := make([][]driver.Value, 0, len(rows))
		for _, row := range rows {
			values = append(values, []driver.Value{row.Year, row.ID, row.CHD, row.Mortality})
		}
		return &stubRows{cols: []string{"year", "individual_id", "chd", "mortality"}, rows: values}, nil
	case strings.HasPrefix(norm, "SELECT YEAR, COUNT(*), AVG(CHD), AVG(MORTALITY) FROM OUTCOMES"):
		type agg struct {
			count     int64
			chd       int64
			mortality int64
		}
		byYear := map[int64]*agg{}
		var years []int64
		for _, row := range c.Outcomes {
			a, ok := byYear[row.Year]
			if !ok {
				a = &agg{}
				byYear[row.Year] = a
				years = append(years, row.Year)
			}
			a.count++
			a.chd += row.CHD
			a.mortality += row.Mortality
		}
		sort.Slice(years, func(i, j int) bool { return years[i] < years[j] })
		values := make([][]driver.Value, 0, len(years))
		for _, year := range years {
			a := byYear[year]
			values = append(values, []driver.Value{
				year, a.count,
				float64(a.chd) / float64(a.count),
				float64(a.mortality) / float64(a.count),
			})
		}
		return &stubRows{cols: []string{"year", "count", "avg_chd", "avg_mortality"}, rows: values}, nil
	case strings.HasPrefix(norm, "SELECT PAYLOAD FROM STATE WHERE BUCKET"):
		bucket, _ := args[0].Value.(string)
		payload, ok := c.State[bucket]
		if !ok {
			return &stubRows{cols: []string{"payload"}}, nil
		}
		return &stubRows{cols: []string{"payload"}, rows: [][]driver.Value{{payload}}}, nil
	}
	return nil, fmt.Errorf("unexpected query: %s", query)
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

func normalize(query string) string {
	return strings.ToUpper(strings.Join(strings.Fields(query), " "))
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

package repository

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sync"
	"testing"
)

// stubDriver はDB接続なしでSQL構築とエラー処理経路を検証するための
// database/sqlドライバ。接続名ごとに登録済みのstubConnを返す。
type stubDriver struct{}

var stubConns = struct {
	mu sync.Mutex
	m  map[string]*stubConn
}{m: make(map[string]*stubConn)}

func init() {
	sql.Register("fritter-stub", stubDriver{})
}

func (stubDriver) Open(name string) (driver.Conn, error) {
	stubConns.mu.Lock()
	defer stubConns.mu.Unlock()
	conn, ok := stubConns.m[name]
	if !ok {
		return nil, fmt.Errorf("unknown stub connection: %s", name)
	}
	return conn, nil
}

// openStubDB はstubConnをテスト名で登録し、それに接続する*sql.DBを返す。
func openStubDB(t *testing.T, conn *stubConn) *sql.DB {
	t.Helper()
	stubConns.mu.Lock()
	stubConns.m[t.Name()] = conn
	stubConns.mu.Unlock()

	db, err := sql.Open("fritter-stub", t.Name())
	if err != nil {
		t.Fatalf("sql.Open returned error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// capturedQuery は実行されたSQLとバインド済み引数の記録。
type capturedQuery struct {
	sql  string
	args []driver.Value
}

// stubRowsDef はQuery1回分の応答（列名と行）。
type stubRowsDef struct {
	columns []string
	rows    [][]driver.Value
}

// stubConn は実行されたクエリを記録し、設定に応じた結果を返す接続。
// execErrが設定されていればExec/Queryはそれを返す。Queryはresultsを
// 呼び出し順に消費し、尽きた後は空の結果を返す。
type stubConn struct {
	mu           sync.Mutex
	execErr      error
	rowsAffected int64
	results      []stubRowsDef

	queries []capturedQuery
}

func (c *stubConn) Prepare(query string) (driver.Stmt, error) {
	return &stubStmt{conn: c, query: query}, nil
}
func (c *stubConn) Close() error              { return nil }
func (c *stubConn) Begin() (driver.Tx, error) { return stubTx{}, nil }

func (c *stubConn) record(query string, args []driver.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, capturedQuery{sql: query, args: args})
}

// lastQuery は最後に実行されたクエリの記録を返す。
func (c *stubConn) lastQuery(t *testing.T) capturedQuery {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queries) == 0 {
		t.Fatal("expected at least one executed query")
	}
	return c.queries[len(c.queries)-1]
}

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

type stubStmt struct {
	conn  *stubConn
	query string
}

func (s *stubStmt) Close() error  { return nil }
func (s *stubStmt) NumInput() int { return -1 }

func (s *stubStmt) Exec(args []driver.Value) (driver.Result, error) {
	s.conn.record(s.query, args)
	if s.conn.execErr != nil {
		return nil, s.conn.execErr
	}
	return driver.RowsAffected(s.conn.rowsAffected), nil
}

func (s *stubStmt) Query(args []driver.Value) (driver.Rows, error) {
	s.conn.record(s.query, args)
	if s.conn.execErr != nil {
		return nil, s.conn.execErr
	}
	s.conn.mu.Lock()
	defer s.conn.mu.Unlock()
	if len(s.conn.results) == 0 {
		return &stubRows{}, nil
	}
	def := s.conn.results[0]
	s.conn.results = s.conn.results[1:]
	return &stubRows{columns: def.columns, rows: def.rows}, nil
}

type stubRows struct {
	columns []string
	rows    [][]driver.Value
	pos     int
}

func (r *stubRows) Columns() []string { return r.columns }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.pos])
	r.pos++
	return nil
}

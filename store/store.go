// Package store implements the Quad Store (§4.B): the single (s, p, o,
// context, lang, datatype) table every other package compiles SQL against
// or reads rows back out of. Grounded on sparqlalchemy.py's
// SPARQLAlchemyStore (table layout, addN/remove/clear_graph/filter_quads/
// __len__/get_all_predicates semantics); driver selection is grounded on
// serv/db.go's detectDBType/initDBDriver dispatch on connection-string
// prefix, trimmed to the two engines this store actually ships drivers for.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	pkgerrors "github.com/pkg/errors"

	quadstore "github.com/gooofy/quadstore"
	"github.com/gooofy/quadstore/internal/dialect"
	"github.com/gooofy/quadstore/internal/shortcut"
	"github.com/gooofy/quadstore/term"
)

// wrapBackingStoreErr wraps a SQL error from a live store operation (as
// opposed to schema setup at Open time) with the ErrBackingStore sentinel
// and a stack trace, so callers can errors.Is against either the sentinel
// or the underlying driver error.
func wrapBackingStoreErr(err error, op string) error {
	return pkgerrors.Wrap(fmt.Errorf("%w: %w", quadstore.ErrBackingStore, err), "store: "+op)
}

// Store owns one quads table and the *sql.DB it lives in.
type Store struct {
	db       *sql.DB
	dialect  dialect.Dialect
	table    string
	resolver *shortcut.Resolver
}

// Option configures a Store at Open time.
type Option func(*Store)

// WithResolver attaches a Shortcut Resolver FilterQuads applies pattern
// terms through before matching (§4.A/§4.B).
func WithResolver(r *shortcut.Resolver) Option {
	return func(s *Store) { s.resolver = r }
}

// detectDialect mirrors serv/db.go's detectDBType: the connection string's
// scheme prefix picks the engine, defaulting to Postgres.
func detectDialect(connString string) (string, string) {
	switch {
	case strings.HasPrefix(connString, "mysql://"):
		return "mysql", strings.TrimPrefix(connString, "mysql://")
	case strings.HasPrefix(connString, "postgres://"), strings.HasPrefix(connString, "postgresql://"):
		return "postgres", connString
	default:
		return "postgres", connString
	}
}

// Open connects to the backing database, selecting the pgx or
// go-sql-driver/mysql driver from the connection string, and ensures the
// quads table and its indexes exist.
func Open(ctx context.Context, connString, table string, opts ...Option) (*Store, error) {
	dbType, dsn := detectDialect(connString)

	d, err := dialect.ForName(dbType)
	if err != nil {
		return nil, err
	}

	driverName := "mysql"
	if dbType == "postgres" {
		driverName = "pgx" // registered by the blank pgx/v5/stdlib import above
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", dbType, err)
	}
	// the backing database may still be starting up (common right after a
	// container restart), so the initial connectivity check gets a few
	// retries; every operation after this point is single-shot, per §7.
	pingErr := retry.Do(
		func() error { return db.PingContext(ctx) },
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if pingErr != nil {
		return nil, fmt.Errorf("store: connecting to %s: %w", dbType, pingErr)
	}

	s := &Store{db: db, dialect: d, table: table}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	q := s.quoteTable()
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id %s,
		s TEXT,
		p TEXT,
		o TEXT,
		context TEXT,
		lang TEXT,
		datatype TEXT
	)`, q, autoIncrementType(s.dialect.Name()))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("store: creating table: %w", err)
	}

	for i, idx := range []struct {
		name string
		cols []string
	}{
		{"s", []string{"s"}},
		{"p", []string{"p"}},
		{"o", []string{"o"}},
		{"context", []string{"context"}},
		{"lang", []string{"lang"}},
		{"spo", []string{"s", "p", "o"}},
	} {
		idxName := fmt.Sprintf("idx_%s_%d_%s", s.table, i, idx.name)
		cols := make([]string, len(idx.cols))
		for j, c := range idx.cols {
			cols[j] = s.dialect.Quote(c)
		}
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
			s.dialect.Quote(idxName), q, strings.Join(cols, ", "))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: creating index %s: %w", idxName, err)
		}
	}
	return nil
}

func autoIncrementType(dialectName string) string {
	if dialectName == "mysql" {
		return "INTEGER PRIMARY KEY AUTO_INCREMENT"
	}
	return "SERIAL PRIMARY KEY"
}

func (s *Store) quoteTable() string { return s.dialect.Quote(s.table) }

// DB exposes the underlying *sql.DB for callers (e.g. the compiler) that
// need to run compiled SELECT statements directly.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the dialect this store was opened with.
func (s *Store) Dialect() dialect.Dialect { return s.dialect }

// Table returns the quads table name.
func (s *Store) Table() string { return s.table }

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// resolve applies the Shortcut Resolver, when configured, to a resource
// string. Pattern terms that aren't strings (variables, already-absolute
// IRIs with no alias/prefix match) pass through unchanged.
func (s *Store) resolve(v string) string {
	if s.resolver == nil {
		return v
	}
	return s.resolver.Resolve(v)
}

// Size returns the number of quads currently stored.
func (s *Store) Size(ctx context.Context) (int64, error) {
	var n int64
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", s.quoteTable())
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, wrapBackingStoreErr(err, "counting quads")
	}
	return n, nil
}

// GetAllPredicates returns every distinct predicate IRI present in the
// store.
func (s *Store) GetAllPredicates(ctx context.Context) ([]string, error) {
	q := fmt.Sprintf("SELECT DISTINCT %s FROM %s", s.dialect.Quote("p"), s.quoteTable())
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, wrapBackingStoreErr(err, "listing predicates")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, wrapBackingStoreErr(err, "scanning predicate")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ClearGraph deletes every quad in context, or every quad in the store when
// context is empty.
func (s *Store) ClearGraph(ctx context.Context, graphContext string) error {
	q := fmt.Sprintf("DELETE FROM %s", s.quoteTable())
	args := []interface{}{}
	if graphContext != "" {
		q += fmt.Sprintf(" WHERE %s = %s", s.dialect.Quote("context"), s.dialect.Placeholder(1))
		args = append(args, graphContext)
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return wrapBackingStoreErr(err, "clearing graph")
	}
	return nil
}

// Remove deletes every quad matching the given wildcard pattern: an empty
// string in any position means "match anything" for that column.
func (s *Store) Remove(ctx context.Context, subject, predicate, object, graphContext string) error {
	q := fmt.Sprintf("DELETE FROM %s", s.quoteTable())
	var where []string
	var args []interface{}
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = %s", s.dialect.Quote(col), s.dialect.Placeholder(len(args))))
	}
	add("s", subject)
	add("p", predicate)
	add("o", object)
	add("context", graphContext)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return wrapBackingStoreErr(err, "removing quads")
	}
	return nil
}

// Quad is one input row to AddN: a subject/predicate IRI pair, an object
// term (IRI or Literal), and the named-graph context it belongs to.
type Quad struct {
	Subject   string
	Predicate string
	Object    term.Term
	Context   string
}

// AddN upserts a batch of quads: each is deleted (by its full (s, p, o,
// context) key) before being re-inserted, so the store never accumulates
// duplicate edges and readers never observe a torn update mid-batch within
// a single connection. An empty batch is a no-op, matching addN's early
// return on cnt==0.
func (s *Store) AddN(ctx context.Context, quads []Quad) error {
	if len(quads) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapBackingStoreErr(err, "beginning addN transaction")
	}
	defer tx.Rollback()

	delStmt := fmt.Sprintf("DELETE FROM %s WHERE %s = %s AND %s = %s AND %s = %s AND %s = %s",
		s.quoteTable(),
		s.dialect.Quote("s"), s.dialect.Placeholder(1),
		s.dialect.Quote("p"), s.dialect.Placeholder(2),
		s.dialect.Quote("o"), s.dialect.Placeholder(3),
		s.dialect.Quote("context"), s.dialect.Placeholder(4),
	)
	insStmt := fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s, %s, %s) VALUES (%s, %s, %s, %s, %s, %s)",
		s.quoteTable(),
		s.dialect.Quote("s"), s.dialect.Quote("p"), s.dialect.Quote("o"),
		s.dialect.Quote("context"), s.dialect.Quote("lang"), s.dialect.Quote("datatype"),
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
		s.dialect.Placeholder(4), s.dialect.Placeholder(5), s.dialect.Placeholder(6),
	)

	for _, q := range quads {
		o, lang, datatype := term.ToStored(q.Object)

		if _, err := tx.ExecContext(ctx, delStmt, q.Subject, q.Predicate, o, q.Context); err != nil {
			return wrapBackingStoreErr(err, "deleting existing quad before insert")
		}
		var langArg, dtArg interface{}
		if lang != "" {
			langArg = lang
		}
		if datatype != "" {
			dtArg = datatype
		}
		if _, err := tx.ExecContext(ctx, insStmt, q.Subject, q.Predicate, o, q.Context, langArg, dtArg); err != nil {
			return wrapBackingStoreErr(err, "inserting quad")
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapBackingStoreErr(err, "committing addN transaction")
	}
	return nil
}

// FilterQuads returns quads matching a wildcard pattern; each non-empty
// pattern term is resolved through the Shortcut Resolver before matching,
// exactly as a SPARQL BGP's IRI constants are expected to have been
// pre-resolved.
func (s *Store) FilterQuads(ctx context.Context, subject, predicate, object, graphContext string) ([]Quad, error) {
	subject = s.resolve(subject)
	predicate = s.resolve(predicate)
	object = s.resolve(object)

	q := fmt.Sprintf("SELECT %s, %s, %s, %s, %s, %s FROM %s",
		s.dialect.Quote("s"), s.dialect.Quote("p"), s.dialect.Quote("o"),
		s.dialect.Quote("context"), s.dialect.Quote("lang"), s.dialect.Quote("datatype"),
		s.quoteTable())

	var where []string
	var args []interface{}
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = %s", s.dialect.Quote(col), s.dialect.Placeholder(len(args))))
	}
	add("s", subject)
	add("p", predicate)
	add("o", object)
	add("context", graphContext)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, wrapBackingStoreErr(err, "filtering quads")
	}
	defer rows.Close()

	var out []Quad
	for rows.Next() {
		var sub, pred, obj, ctx2 string
		var lang, dt sql.NullString
		if err := rows.Scan(&sub, &pred, &obj, &ctx2, &lang, &dt); err != nil {
			return nil, wrapBackingStoreErr(err, "scanning quad")
		}
		out = append(out, Quad{
			Subject:   sub,
			Predicate: pred,
			Object:    term.FromStored(obj, lang.String, dt.String),
			Context:   ctx2,
		})
	}
	return out, rows.Err()
}

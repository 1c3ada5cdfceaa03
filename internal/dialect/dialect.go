// Package dialect captures the small set of differences between the SQL
// engines quadstore's store/compiler packages support: parameter
// placeholder syntax and identifier quoting. Trimmed down from GraphJin's
// seven-dialect internal/dialect package (core/internal/psql's NewCompiler
// switch) to the two engines this store's driver set (pgx, go-sql-driver/mysql)
// actually exercises.
package dialect

import "fmt"

// Dialect abstracts the handful of engine-specific rendering decisions the
// store and compiler packages need.
type Dialect interface {
	// Name identifies the dialect, e.g. "postgres" or "mysql".
	Name() string
	// Placeholder renders the nth (1-based) bound parameter placeholder.
	Placeholder(n int) string
	// Quote quotes a SQL identifier (table/column name).
	Quote(ident string) string
}

// Postgres uses $1, $2, ... placeholders and double-quoted identifiers.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Postgres) Quote(ident string) string { return `"` + ident + `"` }

// MySQL uses ? placeholders (positional, not numbered) and backtick-quoted
// identifiers.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) Quote(ident string) string { return "`" + ident + "`" }

// ForName resolves a Dialect by configured db_type, defaulting to Postgres
// the way GraphJin's psql.NewCompiler defaults to its PostgresDialect.
func ForName(name string) (Dialect, error) {
	switch name {
	case "", "postgres", "postgresql":
		return Postgres{}, nil
	case "mysql", "mariadb":
		return MySQL{}, nil
	default:
		return nil, fmt.Errorf("dialect: unsupported db type %q", name)
	}
}

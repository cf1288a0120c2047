package store

import "fmt"

// Dialect abstracts database-specific SQL generation and behavior. The query
// compiler emits its fragments (concatenated label expressions, NULL
// coalescing, case-insensitive LIKE, date rendering) through these methods so
// the same compiled plan runs on PostgreSQL and SQLite.
type Dialect interface {
	// Name returns "postgres" or "sqlite".
	Name() string

	// DriverName returns the database/sql driver name ("pgx" or "sqlite").
	DriverName() string

	// Placeholder returns the parameter placeholder for the given 1-based index.
	Placeholder(index int) string

	// NewParamBuilder creates a dialect-aware parameter builder.
	NewParamBuilder() ParamBuilder

	// NowExpr returns the SQL expression for the current timestamp.
	NowExpr() string

	// ConcatWS joins the given SQL expressions into one string expression.
	ConcatWS(parts []string) string

	// IfNull coalesces a possibly-NULL expression to the empty string.
	IfNull(expr string) string

	// LikeExpr builds a case-insensitive substring predicate against expr,
	// binding the pattern through pb.
	LikeExpr(expr string, pb ParamBuilder, pattern string) string

	// DateFormatExpr renders a timestamp column as dd-mm-yyyy text.
	DateFormatExpr(col string) string

	// SystemTablesSQL returns the DDL for the engine's system tables.
	SystemTablesSQL() string

	// MapError inspects a driver error and returns a sentinel error if applicable.
	MapError(err error) error

	// NeedsBoolFix returns true if boolean columns come back as integers (SQLite).
	NeedsBoolFix() bool
}

// ParamBuilder accumulates query parameters and generates dialect-specific
// placeholders.
type ParamBuilder interface {
	// Add appends a value and returns the placeholder string.
	Add(v any) string

	// Params returns all accumulated parameter values.
	Params() []any

	// Count returns the number of parameters added so far.
	Count() int
}

// NewDialect creates a Dialect for the given driver name.
func NewDialect(driver string) Dialect {
	switch driver {
	case "sqlite":
		return &SQLiteDialect{}
	default:
		return &PostgresDialect{}
	}
}

// --- PostgreSQL ParamBuilder ---

type pgParamBuilder struct {
	params []any
	n      int
}

func (p *pgParamBuilder) Add(v any) string {
	p.n++
	p.params = append(p.params, v)
	return fmt.Sprintf("$%d", p.n)
}

func (p *pgParamBuilder) Params() []any { return p.params }
func (p *pgParamBuilder) Count() int    { return p.n }

// --- SQLite ParamBuilder ---

type sqliteParamBuilder struct {
	params []any
	n      int
}

func (p *sqliteParamBuilder) Add(v any) string {
	p.n++
	p.params = append(p.params, v)
	return fmt.Sprintf("?%d", p.n)
}

func (p *sqliteParamBuilder) Params() []any { return p.params }
func (p *sqliteParamBuilder) Count() int    { return p.n }

package store

import (
	"fmt"
	"strings"
)

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) Placeholder(index int) string {
	return fmt.Sprintf("?%d", index)
}

func (d *SQLiteDialect) NewParamBuilder() ParamBuilder {
	return &sqliteParamBuilder{}
}

func (d *SQLiteDialect) NowExpr() string    { return "datetime('now')" }
func (d *SQLiteDialect) NeedsBoolFix() bool { return true }

// ConcatWS chains || instead; SQLite has no CONCAT_WS. Every part is either a
// literal or already NULL-coalesced, so the chain cannot null out.
func (d *SQLiteDialect) ConcatWS(parts []string) string {
	return "(" + strings.Join(parts, " || ") + ")"
}

func (d *SQLiteDialect) IfNull(expr string) string {
	return fmt.Sprintf("IFNULL(%s, '')", expr)
}

// LikeExpr relies on SQLite LIKE being case-insensitive for ASCII.
func (d *SQLiteDialect) LikeExpr(expr string, pb ParamBuilder, pattern string) string {
	return fmt.Sprintf("%s LIKE %s", expr, pb.Add(pattern))
}

func (d *SQLiteDialect) DateFormatExpr(col string) string {
	return fmt.Sprintf("strftime('%%d-%%m-%%Y', %s)", col)
}

func (d *SQLiteDialect) SystemTablesSQL() string {
	return sqliteSystemTablesSQL
}

func (d *SQLiteDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	return err
}

const sqliteSystemTablesSQL = `
CREATE TABLE IF NOT EXISTS users (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    email       TEXT NOT NULL UNIQUE,
    password    TEXT NOT NULL,
    role        TEXT NOT NULL DEFAULT 'user',
    created_at  TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS records (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    model       TEXT NOT NULL,
    element_id  TEXT NOT NULL,
    action      TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_records_target ON records (model, element_id);
`

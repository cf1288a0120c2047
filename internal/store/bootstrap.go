package store

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Bootstrap creates the engine's system tables (users, audit records) if they
// do not exist. Entity tables themselves are owned by external migrations.
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, stmt := range splitStatements(s.Dialect.SystemTablesSQL()) {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap system tables: %w", err)
		}
	}
	log.Println("System tables ready")
	return nil
}

func splitStatements(ddl string) []string {
	var stmts []string
	for _, stmt := range strings.Split(ddl, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgxpool.Pool and *pgx.Conn.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// SchemaStatements returns the DDL for the securities and prices tables.
func SchemaStatements(securitiesTable, pricesTable string) []string {
	securities := QuoteIdent(securitiesTable)
	prices := QuoteIdent(pricesTable)
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id   BIGINT PRIMARY KEY,
	name TEXT NOT NULL
)`, securities),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	security_id BIGINT NOT NULL,
	ask         DOUBLE PRECISION NOT NULL,
	bid         DOUBLE PRECISION NOT NULL,
	px_last     DOUBLE PRECISION NOT NULL,
	date_time   TIMESTAMPTZ NOT NULL
)`, prices),
	}
}

// EnsureSchema creates the store tables if they do not exist.
func EnsureSchema(ctx context.Context, db Execer, securitiesTable, pricesTable string) error {
	for _, stmt := range SchemaStatements(securitiesTable, pricesTable) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// QuoteIdent quotes a possibly schema-qualified table name.
func QuoteIdent(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

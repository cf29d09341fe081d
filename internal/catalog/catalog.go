package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/refdata-normalizer/internal/database"
	"github.com/rickgao/refdata-normalizer/internal/model"
)

// DefaultTable is the securities table name.
const DefaultTable = "securities"

// Catalog is an immutable, already-materialized list of securities.
type Catalog struct {
	securities []model.Security
	byName     map[string]model.Security
}

// New builds a catalog from securities, preserving their order.
func New(securities []model.Security) *Catalog {
	c := &Catalog{
		securities: make([]model.Security, len(securities)),
		byName:     make(map[string]model.Security, len(securities)),
	}
	copy(c.securities, securities)
	for _, s := range securities {
		if _, ok := c.byName[s.Name]; !ok {
			c.byName[s.Name] = s
		}
	}
	return c
}

// List returns the securities in load order.
func (c *Catalog) List() []model.Security {
	out := make([]model.Security, len(c.securities))
	copy(out, c.securities)
	return out
}

// Lookup resolves a service name by exact match.
func (c *Catalog) Lookup(name string) (model.Security, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// Len returns the number of securities.
func (c *Catalog) Len() int {
	return len(c.securities)
}

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store reads the catalog from the database.
type Store struct {
	db     Querier
	table  string
	logger *slog.Logger
}

// NewStore creates a catalog store. table may be schema-qualified ("dbo.securities").
func NewStore(db Querier, table string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if table == "" {
		table = DefaultTable
	}
	return &Store{
		db:     db,
		table:  table,
		logger: logger.With("component", "catalog"),
	}
}

// Load reads every (id, name) row.
func (s *Store) Load(ctx context.Context) (*Catalog, error) {
	sql := fmt.Sprintf("SELECT id, name FROM %s ORDER BY id", database.QuoteIdent(s.table))

	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query securities: %w", err)
	}

	securities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Security, error) {
		var sec model.Security
		err := row.Scan(&sec.ID, &sec.Name)
		return sec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan securities: %w", err)
	}

	s.logger.Info("catalog loaded", "table", s.table, "securities", len(securities))

	return New(securities), nil
}

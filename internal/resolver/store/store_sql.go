package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"

	"medadmit/internal/resolver/models"
	"medadmit/internal/resolver/normalize"
	"medadmit/internal/resolver/ports"
	"medadmit/pkg/platform/sentinel"
	txctx "medadmit/pkg/platform/tx"
)

// SQLiteSchema creates the catalog tables in SQLite.
//
//go:embed schema/sqlite.sql
var SQLiteSchema string

// PostgresSchema creates the catalog tables in PostgreSQL. The managed
// database is provisioned separately; this is used by tests.
//
//go:embed schema/postgres.sql
var PostgresSchema string

// Dialect selects placeholder and pattern-matching syntax.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const entityColumns = "e.id, e.entity_type, e.name, COALESCE(e.composite_key, ''), e.updated_at"

var placeholderRE = regexp.MustCompile(`\$(\d+)`)

// SQL is a catalog backed by database/sql.
type SQL struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQL constructs a SQL catalog over an open database.
func NewSQL(db *sql.DB, dialect Dialect) *SQL {
	return &SQL{db: db, dialect: dialect}
}

// rebind rewrites $N placeholders into ?N for SQLite.
func (s *SQL) rebind(query string) string {
	if s.dialect == DialectSQLite {
		return placeholderRE.ReplaceAllString(query, "?$1")
	}
	return query
}

func (s *SQL) FindByID(ctx context.Context, entityType models.EntityType, id string) (*models.Record, error) {
	query := s.rebind(`SELECT ` + entityColumns + ` FROM resolver_entities e WHERE e.entity_type = $1 AND e.id = $2`)
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, string(entityType), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find entity by id: %w", err)
	}
	return rec, nil
}

func (s *SQL) FindByCompositeKey(ctx context.Context, entityType models.EntityType, key string) ([]*models.Record, error) {
	query := s.rebind(`SELECT ` + entityColumns + ` FROM resolver_entities e
		WHERE e.entity_type = $1 AND e.composite_key = $2
		ORDER BY e.updated_at DESC, e.id ASC`)
	rows, err := s.db.QueryContext(ctx, query, string(entityType), key)
	if err != nil {
		return nil, fmt.Errorf("find entities by composite key: %w", err)
	}
	return collectRecords(rows)
}

func (s *SQL) FindAlias(ctx context.Context, entityType models.EntityType, alias string) (*models.Record, error) {
	query := s.rebind(`SELECT ` + entityColumns + ` FROM resolver_aliases a
		JOIN resolver_entities e ON e.id = a.entity_id AND e.entity_type = a.entity_type
		WHERE a.entity_type = $1 AND a.alias_normalized = $2`)
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, string(entityType), alias))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find alias: %w", err)
	}
	return rec, nil
}

// ListCandidates mirrors the in-memory ranking: exact name, then the number
// of matched tokens and prefix, then name, all before the LIMIT.
func (s *SQL) ListCandidates(ctx context.Context, entityType models.EntityType, filter ports.CandidateFilter) ([]*models.Record, error) {
	args := []any{string(entityType)}
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	like := func(placeholder string) string {
		if s.dialect == DialectSQLite {
			return `e.name_normalized LIKE ` + placeholder + ` ESCAPE '\'`
		}
		return "e.name_normalized LIKE " + placeholder
	}

	var conds, ranks []string
	if len(filter.Tokens) > 0 {
		patterns := make([]string, len(filter.Tokens))
		for i, tok := range filter.Tokens {
			patterns[i] = "%" + escapeLike(tok) + "%"
		}
		if s.dialect == DialectPostgres {
			conds = append(conds, "e.name_normalized LIKE ANY("+bind(pq.Array(patterns))+")")
		}
		for _, p := range patterns {
			ph := bind(p)
			if s.dialect != DialectPostgres {
				conds = append(conds, like(ph))
			}
			ranks = append(ranks, "CASE WHEN "+like(ph)+" THEN 1 ELSE 0 END")
		}
	}
	if filter.Prefix != "" {
		ph := bind(escapeLike(filter.Prefix) + "%")
		conds = append(conds, like(ph))
		ranks = append(ranks, "CASE WHEN "+like(ph)+" THEN 1 ELSE 0 END")
	}
	var order []string
	if filter.Exact != "" {
		ph := bind(filter.Exact)
		conds = append(conds, "e.name_normalized = "+ph)
		order = append(order, "CASE WHEN e.name_normalized = "+ph+" THEN 0 ELSE 1 END")
	}
	if len(ranks) > 0 {
		order = append(order, "("+strings.Join(ranks, " + ")+") DESC")
	}
	order = append(order, "e.name_normalized ASC", "e.id ASC")

	var b strings.Builder
	b.WriteString(`SELECT ` + entityColumns + ` FROM resolver_entities e WHERE e.entity_type = $1`)
	if len(conds) > 0 {
		b.WriteString(" AND (" + strings.Join(conds, " OR ") + ")")
	}
	b.WriteString(" ORDER BY " + strings.Join(order, ", "))
	b.WriteString(" LIMIT " + bind(filter.EffectiveLimit()))

	rows, err := s.db.QueryContext(ctx, s.rebind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return collectRecords(rows)
}

func (s *SQL) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

// Load inserts the seed's records and aliases in one transaction, skipping
// rows that already exist. Used to bootstrap local SQLite catalogs.
func (s *SQL) Load(ctx context.Context, seed *Seed) error {
	return txctx.Run(ctx, s.db, func(ctx context.Context) error {
		for _, e := range seed.Entities {
			rec := e.Record()
			if err := s.insertEntity(ctx, rec); err != nil {
				return err
			}
			if err := s.insertAliases(ctx, rec, e.Aliases); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQL) insertEntity(ctx context.Context, rec *models.Record) error {
	query := s.rebind(`INSERT INTO resolver_entities
		(id, entity_type, name, name_normalized, composite_key, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		ON CONFLICT (id) DO NOTHING`)
	_, err := txctx.ExecerFrom(ctx, s.db).ExecContext(ctx, query,
		rec.ID, string(rec.Type), rec.Name, normalize.Normalize(rec.Name), rec.CompositeKey, rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert entity %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQL) insertAliases(ctx context.Context, rec *models.Record, aliases []string) error {
	query := s.rebind(`INSERT INTO resolver_aliases (entity_type, alias_normalized, entity_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (entity_type, alias_normalized) DO NOTHING`)
	exec := txctx.ExecerFrom(ctx, s.db)
	for _, alias := range aliases {
		n := normalize.Normalize(alias)
		if n == "" {
			continue
		}
		if _, err := exec.ExecContext(ctx, query, string(rec.Type), n, rec.ID); err != nil {
			return fmt.Errorf("insert alias %q: %w", alias, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var rec models.Record
	var entityType string
	if err := row.Scan(&rec.ID, &entityType, &rec.Name, &rec.CompositeKey, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Type = models.EntityType(entityType)
	return &rec, nil
}

func collectRecords(rows *sql.Rows) ([]*models.Record, error) {
	defer rows.Close()
	var out []*models.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"arqueo-backend/internal/repository"
	"github.com/lib/pq"
)

// Database is the direct Postgres connection used where PostgREST has no
// equivalent: GROUP BY aggregates, cursor streaming and transactions.
type Database struct {
	db *sql.DB
}

func NewDatabase(connectionString string) (*Database, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// where renders `"col" = $1 AND ...` with placeholders starting at 1.
func where(filters []repository.Filter) (string, []interface{}) {
	clauses := make([]string, len(filters))
	args := make([]interface{}, len(filters))
	for i, f := range filters {
		clauses[i] = fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(f.Column), i+1)
		args[i] = f.Value
	}
	return strings.Join(clauses, " AND "), args
}

func (d *Database) CountBy(ctx context.Context, s repository.Scope, column string) (map[string]int, error) {
	cond, args := where(s.OwnerFilters())
	col := pq.QuoteIdentifier(column)
	query := fmt.Sprintf(
		`SELECT COALESCE(%s::text, ''), COUNT(*) FROM %s WHERE %s GROUP BY 1`,
		col, pq.QuoteIdentifier(s.Table), cond,
	)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate %s.%s: %w", s.Table, column, err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate: %w", err)
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// Stream walks the owner's rows newest first, one JSON document at a time.
func (d *Database) Stream(ctx context.Context, s repository.Scope, fn func(json.RawMessage) error) error {
	cond, args := where(s.OwnerFilters())
	query := fmt.Sprintf(
		`SELECT row_to_json(t)::text FROM %s t WHERE %s ORDER BY t."created_at" DESC`,
		pq.QuoteIdentifier(s.Table), cond,
	)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to stream %s: %w", s.Table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
		if err := fn(json.RawMessage(doc)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// WithTransaction commits when fn succeeds and rolls back otherwise.
func (d *Database) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("failed to rollback transaction: %v (original error: %w)", rollbackErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (d *Database) Atomic(ctx context.Context, fn func(repository.Tx) error) error {
	return d.WithTransaction(ctx, func(tx *sql.Tx) error {
		return fn(sqlTx{tx: tx})
	})
}

type sqlTx struct {
	tx *sql.Tx
}

func (t sqlTx) DeleteWhere(ctx context.Context, table string, filters ...repository.Filter) (int, error) {
	if len(filters) == 0 {
		return 0, fmt.Errorf("refusing unfiltered delete on %s", table)
	}
	cond, args := where(filters)
	res, err := t.tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s`, pq.QuoteIdentifier(table), cond), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (t sqlTx) Delete(ctx context.Context, s repository.Scope, id string) error {
	_, err := t.DeleteWhere(ctx, s.Table, s.OwnerFilters(repository.Filter{Column: "id", Value: id})...)
	return err
}

package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"arqueo-backend/internal/repository"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

const streamPageSize = 500

// Store implements repository.Store over PostgREST. When a direct Postgres
// connection is configured, aggregates, streaming and units of work go
// through it; otherwise they fall back to PostgREST equivalents.
type Store struct {
	client *supabase.Client
	db     *Database
	log    *zap.Logger
}

func NewStore(client *supabase.Client, db *Database, log *zap.Logger) *Store {
	return &Store{client: client, db: db, log: log}
}

func eq(fb *postgrest.FilterBuilder, filters []repository.Filter) *postgrest.FilterBuilder {
	for _, f := range filters {
		fb = fb.Eq(f.Column, f.Value)
	}
	return fb
}

func first(rows []json.RawMessage, out interface{}) error {
	if len(rows) == 0 {
		return repository.ErrNotFound
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(rows[0], out)
}

func (s *Store) Insert(_ context.Context, table string, row interface{}, out interface{}) error {
	var rows []json.RawMessage
	if _, err := s.client.From(table).Insert(row, false, "", "representation", "").ExecuteTo(&rows); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return first(rows, out)
}

func (s *Store) Get(_ context.Context, sc repository.Scope, id string, out interface{}) error {
	var rows []json.RawMessage
	q := s.client.From(sc.Table).Select("*", "", false)
	if _, err := eq(q, sc.OwnerFilters(repository.Filter{Column: "id", Value: id})).ExecuteTo(&rows); err != nil {
		return fmt.Errorf("select from %s: %w", sc.Table, err)
	}
	return first(rows, out)
}

func (s *Store) FindOne(_ context.Context, table string, filters []repository.Filter, out interface{}) error {
	var rows []json.RawMessage
	q := s.client.From(table).Select("*", "", false)
	if _, err := eq(q, filters).Limit(1, "").ExecuteTo(&rows); err != nil {
		return fmt.Errorf("select from %s: %w", table, err)
	}
	return first(rows, out)
}

func (s *Store) List(_ context.Context, sc repository.Scope, opts repository.ListOptions, out interface{}) (int, error) {
	orderBy := opts.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	q := s.client.From(sc.Table).Select("*", "exact", false)
	q = eq(q, sc.OwnerFilters(opts.Filters...)).
		Order(orderBy, &postgrest.OrderOpts{Ascending: opts.Ascending})
	if opts.Limit > 0 {
		q = q.Range(opts.Offset, opts.Offset+opts.Limit-1, "")
	}

	var rows []json.RawMessage
	total, err := q.ExecuteTo(&rows)
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", sc.Table, err)
	}
	if rows == nil {
		rows = []json.RawMessage{}
	}
	return int(total), repository.Decode(rows, out)
}

// ilikeTerm strips characters that would break the or=() grammar.
func ilikeTerm(term string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '(', ')', '"', '\\':
			return -1
		}
		return r
	}, term)
}

func (s *Store) Search(_ context.Context, sc repository.Scope, term string, columns []string, limit int, out interface{}) error {
	t := ilikeTerm(term)
	ors := make([]string, len(columns))
	for i, c := range columns {
		ors[i] = fmt.Sprintf("%s.ilike.*%s*", c, t)
	}
	q := s.client.From(sc.Table).Select("*", "", false)
	q = eq(q, sc.OwnerFilters()).
		Or(strings.Join(ors, ","), "").
		Order("created_at", &postgrest.OrderOpts{Ascending: false})
	if limit > 0 {
		q = q.Limit(limit, "")
	}

	var rows []json.RawMessage
	if _, err := q.ExecuteTo(&rows); err != nil {
		return fmt.Errorf("search %s: %w", sc.Table, err)
	}
	if rows == nil {
		rows = []json.RawMessage{}
	}
	return repository.Decode(rows, out)
}

func (s *Store) Update(_ context.Context, sc repository.Scope, id string, patch map[string]interface{}, out interface{}) error {
	var rows []json.RawMessage
	q := s.client.From(sc.Table).Update(patch, "representation", "")
	if _, err := eq(q, sc.OwnerFilters(repository.Filter{Column: "id", Value: id})).ExecuteTo(&rows); err != nil {
		return fmt.Errorf("update %s: %w", sc.Table, err)
	}
	return first(rows, out)
}

func (s *Store) deleteRows(table string, filters []repository.Filter) ([]json.RawMessage, error) {
	if len(filters) == 0 {
		return nil, fmt.Errorf("refusing unfiltered delete on %s", table)
	}
	var rows []json.RawMessage
	q := s.client.From(table).Delete("representation", "")
	if _, err := eq(q, filters).ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("delete from %s: %w", table, err)
	}
	return rows, nil
}

func (s *Store) Delete(_ context.Context, sc repository.Scope, id string) error {
	_, err := s.deleteRows(sc.Table, sc.OwnerFilters(repository.Filter{Column: "id", Value: id}))
	return err
}

func (s *Store) DeleteWhere(_ context.Context, table string, filters ...repository.Filter) (int, error) {
	rows, err := s.deleteRows(table, filters)
	return len(rows), err
}

func (s *Store) Exists(_ context.Context, sc repository.Scope, column, value string) (bool, error) {
	var rows []json.RawMessage
	q := s.client.From(sc.Table).Select("id", "", false)
	if _, err := eq(q, sc.OwnerFilters(repository.Filter{Column: column, Value: value})).Limit(1, "").ExecuteTo(&rows); err != nil {
		return false, fmt.Errorf("select from %s: %w", sc.Table, err)
	}
	return len(rows) > 0, nil
}

func (s *Store) CountBy(ctx context.Context, sc repository.Scope, column string) (map[string]int, error) {
	if s.db != nil {
		return s.db.CountBy(ctx, sc, column)
	}
	// PostgREST has no GROUP BY: fetch the single column and count here.
	var rows []map[string]interface{}
	q := s.client.From(sc.Table).Select(column, "", false)
	if _, err := eq(q, sc.OwnerFilters()).ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("aggregate %s.%s: %w", sc.Table, column, err)
	}
	counts := map[string]int{}
	for _, r := range rows {
		key := ""
		if v := r[column]; v != nil {
			key = fmt.Sprint(v)
		}
		counts[key]++
	}
	return counts, nil
}

func (s *Store) Stream(ctx context.Context, sc repository.Scope, fn func(json.RawMessage) error) error {
	if s.db != nil {
		return s.db.Stream(ctx, sc, fn)
	}
	for from := 0; ; from += streamPageSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rows []json.RawMessage
		q := s.client.From(sc.Table).Select("*", "", false)
		q = eq(q, sc.OwnerFilters()).
			Order("created_at", &postgrest.OrderOpts{Ascending: false}).
			Range(from, from+streamPageSize-1, "")
		if _, err := q.ExecuteTo(&rows); err != nil {
			return fmt.Errorf("stream %s: %w", sc.Table, err)
		}
		for _, r := range rows {
			if err := fn(r); err != nil {
				return err
			}
		}
		if len(rows) < streamPageSize {
			return nil
		}
	}
}

func (s *Store) Upsert(_ context.Context, table string, row interface{}, onConflict string, out interface{}) error {
	var rows []json.RawMessage
	if _, err := s.client.From(table).Upsert(row, onConflict, "representation", "").ExecuteTo(&rows); err != nil {
		return fmt.Errorf("upsert into %s: %w", table, err)
	}
	return first(rows, out)
}

// Atomic uses a real transaction when Postgres is reachable directly.
// Otherwise every deleted row is recorded and re-inserted, newest deletion
// first, when fn fails.
func (s *Store) Atomic(ctx context.Context, fn func(repository.Tx) error) error {
	if s.db != nil {
		return s.db.Atomic(ctx, fn)
	}
	tx := &compensatingTx{store: s}
	if err := fn(tx); err != nil {
		if cerr := tx.compensate(); cerr != nil {
			s.log.Error("compensation failed; rows may be lost",
				zap.Error(cerr),
				zap.NamedError("cause", err),
			)
			return fmt.Errorf("%w (compensation failed: %v)", err, cerr)
		}
		return err
	}
	return nil
}

type undo struct {
	table string
	rows  []json.RawMessage
}

type compensatingTx struct {
	store *Store
	log   []undo
}

func (t *compensatingTx) DeleteWhere(_ context.Context, table string, filters ...repository.Filter) (int, error) {
	rows, err := t.store.deleteRows(table, filters)
	if len(rows) > 0 {
		t.log = append(t.log, undo{table: table, rows: rows})
	}
	return len(rows), err
}

func (t *compensatingTx) Delete(ctx context.Context, sc repository.Scope, id string) error {
	_, err := t.DeleteWhere(ctx, sc.Table, sc.OwnerFilters(repository.Filter{Column: "id", Value: id})...)
	return err
}

func (t *compensatingTx) compensate() error {
	for i := len(t.log) - 1; i >= 0; i-- {
		u := t.log[i]
		if _, _, err := t.store.client.From(u.table).Insert(u.rows, false, "", "minimal", "").Execute(); err != nil {
			return fmt.Errorf("restore %d rows into %s: %w", len(u.rows), u.table, err)
		}
	}
	return nil
}

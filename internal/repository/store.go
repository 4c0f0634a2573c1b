// Package repository defines the owner-scoped data access boundary shared by
// every entity service. Implementations live here (memory) and in the
// supabase package (PostgREST plus direct Postgres).
package repository

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("record not found")

// Scope selects the rows of one table owned by one user. Every read, update
// and delete goes through a Scope, so tenancy is never left to callers.
type Scope struct {
	Table       string
	OwnerColumn string
	Owner       string
}

// Filter is an equality predicate on a column.
type Filter struct {
	Column string
	Value  string
}

type ListOptions struct {
	Filters   []Filter
	OrderBy   string
	Ascending bool
	Limit     int
	Offset    int
}

// Store is implemented by MemoryStore and supabase.Store. Rows travel as JSON
// documents: `row` arguments are marshalled and `out` arguments are decoded
// the same way the PostgREST client decodes responses.
type Store interface {
	Insert(ctx context.Context, table string, row interface{}, out interface{}) error
	Get(ctx context.Context, s Scope, id string, out interface{}) error
	// FindOne returns the first row of table matching every filter, without
	// owner scoping. Used for 1:1 rows keyed by user (profiles, context).
	FindOne(ctx context.Context, table string, filters []Filter, out interface{}) error
	List(ctx context.Context, s Scope, opts ListOptions, out interface{}) (int, error)
	Search(ctx context.Context, s Scope, term string, columns []string, limit int, out interface{}) error
	Update(ctx context.Context, s Scope, id string, patch map[string]interface{}, out interface{}) error
	Delete(ctx context.Context, s Scope, id string) error
	DeleteWhere(ctx context.Context, table string, filters ...Filter) (int, error)
	Exists(ctx context.Context, s Scope, column, value string) (bool, error)
	CountBy(ctx context.Context, s Scope, column string) (map[string]int, error)
	Stream(ctx context.Context, s Scope, fn func(json.RawMessage) error) error
	Upsert(ctx context.Context, table string, row interface{}, onConflict string, out interface{}) error
	Atomic(ctx context.Context, fn func(Tx) error) error
}

// Tx is the unit of work handed to Store.Atomic. Either every call inside fn
// takes effect or none does.
type Tx interface {
	Delete(ctx context.Context, s Scope, id string) error
	DeleteWhere(ctx context.Context, table string, filters ...Filter) (int, error)
}

// OwnerFilters returns the filters that restrict a table to the scope owner,
// followed by extra.
func (s Scope) OwnerFilters(extra ...Filter) []Filter {
	out := make([]Filter, 0, len(extra)+1)
	out = append(out, Filter{Column: s.OwnerColumn, Value: s.Owner})
	return append(out, extra...)
}

// Decode copies a JSON-compatible value into out.
func Decode(in interface{}, out interface{}) error {
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

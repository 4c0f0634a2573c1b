package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type row = map[string]interface{}

// MemoryStore keeps every table as an ordered slice of JSON rows. It backs the
// test suites and STORE_DRIVER=memory.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string][]row
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: map[string][]row{}}
}

func toRow(v interface{}) (row, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var r row
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("row must be a JSON object: %w", err)
	}
	return r, nil
}

func cell(r row, column string) (string, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		raw, _ := json.Marshal(t)
		return string(raw), true
	}
}

func matches(r row, filters []Filter) bool {
	for _, f := range filters {
		v, ok := cell(r, f.Column)
		if !ok || v != f.Value {
			return false
		}
	}
	return true
}

func scoped(s Scope, extra ...Filter) []Filter {
	return s.OwnerFilters(extra...)
}

func (m *MemoryStore) selectRows(table string, filters []Filter) []row {
	var out []row
	for _, r := range m.tables[table] {
		if matches(r, filters) {
			out = append(out, r)
		}
	}
	return out
}

func less(a, b interface{}) bool {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		at, aerr := time.Parse(time.RFC3339Nano, as)
		bt, berr := time.Parse(time.RFC3339Nano, bs)
		if aerr == nil && berr == nil {
			return at.Before(bt)
		}
		return as < bs
	}
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func sortRows(rows []row, column string, ascending bool) {
	if column == "" {
		column = "created_at"
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if ascending {
			return less(rows[i][column], rows[j][column])
		}
		return less(rows[j][column], rows[i][column])
	})
}

func (m *MemoryStore) Insert(_ context.Context, table string, v interface{}, out interface{}) error {
	r, err := toRow(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[table] = append(m.tables[table], r)
	return Decode(r, out)
}

func (m *MemoryStore) Get(_ context.Context, s Scope, id string, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.selectRows(s.Table, scoped(s, Filter{Column: "id", Value: id}))
	if len(rows) == 0 {
		return ErrNotFound
	}
	return Decode(rows[0], out)
}

func (m *MemoryStore) FindOne(_ context.Context, table string, filters []Filter, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.selectRows(table, filters)
	if len(rows) == 0 {
		return ErrNotFound
	}
	return Decode(rows[0], out)
}

func (m *MemoryStore) List(_ context.Context, s Scope, opts ListOptions, out interface{}) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.selectRows(s.Table, scoped(s, opts.Filters...))
	sortRows(rows, opts.OrderBy, opts.Ascending)
	total := len(rows)

	start := opts.Offset
	if start > total {
		start = total
	}
	end := total
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	page := rows[start:end]
	if page == nil {
		page = []row{}
	}
	return total, Decode(page, out)
}

func (m *MemoryStore) Search(_ context.Context, s Scope, term string, columns []string, limit int, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(term)
	hits := []row{}
	for _, r := range m.selectRows(s.Table, scoped(s)) {
		for _, col := range columns {
			v, ok := cell(r, col)
			if ok && strings.Contains(strings.ToLower(v), needle) {
				hits = append(hits, r)
				break
			}
		}
	}
	sortRows(hits, "created_at", false)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return Decode(hits, out)
}

func (m *MemoryStore) Update(_ context.Context, s Scope, id string, patch map[string]interface{}, out interface{}) error {
	p, err := toRow(patch)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	filters := scoped(s, Filter{Column: "id", Value: id})
	for i, r := range m.tables[s.Table] {
		if !matches(r, filters) {
			continue
		}
		next := make(row, len(r)+len(p))
		for k, v := range r {
			next[k] = v
		}
		for k, v := range p {
			next[k] = v
		}
		m.tables[s.Table][i] = next
		return Decode(next, out)
	}
	return ErrNotFound
}

func (m *MemoryStore) deleteWhere(table string, filters []Filter) int {
	kept := m.tables[table][:0:0]
	removed := 0
	for _, r := range m.tables[table] {
		if matches(r, filters) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.tables[table] = kept
	return removed
}

func (m *MemoryStore) Delete(_ context.Context, s Scope, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteWhere(s.Table, scoped(s, Filter{Column: "id", Value: id}))
	return nil
}

func (m *MemoryStore) DeleteWhere(_ context.Context, table string, filters ...Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteWhere(table, filters), nil
}

func (m *MemoryStore) Exists(_ context.Context, s Scope, column, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.selectRows(s.Table, scoped(s, Filter{Column: column, Value: value}))) > 0, nil
}

func (m *MemoryStore) CountBy(_ context.Context, s Scope, column string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, r := range m.selectRows(s.Table, scoped(s)) {
		v, _ := cell(r, column)
		counts[v]++
	}
	return counts, nil
}

func (m *MemoryStore) Stream(ctx context.Context, s Scope, fn func(json.RawMessage) error) error {
	m.mu.Lock()
	rows := m.selectRows(s.Table, scoped(s))
	m.mu.Unlock()
	sortRows(rows, "created_at", false)

	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Upsert(_ context.Context, table string, v interface{}, onConflict string, out interface{}) error {
	r, err := toRow(v)
	if err != nil {
		return err
	}
	key, ok := cell(r, onConflict)
	if !ok {
		return fmt.Errorf("upsert into %s: missing conflict column %q", table, onConflict)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.tables[table] {
		if v, ok := cell(existing, onConflict); ok && v == key {
			m.tables[table][i] = r
			return Decode(r, out)
		}
	}
	m.tables[table] = append(m.tables[table], r)
	return Decode(r, out)
}

func (m *MemoryStore) snapshot() map[string][]row {
	snap := make(map[string][]row, len(m.tables))
	for table, rows := range m.tables {
		snap[table] = append([]row(nil), rows...)
	}
	return snap
}

// Atomic runs fn with the store locked and restores the pre-call snapshot
// when fn fails. Rows are replaced, never mutated in place, so a shallow
// snapshot is enough.
func (m *MemoryStore) Atomic(_ context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(memoryTx{m}); err != nil {
		m.tables = snap
		return err
	}
	return nil
}

type memoryTx struct {
	m *MemoryStore
}

func (t memoryTx) Delete(_ context.Context, s Scope, id string) error {
	t.m.deleteWhere(s.Table, scoped(s, Filter{Column: "id", Value: id}))
	return nil
}

func (t memoryTx) DeleteWhere(_ context.Context, table string, filters ...Filter) (int, error) {
	return t.m.deleteWhere(table, filters), nil
}

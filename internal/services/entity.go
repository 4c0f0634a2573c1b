package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/events"
	"arqueo-backend/internal/forms"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
	searchLimit  = 50
	ownerColumn  = "created_by"
)

// Parent is a soft foreign key checked for existence (owned by the caller)
// whenever the column is set on create or update.
type Parent struct {
	Column string
	Table  string
	// NotFound reports a missing parent as 404 instead of 400.
	NotFound bool
}

// Definition configures an EntityService for one table.
type Definition struct {
	Entity string
	Table  string
	// Collection is the public path segment, also used for export file names.
	Collection string
	Form       string
	// Mutable is the update allow-list. created_by, id and created_at are
	// never mutable whatever this lists.
	Mutable []string
	// Filters are the query parameters List accepts as equality filters.
	Filters       []string
	SearchColumns []string
	// Stats maps a column to its fixed enum.
	Stats         map[string][]string
	ExportColumns []string
	// Geometry is set for entities with a [lat, lon] coordinates column.
	Geometry bool
	// Unique columns must not repeat among the owner's rows when non-empty.
	Unique  []string
	Parents []Parent
}

func (d Definition) scope(owner string) repository.Scope {
	return repository.Scope{Table: d.Table, OwnerColumn: ownerColumn, Owner: owner}
}

func (d Definition) mutable(field string) bool {
	switch field {
	case "id", ownerColumn, "created_at", "updated_at":
		return false
	}
	for _, f := range d.Mutable {
		if f == field {
			return true
		}
	}
	return false
}

// Entity is implemented by every model embedding models.Base.
type Entity[T any] interface {
	*T
	Meta() *models.Base
}

// EntityService implements the CRUD contract shared by every owned entity.
type EntityService[T any, PT Entity[T]] struct {
	def     Definition
	prepare func(v PT, owner string, now time.Time)
	store   repository.Store
	schema  *forms.Schema
	pub     events.Publisher
	log     *zap.Logger
	now     func() time.Time
}

func NewEntityService[T any, PT Entity[T]](
	def Definition,
	prepare func(v PT, owner string, now time.Time),
	store repository.Store,
	schema *forms.Schema,
	pub events.Publisher,
	log *zap.Logger,
) *EntityService[T, PT] {
	if prepare == nil {
		prepare = func(PT, string, time.Time) {}
	}
	return &EntityService[T, PT]{
		def:     def,
		prepare: prepare,
		store:   store,
		schema:  schema,
		pub:     pub,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *EntityService[T, PT]) Definition() Definition {
	return s.def
}

func persistence(err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return apperr.Persistence("database error", err)
}

func notFoundOr(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(what + " not found")
	}
	return persistence(err)
}

func toMap(v interface{}) (map[string]interface{}, error) {
	var m map[string]interface{}
	if err := repository.Decode(v, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeInto(values map[string]interface{}, out interface{}) error {
	raw, err := json.Marshal(values)
	if err != nil {
		return apperr.Validation("invalid body", nil)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			return apperr.Validation(fmt.Sprintf("field %s has the wrong type", te.Field), map[string]string{te.Field: "invalid type"})
		}
		return apperr.Validation("invalid body", nil)
	}
	return nil
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func (s *EntityService[T, PT]) publish(ctx context.Context, action, id, owner string) {
	e := events.Event{Entity: s.def.Entity, Action: action, ID: id, Owner: owner, At: s.now()}
	if err := s.pub.Publish(ctx, e); err != nil {
		s.log.Warn("failed to publish event",
			zap.String("routing_key", e.RoutingKey()),
			zap.String("id", id),
			zap.Error(err),
		)
	}
}

// Validate runs the entity's form over body, pre-filling parent ids from
// the context parts ("project", "area", "site") when given.
func (s *EntityService[T, PT]) Validate(body map[string]interface{}, parts map[string]string) (map[string]interface{}, error) {
	form, err := s.schema.New(s.def.Form, body)
	if err != nil {
		return nil, err
	}
	if parts != nil {
		form.Prefill(parts)
	}
	return form.Submit()
}

func (s *EntityService[T, PT]) build(values map[string]interface{}, owner string) (PT, error) {
	clean := make(map[string]interface{}, len(values))
	for k, v := range values {
		switch k {
		case "id", ownerColumn, "created_at", "updated_at":
			continue
		}
		clean[k] = v
	}
	v := PT(new(T))
	if err := decodeInto(clean, v); err != nil {
		return nil, err
	}
	now := s.now()
	s.prepare(v, owner, now)
	v.Meta().Stamp(uuid.New().String(), owner, now)
	return v, nil
}

func (s *EntityService[T, PT]) checkRefs(ctx context.Context, owner string, row map[string]interface{}, selfID string) error {
	sc := s.def.scope(owner)
	for _, col := range s.def.Unique {
		val := asString(row[col])
		if val == "" {
			continue
		}
		exists, err := s.store.Exists(ctx, sc, col, val)
		if err != nil {
			return persistence(err)
		}
		if exists && selfID == "" {
			return apperr.Conflict(fmt.Sprintf("%s %q already exists", col, val))
		}
		if exists {
			var cur map[string]interface{}
			if err := s.store.Get(ctx, sc, selfID, &cur); err != nil {
				return notFoundOr(err, s.def.Entity)
			}
			if asString(cur[col]) != val {
				return apperr.Conflict(fmt.Sprintf("%s %q already exists", col, val))
			}
		}
	}
	for _, p := range s.def.Parents {
		val := asString(row[p.Column])
		if val == "" {
			continue
		}
		ps := repository.Scope{Table: p.Table, OwnerColumn: ownerColumn, Owner: owner}
		exists, err := s.store.Exists(ctx, ps, "id", val)
		if err != nil {
			return persistence(err)
		}
		if !exists {
			msg := fmt.Sprintf("%s %s does not exist", p.Column, val)
			if p.NotFound {
				return apperr.NotFound(msg)
			}
			return apperr.Validation(msg, map[string]string{p.Column: "not found"})
		}
	}
	return nil
}

// Create validates body, applies defaults, stamps id, owner and timestamps,
// and inserts the row.
func (s *EntityService[T, PT]) Create(ctx context.Context, owner string, body map[string]interface{}, parts map[string]string) (PT, error) {
	v, row, err := s.prepareCreate(owner, body, parts)
	if err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, owner, row, ""); err != nil {
		return nil, err
	}
	out, err := s.insert(ctx, v)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.ActionCreated, out.Meta().ID, owner)
	return out, nil
}

func (s *EntityService[T, PT]) prepareCreate(owner string, body map[string]interface{}, parts map[string]string) (PT, map[string]interface{}, error) {
	values, err := s.Validate(body, parts)
	if err != nil {
		return nil, nil, err
	}
	v, err := s.build(values, owner)
	if err != nil {
		return nil, nil, err
	}
	row, err := toMap(v)
	if err != nil {
		return nil, nil, persistence(err)
	}
	return v, row, nil
}

func (s *EntityService[T, PT]) insert(ctx context.Context, v PT) (PT, error) {
	out := PT(new(T))
	if err := s.store.Insert(ctx, s.def.Table, v, out); err != nil {
		return nil, persistence(err)
	}
	return out, nil
}

func (s *EntityService[T, PT]) Get(ctx context.Context, owner, id string) (PT, error) {
	out := PT(new(T))
	if err := s.store.Get(ctx, s.def.scope(owner), id, out); err != nil {
		return nil, notFoundOr(err, s.def.Entity)
	}
	return out, nil
}

// ParsePage reads limit and offset, defaulting to 10 and 0 and capping limit.
func ParsePage(q url.Values) (limit, offset int, err error) {
	limit, offset = DefaultLimit, 0
	if raw := q.Get("limit"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 1 {
			return 0, 0, apperr.Validation("limit must be a positive integer", map[string]string{"limit": "invalid"})
		}
		limit = n
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if raw := q.Get("offset"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 0 {
			return 0, 0, apperr.Validation("offset must be a non-negative integer", map[string]string{"offset": "invalid"})
		}
		offset = n
	}
	return limit, offset, nil
}

// List applies the allow-listed equality filters found in q plus any fixed
// filters, and pages the result. Unknown parameters are ignored.
func (s *EntityService[T, PT]) List(ctx context.Context, owner string, q url.Values, fixed ...repository.Filter) ([]T, models.Pagination, error) {
	limit, offset, err := ParsePage(q)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	filters := append([]repository.Filter{}, fixed...)
	for _, col := range s.def.Filters {
		if v := q.Get(col); v != "" {
			filters = append(filters, repository.Filter{Column: col, Value: v})
		}
	}

	items := []T{}
	total, err := s.store.List(ctx, s.def.scope(owner), repository.ListOptions{
		Filters: filters,
		Limit:   limit,
		Offset:  offset,
	}, &items)
	if err != nil {
		return nil, models.Pagination{}, persistence(err)
	}
	return items, models.Pagination{Total: total, Limit: limit, Offset: offset}, nil
}

// FindBy returns the caller's row whose column equals value.
func (s *EntityService[T, PT]) FindBy(ctx context.Context, owner, column, value string) (PT, error) {
	var items []T
	_, err := s.store.List(ctx, s.def.scope(owner), repository.ListOptions{
		Filters: []repository.Filter{{Column: column, Value: value}},
		Limit:   1,
	}, &items)
	if err != nil {
		return nil, persistence(err)
	}
	if len(items) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("%s with %s %q not found", s.def.Entity, column, value))
	}
	return PT(&items[0]), nil
}

// Update merges the allow-listed fields of body into the row and stamps
// updated_at. The owner is never changed.
func (s *EntityService[T, PT]) Update(ctx context.Context, owner, id string, body map[string]interface{}) (PT, error) {
	patch := map[string]interface{}{}
	for k, v := range body {
		if s.def.mutable(k) {
			patch[k] = v
		}
	}
	if len(patch) == 0 {
		return nil, apperr.Validation("no updatable fields in request", nil)
	}
	if err := decodeInto(patch, new(T)); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, owner, id); err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, owner, patch, id); err != nil {
		return nil, err
	}
	return s.applyPatch(ctx, owner, id, patch)
}

func (s *EntityService[T, PT]) applyPatch(ctx context.Context, owner, id string, patch map[string]interface{}) (PT, error) {
	patch["updated_at"] = s.now()
	out := PT(new(T))
	if err := s.store.Update(ctx, s.def.scope(owner), id, patch, out); err != nil {
		return nil, notFoundOr(err, s.def.Entity)
	}
	s.publish(ctx, events.ActionUpdated, id, owner)
	return out, nil
}

// Delete is idempotent: a missing row is not an error.
func (s *EntityService[T, PT]) Delete(ctx context.Context, owner, id string) error {
	if err := s.store.Delete(ctx, s.def.scope(owner), id); err != nil {
		return persistence(err)
	}
	s.publish(ctx, events.ActionDeleted, id, owner)
	return nil
}

func (s *EntityService[T, PT]) Search(ctx context.Context, owner, q string) ([]T, error) {
	return s.SearchIn(ctx, owner, q, s.def.SearchColumns)
}

// SearchIn matches q as a case-insensitive substring of any of columns.
func (s *EntityService[T, PT]) SearchIn(ctx context.Context, owner, q string, columns []string) ([]T, error) {
	if q == "" {
		return nil, apperr.Validation("query parameter q is required", map[string]string{"q": "required"})
	}
	items := []T{}
	if err := s.store.Search(ctx, s.def.scope(owner), q, columns, searchLimit, &items); err != nil {
		return nil, persistence(err)
	}
	return items, nil
}

// Statistics counts the caller's rows per value of each fixed enum. Every
// enum value is present, zero when unused.
func (s *EntityService[T, PT]) Statistics(ctx context.Context, owner string) (models.Statistics, error) {
	sc := s.def.scope(owner)
	var none []T
	total, err := s.store.List(ctx, sc, repository.ListOptions{Limit: 1}, &none)
	if err != nil {
		return models.Statistics{}, persistence(err)
	}
	stats := models.Statistics{Total: total, Groups: map[string]map[string]int{}}
	for col, enum := range s.def.Stats {
		counts, err := s.store.CountBy(ctx, sc, col)
		if err != nil {
			return models.Statistics{}, persistence(err)
		}
		group := make(map[string]int, len(enum))
		for _, v := range enum {
			group[v] = counts[v]
		}
		stats.Groups[col] = group
	}
	return stats, nil
}

// Import creates every item or none. Required fields, unique columns
// (against stored rows and within the batch) and parent references are all
// checked before the first insert. A failed insert removes the rows already
// written by this import.
func (s *EntityService[T, PT]) Import(ctx context.Context, owner string, items []map[string]interface{}) ([]T, error) {
	fields := map[string]string{}
	for i, item := range items {
		if _, err := s.Validate(item, nil); err != nil {
			for f, msg := range apperr.From(err).Fields {
				fields[fmt.Sprintf("items[%d].%s", i, f)] = msg
			}
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("import rejected: missing required fields", fields)
	}

	batch := make([]PT, 0, len(items))
	seen := map[string]int{}
	for i, item := range items {
		v, row, err := s.prepareCreate(owner, item, nil)
		if err != nil {
			return nil, itemError(i, err)
		}
		for _, col := range s.def.Unique {
			val := asString(row[col])
			if val == "" {
				continue
			}
			key := col + "=" + val
			if first, dup := seen[key]; dup {
				return nil, itemError(i, apperr.Conflict(fmt.Sprintf("%s %q repeats items[%d]", col, val, first)))
			}
			seen[key] = i
		}
		if err := s.checkRefs(ctx, owner, row, ""); err != nil {
			return nil, itemError(i, err)
		}
		batch = append(batch, v)
	}

	created := make([]T, 0, len(batch))
	for i, v := range batch {
		out, err := s.insert(ctx, v)
		if err != nil {
			s.rollbackImport(ctx, owner, created)
			return nil, itemError(i, err)
		}
		created = append(created, *out)
	}
	for i := range created {
		s.publish(ctx, events.ActionCreated, PT(&created[i]).Meta().ID, owner)
	}
	return created, nil
}

func (s *EntityService[T, PT]) rollbackImport(ctx context.Context, owner string, created []T) {
	sc := s.def.scope(owner)
	for i := range created {
		id := PT(&created[i]).Meta().ID
		if err := s.store.Delete(ctx, sc, id); err != nil {
			s.log.Error("failed to roll back imported row",
				zap.String("table", s.def.Table),
				zap.String("id", id),
				zap.Error(err),
			)
		}
	}
}

// itemError attributes err to the i-th item of a batch.
func itemError(i int, err error) error {
	e := apperr.From(err)
	out := &apperr.Error{Kind: e.Kind, Message: fmt.Sprintf("items[%d]: %s", i, e.Message), Err: e.Err}
	if len(e.Fields) > 0 {
		out.Fields = make(map[string]string, len(e.Fields))
		for f, msg := range e.Fields {
			out.Fields[fmt.Sprintf("items[%d].%s", i, f)] = msg
		}
	}
	return out
}

func (s *EntityService[T, PT]) listField(ctx context.Context, owner, id, field string, edit func(f *forms.Form) error) (PT, error) {
	if !s.def.mutable(field) {
		return nil, apperr.Validation(fmt.Sprintf("%s is not an editable field", field), map[string]string{field: "not editable"})
	}
	cur, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	row, err := toMap(cur)
	if err != nil {
		return nil, persistence(err)
	}
	form, err := s.schema.New(s.def.Form, row)
	if err != nil {
		return nil, err
	}
	if err := edit(form); err != nil {
		return nil, err
	}
	return s.applyPatch(ctx, owner, id, map[string]interface{}{field: form.Values()[field]})
}

func (s *EntityService[T, PT]) AddListItem(ctx context.Context, owner, id, field string, value interface{}) (PT, error) {
	return s.listField(ctx, owner, id, field, func(f *forms.Form) error { return f.AddItem(field, value) })
}

func (s *EntityService[T, PT]) UpdateListItem(ctx context.Context, owner, id, field string, idx int, value interface{}) (PT, error) {
	return s.listField(ctx, owner, id, field, func(f *forms.Form) error { return f.UpdateItem(field, idx, value) })
}

func (s *EntityService[T, PT]) RemoveListItem(ctx context.Context, owner, id, field string, idx int) (PT, error) {
	return s.listField(ctx, owner, id, field, func(f *forms.Form) error { return f.RemoveItem(field, idx) })
}

package services

import (
	"context"
	"errors"

	"arqueo-backend/internal/activecontext"
	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/repository"
)

// ContextService drives the per-user context machine, checking every
// selection against the caller's own rows and hierarchy.
type ContextService struct {
	registry *activecontext.Registry
	store    repository.Store
}

func NewContextService(registry *activecontext.Registry, store repository.Store) *ContextService {
	return &ContextService{registry: registry, store: store}
}

func scopeOf(table, owner string) repository.Scope {
	return repository.Scope{Table: table, OwnerColumn: ownerColumn, Owner: owner}
}

// Parts exposes a triple in the key form used by form pre-fill.
func Parts(t activecontext.Triple) map[string]string {
	return map[string]string{"project": t.Project, "area": t.Area, "site": t.Site}
}

func (s *ContextService) Current(ctx context.Context, owner string) (*activecontext.Machine, error) {
	return s.registry.For(ctx, owner)
}

func (s *ContextService) SelectProject(ctx context.Context, owner, id string) (*activecontext.Machine, error) {
	m, err := s.registry.For(ctx, owner)
	if err != nil {
		return nil, err
	}
	if id != "" {
		var p models.Project
		if err := s.store.Get(ctx, scopeOf(TableProjects, owner), id, &p); err != nil {
			return nil, notFoundOr(err, "project")
		}
	}
	return m, m.SelectProject(ctx, id)
}

func (s *ContextService) SelectArea(ctx context.Context, owner, id string) (*activecontext.Machine, error) {
	m, err := s.registry.For(ctx, owner)
	if err != nil {
		return nil, err
	}
	cur := m.Current()
	if id != "" && cur.Project != "" {
		var a models.Area
		if err := s.store.Get(ctx, scopeOf(TableAreas, owner), id, &a); err != nil {
			return nil, notFoundOr(err, "area")
		}
		if a.ProjectID != cur.Project {
			return nil, apperr.Validation("area does not belong to the selected project", map[string]string{"id": "wrong project"})
		}
	}
	return m, m.SelectArea(ctx, id)
}

func (s *ContextService) SelectSite(ctx context.Context, owner, id string) (*activecontext.Machine, error) {
	m, err := s.registry.For(ctx, owner)
	if err != nil {
		return nil, err
	}
	cur := m.Current()
	if id != "" && cur.Area != "" {
		var site models.Site
		if err := s.store.Get(ctx, scopeOf(TableSites, owner), id, &site); err != nil {
			return nil, notFoundOr(err, "site")
		}
		if site.AreaID == nil || *site.AreaID != cur.Area {
			return nil, apperr.Validation("site does not belong to the selected area", map[string]string{"id": "wrong area"})
		}
	}
	return m, m.SelectSite(ctx, id)
}

func (s *ContextService) Clear(ctx context.Context, owner string) (*activecontext.Machine, error) {
	m, err := s.registry.For(ctx, owner)
	if err != nil {
		return nil, err
	}
	return m, m.Clear(ctx)
}

// ContextDetails is a selection together with the rows it names. A row
// deleted since it was selected is left nil.
type ContextDetails struct {
	State   activecontext.State
	Triple  activecontext.Triple
	Project *models.Project
	Area    *models.Area
	Site    *models.Site
}

func (s *ContextService) Details(ctx context.Context, owner string) (*ContextDetails, error) {
	m, err := s.registry.For(ctx, owner)
	if err != nil {
		return nil, err
	}
	t := m.Current()
	d := &ContextDetails{State: m.State(), Triple: t}
	if d.Project, err = lookup[models.Project](ctx, s.store, scopeOf(TableProjects, owner), t.Project); err != nil {
		return nil, err
	}
	if d.Area, err = lookup[models.Area](ctx, s.store, scopeOf(TableAreas, owner), t.Area); err != nil {
		return nil, err
	}
	if d.Site, err = lookup[models.Site](ctx, s.store, scopeOf(TableSites, owner), t.Site); err != nil {
		return nil, err
	}
	return d, nil
}

// lookup returns nil for an empty id or a missing row.
func lookup[T any](ctx context.Context, store repository.Store, sc repository.Scope, id string) (*T, error) {
	if id == "" {
		return nil, nil
	}
	out := new(T)
	if err := store.Get(ctx, sc, id, out); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, persistence(err)
	}
	return out, nil
}

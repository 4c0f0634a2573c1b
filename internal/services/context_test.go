package services_test

import (
	"context"
	"net/url"
	"testing"

	"arqueo-backend/internal/activecontext"
	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type hierarchy struct {
	project, area, site string
}

func (f *fixture) hierarchy(t *testing.T, owner string) hierarchy {
	t.Helper()
	p := f.project(t, owner)
	a := f.area(t, owner, p.ID)
	s := f.site(t, owner, map[string]interface{}{"project_id": p.ID, "area_id": a.ID})
	return hierarchy{project: p.ID, area: a.ID, site: s.ID}
}

func newContextService(f *fixture) (*services.ContextService, activecontext.Store) {
	store := activecontext.NewTableStore(f.store)
	return services.NewContextService(activecontext.NewRegistry(store, zap.NewNop()), f.store), store
}

func TestContextService_SelectsDownTheHierarchy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.hierarchy(t, alice)
	svc, _ := newContextService(f)

	m, err := svc.SelectProject(ctx, alice, h.project)
	require.NoError(t, err)
	assert.Equal(t, activecontext.ProjectSelected, m.State())

	_, err = svc.SelectArea(ctx, alice, h.area)
	require.NoError(t, err)
	m, err = svc.SelectSite(ctx, alice, h.site)
	require.NoError(t, err)
	assert.Equal(t, activecontext.FullContext, m.State())
	assert.Equal(t, activecontext.Triple{Project: h.project, Area: h.area, Site: h.site}, m.Current())
	assert.Equal(t, map[string]string{"project": h.project, "area": h.area, "site": h.site}, services.Parts(m.Current()))

	// A fresh registry over the same table rehydrates the triple.
	again, _ := newContextService(f)
	m, err = again.Current(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, activecontext.FullContext, m.State())

	m, err = svc.Clear(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, activecontext.Unselected, m.State())
}

func TestContextService_Details(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.hierarchy(t, alice)
	svc, _ := newContextService(f)

	d, err := svc.Details(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, activecontext.Unselected, d.State)
	assert.Nil(t, d.Project)

	_, err = svc.SelectProject(ctx, alice, h.project)
	require.NoError(t, err)
	_, err = svc.SelectArea(ctx, alice, h.area)
	require.NoError(t, err)

	d, err = svc.Details(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, activecontext.AreaSelected, d.State)
	require.NotNil(t, d.Project)
	require.NotNil(t, d.Area)
	assert.Equal(t, "Terrace survey", d.Project.Name)
	assert.Equal(t, "North valley", d.Area.Name)
	assert.Nil(t, d.Site)

	_, err = svc.SelectSite(ctx, alice, h.site)
	require.NoError(t, err)
	require.NoError(t, f.sites.Delete(ctx, alice, h.site))

	d, err = svc.Details(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, activecontext.FullContext, d.State)
	assert.Equal(t, h.site, d.Triple.Site)
	assert.Nil(t, d.Site)
}

func TestContextService_RejectsForeignAndMismatchedRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mine := f.hierarchy(t, alice)
	other := f.hierarchy(t, alice)
	foreign := f.hierarchy(t, bob)
	svc, _ := newContextService(f)

	_, err := svc.SelectProject(ctx, alice, foreign.project)
	assertKind(t, err, apperr.KindNotFound)

	_, err = svc.SelectArea(ctx, alice, mine.area)
	assertKind(t, err, apperr.KindValidation)

	_, err = svc.SelectProject(ctx, alice, mine.project)
	require.NoError(t, err)
	_, err = svc.SelectArea(ctx, alice, other.area)
	assertKind(t, err, apperr.KindValidation)

	_, err = svc.SelectArea(ctx, alice, mine.area)
	require.NoError(t, err)
	_, err = svc.SelectSite(ctx, alice, other.site)
	assertKind(t, err, apperr.KindValidation)
	_, err = svc.SelectSite(ctx, alice, foreign.site)
	assertKind(t, err, apperr.KindNotFound)

	m, err := svc.Current(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, activecontext.AreaSelected, m.State())
}

func TestMeasurements_ScopedToContext(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	h := f.hierarchy(t, alice)
	other := f.hierarchy(t, alice)
	here := activecontext.Triple{Project: h.project, Area: h.area, Site: h.site}
	there := activecontext.Triple{Project: other.project, Area: other.area, Site: other.site}

	m, err := f.measures.CreateInContext(ctx, alice, here, map[string]interface{}{
		"name": "Trench depth", "measurement_type": "depth", "value": 0, "unit": "m",
		"site_id": other.site,
	})
	require.NoError(t, err)
	assert.Equal(t, h.site, m.SiteID)

	_, err = f.measures.CreateInContext(ctx, alice, there, map[string]interface{}{
		"name": "Wall", "measurement_type": "distance", "value": 4.2, "unit": "m",
	})
	require.NoError(t, err)

	items, page, err := f.measures.ListInContext(ctx, alice, here, url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, m.ID, items[0].ID)

	_, err = f.measures.GetInContext(ctx, alice, there, m.ID)
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.measures.UpdateInContext(ctx, alice, there, m.ID, map[string]interface{}{"value": 2.5})
	assertKind(t, err, apperr.KindNotFound)
	m, err = f.measures.UpdateInContext(ctx, alice, here, m.ID, map[string]interface{}{"value": 2.5})
	require.NoError(t, err)
	assert.Equal(t, 2.5, m.Value)

	require.NoError(t, f.measures.DeleteInContext(ctx, alice, there, m.ID))
	_, err = f.measures.GetInContext(ctx, alice, here, m.ID)
	require.NoError(t, err)

	require.NoError(t, f.measures.DeleteInContext(ctx, alice, here, m.ID))
	_, err = f.measures.GetInContext(ctx, alice, here, m.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestFieldworkSession_PrefilledFromContext(t *testing.T) {
	f := newFixture(t)
	h := f.hierarchy(t, alice)

	_, err := f.sessions.Create(context.Background(), alice, map[string]interface{}{"name": "Day 1", "date": "2024-05-02"}, nil)
	assertKind(t, err, apperr.KindValidation)

	s, err := f.sessions.Create(context.Background(), alice, map[string]interface{}{"name": "Day 1", "date": "2024-05-02"},
		services.Parts(activecontext.Triple{Project: h.project, Area: h.area, Site: h.site}))
	require.NoError(t, err)
	assert.Equal(t, h.site, s.SiteID)
	assert.Equal(t, []string{}, s.TeamMembers)
}

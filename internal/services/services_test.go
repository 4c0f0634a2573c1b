package services_test

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/events"
	"arqueo-backend/internal/forms"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/repository"
	"arqueo-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	alice = "0b7c1f7e-3d7a-4d55-9a43-0d6f3b8c9a11"
	bob   = "6f1e2d3c-4b5a-4968-8776-5a4b3c2d1e0f"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, e events.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *mockPublisher) Close() error { return nil }

type fixture struct {
	store       *repository.MemoryStore
	projects    *services.ProjectService
	areas       *services.AreaService
	sites       *services.SiteService
	excavations *services.ExcavationService
	findings    *services.FindingService
	researchers *services.ResearcherService
	sessions    *services.FieldworkSessionService
	measures    *services.MeasurementService
	grid        *services.GridUnitService
	mapping     *services.MappingService
	profiles    *services.ProfileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, repository.NewMemoryStore(), events.NopPublisher{}, nil)
}

func newFixtureWith(t *testing.T, store *repository.MemoryStore, pub events.Publisher, blob *fakeBlob) *fixture {
	t.Helper()
	schema := forms.Default()
	log := zap.NewNop()
	f := &fixture{
		store:       store,
		projects:    services.NewProjectService(store, schema, pub, log),
		areas:       services.NewAreaService(store, schema, pub, log),
		sites:       services.NewSiteService(store, schema, pub, log),
		excavations: services.NewExcavationService(store, schema, pub, log),
		researchers: services.NewResearcherService(store, schema, pub, log),
		sessions:    services.NewFieldworkSessionService(store, schema, pub, log),
		measures:    services.NewMeasurementService(store, schema, pub, log),
		grid:        services.NewGridUnitService(store, schema, pub, log),
		profiles:    services.NewProfileService(store, schema, pub, log),
	}
	if blob != nil {
		f.findings = services.NewFindingService(store, schema, pub, blob, log)
	} else {
		f.findings = services.NewFindingService(store, schema, pub, nil, log)
	}
	f.mapping = services.NewMappingService(f.grid, f.measures, f.findings)
	return f
}

func projectBody(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"description": "Survey of the upper terraces",
		"methodology": "Stratigraphic",
		"start_date":  "2024-01-10",
		"end_date":    "2024-12-20",
		"budget":      0,
		"team_size":   4,
		"director":    "Dr. Ortiz",
		"site_id":     "pending",
	}
}

func (f *fixture) project(t *testing.T, owner string) *models.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), owner, projectBody("Terrace survey"), nil)
	require.NoError(t, err)
	return p
}

func (f *fixture) area(t *testing.T, owner, projectID string) *models.Area {
	t.Helper()
	a, err := f.areas.Create(context.Background(), owner, map[string]interface{}{
		"name":       "North valley",
		"project_id": projectID,
	}, nil)
	require.NoError(t, err)
	return a
}

func (f *fixture) site(t *testing.T, owner string, body map[string]interface{}) *models.Site {
	t.Helper()
	values := map[string]interface{}{"name": "Cerro Alto", "description": "Hilltop settlement"}
	for k, v := range body {
		values[k] = v
	}
	s, err := f.sites.Create(context.Background(), owner, values, nil)
	require.NoError(t, err)
	return s
}

func assertKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, apperr.From(err).Kind, "error: %v", err)
}

func rowCount(t *testing.T, store repository.Store, table, owner string) int {
	t.Helper()
	var rows []map[string]interface{}
	total, err := store.List(context.Background(), repository.Scope{Table: table, OwnerColumn: "created_by", Owner: owner}, repository.ListOptions{Limit: 1}, &rows)
	require.NoError(t, err)
	return total
}

func TestCreate_MissingRequiredFieldsPersistNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	empty := map[string]interface{}{"description": "   "}

	cases := []struct {
		table  string
		create func() error
	}{
		{services.TableProjects, func() error { _, err := f.projects.Create(ctx, alice, empty, nil); return err }},
		{services.TableMilestones, func() error { _, err := f.projects.Milestones.Create(ctx, alice, empty, nil); return err }},
		{services.TableAreas, func() error { _, err := f.areas.Create(ctx, alice, empty, nil); return err }},
		{services.TableSites, func() error { _, err := f.sites.Create(ctx, alice, empty, nil); return err }},
		{services.TableExcavations, func() error { _, err := f.excavations.Create(ctx, alice, empty, nil); return err }},
		{services.TableFindings, func() error { _, err := f.findings.Create(ctx, alice, empty, nil); return err }},
		{services.TableResearchers, func() error { _, err := f.researchers.Create(ctx, alice, empty, nil); return err }},
		{services.TableFieldworkSessions, func() error { _, err := f.sessions.Create(ctx, alice, empty, nil); return err }},
		{services.TableMeasurements, func() error { _, err := f.measures.Create(ctx, alice, empty, nil); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.table, func(t *testing.T) {
			err := tc.create()
			assertKind(t, err, apperr.KindValidation)
			assert.Equal(t, 400, apperr.From(err).Status())
			assert.NotEmpty(t, apperr.From(err).Fields)
			assert.Equal(t, 0, rowCount(t, f.store, tc.table, alice))
		})
	}
}

func TestCreate_StampsOwnerAndIgnoresClientIdentity(t *testing.T) {
	f := newFixture(t)
	body := projectBody("Terrace survey")
	body["id"] = "client-chosen"
	body["created_by"] = bob

	p, err := f.projects.Create(context.Background(), alice, body, nil)
	require.NoError(t, err)
	assert.NotEqual(t, "client-chosen", p.ID)
	assert.Equal(t, alice, p.CreatedBy)
	assert.Equal(t, models.ProjectPlanning, p.Status)
	assert.Equal(t, []string{}, p.Objectives)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
}

func TestList_TotalIgnoresPaging(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 7; i++ {
		f.project(t, alice)
	}
	f.project(t, bob)

	items, page, err := f.projects.List(ctx, alice, url.Values{"limit": {"3"}, "offset": {"5"}})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, models.Pagination{Total: 7, Limit: 3, Offset: 5}, page)

	_, page, err = f.projects.List(ctx, alice, url.Values{"limit": {"500"}})
	require.NoError(t, err)
	assert.Equal(t, services.MaxLimit, page.Limit)

	_, _, err = f.projects.List(ctx, alice, url.Values{"limit": {"abc"}})
	assertKind(t, err, apperr.KindValidation)
}

func TestList_FiltersByStatusWithLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	site := f.site(t, alice, nil)
	for i := 0; i < 8; i++ {
		status := models.ExcavationInProgress
		if i%2 == 0 {
			status = models.ExcavationPlanned
		}
		_, err := f.excavations.Create(ctx, alice, map[string]interface{}{
			"excavation_code": "EXC-" + string(rune('A'+i)),
			"site_id":         site.ID,
			"name":            "Trench",
			"start_date":      "2024-03-01",
			"status":          status,
		}, nil)
		require.NoError(t, err)
	}

	items, page, err := f.excavations.List(ctx, alice, url.Values{"status": {models.ExcavationInProgress}, "limit": {"5"}, "unknown": {"x"}})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Len(t, items, 4)
	for _, e := range items {
		assert.Equal(t, models.ExcavationInProgress, e.Status)
	}
}

func TestGet_OtherOwnersRowsAreNotFound(t *testing.T) {
	f := newFixture(t)
	p := f.project(t, alice)

	_, err := f.projects.Get(context.Background(), bob, p.ID)
	assertKind(t, err, apperr.KindNotFound)

	_, err = f.projects.Update(context.Background(), bob, p.ID, map[string]interface{}{"name": "Stolen"})
	assertKind(t, err, apperr.KindNotFound)
}

func TestUpdate_KeepsOwnerAndIgnoresUnknownFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.project(t, alice)

	updated, err := f.projects.Update(ctx, alice, p.ID, map[string]interface{}{
		"name":       "Renamed",
		"created_by": bob,
		"id":         "other",
		"colour":     "red",
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, alice, updated.CreatedBy)
	assert.Equal(t, p.ID, updated.ID)
	assert.True(t, !updated.UpdatedAt.Before(p.UpdatedAt))

	_, err = f.projects.Update(ctx, alice, p.ID, map[string]interface{}{"created_by": bob})
	assertKind(t, err, apperr.KindValidation)

	_, err = f.projects.Update(ctx, alice, p.ID, map[string]interface{}{"team_size": "many"})
	assertKind(t, err, apperr.KindValidation)
}

func TestDelete_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	site := f.site(t, alice, nil)

	require.NoError(t, f.sites.Delete(ctx, alice, site.ID))
	require.NoError(t, f.sites.Delete(ctx, alice, site.ID))

	_, err := f.sites.Get(ctx, alice, site.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestSearch_RequiresTermAndMatchesCaseInsensitively(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.site(t, alice, map[string]interface{}{"name": "Cueva Negra"})
	f.site(t, alice, map[string]interface{}{"name": "Loma Verde"})

	_, err := f.sites.Search(ctx, alice, "")
	assertKind(t, err, apperr.KindValidation)

	hits, err := f.sites.Search(ctx, alice, "NEGRA")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Cueva Negra", hits[0].Name)

	hits, err = f.sites.Search(ctx, bob, "negra")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStatistics_ReportsEveryEnumValue(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.site(t, alice, map[string]interface{}{"status": models.SiteActive, "type": models.SiteTypeSurvey})
	f.site(t, alice, map[string]interface{}{"status": models.SiteActive})
	f.site(t, alice, nil)

	stats, err := f.sites.Statistics(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, map[string]int{"active": 2, "completed": 0, "planning": 1}, stats.Groups["status"])
	assert.Equal(t, map[string]int{"excavation": 2, "survey": 1, "monitoring": 0}, stats.Groups["type"])

	stats, err = f.sites.Statistics(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.Len(t, stats.Groups["status"], len(models.SiteStatuses))
}

func TestUniqueColumn_Conflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	site := f.site(t, alice, nil)
	body := map[string]interface{}{
		"excavation_code": "EXC-001",
		"site_id":         site.ID,
		"name":            "Trench 1",
		"start_date":      "2024-03-01",
	}
	first, err := f.excavations.Create(ctx, alice, body, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ExcavationPlanned, first.Status)
	assert.Equal(t, 1, first.SeasonNumber)

	_, err = f.excavations.Create(ctx, alice, body, nil)
	assertKind(t, err, apperr.KindConflict)
	assert.Equal(t, 409, apperr.From(err).Status())

	// Re-saving a row with its own code is not a conflict.
	_, err = f.excavations.Update(ctx, alice, first.ID, map[string]interface{}{"excavation_code": "EXC-001", "name": "Trench 1b"})
	require.NoError(t, err)

	found, err := f.excavations.ByCode(ctx, alice, "EXC-001")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = f.excavations.ByCode(ctx, alice, "EXC-404")
	assertKind(t, err, apperr.KindNotFound)
}

func TestParentReferences(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.excavations.Create(ctx, alice, map[string]interface{}{
		"excavation_code": "EXC-9",
		"site_id":         "missing",
		"name":            "Trench",
		"start_date":      "2024-03-01",
	}, nil)
	assertKind(t, err, apperr.KindValidation)
	assert.Contains(t, apperr.From(err).Fields, "site_id")

	foreign := f.site(t, bob, nil)
	_, err = f.excavations.Create(ctx, alice, map[string]interface{}{
		"excavation_code": "EXC-9",
		"site_id":         foreign.ID,
		"name":            "Trench",
		"start_date":      "2024-03-01",
	}, nil)
	assertKind(t, err, apperr.KindValidation)
}

func TestImport_RejectsWholeBatchOnInvalidItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.researchers.Import(ctx, alice, []map[string]interface{}{
		{"first_name": "Ana", "last_name": "Ruiz", "email": "ana@example.org", "institution": "INAH", "specialization": "Lithics"},
		{"first_name": "Luis"},
	})
	assertKind(t, err, apperr.KindValidation)
	assert.Contains(t, apperr.From(err).Fields, "items[1].email")
	assert.Equal(t, 0, rowCount(t, f.store, services.TableResearchers, alice))
}

func excavationItem(code, siteID string) map[string]interface{} {
	return map[string]interface{}{
		"excavation_code": code,
		"site_id":         siteID,
		"name":            "Trench " + code,
		"start_date":      "2024-03-01",
	}
}

func TestImport_RepeatedUniqueCodePersistsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	site := f.site(t, alice, nil)

	_, err := f.excavations.Import(ctx, alice, []map[string]interface{}{
		excavationItem("EX-1", site.ID),
		excavationItem("EX-1", site.ID),
	})
	assertKind(t, err, apperr.KindConflict)
	assert.Contains(t, apperr.From(err).Message, "items[1]")
	assert.Equal(t, 0, rowCount(t, f.store, services.TableExcavations, alice))
}

func TestImport_StoredConflictOrMissingParentPersistsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	site := f.site(t, alice, nil)
	_, err := f.excavations.Create(ctx, alice, excavationItem("EX-7", site.ID), nil)
	require.NoError(t, err)

	_, err = f.excavations.Import(ctx, alice, []map[string]interface{}{
		excavationItem("EX-8", site.ID),
		excavationItem("EX-7", site.ID),
	})
	assertKind(t, err, apperr.KindConflict)

	_, err = f.excavations.Import(ctx, alice, []map[string]interface{}{
		excavationItem("EX-8", site.ID),
		excavationItem("EX-9", "missing"),
	})
	assertKind(t, err, apperr.KindValidation)
	assert.Contains(t, apperr.From(err).Fields, "items[1].site_id")

	assert.Equal(t, 1, rowCount(t, f.store, services.TableExcavations, alice))

	created, err := f.excavations.Import(ctx, alice, []map[string]interface{}{
		excavationItem("EX-8", site.ID),
		excavationItem("EX-9", site.ID),
	})
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.Equal(t, 3, rowCount(t, f.store, services.TableExcavations, alice))
}

// flakyInsert fails the nth insert.
type flakyInsert struct {
	*repository.MemoryStore
	n, calls int
}

func (s *flakyInsert) Insert(ctx context.Context, table string, row interface{}, out interface{}) error {
	s.calls++
	if s.calls == s.n {
		return errors.New("connection reset")
	}
	return s.MemoryStore.Insert(ctx, table, row, out)
}

func TestImport_FailedInsertRemovesEarlierRows(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	svc := services.NewResearcherService(&flakyInsert{MemoryStore: mem, n: 3}, forms.Default(), events.NopPublisher{}, zap.NewNop())

	researcher := func(first string) map[string]interface{} {
		return map[string]interface{}{
			"first_name": first, "last_name": "Ruiz", "email": first + "@example.org",
			"institution": "INAH", "specialization": "Lithics",
		}
	}
	_, err := svc.Import(ctx, alice, []map[string]interface{}{researcher("ana"), researcher("luis"), researcher("eva")})
	assertKind(t, err, apperr.KindPersistence)
	assert.Equal(t, 0, rowCount(t, mem, services.TableResearchers, alice))
}

func TestResearchers_ByInstitutionAndSpecialization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	r, err := f.researchers.Create(ctx, alice, map[string]interface{}{
		"first_name": "Ana", "last_name": "Ruiz", "email": "ana@example.org",
		"institution": "Instituto Nacional", "specialization": "Zooarchaeology",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, alice, r.UserID)

	hits, err := f.researchers.ByInstitution(ctx, alice, "nacional")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = f.researchers.BySpecialization(ctx, alice, "ceramics")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestListItems(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.project(t, alice)

	p, err := f.projects.AddListItem(ctx, alice, p.ID, "objectives", "Map the terraces")
	require.NoError(t, err)
	p, err = f.projects.AddListItem(ctx, alice, p.ID, "objectives", "Date the hearths")
	require.NoError(t, err)
	assert.Equal(t, []string{"Map the terraces", "Date the hearths"}, p.Objectives)

	p, err = f.projects.UpdateListItem(ctx, alice, p.ID, "objectives", 1, "Date the middens")
	require.NoError(t, err)
	assert.Equal(t, "Date the middens", p.Objectives[1])

	p, err = f.projects.RemoveListItem(ctx, alice, p.ID, "objectives", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Date the middens"}, p.Objectives)

	_, err = f.projects.RemoveListItem(ctx, alice, p.ID, "objectives", 5)
	assertKind(t, err, apperr.KindValidation)

	_, err = f.projects.AddListItem(ctx, alice, p.ID, "name", "x")
	assertKind(t, err, apperr.KindValidation)
}

func TestEvents_PublishedForWrites(t *testing.T) {
	ctx := context.Background()
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		return e.Entity == "researcher" && e.Owner == alice
	})).Return(nil)
	f := newFixtureWith(t, repository.NewMemoryStore(), pub, nil)

	r, err := f.researchers.Create(ctx, alice, map[string]interface{}{
		"first_name": "Ana", "last_name": "Ruiz", "email": "ana@example.org",
		"institution": "INAH", "specialization": "Lithics",
	}, nil)
	require.NoError(t, err)
	_, err = f.researchers.Update(ctx, alice, r.ID, map[string]interface{}{"institution": "UNAM"})
	require.NoError(t, err)
	require.NoError(t, f.researchers.Delete(ctx, alice, r.ID))

	pub.AssertNumberOfCalls(t, "Publish", 3)
	var actions []string
	for _, call := range pub.Calls {
		actions = append(actions, call.Arguments.Get(1).(events.Event).Action)
	}
	assert.Equal(t, []string{events.ActionCreated, events.ActionUpdated, events.ActionDeleted}, actions)
}

func TestEvents_PublishFailureDoesNotFailWrite(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(assert.AnError)
	f := newFixtureWith(t, repository.NewMemoryStore(), pub, nil)

	_, err := f.sites.Create(context.Background(), alice, map[string]interface{}{"name": "Cerro", "description": "Hill"}, nil)
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

package router_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arqueo-backend/docs"
	"arqueo-backend/internal/bootstrap"
	"arqueo-backend/internal/config"
	"arqueo-backend/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"
	alice      = "0b7c1f7e-3d7a-4d55-9a43-0d6f3b8c9a11"
	bob        = "6f1d2c3b-4a5e-4f60-8b7a-9c8d7e6f5a40"
)

type api struct {
	t      *testing.T
	engine *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)

	inj := do.New()
	do.ProvideValue(inj, &config.Config{
		Environment:       "test",
		SupabaseJWTSecret: testSecret,
		StoreDriver:       config.StoreMemory,
		ContextStore:      config.ContextStoreMemory,
	})
	do.ProvideValue(inj, zap.NewNop())
	bootstrap.Provide(inj)

	return &api{t: t, engine: do.MustInvoke[*gin.Engine](inj)}
}

func token(t *testing.T, user string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (a *api) do(user, method, path string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(a.t, user))
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success    bool               `json:"success"`
	Data       json.RawMessage    `json:"data"`
	Pagination *models.Pagination `json:"pagination"`
	Message    string             `json:"message"`
	Errors     map[string]string  `json:"errors"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func projectBody(name string) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"description": "Survey of the upper terraces",
		"methodology": "Stratigraphic",
		"start_date":  "2024-01-10",
		"end_date":    "2024-12-20",
		"budget":      25000,
		"team_size":   4,
		"director":    "Dr. Ortiz",
		"site_id":     "pending",
	}
}

func (a *api) createProject(user, name string) models.Project {
	a.t.Helper()
	w := a.do(user, http.MethodPost, "/api/v1/projects", projectBody(name))
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var p models.Project
	decode(a.t, w, &p)
	return p
}

func (a *api) create(user, path string, body map[string]interface{}, out interface{}) {
	a.t.Helper()
	w := a.do(user, http.MethodPost, path, body)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	decode(a.t, w, out)
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	w := a.do("", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestAPIRequiresToken(t *testing.T) {
	a := newAPI(t)
	w := a.do("", http.MethodGet, "/api/v1/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, decode(t, w, nil).Success)
}

func TestProjectsCreateAndList(t *testing.T) {
	a := newAPI(t)
	for _, name := range []string{"Terraces", "Valley", "Cave"} {
		a.createProject(alice, name)
	}
	a.createProject(bob, "Bob's dig")

	w := a.do(alice, http.MethodGet, "/api/v1/projects?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []models.Project
	env := decode(t, w, &items)
	assert.True(t, env.Success)
	assert.Len(t, items, 2)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, models.Pagination{Total: 3, Limit: 2, Offset: 0}, *env.Pagination)
	for _, p := range items {
		assert.Equal(t, alice, p.CreatedBy)
	}

	w = a.do(alice, http.MethodGet, "/api/v1/projects?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateValidationEnvelope(t *testing.T) {
	a := newAPI(t)
	w := a.do(alice, http.MethodPost, "/api/v1/projects", map[string]interface{}{"name": "Only a name"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	assert.False(t, env.Success)
	assert.Contains(t, env.Errors, "director")
	assert.NotContains(t, env.Errors, "name")
}

func TestGetForeignRecordIsNotFound(t *testing.T) {
	a := newAPI(t)
	p := a.createProject(alice, "Terraces")

	w := a.do(bob, http.MethodGet, "/api/v1/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(alice, http.MethodGet, "/api/v1/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateAndDelete(t *testing.T) {
	a := newAPI(t)
	p := a.createProject(alice, "Terraces")

	w := a.do(alice, http.MethodPut, "/api/v1/projects/"+p.ID, map[string]interface{}{"status": "active", "created_by": bob})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got models.Project
	decode(t, w, &got)
	assert.Equal(t, "active", got.Status)
	assert.Equal(t, alice, got.CreatedBy)

	w = a.do(alice, http.MethodDelete, "/api/v1/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.do(alice, http.MethodDelete, "/api/v1/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(alice, http.MethodGet, "/api/v1/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// areas have no existence pre-check
	w = a.do(alice, http.MethodDelete, "/api/v1/areas/"+p.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMilestones(t *testing.T) {
	a := newAPI(t)
	p := a.createProject(alice, "Terraces")

	var m models.Milestone
	a.create(alice, "/api/v1/projects/"+p.ID+"/milestones", map[string]interface{}{
		"title":       "Survey complete",
		"description": "All terraces mapped",
		"date":        "2024-06-01",
	}, &m)
	assert.Equal(t, p.ID, m.ProjectID)

	w := a.do(alice, http.MethodGet, "/api/v1/projects/"+p.ID+"/milestones", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var items []models.Milestone
	decode(t, w, &items)
	assert.Len(t, items, 1)

	w = a.do(alice, http.MethodPut, "/api/v1/milestones/"+m.ID, map[string]interface{}{"status": "completed"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(alice, http.MethodDelete, "/api/v1/milestones/"+m.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = a.do(bob, http.MethodGet, "/api/v1/projects/"+p.ID+"/milestones", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListItems(t *testing.T) {
	a := newAPI(t)
	p := a.createProject(alice, "Terraces")
	base := "/api/v1/projects/" + p.ID + "/lists/objectives"

	w := a.do(alice, http.MethodPost, base, map[string]interface{}{"value": "Map terraces"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = a.do(alice, http.MethodPost, base, map[string]interface{}{"value": "Date ceramics"})
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(alice, http.MethodPut, base+"/1", map[string]interface{}{"value": "Date obsidian"})
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Project
	decode(t, w, &got)
	assert.Equal(t, []string{"Map terraces", "Date obsidian"}, got.Objectives)

	w = a.do(alice, http.MethodDelete, base+"/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &got)
	assert.Equal(t, []string{"Date obsidian"}, got.Objectives)

	w = a.do(alice, http.MethodDelete, base+"/5", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(alice, http.MethodDelete, base+"/x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHeaders(t *testing.T) {
	a := newAPI(t)
	var site models.Site
	a.create(alice, "/api/v1/sites", map[string]interface{}{
		"name":        "Cerro Alto",
		"description": "Hilltop settlement",
		"coordinates": []float64{19.5, -99.1},
	}, &site)

	w := a.do(alice, http.MethodGet, "/api/v1/sites/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Equal(t, `attachment; filename="sites.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "id,name,description,coordinates"))

	w = a.do(alice, http.MethodGet, "/api/v1/sites/export?format=geojson", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, []float64{-99.1, 19.5}, fc.Features[0].Geometry.Coordinates)

	w = a.do(alice, http.MethodGet, "/api/v1/sites/export?format=xml", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(alice, http.MethodGet, "/api/v1/researchers/export?format=geojson", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImport(t *testing.T) {
	a := newAPI(t)
	researcher := func(email string) map[string]interface{} {
		return map[string]interface{}{
			"first_name":     "Ana",
			"last_name":      "Ruiz",
			"email":          email,
			"institution":    "INAH",
			"specialization": "Ceramics",
		}
	}

	w := a.do(alice, http.MethodPost, "/api/v1/researchers/import", []map[string]interface{}{researcher("ana@example.org"), researcher("")})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w, nil).Errors, "items[1].email")

	w = a.do(alice, http.MethodPost, "/api/v1/researchers/import", []map[string]interface{}{researcher("ana@example.org"), researcher("luis@example.org")})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var items []models.Researcher
	decode(t, w, &items)
	assert.Len(t, items, 2)

	w = a.do(alice, http.MethodGet, "/api/v1/researchers/by-institution?q=INAH", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestNearby(t *testing.T) {
	a := newAPI(t)
	for name, coords := range map[string][]float64{
		"close": {19.43, -99.13},
		"far":   {20.97, -89.62},
	} {
		a.create(alice, "/api/v1/sites", map[string]interface{}{
			"name":        name,
			"description": "site " + name,
			"coordinates": coords,
		}, nil)
	}

	w := a.do(alice, http.MethodGet, "/api/v1/sites/nearby?lat=19.4326&lon=-99.1332&radius_km=5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sites []models.Site
	decode(t, w, &sites)
	require.Len(t, sites, 1)
	assert.Equal(t, "close", sites[0].Name)

	w = a.do(alice, http.MethodGet, "/api/v1/sites/nearby?lat=19.4", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMediaUploadWithoutStorage(t *testing.T) {
	a := newAPI(t)
	var f models.Finding
	a.create(alice, "/api/v1/findings", map[string]interface{}{
		"name":        "Obsidian blade",
		"type":        "lithic",
		"description": "Prismatic blade fragment",
	}, &f)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "blade.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake-jpeg"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/findings/"+f.ID+"/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token(t, alice))
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, decode(t, w, nil).Success)
}

func TestContextFlowAndTools(t *testing.T) {
	a := newAPI(t)

	w := a.do(alice, http.MethodGet, "/api/v1/tools/context", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	w = a.do(alice, http.MethodGet, "/api/v1/context/check", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	p := a.createProject(alice, "Terraces")
	w = a.do(alice, http.MethodPut, "/api/v1/context/project", models.SelectRequest{ID: p.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// area picks up project_id from the selection
	var area models.Area
	a.create(alice, "/api/v1/areas", map[string]interface{}{"name": "North valley"}, &area)
	assert.Equal(t, p.ID, area.ProjectID)

	w = a.do(alice, http.MethodPut, "/api/v1/context/area", models.SelectRequest{ID: area.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var site models.Site
	a.create(alice, "/api/v1/sites", map[string]interface{}{"name": "Cerro Alto", "description": "Hilltop"}, &site)
	require.NotNil(t, site.AreaID)
	assert.Equal(t, area.ID, *site.AreaID)

	w = a.do(alice, http.MethodPut, "/api/v1/context/site", models.SelectRequest{ID: site.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ctxResp struct {
		Complete bool `json:"complete"`
	}
	decode(t, w, &ctxResp)
	assert.True(t, ctxResp.Complete)

	w = a.do(alice, http.MethodGet, "/api/v1/context/check", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var m models.Measurement
	a.create(alice, "/api/v1/tools/measurements", map[string]interface{}{
		"name":             "Wall length",
		"measurement_type": "distance",
		"value":            12.5,
		"unit":             "m",
	}, &m)
	assert.Equal(t, site.ID, m.SiteID)
	assert.Equal(t, area.ID, m.AreaID)
	assert.Equal(t, p.ID, m.ProjectID)

	w = a.do(alice, http.MethodGet, "/api/v1/tools/measurements", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ms []models.Measurement
	decode(t, w, &ms)
	assert.Len(t, ms, 1)

	// bob's context is independent
	w = a.do(bob, http.MethodGet, "/api/v1/tools/measurements", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w = a.do(alice, http.MethodDelete, "/api/v1/context", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(alice, http.MethodGet, "/api/v1/tools/measurements", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestContextRejectsForeignProject(t *testing.T) {
	a := newAPI(t)
	p := a.createProject(bob, "Bob's dig")

	w := a.do(alice, http.MethodPut, "/api/v1/context/project", models.SelectRequest{ID: p.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(alice, http.MethodPut, "/api/v1/context/project", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublicProfile(t *testing.T) {
	a := newAPI(t)

	w := a.do("", http.MethodGet, "/api/v1/public/researchers/"+alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(alice, http.MethodPut, "/api/v1/profile", map[string]interface{}{
		"display_name": "Dra. Alicia Mena",
		"bio":          "Mesoamerican ceramics",
		"is_public":    false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do("", http.MethodGet, "/api/v1/public/researchers/"+alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(alice, http.MethodPut, "/api/v1/profile", map[string]interface{}{"is_public": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do("", http.MethodGet, "/api/v1/public/researchers/"+alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p models.PublicProfile
	decode(t, w, &p)
	assert.Equal(t, "Dra. Alicia Mena", p.DisplayName)
	assert.Equal(t, "Mesoamerican ceramics", p.Bio)
}

func TestSchemas(t *testing.T) {
	a := newAPI(t)

	w := a.do(alice, http.MethodGet, "/api/v1/schemas/finding", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"site_id":"site"`)

	w = a.do(alice, http.MethodGet, "/api/v1/schemas/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// selectFullContext creates a project, area and site for user and selects
// all three.
func (a *api) selectFullContext(user string) (models.Project, models.Area, models.Site) {
	a.t.Helper()
	p := a.createProject(user, "Terraces")
	var area models.Area
	a.create(user, "/api/v1/areas", map[string]interface{}{"name": "North valley", "project_id": p.ID}, &area)
	var site models.Site
	a.create(user, "/api/v1/sites", map[string]interface{}{
		"name": "Cerro Alto", "description": "Hilltop", "project_id": p.ID, "area_id": area.ID,
	}, &site)

	for _, sel := range []struct{ part, id string }{{"project", p.ID}, {"area", area.ID}, {"site", site.ID}} {
		w := a.do(user, http.MethodPut, "/api/v1/context/"+sel.part, models.SelectRequest{ID: sel.id})
		require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	}
	return p, area, site
}

func TestContextDetails(t *testing.T) {
	a := newAPI(t)

	w := a.do(alice, http.MethodGet, "/api/v1/context/details", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var empty map[string]interface{}
	decode(t, w, &empty)
	assert.Equal(t, "unselected", empty["state"])
	assert.Nil(t, empty["project"])

	p, area, site := a.selectFullContext(alice)
	w = a.do(alice, http.MethodGet, "/api/v1/context/details", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var d struct {
		State    string         `json:"state"`
		Complete bool           `json:"complete"`
		Project  models.Project `json:"project"`
		Area     models.Area    `json:"area"`
		Site     models.Site    `json:"site"`
	}
	decode(t, w, &d)
	assert.Equal(t, "full_context", d.State)
	assert.True(t, d.Complete)
	assert.Equal(t, p.ID, d.Project.ID)
	assert.Equal(t, area.Name, d.Area.Name)
	assert.Equal(t, site.ID, d.Site.ID)
}

func TestGridUnitsAndMapping(t *testing.T) {
	a := newAPI(t)

	w := a.do(alice, http.MethodGet, "/api/v1/tools/grid-units", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	w = a.do(alice, http.MethodGet, "/api/v1/tools/mapping/stats", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	_, _, site := a.selectFullContext(alice)

	var g models.GridUnit
	a.create(alice, "/api/v1/tools/grid-units", map[string]interface{}{
		"code": "A1", "size_width": 2, "size_height": 2.5, "coordinates": []float64{19.5, -99.1},
	}, &g)
	assert.Equal(t, site.ID, g.SiteID)
	assert.Equal(t, models.GridUnitActive, g.Status)

	w = a.do(alice, http.MethodPost, "/api/v1/tools/grid-units", map[string]interface{}{"size_width": 1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w, nil).Errors, "code")

	w = a.do(alice, http.MethodPut, "/api/v1/tools/grid-units/"+g.ID, map[string]interface{}{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	a.create(alice, "/api/v1/tools/measurements", map[string]interface{}{
		"name": "Wall length", "measurement_type": "distance", "value": 12.5, "unit": "m",
	}, nil)
	a.create(alice, "/api/v1/findings", map[string]interface{}{
		"name": "Obsidian blade", "type": "lithic", "description": "Prismatic blade fragment",
	}, nil)

	w = a.do(alice, http.MethodGet, "/api/v1/tools/mapping/stats", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats models.MappingStats
	decode(t, w, &stats)
	assert.Equal(t, models.MappingStats{
		TotalGridUnits:     1,
		TotalMeasurements:  1,
		TotalFindings:      1,
		TotalArea:          5,
		CompletedGridUnits: 1,
	}, stats)

	w = a.do(alice, http.MethodGet, "/api/v1/tools/mapping/export", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Regexp(t, `^attachment; filename="mapping-data-\d{4}-\d{2}-\d{2}\.json"$`, w.Header().Get("Content-Disposition"))
	var doc models.MappingExport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, site.ID, doc.SiteID)
	assert.Len(t, doc.GridUnits, 1)
	assert.Len(t, doc.Measurements, 1)
	assert.Equal(t, stats, doc.Stats)

	w = a.do(alice, http.MethodDelete, "/api/v1/tools/grid-units/"+g.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = a.do(alice, http.MethodGet, "/api/v1/tools/grid-units/"+g.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImportIsAllOrNothing(t *testing.T) {
	a := newAPI(t)
	var site models.Site
	a.create(alice, "/api/v1/sites", map[string]interface{}{"name": "Cerro Alto", "description": "Hilltop"}, &site)
	item := func(code string) map[string]interface{} {
		return map[string]interface{}{"excavation_code": code, "site_id": site.ID, "name": "Trench", "start_date": "2024-03-01"}
	}

	w := a.do(alice, http.MethodPost, "/api/v1/excavations/import", []map[string]interface{}{item("EX-1"), item("EX-1")})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	w = a.do(alice, http.MethodGet, "/api/v1/excavations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode(t, w, nil).Pagination.Total)
}

func TestProjectProgressClampedOnUpdate(t *testing.T) {
	a := newAPI(t)
	p := a.createProject(alice, "Terraces")

	w := a.do(alice, http.MethodPut, "/api/v1/projects/"+p.ID, map[string]interface{}{"progress": 150})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got models.Project
	decode(t, w, &got)
	assert.Equal(t, 100, got.Progress)
}

func TestSwaggerDocumentMatchesRoutes(t *testing.T) {
	a := newAPI(t)

	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(docs.SwaggerInfo.ReadDoc()), &doc))

	documented := map[string]bool{}
	for path, ops := range doc.Paths {
		for method := range ops {
			documented[strings.ToUpper(method)+" "+path] = true
		}
	}

	served := map[string]bool{}
	for _, r := range a.engine.Routes() {
		if strings.HasPrefix(r.Path, "/swagger") {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(r.Path, "/api/v1"), "/")
		for i, p := range parts {
			if strings.HasPrefix(p, ":") {
				parts[i] = "{" + p[1:] + "}"
			}
		}
		key := r.Method + " " + strings.Join(parts, "/")
		served[key] = true
		assert.True(t, documented[key], "undocumented route %s", key)
	}
	for key := range documented {
		assert.True(t, served[key], "documented route %s is not served", key)
	}
}

package services_test

import (
	"context"
	"testing"

	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteCreate_Defaults(t *testing.T) {
	f := newFixture(t)
	s := f.site(t, alice, nil)

	assert.Equal(t, models.Coordinates{0, 0}, s.Coordinates)
	assert.Equal(t, models.SitePlanning, s.Status)
	assert.Equal(t, models.SiteTypeExcavation, s.Type)
	assert.Nil(t, s.AreaID)

	_, err := f.sites.Get(context.Background(), bob, s.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestSiteCreate_ContextPrefill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.project(t, alice)
	a := f.area(t, alice, p.ID)

	s, err := f.sites.Create(ctx, alice, map[string]interface{}{"name": "Cerro", "description": "Hill"},
		map[string]string{"project": p.ID, "area": a.ID})
	require.NoError(t, err)
	require.NotNil(t, s.AreaID)
	require.NotNil(t, s.ProjectID)
	assert.Equal(t, a.ID, *s.AreaID)
	assert.Equal(t, p.ID, *s.ProjectID)
}

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 0, services.HaversineKm(19.43, -99.13, 19.43, -99.13), 1e-9)
	// Mexico City to Teotihuacan is roughly 40 km.
	assert.InDelta(t, 40, services.HaversineKm(19.4326, -99.1332, 19.6925, -98.8438), 3)
}

func TestNearby(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	far := f.site(t, alice, map[string]interface{}{"name": "Teotihuacan", "coordinates": []float64{19.6925, -98.8438}})
	near := f.site(t, alice, map[string]interface{}{"name": "Templo Mayor", "coordinates": []float64{19.4351, -99.1313}})
	f.site(t, bob, map[string]interface{}{"name": "Foreign", "coordinates": []float64{19.4330, -99.1330}})

	hits, err := f.sites.Nearby(ctx, alice, 19.4326, -99.1332, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, near.ID, hits[0].ID)
	assert.Less(t, hits[0].DistanceKm, 1.0)

	hits, err = f.sites.Nearby(ctx, alice, 19.4326, -99.1332, 100)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, near.ID, hits[0].ID)
	assert.Equal(t, far.ID, hits[1].ID)

	_, err = f.sites.Nearby(ctx, alice, 95, 200, 10)
	assertKind(t, err, apperr.KindValidation)
	assert.Contains(t, apperr.From(err).Fields, "lat")
	assert.Contains(t, apperr.From(err).Fields, "lon")
}

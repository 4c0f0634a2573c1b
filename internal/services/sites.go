package services

import (
	"context"
	"encoding/json"
	"math"
	"sort"

	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/events"
	"arqueo-backend/internal/forms"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/repository"
	"go.uber.org/zap"
)

const (
	DefaultRadiusKm = 10.0
	earthRadiusKm   = 6371.0
)

type SiteEntity = EntityService[models.Site, *models.Site]

type SiteService struct {
	*SiteEntity
}

func NewSiteService(store repository.Store, schema *forms.Schema, pub events.Publisher, log *zap.Logger) *SiteService {
	return &SiteService{SiteEntity: NewEntityService[models.Site](SiteDefinition, prepareSite, store, schema, pub, log)}
}

type NearbySite struct {
	models.Site
	DistanceKm float64 `json:"distance_km"`
}

// HaversineKm is the great-circle distance between two lat/lon points.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Nearby returns the caller's sites within radiusKm of (lat, lon), nearest
// first. A non-positive radius means DefaultRadiusKm.
func (s *SiteService) Nearby(ctx context.Context, owner string, lat, lon, radiusKm float64) ([]NearbySite, error) {
	fields := map[string]string{}
	if lat < -90 || lat > 90 {
		fields["lat"] = "must be between -90 and 90"
	}
	if lon < -180 || lon > 180 {
		fields["lon"] = "must be between -180 and 180"
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid coordinates", fields)
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	out := []NearbySite{}
	err := s.store.Stream(ctx, s.def.scope(owner), func(raw json.RawMessage) error {
		var site models.Site
		if err := json.Unmarshal(raw, &site); err != nil {
			return err
		}
		if !site.Coordinates.Valid() {
			return nil
		}
		d := HaversineKm(lat, lon, site.Coordinates.Lat(), site.Coordinates.Lon())
		if d <= radiusKm {
			out = append(out, NearbySite{Site: site, DistanceKm: d})
		}
		return nil
	})
	if err != nil {
		return nil, persistence(err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

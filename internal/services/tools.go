package services

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"arqueo-backend/internal/activecontext"
	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/events"
	"arqueo-backend/internal/forms"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/repository"
	"go.uber.org/zap"
)

// Placed is an entity recorded under a project, area and site.
type Placed[T any] interface {
	Entity[T]
	Placement() (project, area, site string)
}

// ToolService backs the mapping tools. Every row belongs to the site of the
// caller's full context and is invisible from any other context.
type ToolService[T any, PT Placed[T]] struct {
	*EntityService[T, PT]
}

type (
	MeasurementService = ToolService[models.Measurement, *models.Measurement]
	GridUnitService    = ToolService[models.GridUnit, *models.GridUnit]
)

func NewMeasurementService(store repository.Store, schema *forms.Schema, pub events.Publisher, log *zap.Logger) *MeasurementService {
	return &MeasurementService{EntityService: NewEntityService[models.Measurement](MeasurementDefinition, prepareMeasurement, store, schema, pub, log)}
}

func NewGridUnitService(store repository.Store, schema *forms.Schema, pub events.Publisher, log *zap.Logger) *GridUnitService {
	return &GridUnitService{EntityService: NewEntityService[models.GridUnit](GridUnitDefinition, prepareGridUnit, store, schema, pub, log)}
}

func contextFilters(t activecontext.Triple) []repository.Filter {
	return []repository.Filter{
		{Column: "project_id", Value: t.Project},
		{Column: "area_id", Value: t.Area},
		{Column: "site_id", Value: t.Site},
	}
}

// CreateInContext stamps the triple over whatever parent ids body carries.
func (s *ToolService[T, PT]) CreateInContext(ctx context.Context, owner string, t activecontext.Triple, body map[string]interface{}) (PT, error) {
	values := make(map[string]interface{}, len(body)+3)
	for k, v := range body {
		values[k] = v
	}
	values["project_id"] = t.Project
	values["area_id"] = t.Area
	values["site_id"] = t.Site
	return s.Create(ctx, owner, values, nil)
}

func (s *ToolService[T, PT]) ListInContext(ctx context.Context, owner string, t activecontext.Triple, q url.Values) ([]T, models.Pagination, error) {
	return s.List(ctx, owner, q, contextFilters(t)...)
}

// AllInContext reads every row of the context, oldest first.
func (s *ToolService[T, PT]) AllInContext(ctx context.Context, owner string, t activecontext.Triple) ([]T, error) {
	all := []T{}
	for offset := 0; ; offset += MaxLimit {
		var items []T
		total, err := s.store.List(ctx, s.def.scope(owner), repository.ListOptions{
			Filters:   contextFilters(t),
			OrderBy:   "created_at",
			Ascending: true,
			Limit:     MaxLimit,
			Offset:    offset,
		}, &items)
		if err != nil {
			return nil, persistence(err)
		}
		all = append(all, items...)
		if len(items) == 0 || len(all) >= total {
			return all, nil
		}
	}
}

// GetInContext hides rows recorded under another context.
func (s *ToolService[T, PT]) GetInContext(ctx context.Context, owner string, t activecontext.Triple, id string) (PT, error) {
	v, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if p, a, site := v.Placement(); p != t.Project || a != t.Area || site != t.Site {
		return nil, apperr.NotFound(fmt.Sprintf("%s not found", s.def.Entity))
	}
	return v, nil
}

func (s *ToolService[T, PT]) UpdateInContext(ctx context.Context, owner string, t activecontext.Triple, id string, body map[string]interface{}) (PT, error) {
	if _, err := s.GetInContext(ctx, owner, t, id); err != nil {
		return nil, err
	}
	return s.Update(ctx, owner, id, body)
}

func (s *ToolService[T, PT]) DeleteInContext(ctx context.Context, owner string, t activecontext.Triple, id string) error {
	if _, err := s.GetInContext(ctx, owner, t, id); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil
		}
		return err
	}
	return s.Delete(ctx, owner, id)
}

// MappingService summarises and exports the mapping tool of one site.
type MappingService struct {
	grid         *GridUnitService
	measurements *MeasurementService
	findings     *FindingService
	now          func() time.Time
}

func NewMappingService(grid *GridUnitService, measurements *MeasurementService, findings *FindingService) *MappingService {
	return &MappingService{
		grid:         grid,
		measurements: measurements,
		findings:     findings,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *MappingService) Stats(ctx context.Context, owner string, t activecontext.Triple) (*models.MappingStats, error) {
	units, err := s.grid.AllInContext(ctx, owner, t)
	if err != nil {
		return nil, err
	}
	_, mp, err := s.measurements.ListInContext(ctx, owner, t, url.Values{"limit": {"1"}})
	if err != nil {
		return nil, err
	}
	stats, err := s.stats(ctx, owner, t, units, mp.Total)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *MappingService) stats(ctx context.Context, owner string, t activecontext.Triple, units []models.GridUnit, measurements int) (models.MappingStats, error) {
	_, fp, err := s.findings.List(ctx, owner, url.Values{"limit": {"1"}}, contextFilters(t)...)
	if err != nil {
		return models.MappingStats{}, err
	}
	stats := models.MappingStats{
		TotalGridUnits:    len(units),
		TotalMeasurements: measurements,
		TotalFindings:     fp.Total,
	}
	for _, u := range units {
		stats.TotalArea += u.Surface()
		switch u.Status {
		case models.GridUnitActive:
			stats.ActiveGridUnits++
		case models.GridUnitCompleted:
			stats.CompletedGridUnits++
		}
	}
	return stats, nil
}

// Export gathers every grid unit and measurement of the context with their
// statistics.
func (s *MappingService) Export(ctx context.Context, owner string, t activecontext.Triple) (*models.MappingExport, error) {
	units, err := s.grid.AllInContext(ctx, owner, t)
	if err != nil {
		return nil, err
	}
	measurements, err := s.measurements.AllInContext(ctx, owner, t)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats(ctx, owner, t, units, len(measurements))
	if err != nil {
		return nil, err
	}
	return &models.MappingExport{
		ProjectID:    t.Project,
		AreaID:       t.Area,
		SiteID:       t.Site,
		GridUnits:    units,
		Measurements: measurements,
		Stats:        stats,
		ExportedAt:   s.now(),
	}, nil
}

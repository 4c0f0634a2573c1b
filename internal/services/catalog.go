package services

import (
	"context"
	"net/url"

	"arqueo-backend/internal/events"
	"arqueo-backend/internal/forms"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/repository"
	"go.uber.org/zap"
)

type (
	AreaService             = EntityService[models.Area, *models.Area]
	FieldworkSessionService = EntityService[models.FieldworkSession, *models.FieldworkSession]
	ExcavationEntity        = EntityService[models.Excavation, *models.Excavation]
	ResearcherEntity        = EntityService[models.Researcher, *models.Researcher]
)

func NewAreaService(store repository.Store, schema *forms.Schema, pub events.Publisher, log *zap.Logger) *AreaService {
	return NewEntityService[models.Area](AreaDefinition, prepareArea, store, schema, pub, log)
}

func NewFieldworkSessionService(store repository.Store, schema *forms.Schema, pub events.Publisher, log *zap.Logger) *FieldworkSessionService {
	return NewEntityService[models.FieldworkSession](FieldworkSessionDefinition, prepareFieldworkSession, store, schema, pub, log)
}

type ExcavationService struct {
	*ExcavationEntity
}

func NewExcavationService(store repository.Store, schema *forms.Schema, pub events.Publisher, log *zap.Logger) *ExcavationService {
	return &ExcavationService{ExcavationEntity: NewEntityService[models.Excavation](ExcavationDefinition, prepareExcavation, store, schema, pub, log)}
}

func (s *ExcavationService) ByCode(ctx context.Context, owner, code string) (*models.Excavation, error) {
	return s.FindBy(ctx, owner, "excavation_code", code)
}

func (s *ExcavationService) BySite(ctx context.Context, owner, siteID string, q url.Values) ([]models.Excavation, models.Pagination, error) {
	return s.List(ctx, owner, q, repository.Filter{Column: "site_id", Value: siteID})
}

type ResearcherService struct {
	*ResearcherEntity
}

func NewResearcherService(store repository.Store, schema *forms.Schema, pub events.Publisher, log *zap.Logger) *ResearcherService {
	return &ResearcherService{ResearcherEntity: NewEntityService[models.Researcher](ResearcherDefinition, prepareResearcher, store, schema, pub, log)}
}

func (s *ResearcherService) BySpecialization(ctx context.Context, owner, q string) ([]models.Researcher, error) {
	return s.SearchIn(ctx, owner, q, []string{"specialization"})
}

func (s *ResearcherService) ByInstitution(ctx context.Context, owner, q string) ([]models.Researcher, error) {
	return s.SearchIn(ctx, owner, q, []string{"institution"})
}

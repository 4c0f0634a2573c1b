package services

import (
	"context"
	"math"
	"net/url"

	"arqueo-backend/internal/events"
	"arqueo-backend/internal/forms"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/repository"
	"go.uber.org/zap"
)

type (
	ProjectEntity   = EntityService[models.Project, *models.Project]
	MilestoneEntity = EntityService[models.Milestone, *models.Milestone]
)

// ProjectService adds milestone management and the cascading delete to the
// generic project operations.
type ProjectService struct {
	*ProjectEntity
	Milestones *MilestoneEntity
}

func NewProjectService(store repository.Store, schema *forms.Schema, pub events.Publisher, log *zap.Logger) *ProjectService {
	return &ProjectService{
		ProjectEntity: NewEntityService[models.Project](ProjectDefinition, prepareProject, store, schema, pub, log),
		Milestones:    NewEntityService[models.Milestone](MilestoneDefinition, prepareMilestone, store, schema, pub, log),
	}
}

// Update clamps a progress value into 0..100 before the generic update.
func (s *ProjectService) Update(ctx context.Context, owner, id string, body map[string]interface{}) (*models.Project, error) {
	if v, ok := body["progress"]; ok {
		patch := make(map[string]interface{}, len(body))
		for k, val := range body {
			patch[k] = val
		}
		patch["progress"] = clampProgress(v)
		body = patch
	}
	return s.ProjectEntity.Update(ctx, owner, id, body)
}

// clampProgress bounds numeric values; anything else is left for the type
// check to reject.
func clampProgress(v interface{}) interface{} {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	default:
		return v
	}
	return math.Max(0, math.Min(100, f))
}

// Delete removes the project and its milestones in one unit of work. Unlike
// other entities a missing project is reported as 404.
func (s *ProjectService) Delete(ctx context.Context, owner, id string) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	err := s.store.Atomic(ctx, func(tx repository.Tx) error {
		if _, err := tx.DeleteWhere(ctx, TableMilestones,
			repository.Filter{Column: ownerColumn, Value: owner},
			repository.Filter{Column: "project_id", Value: id},
		); err != nil {
			return err
		}
		return tx.Delete(ctx, s.def.scope(owner), id)
	})
	if err != nil {
		return persistence(err)
	}
	s.publish(ctx, events.ActionDeleted, id, owner)
	return nil
}

func (s *ProjectService) CreateMilestone(ctx context.Context, owner, projectID string, body map[string]interface{}) (*models.Milestone, error) {
	values := make(map[string]interface{}, len(body)+1)
	for k, v := range body {
		values[k] = v
	}
	values["project_id"] = projectID
	return s.Milestones.Create(ctx, owner, values, nil)
}

func (s *ProjectService) ListMilestones(ctx context.Context, owner, projectID string, q url.Values) ([]models.Milestone, models.Pagination, error) {
	if _, err := s.Get(ctx, owner, projectID); err != nil {
		return nil, models.Pagination{}, err
	}
	return s.Milestones.List(ctx, owner, q, repository.Filter{Column: "project_id", Value: projectID})
}

func (s *ProjectService) UpdateMilestone(ctx context.Context, owner, id string, body map[string]interface{}) (*models.Milestone, error) {
	return s.Milestones.Update(ctx, owner, id, body)
}

// DeleteMilestone checks the milestone exists before deleting it.
func (s *ProjectService) DeleteMilestone(ctx context.Context, owner, id string) error {
	if _, err := s.Milestones.Get(ctx, owner, id); err != nil {
		return err
	}
	return s.Milestones.Delete(ctx, owner, id)
}

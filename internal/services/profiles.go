package services

import (
	"context"
	"errors"
	"time"

	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/events"
	"arqueo-backend/internal/forms"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/repository"
	"go.uber.org/zap"
)

type ProfileService struct {
	store  repository.Store
	schema *forms.Schema
	pub    events.Publisher
	log    *zap.Logger
	now    func() time.Time
}

func NewProfileService(store repository.Store, schema *forms.Schema, pub events.Publisher, log *zap.Logger) *ProfileService {
	return &ProfileService{
		store:  store,
		schema: schema,
		pub:    pub,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func defaultProfile(user string) *models.PublicProfile {
	return &models.PublicProfile{
		UserID:             user,
		SocialMedia:        map[string]string{},
		PublicProjects:     []string{},
		PublicFindings:     []string{},
		PublicReports:      []string{},
		PublicPublications: []string{},
	}
}

func (s *ProfileService) find(ctx context.Context, user string) (*models.PublicProfile, error) {
	p := defaultProfile(user)
	err := s.store.FindOne(ctx, TableProfiles, []repository.Filter{{Column: "user_id", Value: user}}, p)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the caller's profile, or an empty private one when none has
// been saved yet.
func (s *ProfileService) Get(ctx context.Context, owner string) (*models.PublicProfile, error) {
	p, err := s.find(ctx, owner)
	if errors.Is(err, repository.ErrNotFound) {
		return defaultProfile(owner), nil
	}
	if err != nil {
		return nil, persistence(err)
	}
	return p, nil
}

// Update merges body over the stored profile and upserts it by user_id.
func (s *ProfileService) Update(ctx context.Context, owner string, body map[string]interface{}) (*models.PublicProfile, error) {
	cur, err := s.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	merged, err := toMap(cur)
	if err != nil {
		return nil, persistence(err)
	}
	for k, v := range body {
		if k == "user_id" || k == "updated_at" {
			continue
		}
		merged[k] = v
	}

	form, err := s.schema.New("public_profile", merged)
	if err != nil {
		return nil, err
	}
	values, err := form.Submit()
	if err != nil {
		return nil, err
	}

	next := defaultProfile(owner)
	if err := decodeInto(values, next); err != nil {
		return nil, err
	}
	next.UserID = owner
	next.UpdatedAt = s.now()

	out := defaultProfile(owner)
	if err := s.store.Upsert(ctx, TableProfiles, next, "user_id", out); err != nil {
		return nil, persistence(err)
	}
	e := events.Event{Entity: "public_profile", Action: events.ActionUpdated, ID: owner, Owner: owner, At: next.UpdatedAt}
	if err := s.pub.Publish(ctx, e); err != nil {
		s.log.Warn("failed to publish event", zap.String("routing_key", e.RoutingKey()), zap.Error(err))
	}
	return out, nil
}

// GetPublic serves a researcher's profile to anonymous visitors. Private
// and missing profiles are indistinguishable.
func (s *ProfileService) GetPublic(ctx context.Context, userID string) (*models.PublicProfile, error) {
	p, err := s.find(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !p.IsPublic) {
		return nil, apperr.NotFound("public profile not found")
	}
	if err != nil {
		return nil, persistence(err)
	}
	return p, nil
}

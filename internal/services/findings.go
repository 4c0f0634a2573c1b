package services

import (
	"context"
	"fmt"
	"io"

	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/events"
	"arqueo-backend/internal/forms"
	"arqueo-backend/internal/media"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/repository"
	"go.uber.org/zap"
)

type FindingEntity = EntityService[models.Finding, *models.Finding]

type FindingService struct {
	*FindingEntity
	blob media.Blob
}

// NewFindingService accepts a nil blob; media uploads then fail with a
// persistence error.
func NewFindingService(store repository.Store, schema *forms.Schema, pub events.Publisher, blob media.Blob, log *zap.Logger) *FindingService {
	return &FindingService{
		FindingEntity: NewEntityService[models.Finding](FindingDefinition, prepareFinding, store, schema, pub, log),
		blob:          blob,
	}
}

func mediaField(kind string) (string, error) {
	switch kind {
	case media.KindPhoto:
		return "photos", nil
	case media.KindDrawing:
		return "drawings", nil
	default:
		return "", apperr.Validation(fmt.Sprintf("kind must be %s or %s", media.KindPhoto, media.KindDrawing), map[string]string{"kind": "invalid"})
	}
}

// AttachMedia uploads a photo or drawing and appends its URL to the
// finding's photos or drawings.
func (s *FindingService) AttachMedia(ctx context.Context, owner, id, kind, filename, contentType string, r io.Reader) (*models.Finding, string, error) {
	field, err := mediaField(kind)
	if err != nil {
		return nil, "", err
	}
	if s.blob == nil {
		return nil, "", apperr.Persistence("media storage is not configured", nil)
	}
	if _, err := s.Get(ctx, owner, id); err != nil {
		return nil, "", err
	}

	key := media.Key(owner, id, kind, filename)
	url, err := s.blob.Put(ctx, key, r, contentType)
	if err != nil {
		return nil, "", apperr.Persistence("failed to upload media", err)
	}

	finding, err := s.AddListItem(ctx, owner, id, field, url)
	if err != nil {
		if derr := s.blob.Delete(ctx, key); derr != nil {
			s.log.Warn("failed to remove orphaned media", zap.String("key", key), zap.Error(derr))
		}
		return nil, "", err
	}
	return finding, url, nil
}

func (s *FindingService) ByCatalogNumber(ctx context.Context, owner, number string) (*models.Finding, error) {
	return s.FindBy(ctx, owner, "catalog_number", number)
}

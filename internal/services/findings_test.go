package services_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"arqueo-backend/internal/apperr"
	"arqueo-backend/internal/events"
	"arqueo-backend/internal/media"
	"arqueo-backend/internal/models"
	"arqueo-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlob struct {
	objects map[string]string
	putErr  error
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: map[string]string{}}
}

func (b *fakeBlob) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if b.putErr != nil {
		return "", b.putErr
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.objects[key] = string(raw)
	return "https://cdn.example.org/" + key, nil
}

func (b *fakeBlob) Delete(_ context.Context, key string) error {
	delete(b.objects, key)
	return nil
}

func findingBody(name string) map[string]interface{} {
	return map[string]interface{}{"name": name, "type": "ceramic", "description": "Rim sherd"}
}

func TestFindingCreate_Defaults(t *testing.T) {
	f := newFixture(t)
	fd, err := f.findings.Create(context.Background(), alice, findingBody("Sherd"), nil)
	require.NoError(t, err)

	assert.Equal(t, models.FindingNew, fd.Status)
	assert.Equal(t, "unknown", fd.Condition)
	assert.Equal(t, alice, fd.DiscoveredBy)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), fd.DiscoveredDate)
	assert.Equal(t, models.Coordinates{0, 0}, fd.Coordinates)
	assert.Equal(t, []string{}, fd.Photos)
	assert.Equal(t, []string{}, fd.Drawings)
	assert.Equal(t, []string{}, fd.Associations)
}

func TestFindingCreate_ContextPrefillAndCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.project(t, alice)
	a := f.area(t, alice, p.ID)
	s := f.site(t, alice, map[string]interface{}{"project_id": p.ID, "area_id": a.ID})

	body := findingBody("Obsidian blade")
	body["catalog_number"] = "CAT-0001"
	fd, err := f.findings.Create(ctx, alice, body, map[string]string{"project": p.ID, "area": a.ID, "site": s.ID})
	require.NoError(t, err)
	require.NotNil(t, fd.SiteID)
	assert.Equal(t, s.ID, *fd.SiteID)

	_, err = f.findings.Create(ctx, alice, body, nil)
	assertKind(t, err, apperr.KindConflict)

	// Catalog numbers are unique per owner.
	_, err = f.findings.Create(ctx, bob, body, nil)
	require.NoError(t, err)

	got, err := f.findings.ByCatalogNumber(ctx, alice, "CAT-0001")
	require.NoError(t, err)
	assert.Equal(t, fd.ID, got.ID)
}

func TestAttachMedia(t *testing.T) {
	ctx := context.Background()
	blob := newFakeBlob()
	f := newFixtureWith(t, repository.NewMemoryStore(), events.NopPublisher{}, blob)
	fd, err := f.findings.Create(ctx, alice, findingBody("Sherd"), nil)
	require.NoError(t, err)

	updated, url, err := f.findings.AttachMedia(ctx, alice, fd.ID, media.KindPhoto, "../../rim.jpg", "image/jpeg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	key := media.Key(alice, fd.ID, media.KindPhoto, "rim.jpg")
	assert.Equal(t, "https://cdn.example.org/"+key, url)
	assert.Equal(t, []string{url}, updated.Photos)
	assert.Equal(t, "jpeg", blob.objects[key])

	updated, _, err = f.findings.AttachMedia(ctx, alice, fd.ID, media.KindDrawing, "plan.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Len(t, updated.Drawings, 1)
	assert.Len(t, updated.Photos, 1)

	_, _, err = f.findings.AttachMedia(ctx, alice, fd.ID, "video", "clip.mp4", "video/mp4", strings.NewReader(""))
	assertKind(t, err, apperr.KindValidation)

	_, _, err = f.findings.AttachMedia(ctx, bob, fd.ID, media.KindPhoto, "x.jpg", "image/jpeg", strings.NewReader(""))
	assertKind(t, err, apperr.KindNotFound)
}

func TestAttachMedia_Failures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	fd, err := f.findings.Create(ctx, alice, findingBody("Sherd"), nil)
	require.NoError(t, err)

	_, _, err = f.findings.AttachMedia(ctx, alice, fd.ID, media.KindPhoto, "a.jpg", "image/jpeg", strings.NewReader(""))
	assertKind(t, err, apperr.KindPersistence)

	blob := newFakeBlob()
	blob.putErr = errors.New("bucket unavailable")
	f = newFixtureWith(t, f.store, events.NopPublisher{}, blob)
	_, _, err = f.findings.AttachMedia(ctx, alice, fd.ID, media.KindPhoto, "a.jpg", "image/jpeg", strings.NewReader(""))
	assertKind(t, err, apperr.KindPersistence)

	got, err := f.findings.Get(ctx, alice, fd.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Photos)
}

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
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// failingStore fails the final delete of every unit of work.
type failingStore struct {
	*repository.MemoryStore
}

type failingTx struct {
	repository.Tx
}

func (failingTx) Delete(context.Context, repository.Scope, string) error {
	return errors.New("connection reset")
}

func (s failingStore) Atomic(ctx context.Context, fn func(repository.Tx) error) error {
	return s.MemoryStore.Atomic(ctx, func(tx repository.Tx) error {
		return fn(failingTx{tx})
	})
}

func milestoneBody(title string) map[string]interface{} {
	return map[string]interface{}{"title": title, "description": "Phase gate", "date": "2024-06-01"}
}

func TestProjectDelete_CascadesToMilestones(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.project(t, alice)
	other := f.project(t, alice)
	for _, title := range []string{"Survey", "Test pits"} {
		m, err := f.projects.CreateMilestone(ctx, alice, p.ID, milestoneBody(title))
		require.NoError(t, err)
		assert.Equal(t, models.MilestonePending, m.Status)
		assert.Equal(t, p.ID, m.ProjectID)
	}
	_, err := f.projects.CreateMilestone(ctx, alice, other.ID, milestoneBody("Report"))
	require.NoError(t, err)

	require.NoError(t, f.projects.Delete(ctx, alice, p.ID))

	_, err = f.projects.Get(ctx, alice, p.ID)
	assertKind(t, err, apperr.KindNotFound)
	assert.Equal(t, 1, rowCount(t, f.store, services.TableMilestones, alice))

	err = f.projects.Delete(ctx, alice, p.ID)
	assertKind(t, err, apperr.KindNotFound)
}

func TestProjectDelete_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	seed := newFixtureWith(t, mem, events.NopPublisher{}, nil)
	p := seed.project(t, alice)
	for _, title := range []string{"Survey", "Test pits"} {
		_, err := seed.projects.CreateMilestone(ctx, alice, p.ID, milestoneBody(title))
		require.NoError(t, err)
	}

	svc := services.NewProjectService(failingStore{mem}, forms.Default(), events.NopPublisher{}, zap.NewNop())
	err := svc.Delete(ctx, alice, p.ID)
	assertKind(t, err, apperr.KindPersistence)

	_, err = seed.projects.Get(ctx, alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rowCount(t, mem, services.TableMilestones, alice))
}

func TestMilestones(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.project(t, alice)

	_, err := f.projects.CreateMilestone(ctx, alice, "missing", milestoneBody("Survey"))
	assertKind(t, err, apperr.KindNotFound)

	m, err := f.projects.CreateMilestone(ctx, alice, p.ID, milestoneBody("Survey"))
	require.NoError(t, err)

	items, page, err := f.projects.ListMilestones(ctx, alice, p.ID, url.Values{})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, page.Total)

	_, _, err = f.projects.ListMilestones(ctx, bob, p.ID, url.Values{})
	assertKind(t, err, apperr.KindNotFound)

	m, err = f.projects.UpdateMilestone(ctx, alice, m.ID, map[string]interface{}{"status": models.MilestoneCompleted, "project_id": "elsewhere"})
	require.NoError(t, err)
	assert.Equal(t, models.MilestoneCompleted, m.Status)
	assert.Equal(t, p.ID, m.ProjectID)

	require.NoError(t, f.projects.DeleteMilestone(ctx, alice, m.ID))
	assertKind(t, f.projects.DeleteMilestone(ctx, alice, m.ID), apperr.KindNotFound)
}

func TestProjectProgressIsClamped(t *testing.T) {
	f := newFixture(t)
	body := projectBody("Overachiever")
	body["progress"] = 140

	p, err := f.projects.Create(context.Background(), alice, body, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, p.Progress)
}

func TestProjectProgressIsClampedOnUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.project(t, alice)

	cases := []struct {
		progress interface{}
		want     int
	}{
		{150, 100},
		{float64(-20), 0},
		{float64(64), 64},
	}
	for _, tc := range cases {
		got, err := f.projects.Update(ctx, alice, p.ID, map[string]interface{}{"progress": tc.progress})
		require.NoError(t, err)
		assert.Equal(t, tc.want, got.Progress, "progress %v", tc.progress)
	}

	_, err := f.projects.Update(ctx, alice, p.ID, map[string]interface{}{"progress": "lots"})
	assertKind(t, err, apperr.KindValidation)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
	"github.com/visionhub-hq/onboarding-service/internal/config"
	"github.com/visionhub-hq/onboarding-service/internal/models"
)

func staffUser(id uint) *models.User {
	return &models.User{ID: id, Active: true, Role: models.Role{Name: models.RoleStaff}}
}

func newFanoutFixture(policy config.PolicyConfig, users map[uint]*models.User) (*fakeRepo, AssignmentService) {
	repo := &fakeRepo{
		user:       &fakeUserRepo{users: users},
		module:     &fakeModuleRepo{modules: map[uint]*models.TrainingModule{1: publishedModule()}},
		assignment: newFakeAssignmentRepo(),
	}
	svc := NewAssignmentService(repo, nil, testLogger(), cache.NewCacheManager(nil), policy)
	return repo, svc
}

func TestFanout_AssignsActiveStaff(t *testing.T) {
	admin := &models.User{ID: 3, Active: true, Role: models.Role{Name: models.RoleAdmin}}
	inactive := staffUser(4)
	inactive.Active = false

	repo, svc := newFanoutFixture(testPolicy(), map[uint]*models.User{
		1: staffUser(1),
		2: staffUser(2),
		3: admin,
		4: inactive,
	})

	result, err := svc.Fanout(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Assigned)
	assert.Equal(t, 0, result.Skipped)
	assert.Len(t, repo.assignment.assignments, 2)

	stored, err := repo.assignment.GetByUserAndModule(context.Background(), nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentNotStarted, stored.Status)
}

func TestFanout_RerunSkipsExistingHolders(t *testing.T) {
	_, svc := newFanoutFixture(testPolicy(), map[uint]*models.User{
		1: staffUser(1),
		2: staffUser(2),
	})

	_, err := svc.Fanout(context.Background(), 1)
	require.NoError(t, err)

	result, err := svc.Fanout(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Assigned)
	assert.Equal(t, 2, result.Skipped)
}

func TestFanout_PartialFailureLeavesNoAssignments(t *testing.T) {
	repo, svc := newFanoutFixture(testPolicy(), map[uint]*models.User{
		1: staffUser(1),
		2: staffUser(2),
		3: staffUser(3),
	})
	repo.assignment.failForUser = 3

	_, err := svc.Fanout(context.Background(), 1)
	require.Error(t, err)

	// The whole run rolls back, never a partial audience.
	assert.Empty(t, repo.assignment.assignments)
}

func TestFanout_NonAdminScopeIncludesManagers(t *testing.T) {
	policy := testPolicy()
	policy.FanoutScope = config.FanoutNonAdmin

	manager := &models.User{ID: 2, Active: true, Role: models.Role{Name: models.RoleManager}}
	admin := &models.User{ID: 3, Active: true, Role: models.Role{Name: models.RoleAdmin}}

	_, svc := newFanoutFixture(policy, map[uint]*models.User{
		1: staffUser(1),
		2: manager,
		3: admin,
	})

	result, err := svc.Fanout(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Assigned)
}

func TestFanout_RejectsUnpublishedModule(t *testing.T) {
	repo, svc := newFanoutFixture(testPolicy(), map[uint]*models.User{1: staffUser(1)})
	repo.module.modules[1].Status = models.ModuleDraft

	_, err := svc.Fanout(context.Background(), 1)
	assert.ErrorIs(t, err, ErrModuleNotPublished)
}

func TestFanout_UnknownModule(t *testing.T) {
	_, svc := newFanoutFixture(testPolicy(), map[uint]*models.User{1: staffUser(1)})

	_, err := svc.Fanout(context.Background(), 99)
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestBackfillUser_AssignsMissingModules(t *testing.T) {
	repo, svc := newFanoutFixture(testPolicy(), map[uint]*models.User{1: staffUser(1)})

	second := publishedModule()
	second.ID = 2
	second.Title = "Data Protection"
	repo.module.modules[2] = second

	// Already holds module 1 from an earlier fan-out.
	_, err := repo.assignment.CreateIfMissing(context.Background(), nil, 1, 1, time.Now())
	require.NoError(t, err)

	count, err := svc.BackfillUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = repo.assignment.GetByUserAndModule(context.Background(), nil, 1, 2)
	assert.NoError(t, err)
}

func TestBackfillUser_SkipsOutOfAudienceUsers(t *testing.T) {
	admin := &models.User{ID: 1, Active: true, Role: models.Role{Name: models.RoleAdmin}}
	repo, svc := newFanoutFixture(testPolicy(), map[uint]*models.User{1: admin})

	count, err := svc.BackfillUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, repo.assignment.assignments)
}

func TestBackfillUser_SkipsDraftModules(t *testing.T) {
	repo, svc := newFanoutFixture(testPolicy(), map[uint]*models.User{1: staffUser(1)})
	repo.module.modules[1].Status = models.ModuleDraft

	count, err := svc.BackfillUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestBackfillUser_UnknownUser(t *testing.T) {
	_, svc := newFanoutFixture(testPolicy(), map[uint]*models.User{})

	_, err := svc.BackfillUser(context.Background(), 42)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/validator"
)

func newModuleFixture(users map[uint]*models.User) (*fakeRepo, ModuleService) {
	repo := &fakeRepo{
		user:       &fakeUserRepo{users: users},
		module:     &fakeModuleRepo{modules: map[uint]*models.TrainingModule{1: publishedModule()}},
		assignment: newFakeAssignmentRepo(),
	}
	cm := cache.NewCacheManager(nil)
	assignment := NewAssignmentService(repo, nil, testLogger(), cm, testPolicy())
	svc := NewModuleService(repo, nil, testLogger(), validator.New(), cm, testPublisher(), assignment)
	return repo, svc
}

func adminUser() *models.User {
	return &models.User{ID: 100, Active: true, Role: models.Role{Name: models.RoleAdmin}}
}

func TestPublish_FansOutToAudience(t *testing.T) {
	repo, svc := newModuleFixture(map[uint]*models.User{
		1: staffUser(1),
		2: staffUser(2),
	})
	repo.module.modules[1].Status = models.ModuleDraft

	result, err := svc.Publish(context.Background(), 1, adminUser())
	require.NoError(t, err)

	assert.Equal(t, models.ModulePublished, repo.module.modules[1].Status)
	assert.Equal(t, 2, result.Assigned)
	assert.Len(t, repo.assignment.assignments, 2)
}

func TestPublish_RerunOnlyBackfills(t *testing.T) {
	repo, svc := newModuleFixture(map[uint]*models.User{1: staffUser(1)})
	repo.module.modules[1].Status = models.ModuleDraft

	_, err := svc.Publish(context.Background(), 1, adminUser())
	require.NoError(t, err)

	// A hire after the first publish gets picked up by the re-run.
	repo.user.users[2] = staffUser(2)

	result, err := svc.Publish(context.Background(), 1, adminUser())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Assigned)
	assert.Equal(t, 1, result.Skipped)
}

func TestPublish_FailedFanoutRollsBackStatus(t *testing.T) {
	repo, svc := newModuleFixture(map[uint]*models.User{
		1: staffUser(1),
		2: staffUser(2),
	})
	repo.module.modules[1].Status = models.ModuleDraft
	repo.assignment.failForUser = 2

	_, err := svc.Publish(context.Background(), 1, adminUser())
	require.Error(t, err)

	// The status flip and the fan-out share one transaction, so a failed
	// insert leaves neither a published module nor a partial audience.
	assert.Equal(t, models.ModuleDraft, repo.module.modules[1].Status)
	assert.Empty(t, repo.assignment.assignments)
	assert.Equal(t, 1, repo.txCalls)
}

func TestPublish_RequiresQuestions(t *testing.T) {
	repo, svc := newModuleFixture(map[uint]*models.User{1: staffUser(1)})
	repo.module.modules[1].Status = models.ModuleDraft
	repo.module.modules[1].Questions = nil

	_, err := svc.Publish(context.Background(), 1, adminUser())
	require.Error(t, err)

	var ruleErr *BusinessRuleError
	require.ErrorAs(t, err, &ruleErr)
	assert.Equal(t, "publish_requires_questions", ruleErr.Rule)
}

func TestPublish_RetiredModuleStaysRetired(t *testing.T) {
	repo, svc := newModuleFixture(map[uint]*models.User{1: staffUser(1)})
	repo.module.modules[1].Status = models.ModuleRetired

	_, err := svc.Publish(context.Background(), 1, adminUser())
	assert.ErrorIs(t, err, ErrModuleRetired)
}

func TestRetire_PreservesAssignments(t *testing.T) {
	repo, svc := newModuleFixture(map[uint]*models.User{1: staffUser(1)})

	_, err := repo.assignment.CreateIfMissing(context.Background(), nil, 1, 1, time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.Retire(context.Background(), 1, adminUser()))

	assert.Equal(t, models.ModuleRetired, repo.module.modules[1].Status)
	assert.False(t, repo.module.modules[1].Active)
	assert.Len(t, repo.assignment.assignments, 1)

	// Retiring twice is a no-op.
	assert.NoError(t, svc.Retire(context.Background(), 1, adminUser()))
}

func TestGetByID_StripsAnswerKeyForStaff(t *testing.T) {
	_, svc := newModuleFixture(map[uint]*models.User{1: staffUser(1)})

	resp, err := svc.GetByID(context.Background(), 1, staffUser(1))
	require.NoError(t, err)

	for _, q := range resp.Questions {
		for _, opt := range q.Options {
			assert.False(t, opt.IsCorrect)
		}
	}
	assert.False(t, resp.CanEdit)
	assert.False(t, resp.CanRetire)
}

func TestGetByID_KeepsAnswerKeyForManagers(t *testing.T) {
	_, svc := newModuleFixture(nil)

	manager := &models.User{ID: 50, Active: true, Role: models.Role{Name: models.RoleManager}}
	resp, err := svc.GetByID(context.Background(), 1, manager)
	require.NoError(t, err)

	found := false
	for _, q := range resp.Questions {
		for _, opt := range q.Options {
			if opt.IsCorrect {
				found = true
			}
		}
	}
	assert.True(t, found)
	assert.True(t, resp.CanRetire)
}

func TestGetByID_StaffCannotSeeDrafts(t *testing.T) {
	repo, svc := newModuleFixture(nil)
	repo.module.modules[1].Status = models.ModuleDraft

	_, err := svc.GetByID(context.Background(), 1, staffUser(1))
	assert.ErrorIs(t, err, ErrModuleNotFound)
}

func TestUpdate_PublishedContentIsFrozen(t *testing.T) {
	_, svc := newModuleFixture(nil)

	_, err := svc.Update(context.Background(), 1, &UpdateModuleRequest{
		Questions: []validator.QuestionRequest{
			{Text: "new question", Options: []validator.OptionRequest{
				{Text: "a", IsCorrect: true}, {Text: "b"}, {Text: "c"}, {Text: "d"},
			}},
		},
	}, adminUser())
	assert.ErrorIs(t, err, ErrPublishedImmutable)
}

func TestUpdate_PublishedMetadataStaysEditable(t *testing.T) {
	repo, svc := newModuleFixture(nil)

	title := "Health and Safety v2"
	_, err := svc.Update(context.Background(), 1, &UpdateModuleRequest{Title: &title}, adminUser())
	require.NoError(t, err)
	assert.Equal(t, title, repo.module.modules[1].Title)
}

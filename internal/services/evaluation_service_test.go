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
	"github.com/visionhub-hq/onboarding-service/internal/validator"
)

func publishedModule() *models.TrainingModule {
	return &models.TrainingModule{
		ID:     1,
		Title:  "Health and Safety",
		Status: models.ModulePublished,
		Active: true,
		Questions: []models.Question{
			{ID: 10, Options: []models.Option{{ID: 101, IsCorrect: true}, {ID: 102}, {ID: 103}, {ID: 104}}},
			{ID: 20, Options: []models.Option{{ID: 201}, {ID: 202, IsCorrect: true}, {ID: 203}, {ID: 204}}},
			{ID: 30, Options: []models.Option{{ID: 301}, {ID: 302}, {ID: 303, IsCorrect: true}, {ID: 304}}},
			{ID: 40, Options: []models.Option{{ID: 401}, {ID: 402}, {ID: 403}, {ID: 404, IsCorrect: true}}},
		},
	}
}

func newEvaluationFixture(policy config.PolicyConfig) (*fakeRepo, EvaluationService) {
	repo := &fakeRepo{
		module:     &fakeModuleRepo{modules: map[uint]*models.TrainingModule{1: publishedModule()}},
		assignment: newFakeAssignmentRepo(),
	}
	svc := NewEvaluationService(repo, nil, testLogger(), validator.New(), cache.NewCacheManager(nil), testPublisher(), policy)
	return repo, svc
}

func TestRoundedScore(t *testing.T) {
	tests := []struct {
		correct int
		total   int
		want    float64
	}{
		{3, 4, 75},
		{1, 2, 50},
		{4, 4, 100},
		{0, 4, 0},
		{1, 3, 33},
		{2, 3, 67},
		{0, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundedScore(tt.correct, tt.total), "%d/%d", tt.correct, tt.total)
	}
}

func TestGradeAnswers_SnapshotsCorrectness(t *testing.T) {
	module := publishedModule()
	answers, correct := gradeAnswers(module, []validator.AnswerSelection{
		{QuestionID: 10, OptionID: 101},
		{QuestionID: 20, OptionID: 203},
		{QuestionID: 30, OptionID: 303},
		{QuestionID: 40, OptionID: 404},
	})

	assert.Equal(t, 3, correct)
	require.Len(t, answers, 4)
	assert.True(t, answers[0].IsCorrect)
	assert.False(t, answers[1].IsCorrect)
	assert.Equal(t, uint(203), answers[1].SelectedOptionID)
}

func TestSubmit_ScoresAndCompletes(t *testing.T) {
	repo, svc := newEvaluationFixture(testPolicy())
	_, err := repo.assignment.CreateIfMissing(context.Background(), nil, 7, 1, time.Now())
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), 7, 1, &QuizSubmitRequest{
		Answers: []validator.AnswerSelection{
			{QuestionID: 10, OptionID: 101},
			{QuestionID: 20, OptionID: 202},
			{QuestionID: 30, OptionID: 303},
			{QuestionID: 40, OptionID: 401},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, float64(75), result.Score)
	assert.Equal(t, 3, result.Correct)
	assert.Equal(t, 4, result.Total)
	assert.True(t, result.Passed)
	assert.Equal(t, 1, result.Attempts)

	stored, err := repo.assignment.GetByUserAndModule(context.Background(), nil, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCompleted, stored.Status)
	require.NotNil(t, stored.Score)
	assert.Equal(t, float64(75), *stored.Score)
	assert.NotNil(t, stored.CompletedAt)
	assert.NotNil(t, stored.StartedAt)
	assert.Len(t, repo.assignment.answers[stored.ID], 4)
}

func TestSubmit_FailingScoreStillCompletes(t *testing.T) {
	repo, svc := newEvaluationFixture(testPolicy())
	_, err := repo.assignment.CreateIfMissing(context.Background(), nil, 7, 1, time.Now())
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), 7, 1, &QuizSubmitRequest{
		Answers: []validator.AnswerSelection{
			{QuestionID: 10, OptionID: 102},
			{QuestionID: 20, OptionID: 201},
			{QuestionID: 30, OptionID: 303},
			{QuestionID: 40, OptionID: 401},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, float64(25), result.Score)
	assert.False(t, result.Passed)

	stored, err := repo.assignment.GetByUserAndModule(context.Background(), nil, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentCompleted, stored.Status)
}

func TestSubmit_RejectsResubmissionByDefault(t *testing.T) {
	repo, svc := newEvaluationFixture(testPolicy())
	_, err := repo.assignment.CreateIfMissing(context.Background(), nil, 7, 1, time.Now())
	require.NoError(t, err)

	fullSet := &QuizSubmitRequest{
		Answers: []validator.AnswerSelection{
			{QuestionID: 10, OptionID: 101},
			{QuestionID: 20, OptionID: 202},
			{QuestionID: 30, OptionID: 303},
			{QuestionID: 40, OptionID: 404},
		},
	}

	_, err = svc.Submit(context.Background(), 7, 1, fullSet)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), 7, 1, fullSet)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestSubmit_OverwritePolicyReplacesScore(t *testing.T) {
	policy := testPolicy()
	policy.Resubmission = config.ResubmissionOverwrite
	repo, svc := newEvaluationFixture(policy)
	_, err := repo.assignment.CreateIfMissing(context.Background(), nil, 7, 1, time.Now())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), 7, 1, &QuizSubmitRequest{
		Answers: []validator.AnswerSelection{
			{QuestionID: 10, OptionID: 102},
			{QuestionID: 20, OptionID: 201},
			{QuestionID: 30, OptionID: 301},
			{QuestionID: 40, OptionID: 401},
		},
	})
	require.NoError(t, err)

	result, err := svc.Submit(context.Background(), 7, 1, &QuizSubmitRequest{
		Answers: []validator.AnswerSelection{
			{QuestionID: 10, OptionID: 101},
			{QuestionID: 20, OptionID: 202},
			{QuestionID: 30, OptionID: 303},
			{QuestionID: 40, OptionID: 404},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, float64(100), result.Score)
	assert.Equal(t, 2, result.Attempts)
}

func TestSubmit_RejectsIncompleteAnswerSet(t *testing.T) {
	repo, svc := newEvaluationFixture(testPolicy())
	_, err := repo.assignment.CreateIfMissing(context.Background(), nil, 7, 1, time.Now())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), 7, 1, &QuizSubmitRequest{
		Answers: []validator.AnswerSelection{
			{QuestionID: 10, OptionID: 101},
		},
	})
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "missing_selection", errs[0].Rule)
}

func TestSubmit_RejectsForeignOption(t *testing.T) {
	repo, svc := newEvaluationFixture(testPolicy())
	_, err := repo.assignment.CreateIfMissing(context.Background(), nil, 7, 1, time.Now())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), 7, 1, &QuizSubmitRequest{
		Answers: []validator.AnswerSelection{
			{QuestionID: 10, OptionID: 201},
			{QuestionID: 20, OptionID: 202},
			{QuestionID: 30, OptionID: 303},
			{QuestionID: 40, OptionID: 404},
		},
	})
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "foreign_option", errs[0].Rule)
}

func TestSubmit_UnassignedUser(t *testing.T) {
	_, svc := newEvaluationFixture(testPolicy())

	_, err := svc.Submit(context.Background(), 99, 1, &QuizSubmitRequest{
		Answers: []validator.AnswerSelection{
			{QuestionID: 10, OptionID: 101},
			{QuestionID: 20, OptionID: 202},
			{QuestionID: 30, OptionID: 303},
			{QuestionID: 40, OptionID: 404},
		},
	})
	assert.ErrorIs(t, err, ErrNotAssigned)
}

func TestSubmit_RetiredModule(t *testing.T) {
	repo, svc := newEvaluationFixture(testPolicy())
	repo.module.modules[1].Status = models.ModuleRetired
	repo.module.modules[1].Active = false

	_, err := svc.Submit(context.Background(), 7, 1, &QuizSubmitRequest{
		Answers: []validator.AnswerSelection{{QuestionID: 10, OptionID: 101}},
	})
	assert.ErrorIs(t, err, ErrModuleRetired)
}

func TestSave_MarksInProgressWithoutScoring(t *testing.T) {
	repo, svc := newEvaluationFixture(testPolicy())
	_, err := repo.assignment.CreateIfMissing(context.Background(), nil, 7, 1, time.Now())
	require.NoError(t, err)

	err = svc.Save(context.Background(), 7, 1, &QuizSaveRequest{
		Answers: []validator.AnswerSelection{
			{QuestionID: 10, OptionID: 101},
		},
	})
	require.NoError(t, err)

	stored, err := repo.assignment.GetByUserAndModule(context.Background(), nil, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentInProgress, stored.Status)
	assert.Nil(t, stored.Score)
	assert.Equal(t, 0, stored.Attempts)
	assert.NotNil(t, stored.StartedAt)
}

func TestSave_EmptyAnswersStillStarts(t *testing.T) {
	repo, svc := newEvaluationFixture(testPolicy())
	_, err := repo.assignment.CreateIfMissing(context.Background(), nil, 7, 1, time.Now())
	require.NoError(t, err)

	err = svc.Save(context.Background(), 7, 1, &QuizSaveRequest{})
	require.NoError(t, err)

	stored, err := repo.assignment.GetByUserAndModule(context.Background(), nil, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentInProgress, stored.Status)
}

func TestSave_CompletedAssignmentNotReopened(t *testing.T) {
	repo, svc := newEvaluationFixture(testPolicy())
	_, err := repo.assignment.CreateIfMissing(context.Background(), nil, 7, 1, time.Now())
	require.NoError(t, err)

	stored, err := repo.assignment.GetByUserAndModule(context.Background(), nil, 7, 1)
	require.NoError(t, err)
	stored.Status = models.AssignmentCompleted
	require.NoError(t, repo.assignment.Update(context.Background(), nil, stored))

	err = svc.Save(context.Background(), 7, 1, &QuizSaveRequest{})
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestSubmitAndSave_ReadAssignmentUnderRowLock(t *testing.T) {
	repo, svc := newEvaluationFixture(testPolicy())
	_, err := repo.assignment.CreateIfMissing(context.Background(), nil, 7, 1, time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.Save(context.Background(), 7, 1, &QuizSaveRequest{}))

	_, err = svc.Submit(context.Background(), 7, 1, &QuizSubmitRequest{
		Answers: []validator.AnswerSelection{
			{QuestionID: 10, OptionID: 101},
			{QuestionID: 20, OptionID: 202},
			{QuestionID: 30, OptionID: 303},
			{QuestionID: 40, OptionID: 404},
		},
	})
	require.NoError(t, err)

	// Both paths must take the FOR UPDATE read so two concurrent
	// submissions on the same pair serialize instead of both finalizing.
	assert.Equal(t, 2, repo.assignment.lockedReads)
}

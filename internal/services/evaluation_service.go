package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
	"github.com/visionhub-hq/onboarding-service/internal/config"
	"github.com/visionhub-hq/onboarding-service/internal/events"
	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
	"github.com/visionhub-hq/onboarding-service/internal/validator"
)

type evaluationService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	cache     *cache.CacheManager
	publisher events.Publisher
	policy    config.PolicyConfig
}

func NewEvaluationService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, cacheManager *cache.CacheManager, publisher events.Publisher, policy config.PolicyConfig) EvaluationService {
	return &evaluationService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		cache:     cacheManager,
		publisher: publisher,
		policy:    policy,
	}
}

// Submit grades a complete answer set and closes the assignment. The
// score is the rounded percentage of correct selections; answers are
// snapshotted with their correctness so later module edits cannot
// rewrite history.
func (s *evaluationService) Submit(ctx context.Context, userID, moduleID uint, req *QuizSubmitRequest) (*QuizResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return nil, err
	}

	if errs := s.validator.ValidateQuizSelections(module, req.Answers); len(errs) > 0 {
		return nil, errs
	}

	var result *QuizResult
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		// The locked read serializes concurrent submissions on the same
		// pair, so the completed check below cannot race.
		assignment, err := txRepo.Assignment().GetByUserAndModuleForUpdate(ctx, nil, userID, moduleID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrNotAssigned
			}
			return fmt.Errorf("failed to get assignment: %w", err)
		}

		if assignment.Status == models.AssignmentCompleted && s.policy.Resubmission == config.ResubmissionReject {
			return ErrAlreadyCompleted
		}

		answers, correct := gradeAnswers(module, req.Answers)
		score := roundedScore(correct, len(module.Questions))

		if err := txRepo.Assignment().UpsertAnswers(ctx, nil, assignment.ID, answers); err != nil {
			return fmt.Errorf("failed to store answers: %w", err)
		}

		now := time.Now()
		if assignment.StartedAt == nil {
			assignment.StartedAt = &now
		}
		assignment.Status = models.AssignmentCompleted
		assignment.Score = &score
		assignment.Attempts++
		assignment.CompletedAt = &now

		if err := txRepo.Assignment().Update(ctx, nil, assignment); err != nil {
			return fmt.Errorf("failed to complete assignment: %w", err)
		}

		result = &QuizResult{
			AssignmentID: assignment.ID,
			ModuleID:     moduleID,
			Score:        score,
			Correct:      correct,
			Total:        len(module.Questions),
			Passed:       score >= s.policy.PassingScore,
			Attempts:     assignment.Attempts,
			CompletedAt:  now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateAssignmentCache(ctx, s.cache, userID, moduleID)
	s.logger.Info("Quiz submitted",
		"user_id", userID,
		"module_id", moduleID,
		"score", result.Score,
		"passed", result.Passed,
		"attempts", result.Attempts)

	if err := s.publisher.Publish(events.EventAssignmentCompleted, events.AssignmentCompleted{
		AssignmentID: result.AssignmentID,
		UserID:       userID,
		ModuleID:     moduleID,
		Score:        result.Score,
		Passed:       result.Passed,
		Attempts:     result.Attempts,
	}); err != nil {
		s.logger.Error("Failed to publish completion event", "assignment_id", result.AssignmentID, "error", err)
	}

	return result, nil
}

// Save stores a partial selection set without scoring and marks the
// assignment in progress. A completed assignment is never reopened.
func (s *evaluationService) Save(ctx context.Context, userID, moduleID uint, req *QuizSaveRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	module, err := s.loadModule(ctx, moduleID)
	if err != nil {
		return err
	}

	// Partial saves legitimately omit questions; only structural problems
	// with the provided selections are rejected.
	if errs := dropMissingSelectionErrors(s.validator.ValidateQuizSelections(module, req.Answers)); len(errs) > 0 {
		return errs
	}

	return s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		assignment, err := txRepo.Assignment().GetByUserAndModuleForUpdate(ctx, nil, userID, moduleID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrNotAssigned
			}
			return fmt.Errorf("failed to get assignment: %w", err)
		}

		if assignment.Status == models.AssignmentCompleted {
			return ErrAlreadyCompleted
		}

		if len(req.Answers) > 0 {
			answers, _ := gradeAnswers(module, req.Answers)
			if err := txRepo.Assignment().UpsertAnswers(ctx, nil, assignment.ID, answers); err != nil {
				return fmt.Errorf("failed to store answers: %w", err)
			}
		}

		if assignment.Status == models.AssignmentNotStarted {
			now := time.Now()
			assignment.Status = models.AssignmentInProgress
			assignment.StartedAt = &now
			if err := txRepo.Assignment().Update(ctx, nil, assignment); err != nil {
				return fmt.Errorf("failed to update assignment: %w", err)
			}
			cache.InvalidateAssignmentCache(ctx, s.cache, userID, moduleID)
		}
		return nil
	})
}

func (s *evaluationService) loadModule(ctx context.Context, moduleID uint) (*models.TrainingModule, error) {
	module, err := s.repo.Module().GetByIDWithQuestions(ctx, nil, moduleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	if module.Status == models.ModuleRetired || !module.Active {
		return nil, ErrModuleRetired
	}
	if module.Status != models.ModulePublished {
		return nil, ErrModuleNotPublished
	}
	return module, nil
}

// gradeAnswers snapshots each selection with its correctness against the
// module's current answer key.
func gradeAnswers(module *models.TrainingModule, selections []validator.AnswerSelection) ([]models.AssignmentAnswer, int) {
	correctByQuestion := make(map[uint]uint, len(module.Questions))
	for _, q := range module.Questions {
		if opt := q.CorrectOption(); opt != nil {
			correctByQuestion[q.ID] = opt.ID
		}
	}

	answers := make([]models.AssignmentAnswer, len(selections))
	correct := 0
	for i, sel := range selections {
		isCorrect := correctByQuestion[sel.QuestionID] == sel.OptionID
		if isCorrect {
			correct++
		}
		answers[i] = models.AssignmentAnswer{
			QuestionID:       sel.QuestionID,
			SelectedOptionID: sel.OptionID,
			IsCorrect:        isCorrect,
		}
	}
	return answers, correct
}

// roundedScore is the percentage of correct answers rounded to the nearest
// integer: 3 of 4 scores 75, 1 of 2 scores 50.
func roundedScore(correct, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(correct) / float64(total) * 100)
}

func dropMissingSelectionErrors(errs validator.ValidationErrors) validator.ValidationErrors {
	var out validator.ValidationErrors
	for _, e := range errs {
		if e.Rule != "missing_selection" {
			out = append(out, e)
		}
	}
	return out
}

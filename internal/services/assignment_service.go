package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
	"github.com/visionhub-hq/onboarding-service/internal/config"
	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
)

type assignmentService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
	cache  *cache.CacheManager
	policy config.PolicyConfig
}

func NewAssignmentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, cacheManager *cache.CacheManager, policy config.PolicyConfig) AssignmentService {
	return &assignmentService{
		repo:   repo,
		db:     db,
		logger: logger,
		cache:  cacheManager,
		policy: policy,
	}
}

func (s *assignmentService) audienceRoles() []models.RoleName {
	if s.policy.FanoutScope == config.FanoutNonAdmin {
		return []models.RoleName{models.RoleStaff, models.RoleManager}
	}
	return []models.RoleName{models.RoleStaff}
}

// Fanout creates a not_started assignment for every user in the configured
// audience, as one all-or-nothing transaction. The unique (user, module)
// index makes re-runs no-ops, so a crashed fan-out can simply be repeated.
func (s *assignmentService) Fanout(ctx context.Context, moduleID uint) (*FanoutResult, error) {
	var result *FanoutResult
	err := s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		var err error
		result, err = s.fanout(ctx, txRepo, moduleID)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateFanoutCaches(ctx, s.cache, result)
	return result, nil
}

// FanoutIn runs the fan-out inside the caller's transaction; the caller
// invalidates caches once that transaction commits.
func (s *assignmentService) FanoutIn(ctx context.Context, repo repositories.Repository, moduleID uint) (*FanoutResult, error) {
	return s.fanout(ctx, repo, moduleID)
}

func (s *assignmentService) fanout(ctx context.Context, repo repositories.Repository, moduleID uint) (*FanoutResult, error) {
	module, err := repo.Module().GetByID(ctx, nil, moduleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	if module.Status != models.ModulePublished {
		return nil, ErrModuleNotPublished
	}

	users, err := repo.User().ListActiveByRoles(ctx, nil, s.audienceRoles())
	if err != nil {
		return nil, fmt.Errorf("failed to list fan-out audience: %w", err)
	}

	result := &FanoutResult{ModuleID: moduleID}
	assignedAt := time.Now()
	for _, user := range users {
		created, err := repo.Assignment().CreateIfMissing(ctx, nil, user.ID, moduleID, assignedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to assign module %d to user %d: %w", moduleID, user.ID, err)
		}
		if created {
			result.Assigned++
			result.assignedUsers = append(result.assignedUsers, user.ID)
		} else {
			result.Skipped++
		}
	}

	s.logger.Info("Assignment fan-out completed",
		"module_id", moduleID,
		"assigned", result.Assigned,
		"skipped", result.Skipped,
		"scope", s.policy.FanoutScope)

	return result, nil
}

// invalidateFanoutCaches drops cached state for every user who gained a
// row. Called after the fan-out transaction commits, never inside it.
func invalidateFanoutCaches(ctx context.Context, cm *cache.CacheManager, result *FanoutResult) {
	for _, userID := range result.assignedUsers {
		cache.InvalidateAssignmentCache(ctx, cm, userID, result.ModuleID)
	}
}

// BackfillUser assigns every published active module the user is missing.
func (s *assignmentService) BackfillUser(ctx context.Context, userID uint) (int, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to get user: %w", err)
	}

	inAudience := false
	for _, role := range s.audienceRoles() {
		if user.Role.Name == role {
			inAudience = true
			break
		}
	}
	if !inAudience || !user.Active {
		return 0, nil
	}

	published := models.ModulePublished
	active := true
	modules, _, err := s.repo.Module().List(ctx, nil, repositories.ModuleFilters{
		Status: &published,
		Active: &active,
		Limit:  -1,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list published modules: %w", err)
	}

	count := 0
	var backfilled []uint
	assignedAt := time.Now()
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		for _, module := range modules {
			created, err := txRepo.Assignment().CreateIfMissing(ctx, nil, userID, module.ID, assignedAt)
			if err != nil {
				return fmt.Errorf("failed to backfill module %d: %w", module.ID, err)
			}
			if created {
				count++
				backfilled = append(backfilled, module.ID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, moduleID := range backfilled {
		cache.InvalidateAssignmentCache(ctx, s.cache, userID, moduleID)
	}
	return count, nil
}

func (s *assignmentService) GetForUser(ctx context.Context, userID, moduleID uint) (*AssignmentResponse, error) {
	assignment, err := s.repo.Assignment().GetByUserAndModuleWithAnswers(ctx, nil, userID, moduleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNotAssigned
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &AssignmentResponse{Assignment: assignment, ModuleTitle: assignment.Module.Title}, nil
}

func (s *assignmentService) ListForUser(ctx context.Context, userID uint) (*AssignmentListResponse, error) {
	assignments, err := s.repo.Assignment().ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return toAssignmentList(assignments, int64(len(assignments))), nil
}

func (s *assignmentService) List(ctx context.Context, filters repositories.AssignmentFilters) (*AssignmentListResponse, error) {
	assignments, total, err := s.repo.Assignment().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return toAssignmentList(assignments, total), nil
}

func toAssignmentList(assignments []*models.Assignment, total int64) *AssignmentListResponse {
	out := make([]*AssignmentResponse, len(assignments))
	for i, a := range assignments {
		out[i] = &AssignmentResponse{Assignment: a, ModuleTitle: a.Module.Title}
	}
	return &AssignmentListResponse{Assignments: out, Total: total}
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
	"github.com/visionhub-hq/onboarding-service/internal/events"
	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
	"github.com/visionhub-hq/onboarding-service/internal/validator"
)

type userService struct {
	repo       repositories.Repository
	db         *gorm.DB
	logger     *slog.Logger
	validator  *validator.Validator
	cache      *cache.CacheManager
	publisher  events.Publisher
	assignment AssignmentService
}

func NewUserService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, cacheManager *cache.CacheManager, publisher events.Publisher, assignment AssignmentService) UserService {
	return &userService{
		repo:       repo,
		db:         db,
		logger:     logger,
		validator:  validator,
		cache:      cacheManager,
		publisher:  publisher,
		assignment: assignment,
	}
}

func (s *userService) Create(ctx context.Context, req *CreateUserRequest, actorID uint) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.User().ExistsByEmail(ctx, nil, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	role, err := s.repo.User().GetRoleByName(ctx, nil, models.RoleName(req.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve role %s: %w", req.Role, err)
	}

	dept, err := s.repo.User().GetDepartment(ctx, nil, req.DepartmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, NewValidationError("department_id", "department does not exist", req.DepartmentID)
		}
		return nil, fmt.Errorf("failed to resolve department: %w", err)
	}

	if req.ManagerID != nil {
		if _, err := s.repo.User().GetByID(ctx, nil, *req.ManagerID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, NewValidationError("manager_id", "manager does not exist", *req.ManagerID)
			}
			return nil, fmt.Errorf("failed to resolve manager: %w", err)
		}
	}

	startedAt := time.Now()
	if req.StartedAt != nil {
		startedAt = *req.StartedAt
	}

	user := &models.User{
		Email:        req.Email,
		FirstName:    req.FirstName,
		Surname:      req.Surname,
		JobTitle:     req.JobTitle,
		RoleID:       role.ID,
		DepartmentID: dept.ID,
		ManagerID:    req.ManagerID,
		IsOnboarding: req.IsOnboarding,
		StartedAt:    startedAt,
		Active:       true,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, err
	}

	// The onboarding path mirrors the department; each department has a
	// same-named path seeded at migration time.
	if path, err := s.repo.Module().GetPathByName(ctx, nil, dept.Name); err == nil {
		user.OnboardingPathID = &path.ID
	}

	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created",
		"user_id", user.ID,
		"role", req.Role,
		"department", dept.Name,
		"actor_id", actorID)

	if err := s.publisher.Publish(events.EventUserCreated, events.UserCreated{
		UserID: user.ID,
		Email:  user.Email,
		Role:   req.Role,
	}); err != nil {
		s.logger.Error("Failed to publish user created event", "user_id", user.ID, "error", err)
	}

	// A hire that lands after modules were published still gets the full
	// catalog.
	if backfilled, err := s.assignment.BackfillUser(ctx, user.ID); err != nil {
		s.logger.Error("Failed to backfill assignments", "user_id", user.ID, "error", err)
	} else if backfilled > 0 {
		s.logger.Info("Backfilled assignments for new user", "user_id", user.ID, "count", backfilled)
	}

	return s.repo.User().GetByID(ctx, nil, user.ID)
}

func (s *userService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, id uint, req *UpdateUserRequest, actorID uint) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.repo.User().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if req.Email != nil && *req.Email != user.Email {
		exists, err := s.repo.User().ExistsByEmail(ctx, nil, *req.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if exists {
			return nil, ErrEmailTaken
		}
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.Surname != nil {
		user.Surname = *req.Surname
	}
	if req.JobTitle != nil {
		user.JobTitle = *req.JobTitle
	}
	if req.Password != nil {
		if err := user.SetPassword(*req.Password); err != nil {
			return nil, err
		}
	}
	if req.Role != nil {
		role, err := s.repo.User().GetRoleByName(ctx, nil, models.RoleName(*req.Role))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve role %s: %w", *req.Role, err)
		}
		user.RoleID = role.ID
	}
	if req.DepartmentID != nil {
		dept, err := s.repo.User().GetDepartment(ctx, nil, *req.DepartmentID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, NewValidationError("department_id", "department does not exist", *req.DepartmentID)
			}
			return nil, fmt.Errorf("failed to resolve department: %w", err)
		}
		user.DepartmentID = dept.ID
		if path, err := s.repo.Module().GetPathByName(ctx, nil, dept.Name); err == nil {
			user.OnboardingPathID = &path.ID
		}
	}
	if req.ManagerID != nil {
		if *req.ManagerID == id {
			return nil, NewValidationError("manager_id", "users cannot manage themselves", id)
		}
		if _, err := s.repo.User().GetByID(ctx, nil, *req.ManagerID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, NewValidationError("manager_id", "manager does not exist", *req.ManagerID)
			}
			return nil, fmt.Errorf("failed to resolve manager: %w", err)
		}
		user.ManagerID = req.ManagerID
	}
	if req.IsOnboarding != nil {
		user.IsOnboarding = *req.IsOnboarding
	}
	if req.StartedAt != nil {
		user.StartedAt = *req.StartedAt
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	cache.InvalidateUserCache(ctx, s.cache, id)
	s.logger.Info("User updated", "user_id", id, "actor_id", actorID)

	return s.repo.User().GetByID(ctx, nil, id)
}

func (s *userService) Delete(ctx context.Context, id uint, actorID uint) error {
	if id == actorID {
		return ErrSelfDelete
	}

	if _, err := s.repo.User().GetByID(ctx, nil, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if err := s.repo.User().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	cache.InvalidateUserCache(ctx, s.cache, id)
	s.logger.Info("User deleted", "user_id", id, "actor_id", actorID)
	return nil
}

func (s *userService) List(ctx context.Context, filters repositories.UserFilters) (*UserListResponse, error) {
	users, total, err := s.repo.User().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return &UserListResponse{Users: users, Total: total}, nil
}

func (s *userService) ListRoles(ctx context.Context) ([]*models.Role, error) {
	return s.repo.User().ListRoles(ctx, nil)
}

func (s *userService) ListDepartments(ctx context.Context) ([]*models.Department, error) {
	return s.repo.User().ListDepartments(ctx, nil)
}

// FinishOnboarding flips the onboarding flag once a starter has worked
// through their path. Managers use this from the team dashboard.
func (s *userService) FinishOnboarding(ctx context.Context, id uint, actorID uint) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.IsOnboarding {
		return user, nil
	}

	user.IsOnboarding = false
	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	cache.InvalidateUserCache(ctx, s.cache, id)
	s.logger.Info("Onboarding finished", "user_id", id, "actor_id", actorID)
	return user, nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
	"github.com/visionhub-hq/onboarding-service/internal/events"
	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
	"github.com/visionhub-hq/onboarding-service/internal/validator"
)

type moduleService struct {
	repo       repositories.Repository
	db         *gorm.DB
	logger     *slog.Logger
	validator  *validator.Validator
	cache      *cache.CacheManager
	publisher  events.Publisher
	assignment AssignmentService
}

func NewModuleService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, cacheManager *cache.CacheManager, publisher events.Publisher, assignment AssignmentService) ModuleService {
	return &moduleService{
		repo:       repo,
		db:         db,
		logger:     logger,
		validator:  validator,
		cache:      cacheManager,
		publisher:  publisher,
		assignment: assignment,
	}
}

func (s *moduleService) Create(ctx context.Context, req *CreateModuleRequest, creatorID uint) (*ModuleResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if errs := s.validator.ValidateModuleContent(req.Questions); len(errs) > 0 {
		return nil, errs
	}

	exists, err := s.repo.Module().ExistsByTitle(ctx, nil, req.Title, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to check title: %w", err)
	}
	if exists {
		return nil, ErrTitleTaken
	}

	module := &models.TrainingModule{
		Title:        req.Title,
		Description:  req.Description,
		Instructions: req.Instructions,
		VideoURL:     req.VideoURL,
		Status:       models.ModuleDraft,
		Active:       true,
		CreatedBy:    creatorID,
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Module().Create(ctx, nil, module); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrTitleTaken
			}
			return fmt.Errorf("failed to create module: %w", err)
		}
		if err := txRepo.Module().ReplaceQuestions(ctx, nil, module.ID, questionsFromRequest(req.Questions)); err != nil {
			return fmt.Errorf("failed to store questions: %w", err)
		}
		if len(req.PathIDs) > 0 {
			if err := txRepo.Module().ReplaceSteps(ctx, nil, module, req.PathIDs); err != nil {
				return fmt.Errorf("failed to tag onboarding paths: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Module created",
		"module_id", module.ID,
		"title", module.Title,
		"questions", len(req.Questions),
		"creator_id", creatorID)

	return s.loadResponse(ctx, module.ID, true)
}

func (s *moduleService) GetByID(ctx context.Context, id uint, actor *models.User) (*ModuleResponse, error) {
	module, err := s.repo.Module().GetByIDWithQuestions(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	// Staff only ever see published content, and never the answer key.
	if actor.Role.Name == models.RoleStaff {
		if module.Status != models.ModulePublished || !module.Active {
			return nil, ErrModuleNotFound
		}
		stripCorrectFlags(module)
	}

	canManage := actor.Role.Name == models.RoleAdmin || actor.Role.Name == models.RoleManager
	return &ModuleResponse{
		TrainingModule: module,
		CanEdit:        canManage && module.Status == models.ModuleDraft,
		CanRetire:      canManage && module.Status != models.ModuleRetired,
	}, nil
}

func (s *moduleService) Update(ctx context.Context, id uint, req *UpdateModuleRequest, actor *models.User) (*ModuleResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if len(req.Questions) > 0 {
		if errs := s.validator.ValidateModuleContent(req.Questions); len(errs) > 0 {
			return nil, errs
		}
	}

	module, err := s.repo.Module().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	// Published content is frozen so recorded answers keep their meaning;
	// metadata stays editable.
	contentEdit := len(req.Questions) > 0
	if contentEdit && module.Status == models.ModulePublished {
		return nil, ErrPublishedImmutable
	}
	if module.Status == models.ModuleRetired {
		return nil, ErrModuleRetired
	}

	if req.Title != nil && *req.Title != module.Title {
		exists, err := s.repo.Module().ExistsByTitle(ctx, nil, *req.Title, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check title: %w", err)
		}
		if exists {
			return nil, ErrTitleTaken
		}
		module.Title = *req.Title
	}
	if req.Description != nil {
		module.Description = *req.Description
	}
	if req.Instructions != nil {
		module.Instructions = *req.Instructions
	}
	if req.VideoURL != nil {
		module.VideoURL = req.VideoURL
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.Module().Update(ctx, nil, module); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrTitleTaken
			}
			return fmt.Errorf("failed to update module: %w", err)
		}
		if contentEdit {
			if err := txRepo.Module().ReplaceQuestions(ctx, nil, module.ID, questionsFromRequest(req.Questions)); err != nil {
				return fmt.Errorf("failed to replace questions: %w", err)
			}
		}
		if req.PathIDs != nil {
			if err := txRepo.Module().ReplaceSteps(ctx, nil, module, req.PathIDs); err != nil {
				return fmt.Errorf("failed to re-tag onboarding paths: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cache.InvalidateModuleCache(ctx, s.cache, id)
	s.logger.Info("Module updated", "module_id", id, "actor_id", actor.ID, "content_edit", contentEdit)

	return s.loadResponse(ctx, id, true)
}

func (s *moduleService) List(ctx context.Context, filters repositories.ModuleFilters, actor *models.User) (*ModuleListResponse, error) {
	if actor.Role.Name == models.RoleStaff {
		published := models.ModulePublished
		active := true
		filters.Status = &published
		filters.Active = &active
	}

	modules, total, err := s.repo.Module().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}

	canManage := actor.Role.Name == models.RoleAdmin || actor.Role.Name == models.RoleManager
	out := make([]*ModuleResponse, len(modules))
	for i, m := range modules {
		out[i] = &ModuleResponse{
			TrainingModule: m,
			CanEdit:        canManage && m.Status == models.ModuleDraft,
			CanRetire:      canManage && m.Status != models.ModuleRetired,
		}
	}
	return &ModuleListResponse{Modules: out, Total: total}, nil
}

// Publish moves a draft to published and fans out assignments, as one
// transaction: a fan-out failure rolls the status flip back. Publishing an
// already published module only re-runs the fan-out, which skips existing
// holders.
func (s *moduleService) Publish(ctx context.Context, id uint, actor *models.User) (*FanoutResult, error) {
	module, err := s.repo.Module().GetByIDWithQuestions(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	if module.Status == models.ModuleRetired {
		return nil, ErrModuleRetired
	}
	if len(module.Questions) == 0 {
		return nil, NewBusinessRuleError("publish_requires_questions", "a module cannot be published without questions")
	}

	var result *FanoutResult
	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if module.Status != models.ModulePublished {
			module.Status = models.ModulePublished
			if err := txRepo.Module().Update(ctx, nil, module); err != nil {
				return fmt.Errorf("failed to publish module: %w", err)
			}
		}
		var err error
		result, err = s.assignment.FanoutIn(ctx, txRepo, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateFanoutCaches(ctx, s.cache, result)
	cache.InvalidateModuleCache(ctx, s.cache, id)
	s.logger.Info("Module published",
		"module_id", id,
		"assigned", result.Assigned,
		"skipped", result.Skipped,
		"actor_id", actor.ID)

	if err := s.publisher.Publish(events.EventModulePublished, events.ModulePublished{
		ModuleID:    id,
		Title:       module.Title,
		PublishedBy: actor.ID,
		Assigned:    result.Assigned,
	}); err != nil {
		s.logger.Error("Failed to publish module event", "module_id", id, "error", err)
	}

	return result, nil
}

// Retire deactivates the module. Assignment rows survive so completed work
// stays on dashboards; pending ones stop counting against users.
func (s *moduleService) Retire(ctx context.Context, id uint, actor *models.User) error {
	module, err := s.repo.Module().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrModuleNotFound
		}
		return fmt.Errorf("failed to get module: %w", err)
	}

	if module.Status == models.ModuleRetired {
		return nil
	}

	module.Status = models.ModuleRetired
	module.Active = false
	if err := s.repo.Module().Update(ctx, nil, module); err != nil {
		return fmt.Errorf("failed to retire module: %w", err)
	}

	cache.InvalidateModuleCache(ctx, s.cache, id)
	s.logger.Info("Module retired", "module_id", id, "actor_id", actor.ID)

	if err := s.publisher.Publish(events.EventModuleRetired, events.ModuleRetired{
		ModuleID:  id,
		RetiredBy: actor.ID,
	}); err != nil {
		s.logger.Error("Failed to publish retire event", "module_id", id, "error", err)
	}
	return nil
}

func (s *moduleService) ListPaths(ctx context.Context) ([]*models.OnboardingPath, error) {
	return s.repo.Module().ListPaths(ctx, nil)
}

func (s *moduleService) loadResponse(ctx context.Context, id uint, canManage bool) (*ModuleResponse, error) {
	module, err := s.repo.Module().GetByIDWithQuestions(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload module: %w", err)
	}
	return &ModuleResponse{
		TrainingModule: module,
		CanEdit:        canManage && module.Status == models.ModuleDraft,
		CanRetire:      canManage && module.Status != models.ModuleRetired,
	}, nil
}

func questionsFromRequest(reqs []validator.QuestionRequest) []models.Question {
	questions := make([]models.Question, len(reqs))
	for i, q := range reqs {
		options := make([]models.Option, len(q.Options))
		for j, o := range q.Options {
			options[j] = models.Option{Text: o.Text, IsCorrect: o.IsCorrect}
		}
		questions[i] = models.Question{Text: q.Text, Position: i + 1, Options: options}
	}
	return questions
}

// stripCorrectFlags clears the answer key before a module is returned to
// the user taking it.
func stripCorrectFlags(module *models.TrainingModule) {
	for i := range module.Questions {
		for j := range module.Questions[i].Options {
			module.Questions[i].Options[j].IsCorrect = false
		}
	}
}

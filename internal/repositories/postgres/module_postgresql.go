package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
)

type ModulePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewModulePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ModuleRepository {
	return &ModulePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *ModulePostgreSQL) Create(ctx context.Context, tx *gorm.DB, module *models.TrainingModule) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Create(module).Error; err != nil {
		return err
	}
	cache.InvalidateModuleCache(ctx, r.cacheManager, module.ID)
	return nil
}

func (r *ModulePostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TrainingModule, error) {
	db := r.helpers.getDB(tx)
	var module models.TrainingModule

	cacheKey := fmt.Sprintf("id:%d", id)
	err := r.cacheManager.Module.CacheOrExecute(ctx, cacheKey, &module, cache.ModuleCacheConfig.TTL, func() (interface{}, error) {
		var dbModule models.TrainingModule
		if err := db.WithContext(ctx).First(&dbModule, id).Error; err != nil {
			return nil, err
		}
		return &dbModule, nil
	})
	if err != nil {
		return nil, err
	}
	return &module, nil
}

func (r *ModulePostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.TrainingModule, error) {
	db := r.helpers.getDB(tx)
	var module models.TrainingModule
	if err := db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.position asc")
		}).
		Preload("Questions.Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("options.id asc")
		}).
		First(&module, id).Error; err != nil {
		return nil, err
	}
	module.QuestionCount = len(module.Questions)
	return &module, nil
}

func (r *ModulePostgreSQL) Update(ctx context.Context, tx *gorm.DB, module *models.TrainingModule) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Save(module).Error; err != nil {
		return err
	}
	cache.InvalidateModuleCache(ctx, r.cacheManager, module.ID)
	return nil
}

func (r *ModulePostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.ModuleFilters) ([]*models.TrainingModule, int64, error) {
	db := r.helpers.getDB(tx)
	var modules []*models.TrainingModule
	var total int64

	query := db.WithContext(ctx).Model(&models.TrainingModule{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Active != nil {
		query = query.Where("active = ?", *filters.Active)
	}
	if filters.CreatedBy != nil {
		query = query.Where("created_by = ?", *filters.CreatedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := filters.SortBy
	switch sortBy {
	case "title", "created_at":
	default:
		sortBy = "created_at"
	}
	order := "desc"
	if filters.SortOrder == "asc" {
		order = "asc"
	}

	query = applyPagination(query, filters.Limit, filters.Offset)
	if err := query.Order(sortBy + " " + order).Find(&modules).Error; err != nil {
		return nil, 0, err
	}
	return modules, total, nil
}

func (r *ModulePostgreSQL) ExistsByTitle(ctx context.Context, tx *gorm.DB, title string, excludeID uint) (bool, error) {
	db := r.helpers.getDB(tx)
	var count int64
	query := db.WithContext(ctx).Model(&models.TrainingModule{}).Where("title = ?", title)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ReplaceQuestions deletes the module's question rows and recreates them
// from the given set. Assignment answers reference question ids but are
// snapshots, so completed history keeps its recorded correctness.
func (r *ModulePostgreSQL) ReplaceQuestions(ctx context.Context, tx *gorm.DB, moduleID uint, questions []models.Question) error {
	db := r.helpers.getDB(tx)

	var questionIDs []uint
	if err := db.WithContext(ctx).
		Model(&models.Question{}).
		Where("module_id = ?", moduleID).
		Pluck("id", &questionIDs).Error; err != nil {
		return err
	}

	if len(questionIDs) > 0 {
		if err := db.WithContext(ctx).
			Where("question_id IN ?", questionIDs).
			Delete(&models.Option{}).Error; err != nil {
			return err
		}
		if err := db.WithContext(ctx).
			Where("module_id = ?", moduleID).
			Delete(&models.Question{}).Error; err != nil {
			return err
		}
	}

	for i := range questions {
		questions[i].ID = 0
		questions[i].ModuleID = moduleID
		questions[i].Position = i + 1
		for j := range questions[i].Options {
			questions[i].Options[j].ID = 0
			questions[i].Options[j].QuestionID = 0
		}
	}
	if len(questions) > 0 {
		if err := db.WithContext(ctx).Create(&questions).Error; err != nil {
			return err
		}
	}

	cache.InvalidateModuleCache(ctx, r.cacheManager, moduleID)
	return nil
}

func (r *ModulePostgreSQL) ReplaceSteps(ctx context.Context, tx *gorm.DB, module *models.TrainingModule, pathIDs []uint) error {
	db := r.helpers.getDB(tx)

	if err := db.WithContext(ctx).
		Where("module_id = ?", module.ID).
		Delete(&models.OnboardingStep{}).Error; err != nil {
		return err
	}

	for _, pathID := range pathIDs {
		var position int64
		if err := db.WithContext(ctx).
			Model(&models.OnboardingStep{}).
			Where("path_id = ?", pathID).
			Count(&position).Error; err != nil {
			return err
		}
		step := models.OnboardingStep{
			Name:     module.Title,
			PathID:   pathID,
			Position: int(position) + 1,
			ModuleID: &module.ID,
		}
		if err := db.WithContext(ctx).Create(&step).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *ModulePostgreSQL) ListPaths(ctx context.Context, tx *gorm.DB) ([]*models.OnboardingPath, error) {
	db := r.helpers.getDB(tx)
	var paths []*models.OnboardingPath
	if err := db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("onboarding_steps.position asc")
		}).
		Order("name asc").
		Find(&paths).Error; err != nil {
		return nil, err
	}
	return paths, nil
}

func (r *ModulePostgreSQL) GetPathByName(ctx context.Context, tx *gorm.DB, name string) (*models.OnboardingPath, error) {
	db := r.helpers.getDB(tx)
	var path models.OnboardingPath
	if err := db.WithContext(ctx).Where("name = ?", name).First(&path).Error; err != nil {
		return nil, err
	}
	return &path, nil
}

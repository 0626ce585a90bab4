package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
)

type AssignmentPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAssignmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// CreateIfMissing relies on ON CONFLICT DO NOTHING against the unique
// (user_id, module_id) index, so concurrent fan-out retries never error on
// pairs that already exist.
func (r *AssignmentPostgreSQL) CreateIfMissing(ctx context.Context, tx *gorm.DB, userID, moduleID uint, assignedAt time.Time) (bool, error) {
	db := r.helpers.getDB(tx)

	assignment := models.Assignment{
		UserID:     userID,
		ModuleID:   moduleID,
		Status:     models.AssignmentNotStarted,
		AssignedAt: assignedAt,
	}
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "module_id"}},
			DoNothing: true,
		}).
		Create(&assignment)
	if result.Error != nil {
		return false, result.Error
	}

	created := result.RowsAffected > 0
	if created {
		cache.InvalidateAssignmentCache(ctx, r.cacheManager, userID, moduleID)
	}
	return created, nil
}

func (r *AssignmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error) {
	db := r.helpers.getDB(tx)
	var assignment models.Assignment
	if err := db.WithContext(ctx).
		Preload("Module").
		First(&assignment, id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentPostgreSQL) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uint) (*models.Assignment, error) {
	db := r.helpers.getDB(tx)
	var assignment models.Assignment
	if err := db.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// GetByUserAndModuleForUpdate issues SELECT ... FOR UPDATE; the caller must
// hold a transaction or the lock is released immediately.
func (r *AssignmentPostgreSQL) GetByUserAndModuleForUpdate(ctx context.Context, tx *gorm.DB, userID, moduleID uint) (*models.Assignment, error) {
	db := r.helpers.getDB(tx)
	var assignment models.Assignment
	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentPostgreSQL) GetByUserAndModuleWithAnswers(ctx context.Context, tx *gorm.DB, userID, moduleID uint) (*models.Assignment, error) {
	db := r.helpers.getDB(tx)
	var assignment models.Assignment
	if err := db.WithContext(ctx).
		Preload("Answers").
		Preload("Module").
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *AssignmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Save(assignment).Error; err != nil {
		return err
	}
	cache.InvalidateAssignmentCache(ctx, r.cacheManager, assignment.UserID, assignment.ModuleID)
	return nil
}

func (r *AssignmentPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	db := r.helpers.getDB(tx)
	var assignments []*models.Assignment
	var total int64

	query := db.WithContext(ctx).Model(&models.Assignment{})
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.ModuleID != nil {
		query = query.Where("module_id = ?", *filters.ModuleID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filters.Limit, filters.Offset)
	if err := query.
		Preload("Module").
		Order("assigned_at desc").
		Find(&assignments).Error; err != nil {
		return nil, 0, err
	}
	return assignments, total, nil
}

func (r *AssignmentPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]*models.Assignment, error) {
	db := r.helpers.getDB(tx)
	var assignments []*models.Assignment
	if err := db.WithContext(ctx).
		Preload("Module").
		Where("user_id = ?", userID).
		Order("assigned_at asc").
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpsertAnswers replaces the stored selection per (assignment, question)
// pair using the unique index on those columns.
func (r *AssignmentPostgreSQL) UpsertAnswers(ctx context.Context, tx *gorm.DB, assignmentID uint, answers []models.AssignmentAnswer) error {
	if len(answers) == 0 {
		return errors.New("no answers to persist")
	}
	db := r.helpers.getDB(tx)

	for i := range answers {
		answers[i].ID = 0
		answers[i].AssignmentID = assignmentID
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assignment_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"selected_option_id", "is_correct", "updated_at"}),
		}).
		Create(&answers).Error
}

func (r *AssignmentPostgreSQL) CountCompletedByModule(ctx context.Context, tx *gorm.DB, moduleID uint) (int64, error) {
	db := r.helpers.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("module_id = ? AND status = ?", moduleID, models.AssignmentCompleted).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

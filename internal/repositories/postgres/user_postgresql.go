package postgres

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
)

type UserPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewUserPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.UserRepository {
	return &UserPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (r *UserPostgreSQL) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return err
	}
	cache.InvalidateUserCache(ctx, r.cacheManager, user.ID)
	return nil
}

// GetByID always reads the database. User rows are never served from the
// JSON cache: PasswordHash is hidden from the serializer, so a cached copy
// comes back without credentials and a later Save would persist the empty
// hash.
func (r *UserPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	db := r.helpers.getDB(tx)
	var user models.User
	if err := db.WithContext(ctx).
		Preload("Role").
		Preload("Department").
		Preload("OnboardingPath").
		First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserPostgreSQL) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	db := r.helpers.getDB(tx)
	var user models.User
	if err := db.WithContext(ctx).
		Preload("Role").
		Preload("Department").
		Where("email = ?", email).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserPostgreSQL) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Save(user).Error; err != nil {
		return err
	}
	cache.InvalidateUserCache(ctx, r.cacheManager, user.ID)
	return nil
}

func (r *UserPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := r.helpers.getDB(tx)
	if err := db.WithContext(ctx).Delete(&models.User{}, id).Error; err != nil {
		return err
	}
	cache.InvalidateUserCache(ctx, r.cacheManager, id)
	return nil
}

func (r *UserPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.UserFilters) ([]*models.User, int64, error) {
	db := r.helpers.getDB(tx)
	var users []*models.User
	var total int64

	query := db.WithContext(ctx).Model(&models.User{})
	query = r.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filters.Limit, filters.Offset)
	if err := query.
		Preload("Role").
		Preload("Department").
		Order("surname asc, first_name asc").
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserPostgreSQL) applyFilters(query *gorm.DB, filters repositories.UserFilters) *gorm.DB {
	if filters.Role != nil {
		query = query.Joins("JOIN roles ON roles.id = users.role_id").
			Where("roles.name = ?", *filters.Role)
	}
	if filters.DepartmentID != nil {
		query = query.Where("department_id = ?", *filters.DepartmentID)
	}
	if filters.Active != nil {
		query = query.Where("active = ?", *filters.Active)
	}
	if filters.Onboarding != nil {
		query = query.Where("is_onboarding = ?", *filters.Onboarding)
	}
	if filters.Search != "" {
		like := "%" + filters.Search + "%"
		query = query.Where("first_name ILIKE ? OR surname ILIKE ? OR email ILIKE ?", like, like, like)
	}
	return query
}

func (r *UserPostgreSQL) ListActiveByRoles(ctx context.Context, tx *gorm.DB, roles []models.RoleName) ([]*models.User, error) {
	db := r.helpers.getDB(tx)
	var users []*models.User
	if err := db.WithContext(ctx).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.name IN ?", roles).
		Where("users.active = ?", true).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserPostgreSQL) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	db := r.helpers.getDB(tx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ===== REFERENCE DATA =====

func (r *UserPostgreSQL) GetRoleByName(ctx context.Context, tx *gorm.DB, name models.RoleName) (*models.Role, error) {
	db := r.helpers.getDB(tx)
	var role models.Role
	if err := db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *UserPostgreSQL) ListRoles(ctx context.Context, tx *gorm.DB) ([]*models.Role, error) {
	db := r.helpers.getDB(tx)
	var roles []*models.Role
	if err := db.WithContext(ctx).Order("id asc").Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *UserPostgreSQL) ListDepartments(ctx context.Context, tx *gorm.DB) ([]*models.Department, error) {
	db := r.helpers.getDB(tx)
	var departments []*models.Department
	if err := db.WithContext(ctx).Order("name asc").Find(&departments).Error; err != nil {
		return nil, err
	}
	return departments, nil
}

func (r *UserPostgreSQL) GetDepartment(ctx context.Context, tx *gorm.DB, id uint) (*models.Department, error) {
	db := r.helpers.getDB(tx)
	var department models.Department
	if err := db.WithContext(ctx).First(&department, id).Error; err != nil {
		return nil, err
	}
	return &department, nil
}

package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type UserFilters struct {
	Role         *models.RoleName `json:"role"`
	DepartmentID *uint            `json:"department_id"`
	Active       *bool            `json:"active"`
	Onboarding   *bool            `json:"onboarding"`
	Search       string           `json:"search"`
	Limit        int              `json:"limit"`
	Offset       int              `json:"offset"`
}

type ModuleFilters struct {
	Status    *models.ModuleStatus `json:"status"`
	Active    *bool                `json:"active"`
	CreatedBy *uint                `json:"created_by"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "created_at", "title"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

type AssignmentFilters struct {
	Status   *models.AssignmentStatus `json:"status"`
	UserID   *uint                    `json:"user_id"`
	ModuleID *uint                    `json:"module_id"`
	Limit    int                      `json:"limit"`
	Offset   int                      `json:"offset"`
}

type DocumentFilters struct {
	Category *models.DocumentCategory `json:"category"`
	Limit    int                      `json:"limit"`
	Offset   int                      `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type ModuleStats struct {
	ModuleID        uint    `json:"module_id"`
	Title           string  `json:"title"`
	AssignedCount   int64   `json:"assigned_count"`
	NotStartedCount int64   `json:"not_started_count"`
	InProgressCount int64   `json:"in_progress_count"`
	CompletedCount  int64   `json:"completed_count"`
	CompletionRate  float64 `json:"completion_rate"`
	AverageScore    float64 `json:"average_score"`
}

type OverviewStats struct {
	TotalUsers           int64   `json:"total_users"`
	OnboardingUsers      int64   `json:"onboarding_users"`
	TotalModules         int64   `json:"total_modules"`
	PublishedModules     int64   `json:"published_modules"`
	TotalAssignments     int64   `json:"total_assignments"`
	CompletedAssignments int64   `json:"completed_assignments"`
	CompletionRate       float64 `json:"completion_rate"`
	AverageScore         float64 `json:"average_score"`
}

type UserProgress struct {
	UserID         uint                 `json:"user_id"`
	FullName       string               `json:"full_name"`
	Assignments    []*models.Assignment `json:"assignments"`
	CompletedCount int                  `json:"completed_count"`
	TotalCount     int                  `json:"total_count"`
}

// ===== REPOSITORY INTERFACES =====

// UserRepository also exposes the fixed role/department/path reference data
// since those rows only ever change at seed time.
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	List(ctx context.Context, tx *gorm.DB, filters UserFilters) ([]*models.User, int64, error)
	ListActiveByRoles(ctx context.Context, tx *gorm.DB, roles []models.RoleName) ([]*models.User, error)
	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error)

	GetRoleByName(ctx context.Context, tx *gorm.DB, name models.RoleName) (*models.Role, error)
	ListRoles(ctx context.Context, tx *gorm.DB) ([]*models.Role, error)
	ListDepartments(ctx context.Context, tx *gorm.DB) ([]*models.Department, error)
	GetDepartment(ctx context.Context, tx *gorm.DB, id uint) (*models.Department, error)
}

type ModuleRepository interface {
	Create(ctx context.Context, tx *gorm.DB, module *models.TrainingModule) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TrainingModule, error)
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.TrainingModule, error)
	Update(ctx context.Context, tx *gorm.DB, module *models.TrainingModule) error
	List(ctx context.Context, tx *gorm.DB, filters ModuleFilters) ([]*models.TrainingModule, int64, error)
	ExistsByTitle(ctx context.Context, tx *gorm.DB, title string, excludeID uint) (bool, error)

	// ReplaceQuestions swaps the module's question/option content for the
	// given set. Recorded assignment answers are left untouched.
	ReplaceQuestions(ctx context.Context, tx *gorm.DB, moduleID uint, questions []models.Question) error

	// ReplaceSteps re-tags the module onto the given onboarding paths.
	ReplaceSteps(ctx context.Context, tx *gorm.DB, module *models.TrainingModule, pathIDs []uint) error

	ListPaths(ctx context.Context, tx *gorm.DB) ([]*models.OnboardingPath, error)
	GetPathByName(ctx context.Context, tx *gorm.DB, name string) (*models.OnboardingPath, error)
}

type AssignmentRepository interface {
	// CreateIfMissing inserts a not_started assignment for the pair unless
	// one already exists. Returns true when a row was created.
	CreateIfMissing(ctx context.Context, tx *gorm.DB, userID, moduleID uint, assignedAt time.Time) (bool, error)

	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assignment, error)
	GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uint) (*models.Assignment, error)

	// GetByUserAndModuleForUpdate locks the row for the remainder of the
	// surrounding transaction, serializing concurrent quiz writes on the
	// same pair.
	GetByUserAndModuleForUpdate(ctx context.Context, tx *gorm.DB, userID, moduleID uint) (*models.Assignment, error)

	GetByUserAndModuleWithAnswers(ctx context.Context, tx *gorm.DB, userID, moduleID uint) (*models.Assignment, error)
	Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	List(ctx context.Context, tx *gorm.DB, filters AssignmentFilters) ([]*models.Assignment, int64, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID uint) ([]*models.Assignment, error)

	// UpsertAnswers writes the answer set for an assignment, replacing any
	// previous selection per question.
	UpsertAnswers(ctx context.Context, tx *gorm.DB, assignmentID uint, answers []models.AssignmentAnswer) error
	CountCompletedByModule(ctx context.Context, tx *gorm.DB, moduleID uint) (int64, error)
}

type DashboardRepository interface {
	GetOverview(ctx context.Context, tx *gorm.DB) (*OverviewStats, error)
	GetModuleStats(ctx context.Context, tx *gorm.DB, moduleID uint) (*ModuleStats, error)
	ListModuleStats(ctx context.Context, tx *gorm.DB) ([]*ModuleStats, error)
	GetUserProgress(ctx context.Context, tx *gorm.DB, userID uint) (*UserProgress, error)
	ListTeamProgress(ctx context.Context, tx *gorm.DB, managerID uint) ([]*UserProgress, error)
}

type DocumentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, doc *models.Document) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Document, error)
	List(ctx context.Context, tx *gorm.DB, filters DocumentFilters) ([]*models.Document, int64, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
}

type ReportRepository interface {
	Create(ctx context.Context, tx *gorm.DB, report *models.Report) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Report, error)
	List(ctx context.Context, tx *gorm.DB, limit, offset int) ([]*models.Report, int64, error)
}

package services

import (
	"context"
	"time"

	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
	"github.com/visionhub-hq/onboarding-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type LoginRequest = validator.LoginRequest
type CreateUserRequest = validator.UserCreateRequest
type UpdateUserRequest = validator.UserUpdateRequest
type CreateModuleRequest = validator.ModuleCreateRequest
type UpdateModuleRequest = validator.ModuleUpdateRequest
type QuizSubmitRequest = validator.QuizSubmitRequest
type QuizSaveRequest = validator.QuizSaveRequest
type CreateDocumentRequest = validator.DocumentCreateRequest
type CreateReportRequest = validator.ReportCreateRequest

type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type UserListResponse struct {
	Users []*models.User `json:"users"`
	Total int64          `json:"total"`
}

type ModuleResponse struct {
	*models.TrainingModule
	CanEdit   bool `json:"can_edit"`
	CanRetire bool `json:"can_retire"`
}

type ModuleListResponse struct {
	Modules []*ModuleResponse `json:"modules"`
	Total   int64             `json:"total"`
}

// FanoutResult summarizes one publish fan-out run. Skipped counts users
// that already held an assignment for the module.
type FanoutResult struct {
	ModuleID uint `json:"module_id"`
	Assigned int  `json:"assigned"`
	Skipped  int  `json:"skipped"`

	// assignedUsers carries the users who gained a row, for cache
	// invalidation after the surrounding transaction commits.
	assignedUsers []uint
}

type AssignmentResponse struct {
	*models.Assignment
	ModuleTitle string `json:"module_title"`
}

type AssignmentListResponse struct {
	Assignments []*AssignmentResponse `json:"assignments"`
	Total       int64                 `json:"total"`
}

// QuizResult is the outcome of a scored submission.
type QuizResult struct {
	AssignmentID uint      `json:"assignment_id"`
	ModuleID     uint      `json:"module_id"`
	Score        float64   `json:"score"`
	Correct      int       `json:"correct"`
	Total        int       `json:"total"`
	Passed       bool      `json:"passed"`
	Attempts     int       `json:"attempts"`
	CompletedAt  time.Time `json:"completed_at"`
}

type DocumentListResponse struct {
	Documents []*models.Document `json:"documents"`
	Total     int64              `json:"total"`
}

type ReportListResponse struct {
	Reports []*models.Report `json:"reports"`
	Total   int64            `json:"total"`
}

// PhotoUpload carries a decoded multipart upload into the photo service.
type PhotoUpload struct {
	Filename string
	Size     int64
	Data     []byte
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	Login(ctx context.Context, req *LoginRequest) (*AuthResult, error)
	VerifyToken(ctx context.Context, token string) (*models.User, error)
}

type UserService interface {
	Create(ctx context.Context, req *CreateUserRequest, actorID uint) (*models.User, error)
	GetByID(ctx context.Context, id uint) (*models.User, error)
	Update(ctx context.Context, id uint, req *UpdateUserRequest, actorID uint) (*models.User, error)
	Delete(ctx context.Context, id uint, actorID uint) error
	List(ctx context.Context, filters repositories.UserFilters) (*UserListResponse, error)

	ListRoles(ctx context.Context) ([]*models.Role, error)
	ListDepartments(ctx context.Context) ([]*models.Department, error)
	FinishOnboarding(ctx context.Context, id uint, actorID uint) (*models.User, error)
}

type ModuleService interface {
	Create(ctx context.Context, req *CreateModuleRequest, creatorID uint) (*ModuleResponse, error)
	GetByID(ctx context.Context, id uint, actor *models.User) (*ModuleResponse, error)
	Update(ctx context.Context, id uint, req *UpdateModuleRequest, actor *models.User) (*ModuleResponse, error)
	List(ctx context.Context, filters repositories.ModuleFilters, actor *models.User) (*ModuleListResponse, error)

	// Publish moves a draft to published and fans assignments out to the
	// configured audience. Republishing is a no-op for existing holders.
	Publish(ctx context.Context, id uint, actor *models.User) (*FanoutResult, error)

	// Retire deactivates the module while preserving completed assignments.
	Retire(ctx context.Context, id uint, actor *models.User) error

	ListPaths(ctx context.Context) ([]*models.OnboardingPath, error)
}

type AssignmentService interface {
	// Fanout assigns the module to every eligible user in one transaction,
	// skipping pairs that already exist. Used for admin backfills.
	Fanout(ctx context.Context, moduleID uint) (*FanoutResult, error)

	// FanoutIn runs the fan-out against the caller's transaction so a
	// publish can flip the module status and assign atomically. The caller
	// owns cache invalidation after commit.
	FanoutIn(ctx context.Context, repo repositories.Repository, moduleID uint) (*FanoutResult, error)

	// BackfillUser creates missing assignments for every published module,
	// covering users hired after the modules went out.
	BackfillUser(ctx context.Context, userID uint) (int, error)

	GetForUser(ctx context.Context, userID, moduleID uint) (*AssignmentResponse, error)
	ListForUser(ctx context.Context, userID uint) (*AssignmentListResponse, error)
	List(ctx context.Context, filters repositories.AssignmentFilters) (*AssignmentListResponse, error)
}

type EvaluationService interface {
	// Submit scores a full answer set and completes the assignment.
	Submit(ctx context.Context, userID, moduleID uint, req *QuizSubmitRequest) (*QuizResult, error)

	// Save stores partial selections and marks the assignment in progress
	// without scoring.
	Save(ctx context.Context, userID, moduleID uint, req *QuizSaveRequest) error
}

type DashboardService interface {
	GetOverview(ctx context.Context) (*repositories.OverviewStats, error)
	GetModuleStats(ctx context.Context, moduleID uint) (*repositories.ModuleStats, error)
	ListModuleStats(ctx context.Context) ([]*repositories.ModuleStats, error)
	GetUserProgress(ctx context.Context, userID uint) (*repositories.UserProgress, error)
	GetTeamProgress(ctx context.Context, managerID uint) ([]*repositories.UserProgress, error)
}

type PhotoService interface {
	// Store validates, normalizes and persists a profile photo, replacing
	// any previous one. Returns the stored filename.
	Store(ctx context.Context, userID uint, upload *PhotoUpload) (string, error)
	Remove(ctx context.Context, userID uint) error
	Path(filename string) (string, error)
}

type DocumentService interface {
	Create(ctx context.Context, req *CreateDocumentRequest, filename string, actorID uint) (*models.Document, error)
	GetByID(ctx context.Context, id uint) (*models.Document, error)
	List(ctx context.Context, filters repositories.DocumentFilters) (*DocumentListResponse, error)
	Delete(ctx context.Context, id uint, actorID uint) error
}

type ReportService interface {
	Generate(ctx context.Context, req *CreateReportRequest, actorID uint) (*models.Report, error)
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	List(ctx context.Context, limit, offset int) (*ReportListResponse, error)

	// ExportXLSX renders the stored payload as a spreadsheet.
	ExportXLSX(ctx context.Context, id uint) ([]byte, string, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Auth() AuthService
	User() UserService
	Module() ModuleService
	Assignment() AssignmentService
	Evaluation() EvaluationService
	Dashboard() DashboardService
	Photo() PhotoService
	Document() DocumentService
	Report() ReportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

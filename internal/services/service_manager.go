package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
	"github.com/visionhub-hq/onboarding-service/internal/config"
	"github.com/visionhub-hq/onboarding-service/internal/events"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
	"github.com/visionhub-hq/onboarding-service/internal/storage"
	"github.com/visionhub-hq/onboarding-service/internal/validator"
)

// ServiceManagerDeps bundles everything the services share.
type ServiceManagerDeps struct {
	DB            *gorm.DB
	Repo          repositories.Repository
	Logger        *slog.Logger
	Validator     *validator.Validator
	CacheManager  *cache.CacheManager
	Publisher     events.Publisher
	PhotoStore    *storage.PhotoStore
	DocumentStore *storage.DocumentStore
	Config        *config.Config
}

type serviceManager struct {
	deps ServiceManagerDeps

	authService       AuthService
	userService       UserService
	moduleService     ModuleService
	assignmentService AssignmentService
	evaluationService EvaluationService
	dashboardService  DashboardService
	photoService      PhotoService
	documentService   DocumentService
	reportService     ReportService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(deps ServiceManagerDeps) ServiceManager {
	return &serviceManager{deps: deps}
}

func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	d := sm.deps
	if d.Repo == nil || d.DB == nil {
		return fmt.Errorf("repository and database are required")
	}

	// Assignment fan-out is shared by module publishing and user creation,
	// so it is built first.
	sm.assignmentService = NewAssignmentService(d.Repo, d.DB, d.Logger, d.CacheManager, d.Config.Policy)
	sm.authService = NewAuthService(d.Repo, d.DB, d.Logger, d.Validator, d.Config.JWT)
	sm.userService = NewUserService(d.Repo, d.DB, d.Logger, d.Validator, d.CacheManager, d.Publisher, sm.assignmentService)
	sm.moduleService = NewModuleService(d.Repo, d.DB, d.Logger, d.Validator, d.CacheManager, d.Publisher, sm.assignmentService)
	sm.evaluationService = NewEvaluationService(d.Repo, d.DB, d.Logger, d.Validator, d.CacheManager, d.Publisher, d.Config.Policy)
	sm.dashboardService = NewDashboardService(d.Repo, d.DB, d.Logger, d.CacheManager)
	sm.photoService = NewPhotoService(d.Repo, d.PhotoStore, d.Logger, d.CacheManager)
	sm.documentService = NewDocumentService(d.Repo, d.DB, d.Logger, d.Validator, d.DocumentStore)
	sm.reportService = NewReportService(d.Repo, d.DB, d.Logger, d.Validator)

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized")
	return nil
}

func (sm *serviceManager) mustBeInitialized() {
	if !sm.initialized {
		panic("service manager not initialized")
	}
}

func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.authService
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.userService
}

func (sm *serviceManager) Module() ModuleService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.moduleService
}

func (sm *serviceManager) Assignment() AssignmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.assignmentService
}

func (sm *serviceManager) Evaluation() EvaluationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.evaluationService
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.dashboardService
}

func (sm *serviceManager) Photo() PhotoService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.photoService
}

func (sm *serviceManager) Document() DocumentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.documentService
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.mustBeInitialized()
	return sm.reportService
}

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}
	return sm.deps.Repo.Ping(ctx)
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.deps.Logger.Error("Failed to close event publisher", "error", err)
		}
	}
	if err := sm.deps.Repo.Close(); err != nil {
		sm.deps.Logger.Error("Failed to close repository", "error", err)
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down")
	return nil
}

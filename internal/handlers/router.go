package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/services"
	"github.com/visionhub-hq/onboarding-service/internal/storage"
	"github.com/visionhub-hq/onboarding-service/internal/utils"
)

type HandlerManager struct {
	authHandler       *AuthHandler
	userHandler       *UserHandler
	moduleHandler     *ModuleHandler
	assignmentHandler *AssignmentHandler
	dashboardHandler  *DashboardHandler
	photoHandler      *PhotoHandler
	documentHandler   *DocumentHandler
	reportHandler     *ReportHandler
	authMiddleware    *AuthMiddleware

	serviceManager services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	documentStore *storage.DocumentStore,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		authHandler:       NewAuthHandler(serviceManager.Auth(), logger),
		userHandler:       NewUserHandler(serviceManager.User(), logger),
		moduleHandler:     NewModuleHandler(serviceManager.Module(), logger),
		assignmentHandler: NewAssignmentHandler(serviceManager.Assignment(), serviceManager.Evaluation(), logger),
		dashboardHandler:  NewDashboardHandler(serviceManager.Dashboard(), logger),
		photoHandler:      NewPhotoHandler(serviceManager.Photo(), serviceManager.User(), logger),
		documentHandler:   NewDocumentHandler(serviceManager.Document(), documentStore, logger),
		reportHandler:     NewReportHandler(serviceManager.Report(), logger),
		authMiddleware:    NewAuthMiddleware(serviceManager.Auth()),
		serviceManager:    serviceManager,
	}
}

// SetupRoutes wires every endpoint under /api/v1 with role gates.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.healthCheck)

	v1 := router.Group("/api/v1")
	v1.POST("/auth/login", hm.authHandler.Login)

	v1.Use(hm.authMiddleware.RequireAuth())
	{
		v1.GET("/auth/me", hm.authHandler.Me)

		manage := hm.authMiddleware.RequireRole(models.RoleAdmin, models.RoleManager)
		adminOnly := hm.authMiddleware.RequireRole(models.RoleAdmin)

		// User administration
		users := v1.Group("/users")
		{
			users.POST("", adminOnly, hm.userHandler.CreateUser)
			users.GET("", manage, hm.userHandler.ListUsers)
			users.GET("/:id", manage, hm.userHandler.GetUser)
			users.PUT("/:id", adminOnly, hm.userHandler.UpdateUser)
			users.DELETE("/:id", adminOnly, hm.userHandler.DeleteUser)
			users.POST("/:id/finish-onboarding", manage, hm.userHandler.FinishOnboarding)

			users.GET("/:id/photo", hm.photoHandler.GetPhoto)
			users.POST("/:id/photo", hm.photoHandler.UploadPhoto)
			users.DELETE("/:id/photo", hm.photoHandler.DeletePhoto)

			users.GET("/:id/progress", manage, hm.dashboardHandler.GetUserProgress)
		}

		v1.GET("/roles", manage, hm.userHandler.ListRoles)
		v1.GET("/departments", hm.userHandler.ListDepartments)
		v1.GET("/paths", hm.moduleHandler.ListPaths)

		// Own profile photo shortcuts
		v1.POST("/profile/photo", hm.photoHandler.UploadPhoto)
		v1.DELETE("/profile/photo", hm.photoHandler.DeletePhoto)

		// Module authoring and catalog
		modules := v1.Group("/modules")
		{
			modules.POST("", manage, hm.moduleHandler.CreateModule)
			modules.GET("", hm.moduleHandler.ListModules)
			modules.GET("/:id", hm.moduleHandler.GetModule)
			modules.PUT("/:id", manage, hm.moduleHandler.UpdateModule)
			modules.POST("/:id/publish", manage, hm.moduleHandler.PublishModule)
			modules.POST("/:id/retire", manage, hm.moduleHandler.RetireModule)
			modules.GET("/:id/stats", manage, hm.dashboardHandler.GetModuleStats)
		}

		// Own assignments and quiz taking
		assignments := v1.Group("/assignments")
		{
			assignments.GET("", hm.assignmentHandler.ListMyAssignments)
			assignments.GET("/:module_id", hm.assignmentHandler.GetMyAssignment)
			assignments.POST("/:module_id/submit", hm.assignmentHandler.SubmitQuiz)
			assignments.POST("/:module_id/save", hm.assignmentHandler.SaveQuiz)
		}

		// Administration over all assignments
		admin := v1.Group("/admin")
		admin.Use(manage)
		{
			admin.GET("/assignments", hm.assignmentHandler.ListAssignments)
			admin.POST("/assignments/:module_id/backfill", hm.assignmentHandler.BackfillAssignments)
		}

		// Dashboards
		dashboard := v1.Group("/dashboard")
		{
			dashboard.GET("/overview", manage, hm.dashboardHandler.GetOverview)
			dashboard.GET("/modules", manage, hm.dashboardHandler.ListModuleStats)
			dashboard.GET("/me", hm.dashboardHandler.GetMyProgress)
			dashboard.GET("/team", manage, hm.dashboardHandler.GetTeamProgress)
		}

		// Documents
		documents := v1.Group("/documents")
		{
			documents.POST("", manage, hm.documentHandler.UploadDocument)
			documents.GET("", hm.documentHandler.ListDocuments)
			documents.GET("/:id/download", hm.documentHandler.DownloadDocument)
			documents.DELETE("/:id", manage, hm.documentHandler.DeleteDocument)
		}

		// Reports
		reports := v1.Group("/reports")
		reports.Use(manage)
		{
			reports.POST("", hm.reportHandler.GenerateReport)
			reports.GET("", hm.reportHandler.ListReports)
			reports.GET("/:id", hm.reportHandler.GetReport)
			reports.GET("/:id/export", hm.reportHandler.ExportReport)
		}
	}
}

func (hm *HandlerManager) healthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "onboarding-service",
	})
}

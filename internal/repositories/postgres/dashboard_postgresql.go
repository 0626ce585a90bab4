package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
)

type DashboardPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewDashboardPostgreSQL(db *gorm.DB) repositories.DashboardRepository {
	return &DashboardPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (r *DashboardPostgreSQL) GetOverview(ctx context.Context, tx *gorm.DB) (*repositories.OverviewStats, error) {
	db := r.helpers.getDB(tx)
	stats := &repositories.OverviewStats{}

	if err := db.WithContext(ctx).Model(&models.User{}).
		Where("active = ?", true).
		Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&models.User{}).
		Where("active = ? AND is_onboarding = ?", true, true).
		Count(&stats.OnboardingUsers).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&models.TrainingModule{}).
		Where("active = ?", true).
		Count(&stats.TotalModules).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&models.TrainingModule{}).
		Where("active = ? AND status = ?", true, models.ModulePublished).
		Count(&stats.PublishedModules).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&models.Assignment{}).
		Count(&stats.TotalAssignments).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&models.Assignment{}).
		Where("status = ?", models.AssignmentCompleted).
		Count(&stats.CompletedAssignments).Error; err != nil {
		return nil, err
	}

	if stats.TotalAssignments > 0 {
		stats.CompletionRate = float64(stats.CompletedAssignments) / float64(stats.TotalAssignments) * 100
	}

	var avg *float64
	if err := db.WithContext(ctx).Model(&models.Assignment{}).
		Where("status = ? AND score IS NOT NULL", models.AssignmentCompleted).
		Select("AVG(score)").
		Scan(&avg).Error; err != nil {
		return nil, err
	}
	if avg != nil {
		stats.AverageScore = *avg
	}

	return stats, nil
}

func (r *DashboardPostgreSQL) GetModuleStats(ctx context.Context, tx *gorm.DB, moduleID uint) (*repositories.ModuleStats, error) {
	db := r.helpers.getDB(tx)

	var module models.TrainingModule
	if err := db.WithContext(ctx).First(&module, moduleID).Error; err != nil {
		return nil, err
	}

	stats := &repositories.ModuleStats{ModuleID: moduleID, Title: module.Title}

	type statusCount struct {
		Status models.AssignmentStatus
		Count  int64
	}
	var counts []statusCount
	if err := db.WithContext(ctx).Model(&models.Assignment{}).
		Select("status, COUNT(*) as count").
		Where("module_id = ?", moduleID).
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	for _, c := range counts {
		stats.AssignedCount += c.Count
		switch c.Status {
		case models.AssignmentNotStarted:
			stats.NotStartedCount = c.Count
		case models.AssignmentInProgress:
			stats.InProgressCount = c.Count
		case models.AssignmentCompleted:
			stats.CompletedCount = c.Count
		}
	}

	if stats.AssignedCount > 0 {
		stats.CompletionRate = float64(stats.CompletedCount) / float64(stats.AssignedCount) * 100
	}

	var avg *float64
	if err := db.WithContext(ctx).Model(&models.Assignment{}).
		Where("module_id = ? AND status = ? AND score IS NOT NULL", moduleID, models.AssignmentCompleted).
		Select("AVG(score)").
		Scan(&avg).Error; err != nil {
		return nil, err
	}
	if avg != nil {
		stats.AverageScore = *avg
	}

	return stats, nil
}

func (r *DashboardPostgreSQL) ListModuleStats(ctx context.Context, tx *gorm.DB) ([]*repositories.ModuleStats, error) {
	db := r.helpers.getDB(tx)

	var modules []models.TrainingModule
	if err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("title asc").
		Find(&modules).Error; err != nil {
		return nil, err
	}

	stats := make([]*repositories.ModuleStats, 0, len(modules))
	for i := range modules {
		s, err := r.GetModuleStats(ctx, tx, modules[i].ID)
		if err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, nil
}

func (r *DashboardPostgreSQL) GetUserProgress(ctx context.Context, tx *gorm.DB, userID uint) (*repositories.UserProgress, error) {
	db := r.helpers.getDB(tx)

	var user models.User
	if err := db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, err
	}

	var assignments []*models.Assignment
	if err := db.WithContext(ctx).
		Preload("Module").
		Where("user_id = ?", userID).
		Order("assigned_at asc").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	progress := &repositories.UserProgress{
		UserID:      userID,
		FullName:    user.FullName(),
		Assignments: assignments,
		TotalCount:  len(assignments),
	}
	for _, a := range assignments {
		if a.Status == models.AssignmentCompleted {
			progress.CompletedCount++
		}
	}
	return progress, nil
}

func (r *DashboardPostgreSQL) ListTeamProgress(ctx context.Context, tx *gorm.DB, managerID uint) ([]*repositories.UserProgress, error) {
	db := r.helpers.getDB(tx)

	var reports []models.User
	if err := db.WithContext(ctx).
		Where("manager_id = ? AND active = ?", managerID, true).
		Order("surname asc").
		Find(&reports).Error; err != nil {
		return nil, err
	}

	team := make([]*repositories.UserProgress, 0, len(reports))
	for i := range reports {
		progress, err := r.GetUserProgress(ctx, tx, reports[i].ID)
		if err != nil {
			return nil, err
		}
		team = append(team, progress)
	}
	return team, nil
}

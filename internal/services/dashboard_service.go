package services

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
)

type dashboardService struct {
	repo   repositories.Repository
	db     *gorm.DB
	logger *slog.Logger
	cache  *cache.CacheManager
}

func NewDashboardService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, cacheManager *cache.CacheManager) DashboardService {
	return &dashboardService{
		repo:   repo,
		db:     db,
		logger: logger,
		cache:  cacheManager,
	}
}

func (s *dashboardService) GetOverview(ctx context.Context) (*repositories.OverviewStats, error) {
	var stats repositories.OverviewStats
	err := s.cache.Stats.CacheOrExecute(ctx, "overview:all", &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.repo.Dashboard().GetOverview(ctx, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get overview stats: %w", err)
	}
	return &stats, nil
}

func (s *dashboardService) GetModuleStats(ctx context.Context, moduleID uint) (*repositories.ModuleStats, error) {
	var stats repositories.ModuleStats
	key := fmt.Sprintf("module:%d:stats", moduleID)
	err := s.cache.Stats.CacheOrExecute(ctx, key, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.repo.Dashboard().GetModuleStats(ctx, nil, moduleID)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to get module stats: %w", err)
	}
	return &stats, nil
}

func (s *dashboardService) ListModuleStats(ctx context.Context) ([]*repositories.ModuleStats, error) {
	var stats []*repositories.ModuleStats
	err := s.cache.Stats.CacheOrExecute(ctx, "overview:modules", &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.repo.Dashboard().ListModuleStats(ctx, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list module stats: %w", err)
	}
	return stats, nil
}

func (s *dashboardService) GetUserProgress(ctx context.Context, userID uint) (*repositories.UserProgress, error) {
	var progress repositories.UserProgress
	key := fmt.Sprintf("user:%d:progress", userID)
	err := s.cache.Stats.CacheOrExecute(ctx, key, &progress, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		return s.repo.Dashboard().GetUserProgress(ctx, nil, userID)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}
	return &progress, nil
}

// GetTeamProgress is uncached; managers hit it rarely and expect to see a
// completion the moment it lands.
func (s *dashboardService) GetTeamProgress(ctx context.Context, managerID uint) ([]*repositories.UserProgress, error) {
	progress, err := s.repo.Dashboard().ListTeamProgress(ctx, nil, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team progress: %w", err)
	}
	return progress, nil
}

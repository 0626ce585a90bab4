package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
	"github.com/visionhub-hq/onboarding-service/internal/storage"
)

type photoService struct {
	repo   repositories.Repository
	store  *storage.PhotoStore
	logger *slog.Logger
	cache  *cache.CacheManager
}

func NewPhotoService(repo repositories.Repository, store *storage.PhotoStore, logger *slog.Logger, cacheManager *cache.CacheManager) PhotoService {
	return &photoService{
		repo:   repo,
		store:  store,
		logger: logger,
		cache:  cacheManager,
	}
}

// Store persists a new profile photo and supersedes the previous one. The
// row is updated before the old file is removed, so a crash can orphan a
// file but never leave the row pointing at nothing.
func (s *photoService) Store(ctx context.Context, userID uint, upload *PhotoUpload) (string, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	filename, err := s.store.Save(upload.Filename, upload.Size, upload.Data)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedFormat) || errors.Is(err, storage.ErrNotAnImage) {
			return "", NewValidationError("photo", "file must be a png or jpeg image", upload.Filename)
		}
		if errors.Is(err, storage.ErrFileTooLarge) {
			return "", NewValidationError("photo", "file exceeds the size limit", upload.Size)
		}
		return "", err
	}

	previous := user.ProfilePhoto
	user.ProfilePhoto = &filename
	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		// Roll the orphaned upload back; the row still points at the old file.
		if cleanupErr := s.store.Delete(filename); cleanupErr != nil {
			s.logger.Error("Failed to clean up orphaned photo", "filename", filename, "error", cleanupErr)
		}
		return "", fmt.Errorf("failed to update user photo: %w", err)
	}

	if previous != nil {
		if err := s.store.Delete(*previous); err != nil {
			s.logger.Warn("Failed to delete superseded photo", "filename", *previous, "error", err)
		}
	}

	cache.InvalidateUserCache(ctx, s.cache, userID)
	s.logger.Info("Profile photo stored", "user_id", userID, "filename", filename)
	return filename, nil
}

func (s *photoService) Remove(ctx context.Context, userID uint) error {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	if user.ProfilePhoto == nil {
		return nil
	}

	previous := *user.ProfilePhoto
	user.ProfilePhoto = nil
	if err := s.repo.User().Update(ctx, nil, user); err != nil {
		return fmt.Errorf("failed to clear user photo: %w", err)
	}

	if err := s.store.Delete(previous); err != nil {
		s.logger.Warn("Failed to delete removed photo", "filename", previous, "error", err)
	}

	cache.InvalidateUserCache(ctx, s.cache, userID)
	s.logger.Info("Profile photo removed", "user_id", userID)
	return nil
}

func (s *photoService) Path(filename string) (string, error) {
	return s.store.Path(filename)
}

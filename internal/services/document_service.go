package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
	"github.com/visionhub-hq/onboarding-service/internal/storage"
	"github.com/visionhub-hq/onboarding-service/internal/validator"
)

type documentService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	store     *storage.DocumentStore
}

func NewDocumentService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, store *storage.DocumentStore) DocumentService {
	return &documentService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		store:     store,
	}
}

func (s *documentService) Create(ctx context.Context, req *CreateDocumentRequest, filename string, actorID uint) (*models.Document, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	doc := &models.Document{
		Title:      req.Title,
		Category:   models.DocumentCategory(req.Category),
		FilePath:   filename,
		UploadedBy: actorID,
		UploadedAt: time.Now(),
	}
	if err := s.repo.Document().Create(ctx, nil, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.logger.Info("Document created", "document_id", doc.ID, "category", req.Category, "actor_id", actorID)
	return doc, nil
}

func (s *documentService) GetByID(ctx context.Context, id uint) (*models.Document, error) {
	doc, err := s.repo.Document().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

func (s *documentService) List(ctx context.Context, filters repositories.DocumentFilters) (*DocumentListResponse, error) {
	docs, total, err := s.repo.Document().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return &DocumentListResponse{Documents: docs, Total: total}, nil
}

func (s *documentService) Delete(ctx context.Context, id uint, actorID uint) error {
	doc, err := s.repo.Document().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrDocumentNotFound
		}
		return fmt.Errorf("failed to get document: %w", err)
	}

	if err := s.repo.Document().Delete(ctx, nil, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if err := s.store.Delete(doc.FilePath); err != nil {
		s.logger.Warn("Failed to delete document file", "filename", doc.FilePath, "error", err)
	}

	s.logger.Info("Document deleted", "document_id", id, "actor_id", actorID)
	return nil
}

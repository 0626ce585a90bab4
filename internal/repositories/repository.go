package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
)

// Repository aggregates the per-domain repositories behind one handle.
type Repository interface {
	User() UserRepository
	Module() ModuleRepository
	Assignment() AssignmentRepository
	Dashboard() DashboardRepository
	Document() DocumentRepository
	Report() ReportRepository

	// CacheManager exposes the shared cache helpers so services can read
	// through and invalidate the same keyspace the repositories use.
	CacheManager() *cache.CacheManager

	// WithTransaction runs fn against a repository bound to one database
	// transaction; any error rolls the whole unit back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager owns the repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// IsNotFoundError reports whether err means the row does not exist.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateError reports whether err is a unique-constraint violation.
// GORM surfaces these as ErrDuplicatedKey with the Postgres translator on.
func IsDuplicateError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/visionhub-hq/onboarding-service/internal/cache"
	"github.com/visionhub-hq/onboarding-service/internal/config"
	"github.com/visionhub-hq/onboarding-service/internal/events"
	"github.com/visionhub-hq/onboarding-service/internal/models"
	"github.com/visionhub-hq/onboarding-service/internal/repositories"
)

// fakeRepo satisfies repositories.Repository with in-memory sub-repos.
// Unused sub-repos stay nil and panic on access, keeping each test honest
// about what it touches.
type fakeRepo struct {
	user       *fakeUserRepo
	module     *fakeModuleRepo
	assignment *fakeAssignmentRepo

	txCalls int
}

func (r *fakeRepo) User() repositories.UserRepository             { return r.user }
func (r *fakeRepo) Module() repositories.ModuleRepository         { return r.module }
func (r *fakeRepo) Assignment() repositories.AssignmentRepository { return r.assignment }
func (r *fakeRepo) Dashboard() repositories.DashboardRepository   { return nil }
func (r *fakeRepo) Document() repositories.DocumentRepository     { return nil }
func (r *fakeRepo) Report() repositories.ReportRepository         { return nil }
func (r *fakeRepo) CacheManager() *cache.CacheManager             { return cache.NewCacheManager(nil) }

// WithTransaction runs fn against the same fake, restoring the prior state
// when fn fails so callers observe rollback semantics.
func (r *fakeRepo) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	r.txCalls++
	moduleSnap := r.module.snapshot()
	assignSnap, answerSnap := r.assignment.snapshot()

	err := fn(r)
	if err != nil {
		r.module.restore(moduleSnap)
		r.assignment.restore(assignSnap, answerSnap)
	}
	return err
}

func (r *fakeRepo) Ping(ctx context.Context) error { return nil }
func (r *fakeRepo) Close() error                   { return nil }

// fakeUserRepo embeds the interface so unimplemented methods panic with a
// nil dereference instead of silently returning zero values.
type fakeUserRepo struct {
	repositories.UserRepository
	users map[uint]*models.User
}

func (r *fakeUserRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) ListActiveByRoles(ctx context.Context, tx *gorm.DB, roles []models.RoleName) ([]*models.User, error) {
	var out []*models.User
	for _, user := range r.users {
		if !user.Active {
			continue
		}
		for _, role := range roles {
			if user.Role.Name == role {
				out = append(out, user)
				break
			}
		}
	}
	return out, nil
}

type fakeModuleRepo struct {
	repositories.ModuleRepository
	modules map[uint]*models.TrainingModule
}

// GetByID hands out a copy so in-place edits only land via Update, matching
// how rows behave against a real database.
func (r *fakeModuleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.TrainingModule, error) {
	module, ok := r.modules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *module
	return &copied, nil
}

func (r *fakeModuleRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.TrainingModule, error) {
	return r.GetByID(ctx, tx, id)
}

func (r *fakeModuleRepo) snapshot() map[uint]*models.TrainingModule {
	if r == nil {
		return nil
	}
	snap := make(map[uint]*models.TrainingModule, len(r.modules))
	for id, m := range r.modules {
		snap[id] = m
	}
	return snap
}

func (r *fakeModuleRepo) restore(snap map[uint]*models.TrainingModule) {
	if r == nil {
		return
	}
	r.modules = snap
}

func (r *fakeModuleRepo) ExistsByTitle(ctx context.Context, tx *gorm.DB, title string, excludeID uint) (bool, error) {
	for _, m := range r.modules {
		if m.Title == title && m.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeModuleRepo) Update(ctx context.Context, tx *gorm.DB, module *models.TrainingModule) error {
	r.modules[module.ID] = module
	return nil
}

func (r *fakeModuleRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.ModuleFilters) ([]*models.TrainingModule, int64, error) {
	var out []*models.TrainingModule
	for _, m := range r.modules {
		if filters.Status != nil && m.Status != *filters.Status {
			continue
		}
		if filters.Active != nil && m.Active != *filters.Active {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

type assignmentKey struct {
	userID   uint
	moduleID uint
}

type fakeAssignmentRepo struct {
	repositories.AssignmentRepository
	assignments map[assignmentKey]*models.Assignment
	answers     map[uint][]models.AssignmentAnswer
	nextID      uint

	// failForUser makes CreateIfMissing fail for one user, simulating a
	// mid-fan-out write error.
	failForUser uint

	// lockedReads counts reads taken through the FOR UPDATE path.
	lockedReads int
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{
		assignments: make(map[assignmentKey]*models.Assignment),
		answers:     make(map[uint][]models.AssignmentAnswer),
	}
}

func (r *fakeAssignmentRepo) CreateIfMissing(ctx context.Context, tx *gorm.DB, userID, moduleID uint, assignedAt time.Time) (bool, error) {
	if r.failForUser != 0 && userID == r.failForUser {
		return false, errors.New("insert failed")
	}
	key := assignmentKey{userID, moduleID}
	if _, ok := r.assignments[key]; ok {
		return false, nil
	}
	r.nextID++
	r.assignments[key] = &models.Assignment{
		ID:         r.nextID,
		UserID:     userID,
		ModuleID:   moduleID,
		Status:     models.AssignmentNotStarted,
		AssignedAt: assignedAt,
	}
	return true, nil
}

func (r *fakeAssignmentRepo) GetByUserAndModule(ctx context.Context, tx *gorm.DB, userID, moduleID uint) (*models.Assignment, error) {
	assignment, ok := r.assignments[assignmentKey{userID, moduleID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *assignment
	return &copied, nil
}

func (r *fakeAssignmentRepo) GetByUserAndModuleForUpdate(ctx context.Context, tx *gorm.DB, userID, moduleID uint) (*models.Assignment, error) {
	r.lockedReads++
	return r.GetByUserAndModule(ctx, tx, userID, moduleID)
}

func (r *fakeAssignmentRepo) Update(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	r.assignments[assignmentKey{assignment.UserID, assignment.ModuleID}] = assignment
	return nil
}

func (r *fakeAssignmentRepo) UpsertAnswers(ctx context.Context, tx *gorm.DB, assignmentID uint, answers []models.AssignmentAnswer) error {
	r.answers[assignmentID] = answers
	return nil
}

func (r *fakeAssignmentRepo) snapshot() (map[assignmentKey]*models.Assignment, map[uint][]models.AssignmentAnswer) {
	if r == nil {
		return nil, nil
	}
	assignSnap := make(map[assignmentKey]*models.Assignment, len(r.assignments))
	for k, a := range r.assignments {
		assignSnap[k] = a
	}
	answerSnap := make(map[uint][]models.AssignmentAnswer, len(r.answers))
	for id, answers := range r.answers {
		answerSnap[id] = answers
	}
	return assignSnap, answerSnap
}

func (r *fakeAssignmentRepo) restore(assignSnap map[assignmentKey]*models.Assignment, answerSnap map[uint][]models.AssignmentAnswer) {
	if r == nil {
		return
	}
	r.assignments = assignSnap
	r.answers = answerSnap
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testPublisher() events.Publisher {
	return events.NewInProcessPublisher("onboarding-events-test", testLogger())
}

func testPolicy() config.PolicyConfig {
	return config.PolicyConfig{
		FanoutScope:  config.FanoutStaffOnly,
		Resubmission: config.ResubmissionReject,
		PassingScore: 50,
	}
}

package pkg

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/visionhub-hq/onboarding-service/internal/config"
	"github.com/visionhub-hq/onboarding-service/internal/models"
)

// InitDatabase opens the Postgres connection, tunes the pool and runs
// migrations plus the fixed-data seed.
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormLogLevel := logger.Warn
	if cfg.Environment == "development" {
		gormLogLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel),
		// Surface unique violations as gorm.ErrDuplicatedKey so callers can
		// map them to conflicts instead of parsing pq error strings.
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	if err := Seed(db, cfg.Seed); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Role{},
		&models.Department{},
		&models.OnboardingPath{},
		&models.User{},
		&models.TrainingModule{},
		&models.Question{},
		&models.Option{},
		&models.OnboardingStep{},
		&models.Assignment{},
		&models.AssignmentAnswer{},
		&models.Document{},
		&models.Report{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Seed inserts the fixed role set, the default departments and onboarding
// paths, and the initial admin account. It is idempotent.
func Seed(db *gorm.DB, seed config.SeedConfig) error {
	for _, name := range []models.RoleName{models.RoleAdmin, models.RoleManager, models.RoleStaff} {
		role := models.Role{Name: name}
		if err := db.Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", name, err)
		}
	}

	for _, name := range []string{"office", "operational"} {
		dept := models.Department{Name: name}
		if err := db.Where(models.Department{Name: name}).FirstOrCreate(&dept).Error; err != nil {
			return fmt.Errorf("failed to seed department %s: %w", name, err)
		}
		path := models.OnboardingPath{Name: name}
		if err := db.Where(models.OnboardingPath{Name: name}).FirstOrCreate(&path).Error; err != nil {
			return fmt.Errorf("failed to seed onboarding path %s: %w", name, err)
		}
	}

	if seed.AdminPassword == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", seed.AdminEmail).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check seed admin: %w", err)
	}
	if count > 0 {
		return nil
	}

	var adminRole models.Role
	if err := db.Where("name = ?", models.RoleAdmin).First(&adminRole).Error; err != nil {
		return fmt.Errorf("failed to load admin role: %w", err)
	}
	var office models.Department
	if err := db.Where("name = ?", "office").First(&office).Error; err != nil {
		return fmt.Errorf("failed to load office department: %w", err)
	}

	admin := models.User{
		Email:        seed.AdminEmail,
		FirstName:    "System",
		Surname:      "Admin",
		JobTitle:     "Administrator",
		RoleID:       adminRole.ID,
		DepartmentID: office.ID,
		StartedAt:    time.Now(),
		Active:       true,
	}
	if err := admin.SetPassword(seed.AdminPassword); err != nil {
		return err
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	return nil
}

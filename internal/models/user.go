package models

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RoleName string

const (
	RoleAdmin   RoleName = "admin"
	RoleManager RoleName = "manager"
	RoleStaff   RoleName = "staff"
)

// Role is seeded once at migration time and never mutated afterwards.
type Role struct {
	ID   uint     `json:"id" gorm:"primaryKey"`
	Name RoleName `json:"name" gorm:"uniqueIndex;not null;size:20"`

	Users []User `json:"-" gorm:"foreignKey:RoleID"`
}

func (Role) TableName() string {
	return "roles"
}

type Department struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex;not null;size:50"`

	Users []User `json:"-" gorm:"foreignKey:DepartmentID"`
}

func (Department) TableName() string {
	return "departments"
}

type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Email        string `json:"email" gorm:"uniqueIndex;not null;size:120"`
	FirstName    string `json:"first_name" gorm:"not null;size:50;index"`
	Surname      string `json:"surname" gorm:"not null;size:50;index"`
	JobTitle     string `json:"job_title" gorm:"size:50"`
	PasswordHash string `json:"-" gorm:"not null;size:256"`

	// Onboarding state
	IsOnboarding bool      `json:"is_onboarding" gorm:"default:false"`
	StartedAt    time.Time `json:"started_at" gorm:"index"`

	// At most one active photo reference; replacing supersedes the old file.
	ProfilePhoto *string `json:"profile_photo" gorm:"size:120"`

	RoleID       uint       `json:"role_id" gorm:"not null;index"`
	Role         Role       `json:"role" gorm:"foreignKey:RoleID"`
	DepartmentID uint       `json:"department_id" gorm:"not null;index"`
	Department   Department `json:"department" gorm:"foreignKey:DepartmentID"`

	// Self-referential manager relationship
	ManagerID *uint  `json:"manager_id" gorm:"index"`
	Manager   *User  `json:"manager,omitempty" gorm:"foreignKey:ManagerID"`
	Manages   []User `json:"-" gorm:"foreignKey:ManagerID"`

	OnboardingPathID *uint           `json:"onboarding_path_id" gorm:"index"`
	OnboardingPath   *OnboardingPath `json:"onboarding_path,omitempty" gorm:"foreignKey:OnboardingPathID"`

	Active bool `json:"active" gorm:"default:true;index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Assignments []Assignment `json:"-" gorm:"foreignKey:UserID"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return fmt.Sprintf("%s %s", u.FirstName, u.Surname)
}

// SetPassword hashes and stores the given plaintext password.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether the plaintext password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

package validator

import "time"

// ===== AUTHENTICATION =====

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ===== USER MANAGEMENT =====

type UserCreateRequest struct {
	Email        string     `json:"email" validate:"required,email,max=120"`
	FirstName    string     `json:"first_name" validate:"required,max=50"`
	Surname      string     `json:"surname" validate:"required,max=50"`
	JobTitle     string     `json:"job_title" validate:"required,max=50"`
	Password     string     `json:"password" validate:"required,min=8,max=72"`
	Role         string     `json:"role" validate:"required,role_name"`
	DepartmentID uint       `json:"department_id" validate:"required"`
	ManagerID    *uint      `json:"manager_id"`
	IsOnboarding bool       `json:"is_onboarding"`
	StartedAt    *time.Time `json:"started_at"`
}

type UserUpdateRequest struct {
	Email        *string    `json:"email" validate:"omitempty,email,max=120"`
	FirstName    *string    `json:"first_name" validate:"omitempty,max=50"`
	Surname      *string    `json:"surname" validate:"omitempty,max=50"`
	JobTitle     *string    `json:"job_title" validate:"omitempty,max=50"`
	Password     *string    `json:"password" validate:"omitempty,min=8,max=72"`
	Role         *string    `json:"role" validate:"omitempty,role_name"`
	DepartmentID *uint      `json:"department_id"`
	ManagerID    *uint      `json:"manager_id"`
	IsOnboarding *bool      `json:"is_onboarding"`
	StartedAt    *time.Time `json:"started_at"`
	Active       *bool      `json:"active"`
}

// ===== MODULE AUTHORING =====

// OptionRequest is one of the four answer choices of a question.
type OptionRequest struct {
	Text      string `json:"text" validate:"required,max=500"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionRequest carries exactly four options; the single-correct rule is
// checked by the business validator so the failure names the question index.
type QuestionRequest struct {
	Text    string          `json:"text" validate:"required,max=1000"`
	Options []OptionRequest `json:"options" validate:"required,len=4,dive"`
}

type ModuleCreateRequest struct {
	Title        string            `json:"title" validate:"required,min=1,max=150"`
	Description  string            `json:"description" validate:"required,max=5000"`
	Instructions string            `json:"instructions" validate:"required,max=5000"`
	VideoURL     *string           `json:"video_url" validate:"omitempty,max=300,video_url"`
	PathIDs      []uint            `json:"path_ids"`
	Questions    []QuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type ModuleUpdateRequest struct {
	Title        *string           `json:"title" validate:"omitempty,min=1,max=150"`
	Description  *string           `json:"description" validate:"omitempty,max=5000"`
	Instructions *string           `json:"instructions" validate:"omitempty,max=5000"`
	VideoURL     *string           `json:"video_url" validate:"omitempty,max=300,video_url"`
	PathIDs      []uint            `json:"path_ids"`
	Questions    []QuestionRequest `json:"questions" validate:"omitempty,min=1,dive"`
}

// ===== QUIZ SUBMISSION =====

type AnswerSelection struct {
	QuestionID uint `json:"question_id" validate:"required"`
	OptionID   uint `json:"option_id" validate:"required"`
}

type QuizSubmitRequest struct {
	Answers []AnswerSelection `json:"answers" validate:"required,min=1,dive"`
}

// QuizSaveRequest stores partial selections without scoring; an empty answer
// set is allowed since starting the module is itself progress.
type QuizSaveRequest struct {
	Answers []AnswerSelection `json:"answers" validate:"omitempty,dive"`
}

// ===== DOCUMENTS & REPORTS =====

type DocumentCreateRequest struct {
	Title    string `json:"title" validate:"required,max=150"`
	Category string `json:"category" validate:"required,document_category"`
}

type ReportCreateRequest struct {
	Type        string `json:"type" validate:"required,oneof=completion performance"`
	Description string `json:"description" validate:"required,max=255"`
}

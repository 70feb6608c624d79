package tasksdk

import "time"

// Task statuses.
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusDone       = "DONE"
)

// ============================================================================
// Auth
// ============================================================================

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Name     string `json:"name,omitempty" validate:"max=100"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// User is the public view of an account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// AuthResponse is returned by register and login. The refresh token is
// sent separately as a cookie.
type AuthResponse struct {
	AccessToken string `json:"accessToken"`
	User        User   `json:"user"`
}

// RefreshResponse is returned by POST /auth/refresh.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ============================================================================
// Tasks
// ============================================================================

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateTaskRequest is the body of POST /tasks. Status defaults to TODO.
type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=2000"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
}

// UpdateTaskRequest is the body of PATCH /tasks/{id}. Nil fields are left
// unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	Status      *string `json:"status,omitempty" validate:"omitempty,oneof=TODO IN_PROGRESS DONE"`
}

// ListTasksOptions are the query parameters of GET /tasks. Zero values
// are omitted and the server defaults apply.
type ListTasksOptions struct {
	Limit  int
	Page   int
	Status string
	Search string
}

type PageMeta struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type TaskListResponse struct {
	Items []Task   `json:"items"`
	Meta  PageMeta `json:"meta"`
}

// ToggleResponse is returned by POST /tasks/{id}/toggle.
type ToggleResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ============================================================================
// Health
// ============================================================================

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
}

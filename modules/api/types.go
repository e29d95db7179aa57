package api

import (
	"encoding/json"
	"time"

	"github.com/example/taskboard/domain/board"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// Auth

// RegisterRequest creates an account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// LoginRequest authenticates a user.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the session token.
type LoginResponse struct {
	Token string      `json:"token"`
	User  *board.User `json:"user"`
}

// UpdateProfileRequest changes display fields on the caller's account.
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
}

// ChangePasswordRequest rotates the caller's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Projects

// CreateProjectRequest creates a project.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

// UpdateProjectRequest changes project metadata; nil fields are untouched.
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon"`
}

// AddMemberRequest adds a roster row.
type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// UpdateMemberRequest changes a roster row's role.
type UpdateMemberRequest struct {
	Role string `json:"role"`
}

// Tasks

// CreateTaskRequest creates a task in a project.
type CreateTaskRequest struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	AssigneeID     *string    `json:"assignee_id"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	DueDate        *time.Time `json:"due_date"`
	EstimatedHours *float64   `json:"estimated_hours"`
	TagIDs         []string   `json:"tag_ids"`
}

// UpdateTaskRequest applies a field diff. For the nullable fields an absent
// key leaves the value untouched while an explicit null clears it, so they
// are kept raw and decoded by the handler.
type UpdateTaskRequest struct {
	Title          *string         `json:"title"`
	Description    *string         `json:"description"`
	Status         *string         `json:"status"`
	Priority       *string         `json:"priority"`
	AssigneeID     json.RawMessage `json:"assignee_id"`
	DueDate        json.RawMessage `json:"due_date"`
	EstimatedHours json.RawMessage `json:"estimated_hours"`
	ActualHours    json.RawMessage `json:"actual_hours"`
	TagIDs         *[]string       `json:"tag_ids"`
}

// UpdateStatusRequest moves a task through the status machine.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// AssignRequest sets or clears (null) the assignee.
type AssignRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// AddCommentRequest authors a comment.
type AddCommentRequest struct {
	Content string `json:"content"`
}

// EditCommentRequest replaces a comment's content.
type EditCommentRequest struct {
	Content string `json:"content"`
}

// Tags

// CreateTagRequest creates a tag; a null project_id makes it global.
type CreateTagRequest struct {
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	ProjectID *string `json:"project_id"`
}

// UpdateTagRequest changes a project tag.
type UpdateTagRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}
